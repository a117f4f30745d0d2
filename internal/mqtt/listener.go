package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"voicebutton/internal/domain"
)

type ListenerConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	CommandTopic   string
	ConnectTimeout time.Duration
}

// Listener is the controller side of the command topic: it decodes each
// payload and hands valid codes to the handler.
type Listener struct {
	cfg       ListenerConfig
	handler   func(domain.CommandCode)
	client    paho.Client
	newClient func(*paho.ClientOptions) paho.Client
	logger    *slog.Logger
}

func NewListener(cfg ListenerConfig, handler func(domain.CommandCode), logger *slog.Logger) (*Listener, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker url is empty")
	}
	if cfg.CommandTopic == "" {
		return nil, fmt.Errorf("command topic is empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("command handler is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		cfg:       cfg,
		handler:   handler,
		newClient: paho.NewClient,
		logger:    logger,
	}, nil
}

func (l *Listener) Start() error {
	opts := paho.NewClientOptions().
		AddBroker(l.cfg.BrokerURL).
		SetClientID(l.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
		opts.SetPassword(l.cfg.Password)
	}

	// Subscribing from the connect handler restores the subscription after
	// every reconnect.
	opts.SetOnConnectHandler(func(c paho.Client) {
		if token := c.Subscribe(l.cfg.CommandTopic, 0, l.handleCommand); token.Wait() && token.Error() != nil {
			l.logger.Error("subscribe command topic failed", "topic", l.cfg.CommandTopic, "error", token.Error())
			return
		}
		l.logger.Info("listening for commands", "topic", l.cfg.CommandTopic)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		l.logger.Error("mqtt connection lost", "error", err)
	})

	l.client = l.newClient(opts)
	token := l.client.Connect()
	if !token.WaitTimeout(l.cfg.ConnectTimeout) {
		l.client.Disconnect(0)
		return fmt.Errorf("mqtt connect to %s timed out after %s", l.cfg.BrokerURL, l.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (l *Listener) handleCommand(_ paho.Client, msg paho.Message) {
	code, err := ParseCommandPayload(msg.Payload())
	if err != nil {
		l.logger.Warn("skip invalid command", "topic", msg.Topic(), "error", err)
		return
	}
	l.handler(code)
}

func (l *Listener) Close() {
	if l.client != nil {
		l.client.Disconnect(250)
	}
}
