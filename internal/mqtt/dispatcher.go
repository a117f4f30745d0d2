package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"voicebutton/internal/domain"
)

var (
	ErrInvalidCode = errors.New("command code out of range")
	ErrNotStarted  = errors.New("mqtt dispatcher not started")
)

// Publisher delivers a resolved command code to the actuator controller.
type Publisher interface {
	Dispatch(code domain.CommandCode) error
}

type DispatcherConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	CommandTopic   string
	StatusTopic    string
	ConnectTimeout time.Duration
}

type Dispatcher struct {
	cfg       DispatcherConfig
	client    paho.Client
	newClient func(*paho.ClientOptions) paho.Client
	logger    *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger) (*Dispatcher, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("mqtt broker url is empty")
	}
	if err := ValidateTopic(cfg.CommandTopic); err != nil {
		return nil, fmt.Errorf("command topic: %w", err)
	}
	if cfg.StatusTopic != "" {
		if err := ValidateTopic(cfg.StatusTopic); err != nil {
			return nil, fmt.Errorf("status topic: %w", err)
		}
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:       cfg,
		newClient: paho.NewClient,
		logger:    logger,
	}, nil
}

func (d *Dispatcher) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(d.cfg.BrokerURL).
		SetClientID(d.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if d.cfg.Username != "" {
		opts.SetUsername(d.cfg.Username)
		opts.SetPassword(d.cfg.Password)
	}
	if d.cfg.StatusTopic != "" {
		opts.SetWill(d.cfg.StatusTopic, StatusOffline, 1, true)
	}

	opts.SetOnConnectHandler(func(c paho.Client) {
		d.logger.Info("mqtt connected", "broker", d.cfg.BrokerURL, "topic", d.cfg.CommandTopic)
		if d.cfg.StatusTopic != "" {
			c.Publish(d.cfg.StatusTopic, 1, true, StatusOnline)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		d.logger.Error("mqtt connection lost", "error", err)
	})
	return opts
}

// Start connects to the broker. Reconnects after that are handled by paho.
func (d *Dispatcher) Start() error {
	d.client = d.newClient(d.clientOptions())
	token := d.client.Connect()
	if !token.WaitTimeout(d.cfg.ConnectTimeout) {
		d.client.Disconnect(0)
		return fmt.Errorf("mqtt connect to %s timed out after %s", d.cfg.BrokerURL, d.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Dispatch publishes the code as ASCII digits at QoS 0. It does not wait
// for delivery; only an immediately failed publish is reported.
func (d *Dispatcher) Dispatch(code domain.CommandCode) error {
	msg, err := d.Message(code)
	if err != nil {
		return err
	}
	if d.client == nil {
		return ErrNotStarted
	}
	token := d.client.Publish(msg.Topic, 0, false, msg.Payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// Message builds the command message for code without sending it.
func (d *Dispatcher) Message(code domain.CommandCode) (domain.PublishMessage, error) {
	if !code.Valid() {
		return domain.PublishMessage{}, fmt.Errorf("%w: %d", ErrInvalidCode, code)
	}
	return domain.PublishMessage{Topic: d.cfg.CommandTopic, Payload: code.String()}, nil
}

// Close marks the dispatcher offline and disconnects.
func (d *Dispatcher) Close() {
	if d.client == nil {
		return
	}
	if d.cfg.StatusTopic != "" && d.client.IsConnected() {
		d.client.Publish(d.cfg.StatusTopic, 1, true, StatusOffline).WaitTimeout(time.Second)
	}
	d.client.Disconnect(250)
}
