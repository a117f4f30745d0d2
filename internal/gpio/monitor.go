package gpio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicebutton/internal/domain"
)

const (
	DefaultDebounce     = 200 * time.Millisecond
	DefaultPollInterval = 10 * time.Millisecond
)

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type MonitorConfig struct {
	TogglePin    Pin
	RecordPin    Pin
	Debounce     time.Duration
	PollInterval time.Duration
	Clock        Clock
}

// Monitor turns two polled buttons into discrete events. After every
// emitted event it waits out the debounce window before polling again, so
// contact bounce and a held button inside that window produce nothing.
type Monitor struct {
	toggle       Pin
	record       Pin
	debounce     time.Duration
	pollInterval time.Duration
	clock        Clock
	logger       *slog.Logger

	injected  chan domain.InputEvent
	settle    bool
	pinFaults map[string]bool
}

func NewMonitor(cfg MonitorConfig, logger *slog.Logger) (*Monitor, error) {
	if cfg.TogglePin == nil || cfg.RecordPin == nil {
		return nil, errors.New("toggle and record pins are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		toggle:       cfg.TogglePin,
		record:       cfg.RecordPin,
		debounce:     cfg.Debounce,
		pollInterval: cfg.PollInterval,
		clock:        cfg.Clock,
		logger:       logger,
		injected:     make(chan domain.InputEvent, 1),
		pinFaults:    make(map[string]bool),
	}, nil
}

// Next blocks until a button is pressed or ctx is done.
func (m *Monitor) Next(ctx context.Context) (domain.InputEvent, error) {
	if m.settle {
		if err := m.clock.Sleep(ctx, m.debounce); err != nil {
			return domain.InputEvent{}, err
		}
		m.settle = false
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.InputEvent{}, err
		}

		select {
		case ev := <-m.injected:
			return m.emit(ev), nil
		default:
		}

		if m.pressed("toggle", m.toggle) {
			return m.emit(domain.InputEvent{Kind: domain.EventToggleLanguage, Source: "gpio"}), nil
		}
		if m.pressed("record", m.record) {
			return m.emit(domain.InputEvent{Kind: domain.EventRecordRequest, Source: "gpio"}), nil
		}

		if err := m.clock.Sleep(ctx, m.pollInterval); err != nil {
			return domain.InputEvent{}, err
		}
	}
}

// Inject queues a virtual press. It never blocks; a press arriving while
// another is still queued is dropped.
func (m *Monitor) Inject(kind domain.EventKind, source string) bool {
	select {
	case m.injected <- domain.InputEvent{Kind: kind, Source: source}:
		return true
	default:
		return false
	}
}

func (m *Monitor) emit(ev domain.InputEvent) domain.InputEvent {
	ev.At = m.clock.Now()
	m.settle = true
	return ev
}

func (m *Monitor) pressed(name string, pin Pin) bool {
	low, err := pin.Low()
	if err != nil {
		if !m.pinFaults[name] {
			m.logger.Warn("read pin failed", "pin", name, "error", err)
			m.pinFaults[name] = true
		}
		return false
	}
	if m.pinFaults[name] {
		m.logger.Info("pin readable again", "pin", name)
		m.pinFaults[name] = false
	}
	return low
}
