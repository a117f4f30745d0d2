package gpio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebutton/internal/domain"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	limit  time.Time
}

func newFakeClock() *fakeClock {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &fakeClock{now: start, limit: start.Add(10 * time.Second)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.now.After(c.limit) {
		return context.DeadlineExceeded
	}
	return nil
}

func (c *fakeClock) elapsed() time.Duration {
	return c.now.Sub(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
}

// timedPin is held low during the given windows, measured from clock start.
type timedPin struct {
	clock   *fakeClock
	windows [][2]time.Duration
	reads   int
}

func (p *timedPin) Low() (bool, error) {
	p.reads++
	at := p.clock.elapsed()
	for _, w := range p.windows {
		if at >= w[0] && at < w[1] {
			return true, nil
		}
	}
	return false, nil
}

type brokenPin struct{}

func (brokenPin) Low() (bool, error) { return false, errors.New("bus error") }

func newTestMonitor(t *testing.T, clock *fakeClock, toggle, record Pin) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorConfig{
		TogglePin:    toggle,
		RecordPin:    record,
		Debounce:     200 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Clock:        clock,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m
}

func collect(t *testing.T, m *Monitor) []domain.InputEvent {
	t.Helper()
	var out []domain.InputEvent
	for {
		ev, err := m.Next(context.Background())
		if err != nil {
			require.ErrorIs(t, err, context.DeadlineExceeded)
			return out
		}
		out = append(out, ev)
	}
}

func TestMonitorEmitsToggleOnLow(t *testing.T) {
	clock := newFakeClock()
	toggle := &timedPin{clock: clock, windows: [][2]time.Duration{{0, 50 * time.Millisecond}}}
	m := newTestMonitor(t, clock, toggle, Released{})

	ev, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EventToggleLanguage, ev.Kind)
	assert.Equal(t, "gpio", ev.Source)
	assert.Equal(t, clock.now, ev.At)
}

func TestMonitorIgnoresHighInputs(t *testing.T) {
	clock := newFakeClock()
	clock.limit = clock.now.Add(time.Second)
	m := newTestMonitor(t, clock, Released{}, Released{})

	assert.Empty(t, collect(t, m))
}

func TestMonitorDebouncesHeldButton(t *testing.T) {
	clock := newFakeClock()
	clock.limit = clock.now.Add(150 * time.Millisecond)
	// Held low for the whole run: only the first read counts.
	toggle := &timedPin{clock: clock, windows: [][2]time.Duration{{0, time.Hour}}}
	m := newTestMonitor(t, clock, toggle, Released{})

	events := collect(t, m)
	require.Len(t, events, 1)
	assert.Equal(t, 1, toggle.reads)
}

func TestMonitorTwoQuickPressesCountOnce(t *testing.T) {
	clock := newFakeClock()
	toggle := &timedPin{clock: clock, windows: [][2]time.Duration{
		{0, 30 * time.Millisecond},
		{120 * time.Millisecond, 150 * time.Millisecond},
	}}
	m := newTestMonitor(t, clock, toggle, Released{})

	events := collect(t, m)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventToggleLanguage, events[0].Kind)
}

func TestMonitorSeparatePressesBothCount(t *testing.T) {
	clock := newFakeClock()
	toggle := &timedPin{clock: clock, windows: [][2]time.Duration{
		{0, 30 * time.Millisecond},
		{500 * time.Millisecond, 550 * time.Millisecond},
	}}
	m := newTestMonitor(t, clock, toggle, Released{})

	events := collect(t, m)
	assert.Len(t, events, 2)
}

func TestMonitorWaitsDebounceBeforeNextPoll(t *testing.T) {
	clock := newFakeClock()
	record := &timedPin{clock: clock, windows: [][2]time.Duration{{0, 10 * time.Millisecond}}}
	m := newTestMonitor(t, clock, Released{}, record)

	ev, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EventRecordRequest, ev.Kind)
	assert.Empty(t, clock.sleeps)

	clock.limit = clock.now.Add(300 * time.Millisecond)
	_, err = m.Next(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, clock.sleeps)
	assert.Equal(t, 200*time.Millisecond, clock.sleeps[0])
}

func TestMonitorTogglePolledBeforeRecord(t *testing.T) {
	clock := newFakeClock()
	both := [][2]time.Duration{{0, 10 * time.Millisecond}}
	m := newTestMonitor(t, clock, &timedPin{clock: clock, windows: both}, &timedPin{clock: clock, windows: both})

	ev, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EventToggleLanguage, ev.Kind)
}

func TestMonitorInject(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, clock, Released{}, Released{})

	require.True(t, m.Inject(domain.EventRecordRequest, "http"))
	assert.False(t, m.Inject(domain.EventToggleLanguage, "http"), "second press while queued is dropped")

	ev, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.EventRecordRequest, ev.Kind)
	assert.Equal(t, "http", ev.Source)

	clock.limit = clock.now.Add(time.Second)
	assert.Empty(t, collect(t, m))
}

func TestMonitorTreatsPinErrorAsReleased(t *testing.T) {
	clock := newFakeClock()
	clock.limit = clock.now.Add(100 * time.Millisecond)
	m := newTestMonitor(t, clock, brokenPin{}, Released{})

	assert.Empty(t, collect(t, m))
}

func TestMonitorStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(t, clock, Released{}, Released{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewMonitorRequiresPins(t *testing.T) {
	_, err := NewMonitor(MonitorConfig{TogglePin: Released{}}, slog.Default())
	require.Error(t, err)
}
