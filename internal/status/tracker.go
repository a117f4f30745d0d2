package status

import (
	"fmt"
	"sync"
	"time"

	"voicebutton/internal/domain"
	"voicebutton/internal/eventbus"
)

const DefaultHistory = 20

type Snapshot struct {
	Language  domain.LanguageMode         `json:"language"`
	StartedAt time.Time                   `json:"started_at"`
	Cycles    int                         `json:"cycles"`
	Outcomes  map[domain.CycleOutcome]int `json:"outcomes"`
	Recent    []domain.CycleReport        `json:"recent"`
}

// Tracker keeps the current language and the most recent cycle reports
// for the debug endpoint. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	language  domain.LanguageMode
	startedAt time.Time
	cycles    int
	outcomes  map[domain.CycleOutcome]int
	recent    []domain.CycleReport
	history   int
}

func NewTracker(language domain.LanguageMode, history int) *Tracker {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Tracker{
		language:  language,
		startedAt: time.Now(),
		outcomes:  make(map[domain.CycleOutcome]int),
		history:   history,
	}
}

func (t *Tracker) Subscribe(bus eventbus.Bus) error {
	if err := bus.Subscribe(eventbus.TopicCycleFinished, t.RecordCycle); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventbus.TopicCycleFinished, err)
	}
	if err := bus.Subscribe(eventbus.TopicLanguageChange, t.SetLanguage); err != nil {
		return fmt.Errorf("subscribe %s: %w", eventbus.TopicLanguageChange, err)
	}
	return nil
}

func (t *Tracker) SetLanguage(mode domain.LanguageMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.language = mode
}

func (t *Tracker) RecordCycle(report domain.CycleReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	t.outcomes[report.Outcome]++
	t.language = report.Language
	t.recent = append(t.recent, report)
	if over := len(t.recent) - t.history; over > 0 {
		t.recent = append([]domain.CycleReport{}, t.recent[over:]...)
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := Snapshot{
		Language:  t.language,
		StartedAt: t.startedAt,
		Cycles:    t.cycles,
		Outcomes:  make(map[domain.CycleOutcome]int, len(t.outcomes)),
		Recent:    make([]domain.CycleReport, len(t.recent)),
	}
	for k, v := range t.outcomes {
		out.Outcomes[k] = v
	}
	copy(out.Recent, t.recent)
	return out
}
