package eventbus

import (
	EventBus "github.com/asaskevich/EventBus"
)

const (
	TopicCycleFinished  = "cycle_finished"   // domain.CycleReport
	TopicLanguageChange = "language_changed" // domain.LanguageMode
)

type Bus = EventBus.Bus

func New() Bus {
	return EventBus.New()
}
