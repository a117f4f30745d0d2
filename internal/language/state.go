package language

import "voicebutton/internal/domain"

// State holds the active recognition language. It is owned by the control
// loop; readers on other goroutines go through status.Tracker instead.
type State struct {
	mode domain.LanguageMode
}

func NewState() *State {
	return &State{mode: domain.LanguageEN}
}

func (s *State) Current() domain.LanguageMode {
	return s.mode
}

func (s *State) Toggle() domain.LanguageMode {
	s.mode = s.mode.Other()
	return s.mode
}
