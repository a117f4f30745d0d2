package domain

import (
	"encoding/binary"
	"strconv"
	"time"
)

type EventKind string

const (
	EventToggleLanguage EventKind = "toggle_language"
	EventRecordRequest  EventKind = "record_request"
)

type InputEvent struct {
	Kind   EventKind
	Source string
	At     time.Time
}

type LanguageMode string

const (
	LanguageEN LanguageMode = "en"
	LanguageVI LanguageMode = "vi"
)

func (m LanguageMode) Other() LanguageMode {
	if m == LanguageVI {
		return LanguageEN
	}
	return LanguageVI
}

// Locale is the default BCP-47 identifier handed to recognizers.
func (m LanguageMode) Locale() string {
	if m == LanguageVI {
		return "vi-VN"
	}
	return "en-US"
}

func (m LanguageMode) DisplayName() string {
	if m == LanguageVI {
		return "Vietnamese"
	}
	return "English"
}

// RawClip holds interleaved int16 samples exactly as captured.
type RawClip struct {
	Samples    []int16
	SampleRate int
	Channels   int
	Duration   time.Duration
	Path       string
}

func (c RawClip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

type ProcessedClip struct {
	Samples    []int16
	SampleRate int
	Duration   time.Duration
	Peak       int16
	Path       string
}

func (c ProcessedClip) PCM16LE() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

type TranscriptionKind string

const (
	TranscriptionRecognized     TranscriptionKind = "recognized"
	TranscriptionUnintelligible TranscriptionKind = "unintelligible"
	TranscriptionServiceError   TranscriptionKind = "service_error"
)

type TranscriptionResult struct {
	Kind   TranscriptionKind
	Text   string
	Reason string
}

func Recognized(text string) TranscriptionResult {
	return TranscriptionResult{Kind: TranscriptionRecognized, Text: text}
}

func Unintelligible() TranscriptionResult {
	return TranscriptionResult{Kind: TranscriptionUnintelligible}
}

func ServiceError(reason string) TranscriptionResult {
	return TranscriptionResult{Kind: TranscriptionServiceError, Reason: reason}
}

const (
	MinCommandCode CommandCode = 0
	MaxCommandCode CommandCode = 43
)

type CommandCode int

func (c CommandCode) Valid() bool {
	return c >= MinCommandCode && c <= MaxCommandCode
}

// String is the wire form: plain decimal digits.
func (c CommandCode) String() string {
	return strconv.Itoa(int(c))
}

type CommandEntry struct {
	Phrase   string       `yaml:"phrase" json:"phrase"`
	Code     CommandCode  `yaml:"code" json:"code"`
	Language LanguageMode `yaml:"language" json:"language"`
}

// PublishMessage is one command as it goes on the wire.
type PublishMessage struct {
	Topic   string
	Payload string
}

type CycleOutcome string

const (
	OutcomePublished          CycleOutcome = "published"
	OutcomeCaptureUnavailable CycleOutcome = "capture_unavailable"
	OutcomePreprocessFailed   CycleOutcome = "preprocess_failed"
	OutcomeUnintelligible     CycleOutcome = "unintelligible"
	OutcomeServiceError       CycleOutcome = "service_error"
	OutcomeUnresolved         CycleOutcome = "unresolved"
	OutcomePublishFailed      CycleOutcome = "publish_failed"
)

type CycleReport struct {
	ID        string        `json:"id"`
	Language  LanguageMode  `json:"language"`
	Outcome   CycleOutcome  `json:"outcome"`
	Text      string        `json:"text,omitempty"`
	Code      *CommandCode  `json:"code,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
