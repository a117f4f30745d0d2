package stt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voicebutton/internal/domain"
)

type TranscriberConfig struct {
	Locales map[domain.LanguageMode]string
	Timeout time.Duration
}

// Transcriber turns recognizer outcomes into TranscriptionResult values.
// It never retries.
type Transcriber struct {
	recognizer Recognizer
	locales    map[domain.LanguageMode]string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewTranscriber(recognizer Recognizer, cfg TranscriberConfig, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	locales := map[domain.LanguageMode]string{
		domain.LanguageEN: domain.LanguageEN.Locale(),
		domain.LanguageVI: domain.LanguageVI.Locale(),
	}
	for mode, locale := range cfg.Locales {
		if strings.TrimSpace(locale) != "" {
			locales[mode] = locale
		}
	}
	return &Transcriber{
		recognizer: recognizer,
		locales:    locales,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

func (t *Transcriber) Locale(mode domain.LanguageMode) string {
	if locale, ok := t.locales[mode]; ok {
		return locale
	}
	return mode.Locale()
}

func (t *Transcriber) Transcribe(ctx context.Context, clip domain.ProcessedClip, mode domain.LanguageMode) domain.TranscriptionResult {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	locale := t.Locale(mode)
	text, err := t.recognizer.Recognize(ctx, clip, locale)
	switch {
	case errors.Is(err, ErrNoSpeech):
		return domain.Unintelligible()
	case err != nil:
		t.logger.Warn("recognizer failed", "locale", locale, "error", err)
		return domain.ServiceError(err.Error())
	case strings.TrimSpace(text) == "":
		return domain.Unintelligible()
	}
	return domain.Recognized(domain.FoldCase(text))
}
