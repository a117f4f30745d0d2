package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voicebutton/internal/domain"
)

// ErrNoSpeech means the service answered but heard nothing usable.
var ErrNoSpeech = errors.New("no speech recognized")

type Recognizer interface {
	Recognize(ctx context.Context, clip domain.ProcessedClip, locale string) (string, error)
}

type Config struct {
	Provider              string
	BridgeURL             string
	HTTPURL               string
	Timeout               time.Duration
	GoogleCredentialsFile string
}

func NewRecognizer(ctx context.Context, cfg Config) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "google":
		r, err := NewGoogleRecognizer(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "bridge":
		r, err := NewBridgeRecognizer(cfg.BridgeURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "http":
		r, err := NewHTTPRecognizer(cfg.HTTPURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s", cfg.Provider)
	}
}
