package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"voicebutton/internal/config"
	"voicebutton/internal/domain"
	"voicebutton/internal/mqtt"
	"voicebutton/internal/vocab"
)

const maxLogLines = 200

type receivedCommand struct {
	Code    domain.CommandCode `json:"code"`
	Phrases []string           `json:"phrases"`
	At      time.Time          `json:"at"`
}

// controllerState mimics the ESP32: it remembers what it was told to do.
type controllerState struct {
	mu       sync.RWMutex
	table    *vocab.Table
	counts   map[domain.CommandCode]int
	received []receivedCommand
}

func newControllerState(table *vocab.Table) *controllerState {
	return &controllerState{
		table:  table,
		counts: make(map[domain.CommandCode]int),
	}
}

func (s *controllerState) apply(code domain.CommandCode) receivedCommand {
	cmd := receivedCommand{Code: code, Phrases: s.table.Phrases(code), At: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[code]++
	s.received = append(s.received, cmd)
	if len(s.received) > maxLogLines {
		s.received = s.received[len(s.received)-maxLogLines:]
	}
	return cmd
}

func (s *controllerState) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.counts))
	for code, n := range s.counts {
		counts[code.String()] = n
	}
	return map[string]any{
		"counts":   counts,
		"received": append([]receivedCommand{}, s.received...),
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadSimulatorConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	table, err := vocab.Default()
	if cfg.VocabularyFile != "" {
		table, err = vocab.LoadFile(afero.NewOsFs(), cfg.VocabularyFile)
	}
	if err != nil {
		logger.Error("load vocabulary failed", "error", err)
		os.Exit(1)
	}

	state := newControllerState(table)
	listener, err := mqtt.NewListener(mqtt.ListenerConfig{
		BrokerURL:    cfg.MQTTBrokerURL,
		ClientID:     cfg.MQTTClientID,
		Username:     cfg.MQTTUsername,
		Password:     cfg.MQTTPassword,
		CommandTopic: cfg.MQTTCommandTopic,
	}, func(code domain.CommandCode) {
		cmd := state.apply(code)
		logger.Info("command received", "code", int(code), "phrases", cmd.Phrases)
	}, logger)
	if err != nil {
		logger.Error("init listener failed", "error", err)
		os.Exit(1)
	}
	if err := listener.Start(); err != nil {
		logger.Error("start listener failed", "error", err)
		os.Exit(1)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(state),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("actuator simulator started", "addr", cfg.HTTPAddr, "topic", cfg.MQTTCommandTopic)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

func newRouter(state *controllerState) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, state.snapshot())
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
