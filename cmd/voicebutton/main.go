package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"voicebutton/internal/audio"
	"voicebutton/internal/audio/portaudio"
	"voicebutton/internal/config"
	"voicebutton/internal/domain"
	"voicebutton/internal/eventbus"
	"voicebutton/internal/gpio"
	"voicebutton/internal/language"
	"voicebutton/internal/mqtt"
	"voicebutton/internal/pipeline"
	"voicebutton/internal/status"
	"voicebutton/internal/stt"
	"voicebutton/internal/vocab"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadDispatcherConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, logger); err != nil {
		logger.Error("voicebutton stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.DispatcherConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := afero.NewOsFs()
	cleaner := audio.NewCleaner(fs, logger)
	if err := cleaner.Prepare(cfg.ArtifactDir); err != nil {
		return err
	}

	table, err := loadVocabulary(fs, cfg.VocabularyFile)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}
	logger.Info("vocabulary loaded", "phrases", table.Len(), "codes", len(table.Codes()))

	toggle, record, closePins, err := openPins(fs, cfg)
	if err != nil {
		return err
	}
	defer closePins()

	monitor, err := gpio.NewMonitor(gpio.MonitorConfig{
		TogglePin:    toggle,
		RecordPin:    record,
		Debounce:     cfg.Debounce,
		PollInterval: cfg.PollInterval,
	}, logger)
	if err != nil {
		return err
	}

	device, err := portaudio.Open()
	if err != nil {
		return err
	}
	defer device.Close()

	capturer, err := audio.NewCapturer(device, fs, audio.CaptureConfig{
		Duration:   cfg.CaptureDuration,
		SampleRate: cfg.CaptureSampleRate,
		Channels:   cfg.CaptureChannels,
	})
	if err != nil {
		return err
	}
	preprocessor, err := audio.NewPreprocessor(fs, audio.PreprocessConfig{
		SampleRate: cfg.ProcessedSampleRate,
		HeadroomDB: audio.DefaultHeadroomDB,
	})
	if err != nil {
		return err
	}

	recognizer, err := stt.NewRecognizer(ctx, stt.Config{
		Provider:              cfg.STTProvider,
		BridgeURL:             cfg.STTBridgeURL,
		HTTPURL:               cfg.STTHTTPURL,
		Timeout:               cfg.STTTimeout,
		GoogleCredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		return fmt.Errorf("init recognizer: %w", err)
	}
	if c, ok := recognizer.(io.Closer); ok {
		defer c.Close()
	}
	transcriber := stt.NewTranscriber(recognizer, stt.TranscriberConfig{
		Locales: map[domain.LanguageMode]string{
			domain.LanguageEN: cfg.LocaleEN,
			domain.LanguageVI: cfg.LocaleVI,
		},
		Timeout: cfg.STTTimeout,
	}, logger)

	statusTopic := cfg.MQTTStatusTopic
	if statusTopic == "" {
		statusTopic = mqtt.TopicStatus(cfg.MQTTClientID)
	}
	dispatcher, err := mqtt.NewDispatcher(mqtt.DispatcherConfig{
		BrokerURL:    cfg.MQTTBrokerURL,
		ClientID:     cfg.MQTTClientID,
		Username:     cfg.MQTTUsername,
		Password:     cfg.MQTTPassword,
		CommandTopic: cfg.MQTTCommandTopic,
		StatusTopic:  statusTopic,
	}, logger)
	if err != nil {
		return err
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("start mqtt dispatcher: %w", err)
	}
	defer dispatcher.Close()

	lang := language.NewState()
	bus := eventbus.New()
	tracker := status.NewTracker(lang.Current(), status.DefaultHistory)
	if err := tracker.Subscribe(bus); err != nil {
		return err
	}

	svc, err := pipeline.New(pipeline.Config{ArtifactDir: cfg.ArtifactDir}, pipeline.Deps{
		Capturer:     capturer,
		Preprocessor: preprocessor,
		Transcriber:  transcriber,
		Resolver:     table,
		Publisher:    dispatcher,
		Cleaner:      cleaner,
		Language:     lang,
		Bus:          bus,
	}, logger)
	if err != nil {
		return err
	}

	var httpServer *http.Server
	if cfg.DebugHTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.DebugHTTPAddr,
			Handler:           newDebugRouter(tracker, monitor, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("debug http started", "addr", cfg.DebugHTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := svc.Run(ctx, monitor)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}
	return runErr
}

func loadVocabulary(fs afero.Fs, path string) (*vocab.Table, error) {
	if path == "" {
		return vocab.Default()
	}
	return vocab.LoadFile(fs, path)
}

func openPins(fs afero.Fs, cfg config.DispatcherConfig) (gpio.Pin, gpio.Pin, func(), error) {
	if cfg.GPIOBackend == "none" {
		return gpio.Released{}, gpio.Released{}, func() {}, nil
	}
	toggle, err := gpio.OpenSysfsPin(fs, cfg.GPIOSysfsRoot, cfg.TogglePin)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open toggle pin: %w", err)
	}
	record, err := gpio.OpenSysfsPin(fs, cfg.GPIOSysfsRoot, cfg.RecordPin)
	if err != nil {
		_ = toggle.Close()
		return nil, nil, nil, fmt.Errorf("open record pin: %w", err)
	}
	return toggle, record, func() {
		_ = toggle.Close()
		_ = record.Close()
	}, nil
}
