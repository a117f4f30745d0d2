package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voicebutton/internal/audio"
	"voicebutton/internal/domain"
	"voicebutton/internal/eventbus"
	"voicebutton/internal/language"
	"voicebutton/internal/mqtt"
)

type EventSource interface {
	Next(ctx context.Context) (domain.InputEvent, error)
}

type Capturer interface {
	Capture(ctx context.Context, path string) (domain.RawClip, error)
}

type Preprocessor interface {
	Process(raw domain.RawClip, path string) (domain.ProcessedClip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.ProcessedClip, mode domain.LanguageMode) domain.TranscriptionResult
}

type Resolver interface {
	Resolve(text string) (domain.CommandCode, bool)
}

type Cleaner interface {
	Clean(paths ...string) int
}

type Config struct {
	ArtifactDir string
}

type Deps struct {
	Capturer     Capturer
	Preprocessor Preprocessor
	Transcriber  Transcriber
	Resolver     Resolver
	Publisher    mqtt.Publisher
	Cleaner      Cleaner
	Language     *language.State
	Bus          eventbus.Bus
}

// Service runs one record or toggle cycle at a time on the caller's
// goroutine.
type Service struct {
	artifactDir  string
	capturer     Capturer
	preprocessor Preprocessor
	transcriber  Transcriber
	resolver     Resolver
	publisher    mqtt.Publisher
	cleaner      Cleaner
	language     *language.State
	bus          eventbus.Bus
	newID        func() string
	logger       *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Service, error) {
	switch {
	case deps.Capturer == nil:
		return nil, errors.New("pipeline: capturer is required")
	case deps.Preprocessor == nil:
		return nil, errors.New("pipeline: preprocessor is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Resolver == nil:
		return nil, errors.New("pipeline: resolver is required")
	case deps.Publisher == nil:
		return nil, errors.New("pipeline: publisher is required")
	case deps.Cleaner == nil:
		return nil, errors.New("pipeline: cleaner is required")
	}
	if deps.Language == nil {
		deps.Language = language.NewState()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		artifactDir:  cfg.ArtifactDir,
		capturer:     deps.Capturer,
		preprocessor: deps.Preprocessor,
		transcriber:  deps.Transcriber,
		resolver:     deps.Resolver,
		publisher:    deps.Publisher,
		cleaner:      deps.Cleaner,
		language:     deps.Language,
		bus:          deps.Bus,
		newID:        uuid.NewString,
		logger:       logger,
	}, nil
}

// Run handles events until ctx is done or the source fails.
func (s *Service) Run(ctx context.Context, source EventSource) error {
	s.logger.Info("waiting for button press", "language", s.language.Current().DisplayName())
	for {
		ev, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("next input event: %w", err)
		}
		s.Handle(ctx, ev)
	}
}

func (s *Service) Handle(ctx context.Context, ev domain.InputEvent) {
	switch ev.Kind {
	case domain.EventToggleLanguage:
		s.HandleToggle()
	case domain.EventRecordRequest:
		s.HandleRecord(ctx, s.language.Current())
	default:
		s.logger.Warn("unknown input event", "kind", ev.Kind, "source", ev.Source)
	}
}

func (s *Service) HandleToggle() domain.LanguageMode {
	mode := s.language.Toggle()
	s.logger.Info("language switched", "language", mode.DisplayName(), "locale", mode.Locale())
	if s.bus != nil {
		s.bus.Publish(eventbus.TopicLanguageChange, mode)
	}
	return mode
}

// HandleRecord runs capture through dispatch for one clip. Artifacts are
// removed whatever the outcome.
func (s *Service) HandleRecord(ctx context.Context, mode domain.LanguageMode) (report domain.CycleReport) {
	report = domain.CycleReport{
		ID:        s.newID(),
		Language:  mode,
		StartedAt: time.Now(),
	}
	rawPath := audio.RecordingPath(s.artifactDir, report.ID)
	processedPath := audio.ProcessedPath(s.artifactDir, report.ID)
	defer func() {
		s.cleaner.Clean(rawPath, processedPath)
		report.Duration = time.Since(report.StartedAt)
		s.finish(report)
	}()

	s.logger.Info("recording", "cycle_id", report.ID, "language", mode.DisplayName())
	raw, err := s.capturer.Capture(ctx, rawPath)
	if err != nil {
		report.Outcome = domain.OutcomeCaptureUnavailable
		report.Error = err.Error()
		return report
	}

	processed, err := s.preprocessor.Process(raw, processedPath)
	if err != nil {
		report.Outcome = domain.OutcomePreprocessFailed
		report.Error = err.Error()
		return report
	}

	result := s.transcriber.Transcribe(ctx, processed, mode)
	switch result.Kind {
	case domain.TranscriptionUnintelligible:
		report.Outcome = domain.OutcomeUnintelligible
		return report
	case domain.TranscriptionServiceError:
		report.Outcome = domain.OutcomeServiceError
		report.Error = result.Reason
		return report
	}
	report.Text = result.Text

	code, ok := s.resolver.Resolve(result.Text)
	if !ok {
		report.Outcome = domain.OutcomeUnresolved
		return report
	}
	report.Code = &code

	if err := s.publisher.Dispatch(code); err != nil {
		report.Outcome = domain.OutcomePublishFailed
		report.Error = err.Error()
		return report
	}
	report.Outcome = domain.OutcomePublished
	return report
}

func (s *Service) finish(report domain.CycleReport) {
	attrs := []any{
		"cycle_id", report.ID,
		"outcome", report.Outcome,
		"duration", report.Duration,
	}
	if report.Text != "" {
		attrs = append(attrs, "text", report.Text)
	}
	if report.Code != nil {
		attrs = append(attrs, "code", int(*report.Code))
	}
	if report.Error != "" {
		attrs = append(attrs, "error", report.Error)
	}

	switch report.Outcome {
	case domain.OutcomePublished:
		s.logger.Info("command sent", attrs...)
	case domain.OutcomeUnintelligible, domain.OutcomeUnresolved:
		s.logger.Info("no command recognized", attrs...)
	default:
		s.logger.Warn("cycle failed", attrs...)
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.TopicCycleFinished, report)
	}
}
