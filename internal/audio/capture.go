package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"voicebutton/internal/domain"
)

var ErrCaptureUnavailable = errors.New("capture device unavailable")

// Device records interleaved int16 frames. Record blocks for the whole
// clip; a recording cannot be interrupted once started.
type Device interface {
	Record(frames, sampleRate, channels int) ([]int16, error)
}

type CaptureConfig struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Duration:   5 * time.Second,
		SampleRate: 44100,
		Channels:   2,
	}
}

type Capturer struct {
	device Device
	fs     afero.Fs
	cfg    CaptureConfig
}

func NewCapturer(device Device, fs afero.Fs, cfg CaptureConfig) (*Capturer, error) {
	if device == nil {
		return nil, errors.New("capture device is required")
	}
	if cfg.Duration <= 0 || cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("invalid capture config: %+v", cfg)
	}
	return &Capturer{device: device, fs: fs, cfg: cfg}, nil
}

// Capture records one clip and writes it to path as a WAV file. On device
// failure nothing is written.
func (c *Capturer) Capture(ctx context.Context, path string) (domain.RawClip, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawClip{}, err
	}

	frames := int(c.cfg.Duration * time.Duration(c.cfg.SampleRate) / time.Second)
	samples, err := c.device.Record(frames, c.cfg.SampleRate, c.cfg.Channels)
	if err != nil {
		return domain.RawClip{}, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	if len(samples) != frames*c.cfg.Channels {
		return domain.RawClip{}, fmt.Errorf("%w: got %d samples, want %d", ErrCaptureUnavailable, len(samples), frames*c.cfg.Channels)
	}

	if err := writeWAV(c.fs, path, samples, c.cfg.SampleRate, c.cfg.Channels); err != nil {
		return domain.RawClip{}, fmt.Errorf("write raw clip %s: %w", path, err)
	}

	return domain.RawClip{
		Samples:    samples,
		SampleRate: c.cfg.SampleRate,
		Channels:   c.cfg.Channels,
		Duration:   framesDuration(frames, c.cfg.SampleRate),
		Path:       path,
	}, nil
}
