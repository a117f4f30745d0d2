package audio

import (
	"errors"
	"fmt"
	"math"

	"github.com/gopxl/beep"
	"github.com/spf13/afero"

	"voicebutton/internal/domain"
)

const (
	DefaultProcessedSampleRate = 16000
	// DefaultHeadroomDB matches pydub's normalize() default.
	DefaultHeadroomDB = 0.1

	resampleQuality = 4
	streamChunk     = 512
)

type PreprocessConfig struct {
	SampleRate int
	HeadroomDB float64
}

func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		SampleRate: DefaultProcessedSampleRate,
		HeadroomDB: DefaultHeadroomDB,
	}
}

// Preprocessor turns a captured clip into mono 16-bit PCM at the
// recognizer rate, peak normalized to the configured ceiling.
type Preprocessor struct {
	fs  afero.Fs
	cfg PreprocessConfig
}

func NewPreprocessor(fs afero.Fs, cfg PreprocessConfig) (*Preprocessor, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid processed sample rate %d", cfg.SampleRate)
	}
	if cfg.HeadroomDB < 0 {
		return nil, fmt.Errorf("invalid headroom %.2f dB", cfg.HeadroomDB)
	}
	return &Preprocessor{fs: fs, cfg: cfg}, nil
}

// Process writes the processed clip to path. A raw clip without samples
// is reloaded from its artifact.
func (p *Preprocessor) Process(raw domain.RawClip, path string) (domain.ProcessedClip, error) {
	if len(raw.Samples) == 0 && raw.Path != "" {
		loaded, err := ReadClip(p.fs, raw.Path)
		if err != nil {
			return domain.ProcessedClip{}, fmt.Errorf("load raw clip %s: %w", raw.Path, err)
		}
		raw = loaded
	}
	if raw.Channels <= 0 || raw.SampleRate <= 0 {
		return domain.ProcessedClip{}, fmt.Errorf("invalid raw clip format: rate=%d channels=%d", raw.SampleRate, raw.Channels)
	}
	if raw.Frames() == 0 {
		return domain.ProcessedClip{}, errors.New("raw clip is empty")
	}

	mono := downmix(raw.Samples, raw.Channels)
	mono = resample(mono, raw.SampleRate, p.cfg.SampleRate)
	samples, peak := normalize(mono, p.cfg.HeadroomDB)

	if err := writeWAV(p.fs, path, samples, p.cfg.SampleRate, 1); err != nil {
		return domain.ProcessedClip{}, fmt.Errorf("write processed clip %s: %w", path, err)
	}

	return domain.ProcessedClip{
		Samples:    samples,
		SampleRate: p.cfg.SampleRate,
		Duration:   framesDuration(len(samples), p.cfg.SampleRate),
		Peak:       peak,
		Path:       path,
	}, nil
}

func downmix(samples []int16, channels int) []float64 {
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[i*channels+c])
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// monoStreamer feeds a mono buffer into beep, duplicated on both sides.
type monoStreamer struct {
	data []float64
	pos  int
}

func (s *monoStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	n := 0
	for n < len(samples) && s.pos < len(s.data) {
		v := s.data[s.pos]
		samples[n] = [2]float64{v, v}
		s.pos++
		n++
	}
	return n, true
}

func (s *monoStreamer) Err() error {
	return nil
}

func resample(mono []float64, from, to int) []float64 {
	if from == to {
		return mono
	}
	r := beep.Resample(resampleQuality, beep.SampleRate(from), beep.SampleRate(to), &monoStreamer{data: mono})

	out := make([]float64, 0, len(mono)*to/from+streamChunk)
	buf := make([][2]float64, streamChunk)
	for {
		n, ok := r.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, frame[0])
		}
		if !ok || n == 0 {
			break
		}
	}
	return out
}

// normalize scales so the loudest sample sits headroomDB below full scale.
func normalize(mono []float64, headroomDB float64) ([]int16, int16) {
	var peak float64
	for _, v := range mono {
		peak = math.Max(peak, math.Abs(v))
	}

	out := make([]int16, len(mono))
	if peak == 0 {
		return out, 0
	}

	ceiling := sampleMaxValue * math.Pow(10, -headroomDB/20)
	gain := ceiling / peak

	var outPeak int16
	for i, v := range mono {
		s := clamp(math.Round(v * gain))
		out[i] = s
		if a := abs16(s); a > outPeak {
			outPeak = a
		}
	}
	return out, outPeak
}

func clamp(v float64) int16 {
	switch {
	case v > sampleMaxValue:
		return sampleMaxValue
	case v < sampleMinValue:
		return sampleMinValue
	default:
		return int16(v)
	}
}

func abs16(v int16) int16 {
	if v == sampleMinValue {
		return sampleMaxValue
	}
	if v < 0 {
		return -v
	}
	return v
}
