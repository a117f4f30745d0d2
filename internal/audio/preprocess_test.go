package audio

import (
	"math"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebutton/internal/domain"
)

func sineClip(rate, channels int, seconds float64, amplitude float64) domain.RawClip {
	frames := int(float64(rate) * seconds)
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = v
		}
	}
	return domain.RawClip{Samples: samples, SampleRate: rate, Channels: channels}
}

func newTestPreprocessor(t *testing.T, fs afero.Fs) *Preprocessor {
	t.Helper()
	p, err := NewPreprocessor(fs, DefaultPreprocessConfig())
	require.NoError(t, err)
	return p
}

func TestProcessResamplesAndNormalizes(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newTestPreprocessor(t, fs)

	out, err := p.Process(sineClip(44100, 2, 1, 3000), "/tmp/processed-a.wav")
	require.NoError(t, err)

	assert.Equal(t, 16000, out.SampleRate)
	assert.InDelta(t, 16000, len(out.Samples), 64)
	assert.InDelta(t, time.Second, out.Duration, float64(5*time.Millisecond))

	ceiling := 32767 * math.Pow(10, -0.1/20)
	assert.InDelta(t, ceiling, float64(out.Peak), 1)
	for _, s := range out.Samples {
		require.LessOrEqual(t, math.Abs(float64(s)), math.Round(ceiling))
	}

	onDisk, err := ReadClip(fs, "/tmp/processed-a.wav")
	require.NoError(t, err)
	assert.Equal(t, 16000, onDisk.SampleRate)
	assert.Equal(t, 1, onDisk.Channels)
	assert.Equal(t, out.Samples, onDisk.Samples)
}

func TestProcessSilenceStaysSilent(t *testing.T) {
	p := newTestPreprocessor(t, afero.NewMemMapFs())

	out, err := p.Process(sineClip(44100, 2, 0.5, 0), "/tmp/processed-b.wav")
	require.NoError(t, err)
	assert.Zero(t, out.Peak)
	for _, s := range out.Samples {
		require.Zero(t, s)
	}
}

func TestProcessDownmixAveragesChannels(t *testing.T) {
	p := newTestPreprocessor(t, afero.NewMemMapFs())

	// Opposite-phase channels cancel out.
	raw := domain.RawClip{SampleRate: 16000, Channels: 2, Samples: make([]int16, 3200)}
	for i := 0; i < len(raw.Samples); i += 2 {
		raw.Samples[i] = 1000
		raw.Samples[i+1] = -1000
	}
	out, err := p.Process(raw, "/tmp/processed-c.wav")
	require.NoError(t, err)
	assert.Len(t, out.Samples, 1600)
	assert.Zero(t, out.Peak)
}

func TestProcessSameRateKeepsLength(t *testing.T) {
	p := newTestPreprocessor(t, afero.NewMemMapFs())

	out, err := p.Process(sineClip(16000, 1, 0.25, 100), "/tmp/processed-d.wav")
	require.NoError(t, err)
	assert.Len(t, out.Samples, 4000)
	assert.InDelta(t, 32392, float64(out.Peak), 1)
}

func TestProcessIsDeterministic(t *testing.T) {
	p := newTestPreprocessor(t, afero.NewMemMapFs())
	raw := sineClip(44100, 2, 0.5, 12000)

	first, err := p.Process(raw, "/tmp/processed-e.wav")
	require.NoError(t, err)
	second, err := p.Process(raw, "/tmp/processed-e.wav")
	require.NoError(t, err)
	assert.Equal(t, first.Samples, second.Samples)
}

func TestProcessReloadsFromArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := sineClip(16000, 2, 0.1, 500)
	require.NoError(t, writeWAV(fs, "/tmp/recording-f.wav", raw.Samples, raw.SampleRate, raw.Channels))

	p := newTestPreprocessor(t, fs)
	out, err := p.Process(domain.RawClip{Path: "/tmp/recording-f.wav"}, "/tmp/processed-f.wav")
	require.NoError(t, err)
	assert.Len(t, out.Samples, 1600)
}

func TestProcessRejectsEmptyClip(t *testing.T) {
	p := newTestPreprocessor(t, afero.NewMemMapFs())

	_, err := p.Process(domain.RawClip{SampleRate: 44100, Channels: 2}, "/tmp/processed-g.wav")
	require.Error(t, err)

	_, err = p.Process(domain.RawClip{Path: "/tmp/missing.wav"}, "/tmp/processed-g.wav")
	require.Error(t, err)
}
