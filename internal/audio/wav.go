package audio

import (
	"errors"
	"fmt"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"voicebutton/internal/domain"
)

const (
	bitDepth       = 16
	wavFormatPCM   = 1
	sampleMaxValue = 32767
	sampleMinValue = -32768
)

func writeWAV(fs afero.Fs, path string, samples []int16, sampleRate, channels int) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// ReadClip loads a 16-bit PCM WAV artifact back into a RawClip.
func ReadClip(fs afero.Fs, path string) (domain.RawClip, error) {
	f, err := fs.Open(path)
	if err != nil {
		return domain.RawClip{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return domain.RawClip{}, errors.New("not a valid wav file")
	}
	if dec.BitDepth != bitDepth {
		return domain.RawClip{}, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return domain.RawClip{}, fmt.Errorf("decode wav: %w", err)
	}

	clip := domain.RawClip{
		Samples:    make([]int16, len(buf.Data)),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Path:       path,
	}
	for i, v := range buf.Data {
		clip.Samples[i] = int16(v)
	}
	clip.Duration = framesDuration(clip.Frames(), clip.SampleRate)
	return clip, nil
}

func framesDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
