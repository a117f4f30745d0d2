// Package portaudio is the cgo microphone backend for audio.Capturer. It
// lives apart so the rest of the audio pipeline builds without libportaudio.
package portaudio

import (
	"errors"
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Device records from the default input device.
type Device struct{}

// Open initializes the PortAudio library. Close terminates it.
func Open() (*Device, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	return &Device{}, nil
}

func (d *Device) Record(frames, sampleRate, channels int) ([]int16, error) {
	in := make([]int16, framesPerBuffer*channels)
	stream, err := pa.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, in)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	want := frames * channels
	out := make([]int16, 0, want)
	for len(out) < want {
		// An overflow only means some frames were dropped by the driver.
		if err := stream.Read(); err != nil && !errors.Is(err, pa.InputOverflowed) {
			_ = stream.Stop()
			return nil, fmt.Errorf("read input stream: %w", err)
		}
		n := min(want-len(out), len(in))
		out = append(out, in[:n]...)
	}

	if err := stream.Stop(); err != nil {
		return nil, fmt.Errorf("stop input stream: %w", err)
	}
	return out, nil
}

func (d *Device) Close() error {
	return pa.Terminate()
}
