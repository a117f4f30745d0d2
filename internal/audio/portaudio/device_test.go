package portaudio

import (
	"voicebutton/internal/audio"
)

var _ audio.Device = &Device{}
