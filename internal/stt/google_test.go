package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebutton/internal/domain"
)

func alternative(text string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
	}
}

func TestGoogleRecognizerRequest(t *testing.T) {
	var got *speechpb.RecognizeRequest
	g := &GoogleRecognizer{recognize: func(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{alternative("tắt quạt")}}, nil
	}}

	clip := domain.ProcessedClip{Samples: []int16{5, -5}, SampleRate: 16000}
	text, err := g.Recognize(context.Background(), clip, "vi-VN")
	require.NoError(t, err)
	assert.Equal(t, "tắt quạt", text)

	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, got.GetConfig().GetEncoding())
	assert.Equal(t, int32(16000), got.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "vi-VN", got.GetConfig().GetLanguageCode())
	assert.Equal(t, clip.PCM16LE(), got.GetAudio().GetContent())
}

func TestGoogleRecognizerJoinsSegments(t *testing.T) {
	g := &GoogleRecognizer{recognize: func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			alternative("turn off"),
			{},
			alternative("all the fan"),
		}}, nil
	}}
	text, err := g.Recognize(context.Background(), domain.ProcessedClip{SampleRate: 16000}, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "turn off all the fan", text)
}

func TestGoogleRecognizerNoResults(t *testing.T) {
	g := &GoogleRecognizer{recognize: func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{}, nil
	}}
	_, err := g.Recognize(context.Background(), domain.ProcessedClip{SampleRate: 16000}, "en-US")
	require.ErrorIs(t, err, ErrNoSpeech)
	assert.NoError(t, g.Close())
}

func TestGoogleRecognizerServiceError(t *testing.T) {
	g := &GoogleRecognizer{recognize: func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("PermissionDenied")
	}}
	_, err := g.Recognize(context.Background(), domain.ProcessedClip{SampleRate: 16000}, "en-US")
	require.ErrorContains(t, err, "PermissionDenied")
	assert.NotErrorIs(t, err, ErrNoSpeech)
}
