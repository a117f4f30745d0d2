package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicebutton/internal/domain"
)

const recognizePath = "/v1/asr/recognize"

type httpRecognizeRequest struct {
	Audio      string `json:"audio"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Locale     string `json:"locale"`
}

type httpRecognizeResponse struct {
	Text string `json:"text"`
}

// HTTPRecognizer posts base64 PCM to a self-hosted ASR endpoint.
type HTTPRecognizer struct {
	baseURL string
	http    *http.Client
}

func NewHTTPRecognizer(baseURL string, timeout time.Duration) (*HTTPRecognizer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ASR HTTP URL is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPRecognizer{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPRecognizer) Recognize(ctx context.Context, clip domain.ProcessedClip, locale string) (string, error) {
	body, _ := json.Marshal(httpRecognizeRequest{
		Audio:      base64.StdEncoding.EncodeToString(clip.PCM16LE()),
		Encoding:   "LINEAR16",
		SampleRate: clip.SampleRate,
		Locale:     locale,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recognizePath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("asr status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out httpRecognizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if out.Text == "" {
		return "", ErrNoSpeech
	}
	return out.Text, nil
}
