package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voicebutton/internal/domain"
)

// bridgeChunkBytes is 100 ms of 16 kHz mono PCM16.
const bridgeChunkBytes = 3200

// BridgeResult is one message from the ASR bridge.
type BridgeResult struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error,omitempty"`
}

// BridgeRecognizer streams a clip to a WebSocket ASR bridge, flushes, and
// waits for the final result.
type BridgeRecognizer struct {
	baseURL *url.URL
	dialer  *websocket.Dialer
}

func NewBridgeRecognizer(baseURL string) (*BridgeRecognizer, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ASR bridge URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ASR bridge URL: %w", err)
	}
	return &BridgeRecognizer{baseURL: u, dialer: websocket.DefaultDialer}, nil
}

func (r *BridgeRecognizer) Recognize(ctx context.Context, clip domain.ProcessedClip, locale string) (string, error) {
	u := *r.baseURL
	q := u.Query()
	q.Set("session_id", uuid.NewString())
	q.Set("locale", locale)
	q.Set("sample_rate", strconv.Itoa(clip.SampleRate))
	u.RawQuery = q.Encode()

	conn, _, err := r.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("connect ASR bridge: %w", err)
	}
	defer closeBridge(conn)

	// Unblocks ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	pcm := clip.PCM16LE()
	for start := 0; start < len(pcm); start += bridgeChunkBytes {
		end := min(start+bridgeChunkBytes, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[start:end]); err != nil {
			return "", bridgeErr(ctx, "push audio", err)
		}
	}
	if err := conn.WriteJSON(map[string]string{"event": "flush"}); err != nil {
		return "", bridgeErr(ctx, "flush", err)
	}

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return "", bridgeErr(ctx, "read result", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var result BridgeResult
		if err := json.Unmarshal(payload, &result); err != nil {
			continue
		}
		if result.Error != "" {
			return "", fmt.Errorf("ASR bridge error: %s", result.Error)
		}
		if !result.IsFinal {
			continue
		}
		if result.Text == "" {
			return "", ErrNoSpeech
		}
		return result.Text, nil
	}
}

func bridgeErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ASR bridge %s: %w", op, ctxErr)
	}
	return fmt.Errorf("ASR bridge %s: %w", op, err)
}

// closeBridge says goodbye with a normal close frame. The write fails
// harmlessly when the context watcher already closed the connection.
func closeBridge(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()
}
