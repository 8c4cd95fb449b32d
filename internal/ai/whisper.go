package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/metrics"
)

// WhisperClient transcribes voice audio via an OpenAI-compatible
// /audio/transcriptions endpoint.
type WhisperClient struct {
	apiURL string
	apiKey string
	model  string
	hc     *http.Client
	log    *zap.Logger
}

func NewWhisperClient(apiURL, apiKey, model string, log *zap.Logger) *WhisperClient {
	return &WhisperClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		hc:     &http.Client{Timeout: 90 * time.Second},
		log:    log,
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("response_format", "text")
	_ = mw.WriteField("temperature", "0.5")
	_ = mw.WriteField("language", language)
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("whisper", "error").Inc()
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()
	metrics.AIRequestDuration.WithLabelValues("whisper").Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("whisper", "error").Inc()
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		metrics.AIRequestTotal.WithLabelValues("whisper", "error").Inc()
		c.log.Error("whisper api error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return "", fmt.Errorf("whisper api: status %d", resp.StatusCode)
	}

	metrics.AIRequestTotal.WithLabelValues("whisper", "ok").Inc()
	return strings.TrimSpace(parseTranscription(raw)), nil
}

// parseTranscription accepts either a bare text body or a {"text": ...}
// JSON wrapper, which some providers return regardless of response_format.
func parseTranscription(raw []byte) string {
	var wrapped struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Text != "" {
		return wrapped.Text
	}
	return string(raw)
}
