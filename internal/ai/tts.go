package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/metrics"
)

// TTSClient renders text to MP3 via the ElevenLabs text-to-speech API.
type TTSClient struct {
	baseURL string
	apiKey  string
	model   string
	voiceID string
	hc      *http.Client
	log     *zap.Logger
}

func NewTTSClient(baseURL, apiKey, model, voiceID string, log *zap.Logger) *TTSClient {
	return &TTSClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		voiceID: voiceID,
		hc:      &http.Client{Timeout: 90 * time.Second},
		log:     log,
	}
}

// Enabled reports whether the client is configured with an API key.
func (c *TTSClient) Enabled() bool { return c.apiKey != "" }

type ttsRequest struct {
	Text          string      `json:"text"`
	ModelID       string      `json:"model_id"`
	LanguageCode  string      `json:"language_code"`
	VoiceSettings ttsSettings `json:"voice_settings"`
}

type ttsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
}

func (c *TTSClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	start := time.Now()

	payload, err := json.Marshal(ttsRequest{
		Text:         text,
		ModelID:      c.model,
		LanguageCode: language,
		VoiceSettings: ttsSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           1,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?output_format=mp3_44100_128", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("tts", "error").Inc()
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()
	metrics.AIRequestDuration.WithLabelValues("tts").Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("tts", "error").Inc()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		metrics.AIRequestTotal.WithLabelValues("tts", "error").Inc()
		c.log.Error("tts api error", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("tts api: status %d", resp.StatusCode)
	}

	metrics.AIRequestTotal.WithLabelValues("tts", "ok").Inc()
	c.log.Debug("tts synthesis complete", zap.Int("bytes", len(raw)))
	return raw, nil
}
