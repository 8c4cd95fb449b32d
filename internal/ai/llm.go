package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/metrics"
)

const analyzeSystemPrompt = `You are an English language tutor helping Russian speakers improve their spoken English.
Analyze the student's speech transcript and provide constructive feedback.

IMPORTANT: Always respond in Russian language.

Return your analysis as a valid JSON object with this exact structure:
{
  "summary": "Brief overall assessment in Russian (1-2 sentences)",
  "grammarErrors": ["List of grammar mistakes found, explained in Russian"],
  "vocabularySuggestions": ["Better word choices or expressions in Russian"],
  "overallScore": 7
}

The overallScore should be from 1 to 10.
If no errors found in a category, return an empty array.
Be encouraging but honest.`

// LLMClient produces language feedback via an OpenAI-compatible
// /chat/completions endpoint.
type LLMClient struct {
	apiURL string
	apiKey string
	model  string
	hc     *http.Client
	log    *zap.Logger
}

func NewLLMClient(apiURL, apiKey, model string, log *zap.Logger) *LLMClient {
	return &LLMClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		hc:     &http.Client{Timeout: 90 * time.Second},
		log:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) AnalyzeSpeech(ctx context.Context, transcript, topic string) (*Feedback, error) {
	userPrompt := fmt.Sprintf(
		"Topic: %q\nStudent's response (transcribed from voice): %q\n\nAnalyze this English speech and provide feedback.",
		topic, transcript,
	)

	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: analyzeSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	fb, err := parseFeedback(content)
	if err != nil {
		return nil, fmt.Errorf("parse feedback: %w", err)
	}

	c.log.Info("speech analysis complete", zap.Int("score", fb.OverallScore))
	return fb, nil
}

func (c *LLMClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	start := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()
	metrics.AIRequestDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.AIRequestTotal.WithLabelValues("llm", "error").Inc()
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		metrics.AIRequestTotal.WithLabelValues("llm", "error").Inc()
		c.log.Error("llm api error", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return "", fmt.Errorf("llm api: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		metrics.AIRequestTotal.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("llm response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		metrics.AIRequestTotal.WithLabelValues("llm", "error").Inc()
		return "", fmt.Errorf("llm response: no content")
	}

	metrics.AIRequestTotal.WithLabelValues("llm", "ok").Inc()
	return cr.Choices[0].Message.Content, nil
}

// parseFeedback tolerates models wrapping the JSON in markdown fences.
func parseFeedback(content string) (*Feedback, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "{"); i >= 0 {
		if j := strings.LastIndex(content, "}"); j > i {
			content = content[i : j+1]
		}
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(content), &fb); err != nil {
		return nil, err
	}
	if fb.OverallScore < 1 {
		fb.OverallScore = 1
	}
	if fb.OverallScore > 10 {
		fb.OverallScore = 10
	}
	return &fb, nil
}
