package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/talking-bob.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Default schedule for newly registered users.
	DefaultTZ           string `envconfig:"DEFAULT_TZ" default:"Europe/Moscow"`
	DefaultPromptHour   int    `envconfig:"DEFAULT_PROMPT_HOUR" default:"12"`
	DefaultPromptMinute int    `envconfig:"DEFAULT_PROMPT_MINUTE" default:"0"`

	// Delivery semantics for the daily prompt: at-most-once (mark before
	// dispatch, no duplicates) or at-least-once (dispatch before mark,
	// retried on failure).
	DeliverySemantics string `envconfig:"DELIVERY_SEMANTICS" default:"at-most-once"`

	// Outbound Telegram send pacing (bot-wide API limit is ~30 msg/s).
	SendRatePerSec int `envconfig:"SEND_RATE_PER_SEC" default:"25"`

	// AI providers (OpenAI-compatible endpoints).
	AIAPIKey     string `envconfig:"AI_API_KEY"`
	WhisperURL   string `envconfig:"WHISPER_URL" default:"https://foundation-models.api.cloud.ru/v1/audio/transcriptions"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"openai/whisper-large-v3"`
	LLMURL       string `envconfig:"LLM_API_URL" default:"https://foundation-models.api.cloud.ru/v1/chat/completions"`
	LLMModel     string `envconfig:"LLM_MODEL" default:"openai/gpt-4o-mini"`

	// Text-to-speech (optional; feedback stays text-only without a key).
	TTSAPIKey  string `envconfig:"ELEVENLABS_API_KEY"`
	TTSBaseURL string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io/v1/text-to-speech"`
	TTSModel   string `envconfig:"ELEVENLABS_MODEL" default:"eleven_multilingual_v2"`
	TTSVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"JBFqnCBsd6RMkjVDRZzb"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
