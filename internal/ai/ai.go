// Package ai holds the clients for the external speech services: voice
// transcription, language feedback and text-to-speech. The bot consumes them
// through the interfaces below; everything behind them is plain HTTP.
package ai

import "context"

// Feedback is the structured evaluation of one spoken answer.
type Feedback struct {
	Summary               string   `json:"summary"`
	GrammarErrors         []string `json:"grammarErrors"`
	VocabularySuggestions []string `json:"vocabularySuggestions"`
	PronunciationTips     []string `json:"pronunciationTips,omitempty"`
	OverallScore          int      `json:"overallScore"`
}

// Transcriber turns voice audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Analyzer evaluates a transcript against its topic.
type Analyzer interface {
	AnalyzeSpeech(ctx context.Context, transcript, topic string) (*Feedback, error)
}

// Synthesizer renders text as speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
