package domain

import "time"

// User holds a learner's profile and daily-prompt schedule.
type User struct {
	ID                 int64
	TelegramID         int64
	Username           string
	DailyPromptEnabled bool
	DailyPromptHour    int        // 0..23, preferred local hour
	DailyPromptMinute  int        // 0..59
	Timezone           string     // IANA name, e.g. "Europe/Moscow"
	NextPromptAt       *time.Time // UTC, nil while disabled
	LastPromptSentAt   *time.Time // UTC, nullable
	CreatedAt          time.Time  // UTC
}

// Prompt is a speaking topic the bot hands out.
type Prompt struct {
	ID          int64
	Topic       string
	AudioFileID string // Telegram file_id of the recorded question, may be empty
	IsActive    bool
	CreatedAt   time.Time
}

// UserPrompt is one "prompt P was sent to user U" event.
type UserPrompt struct {
	ID       int64
	UserID   int64
	PromptID int64
	SentAt   time.Time
}

// UserResponse stores the learner's voice answer to a prompt along with its
// transcript and the feedback produced for it. At most one per UserPrompt.
type UserResponse struct {
	ID           int64
	UserID       int64
	UserPromptID int64
	VoiceFileID  string
	Transcript   string
	Analysis     string // feedback JSON as returned by the analyzer
	CreatedAt    time.Time
}
