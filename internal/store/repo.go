package store

import (
	"context"
	"errors"
	"time"

	"github.com/moredark/talking-bob/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Repo defines storage operations for users, prompts and responses.
type Repo interface {
	// Users
	FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	CreateUser(ctx context.Context, telegramID int64, username string, defaults UserDefaults) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// Scheduling
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.User, error)
	UpdateScheduleSettings(ctx context.Context, userID int64, hour, minute int, tz string, next *time.Time) error
	SetPromptEnabled(ctx context.Context, userID int64, enabled bool, next *time.Time) error
	SetSchedule(ctx context.Context, userID int64, next *time.Time, last *time.Time) error

	// Prompts and sent log
	GetRandomActivePrompt(ctx context.Context) (*domain.Prompt, error)
	GetPrompt(ctx context.Context, id int64) (*domain.Prompt, error)
	RecordPromptSent(ctx context.Context, userID, promptID int64) (*domain.UserPrompt, error)
	LatestUserPrompt(ctx context.Context, userID int64) (*domain.UserPrompt, error)

	// Responses
	CreateResponse(ctx context.Context, userID, userPromptID int64, voiceFileID string) (int64, error)
	UpdateResponse(ctx context.Context, id int64, transcript, analysis string) error
	ResponseByUserPrompt(ctx context.Context, userPromptID int64) (*domain.UserResponse, error)

	// Rate limiting bookkeeping
	CountActions(ctx context.Context, userID int64, action string, since time.Time) (int, error)
	RecordAction(ctx context.Context, userID int64, action string) error

	Ping(ctx context.Context) error
	Close() error
}

// UserDefaults seeds the schedule fields of a newly created user.
type UserDefaults struct {
	Hour     int
	Minute   int
	Timezone string
}
