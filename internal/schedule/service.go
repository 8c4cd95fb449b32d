package schedule

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/domain"
	"github.com/moredark/talking-bob/internal/store"
)

// dueBatchLimit caps how many users one tick will pull. Overflow is picked
// up by the next tick since next_prompt_at stays in the past until marked.
const dueBatchLimit = 100

// Service owns the daily-prompt schedule state: which users are due and how
// their trigger instants move. All mutations fully replace next_prompt_at so
// it can never disagree with the stored hour/minute/timezone.
type Service struct {
	repo store.Repo
	log  *zap.Logger
}

func NewService(repo store.Repo, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// DueUsers returns enabled users whose trigger instant has elapsed.
func (s *Service) DueUsers(ctx context.Context, now time.Time) ([]domain.User, error) {
	return s.repo.ListDue(ctx, now, dueBatchLimit)
}

// MarkPromptSent advances the user's trigger to the next occurrence of their
// preferred time and stamps last_prompt_sent_at. Calling it twice in a row is
// a no-op for duplicates: after the first call the user is no longer due.
// A missing user is logged and swallowed; marking runs from background ticks
// where there is nobody to surface the error to.
func (s *Service) MarkPromptSent(ctx context.Context, userID int64) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("user not found when marking prompt sent", zap.Int64("userID", userID))
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	next, err := domain.NextPromptTime(u.DailyPromptHour, u.DailyPromptMinute, u.Timezone, now)
	if err != nil {
		s.log.Error("next prompt time failed",
			zap.Int64("userID", userID),
			zap.String("timezone", u.Timezone),
			zap.Error(err),
		)
		return err
	}

	return s.repo.SetSchedule(ctx, userID, &next, &now)
}

// InitializeSchedule persists the user's preferred delivery time and
// recomputes the trigger instant in the same update.
func (s *Service) InitializeSchedule(ctx context.Context, userID int64, hour, minute int, tz string) error {
	next, err := domain.NextPromptTime(hour, minute, tz, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.repo.UpdateScheduleSettings(ctx, userID, hour, minute, tz, &next)
}

// EnableSchedule turns the daily prompt on, recomputing the trigger from the
// stored preferences. Idempotent: repeated calls yield the same trigger for
// an unchanged now. A missing user is a logged no-op.
func (s *Service) EnableSchedule(ctx context.Context, userID int64) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("user not found when enabling schedule", zap.Int64("userID", userID))
			return nil
		}
		return err
	}

	next, err := domain.NextPromptTime(u.DailyPromptHour, u.DailyPromptMinute, u.Timezone, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.repo.SetPromptEnabled(ctx, userID, true, &next)
}

// DisableSchedule turns the daily prompt off and clears the trigger, so a
// stale instant can never fire after re-enable recomputes it.
func (s *Service) DisableSchedule(ctx context.Context, userID int64) error {
	return s.repo.SetPromptEnabled(ctx, userID, false, nil)
}
