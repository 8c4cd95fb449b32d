// Package ratelimit throttles per-user actions with a rolling-window count
// kept in the store, so limits survive restarts and need no extra state.
package ratelimit

import (
	"context"
	"time"

	"github.com/moredark/talking-bob/internal/store"
)

// Actions known to the limiter.
const (
	ActionVoiceResponse = "voice_response"
	ActionCommand       = "command"
)

// Limit describes how many actions fit in a rolling window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

var defaults = map[string]Limit{
	ActionVoiceResponse: {MaxRequests: 10, Window: time.Hour},
	ActionCommand:       {MaxRequests: 30, Window: time.Hour},
}

type Service struct {
	repo store.Repo
}

func NewService(repo store.Repo) *Service {
	return &Service{repo: repo}
}

// Allow reports whether the user may perform the action right now.
func (s *Service) Allow(ctx context.Context, userID int64, action string) (bool, error) {
	lim, ok := defaults[action]
	if !ok {
		lim = defaults[ActionCommand]
	}
	n, err := s.repo.CountActions(ctx, userID, action, time.Now().UTC().Add(-lim.Window))
	if err != nil {
		return false, err
	}
	return n < lim.MaxRequests, nil
}

// Record logs one performed action against the user's window.
func (s *Service) Record(ctx context.Context, userID int64, action string) error {
	return s.repo.RecordAction(ctx, userID, action)
}
