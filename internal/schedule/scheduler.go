package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/domain"
	"github.com/moredark/talking-bob/internal/metrics"
)

// Semantics selects the ordering of marking versus delivery inside a tick.
type Semantics string

const (
	// AtMostOnce marks the user's prompt as sent before dispatching. A
	// delivery failure or crash after marking skips the user until their
	// next scheduled slot; no duplicates are possible.
	AtMostOnce Semantics = "at-most-once"
	// AtLeastOnce dispatches first and only marks on success, so a failed
	// delivery is retried on the following tick at the cost of possible
	// duplicate sends around a crash.
	AtLeastOnce Semantics = "at-least-once"
)

// ParseSemantics maps a config string to a Semantics, defaulting to
// at-most-once for empty or unknown values.
func ParseSemantics(s string) Semantics {
	if Semantics(s) == AtLeastOnce {
		return AtLeastOnce
	}
	return AtMostOnce
}

// Scheduler drives the every-minute tick: pull due users, advance their
// triggers, hand each to the dispatcher. State lives in the database, so the
// loop is restart-safe and idempotent; one minute is the finest due-time
// resolution offered.
type Scheduler struct {
	svc        *Service
	dispatcher Dispatcher
	log        *zap.Logger
	semantics  Semantics

	cron *cron.Cron
	busy atomic.Bool // single-flight guard, in-process only
}

func NewScheduler(svc *Service, dispatcher Dispatcher, semantics Semantics, log *zap.Logger) *Scheduler {
	return &Scheduler{
		svc:        svc,
		dispatcher: dispatcher,
		log:        log,
		semantics:  semantics,
	}
}

// Start registers the minute tick and launches the cron runner. The returned
// error is only a cron expression parse failure, which cannot happen here.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("* * * * *", func() { s.Tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("semantics", string(s.semantics)))
	return nil
}

// Stop halts the cron runner and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.log.Info("scheduler stopped")
}

// Tick runs one scheduling cycle. If the previous cycle is still running the
// call is skipped entirely: no queueing, no backlog. Exported for tests and
// for firing an immediate pass on startup.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Debug("previous tick still processing, skipping")
		metrics.TickTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.busy.Store(false)

	now := time.Now().UTC()
	users, err := s.svc.DueUsers(ctx, now)
	if err != nil {
		s.log.Error("due users query failed", zap.Error(err))
		metrics.TickTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.TickTotal.WithLabelValues("ok").Inc()
	if len(users) == 0 {
		return
	}

	s.log.Info("processing scheduled prompts", zap.Int("due", len(users)))
	metrics.DueBatchSize.Observe(float64(len(users)))

	sent := 0
	for i := range users {
		if s.processUser(ctx, &users[i]) {
			sent++
		}
	}

	if sent > 0 {
		s.log.Info("scheduled prompts sent", zap.Int("sent", sent), zap.Int("due", len(users)))
	}
}

// processUser handles a single due user. Any failure, including a panic from
// the dispatcher, is contained here so the rest of the batch proceeds.
func (s *Scheduler) processUser(ctx context.Context, u *domain.User) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic while processing user",
				zap.Int64("userID", u.ID), zap.Any("panic", r))
			delivered = false
		}
	}()

	switch s.semantics {
	case AtLeastOnce:
		if !s.dispatcher.Dispatch(ctx, u) {
			// Not marked: the user stays due and is retried next tick.
			return false
		}
		if err := s.svc.MarkPromptSent(ctx, u.ID); err != nil {
			s.log.Error("mark prompt sent failed after delivery",
				zap.Int64("userID", u.ID), zap.Error(err))
		}
		return true

	default: // AtMostOnce
		if err := s.svc.MarkPromptSent(ctx, u.ID); err != nil {
			s.log.Error("mark prompt sent failed",
				zap.Int64("userID", u.ID), zap.Error(err))
			return false
		}
		return s.dispatcher.Dispatch(ctx, u)
	}
}
