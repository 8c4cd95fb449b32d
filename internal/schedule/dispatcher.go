package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/domain"
	"github.com/moredark/talking-bob/internal/metrics"
	"github.com/moredark/talking-bob/internal/store"
)

// Transport is the minimal delivery capability the dispatcher needs.
// telegram.Sender implements it.
type Transport interface {
	SendVoice(ctx context.Context, chatID int64, fileID, caption string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher decouples "what to send" from "when to send": the scheduler
// only depends on this capability, so other message kinds (reminders,
// streak nudges) can be swapped in without touching the tick loop.
type Dispatcher interface {
	// Dispatch sends one scheduled message to the user. It reports whether
	// any delivery attempt succeeded; failures are logged, never raised.
	Dispatch(ctx context.Context, u *domain.User) bool
}

// DailyPromptDispatcher sends a random active speaking prompt as a voice
// clip, falling back to plain text when the voice send fails.
type DailyPromptDispatcher struct {
	repo      store.Repo
	transport Transport
	log       *zap.Logger
}

func NewDailyPromptDispatcher(repo store.Repo, transport Transport, log *zap.Logger) *DailyPromptDispatcher {
	return &DailyPromptDispatcher{repo: repo, transport: transport, log: log}
}

func (d *DailyPromptDispatcher) Dispatch(ctx context.Context, u *domain.User) bool {
	prompt, err := d.repo.GetRandomActivePrompt(ctx)
	if err != nil {
		d.log.Warn("random prompt query failed", zap.Int64("userID", u.ID), zap.Error(err))
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		return false
	}
	if prompt == nil {
		d.log.Warn("no active prompts available", zap.Int64("userID", u.ID))
		metrics.DispatchTotal.WithLabelValues("no_prompt").Inc()
		return false
	}

	// The sent log feeds "which prompt is the user answering" downstream,
	// so it is written before any delivery attempt.
	if _, err := d.repo.RecordPromptSent(ctx, u.ID, prompt.ID); err != nil {
		d.log.Warn("record prompt sent failed",
			zap.Int64("userID", u.ID),
			zap.Int64("promptID", prompt.ID),
			zap.Error(err),
		)
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		return false
	}

	if prompt.AudioFileID != "" {
		caption := fmt.Sprintf("🎤 Тема дня: %s\n\nПрослушай и ответь голосовым сообщением.", prompt.Topic)
		if err := d.transport.SendVoice(ctx, u.TelegramID, prompt.AudioFileID, caption); err == nil {
			metrics.DispatchTotal.WithLabelValues("sent_voice").Inc()
			return true
		} else {
			d.log.Debug("voice send failed, falling back to text",
				zap.Int64("chatID", u.TelegramID), zap.Error(err))
		}
	}

	text := fmt.Sprintf("🎤 Тема дня: %s\n\nОтветь голосовым сообщением на английском.", prompt.Topic)
	if err := d.transport.SendMessage(ctx, u.TelegramID, text); err != nil {
		d.log.Warn("prompt delivery failed",
			zap.Int64("userID", u.ID),
			zap.Int64("chatID", u.TelegramID),
			zap.Error(err),
		)
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		return false
	}

	metrics.DispatchTotal.WithLabelValues("sent_text").Inc()
	return true
}
