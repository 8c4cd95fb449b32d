package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/domain"
	"github.com/moredark/talking-bob/internal/ratelimit"
	"github.com/moredark/talking-bob/internal/store"
)

// ensureUser makes sure a user row exists for the chat; a new user gets the
// configured default schedule with a freshly computed trigger.
func (r *Router) ensureUser(ctx context.Context, chatID int64, username string) (*domain.User, error) {
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	u, err = r.repo.CreateUser(ctx, chatID, username, r.defaults)
	if err != nil {
		return nil, err
	}
	if err := r.schedules.InitializeSchedule(ctx, u.ID, r.defaults.Hour, r.defaults.Minute, r.defaults.Timezone); err != nil {
		r.log.Warn("initialize schedule for new user failed",
			zap.Int64("userID", u.ID), zap.Error(err))
	}
	r.log.Info("user registered", zap.Int64("userID", u.ID), zap.Int64("chatID", chatID))
	return u, nil
}

// --- Generic helpers ---

func (r *Router) sendText(ctx context.Context, chatID int64, text string) {
	if err := r.sender.SendMessage(ctx, chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(id, ""))
}

func (r *Router) allowCommand(ctx context.Context, chatID int64, u *domain.User) bool {
	ok, err := r.limits.Allow(ctx, u.ID, ratelimit.ActionCommand)
	if err != nil {
		r.log.Warn("rate limit check failed", zap.Int64("userID", u.ID), zap.Error(err))
		return true // fail open for commands
	}
	if !ok {
		r.sendText(ctx, chatID, rateLimitedText)
		return false
	}
	_ = r.limits.Record(ctx, u.ID, ratelimit.ActionCommand)
	return true
}

// --- /start ---

func (r *Router) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	username := ""
	if from != nil {
		username = from.UserName
	}
	u, err := r.ensureUser(ctx, chatID, username)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(ctx, chatID, "Ошибка инициализации профиля. Попробуйте позже.")
		return
	}
	if !r.allowCommand(ctx, chatID, u) {
		return
	}

	r.sendText(ctx, chatID, welcomeText)

	// First topic right away; later ones come from the scheduler.
	if !r.dispatcher.Dispatch(ctx, u) {
		r.sendText(ctx, chatID, noActivePromptsText)
	}
}

// --- /settings ---

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	u, err := r.ensureUser(ctx, chatID, "")
	if err != nil {
		r.log.Error("ensureUser failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, settingsText(u))
	msg.ReplyMarkup = settingsKeyboard(u.DailyPromptEnabled)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send settings failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) showSettings(ctx context.Context, chatID int64) {
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err != nil {
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, settingsText(u))
	msg.ReplyMarkup = settingsKeyboard(u.DailyPromptEnabled)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleToggle(ctx context.Context, chatID int64, cbID string) {
	r.answerCallback(cbID)
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err != nil {
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}

	if u.DailyPromptEnabled {
		err = r.schedules.DisableSchedule(ctx, u.ID)
	} else {
		err = r.schedules.EnableSchedule(ctx, u.ID)
	}
	if err != nil {
		r.log.Error("toggle schedule failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	r.showSettings(ctx, chatID)
}

// --- Delivery time flow ---

func (r *Router) askTimePresets(ctx context.Context, chatID int64, cbID string) {
	r.answerCallback(cbID)
	msg := tgbotapi.NewMessage(chatID, "В какое время присылать тему дня?")
	msg.ReplyMarkup = timePresetsKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) askCustomTime(ctx context.Context, chatID int64, cbID string) {
	r.answerCallback(cbID)
	r.sendText(ctx, chatID, askCustomTimeText)
	r.setPending(chatID, pendingTime)
}

func (r *Router) handleTimeSelect(ctx context.Context, chatID int64, value, cbID string) {
	r.answerCallback(cbID)
	r.updateTime(ctx, chatID, value)
}

func (r *Router) updateTime(ctx context.Context, chatID int64, value string) {
	hour, minute, err := domain.ParseClock(value)
	if err != nil {
		r.sendText(ctx, chatID, badCustomTimeText)
		return
	}
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err != nil {
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	if err := r.schedules.InitializeSchedule(ctx, u.ID, hour, minute, u.Timezone); err != nil {
		r.log.Error("set delivery time failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	r.sendText(ctx, chatID, settingsSavedText)
	r.showSettings(ctx, chatID)
}

// --- Timezone flow ---

func (r *Router) askTZPresets(ctx context.Context, chatID int64, cbID string) {
	r.answerCallback(cbID)
	msg := tgbotapi.NewMessage(chatID, "Выберите часовой пояс:")
	msg.ReplyMarkup = tzPresetsKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) askCustomTZ(ctx context.Context, chatID int64, cbID string) {
	r.answerCallback(cbID)
	r.sendText(ctx, chatID, askCustomTZText)
	r.setPending(chatID, pendingTZ)
}

func (r *Router) handleTZSelect(ctx context.Context, chatID int64, value, cbID string) {
	r.answerCallback(cbID)
	r.updateTZ(ctx, chatID, value)
}

func (r *Router) updateTZ(ctx context.Context, chatID int64, value string) {
	tz, err := domain.ValidateTZ(value)
	if err != nil {
		r.sendText(ctx, chatID, badCustomTZText)
		return
	}
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err != nil {
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	if err := r.schedules.InitializeSchedule(ctx, u.ID, u.DailyPromptHour, u.DailyPromptMinute, tz); err != nil {
		r.log.Error("set timezone failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, settingsErrorText)
		return
	}
	r.sendText(ctx, chatID, settingsSavedText)
	r.showSettings(ctx, chatID)
}

// --- Free-form dispatcher (custom time / timezone input) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	switch r.getPending(chatID) {
	case pendingTime:
		r.clearPending(chatID)
		r.updateTime(ctx, chatID, text)
	case pendingTZ:
		r.clearPending(chatID)
		r.updateTZ(ctx, chatID, text)
	default:
		// No pending flow: ignore free-form message
	}
}
