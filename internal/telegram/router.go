package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/ai"
	"github.com/moredark/talking-bob/internal/ratelimit"
	"github.com/moredark/talking-bob/internal/schedule"
	"github.com/moredark/talking-bob/internal/store"
)

// Pending state keys used in conversational flows.
const (
	pendingTime = "await_time_text"
	pendingTZ   = "await_tz_text"
)

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot        *tgbotapi.BotAPI
	log        *zap.Logger
	repo       store.Repo
	sender     *Sender
	schedules  *schedule.Service
	dispatcher schedule.Dispatcher
	limits     *ratelimit.Service
	whisper    ai.Transcriber
	llm        ai.Analyzer
	tts        *ai.TTSClient
	defaults   store.UserDefaults

	state map[int64]string // chatID -> pending state
	mu    sync.RWMutex
}

// Deps bundles the router's collaborators.
type Deps struct {
	Repo       store.Repo
	Sender     *Sender
	Schedules  *schedule.Service
	Dispatcher schedule.Dispatcher
	Limits     *ratelimit.Service
	Whisper    ai.Transcriber
	LLM        ai.Analyzer
	TTS        *ai.TTSClient
	Defaults   store.UserDefaults
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, d Deps) *Router {
	return &Router{
		bot:        bot,
		log:        log,
		repo:       d.Repo,
		sender:     d.Sender,
		schedules:  d.Schedules,
		dispatcher: d.Dispatcher,
		limits:     d.Limits,
		whisper:    d.Whisper,
		llm:        d.LLM,
		tts:        d.TTS,
		defaults:   d.Defaults,
		state:      make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID

		if msg.Voice != nil {
			r.handleVoice(ctx, chatID, msg)
			return
		}

		text := strings.TrimSpace(msg.Text)
		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID, msg.From)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, chatID)
		default:
			// Free-form text used by the custom time/timezone flows
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		data := cb.Data
		chatID := cb.Message.Chat.ID

		switch {
		case data == cbToggle:
			r.handleToggle(ctx, chatID, cb.ID)
		case data == cbTimeMenu:
			r.askTimePresets(ctx, chatID, cb.ID)
		case data == cbTimeCustom:
			r.askCustomTime(ctx, chatID, cb.ID)
		case strings.HasPrefix(data, cbTimePrefix):
			r.handleTimeSelect(ctx, chatID, strings.TrimPrefix(data, cbTimePrefix), cb.ID)
		case data == cbTZMenu:
			r.askTZPresets(ctx, chatID, cb.ID)
		case data == cbTZCustom:
			r.askCustomTZ(ctx, chatID, cb.ID)
		case strings.HasPrefix(data, cbTZPrefix):
			r.handleTZSelect(ctx, chatID, strings.TrimPrefix(data, cbTZPrefix), cb.ID)
		default:
			// Unknown callback — ignore silently
		}
		return
	}
}
