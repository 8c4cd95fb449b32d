package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/ai"
	"github.com/moredark/talking-bob/internal/ratelimit"
	"github.com/moredark/talking-bob/internal/store"
)

var voiceDownloadClient = &http.Client{Timeout: 60 * time.Second}

// handleVoice runs the full answer pipeline: download → transcribe →
// persist → analyze → reply with feedback.
func (r *Router) handleVoice(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	u, err := r.repo.FindUserByTelegramID(ctx, chatID)
	if err != nil {
		r.sendText(ctx, chatID, startFirstText)
		return
	}

	ok, err := r.limits.Allow(ctx, u.ID, ratelimit.ActionVoiceResponse)
	if err != nil {
		r.log.Warn("rate limit check failed", zap.Int64("userID", u.ID), zap.Error(err))
	} else if !ok {
		r.sendText(ctx, chatID, voiceLimitText)
		return
	}
	_ = r.limits.Record(ctx, u.ID, ratelimit.ActionVoiceResponse)

	userPrompt, err := r.repo.LatestUserPrompt(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendText(ctx, chatID, noPromptYetText)
			return
		}
		r.log.Error("latest user prompt query failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	if _, err := r.repo.ResponseByUserPrompt(ctx, userPrompt.ID); err == nil {
		r.sendText(ctx, chatID, alreadyAnsweredText)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		r.log.Error("response lookup failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	topic := "General"
	if p, err := r.repo.GetPrompt(ctx, userPrompt.PromptID); err == nil {
		topic = p.Topic
	}

	r.sendText(ctx, chatID, analyzingText)

	audio, err := r.downloadVoice(msg.Voice.FileID)
	if err != nil {
		r.log.Error("voice download failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	transcript, err := r.whisper.Transcribe(ctx, audio, "en")
	if err != nil {
		r.log.Error("transcription failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	respID, err := r.repo.CreateResponse(ctx, u.ID, userPrompt.ID, msg.Voice.FileID)
	if err != nil {
		r.log.Error("create response failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	feedback, err := r.llm.AnalyzeSpeech(ctx, transcript, topic)
	if err != nil {
		r.log.Error("speech analysis failed", zap.Int64("userID", u.ID), zap.Error(err))
		r.sendText(ctx, chatID, analysisFailedText)
		return
	}

	if analysis, err := json.Marshal(feedback); err == nil {
		if err := r.repo.UpdateResponse(ctx, respID, transcript, string(analysis)); err != nil {
			r.log.Warn("update response failed", zap.Int64("responseID", respID), zap.Error(err))
		}
	}

	if err := r.sender.SendHTML(ctx, chatID, formatFeedback(feedback, transcript)); err != nil {
		r.log.Warn("feedback send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}

	// Voice recap of the summary when TTS is configured.
	if r.tts != nil && r.tts.Enabled() && feedback.Summary != "" {
		if audio, err := r.tts.Synthesize(ctx, feedback.Summary, "ru"); err != nil {
			r.log.Debug("tts synthesis failed", zap.Error(err))
		} else if err := r.sender.SendVoiceBytes(ctx, chatID, "feedback.mp3", audio, ""); err != nil {
			r.log.Debug("tts send failed", zap.Error(err))
		}
	}

	r.log.Info("voice response processed",
		zap.Int64("userID", u.ID),
		zap.Int64("responseID", respID),
		zap.Int("score", feedback.OverallScore),
	)
}

// downloadVoice fetches the raw OGG bytes of a voice message from Telegram.
func (r *Router) downloadVoice(fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	resp, err := voiceDownloadClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("file download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func formatFeedback(fb *ai.Feedback, transcript string) string {
	var b strings.Builder

	b.WriteString("📝 <b>Ваш ответ:</b>\n")
	b.WriteString("<i>\"" + html.EscapeString(transcript) + "\"</i>\n\n")
	fmt.Fprintf(&b, "⭐ <b>Оценка: %d/10</b>\n\n", fb.OverallScore)
	b.WriteString("💬 <b>Общий комментарий:</b>\n")
	b.WriteString(html.EscapeString(fb.Summary))

	if len(fb.GrammarErrors) > 0 {
		b.WriteString("\n\n📚 <b>Грамматика:</b>")
		for _, e := range fb.GrammarErrors {
			b.WriteString("\n• " + html.EscapeString(e))
		}
	}
	if len(fb.PronunciationTips) > 0 {
		b.WriteString("\n\n🎤 <b>Произношение:</b>")
		for _, tip := range fb.PronunciationTips {
			b.WriteString("\n• " + html.EscapeString(tip))
		}
	}
	if len(fb.VocabularySuggestions) > 0 {
		b.WriteString("\n\n📖 <b>Словарный запас:</b>")
		for _, s := range fb.VocabularySuggestions {
			b.WriteString("\n• " + html.EscapeString(s))
		}
	}

	return b.String()
}
