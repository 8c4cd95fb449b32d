package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender wraps the bot API with a process-wide rate limiter so scheduled
// batches cannot trip Telegram's flood control. It implements
// schedule.Transport.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func NewSender(bot *tgbotapi.BotAPI, perSec int) *Sender {
	if perSec <= 0 {
		perSec = 25
	}
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

// SendMessage sends a plain text message to the given chat.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendHTML sends an HTML-formatted message.
func (s *Sender) SendHTML(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := s.bot.Send(msg)
	return err
}

// SendVoice sends a previously uploaded voice clip by its Telegram file_id.
func (s *Sender) SendVoice(ctx context.Context, chatID int64, fileID, caption string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileID(fileID))
	voice.Caption = caption
	_, err := s.bot.Send(voice)
	return err
}

// SendVoiceBytes uploads and sends freshly synthesized audio.
func (s *Sender) SendVoiceBytes(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	voice.Caption = caption
	_, err := s.bot.Send(voice)
	return err
}
