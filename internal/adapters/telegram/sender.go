// Package telegram implements the outgoing message transport on the Bot API.
package telegram

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/metrics"
)

// Sender delivers formatted messages through a Telegram bot.
type Sender struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.ChannelTransport = (*Sender)(nil)

func NewSender(bot *tgbotapi.BotAPI, log zerolog.Logger) *Sender {
	return &Sender{bot: bot, log: log}
}

// SendText sends the chunks in order. The first failing chunk aborts the
// sequence so a recipient never gets the tail of a message without its head.
func (s *Sender) SendText(ctx context.Context, chatID int64, chunks []domain.MessageChunk) error {
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, chunk.Text)
		msg.ParseMode = chunk.ParseMode
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := s.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			return &domain.UpstreamError{Op: "telegram send", Err: err}
		}
	}
	return nil
}

// SendAudio sends a voice note with a caption.
func (s *Sender) SendAudio(ctx context.Context, chatID int64, audio []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "daily.ogg", Bytes: audio})
	voice.Caption = caption

	start := time.Now()
	_, err := s.bot.Send(voice)
	metrics.ObserveNetworkRequest("telegram_bot", "send_voice", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return &domain.UpstreamError{Op: "telegram send voice", Err: err}
	}
	return nil
}
