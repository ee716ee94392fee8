// Package bot serves the Telegram webhook and the user-facing commands.
package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"halacha-yomi-bot/internal/domain"
	"halacha-yomi-bot/internal/infra/metrics"
	"halacha-yomi-bot/internal/usecase/delivery"
)

// DailyDeliverer sends the daily pair to a single chat on demand.
type DailyDeliverer interface {
	DeliverTo(ctx context.Context, date time.Time, chatID int64) error
}

// Handler serves bot updates.
type Handler struct {
	transport   domain.ChannelTransport
	subscribers domain.SubscriberRepo
	deliverer   DailyDeliverer
	loc         *time.Location
	log         zerolog.Logger
}

func NewHandler(transport domain.ChannelTransport, subscribers domain.SubscriberRepo, deliverer DailyDeliverer, loc *time.Location, log zerolog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		transport:   transport,
		subscribers: subscribers,
		deliverer:   deliverer,
		loc:         loc,
		log:         log,
	}
}

// HandleUpdate processes one incoming update.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch {
	case strings.HasPrefix(text, "/start"):
		metrics.IncBotCommand("start")
		h.handleSubscribe(ctx, chatID, delivery.WelcomeMessage)
	case strings.HasPrefix(text, "/subscribe"):
		metrics.IncBotCommand("subscribe")
		h.handleSubscribe(ctx, chatID, delivery.SubscribedMessage)
	case strings.HasPrefix(text, "/unsubscribe"):
		metrics.IncBotCommand("unsubscribe")
		h.handleUnsubscribe(ctx, chatID)
	case strings.HasPrefix(text, "/today"):
		metrics.IncBotCommand("today")
		h.handleToday(ctx, chatID)
	case strings.HasPrefix(text, "/about"):
		metrics.IncBotCommand("about")
		h.reply(ctx, chatID, delivery.AboutMessage)
	case strings.HasPrefix(text, "/help"):
		metrics.IncBotCommand("help")
		h.reply(ctx, chatID, delivery.HelpMessage)
	default:
		metrics.IncBotCommand("unknown")
		h.reply(ctx, chatID, delivery.UnknownCommandMessage)
	}
}

func (h *Handler) handleSubscribe(ctx context.Context, chatID int64, welcome string) {
	added, err := h.subscribers.Add(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("subscribe failed")
		h.reply(ctx, chatID, delivery.ErrorMessage)
		return
	}
	if !added {
		h.reply(ctx, chatID, delivery.AlreadySubscribedMessage)
		return
	}
	h.reply(ctx, chatID, welcome)
}

func (h *Handler) handleUnsubscribe(ctx context.Context, chatID int64) {
	removed, err := h.subscribers.Remove(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("unsubscribe failed")
		h.reply(ctx, chatID, delivery.ErrorMessage)
		return
	}
	if !removed {
		h.reply(ctx, chatID, delivery.NotSubscribedMessage)
		return
	}
	h.reply(ctx, chatID, delivery.UnsubscribedMessage)
}

func (h *Handler) handleToday(ctx context.Context, chatID int64) {
	today := time.Now().In(h.loc)
	if err := h.deliverer.DeliverTo(ctx, today, chatID); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("on-demand delivery failed")
		h.reply(ctx, chatID, delivery.ErrorMessage)
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	chunk := domain.MessageChunk{Text: text, ParseMode: tgbotapi.ModeHTML}
	if err := h.transport.SendText(ctx, chatID, []domain.MessageChunk{chunk}); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}
