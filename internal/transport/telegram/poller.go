package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/kiraleos/replybot/internal/bot"
)

var feedbackKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👍", bot.PayloadLike),
		tgbotapi.NewInlineKeyboardButtonData("👎", bot.PayloadDislike),
	),
)

// Poller long-polls the Telegram Bot API and bridges its updates to the
// dispatcher. Each update is handled in its own goroutine; per-user
// ordering is the session cache's flight lock's job, not the poller's.
type Poller struct {
	api        *tgbotapi.BotAPI
	dispatcher *bot.Dispatcher
}

func NewPoller(token string, dispatcher *bot.Dispatcher) (*Poller, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API client: %w", err)
	}
	log.Info().Str("bot_username", api.Self.UserName).Msg("authorized with Telegram")
	return &Poller{api: api, dispatcher: dispatcher}, nil
}

// Run blocks until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := p.api.GetUpdatesChan(cfg)

	go func() {
		<-ctx.Done()
		p.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.Message != nil && update.Message.From != nil && update.Message.Text != "":
			go p.handleMessage(ctx, update.Message)
		case update.CallbackQuery != nil:
			go p.handleCallback(ctx, update.CallbackQuery)
		}
	}
	log.Info().Msg("Telegram update stream closed")
}

func (p *Poller) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	p.sendTyping(msg.Chat.ID)

	event := bot.TextMessage{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      msg.Text,
	}

	out := p.dispatcher.OnTextMessage(ctx, event)
	p.sendOutgoing(msg.From.ID, msg.Chat.ID, out.Text, out.Feedback)
}

func (p *Poller) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Ack the tap first so the client stops its spinner even on a miss.
	if _, err := p.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Error().Err(err).Msg("failed to answer callback query")
	}

	if cb.Message == nil {
		log.Warn().Str("callback_id", cb.ID).Msg("callback without originating message, dropping")
		return
	}
	chatID := cb.Message.Chat.ID

	event := bot.FeedbackCallback{
		UserID:    cb.From.ID,
		ChatID:    chatID,
		MessageID: strconv.Itoa(cb.Message.MessageID),
		Payload:   cb.Data,
		Username:  cb.From.UserName,
		FirstName: cb.From.FirstName,
		LastName:  cb.From.LastName,
	}

	action := p.dispatcher.OnFeedbackCallback(ctx, event)
	switch action.Kind {
	case bot.ActionEditExisting:
		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, action.Text)
		if _, err := p.api.Send(edit); err != nil {
			log.Error().Err(err).Int("message_id", cb.Message.MessageID).Msg("failed to edit message")
		}
	case bot.ActionSendNew:
		p.sendOutgoing(cb.From.ID, chatID, action.Text, action.Feedback)
	}
}

// sendOutgoing sends the text, attaching the feedback keyboard and
// registering the pending pair when one is supplied.
func (p *Poller) sendOutgoing(userID, chatID int64, text string, pair *bot.FeedbackPair) {
	msg := tgbotapi.NewMessage(chatID, text)
	if pair != nil {
		msg.ReplyMarkup = feedbackKeyboard
	}

	sent, err := p.api.Send(msg)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
		return
	}
	if pair != nil {
		p.dispatcher.TrackOutgoing(userID, strconv.Itoa(sent.MessageID), *pair)
	}
}

func (p *Poller) sendTyping(chatID int64) {
	if _, err := p.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("failed to send typing action")
	}
}
