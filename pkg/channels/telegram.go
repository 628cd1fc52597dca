package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/config"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

const telegramMaxMessageLength = 4096

// TelegramChannel connects to the Telegram Bot API via long polling.
type TelegramChannel struct {
	*BaseChannel
	cfg    config.TelegramConfig
	bot    *telego.Bot
	cancel context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, mb *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", mb, WithMaxMessageLength(telegramMaxMessageLength)),
		cfg:         cfg,
	}
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	bot, err := telego.NewBot(c.cfg.Token, telego.WithDiscardLogger())
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	c.bot = bot

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	updates, err := bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("telegram long polling: %w", err)
	}

	go c.consumeUpdates(runCtx, updates)
	c.SetRunning(true)
	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.SetRunning(false)
	return nil
}

func (c *TelegramChannel) consumeUpdates(ctx context.Context, updates <-chan telego.Update) {
	for update := range updates {
		switch {
		case update.Message != nil && update.Message.Text != "":
			msg := update.Message
			c.HandleText(
				strconv.FormatInt(msg.Chat.ID, 10),
				telegramSenderID(msg.From),
				telegramSenderName(msg.From),
				msg.Text,
			)

		case update.CallbackQuery != nil:
			c.handleCallbackQuery(ctx, update.CallbackQuery)
		}
	}
}

func (c *TelegramChannel) handleCallbackQuery(ctx context.Context, query *telego.CallbackQuery) {
	// Ack first so the client stops its spinner even if handling fails.
	err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	})
	if err != nil {
		logger.WarnCF("telegram", "callback ack failed", map[string]any{"error": err.Error()})
	}

	var chatID int64
	switch m := query.Message.(type) {
	case *telego.Message:
		chatID = m.Chat.ID
	case *telego.InaccessibleMessage:
		chatID = m.Chat.ID
	default:
		logger.WarnC("telegram", "callback without an addressable message dropped")
		return
	}

	from := query.From
	c.HandleCallback(
		strconv.FormatInt(chatID, 10),
		strconv.FormatInt(from.ID, 10),
		telegramSenderName(&from),
		query.Data,
	)
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.Endpoint.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", msg.Endpoint.ChatID, err)
	}

	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   msg.Text,
	}

	switch {
	case msg.Controls != nil:
		params.ReplyMarkup = &telego.InlineKeyboardMarkup{
			InlineKeyboard: [][]telego.InlineKeyboardButton{{
				{Text: claimLabel, CallbackData: wishlist.ClaimPayload(msg.Controls.ItemID)},
				{Text: unclaimLabel, CallbackData: wishlist.UnclaimPayload(msg.Controls.ItemID)},
			}},
		}
	case msg.ShowMenu:
		row := make([]telego.KeyboardButton, 0, len(menuCommands))
		for _, cmd := range menuCommands {
			row = append(row, telego.KeyboardButton{Text: cmd})
		}
		params.ReplyMarkup = &telego.ReplyKeyboardMarkup{
			Keyboard:       [][]telego.KeyboardButton{row},
			ResizeKeyboard: true,
		}
	}

	_, err = c.bot.SendMessage(ctx, params)
	return err
}

func telegramSenderID(from *telego.User) string {
	if from == nil {
		return ""
	}
	return strconv.FormatInt(from.ID, 10)
}

func telegramSenderName(from *telego.User) string {
	if from == nil {
		return "someone"
	}
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		name = from.Username
	}
	if name == "" {
		name = "someone"
	}
	return name
}
