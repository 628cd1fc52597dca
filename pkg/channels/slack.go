package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/config"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

// Slack block text tops out at 3000 characters.
const slackMaxMessageLength = 3000

// SlackChannel connects over Socket Mode, so no public webhook endpoint
// is needed.
type SlackChannel struct {
	*BaseChannel
	cfg    config.SlackConfig
	api    *slack.Client
	sock   *socketmode.Client
	cancel context.CancelFunc

	nameMu    sync.Mutex
	nameCache map[string]string
}

func NewSlackChannel(cfg config.SlackConfig, mb *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: NewBaseChannel("slack", mb, WithMaxMessageLength(slackMaxMessageLength)),
		cfg:         cfg,
		nameCache:   make(map[string]string),
	}
}

func (c *SlackChannel) Start(ctx context.Context) error {
	if c.cfg.BotToken == "" || c.cfg.AppToken == "" {
		return fmt.Errorf("slack channel needs both bot_token and app_token")
	}

	c.api = slack.New(c.cfg.BotToken, slack.OptionAppLevelToken(c.cfg.AppToken))
	c.sock = socketmode.New(c.api)

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.consumeEvents(runCtx)
	go func() {
		if err := c.sock.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			logger.ErrorCF("slack", "socket mode stopped", map[string]any{"error": err.Error()})
		}
	}()

	c.SetRunning(true)
	return nil
}

func (c *SlackChannel) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.SetRunning(false)
	return nil
}

func (c *SlackChannel) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sock.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				c.sock.Ack(*evt.Request)
				c.handleEventsAPI(ctx, apiEvent)

			case socketmode.EventTypeInteractive:
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				c.sock.Ack(*evt.Request)
				c.handleInteraction(ctx, callback)
			}
		}
	}
}

func (c *SlackChannel) handleEventsAPI(ctx context.Context, evt slackevents.EventsAPIEvent) {
	msg, ok := evt.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Skip bot echoes and edits/joins, only fresh user messages count.
	if msg.BotID != "" || msg.SubType != "" || msg.Text == "" {
		return
	}
	c.HandleText(msg.Channel, msg.User, c.userName(ctx, msg.User), msg.Text)
}

func (c *SlackChannel) handleInteraction(ctx context.Context, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}
	actions := callback.ActionCallback.BlockActions
	if len(actions) == 0 {
		return
	}
	c.HandleCallback(callback.Channel.ID, callback.User.ID, c.userName(ctx, callback.User.ID), actions[0].Value)
}

func (c *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if c.api == nil {
		return fmt.Errorf("slack channel not started")
	}

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.Controls != nil {
		section := slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.PlainTextType, msg.Text, true, false), nil, nil)
		controls := slack.NewActionBlock("item_controls",
			slack.NewButtonBlockElement("claim", wishlist.ClaimPayload(msg.Controls.ItemID),
				slack.NewTextBlockObject(slack.PlainTextType, claimLabel, true, false)),
			slack.NewButtonBlockElement("unclaim", wishlist.UnclaimPayload(msg.Controls.ItemID),
				slack.NewTextBlockObject(slack.PlainTextType, unclaimLabel, true, false)),
		)
		opts = []slack.MsgOption{slack.MsgOptionBlocks(section, controls)}
	}

	_, _, err := c.api.PostMessageContext(ctx, msg.Endpoint.ChatID, opts...)
	return err
}

// userName resolves a Slack user id to a display name, cached for the
// life of the channel.
func (c *SlackChannel) userName(ctx context.Context, userID string) string {
	if userID == "" {
		return "someone"
	}

	c.nameMu.Lock()
	name, ok := c.nameCache[userID]
	c.nameMu.Unlock()
	if ok {
		return name
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		logger.DebugCF("slack", "user lookup failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return userID
	}

	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}

	c.nameMu.Lock()
	c.nameCache[userID] = name
	c.nameMu.Unlock()
	return name
}
