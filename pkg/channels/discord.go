package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/config"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

const discordMaxMessageLength = 2000

// DiscordChannel connects over the Discord gateway. Item controls are
// rendered as message component buttons.
type DiscordChannel struct {
	*BaseChannel
	cfg     config.DiscordConfig
	session *discordgo.Session
}

func NewDiscordChannel(cfg config.DiscordConfig, mb *bus.MessageBus) *DiscordChannel {
	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", mb, WithMaxMessageLength(discordMaxMessageLength)),
		cfg:         cfg,
	}
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + c.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord session init: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	session.AddHandler(c.onMessageCreate)
	session.AddHandler(c.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord gateway open: %w", err)
	}
	c.session = session
	c.SetRunning(true)
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *DiscordChannel) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Content == "" {
		return
	}
	c.HandleText(m.ChannelID, m.Author.ID, discordSenderName(m.Author), m.Content)
}

func (c *DiscordChannel) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	// Deferred update acks the press without posting an extra message;
	// the outcome arrives as a broadcast.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		logger.WarnCF("discord", "interaction ack failed", map[string]any{"error": err.Error()})
	}

	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	c.HandleCallback(i.ChannelID, user.ID, discordSenderName(user), i.MessageComponentData().CustomID)
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if c.session == nil {
		return fmt.Errorf("discord channel not started")
	}

	if msg.Controls != nil {
		send := &discordgo.MessageSend{
			Content: msg.Text,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    claimLabel,
							Style:    discordgo.PrimaryButton,
							CustomID: wishlist.ClaimPayload(msg.Controls.ItemID),
						},
						discordgo.Button{
							Label:    unclaimLabel,
							Style:    discordgo.SecondaryButton,
							CustomID: wishlist.UnclaimPayload(msg.Controls.ItemID),
						},
					},
				},
			},
		}
		_, err := c.session.ChannelMessageSendComplex(msg.Endpoint.ChatID, send, discordgo.WithContext(ctx))
		return err
	}

	// Discord has no reply keyboard, so ShowMenu renders as plain text.
	_, err := c.session.ChannelMessageSend(msg.Endpoint.ChatID, msg.Text, discordgo.WithContext(ctx))
	return err
}

func discordSenderName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	if u.Username != "" {
		return u.Username
	}
	return "someone"
}
