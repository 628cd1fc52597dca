// Package channels adapts concrete chat transports (Telegram, Discord,
// Slack, a local console) to the message bus. Each channel classifies
// raw transport events into bus events on the way in and renders
// outbound messages, including item controls, on the way out.
package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinyland-inc/wishbot/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
}

// BaseChannelOption is a functional option for configuring a BaseChannel.
type BaseChannelOption func(*BaseChannel)

// WithMaxMessageLength sets the maximum message length (in runes) for a
// channel. Messages exceeding it are split by the Manager. Zero means
// no limit.
func WithMaxMessageLength(n int) BaseChannelOption {
	return func(c *BaseChannel) { c.maxMessageLength = n }
}

// MessageLengthProvider is an opt-in interface channels implement to
// advertise their maximum message length. The Manager uses it via type
// assertion to decide whether to split outbound messages.
type MessageLengthProvider interface {
	MaxMessageLength() int
}

type BaseChannel struct {
	bus              *bus.MessageBus
	running          atomic.Bool
	name             string
	maxMessageLength int
}

func NewBaseChannel(name string, mb *bus.MessageBus, opts ...BaseChannelOption) *BaseChannel {
	bc := &BaseChannel{
		bus:  mb,
		name: name,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// MaxMessageLength returns the maximum message length (in runes) for
// this channel. Zero means no limit.
func (c *BaseChannel) MaxMessageLength() int {
	return c.maxMessageLength
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// HandleText classifies an incoming message as a slash command or free
// text and publishes it inbound. Commands tolerate a bot-mention suffix
// ("/add@wishbot") and are case-insensitive.
func (c *BaseChannel) HandleText(chatID, senderID, senderName, text string) {
	evt := bus.InboundEvent{
		ID:         uuid.New().String(),
		Endpoint:   bus.Endpoint{Channel: c.name, ChatID: chatID},
		SenderID:   senderID,
		SenderName: senderName,
	}

	trimmed := strings.TrimSpace(text)
	if cmd, ok := parseCommand(trimmed); ok {
		evt.Kind = bus.KindCommand
		evt.Command = cmd
	} else {
		evt.Kind = bus.KindText
		evt.Text = text
	}

	c.bus.PublishInbound(context.TODO(), evt)
}

// HandleCallback publishes an inline control interaction inbound. The
// payload travels opaque; decoding happens in the wishlist core.
func (c *BaseChannel) HandleCallback(chatID, senderID, senderName, payload string) {
	c.bus.PublishInbound(context.TODO(), bus.InboundEvent{
		ID:         uuid.New().String(),
		Kind:       bus.KindCallback,
		Endpoint:   bus.Endpoint{Channel: c.name, ChatID: chatID},
		SenderID:   senderID,
		SenderName: senderName,
		Payload:    payload,
	})
}

func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.TrimPrefix(text, "/")
	if i := strings.IndexAny(cmd, " \t\n"); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return "", false
	}
	return strings.ToLower(cmd), true
}
