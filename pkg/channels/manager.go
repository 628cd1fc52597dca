package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/config"
	"github.com/tinyland-inc/wishbot/pkg/logger"
)

// Manager owns the configured channels: it starts and stops them and
// routes outbound messages to the right transport.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus
}

// NewManager builds channels from config. Disabled channels are not
// constructed at all.
func NewManager(cfg *config.Config, mb *bus.MessageBus) *Manager {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      mb,
	}

	if cfg.Channels.Telegram.Enabled {
		m.Register(NewTelegramChannel(cfg.Channels.Telegram, mb))
	}
	if cfg.Channels.Discord.Enabled {
		m.Register(NewDiscordChannel(cfg.Channels.Discord, mb))
	}
	if cfg.Channels.Slack.Enabled {
		m.Register(NewSlackChannel(cfg.Channels.Slack, mb))
	}
	if cfg.Channels.Console.Enabled {
		m.Register(NewConsoleChannel(mb))
	}

	return m
}

// Register adds a channel under its name, replacing any previous one.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Get returns the channel registered under name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// StartAll starts every registered channel. A channel that fails to
// start is logged and skipped; the rest keep going. An error is
// returned only when no channel started.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	started := 0
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			logger.ErrorCF("channels", "channel failed to start", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
			continue
		}
		logger.InfoC("channels", name+" channel started")
		started++
	}

	if started == 0 && len(m.channels) > 0 {
		return fmt.Errorf("no channel started (%d configured)", len(m.channels))
	}
	return nil
}

// StopAll stops every running channel.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "channel failed to stop", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
}

// Deliver sends one message to the endpoint named in it. Messages
// longer than the channel's advertised limit are split by runes; item
// controls ride on the final piece.
func (m *Manager) Deliver(ctx context.Context, msg bus.OutboundMessage) error {
	ch, ok := m.Get(msg.Endpoint.Channel)
	if !ok {
		return fmt.Errorf("no channel registered for endpoint %s", msg.Endpoint)
	}

	limit := 0
	if p, ok := ch.(MessageLengthProvider); ok {
		limit = p.MaxMessageLength()
	}

	pieces := splitMessage(msg.Text, limit)
	for i, piece := range pieces {
		part := msg
		part.Text = piece
		if i < len(pieces)-1 {
			part.Controls = nil
			part.ShowMenu = false
		}
		if err := ch.Send(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// StartOutboundDispatcher consumes the bus outbound side and delivers
// each message, until ctx is cancelled or the bus closes.
func (m *Manager) StartOutboundDispatcher(ctx context.Context) {
	go func() {
		for {
			msg, ok := m.bus.SubscribeOutbound(ctx)
			if !ok {
				return
			}
			if err := m.Deliver(ctx, msg); err != nil {
				logger.ErrorCF("channels", "outbound delivery failed", map[string]any{
					"endpoint": msg.Endpoint.String(),
					"error":    err.Error(),
				})
			}
		}
	}()
}

// splitMessage cuts text into rune-bounded pieces. A zero limit keeps
// the text whole.
func splitMessage(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var pieces []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
