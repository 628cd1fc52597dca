// Package wishlist implements the shared wishlist behavior: command
// handling, the add conversation, claim/unclaim controls, and listing
// output. It consumes classified events from the message bus and talks
// back through direct replies and endpoint broadcasts.
package wishlist

import (
	"context"
	"sync"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/relay"
	"github.com/tinyland-inc/wishbot/pkg/session"
	"github.com/tinyland-inc/wishbot/pkg/store"
)

// User-facing reply texts.
const (
	replyUsage = "This is the shared wishlist. Commands:\n" +
		"/add — add a gift\n" +
		"/list — show the wishlist\n" +
		"/reset — clear the wishlist"
	replyAddPrompt      = "What gift should I add? Send a name or a short note:"
	replyEmptyDesc      = "That message is empty. Send the gift name as plain text."
	replyInvalidPayload = "That control is malformed, try the buttons on a fresh listing."
	replyInvalidID      = "That control points at a malformed item id."
	replyItemNotFound   = "That gift is gone, probably the list was reset."
	replyGenericFailure = "Something went wrong, please try again."
	replyListFailure    = "Could not read the wishlist right now, please try again."
	noticeListCleared   = "The wishlist has been cleared!"
)

// Coordinator routes inbound chat events to the wishlist handlers.
type Coordinator struct {
	bus         *bus.MessageBus
	store       store.Store
	sessions    *session.Store
	broadcaster *relay.Broadcaster
	formatter   *Formatter
	endpoints   []bus.Endpoint

	wg sync.WaitGroup
}

// NewCoordinator wires the wishlist core. endpoints is the configured
// broadcast set, snapshotted once at startup.
func NewCoordinator(b *bus.MessageBus, st store.Store, sessions *session.Store, broadcaster *relay.Broadcaster, endpoints []bus.Endpoint) *Coordinator {
	return &Coordinator{
		bus:         b,
		store:       st,
		sessions:    sessions,
		broadcaster: broadcaster,
		formatter:   NewFormatter(),
		endpoints:   endpoints,
	}
}

// Run consumes inbound events until ctx is cancelled or the bus closes.
// Events are handled concurrently; per-item consistency comes from the
// store, not from serialized handling.
func (c *Coordinator) Run(ctx context.Context) {
	logger.InfoCF("wishlist", "coordinator started", map[string]any{
		"endpoints": len(c.endpoints),
	})
	for {
		evt, ok := c.bus.ConsumeInbound(ctx)
		if !ok {
			c.wg.Wait()
			logger.InfoC("wishlist", "coordinator stopped")
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleEvent(ctx, evt)
		}()
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, evt bus.InboundEvent) {
	logger.DebugCF("wishlist", "event received", map[string]any{
		"event_id": evt.ID,
		"kind":     string(evt.Kind),
		"endpoint": evt.Endpoint.String(),
	})

	switch evt.Kind {
	case bus.KindCommand:
		c.handleCommand(ctx, evt)
	case bus.KindText:
		c.handleText(ctx, evt)
	case bus.KindCallback:
		c.handleControl(ctx, evt)
	default:
		logger.WarnCF("wishlist", "unknown event kind dropped", map[string]any{
			"event_id": evt.ID,
			"kind":     string(evt.Kind),
		})
	}
}

func (c *Coordinator) handleCommand(ctx context.Context, evt bus.InboundEvent) {
	switch evt.Command {
	case "start":
		c.replyWithMenu(ctx, evt, replyUsage)
	case "add":
		c.handleAdd(ctx, evt)
	case "list":
		c.handleList(ctx, evt)
	case "reset":
		c.handleReset(ctx, evt)
	default:
		// Unknown slash commands get the usage text instead of being
		// relayed as chatter.
		c.reply(ctx, evt, replyUsage)
	}
}

// handleList renders the current listing and sends it back to the
// requesting endpoint only, chunked so no single message exceeds the
// transport-safe bound.
func (c *Coordinator) handleList(ctx context.Context, evt bus.InboundEvent) {
	items, err := c.store.ListAll(ctx)
	if err != nil {
		logger.ErrorCF("wishlist", "listing read failed", map[string]any{"error": err.Error()})
		c.reply(ctx, evt, replyListFailure)
		return
	}
	for _, chunk := range c.formatter.Chunks(c.formatter.Render(items)) {
		c.reply(ctx, evt, chunk)
	}
}

// handleReset clears the store, then tells every endpoint. The clear
// completes before anyone is notified.
func (c *Coordinator) handleReset(ctx context.Context, evt bus.InboundEvent) {
	if err := c.store.Clear(ctx); err != nil {
		logger.ErrorCF("wishlist", "reset failed", map[string]any{"error": err.Error()})
		c.reply(ctx, evt, replyGenericFailure)
		return
	}
	c.broadcaster.Broadcast(ctx, c.endpoints, bus.OutboundMessage{Text: noticeListCleared})
}

// reply sends text back to the event's origin endpoint.
func (c *Coordinator) reply(ctx context.Context, evt bus.InboundEvent, text string) {
	err := c.bus.PublishOutbound(ctx, bus.OutboundMessage{
		Endpoint: evt.Endpoint,
		Text:     text,
	})
	if err != nil {
		logger.ErrorCF("wishlist", "reply publish failed", map[string]any{
			"endpoint": evt.Endpoint.String(),
			"error":    err.Error(),
		})
	}
}

// replyWithMenu is reply plus a request to show the command keyboard on
// channels that support one.
func (c *Coordinator) replyWithMenu(ctx context.Context, evt bus.InboundEvent, text string) {
	err := c.bus.PublishOutbound(ctx, bus.OutboundMessage{
		Endpoint: evt.Endpoint,
		Text:     text,
		ShowMenu: true,
	})
	if err != nil {
		logger.ErrorCF("wishlist", "reply publish failed", map[string]any{
			"endpoint": evt.Endpoint.String(),
			"error":    err.Error(),
		})
	}
}
