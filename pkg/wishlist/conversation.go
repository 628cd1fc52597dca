package wishlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/session"
)

func sessionKey(evt bus.InboundEvent) session.Key {
	return session.Key{UserID: evt.SenderID, Endpoint: evt.Endpoint}
}

// handleAdd opens the add flow: the next free-text message from this
// user on this endpoint becomes the gift description.
func (c *Coordinator) handleAdd(ctx context.Context, evt bus.InboundEvent) {
	c.sessions.Begin(sessionKey(evt), evt.SenderName)
	c.reply(ctx, evt, replyAddPrompt)
}

// handleText routes free text: a pending add flow consumes it as the
// gift description, otherwise it is relayed as chatter to the other
// endpoints.
func (c *Coordinator) handleText(ctx context.Context, evt bus.InboundEvent) {
	key := sessionKey(evt)
	sess := c.sessions.Get(key)
	if sess == nil || sess.State != session.StateAwaitingDescription {
		c.broadcaster.RelayText(ctx, c.endpoints, evt.Endpoint, evt.SenderName, evt.Text)
		return
	}

	// The flow ends with this message either way. A failed save does
	// not keep the session alive; the user re-runs /add.
	c.sessions.End(key)

	description := strings.TrimSpace(evt.Text)
	if description == "" {
		c.reply(ctx, evt, replyEmptyDesc)
		return
	}

	id, err := c.store.Insert(ctx, evt.SenderName, description)
	if err != nil {
		logger.ErrorCF("wishlist", "item insert failed", map[string]any{
			"sender": evt.SenderName,
			"error":  err.Error(),
		})
		c.reply(ctx, evt, replyGenericFailure)
		return
	}

	logger.InfoCF("wishlist", "item added", map[string]any{
		"item_id":     id,
		"contributor": evt.SenderName,
	})
	c.broadcaster.Broadcast(ctx, c.endpoints, bus.OutboundMessage{
		Text:     fmt.Sprintf("%s added a gift: %s", evt.SenderName, description),
		Controls: &bus.ItemControls{ItemID: id},
	})
}
