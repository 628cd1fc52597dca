package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/store"
)

// Control payload wire format: "<action>:<id>" with a decimal item id.
var (
	ErrInvalidPayload = errors.New("invalid control payload")
	ErrInvalidID      = errors.New("invalid item identifier")
)

// ActionKind is the decoded control verb.
type ActionKind int

const (
	ActionClaim ActionKind = iota
	ActionUnclaim
)

// Action is a strictly decoded control interaction.
type Action struct {
	Kind   ActionKind
	ItemID int64
}

// Claimed returns the claimed value this action applies.
func (a Action) Claimed() bool { return a.Kind == ActionClaim }

// ClaimPayload builds the wire payload for a claim control.
func ClaimPayload(id int64) string { return fmt.Sprintf("claim:%d", id) }

// UnclaimPayload builds the wire payload for an unclaim control.
func UnclaimPayload(id int64) string { return fmt.Sprintf("unclaim:%d", id) }

// ParseControlPayload decodes a control payload. It is the only place
// the wire format is taken apart.
func ParseControlPayload(payload string) (Action, error) {
	verb, rest, found := strings.Cut(payload, ":")
	if !found {
		return Action{}, ErrInvalidPayload
	}

	var kind ActionKind
	switch verb {
	case "claim":
		kind = ActionClaim
	case "unclaim":
		kind = ActionUnclaim
	default:
		return Action{}, ErrInvalidPayload
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Action{}, ErrInvalidID
	}

	return Action{Kind: kind, ItemID: id}, nil
}

// handleControl decodes and applies a claim/unclaim interaction, then
// announces the status change to every endpoint. The announcement fires
// on every successful action, even when the claimed value was already
// set, so participants see each press.
func (c *Coordinator) handleControl(ctx context.Context, evt bus.InboundEvent) {
	action, err := ParseControlPayload(evt.Payload)
	switch {
	case errors.Is(err, ErrInvalidPayload):
		c.reply(ctx, evt, replyInvalidPayload)
		return
	case errors.Is(err, ErrInvalidID):
		c.reply(ctx, evt, replyInvalidID)
		return
	}

	item, err := c.store.Get(ctx, action.ItemID)
	if errors.Is(err, store.ErrNotFound) {
		c.reply(ctx, evt, replyItemNotFound)
		return
	}
	if err != nil {
		logger.ErrorCF("wishlist", "item lookup failed", map[string]any{
			"item_id": action.ItemID,
			"error":   err.Error(),
		})
		c.reply(ctx, evt, replyGenericFailure)
		return
	}

	if _, err := c.store.SetClaimed(ctx, action.ItemID, action.Claimed()); err != nil {
		logger.ErrorCF("wishlist", "claim update failed", map[string]any{
			"item_id": action.ItemID,
			"error":   err.Error(),
		})
		c.reply(ctx, evt, replyGenericFailure)
		return
	}

	verb := "claimed"
	if !action.Claimed() {
		verb = "unclaimed"
	}
	notice := fmt.Sprintf("%s %s the gift: %s", evt.SenderName, verb, item.Description)
	c.broadcaster.Broadcast(ctx, c.endpoints, bus.OutboundMessage{Text: notice})
}
