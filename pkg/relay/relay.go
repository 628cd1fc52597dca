// Package relay fans messages out to registered chat endpoints.
//
// Broadcasts attempt every endpoint independently: one unreachable
// endpoint never aborts delivery to the rest. Failures are reported to
// the operator (logs + delivery meters), never to end users.
package relay

import (
	"context"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/metrics"
)

// Deliverer performs one synchronous delivery to a single endpoint.
// The channel manager implements this.
type Deliverer interface {
	Deliver(ctx context.Context, msg bus.OutboundMessage) error
}

// Failure records one endpoint that could not be reached.
type Failure struct {
	Endpoint bus.Endpoint
	Err      error
}

// Report aggregates the outcome of one broadcast.
type Report struct {
	Delivered int
	Failures  []Failure
}

// OK reports whether every endpoint received the message.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Broadcaster fans one message out to a fixed endpoint snapshot.
type Broadcaster struct {
	deliverer Deliverer
	meters    *metrics.DeliveryMeterStore
}

// NewBroadcaster creates a broadcaster. meters may be nil.
func NewBroadcaster(d Deliverer, meters *metrics.DeliveryMeterStore) *Broadcaster {
	return &Broadcaster{deliverer: d, meters: meters}
}

// Broadcast sends msg to every endpoint, attempting each independently.
// The endpoint set is the caller's snapshot; it is not mutated here.
func (b *Broadcaster) Broadcast(ctx context.Context, endpoints []bus.Endpoint, msg bus.OutboundMessage) Report {
	var report Report
	for _, ep := range endpoints {
		m := msg
		m.Endpoint = ep
		if err := b.deliverer.Deliver(ctx, m); err != nil {
			report.Failures = append(report.Failures, Failure{Endpoint: ep, Err: err})
			if b.meters != nil {
				b.meters.RecordFailure(ep.String(), err)
			}
			logger.ErrorCF("relay", "broadcast delivery failed", map[string]any{
				"endpoint": ep.String(),
				"error":    err.Error(),
			})
			continue
		}
		report.Delivered++
		if b.meters != nil {
			b.meters.RecordSend(ep.String())
		}
	}
	return report
}

// RelayText forwards free-text chat traffic to every endpoint except the
// one it originated from, prefixed with the sender's display name.
func (b *Broadcaster) RelayText(ctx context.Context, endpoints []bus.Endpoint, origin bus.Endpoint, sender, text string) Report {
	targets := make([]bus.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep == origin {
			continue
		}
		targets = append(targets, ep)
	}
	return b.Broadcast(ctx, targets, bus.OutboundMessage{Text: sender + ": " + text})
}
