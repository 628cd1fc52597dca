// Package digest broadcasts the full wishlist on a cron schedule, so
// endpoints that joined late or missed announcements still get a
// periodic summary.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/relay"
	"github.com/tinyland-inc/wishbot/pkg/store"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

const digestHeader = "📬 Wishlist digest"

// Service periodically broadcasts the rendered wishlist.
type Service struct {
	schedule    string
	store       store.Store
	broadcaster *relay.Broadcaster
	formatter   *wishlist.Formatter
	endpoints   []bus.Endpoint
}

// New validates the cron expression up front so a bad schedule fails at
// startup, not at the first tick.
func New(schedule string, st store.Store, broadcaster *relay.Broadcaster, endpoints []bus.Endpoint) (*Service, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid digest schedule %q", schedule)
	}
	return &Service{
		schedule:    schedule,
		store:       st,
		broadcaster: broadcaster,
		formatter:   wishlist.NewFormatter(),
		endpoints:   endpoints,
	}, nil
}

// Run ticks on the schedule until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	logger.InfoCF("digest", "digest scheduler started", map[string]any{
		"schedule": s.schedule,
	})
	for {
		next, err := gronx.NextTickAfter(s.schedule, time.Now(), false)
		if err != nil {
			logger.ErrorCF("digest", "schedule evaluation failed", map[string]any{"error": err.Error()})
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.broadcastDigest(ctx)
		}
	}
}

// broadcastDigest sends the current listing to every endpoint. An empty
// wishlist produces no digest.
func (s *Service) broadcastDigest(ctx context.Context) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		logger.ErrorCF("digest", "listing read failed", map[string]any{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		logger.DebugC("digest", "wishlist empty, digest skipped")
		return
	}

	text := digestHeader + "\n\n" + s.formatter.Render(items)
	for _, chunk := range s.formatter.Chunks(text) {
		s.broadcaster.Broadcast(ctx, s.endpoints, bus.OutboundMessage{Text: chunk})
	}
	logger.InfoCF("digest", "digest broadcast", map[string]any{
		"items":     len(items),
		"endpoints": len(s.endpoints),
	})
}
