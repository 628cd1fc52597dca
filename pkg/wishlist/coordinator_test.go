package wishlist

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/relay"
	"github.com/tinyland-inc/wishbot/pkg/session"
	"github.com/tinyland-inc/wishbot/pkg/store"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu     sync.Mutex
	items  map[int64]*store.Item
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{items: make(map[int64]*store.Item)}
}

func (m *memStore) Insert(_ context.Context, contributor, description string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.items[m.nextID] = &store.Item{ID: m.nextID, Contributor: contributor, Description: description}
	return m.nextID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memStore) SetClaimed(_ context.Context, id int64, claimed bool) (*store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.Claimed = claimed
	copied := *item
	return &copied, nil
}

func (m *memStore) ListAll(_ context.Context) ([]*store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Item, 0, len(m.items))
	for _, item := range m.items {
		copied := *item
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[int64]*store.Item)
	return nil
}

func (m *memStore) Close() error { return nil }

// chanDeliverer pushes every delivery onto a channel so tests can wait
// for broadcasts without polling.
type chanDeliverer struct {
	ch chan bus.OutboundMessage
}

func (d *chanDeliverer) Deliver(_ context.Context, msg bus.OutboundMessage) error {
	d.ch <- msg
	return nil
}

type harness struct {
	coord     *Coordinator
	bus       *bus.MessageBus
	store     *memStore
	delivered chan bus.OutboundMessage
	endpoints []bus.Endpoint
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mb := bus.NewMessageBus()
	st := newMemStore()
	delivered := make(chan bus.OutboundMessage, 100)
	broadcaster := relay.NewBroadcaster(&chanDeliverer{ch: delivered}, nil)
	endpoints := []bus.Endpoint{
		{Channel: "telegram", ChatID: "100"},
		{Channel: "discord", ChatID: "200"},
		{Channel: "console", ChatID: "direct"},
	}
	coord := NewCoordinator(mb, st, session.NewStore(time.Minute), broadcaster, endpoints)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go coord.Run(ctx)

	return &harness{coord: coord, bus: mb, store: st, delivered: delivered, endpoints: endpoints}
}

func (h *harness) publish(t *testing.T, evt bus.InboundEvent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.bus.PublishInbound(ctx, evt); err != nil {
		t.Fatalf("publish inbound: %v", err)
	}
}

func (h *harness) awaitReply(t *testing.T) bus.OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, ok := h.bus.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("timed out waiting for a reply")
	}
	return msg
}

func (h *harness) awaitDeliveries(t *testing.T, n int) []bus.OutboundMessage {
	t.Helper()
	msgs := make([]bus.OutboundMessage, 0, n)
	for len(msgs) < n {
		select {
		case msg := <-h.delivered:
			msgs = append(msgs, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out: got %d of %d deliveries", len(msgs), n)
		}
	}
	return msgs
}

func (h *harness) assertNoDelivery(t *testing.T) {
	t.Helper()
	select {
	case msg := <-h.delivered:
		t.Fatalf("unexpected delivery: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func event(kind bus.EventKind) bus.InboundEvent {
	return bus.InboundEvent{
		ID:         "evt-1",
		Kind:       kind,
		Endpoint:   bus.Endpoint{Channel: "telegram", ChatID: "100"},
		SenderID:   "u1",
		SenderName: "Alice",
	}
}

func TestStartCommand_RepliesUsageWithMenu(t *testing.T) {
	h := newHarness(t)

	evt := event(bus.KindCommand)
	evt.Command = "start"
	h.publish(t, evt)

	reply := h.awaitReply(t)
	if reply.Endpoint != evt.Endpoint {
		t.Errorf("reply went to %v, want %v", reply.Endpoint, evt.Endpoint)
	}
	if !reply.ShowMenu {
		t.Error("expected the command menu on the start reply")
	}
	if !strings.Contains(reply.Text, "/add") || !strings.Contains(reply.Text, "/reset") {
		t.Errorf("usage text incomplete: %q", reply.Text)
	}
}

func TestAddFlow_SavesAndAnnouncesWithControls(t *testing.T) {
	h := newHarness(t)

	cmd := event(bus.KindCommand)
	cmd.Command = "add"
	h.publish(t, cmd)
	if reply := h.awaitReply(t); reply.Text != replyAddPrompt {
		t.Errorf("expected prompt, got %q", reply.Text)
	}

	text := event(bus.KindText)
	text.Text = "  Telescope  "
	h.publish(t, text)

	announcements := h.awaitDeliveries(t, len(h.endpoints))
	for _, msg := range announcements {
		if msg.Text != "Alice added a gift: Telescope" {
			t.Errorf("bad announcement: %q", msg.Text)
		}
		if msg.Controls == nil || msg.Controls.ItemID != 1 {
			t.Errorf("announcement missing item controls: %+v", msg)
		}
	}

	items, _ := h.store.ListAll(context.Background())
	if len(items) != 1 || items[0].Description != "Telescope" || items[0].Contributor != "Alice" {
		t.Errorf("unexpected store state: %+v", items)
	}
}

func TestAddFlow_EmptyDescriptionDiscarded(t *testing.T) {
	h := newHarness(t)

	cmd := event(bus.KindCommand)
	cmd.Command = "add"
	h.publish(t, cmd)
	h.awaitReply(t) // prompt

	text := event(bus.KindText)
	text.Text = "   \n "
	h.publish(t, text)

	if reply := h.awaitReply(t); reply.Text != replyEmptyDesc {
		t.Errorf("expected validation reply, got %q", reply.Text)
	}
	h.assertNoDelivery(t)
	if items, _ := h.store.ListAll(context.Background()); len(items) != 0 {
		t.Errorf("item saved despite empty description: %+v", items)
	}

	// The flow ended: the next free text is plain chatter again.
	chatter := event(bus.KindText)
	chatter.Text = "hello everyone"
	h.publish(t, chatter)
	relayed := h.awaitDeliveries(t, len(h.endpoints)-1)
	for _, msg := range relayed {
		if msg.Text != "Alice: hello everyone" {
			t.Errorf("expected relayed chatter, got %q", msg.Text)
		}
	}
}

func TestFreeText_RelayedToOtherEndpointsOnly(t *testing.T) {
	h := newHarness(t)

	text := event(bus.KindText)
	text.Text = "who is bringing cake?"
	h.publish(t, text)

	relayed := h.awaitDeliveries(t, len(h.endpoints)-1)
	for _, msg := range relayed {
		if msg.Endpoint == text.Endpoint {
			t.Errorf("chatter echoed back to the origin endpoint")
		}
		if msg.Text != "Alice: who is bringing cake?" {
			t.Errorf("missing sender prefix: %q", msg.Text)
		}
	}
}

func TestClaim_UpdatesStoreAndBroadcastsStatus(t *testing.T) {
	h := newHarness(t)
	id, _ := h.store.Insert(context.Background(), "Alice", "Telescope")

	cb := event(bus.KindCallback)
	cb.SenderName = "Bob"
	cb.Payload = ClaimPayload(id)
	h.publish(t, cb)

	notices := h.awaitDeliveries(t, len(h.endpoints))
	for _, msg := range notices {
		if msg.Text != "Bob claimed the gift: Telescope" {
			t.Errorf("bad status notice: %q", msg.Text)
		}
	}
	item, _ := h.store.Get(context.Background(), id)
	if !item.Claimed {
		t.Error("item not marked claimed")
	}
}

func TestUnclaim_RepeatedActionStillBroadcasts(t *testing.T) {
	h := newHarness(t)
	id, _ := h.store.Insert(context.Background(), "Alice", "Sled")

	// Unclaim an item that is already unclaimed. The write is a no-op
	// but the notice still goes out.
	cb := event(bus.KindCallback)
	cb.SenderName = "Bob"
	cb.Payload = UnclaimPayload(id)
	h.publish(t, cb)

	notices := h.awaitDeliveries(t, len(h.endpoints))
	for _, msg := range notices {
		if msg.Text != "Bob unclaimed the gift: Sled" {
			t.Errorf("bad status notice: %q", msg.Text)
		}
	}
	item, _ := h.store.Get(context.Background(), id)
	if item.Claimed {
		t.Error("item unexpectedly claimed")
	}
}

func TestControl_UnknownItemRepliesNotFound(t *testing.T) {
	h := newHarness(t)

	cb := event(bus.KindCallback)
	cb.Payload = ClaimPayload(99)
	h.publish(t, cb)

	if reply := h.awaitReply(t); reply.Text != replyItemNotFound {
		t.Errorf("expected not-found reply, got %q", reply.Text)
	}
	h.assertNoDelivery(t)
}

func TestControl_MalformedPayloads(t *testing.T) {
	h := newHarness(t)

	cb := event(bus.KindCallback)
	cb.Payload = "banana"
	h.publish(t, cb)
	if reply := h.awaitReply(t); reply.Text != replyInvalidPayload {
		t.Errorf("expected invalid-payload reply, got %q", reply.Text)
	}

	cb.Payload = "claim:abc"
	h.publish(t, cb)
	if reply := h.awaitReply(t); reply.Text != replyInvalidID {
		t.Errorf("expected invalid-id reply, got %q", reply.Text)
	}
	h.assertNoDelivery(t)
}

func TestList_RepliesOnlyToRequester(t *testing.T) {
	h := newHarness(t)
	h.store.Insert(context.Background(), "Alice", "Telescope")
	h.store.Insert(context.Background(), "Bob", "Sled")

	cmd := event(bus.KindCommand)
	cmd.Command = "list"
	h.publish(t, cmd)

	reply := h.awaitReply(t)
	if reply.Endpoint != cmd.Endpoint {
		t.Errorf("listing sent to %v, want origin %v", reply.Endpoint, cmd.Endpoint)
	}
	if !strings.Contains(reply.Text, "1. Alice: Telescope") || !strings.Contains(reply.Text, "2. Bob: Sled") {
		t.Errorf("listing incomplete: %q", reply.Text)
	}
	h.assertNoDelivery(t)
}

func TestList_EmptyWishlist(t *testing.T) {
	h := newHarness(t)

	cmd := event(bus.KindCommand)
	cmd.Command = "list"
	h.publish(t, cmd)

	if reply := h.awaitReply(t); reply.Text != EmptyListMessage {
		t.Errorf("expected empty-list message, got %q", reply.Text)
	}
}

func TestReset_ClearsBeforeBroadcast(t *testing.T) {
	h := newHarness(t)
	h.store.Insert(context.Background(), "Alice", "Telescope")

	cmd := event(bus.KindCommand)
	cmd.Command = "reset"
	h.publish(t, cmd)

	notices := h.awaitDeliveries(t, len(h.endpoints))
	for _, msg := range notices {
		if msg.Text != noticeListCleared {
			t.Errorf("bad reset notice: %q", msg.Text)
		}
	}
	if items, _ := h.store.ListAll(context.Background()); len(items) != 0 {
		t.Errorf("store not cleared: %+v", items)
	}
}

func TestUnknownCommand_RepliesUsage(t *testing.T) {
	h := newHarness(t)

	cmd := event(bus.KindCommand)
	cmd.Command = "dance"
	h.publish(t, cmd)

	if reply := h.awaitReply(t); !strings.Contains(reply.Text, "/add") {
		t.Errorf("expected usage text, got %q", reply.Text)
	}
}
