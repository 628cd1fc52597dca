package channels

import (
	"context"
	"strings"
	"testing"

	"github.com/tinyland-inc/wishbot/pkg/bus"
)

// stubChannel records sends and advertises a message length limit.
type stubChannel struct {
	*BaseChannel
	sent    []bus.OutboundMessage
	started bool
}

func newStubChannel(name string, mb *bus.MessageBus, limit int) *stubChannel {
	return &stubChannel{
		BaseChannel: NewBaseChannel(name, mb, WithMaxMessageLength(limit)),
	}
}

func (s *stubChannel) Start(ctx context.Context) error {
	s.started = true
	s.SetRunning(true)
	return nil
}

func (s *stubChannel) Stop(ctx context.Context) error {
	s.SetRunning(false)
	return nil
}

func (s *stubChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestDeliver_RoutesByEndpointChannel(t *testing.T) {
	mb := bus.NewMessageBus()
	m := &Manager{channels: make(map[string]Channel), bus: mb}
	tg := newStubChannel("telegram", mb, 0)
	dc := newStubChannel("discord", mb, 0)
	m.Register(tg)
	m.Register(dc)

	err := m.Deliver(context.Background(), bus.OutboundMessage{
		Endpoint: bus.Endpoint{Channel: "discord", ChatID: "42"},
		Text:     "hello",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(dc.sent) != 1 || len(tg.sent) != 0 {
		t.Errorf("message routed wrong: discord=%d telegram=%d", len(dc.sent), len(tg.sent))
	}
}

func TestDeliver_UnknownChannel(t *testing.T) {
	m := &Manager{channels: make(map[string]Channel)}

	err := m.Deliver(context.Background(), bus.OutboundMessage{
		Endpoint: bus.Endpoint{Channel: "matrix", ChatID: "1"},
	})
	if err == nil {
		t.Fatal("expected an error for an unregistered channel")
	}
}

func TestDeliver_SplitsLongMessages(t *testing.T) {
	mb := bus.NewMessageBus()
	m := &Manager{channels: make(map[string]Channel), bus: mb}
	ch := newStubChannel("telegram", mb, 10)
	m.Register(ch)

	text := strings.Repeat("é", 25) // multi-byte, 25 runes
	err := m.Deliver(context.Background(), bus.OutboundMessage{
		Endpoint: bus.Endpoint{Channel: "telegram", ChatID: "42"},
		Text:     text,
		Controls: &bus.ItemControls{ItemID: 3},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(ch.sent) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(ch.sent))
	}
	var joined strings.Builder
	for i, piece := range ch.sent {
		joined.WriteString(piece.Text)
		last := i == len(ch.sent)-1
		if !last && piece.Controls != nil {
			t.Error("controls attached to a non-final piece")
		}
		if last && (piece.Controls == nil || piece.Controls.ItemID != 3) {
			t.Error("controls missing from the final piece")
		}
	}
	if joined.String() != text {
		t.Error("pieces do not concatenate back to the original text")
	}
}

func TestStartAll_SkipsFailuresKeepsGoing(t *testing.T) {
	mb := bus.NewMessageBus()
	m := &Manager{channels: make(map[string]Channel), bus: mb}
	ok := newStubChannel("telegram", mb, 0)
	m.Register(ok)
	m.Register(failingChannel{NewBaseChannel("discord", mb)})

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("expected partial start to succeed, got %v", err)
	}
	if !ok.started {
		t.Error("healthy channel was not started")
	}
}

type failingChannel struct{ *BaseChannel }

func (f failingChannel) Start(ctx context.Context) error { return context.DeadlineExceeded }
func (f failingChannel) Stop(ctx context.Context) error  { return nil }
func (f failingChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	return nil
}
