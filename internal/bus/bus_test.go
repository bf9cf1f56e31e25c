package bus

import (
	"context"
	"testing"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

func TestInboundRoundTrip(t *testing.T) {
	b := New()
	want := InboundMessage{
		User: identity.UserRef{Channel: identity.ChannelWhatsApp, RawID: "15551234567"},
		Text: "hello",
	}
	b.PublishInbound(want)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a message")
	}
	if got.User != want.User || got.Text != want.Text {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestConsumeInboundCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Error("expected ok=false after cancel")
	}
}

func TestOutboundRoundTrip(t *testing.T) {
	b := New()
	b.PublishOutbound(OutboundMessage{
		User: identity.UserRef{Channel: identity.ChannelWeb, RawID: "u1"},
		Text: "hi",
		Type: TypeBot,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := b.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("expected a message")
	}
	if got.Text != "hi" || got.Type != TypeBot {
		t.Errorf("unexpected message: %+v", got)
	}
}

func TestPublishInboundFullQueueDoesNotBlock(t *testing.T) {
	b := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize+10; i++ {
			b.PublishInbound(InboundMessage{Text: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishInbound blocked on full queue")
	}
}

func TestBroadcast(t *testing.T) {
	b := New()
	got := make(chan Event, 1)
	b.Subscribe("c1", func(e Event) { got <- e })

	b.Broadcast(Event{Name: "health"})

	select {
	case e := <-got:
		if e.Name != "health" {
			t.Errorf("event name = %q, want health", e.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}

	b.Unsubscribe("c1")
	b.Broadcast(Event{Name: "health"})
	select {
	case <-got:
		t.Error("handler invoked after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
