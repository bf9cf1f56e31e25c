package bus

import (
	"context"
	"log/slog"
	"sync"
)

const queueSize = 256

// MessageBus routes messages between channel gateways and the decision
// pipeline, and fans out events to subscribed live-connection clients.
// Single-process only; escalation state lives in its own store.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu   sync.RWMutex
	subs map[string]EventHandler
}

// New creates a message bus with bounded queues.
func New() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, queueSize),
		outbound: make(chan OutboundMessage, queueSize),
		subs:     make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a normalized user message for the pipeline.
// Drops with a warning if the queue is full rather than blocking a
// webhook handler.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound queue full, dropping message", "user", msg.User.String())
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// PublishOutbound enqueues a reply for the channel dispatcher.
// Fire-and-forget: a full queue drops the message with a warning,
// matching the per-channel delivery contract.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		slog.Warn("outbound queue full, dropping message", "user", msg.User.String())
	}
}

// SubscribeOutbound blocks until an outbound message is available or ctx is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}

// Subscribe registers an event handler under id, replacing any previous
// handler with the same id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = handler
}

// Unsubscribe removes an event handler.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Broadcast delivers an event to all subscribers. Handlers must not block.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
