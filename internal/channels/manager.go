package channels

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// Manager manages all registered channels, handling their lifecycle and
// routing outbound messages to the channel owning each recipient. Delivery
// is fire-and-forget: a failed send is logged and never propagates back to
// the producer.
type Manager struct {
	channels map[identity.Channel]Channel
	bus      OutboundSource
	cancel   context.CancelFunc
	mu       sync.RWMutex
}

// OutboundSource is the slice of the message bus the dispatcher consumes.
type OutboundSource interface {
	SubscribeOutbound(ctx context.Context) (bus.OutboundMessage, bool)
}

// NewManager creates a channel manager. Channels are registered externally
// via Register.
func NewManager(source OutboundSource) *Manager {
	return &Manager{
		channels: make(map[identity.Channel]Channel),
		bus:      source,
	}
}

// Register adds a channel under the given identifier. One implementation may
// serve several identifiers (the WebSocket gateway handles both web and
// mobile).
func (m *Manager) Register(id identity.Channel, ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[id] = ch
}

// StartAll starts all registered channels and the outbound dispatch loop.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.dispatchOutbound(dispatchCtx)

	if len(m.channels) == 0 {
		slog.Warn("no channels enabled")
		return nil
	}

	started := make(map[Channel]bool)
	for id, ch := range m.channels {
		if started[ch] {
			continue
		}
		started[ch] = true
		slog.Info("starting channel", "channel", id)
		if err := ch.Start(ctx); err != nil {
			slog.Error("failed to start channel", "channel", id, "error", err)
		}
	}
	return nil
}

// StopAll gracefully stops all channels and the outbound dispatch loop.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	stopped := make(map[Channel]bool)
	for id, ch := range m.channels {
		if stopped[ch] {
			continue
		}
		stopped[ch] = true
		if err := ch.Stop(ctx); err != nil {
			slog.Error("error stopping channel", "channel", id, "error", err)
		}
	}
	return nil
}

// dispatchOutbound consumes outbound messages from the bus and routes them
// to the channel owning the recipient.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	slog.Info("outbound dispatcher started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbound dispatcher stopped")
			return
		default:
			msg, ok := m.bus.SubscribeOutbound(ctx)
			if !ok {
				continue
			}

			m.mu.RLock()
			ch, exists := m.channels[msg.User.Channel]
			m.mu.RUnlock()

			if !exists {
				slog.Warn("no channel registered for outbound message",
					"channel", msg.User.Channel, "user", msg.User)
				continue
			}

			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("error sending message to channel",
					"channel", msg.User.Channel,
					"user", msg.User,
					"error", err,
				)
			}
		}
	}
}

// Status returns the running state of all registered channels.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]bool, len(m.channels))
	for id, ch := range m.channels {
		status[string(id)] = ch.IsRunning()
	}
	return status
}
