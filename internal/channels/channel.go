// Package channels provides the channel abstraction layer for multi-platform
// messaging. Channels connect delivery surfaces (WebSocket clients, WhatsApp,
// the agent workspace) to the routing pipeline via the message bus.
package channels

import (
	"context"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/bus"
)

// Channel defines the interface that all channel implementations satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g. "web", "whatsapp").
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the user on this channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}
