package bus

import (
	"context"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// InboundMessage is a user message normalized from any channel gateway
// (live connection, WhatsApp webhook). The workspace never produces
// InboundMessages: agent activity flows through the notifier instead.
type InboundMessage struct {
	User     identity.UserRef  `json:"user"`
	Text     string            `json:"text"`
	Language string            `json:"language,omitempty"` // "en"/"es", empty = detect
	Voice    *VoiceData        `json:"voice,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"` // channel-specific reply-routing fields
}

// VoiceData carries an inbound voice message payload. Voice content is
// stored and acknowledged, never transcribed or escalated on content.
type VoiceData struct {
	AudioData string `json:"audio_data"` // base64
	Duration  int    `json:"duration"`   // seconds
	MimeType  string `json:"mime_type"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Message origin tags, rendered distinctly by clients.
const (
	TypeBot   = "bot"
	TypeAdmin = "admin"
)

// OutboundMessage is a reply to be delivered to a user on their channel.
type OutboundMessage struct {
	User       identity.UserRef  `json:"user"`
	Text       string            `json:"text"`
	Type       string            `json:"type"`                 // TypeBot or TypeAdmin
	Sentiment  string            `json:"sentiment,omitempty"`  // annotate per channel rules
	Language   string            `json:"language,omitempty"`
	Escalated  bool              `json:"escalated,omitempty"`  // append escalation notice
	SenderName string            `json:"sender_name,omitempty"` // agent display name for admin messages
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Event is a server-side event broadcast to live-connection clients.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription so the gateway
// server does not depend on the concrete MessageBus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// MessageRouter abstracts inbound/outbound message routing between the
// channel gateways and the decision pipeline.
type MessageRouter interface {
	PublishInbound(msg InboundMessage)
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
	PublishOutbound(msg OutboundMessage)
	SubscribeOutbound(ctx context.Context) (OutboundMessage, bool)
}
