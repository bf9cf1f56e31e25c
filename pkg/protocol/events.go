// Package protocol defines the wire-visible constants and frame shapes of
// the live-connection protocol used by web and mobile clients.
package protocol

// ProtocolVersion is bumped on breaking changes to the live-connection frames.
const ProtocolVersion = 1

// Client → server event names.
const (
	EventChatMessage = "chat_message"
)

// Server → client event names. EventEscalationAlert goes only to admin
// sessions, not to end users.
const (
	EventBotResponse     = "bot_response"
	EventAdminResponse   = "admin_response"
	EventError           = "error"
	EventEscalationAlert = "escalation_alert"
)

// ChatMessage is the client → server chat frame. Voice messages set
// Type="voice" and the audio fields instead of Message.
type ChatMessage struct {
	Type      string `json:"type,omitempty"` // "" = text, "voice"
	Message   string `json:"message,omitempty"`
	Language  string `json:"language,omitempty"`
	AudioData string `json:"audioData,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// BotResponse is the automated-reply frame pushed to the originating client.
type BotResponse struct {
	Message   string `json:"message"`
	Sentiment string `json:"sentiment,omitempty"`
	Language  string `json:"language,omitempty"`
	Escalated bool   `json:"escalated"`
	Timestamp string `json:"timestamp"`
}

// AdminResponse is an agent-authored message relayed into the client,
// rendered distinctly from bot output.
type AdminResponse struct {
	Content      string `json:"content"`
	AdminName    string `json:"adminName,omitempty"`
	Timestamp    string `json:"timestamp"`
	IsEscalation bool   `json:"isEscalation"`
}

// ErrorEvent carries the generic user-visible failure message. Internal
// error detail is never exposed to end users.
type ErrorEvent struct {
	Message string `json:"message"`
}

// EscalationAlert is pushed to connected admin sessions when a conversation
// is handed off to a human agent.
type EscalationAlert struct {
	EscalationID string `json:"escalationId"`
	UserID       string `json:"userId"`
	Channel      string `json:"channel"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
}

// EventFrame is the envelope for all server → client events.
type EventFrame struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}
