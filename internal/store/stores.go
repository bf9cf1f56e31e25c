// Package store defines the persistence interfaces for chat logs, user
// profiles, voice messages, and the escalation audit trail, with Postgres
// and in-memory implementations. Live escalation routing state is NOT kept
// here — that belongs to the escalation store, which is process-local by
// design.
package store

import (
	"context"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// Stores is the top-level container for all storage backends.
type Stores struct {
	Chats  ChatStore
	Users  UserStore
	Audit  EscalationAuditStore
	Voices VoiceStore
}

// ChatMessage is one persisted chat turn.
type ChatMessage struct {
	ID          int64
	User        identity.UserRef
	UserMessage string
	BotResponse string
	Sentiment   string
	Language    string
	Escalated   bool
	Channel     string
	Timestamp   time.Time
}

// UserStats summarizes a user's chat activity.
type UserStats struct {
	TotalMessages   int
	SentimentCounts map[string]int
	EscalationCount int
	LastActivity    time.Time
}

// ChatStore persists chat turns and serves history.
type ChatStore interface {
	SaveMessage(ctx context.Context, msg ChatMessage) error
	// History returns up to limit turns in chronological order.
	History(ctx context.Context, user identity.UserRef, limit int) ([]ChatMessage, error)
	UserStats(ctx context.Context, user identity.UserRef) (UserStats, error)
}

// UserStore tracks per-user profile metadata.
type UserStore interface {
	// TouchActivity bumps the user's last-activity timestamp and message count.
	TouchActivity(ctx context.Context, user identity.UserRef) error
	PreferredLanguage(ctx context.Context, user identity.UserRef) (string, error)
}

// VoiceMessage is a stored voice payload; transcription is out of scope.
type VoiceMessage struct {
	User      identity.UserRef
	AudioData string
	Duration  int
	MimeType  string
	Timestamp time.Time
}

// VoiceStore persists voice messages for later processing.
type VoiceStore interface {
	SaveVoiceMessage(ctx context.Context, msg VoiceMessage) error
}

// AuditEntry records one escalation lifecycle event, append-only.
type AuditEntry struct {
	EscalationID string
	User         identity.UserRef
	Event        string // "created", "taken_over", "resolved", "discarded", "schedule_requested"
	Agent        string
	Detail       string
	At           time.Time
}

// EscalationAuditStore is the append-only history of escalation events.
// Best-effort: writes never block or fail the escalation path.
type EscalationAuditStore interface {
	Record(ctx context.Context, entry AuditEntry) error
}
