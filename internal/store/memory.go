package store

import (
	"context"
	"sync"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
)

// NewMemory returns Stores backed by process memory. Used when no Postgres
// DSN is configured and as the test double everywhere else.
func NewMemory() *Stores {
	m := &memoryBackend{
		chats:    make(map[string][]ChatMessage),
		users:    make(map[string]*memoryUser),
		voices:   make(map[string][]VoiceMessage),
		maxTurns: 1000,
	}
	return &Stores{Chats: m, Users: m, Audit: m, Voices: m}
}

type memoryUser struct {
	messageCount int
	lastActivity time.Time
	language     string
}

type memoryBackend struct {
	mu       sync.Mutex
	chats    map[string][]ChatMessage
	users    map[string]*memoryUser
	voices   map[string][]VoiceMessage
	audit    []AuditEntry
	maxTurns int
	nextID   int64
}

func (m *memoryBackend) SaveMessage(_ context.Context, msg ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	key := msg.User.String()
	turns := append(m.chats[key], msg)
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.chats[key] = turns
	if msg.Language != "" {
		u := m.user(key)
		u.language = msg.Language
	}
	return nil
}

func (m *memoryBackend) History(_ context.Context, user identity.UserRef, limit int) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.chats[user.String()]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]ChatMessage, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *memoryBackend) UserStats(_ context.Context, user identity.UserRef) (UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := UserStats{SentimentCounts: make(map[string]int)}
	for _, turn := range m.chats[user.String()] {
		stats.TotalMessages++
		if turn.Sentiment != "" {
			stats.SentimentCounts[turn.Sentiment]++
		}
		if turn.Escalated {
			stats.EscalationCount++
		}
		if turn.Timestamp.After(stats.LastActivity) {
			stats.LastActivity = turn.Timestamp
		}
	}
	return stats, nil
}

func (m *memoryBackend) TouchActivity(_ context.Context, user identity.UserRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(user.String())
	u.messageCount++
	u.lastActivity = time.Now()
	return nil
}

func (m *memoryBackend) PreferredLanguage(_ context.Context, user identity.UserRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[user.String()]; ok && u.language != "" {
		return u.language, nil
	}
	return "en", nil
}

func (m *memoryBackend) SaveVoiceMessage(_ context.Context, msg VoiceMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	key := msg.User.String()
	m.voices[key] = append(m.voices[key], msg)
	return nil
}

func (m *memoryBackend) Record(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	m.audit = append(m.audit, entry)
	return nil
}

// AuditEntries returns a copy of the recorded audit trail, oldest first.
// Only the memory backend exposes this; tests use it.
func (m *memoryBackend) AuditEntries() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}

func (m *memoryBackend) user(key string) *memoryUser {
	u, ok := m.users[key]
	if !ok {
		u = &memoryUser{}
		m.users[key] = u
	}
	return u
}
