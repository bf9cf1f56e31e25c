package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
)

// PGChatStore implements store.ChatStore and store.VoiceStore backed by
// Postgres.
type PGChatStore struct {
	db *sql.DB
}

var (
	_ store.ChatStore  = (*PGChatStore)(nil)
	_ store.VoiceStore = (*PGChatStore)(nil)
)

func NewPGChatStore(db *sql.DB) *PGChatStore {
	return &PGChatStore{db: db}
}

func (s *PGChatStore) SaveMessage(ctx context.Context, msg store.ChatMessage) error {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (user_ref, user_message, bot_response, sentiment, language, escalated, channel, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.User.String(), msg.UserMessage, msg.BotResponse, msg.Sentiment,
		msg.Language, msg.Escalated, string(msg.User.Channel), ts,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *PGChatStore) History(ctx context.Context, user identity.UserRef, limit int) ([]store.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_message, bot_response, sentiment, language, escalated, created_at
		 FROM (
		   SELECT id, user_message, bot_response, sentiment, language, escalated, created_at
		   FROM chat_messages WHERE user_ref = $1
		   ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		user.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []store.ChatMessage
	for rows.Next() {
		msg := store.ChatMessage{User: user, Channel: string(user.Channel)}
		if err := rows.Scan(&msg.ID, &msg.UserMessage, &msg.BotResponse,
			&msg.Sentiment, &msg.Language, &msg.Escalated, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PGChatStore) UserStats(ctx context.Context, user identity.UserRef) (store.UserStats, error) {
	stats := store.UserStats{SentimentCounts: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx,
		`SELECT sentiment, COUNT(*) FROM chat_messages
		 WHERE user_ref = $1 AND sentiment <> '' GROUP BY sentiment`,
		user.String(),
	)
	if err != nil {
		return stats, fmt.Errorf("query sentiment counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sentiment string
		var count int
		if err := rows.Scan(&sentiment, &count); err != nil {
			return stats, err
		}
		stats.SentimentCounts[sentiment] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN escalated THEN 1 ELSE 0 END), 0), MAX(created_at)
		 FROM chat_messages WHERE user_ref = $1`,
		user.String(),
	).Scan(&stats.TotalMessages, &stats.EscalationCount, &last)
	if err != nil {
		return stats, fmt.Errorf("query totals: %w", err)
	}
	if last.Valid {
		stats.LastActivity = last.Time
	}
	return stats, nil
}

func (s *PGChatStore) SaveVoiceMessage(ctx context.Context, msg store.VoiceMessage) error {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_messages (user_ref, audio_data, duration_seconds, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.User.String(), msg.AudioData, msg.Duration, msg.MimeType, ts,
	)
	if err != nil {
		return fmt.Errorf("insert voice message: %w", err)
	}
	return nil
}
