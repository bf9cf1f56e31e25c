package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/identity"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
)

// PGUserStore implements store.UserStore backed by Postgres.
type PGUserStore struct {
	db *sql.DB
}

var _ store.UserStore = (*PGUserStore)(nil)

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) TouchActivity(ctx context.Context, user identity.UserRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_ref, channel, message_count, last_activity)
		 VALUES ($1, $2, 1, $3)
		 ON CONFLICT (user_ref) DO UPDATE
		 SET message_count = users.message_count + 1, last_activity = $3`,
		user.String(), string(user.Channel), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("touch user activity: %w", err)
	}
	return nil
}

func (s *PGUserStore) PreferredLanguage(ctx context.Context, user identity.UserRef) (string, error) {
	var lang sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT preferred_language FROM users WHERE user_ref = $1`,
		user.String(),
	).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return "en", nil
	}
	if err != nil {
		return "en", fmt.Errorf("query preferred language: %w", err)
	}
	if lang.Valid && lang.String != "" {
		return lang.String, nil
	}
	return "en", nil
}
