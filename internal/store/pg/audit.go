package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
)

// PGAuditStore implements store.EscalationAuditStore backed by Postgres.
type PGAuditStore struct {
	db *sql.DB
}

var _ store.EscalationAuditStore = (*PGAuditStore)(nil)

func NewPGAuditStore(db *sql.DB) *PGAuditStore {
	return &PGAuditStore{db: db}
}

func (s *PGAuditStore) Record(ctx context.Context, entry store.AuditEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escalation_events (escalation_id, user_ref, event, agent, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.EscalationID, entry.User.String(), entry.Event, entry.Agent, entry.Detail, at,
	)
	if err != nil {
		return fmt.Errorf("insert escalation event: %w", err)
	}
	return nil
}
