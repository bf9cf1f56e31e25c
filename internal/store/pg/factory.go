// Package pg provides Postgres-backed implementations of the store
// interfaces, using the pgx stdlib driver through database/sql.
package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/store"
)

// NewPGStores creates all stores backed by Postgres.
func NewPGStores(dsn string) (*store.Stores, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chats := NewPGChatStore(db)
	return &store.Stores{
		Chats:  chats,
		Users:  NewPGUserStore(db),
		Audit:  NewPGAuditStore(db),
		Voices: chats,
	}, nil
}

// OpenDB opens and pings a Postgres connection pool.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
