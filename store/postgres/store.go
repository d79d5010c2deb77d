// Package postgres provides a PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rbaliyan/conversation/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL", "table", s.opts.table, "folder_table", s.opts.folderTable)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureSchema creates the required tables and indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	t, ft := s.opts.table, s.opts.folderTable

	tables := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			owner_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255) NOT NULL DEFAULT '',
			parent_id VARCHAR(255) NOT NULL DEFAULT '',
			from_id VARCHAR(255) NOT NULL,
			to_ids TEXT[] NOT NULL DEFAULT '{}',
			cc_ids TEXT[] NOT NULL DEFAULT '{}',
			display_names JSONB NOT NULL DEFAULT '[]',
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			state VARCHAR(16) NOT NULL,
			folder VARCHAR(16) NOT NULL,
			user_folder_id VARCHAR(64) NOT NULL DEFAULT '',
			unread BOOLEAN NOT NULL DEFAULT FALSE,
			trashed BOOLEAN NOT NULL DEFAULT FALSE,
			trashed_at TIMESTAMPTZ,
			attachments JSONB NOT NULL DEFAULT '[]',
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			owner_id VARCHAR(255) NOT NULL,
			name TEXT NOT NULL,
			parent_id VARCHAR(64) NOT NULL DEFAULT '',
			depth INTEGER NOT NULL DEFAULT 1,
			trashed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, ft),
	}
	for _, q := range tables {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner_folder ON %s(owner_id, folder, user_folder_id, trashed, date DESC)`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner_user_folder ON %s(owner_id, user_folder_id) WHERE user_folder_id <> ''`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_trashed_at ON %s(trashed_at) WHERE trashed`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_attachments ON %s USING GIN(attachments jsonb_path_ops)`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(owner_id, name)`, ft, ft),
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			s.logger.Warn("failed to create index", "error", err, "sql", idx)
		}
	}
	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// validIDs drops ids that are not UUIDs; they can never match a row and
// would make the UUID cast fail.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
