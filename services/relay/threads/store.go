// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package threads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned by Store.Lookup when no record exists for the
// user. Callers must distinguish it from real lookup failures: a missing
// record triggers thread creation, anything else is fatal to the request.
var ErrNotFound = errors.New("no thread record for user")

// Store is the persistence collaborator for user-to-thread mappings.
type Store interface {
	Lookup(ctx context.Context, userID string) (threadID string, err error)
	Upsert(ctx context.Context, userID, threadID string) error
}

// identRe guards the configurable table name, which is interpolated into
// SQL text because placeholders cannot carry identifiers.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLStore implements Store on a Postgres table keyed unique on user_id.
type SQLStore struct {
	db    *sql.DB
	table string
}

// NewSQLStore validates the table name and creates the table if it does
// not exist yet, so the store contract is self-contained.
func NewSQLStore(ctx context.Context, db *sql.DB, table string) (*SQLStore, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid threads table name %q", table)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id    TEXT PRIMARY KEY,
		thread_id  TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to ensure the threads table: %w", err)
	}
	return &SQLStore{db: db, table: table}, nil
}

func (s *SQLStore) Lookup(ctx context.Context, userID string) (string, error) {
	query := fmt.Sprintf("SELECT thread_id FROM %s WHERE user_id = $1", s.table)
	var threadID string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up the thread record: %w", err)
	}
	return threadID, nil
}

// Upsert inserts or overwrites the mapping for userID. Overwrite, not
// insert, is required: a stale record must be replaced in place so exactly
// one record exists per user.
func (s *SQLStore) Upsert(ctx context.Context, userID, threadID string) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, thread_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET thread_id = EXCLUDED.thread_id, updated_at = now()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, userID, threadID); err != nil {
		return fmt.Errorf("failed to upsert the thread record: %w", err)
	}
	return nil
}
