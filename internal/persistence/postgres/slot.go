// Package postgres keeps slot payloads in a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thanhtrancs/Mapty/internal/persistence"
)

// Schema creates the slot table.
const Schema = `CREATE TABLE IF NOT EXISTS slots (
    slot_key   TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// querier is the subset of *pgxpool.Pool used by Slot.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Slot provides Postgres-backed storage for the durable slot.
type Slot struct {
	db querier
}

// NewSlot constructs a Slot over a pool or connection.
func NewSlot(db querier) *Slot {
	return &Slot{db: db}
}

// EnsureSchema creates the slot table when missing.
func (s *Slot) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create slots table: %w", err)
	}
	return nil
}

// Get implements persistence.Slot.
func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT payload FROM slots WHERE slot_key=$1`

	var payload []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persistence.ErrSlotEmpty
		}
		return nil, err
	}
	return payload, nil
}

// Put implements persistence.Slot.
func (s *Slot) Put(ctx context.Context, key string, payload []byte) error {
	const stmt = `INSERT INTO slots (slot_key, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (slot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	_, err := s.db.Exec(ctx, stmt, key, payload)
	return err
}

// Delete implements persistence.Slot.
func (s *Slot) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM slots WHERE slot_key=$1`, key)
	return err
}
