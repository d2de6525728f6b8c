package feed

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuditSchema creates the event log written by AuditHandler.
const AuditSchema = `CREATE TABLE IF NOT EXISTS workout_event_log (
	id             BIGSERIAL PRIMARY KEY,
	event_type     TEXT        NOT NULL,
	workout_id     TEXT        NOT NULL DEFAULT '',
	schema_id      INTEGER     NOT NULL,
	schema_subject TEXT        NOT NULL DEFAULT '',
	topic          TEXT        NOT NULL,
	partition      INTEGER     NOT NULL,
	record_offset  BIGINT      NOT NULL,
	payload        JSONB       NOT NULL,
	received_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (topic, partition, record_offset)
)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditHandler writes consumed events into Postgres.
type AuditHandler struct {
	db execer
}

// NewAuditHandler constructs a handler backed by db, usually a *pgxpool.Pool.
func NewAuditHandler(db execer) *AuditHandler {
	return &AuditHandler{db: db}
}

// EnsureSchema creates the event log table.
func (h *AuditHandler) EnsureSchema(ctx context.Context) error {
	_, err := h.db.Exec(ctx, AuditSchema)
	return err
}

// Handle stores msg. Redelivered records are ignored.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.db.Exec(ctx,
		`INSERT INTO workout_event_log (event_type, workout_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.Key,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}
