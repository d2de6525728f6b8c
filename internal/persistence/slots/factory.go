// Package slots selects a durable slot backend from configuration.
package slots

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thanhtrancs/Mapty/internal/config"
	"github.com/thanhtrancs/Mapty/internal/persistence"
	"github.com/thanhtrancs/Mapty/internal/persistence/file"
	"github.com/thanhtrancs/Mapty/internal/persistence/memory"
	"github.com/thanhtrancs/Mapty/internal/persistence/postgres"
	"github.com/thanhtrancs/Mapty/internal/persistence/s3"
	"github.com/thanhtrancs/Mapty/internal/persistence/sqlite"
)

// Driver names a slot backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
)

// Open constructs the configured slot. The returned close function releases
// any underlying connections and is never nil.
func Open(ctx context.Context, cfg config.Config) (persistence.Slot, func(), error) {
	noop := func() {}

	switch Driver(strings.ToLower(cfg.SlotDriver)) {
	case DriverMemory, "":
		return memory.New(), noop, nil
	case DriverFile:
		slot, err := file.New(cfg.SlotFileDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file slot: %w", err)
		}
		return slot, noop, nil
	case DriverSQLite:
		slot, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return slot, func() { _ = slot.Close() }, nil
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		slot := postgres.NewSlot(pool)
		if err := slot.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return slot, pool.Close, nil
	case DriverS3:
		slot, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open s3 slot: %w", err)
		}
		return slot, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown slot driver %q", cfg.SlotDriver)
	}
}
