// Package persistence writes the workout collection to a single durable
// key-value slot and rebuilds typed workouts from it.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/thanhtrancs/Mapty/internal/observability"
	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Key addresses the slot holding the serialised collection.
const Key = "workouts"

// ErrSlotEmpty is returned by Slot.Get when nothing is stored under the key.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a durable key-value cell.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the logger used to report unreadable data.
func WithLogger(logger *log.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithDriverName labels metrics with the backing driver.
func WithDriverName(name string) Option {
	return func(a *Adapter) {
		a.driver = name
	}
}

// Adapter saves and loads the collection through a Slot.
type Adapter struct {
	slot   Slot
	key    string
	driver string
	logger *log.Logger
}

// NewAdapter constructs an Adapter over slot.
func NewAdapter(slot Slot, opts ...Option) *Adapter {
	a := &Adapter{
		slot:   slot,
		key:    Key,
		driver: "unknown",
		logger: log.New(log.Writer(), "[persistence] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save overwrites the slot with the full ordered collection.
func (a *Adapter) Save(ctx context.Context, records []*workout.Workout) error {
	payload, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode workouts: %w", err)
	}
	if err := a.slot.Put(ctx, a.key, payload); err != nil {
		observability.RecordSlotWrite(a.driver, err)
		return fmt.Errorf("write slot %s: %w", a.key, err)
	}
	observability.RecordSlotWrite(a.driver, nil)
	observability.RecordSaved(time.Now())
	return nil
}

// Load reads the collection. Missing or unreadable data yields an empty
// collection; it is never an error.
func (a *Adapter) Load(ctx context.Context) []*workout.Workout {
	payload, err := a.slot.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			a.logger.Printf("read slot %s: %v", a.key, err)
		}
		return nil
	}
	if len(payload) == 0 {
		return nil
	}

	records, skipped, err := Decode(payload)
	if err != nil {
		a.logger.Printf("discarding unreadable slot %s: %v", a.key, err)
		return nil
	}
	for _, skipErr := range skipped {
		a.logger.Printf("skipping stored workout: %v", skipErr)
	}
	return records
}

// Reset removes the slot entirely.
func (a *Adapter) Reset(ctx context.Context) error {
	if err := a.slot.Delete(ctx, a.key); err != nil && !errors.Is(err, ErrSlotEmpty) {
		observability.RecordSlotWrite(a.driver, err)
		return fmt.Errorf("delete slot %s: %w", a.key, err)
	}
	observability.RecordSlotWrite(a.driver, nil)
	return nil
}
