// Package memory provides an in-process slot used by tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/thanhtrancs/Mapty/internal/persistence"
)

// Slot keeps payloads in a map.
type Slot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New constructs an empty Slot.
func New() *Slot {
	return &Slot{values: make(map[string][]byte)}
}

// Get implements persistence.Slot.
func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, persistence.ErrSlotEmpty
	}
	return append([]byte(nil), value...), nil
}

// Put implements persistence.Slot.
func (s *Slot) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), payload...)
	return nil
}

// Delete implements persistence.Slot.
func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
