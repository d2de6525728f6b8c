// Package file stores slot payloads as JSON files in a local directory.
package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thanhtrancs/Mapty/internal/persistence"
)

// Slot writes one file per key under dir.
type Slot struct {
	dir string
	mu  sync.Mutex
}

// New creates a file-backed slot rooted at dir.
func New(dir string) (*Slot, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("slot directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Slot{dir: dir}, nil
}

func (s *Slot) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get implements persistence.Slot.
func (s *Slot) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrSlotEmpty
		}
		return nil, err
	}
	return data, nil
}

// Put writes through a temp file and rename so readers never see a partial payload.
func (s *Slot) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path(key))
}

// Delete implements persistence.Slot.
func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
