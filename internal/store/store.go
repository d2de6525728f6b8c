// Package store holds the authoritative, ordered collection of workouts.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// ErrNotFound is returned when no workout has the requested id.
var ErrNotFound = errors.New("workout not found")

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(next func() string) Option {
	return func(s *Store) {
		s.newID = next
	}
}

// Store keeps workouts in canonical order: oldest insertion first. The list
// shown to the user is the reverse of that order.
type Store struct {
	mu    sync.RWMutex
	items []*workout.Workout
	now   func() time.Time
	newID func() string
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input, builds the workout and appends it as the most
// recent entry. A validation failure leaves the store untouched.
func (s *Store) Create(in workout.Input) (*workout.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.indexLocked(id) >= 0 {
		id = s.newID()
	}

	w, err := workout.New(id, s.now(), in)
	if err != nil {
		return nil, err
	}
	s.items = append(s.items, w)
	return w.Clone(), nil
}

// FindByID returns a copy of the workout with the given id.
func (s *Store) FindByID(id string) (*workout.Workout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return s.items[idx].Clone(), nil
}

// Update replaces the numeric fields of an existing workout in place.
func (s *Store) Update(id string, m workout.Metrics) (*workout.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if err := s.items[idx].Apply(m); err != nil {
		return nil, err
	}
	return s.items[idx].Clone(), nil
}

// Touch increments the click counter of a workout.
func (s *Store) Touch(id string) (*workout.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	s.items[idx].Clicks++
	return s.items[idx].Clone(), nil
}

// Remove deletes the workout with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// RemoveAll empties the store.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Replace swaps the whole collection, typically with records read from the
// durable slot. Later duplicates of an id are dropped.
func (s *Store) Replace(records []*workout.Workout) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	items := make([]*workout.Workout, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		items = append(items, rec.Clone())
	}
	s.items = items
}

// Len reports the number of workouts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// List returns copies in canonical order.
func (s *Store) List() []*workout.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// Display returns copies in display order, newest first.
func (s *Store) Display() []*workout.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workout.Workout, len(s.items))
	for i, w := range s.items {
		out[len(s.items)-1-i] = w.Clone()
	}
	return out
}

// Within returns workouts located at most radiusKm from center, nearest first.
func (s *Store) Within(center workout.Coordinates, radiusKm float64) []*workout.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		w    *workout.Workout
		dist float64
	}
	hits := make([]hit, 0)
	for _, w := range s.items {
		if d := center.DistanceKm(w.Coords); d <= radiusKm {
			hits = append(hits, hit{w: w, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]*workout.Workout, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.w.Clone())
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, w := range s.items {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(items []*workout.Workout) []*workout.Workout {
	out := make([]*workout.Workout, 0, len(items))
	for _, w := range items {
		out = append(out, w.Clone())
	}
	return out
}
