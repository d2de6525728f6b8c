package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// SortKey selects the field workouts are ordered by.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByDistance SortKey = "distance"
	SortByDuration SortKey = "duration"
)

// Direction is the order of the displayed list, top entry first.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey validates a sort key string.
func ParseSortKey(value string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(value))); key {
	case SortByDate, SortByDistance, SortByDuration:
		return key, nil
	default:
		return "", fmt.Errorf("unsupported sort key %q", value)
	}
}

// ParseDirection validates a direction string. Empty means descending.
func ParseDirection(value string) (Direction, error) {
	switch dir := Direction(strings.ToLower(strings.TrimSpace(value))); dir {
	case "":
		return Descending, nil
	case Ascending, Descending:
		return dir, nil
	default:
		return "", fmt.Errorf("unsupported sort direction %q", value)
	}
}

// Sort reorders the canonical sequence so that the display order follows key
// and dir. The new order is persistent: it survives later creates and reloads.
// It returns the workouts in display order.
func (s *Store) Sort(key SortKey, dir Direction) []*workout.Workout {
	s.mu.Lock()
	less := lessFor(key)
	// Display is the reverse of canonical order, so canonical is sorted the
	// opposite way round.
	sort.SliceStable(s.items, func(i, j int) bool {
		if dir == Ascending {
			return less(s.items[j], s.items[i])
		}
		return less(s.items[i], s.items[j])
	})
	s.mu.Unlock()

	return s.Display()
}

func lessFor(key SortKey) func(a, b *workout.Workout) bool {
	switch key {
	case SortByDistance:
		return func(a, b *workout.Workout) bool { return a.DistanceKm < b.DistanceKm }
	case SortByDuration:
		return func(a, b *workout.Workout) bool { return a.DurationMin < b.DurationMin }
	default:
		return func(a, b *workout.Workout) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
