package view

import (
	"errors"
	"log"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// DefaultZoom is the map zoom used when centering on a position.
const DefaultZoom = 13

var (
	// ErrUnknownEntry is returned when an id has no rendered entry.
	ErrUnknownEntry = errors.New("no rendered entry for workout")
	// ErrNoMap is returned by map operations before a map is attached.
	ErrNoMap = errors.New("map not available")
)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithZoom overrides the zoom level used by Attach and Focus.
func WithZoom(zoom int) Option {
	return func(s *Synchronizer) {
		if zoom > 0 {
			s.zoom = zoom
		}
	}
}

// WithLogger overrides the synchronizer logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type entry struct {
	record    *workout.Workout
	rendered  Entry
	marker    MarkerHandle
	hasMarker bool
}

// Synchronizer owns the rendered list and the marker of every workout, keyed
// by workout id. It is not safe for concurrent use; callers serialize events.
type Synchronizer struct {
	list    ListSurface
	mapView MapView
	zoom    int
	logger  *log.Logger

	entries map[string]*entry
	order   []string // display order, head first
}

// New builds a synchronizer writing to list. A map is attached later, once a
// position is known.
func New(list ListSurface, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		list:    list,
		zoom:    DefaultZoom,
		logger:  log.New(log.Writer(), "[view] ", log.LstdFlags|log.Lshortfile),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MapAttached reports whether map operations are available.
func (s *Synchronizer) MapAttached() bool { return s.mapView != nil }

// Len returns the number of rendered entries.
func (s *Synchronizer) Len() int { return len(s.entries) }

// Markers returns the number of markers currently on the map.
func (s *Synchronizer) Markers() int {
	n := 0
	for _, e := range s.entries {
		if e.hasMarker {
			n++
		}
	}
	return n
}

// Load replaces everything rendered with records, given in display order.
func (s *Synchronizer) Load(records []*workout.Workout) {
	s.dropMarkers()
	s.entries = make(map[string]*entry, len(records))
	s.order = s.order[:0]

	rendered := make([]Entry, 0, len(records))
	for _, w := range records {
		e := &entry{record: w.Clone(), rendered: Render(w)}
		s.entries[w.ID] = e
		s.order = append(s.order, w.ID)
		rendered = append(rendered, e.rendered)
		s.placeMarker(e)
	}
	s.list.Rebuild(rendered)
}

// Attach makes m the map for every later operation, centers it and places a
// marker for each workout rendered so far.
func (s *Synchronizer) Attach(m MapView, center workout.Coordinates) {
	s.mapView = m
	m.SetView(center, s.zoom)
	for i := len(s.order) - 1; i >= 0; i-- {
		s.placeMarker(s.entries[s.order[i]])
	}
}

// Created renders a new workout at the head of the list and marks it on the map.
func (s *Synchronizer) Created(w *workout.Workout) {
	if e, ok := s.entries[w.ID]; ok {
		s.logger.Printf("workout %s already rendered, refreshing fields", w.ID)
		s.refresh(e, w)
		return
	}
	e := &entry{record: w.Clone(), rendered: Render(w)}
	s.entries[w.ID] = e
	s.order = append([]string{w.ID}, s.order...)
	s.list.Prepend(e.rendered)
	s.placeMarker(e)
}

// Updated rewrites the rendered values of w that changed and returns how many
// were written. The marker is left in place.
func (s *Synchronizer) Updated(w *workout.Workout) (int, error) {
	e, ok := s.entries[w.ID]
	if !ok {
		return 0, ErrUnknownEntry
	}
	return s.refresh(e, w), nil
}

func (s *Synchronizer) refresh(e *entry, w *workout.Workout) int {
	next := Render(w)
	writes := 0
	if next.Title != e.rendered.Title {
		s.list.SetField(w.ID, FieldTitle, next.Title)
		writes++
	}
	for _, d := range next.Details {
		if prev, ok := e.rendered.Value(d.Field); ok && prev == d.Value {
			continue
		}
		s.list.SetField(w.ID, d.Field, d.Value)
		writes++
	}

	e.rendered = next
	e.record = w.Clone()
	return writes
}

// Deleted removes the entry and the marker of id. Unknown ids are ignored.
func (s *Synchronizer) Deleted(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	s.list.Remove(id)
	if e.hasMarker && s.mapView != nil {
		s.mapView.RemoveMarker(e.marker)
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Cleared empties the list and removes every marker.
func (s *Synchronizer) Cleared() {
	s.dropMarkers()
	s.list.Clear()
	s.entries = make(map[string]*entry)
	s.order = nil
}

// Sorted rebuilds the list in the given display order. Markers stay where
// they are.
func (s *Synchronizer) Sorted(records []*workout.Workout) {
	rendered := make([]Entry, 0, len(records))
	order := make([]string, 0, len(records))
	for _, w := range records {
		e, ok := s.entries[w.ID]
		if !ok {
			e = &entry{record: w.Clone(), rendered: Render(w)}
			s.entries[w.ID] = e
			s.placeMarker(e)
		}
		rendered = append(rendered, e.rendered)
		order = append(order, w.ID)
	}
	s.order = order
	s.list.Rebuild(rendered)
}

// Focus centers the map on the workout id.
func (s *Synchronizer) Focus(id string) error {
	e, ok := s.entries[id]
	if !ok {
		return ErrUnknownEntry
	}
	if s.mapView == nil {
		return ErrNoMap
	}
	s.mapView.SetView(e.record.Coords, s.zoom)
	return nil
}

// Order returns the ids in display order.
func (s *Synchronizer) Order() []string {
	return append([]string(nil), s.order...)
}

func (s *Synchronizer) placeMarker(e *entry) {
	if s.mapView == nil || e.hasMarker {
		return
	}
	e.marker = s.mapView.AddMarker(e.record.Coords, PopupFor(e.record))
	e.hasMarker = true
}

func (s *Synchronizer) dropMarkers() {
	for _, e := range s.entries {
		if e.hasMarker && s.mapView != nil {
			s.mapView.RemoveMarker(e.marker)
		}
		e.hasMarker = false
	}
}
