// Package mapview is a server-side marker layer standing in for the map widget.
package mapview

import (
	"sort"
	"sync"

	"github.com/thanhtrancs/Mapty/internal/view"
	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Marker is a placed marker and its popup.
type Marker struct {
	Handle view.MarkerHandle
	At     workout.Coordinates
	Popup  view.Popup
}

// Layer is a view.MapView that keeps markers in memory.
type Layer struct {
	mu       sync.RWMutex
	center   workout.Coordinates
	zoom     int
	next     view.MarkerHandle
	markers  map[view.MarkerHandle]Marker
	handlers []func(workout.Coordinates)
}

// New returns an empty layer.
func New() *Layer {
	return &Layer{markers: make(map[view.MarkerHandle]Marker)}
}

func (l *Layer) SetView(center workout.Coordinates, zoom int) {
	l.mu.Lock()
	l.center, l.zoom = center, zoom
	l.mu.Unlock()
}

func (l *Layer) AddMarker(at workout.Coordinates, popup view.Popup) view.MarkerHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.markers[l.next] = Marker{Handle: l.next, At: at, Popup: popup}
	return l.next
}

func (l *Layer) RemoveMarker(h view.MarkerHandle) {
	l.mu.Lock()
	delete(l.markers, h)
	l.mu.Unlock()
}

func (l *Layer) OnClick(fn func(workout.Coordinates)) {
	l.mu.Lock()
	l.handlers = append(l.handlers, fn)
	l.mu.Unlock()
}

// Click delivers a click at coords to every registered handler. It reports
// false when nobody listens.
func (l *Layer) Click(coords workout.Coordinates) bool {
	l.mu.RLock()
	handlers := make([]func(workout.Coordinates), len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.RUnlock()
	for _, fn := range handlers {
		fn(coords)
	}
	return len(handlers) > 0
}

// View returns the current center and zoom.
func (l *Layer) View() (workout.Coordinates, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.center, l.zoom
}

// Markers returns the placed markers in placement order.
func (l *Layer) Markers() []Marker {
	l.mu.RLock()
	out := make([]Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}
