package view

import "github.com/thanhtrancs/Mapty/internal/workout"

// ListSurface is the rendered workout list. The synchronizer is its only writer.
type ListSurface interface {
	// Prepend inserts an entry at the head of the list.
	Prepend(Entry)
	// SetField rewrites a single rendered value of an existing entry.
	SetField(id string, field Field, value string)
	Remove(id string)
	Clear()
	// Rebuild replaces the whole list with entries in the given order.
	Rebuild([]Entry)
}

// MarkerHandle identifies a marker on a MapView.
type MarkerHandle int64

// MapView is the map widget capability.
type MapView interface {
	SetView(center workout.Coordinates, zoom int)
	AddMarker(at workout.Coordinates, popup Popup) MarkerHandle
	RemoveMarker(MarkerHandle)
	OnClick(func(workout.Coordinates))
}
