// Package feed publishes workout changes to Kafka and consumes them back.
package feed

import (
	"time"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Event types carried in the event_type header.
const (
	EventWorkoutCreated = "workout.created"
	EventWorkoutUpdated = "workout.updated"
	EventWorkoutDeleted = "workout.deleted"
	EventWorkoutsClear  = "workout.cleared"
	EventWorkoutsSorted = "workout.sorted"
)

// Event is one change ready for publishing.
type Event struct {
	Type string
	// Key partitions the topic; workout events use the workout id.
	Key     string
	Payload any
}

// WorkoutChanged is emitted when a workout is created or its metrics change.
type WorkoutChanged struct {
	WorkoutID      string    `json:"workout_id"`
	Kind           string    `json:"kind"`
	Description    string    `json:"description"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	DistanceKm     float64   `json:"distance_km"`
	DurationMin    float64   `json:"duration_min"`
	CadenceSpm     *float64  `json:"cadence_spm,omitempty"`
	PaceMinPerKm   *float64  `json:"pace_min_per_km,omitempty"`
	ElevationGainM *float64  `json:"elevation_gain_m,omitempty"`
	SpeedKmPerH    *float64  `json:"speed_km_per_h,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// WorkoutDeleted is emitted when a single workout is removed.
type WorkoutDeleted struct {
	WorkoutID  string    `json:"workout_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkoutsCleared is emitted when every workout is removed at once.
type WorkoutsCleared struct {
	Removed    int       `json:"removed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkoutsSorted is emitted when the stored order changes.
type WorkoutsSorted struct {
	Key        string    `json:"key"`
	Direction  string    `json:"direction"`
	Order      []string  `json:"order"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Created builds the event for a newly logged workout.
func Created(w *workout.Workout, at time.Time) Event {
	return Event{Type: EventWorkoutCreated, Key: w.ID, Payload: changed(w, at)}
}

// Updated builds the event for an edited workout.
func Updated(w *workout.Workout, at time.Time) Event {
	return Event{Type: EventWorkoutUpdated, Key: w.ID, Payload: changed(w, at)}
}

// Deleted builds the event for a removed workout.
func Deleted(id string, at time.Time) Event {
	return Event{Type: EventWorkoutDeleted, Key: id, Payload: WorkoutDeleted{WorkoutID: id, OccurredAt: at}}
}

// Cleared builds the event for a bulk removal.
func Cleared(removed int, at time.Time) Event {
	return Event{Type: EventWorkoutsClear, Payload: WorkoutsCleared{Removed: removed, OccurredAt: at}}
}

// Sorted builds the event for a reorder. order lists ids in display order.
func Sorted(key, direction string, order []string, at time.Time) Event {
	return Event{Type: EventWorkoutsSorted, Payload: WorkoutsSorted{Key: key, Direction: direction, Order: order, OccurredAt: at}}
}

func changed(w *workout.Workout, at time.Time) WorkoutChanged {
	out := WorkoutChanged{
		WorkoutID:   w.ID,
		Kind:        string(w.Kind),
		Description: w.Description,
		Lat:         w.Coords.Lat,
		Lng:         w.Coords.Lng,
		DistanceKm:  w.DistanceKm,
		DurationMin: w.DurationMin,
		CreatedAt:   w.CreatedAt,
		OccurredAt:  at,
	}
	if r := w.Running; r != nil {
		cadence, pace := r.CadenceSpm, r.PaceMinPerKm
		out.CadenceSpm, out.PaceMinPerKm = &cadence, &pace
	}
	if c := w.Cycling; c != nil {
		elev, speed := c.ElevationGainM, c.SpeedKmPerH
		out.ElevationGainM, out.SpeedKmPerH = &elev, &speed
	}
	return out
}
