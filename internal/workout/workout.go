// Package workout defines the logged activity records and their derived metrics.
package workout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind discriminates the two workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ErrUnknownKind is returned when a kind string matches no variant.
var ErrUnknownKind = errors.New("unknown workout kind")

// ParseKind normalises a kind string.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindRunning:
		return KindRunning, nil
	case KindCycling:
		return KindCycling, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Label is the capitalised name used in descriptions.
func (k Kind) Label() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	default:
		return string(k)
	}
}

// Icon is the glyph shown next to the workout on the list and the map popup.
func (k Kind) Icon() string {
	if k == KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}

// Running holds the running-only fields.
type Running struct {
	CadenceSpm   float64
	PaceMinPerKm float64
}

// Cycling holds the cycling-only fields.
type Cycling struct {
	ElevationGainM float64
	SpeedKmPerH    float64
}

// Workout is a single logged activity. Exactly one of Running or Cycling is
// set and it always matches Kind.
type Workout struct {
	ID          string
	Kind        Kind
	CreatedAt   time.Time
	Coords      Coordinates
	DistanceKm  float64
	DurationMin float64
	Description string
	Clicks      int

	Running *Running
	Cycling *Cycling
}

// Metrics captures the editable numeric fields of a workout. Only the field
// that belongs to the workout's kind is read.
type Metrics struct {
	DistanceKm     float64
	DurationMin    float64
	CadenceSpm     float64
	ElevationGainM float64
}

// Input is everything needed to create a workout apart from its identity.
type Input struct {
	Kind   Kind
	Coords Coordinates
	Metrics
}

// New builds a workout of the requested kind and computes its derived fields.
func New(id string, createdAt time.Time, in Input) (*Workout, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	if err := in.Coords.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateMetrics(in.Kind, in.Metrics); err != nil {
		return nil, err
	}

	w := &Workout{
		ID:        id,
		Kind:      in.Kind,
		CreatedAt: createdAt,
		Coords:    in.Coords,
	}
	switch in.Kind {
	case KindRunning:
		w.Running = &Running{}
	case KindCycling:
		w.Cycling = &Cycling{}
	}
	w.set(in.Metrics)
	w.Description = Describe(in.Kind, createdAt)
	return w, nil
}

// Apply replaces the numeric fields after validating them against the
// workout's kind. The kind, id, creation time and description are kept.
func (w *Workout) Apply(m Metrics) error {
	if err := ValidateMetrics(w.Kind, m); err != nil {
		return err
	}
	w.set(m)
	return nil
}

func (w *Workout) set(m Metrics) {
	w.DistanceKm = m.DistanceKm
	w.DurationMin = m.DurationMin
	switch w.Kind {
	case KindRunning:
		w.Running.CadenceSpm = m.CadenceSpm
		w.Running.PaceMinPerKm = w.DurationMin / w.DistanceKm
	case KindCycling:
		w.Cycling.ElevationGainM = m.ElevationGainM
		w.Cycling.SpeedKmPerH = w.DistanceKm / w.DurationMin
	}
}

// Metrics returns the editable fields currently held by the workout.
func (w *Workout) Metrics() Metrics {
	m := Metrics{DistanceKm: w.DistanceKm, DurationMin: w.DurationMin}
	if w.Running != nil {
		m.CadenceSpm = w.Running.CadenceSpm
	}
	if w.Cycling != nil {
		m.ElevationGainM = w.Cycling.ElevationGainM
	}
	return m
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (w *Workout) Clone() *Workout {
	if w == nil {
		return nil
	}
	out := *w
	if w.Running != nil {
		r := *w.Running
		out.Running = &r
	}
	if w.Cycling != nil {
		c := *w.Cycling
		out.Cycling = &c
	}
	return &out
}

// Describe formats the human readable title, e.g. "Running on April 14".
func Describe(kind Kind, at time.Time) string {
	return fmt.Sprintf("%s on %s %d", kind.Label(), at.Month(), at.Day())
}

// ValidateMetrics enforces finite, strictly positive distance, duration and
// cadence. Elevation gain may be zero.
func ValidateMetrics(kind Kind, m Metrics) error {
	if err := positive("distance", m.DistanceKm); err != nil {
		return err
	}
	if err := positive("duration", m.DurationMin); err != nil {
		return err
	}
	switch kind {
	case KindRunning:
		return positive("cadence", m.CadenceSpm)
	case KindCycling:
		if !isFinite(m.ElevationGainM) {
			return &ValidationError{Field: "elevation", Reason: "must be a finite number"}
		}
		if m.ElevationGainM < 0 {
			return &ValidationError{Field: "elevation", Reason: "must not be negative"}
		}
		return nil
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown workout kind %q", kind)}
	}
}

func positive(field string, value float64) error {
	if !isFinite(value) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if value <= 0 {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
