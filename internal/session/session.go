// Package session tracks whether the shared workout form is creating a new
// workout or editing an existing one.
package session

import (
	"errors"
	"fmt"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

var (
	// ErrAlreadyEditing is returned when a second edit or a map click arrives
	// while a workout is being edited.
	ErrAlreadyEditing = errors.New("another workout is being edited")
	// ErrKindLocked is returned when the kind selector changes during an edit.
	ErrKindLocked = errors.New("workout kind cannot change while editing")
	// ErrFormClosed is returned when a create is submitted without a map position.
	ErrFormClosed = errors.New("form is not open")
)

// FormSurface is the shared input form. The session reads it on submit and
// fills it when an edit starts; it never owns the widgets.
type FormSurface interface {
	Kind() string
	SetKind(workout.Kind)
	Distance() float64
	SetDistance(float64)
	Duration() float64
	SetDuration(float64)
	Cadence() float64
	SetCadence(float64)
	Elevation() float64
	SetElevation(float64)

	// ShowRow reveals the row specific to kind and hides the other one.
	ShowRow(workout.Kind)
	Show()
	Hide()
	Clear()
	// SetControlsEnabled toggles the edit and delete controls of every entry.
	SetControlsEnabled(bool)
}

// Phase is the session state.
type Phase int

const (
	Idle Phase = iota
	Editing
)

func (p Phase) String() string {
	if p == Editing {
		return "editing"
	}
	return "idle"
}

// State is the current phase and, while editing, the target workout id.
type State struct {
	Phase    Phase
	RecordID string
}

// Submission is a form submission interpreted against the session state.
type Submission struct {
	// Update is true when RecordID must be updated instead of a new workout created.
	Update   bool
	RecordID string
	Input    workout.Input
}

// Session is the Idle/Editing state machine around a FormSurface.
// It is not safe for concurrent use.
type Session struct {
	form   FormSurface
	state  State
	origin *workout.Coordinates
}

// New returns an idle session bound to form.
func New(form FormSurface) *Session {
	return &Session{form: form}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Origin returns the map position the form was opened at, if any.
func (s *Session) Origin() (workout.Coordinates, bool) {
	if s.origin == nil {
		return workout.Coordinates{}, false
	}
	return *s.origin, true
}

// Open shows the form for a new workout at coords. Clicking the map again
// while idle moves the position.
func (s *Session) Open(coords workout.Coordinates) error {
	if s.state.Phase == Editing {
		return ErrAlreadyEditing
	}
	if err := coords.Validate(); err != nil {
		return err
	}
	s.origin = &coords
	s.form.Show()
	return nil
}

// Begin starts editing w: peer controls are disabled, the form is filled from
// w and the row for its kind is revealed.
func (s *Session) Begin(w *workout.Workout) error {
	if s.state.Phase == Editing {
		return ErrAlreadyEditing
	}
	s.state = State{Phase: Editing, RecordID: w.ID}
	s.origin = nil

	s.form.SetControlsEnabled(false)
	s.form.Clear()
	s.form.SetKind(w.Kind)
	s.form.SetDistance(w.DistanceKm)
	s.form.SetDuration(w.DurationMin)
	switch {
	case w.Running != nil:
		s.form.SetCadence(w.Running.CadenceSpm)
	case w.Cycling != nil:
		s.form.SetElevation(w.Cycling.ElevationGainM)
	}
	s.form.ShowRow(w.Kind)
	s.form.Show()
	return nil
}

// ToggleKind switches the variant row shown for a new workout. While editing
// only the edited workout's own kind is accepted.
func (s *Session) ToggleKind(kind workout.Kind) error {
	if s.state.Phase == Editing {
		if current, err := workout.ParseKind(s.form.Kind()); err == nil && current == kind {
			return nil
		}
		return ErrKindLocked
	}
	s.form.SetKind(kind)
	s.form.ShowRow(kind)
	return nil
}

// Submission reads the form. While idle the form must have been opened by a
// map click first, otherwise ErrFormClosed is returned without reading any
// field. Invalid values yield a *workout.ValidationError and leave the session
// untouched.
func (s *Session) Submission() (Submission, error) {
	if s.state.Phase == Idle && s.origin == nil {
		return Submission{}, ErrFormClosed
	}

	kind, err := workout.ParseKind(s.form.Kind())
	if err != nil {
		return Submission{}, &workout.ValidationError{Field: "type", Reason: err.Error()}
	}

	metrics := workout.Metrics{
		DistanceKm:  s.form.Distance(),
		DurationMin: s.form.Duration(),
	}
	if kind == workout.KindRunning {
		metrics.CadenceSpm = s.form.Cadence()
	} else {
		metrics.ElevationGainM = s.form.Elevation()
	}
	if err := workout.ValidateMetrics(kind, metrics); err != nil {
		return Submission{}, err
	}

	if s.state.Phase == Editing {
		return Submission{
			Update:   true,
			RecordID: s.state.RecordID,
			Input:    workout.Input{Kind: kind, Metrics: metrics},
		}, nil
	}
	return Submission{Input: workout.Input{Kind: kind, Coords: *s.origin, Metrics: metrics}}, nil
}

// Commit ends a successful submission and returns to Idle.
func (s *Session) Commit() {
	s.reset()
}

// Cancel abandons the current edit or the open create form.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	wasEditing := s.state.Phase == Editing
	s.state = State{}
	s.origin = nil
	s.form.Clear()
	s.form.Hide()
	if wasEditing {
		s.form.SetControlsEnabled(true)
	}
}

func (st State) String() string {
	if st.Phase == Editing {
		return fmt.Sprintf("editing(%s)", st.RecordID)
	}
	return st.Phase.String()
}
