package session

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

type stubForm struct {
	kind                                   string
	distance, duration, cadence, elevation float64
	row                                    workout.Kind
	visible, controlsEnabled               bool
	clears                                 int
}

func newStubForm() *stubForm {
	return &stubForm{kind: string(workout.KindRunning), controlsEnabled: true, distance: math.NaN(), duration: math.NaN(), cadence: math.NaN(), elevation: math.NaN()}
}

func (f *stubForm) Kind() string               { return f.kind }
func (f *stubForm) SetKind(k workout.Kind)     { f.kind = string(k) }
func (f *stubForm) Distance() float64          { return f.distance }
func (f *stubForm) SetDistance(v float64)      { f.distance = v }
func (f *stubForm) Duration() float64          { return f.duration }
func (f *stubForm) SetDuration(v float64)      { f.duration = v }
func (f *stubForm) Cadence() float64           { return f.cadence }
func (f *stubForm) SetCadence(v float64)       { f.cadence = v }
func (f *stubForm) Elevation() float64         { return f.elevation }
func (f *stubForm) SetElevation(v float64)     { f.elevation = v }
func (f *stubForm) ShowRow(k workout.Kind)     { f.row = k }
func (f *stubForm) Show()                      { f.visible = true }
func (f *stubForm) Hide()                      { f.visible = false }
func (f *stubForm) SetControlsEnabled(ok bool) { f.controlsEnabled = ok }
func (f *stubForm) Clear() {
	f.clears++
	f.distance, f.duration, f.cadence, f.elevation = math.NaN(), math.NaN(), math.NaN(), math.NaN()
}

func ride(t *testing.T) *workout.Workout {
	t.Helper()
	w, err := workout.New("ride-1", time.Date(2025, time.May, 2, 7, 0, 0, 0, time.UTC), workout.Input{
		Kind:    workout.KindCycling,
		Coords:  workout.Coordinates{Lat: 40, Lng: -8},
		Metrics: workout.Metrics{DistanceKm: 27, DurationMin: 95, ElevationGainM: 523},
	})
	require.NoError(t, err)
	return w
}

func TestOpenThenSubmitCreates(t *testing.T) {
	form := newStubForm()
	s := New(form)

	at := workout.Coordinates{Lat: 39, Lng: -12}
	require.NoError(t, s.Open(at))
	require.True(t, form.visible)

	form.distance, form.duration, form.cadence = 5.2, 24, 178
	sub, err := s.Submission()
	require.NoError(t, err)
	require.False(t, sub.Update)
	require.Equal(t, workout.Input{
		Kind:    workout.KindRunning,
		Coords:  at,
		Metrics: workout.Metrics{DistanceKm: 5.2, DurationMin: 24, CadenceSpm: 178},
	}, sub.Input)

	s.Commit()
	require.Equal(t, Idle, s.State().Phase)
	require.False(t, form.visible)
	_, ok := s.Origin()
	require.False(t, ok)
}

func TestSubmissionWithoutPosition(t *testing.T) {
	form := newStubForm()
	form.distance, form.duration, form.cadence = 5, 25, 170

	_, err := New(form).Submission()
	require.ErrorIs(t, err, ErrFormClosed)
}

func TestSubmissionOfBlankClosedForm(t *testing.T) {
	form := newStubForm()
	s := New(form)

	_, err := s.Submission()
	require.ErrorIs(t, err, ErrFormClosed)
	var verr *workout.ValidationError
	require.False(t, errors.As(err, &verr), "a closed form is not a validation failure")
	require.Equal(t, Idle, s.State().Phase)
	require.Zero(t, form.clears)
}

func TestSubmissionRejectsInvalidValues(t *testing.T) {
	form := newStubForm()
	s := New(form)
	require.NoError(t, s.Open(workout.Coordinates{Lat: 39, Lng: -12}))

	form.distance, form.duration, form.cadence = -1, 25, 170
	_, err := s.Submission()
	require.ErrorIs(t, err, workout.ErrInvalidInput)
	require.True(t, form.visible, "form stays open for correction")
	_, ok := s.Origin()
	require.True(t, ok)

	form.kind = "rowing"
	_, err = s.Submission()
	require.ErrorIs(t, err, workout.ErrInvalidInput)
}

func TestCyclingIgnoresCadence(t *testing.T) {
	form := newStubForm()
	s := New(form)
	require.NoError(t, s.Open(workout.Coordinates{Lat: 40, Lng: -8}))
	require.NoError(t, s.ToggleKind(workout.KindCycling))
	require.Equal(t, workout.KindCycling, form.row)

	form.distance, form.duration, form.elevation = 27, 95, 0
	sub, err := s.Submission()
	require.NoError(t, err)
	require.Equal(t, workout.Metrics{DistanceKm: 27, DurationMin: 95}, sub.Input.Metrics)
}

func TestBeginFillsFormAndLocksControls(t *testing.T) {
	form := newStubForm()
	s := New(form)
	w := ride(t)

	require.NoError(t, s.Begin(w))
	require.Equal(t, State{Phase: Editing, RecordID: "ride-1"}, s.State())
	require.False(t, form.controlsEnabled)
	require.True(t, form.visible)
	require.Equal(t, workout.KindCycling, form.row)
	require.Equal(t, "cycling", form.kind)
	require.Equal(t, 27.0, form.distance)
	require.Equal(t, 95.0, form.duration)
	require.Equal(t, 523.0, form.elevation)

	require.ErrorIs(t, s.Begin(w), ErrAlreadyEditing)
	require.ErrorIs(t, s.Open(workout.Coordinates{Lat: 1, Lng: 1}), ErrAlreadyEditing)
	require.ErrorIs(t, s.ToggleKind(workout.KindRunning), ErrKindLocked)

	form.distance = 30
	sub, err := s.Submission()
	require.NoError(t, err)
	require.True(t, sub.Update)
	require.Equal(t, "ride-1", sub.RecordID)
	require.Equal(t, 30.0, sub.Input.Metrics.DistanceKm)
}

func TestCancelReturnsToIdle(t *testing.T) {
	form := newStubForm()
	s := New(form)
	require.NoError(t, s.Begin(ride(t)))

	s.Cancel()
	require.Equal(t, Idle, s.State().Phase)
	require.True(t, form.controlsEnabled)
	require.False(t, form.visible)
	require.True(t, math.IsNaN(form.distance))

	require.NoError(t, s.Begin(ride(t)), "a new edit may start after cancel")
}

func TestToggleKindWhileEditing(t *testing.T) {
	form := newStubForm()
	s := New(form)
	require.NoError(t, s.Begin(ride(t)))

	require.NoError(t, s.ToggleKind(workout.KindCycling), "the edited kind is accepted")
	require.ErrorIs(t, s.ToggleKind(workout.KindRunning), ErrKindLocked)
	require.Equal(t, string(workout.KindCycling), form.kind)
	require.Equal(t, "editing(ride-1)", s.State().String())

	s.Cancel()
	require.Equal(t, "idle", s.State().String())
}
