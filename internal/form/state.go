// Package form holds the server-side state of the workout input form.
package form

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Values are the raw field contents as typed by the user.
type Values struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// View is the form as shown to the client.
type View struct {
	Values
	Visible         bool         `json:"visible"`
	Row             workout.Kind `json:"row"`
	ControlsEnabled bool         `json:"controls_enabled"`
}

// State is a FormSurface backed by plain field values.
type State struct {
	mu              sync.Mutex
	values          Values
	visible         bool
	row             workout.Kind
	controlsEnabled bool
}

// New returns a hidden form with the running row selected.
func New() *State {
	return &State{
		values:          Values{Type: string(workout.KindRunning)},
		row:             workout.KindRunning,
		controlsEnabled: true,
	}
}

// Fill overwrites the fields the user typed. An empty Type keeps the selector.
func (s *State) Fill(v Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Type == "" {
		v.Type = s.values.Type
	}
	s.values = v
}

// Snapshot returns the current form view.
func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Values:          s.values,
		Visible:         s.visible,
		Row:             s.row,
		ControlsEnabled: s.controlsEnabled,
	}
}

func (s *State) Kind() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Type
}

func (s *State) SetKind(k workout.Kind) {
	s.mu.Lock()
	s.values.Type = string(k)
	s.mu.Unlock()
}

func (s *State) Distance() float64      { return s.number(func(v *Values) *string { return &v.Distance }) }
func (s *State) SetDistance(n float64)  { s.setNumber(func(v *Values) *string { return &v.Distance }, n) }
func (s *State) Duration() float64      { return s.number(func(v *Values) *string { return &v.Duration }) }
func (s *State) SetDuration(n float64)  { s.setNumber(func(v *Values) *string { return &v.Duration }, n) }
func (s *State) Cadence() float64       { return s.number(func(v *Values) *string { return &v.Cadence }) }
func (s *State) SetCadence(n float64)   { s.setNumber(func(v *Values) *string { return &v.Cadence }, n) }
func (s *State) Elevation() float64     { return s.number(func(v *Values) *string { return &v.Elevation }) }
func (s *State) SetElevation(n float64) { s.setNumber(func(v *Values) *string { return &v.Elevation }, n) }

func (s *State) ShowRow(k workout.Kind) {
	s.mu.Lock()
	s.row = k
	s.mu.Unlock()
}

func (s *State) Show() {
	s.mu.Lock()
	s.visible = true
	s.mu.Unlock()
}

func (s *State) Hide() {
	s.mu.Lock()
	s.visible = false
	s.mu.Unlock()
}

// Clear empties the numeric fields. The kind selector keeps its value.
func (s *State) Clear() {
	s.mu.Lock()
	s.values = Values{Type: s.values.Type}
	s.mu.Unlock()
}

func (s *State) SetControlsEnabled(enabled bool) {
	s.mu.Lock()
	s.controlsEnabled = enabled
	s.mu.Unlock()
}

// number parses a field the way a numeric input coerces text: blank or
// malformed input reads as NaN.
func (s *State) number(field func(*Values) *string) float64 {
	s.mu.Lock()
	raw := strings.TrimSpace(*field(&s.values))
	s.mu.Unlock()
	if raw == "" {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func (s *State) setNumber(field func(*Values) *string, n float64) {
	s.mu.Lock()
	*field(&s.values) = strconv.FormatFloat(n, 'f', -1, 64)
	s.mu.Unlock()
}
