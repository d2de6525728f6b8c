// Package view keeps the rendered workout list and the map markers consistent
// with the store.
package view

import (
	"strconv"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Field names a rendered value on a list entry.
type Field string

const (
	FieldTitle     Field = "title"
	FieldDistance  Field = "distance"
	FieldDuration  Field = "duration"
	FieldPace      Field = "pace"
	FieldCadence   Field = "cadence"
	FieldSpeed     Field = "speed"
	FieldElevation Field = "elevation"
)

// Detail is one icon/value/unit row of an entry.
type Detail struct {
	Field Field  `json:"field"`
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Entry is the rendered form of a workout on the list.
type Entry struct {
	ID      string       `json:"id"`
	Kind    workout.Kind `json:"type"`
	Title   string       `json:"title"`
	Details []Detail     `json:"details"`
}

// Value returns the rendered text of field.
func (e Entry) Value(field Field) (string, bool) {
	if field == FieldTitle {
		return e.Title, true
	}
	for _, d := range e.Details {
		if d.Field == field {
			return d.Value, true
		}
	}
	return "", false
}

// Render builds the list entry for w. Pace and speed are rounded to one
// decimal; every other value is printed as stored.
func Render(w *workout.Workout) Entry {
	e := Entry{
		ID:    w.ID,
		Kind:  w.Kind,
		Title: w.Description,
		Details: []Detail{
			{Field: FieldDistance, Icon: w.Kind.Icon(), Value: plain(w.DistanceKm), Unit: "km"},
			{Field: FieldDuration, Icon: "⏱", Value: plain(w.DurationMin), Unit: "min"},
		},
	}
	switch {
	case w.Running != nil:
		e.Details = append(e.Details,
			Detail{Field: FieldPace, Icon: "⚡️", Value: oneDecimal(w.Running.PaceMinPerKm), Unit: "min/km"},
			Detail{Field: FieldCadence, Icon: "🦶🏼", Value: plain(w.Running.CadenceSpm), Unit: "spm"},
		)
	case w.Cycling != nil:
		e.Details = append(e.Details,
			Detail{Field: FieldSpeed, Icon: "⚡️", Value: oneDecimal(w.Cycling.SpeedKmPerH), Unit: "km/h"},
			Detail{Field: FieldElevation, Icon: "⛰", Value: plain(w.Cycling.ElevationGainM), Unit: "m"},
		)
	}
	return e
}

// Popup is the annotation attached to a marker.
type Popup struct {
	Content      string `json:"content"`
	ClassName    string `json:"class_name"`
	MaxWidth     int    `json:"max_width"`
	MinWidth     int    `json:"min_width"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
}

// PopupFor builds the marker popup for w.
func PopupFor(w *workout.Workout) Popup {
	return Popup{
		Content:   w.Kind.Icon() + " " + w.Description,
		ClassName: string(w.Kind) + "-popup",
		MaxWidth:  250,
		MinWidth:  100,
	}
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
