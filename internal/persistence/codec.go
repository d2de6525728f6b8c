package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// storedWorkout is the durable shape of a workout. Variant identity lives in
// Type; derived fields are written for readers of the raw slot but are
// recomputed from the scalar fields on decode.
type storedWorkout struct {
	Type        string     `json:"type"`
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"`
	Coords      [2]float64 `json:"coords"`
	Distance    float64    `json:"distance"`
	Duration    float64    `json:"duration"`
	Description string     `json:"description"`
	Clicks      int        `json:"clicks"`

	Cadence       *float64 `json:"cadence,omitempty"`
	Pace          *float64 `json:"pace,omitempty"`
	ElevationGain *float64 `json:"elevationGain,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
}

// Encode serialises workouts in order.
func Encode(records []*workout.Workout) ([]byte, error) {
	out := make([]storedWorkout, 0, len(records))
	for _, w := range records {
		item := storedWorkout{
			Type:        string(w.Kind),
			ID:          w.ID,
			Date:        w.CreatedAt,
			Coords:      [2]float64{w.Coords.Lat, w.Coords.Lng},
			Distance:    w.DistanceKm,
			Duration:    w.DurationMin,
			Description: w.Description,
			Clicks:      w.Clicks,
		}
		switch {
		case w.Running != nil:
			cadence, pace := w.Running.CadenceSpm, w.Running.PaceMinPerKm
			item.Cadence, item.Pace = &cadence, &pace
		case w.Cycling != nil:
			elevation, speed := w.Cycling.ElevationGainM, w.Cycling.SpeedKmPerH
			item.ElevationGain, item.Speed = &elevation, &speed
		}
		out = append(out, item)
	}
	return json.Marshal(out)
}

// Decode parses a payload produced by Encode. A malformed document is an
// error; individual records that fail validation are reported in skipped and
// left out of the result.
func Decode(payload []byte) (records []*workout.Workout, skipped []error, err error) {
	var items []storedWorkout
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, nil, fmt.Errorf("decode workouts: %w", err)
	}

	records = make([]*workout.Workout, 0, len(items))
	for i, item := range items {
		w, err := item.restore()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d (%s): %w", i, item.ID, err))
			continue
		}
		records = append(records, w)
	}
	return records, skipped, nil
}

func (s storedWorkout) restore() (*workout.Workout, error) {
	kind, err := workout.ParseKind(s.Type)
	if err != nil {
		return nil, err
	}

	in := workout.Input{
		Kind:    kind,
		Coords:  workout.Coordinates{Lat: s.Coords[0], Lng: s.Coords[1]},
		Metrics: workout.Metrics{DistanceKm: s.Distance, DurationMin: s.Duration},
	}
	switch kind {
	case workout.KindRunning:
		if s.Cadence != nil {
			in.CadenceSpm = *s.Cadence
		}
	case workout.KindCycling:
		if s.ElevationGain != nil {
			in.ElevationGainM = *s.ElevationGain
		}
	}

	w, err := workout.New(s.ID, s.Date, in)
	if err != nil {
		return nil, err
	}
	if s.Description != "" {
		w.Description = s.Description
	}
	w.Clicks = s.Clicks
	return w, nil
}
