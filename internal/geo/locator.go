// Package geo resolves the user's starting position.
package geo

import (
	"context"
	"errors"

	"github.com/thanhtrancs/Mapty/internal/workout"
)

// ErrPositionUnavailable is returned when no position can be determined.
var ErrPositionUnavailable = errors.New("position unavailable")

// Locator returns the current position of the user.
type Locator interface {
	CurrentPosition(ctx context.Context) (workout.Coordinates, error)
}

// StaticLocator answers with a fixed, configured position.
type StaticLocator struct {
	position *workout.Coordinates
}

// NewStaticLocator builds a locator from optional latitude and longitude.
// When either is missing every lookup fails.
func NewStaticLocator(lat, lng *float64) StaticLocator {
	if lat == nil || lng == nil {
		return StaticLocator{}
	}
	return StaticLocator{position: &workout.Coordinates{Lat: *lat, Lng: *lng}}
}

func (l StaticLocator) CurrentPosition(ctx context.Context) (workout.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return workout.Coordinates{}, err
	}
	if l.position == nil {
		return workout.Coordinates{}, ErrPositionUnavailable
	}
	if err := l.position.Validate(); err != nil {
		return workout.Coordinates{}, errors.Join(ErrPositionUnavailable, err)
	}
	return *l.position, nil
}
