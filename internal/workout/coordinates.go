package workout

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLng converts to the s2 representation.
func (c Coordinates) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lng)
}

// Validate rejects non-finite or out of range positions.
func (c Coordinates) Validate() error {
	if !isFinite(c.Lat) || !isFinite(c.Lng) {
		return &ValidationError{Field: "coords", Reason: "must be finite"}
	}
	if !c.LatLng().IsValid() {
		return &ValidationError{Field: "coords", Reason: "out of range"}
	}
	return nil
}

// DistanceKm returns the great-circle distance to other.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	return c.LatLng().Distance(other.LatLng()).Radians() * EarthRadiusKm
}
