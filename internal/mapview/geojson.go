package mapview

import "github.com/thanhtrancs/Mapty/internal/workout"

// FeatureCollection is the GeoJSON document of the marker layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one marker as a GeoJSON point.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Point          `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Point holds GeoJSON coordinates, longitude first.
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Snapshot is the serialisable state of the layer.
type Snapshot struct {
	Center  workout.Coordinates `json:"center"`
	Zoom    int                 `json:"zoom"`
	Markers FeatureCollection   `json:"markers"`
}

// GeoJSON exports the markers.
func (l *Layer) GeoJSON() FeatureCollection {
	markers := l.Markers()
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(markers))}
	for _, m := range markers {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Point{Type: "Point", Coordinates: [2]float64{m.At.Lng, m.At.Lat}},
			Properties: map[string]any{
				"marker":         int64(m.Handle),
				"popup":          m.Popup.Content,
				"class_name":     m.Popup.ClassName,
				"max_width":      m.Popup.MaxWidth,
				"min_width":      m.Popup.MinWidth,
				"auto_close":     m.Popup.AutoClose,
				"close_on_click": m.Popup.CloseOnClick,
			},
		})
	}
	return fc
}

// Snapshot returns the center, zoom and markers.
func (l *Layer) Snapshot() Snapshot {
	center, zoom := l.View()
	return Snapshot{Center: center, Zoom: zoom, Markers: l.GeoJSON()}
}
