package triage

import (
	"math"
	"strconv"
	"strings"
)

// Location is a caller-supplied WGS84 point.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewLocation returns nil unless both coordinates are present and in range.
func NewLocation(lat, lon *float64) *Location {
	if lat == nil || lon == nil {
		return nil
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		return nil
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		return nil
	}
	return &Location{Latitude: *lat, Longitude: *lon}
}

// ParseLocation reads query-string coordinates; bad or partial input yields nil.
func ParseLocation(lat, lon string) *Location {
	latValue, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil
	}
	lonValue, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil
	}
	return NewLocation(&latValue, &lonValue)
}

// Facility is a medical institution recommended alongside an analysis.
// Facilities are rebuilt on every request and never persisted.
type Facility struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Departments []string `json:"departments"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
}
