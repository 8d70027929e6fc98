package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Point is a geographic coordinate, encoded in JSON as [lat, lon].
type Point struct {
	Lat float64
	Lon float64
}

// UnmarshalJSON accepts exactly two numbers.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("point: expected [lat, lon], got %d values", len(raw))
	}
	p.Lat, p.Lon = raw[0], raw[1]
	return nil
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

// Valid reports whether the point lies within latitude/longitude bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Key returns a canonical string key for indexing this point in caches.
func (p Point) Key() string {
	return strconv.FormatFloat(p.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 4, 64)
}

// Location is a named point a forecast is posted for.
type Location struct {
	Name  string `json:"name" validate:"required"`
	Point Point  `json:"point"`
}
