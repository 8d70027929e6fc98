package weather

import (
	"context"

	"github.com/mlbright/forecast/v2"
)

// Provider abstracts a forecast data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, pt Point) (*forecast.Forecast, error)
}
