package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mlbright/forecast/v2"

	"github.com/i474232898/weather-forecast-bot/internal/log"
)

// Chain is a Provider that asks each of its providers in order and returns
// the first forecast that arrives. A provider's failure is logged and the
// next one is tried.
type Chain struct {
	providers []Provider
}

// NewChain builds a Chain. Nil providers are skipped.
func NewChain(providers ...Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

func (c *Chain) Fetch(ctx context.Context, pt Point) (*forecast.Forecast, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no forecast providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		f, err := p.Fetch(ctx, pt)
		if err == nil {
			return f, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		log.Warnw("forecast provider failed", "provider", p.Name(), "point", pt.Key(), "error", err)
	}
	return nil, errors.Join(errs...)
}
