package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlbright/forecast/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/store"
	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

const (
	// DefaultCacheTTL is how long a forecast response is reused.
	DefaultCacheTTL = 27*time.Minute + 45*time.Second

	maxBodyBytes = 1 << 20
)

// Options configures a provider. Zero values fall back to defaults.
type Options struct {
	BaseURL  string
	Lang     string
	CacheTTL time.Duration
	// Cache stores raw responses; nil disables response caching.
	Cache store.KV
	// HTTP.Client is required. Every fetch is a single attempt.
	HTTP common.HTTPClientConfig
}

// source holds what every HTTP-backed provider shares: the response cache,
// the circuit breaker and the single-attempt client settings.
type source struct {
	name     string
	cache    store.KV
	cacheTTL time.Duration
	httpCfg  common.HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func newSource(name string, opts Options) source {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return source{
		name:     name,
		cache:    opts.Cache,
		cacheTTL: ttl,
		httpCfg:  opts.HTTP,
		circuit:  common.NewCircuitBreaker(name),
	}
}

func (s *source) Name() string {
	return s.name
}

// fetch serves a cached body for cacheKey when present, otherwise performs
// the request once. Only bodies that decode successfully are cached.
func (s *source) fetch(
	ctx context.Context,
	cacheKey string,
	buildRequest func() (*http.Request, error),
	decode func([]byte) (*forecast.Forecast, error),
) (*forecast.Forecast, error) {
	cacheKey = "forecast:" + s.name + ":" + cacheKey

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			f, decErr := decode([]byte(raw))
			if decErr == nil {
				log.Debugw("forecast cache hit", "provider", s.name, "key", cacheKey)
				return f, nil
			}
			log.Warnw("discarding undecodable cached forecast", "provider", s.name, "error", decErr)
		case !errors.Is(err, store.ErrNotFound):
			log.Warnw("forecast cache read failed", "provider", s.name, "error", err)
		}
	}

	resp, err := common.DoRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", s.name, err)
	}

	f, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", s.name, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, string(body), s.cacheTTL); err != nil {
			log.Warnw("forecast cache write failed", "provider", s.name, "error", err)
		}
	}
	return f, nil
}

// unixTime is the numeric type forecast.DataPoint uses for timestamps.
type unixTime interface {
	~int | ~int64 | ~float64
}

func setUnix[T unixTime](dst *T, sec int64) {
	*dst = T(sec)
}

// hourlyPoint builds a forecast.DataPoint for providers that do not speak the
// Dark Sky format natively.
func hourlyPoint(ts time.Time, icon weather.Icon, summary string, tempC, precipProb float64) forecast.DataPoint {
	dp := forecast.DataPoint{
		Icon:              string(icon),
		Summary:           summary,
		Temperature:       tempC,
		PrecipProbability: precipProb,
	}
	setUnix(&dp.Time, ts.Unix())
	return dp
}
