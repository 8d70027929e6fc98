// Package plugin posts a scheduled weather forecast for each configured account.
//
// The host calls Check on every tick; when it reports a match the host calls
// Run with the returned Invocation. Run always reports completion through its
// done callback, whether the forecast was posted or not.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/schedule"
	"github.com/i474232898/weather-forecast-bot/internal/social"
	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

// ID namespaces this plugin's settings in the env store.
const ID = "weather-forecast"

var (
	// ErrNoForecastClient is returned when an account has no forecast API key.
	ErrNoForecastClient = errors.New("forecast client not configured")
	// ErrNoSchedule is returned when a schedule index is out of range.
	ErrNoSchedule = errors.New("no such schedule entry")
)

// ClientFactory builds a forecast client for an API key.
type ClientFactory func(apiKey string) weather.Provider

// Invocation is one matched run: the account to post as and the entry that
// matched. It is produced by Check and consumed by Run so both agree on the entry.
type Invocation struct {
	ID      string
	Account social.Account
	Entry   schedule.Entry
	At      time.Time
}

// Plugin is the forecast posting task.
type Plugin struct {
	loader    *schedule.Loader
	poster    social.Poster
	formatter weather.Formatter
	newClient ClientFactory

	mu      sync.Mutex
	clients map[string]weather.Provider // by API key
}

// New creates a Plugin.
func New(loader *schedule.Loader, poster social.Poster, formatter weather.Formatter, newClient ClientFactory) *Plugin {
	return &Plugin{
		loader:    loader,
		poster:    poster,
		formatter: formatter,
		newClient: newClient,
		clients:   make(map[string]weather.Provider),
	}
}

// BuildForecastClient returns the client for apiKey, creating it on first use.
// It returns nil for an empty key.
func (p *Plugin) BuildForecastClient(apiKey string) weather.Provider {
	if apiKey == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[apiKey]; ok {
		return c
	}
	c := p.newClient(apiKey)
	p.clients[apiKey] = c
	return c
}

// Check reports whether account has a schedule entry for now's hour and minute.
func (p *Plugin) Check(ctx context.Context, account social.Account, now time.Time) (Invocation, bool) {
	cfg := p.loader.Get(ctx, account.ID)

	entry, ok := schedule.FindMatch(now, cfg.Schedules)
	if !ok {
		return Invocation{}, false
	}
	return Invocation{
		ID:      uuid.NewString(),
		Account: account,
		Entry:   entry,
		At:      now,
	}, true
}

// Run fetches, formats and posts the forecast for inv. done is called exactly
// once with whether a status was posted; failures are logged here.
func (p *Plugin) Run(ctx context.Context, inv Invocation, done func(ok bool)) {
	ok, err := p.run(ctx, inv)
	if err != nil {
		log.Errorw("forecast run failed",
			"invocation", inv.ID,
			"account", inv.Account.ID,
			"location", inv.Entry.Location.Name,
			"error", err,
		)
	}
	if done != nil {
		done(ok)
	}
}

func (p *Plugin) run(ctx context.Context, inv Invocation) (bool, error) {
	text, err := p.render(ctx, inv.Account.ID, inv.Entry)
	if err != nil {
		return false, err
	}
	if text == weather.FailureMessage {
		log.Warnw("forecast payload too short, posting failure notice",
			"invocation", inv.ID, "account", inv.Account.ID)
	}

	ok, err := p.poster.Post(ctx, social.Status{Account: inv.Account, Text: text})
	if err != nil {
		return false, fmt.Errorf("post status: %w", err)
	}
	log.Infow("forecast run finished",
		"invocation", inv.ID, "account", inv.Account.ID, "at", inv.Entry.Clock(), "posted", ok)
	return ok, nil
}

// Preview renders the text that would be posted for the account's index-th
// schedule entry without posting it.
func (p *Plugin) Preview(ctx context.Context, accountID string, index int) (string, error) {
	cfg := p.loader.Get(ctx, accountID)
	if index < 0 || index >= len(cfg.Schedules) {
		return "", fmt.Errorf("%w: %d", ErrNoSchedule, index)
	}
	return p.render(ctx, accountID, cfg.Schedules[index])
}

// Schedules returns the account's loaded schedule entries.
func (p *Plugin) Schedules(ctx context.Context, accountID string) schedule.AccountConfig {
	return p.loader.Get(ctx, accountID)
}

// Reload discards the account's cached settings so the next call reloads them.
func (p *Plugin) Reload(accountID string) {
	p.loader.Invalidate(accountID)
}

func (p *Plugin) render(ctx context.Context, accountID string, entry schedule.Entry) (string, error) {
	cfg := p.loader.Get(ctx, accountID)
	client := p.BuildForecastClient(cfg.ForecastKey)
	if client == nil {
		return "", ErrNoForecastClient
	}

	f, err := client.Fetch(ctx, entry.Location.Point)
	if err != nil {
		return "", fmt.Errorf("fetch forecast: %w", err)
	}
	return p.formatter.Format(entry.Location, f), nil
}
