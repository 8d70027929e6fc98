package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/store"
)

// Setting names under which per-account values live in the env store.
const (
	SchedulesSetting   = "SCHEDULES"
	ForecastKeySetting = "FORECAST_KEY"
)

// AccountConfig is what the loader knows about one account.
type AccountConfig struct {
	AccountID   string    `json:"account"`
	Schedules   []Entry   `json:"schedules"`
	ForecastKey string    `json:"-"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// Loader reads per-account settings from the env store and caches them per
// account id. A cached entry is reused until it is invalidated or, when
// refreshAfter is positive, until it is older than refreshAfter.
type Loader struct {
	kv           store.KV
	pluginID     string
	refreshAfter time.Duration
	now          func() time.Time

	mu    sync.Mutex
	cache map[string]AccountConfig
}

// NewLoader creates a Loader reading keys namespaced under pluginID.
func NewLoader(kv store.KV, pluginID string, refreshAfter time.Duration) *Loader {
	return &Loader{
		kv:           kv,
		pluginID:     pluginID,
		refreshAfter: refreshAfter,
		now:          time.Now,
		cache:        make(map[string]AccountConfig),
	}
}

// Get returns the cached configuration for accountID, loading it on first use.
func (l *Loader) Get(ctx context.Context, accountID string) AccountConfig {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg, ok := l.cache[accountID]; ok {
		if l.refreshAfter <= 0 || l.now().Sub(cfg.LoadedAt) < l.refreshAfter {
			return cfg
		}
		log.Infow("refreshing account config", "account", accountID, "age", l.now().Sub(cfg.LoadedAt))
	}

	cfg := AccountConfig{
		AccountID:   accountID,
		Schedules:   l.LoadSchedules(ctx, accountID),
		ForecastKey: l.LoadForecastKey(ctx, accountID),
		LoadedAt:    l.now(),
	}
	l.cache[accountID] = cfg
	return cfg
}

// Invalidate drops the cached configuration for accountID.
func (l *Loader) Invalidate(accountID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, accountID)
}

// InvalidateAll drops every cached configuration.
func (l *Loader) InvalidateAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]AccountConfig)
}

// LoadSchedules reads and parses the schedule list for accountID. Unreadable
// or malformed settings are logged and yield an empty list; individual
// entries that fail validation are dropped.
func (l *Loader) LoadSchedules(ctx context.Context, accountID string) []Entry {
	key := store.Key(l.pluginID, SchedulesSetting, accountID)

	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warnw("no schedules configured", "account", accountID, "key", key)
		} else {
			log.Warnw("failed to read schedules", "account", accountID, "key", key, "error", err)
		}
		return []Entry{}
	}

	var parsed []Entry
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Warnw("failed to parse schedules", "account", accountID, "key", key, "error", err)
		return []Entry{}
	}

	entries := make([]Entry, 0, len(parsed))
	for i, e := range parsed {
		if err := e.Validate(); err != nil {
			log.Warnw("dropping invalid schedule entry", "account", accountID, "index", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// LoadForecastKey reads the forecast API key for accountID. A missing key is
// logged and returned as "".
func (l *Loader) LoadForecastKey(ctx context.Context, accountID string) string {
	key := store.Key(l.pluginID, ForecastKeySetting, accountID)

	v, err := l.kv.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warnw("failed to read forecast key", "account", accountID, "key", key, "error", err)
	}
	if v == "" {
		log.Warnw("forecast key is not configured", "account", accountID, "key", key)
	}
	return v
}
