package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/social"
	"github.com/i474232898/weather-forecast-bot/internal/weather/providers"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	// Accounts the bot posts as, with their posting credentials.
	Accounts []social.Account

	// Env store backend holding per-account plugin settings.
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string

	// ForecastProvider selects the upstream forecast API (see providers.Kinds).
	ForecastProvider string
	// ForecastFallback is an optional second provider asked when the first fails.
	ForecastFallback    string
	ForecastFallbackKey string
	// ForecastBaseURL overrides the provider's default endpoint when set.
	ForecastBaseURL  string
	ForecastLang     string
	ForecastCacheTTL time.Duration
	ForecastRPS      float64

	HTTPTimeout time.Duration

	// Location schedules are matched in; nil means the host's local zone.
	Location *time.Location
	// ConfigRefresh reloads cached account settings after this age (0 = never).
	ConfigRefresh time.Duration

	MastodonServer     string
	MastodonVisibility string
	DryRun             bool

	Port  string
	Debug bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Infof("no .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	ids := common.SplitList(os.Getenv("ACCOUNTS"))
	if len(ids) == 0 {
		return nil, fmt.Errorf("ACCOUNTS must list at least one account")
	}
	for _, id := range ids {
		cfg.Accounts = append(cfg.Accounts, social.Account{
			ID:    id,
			Token: os.Getenv("MASTODON_TOKEN_" + id),
		})
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault("ENV_STORE", StoreMemory))
	switch cfg.StoreBackend {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return nil, fmt.Errorf("invalid ENV_STORE %q: want %s, %s or %s", cfg.StoreBackend, StoreMemory, StoreRedis, StoreSQLite)
	}
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "weather-forecast-bot.db")

	cfg.ForecastProvider = strings.ToLower(getenvDefault("FORECAST_PROVIDER", providers.KindDarkSky))
	if !slices.Contains(providers.Kinds(), cfg.ForecastProvider) {
		return nil, fmt.Errorf("invalid FORECAST_PROVIDER %q: want one of %v", cfg.ForecastProvider, providers.Kinds())
	}
	cfg.ForecastFallback = strings.ToLower(os.Getenv("FORECAST_FALLBACK"))
	if cfg.ForecastFallback != "" {
		if !slices.Contains(providers.Kinds(), cfg.ForecastFallback) {
			return nil, fmt.Errorf("invalid FORECAST_FALLBACK %q: want one of %v", cfg.ForecastFallback, providers.Kinds())
		}
		if cfg.ForecastFallback == cfg.ForecastProvider {
			return nil, fmt.Errorf("FORECAST_FALLBACK must differ from FORECAST_PROVIDER")
		}
	}
	cfg.ForecastFallbackKey = os.Getenv("FORECAST_FALLBACK_KEY")
	cfg.ForecastBaseURL = os.Getenv("FORECAST_BASE_URL")
	cfg.ForecastLang = getenvDefault("FORECAST_LANG", "ja")

	var err error
	if cfg.ForecastCacheTTL, err = getenvDuration("FORECAST_CACHE_TTL", providers.DefaultCacheTTL.String()); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ConfigRefresh, err = getenvDuration("CONFIG_REFRESH", "0s"); err != nil {
		return nil, err
	}

	rps := getenvDefault("FORECAST_RPS", "0")
	if cfg.ForecastRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid FORECAST_RPS: %w", err)
	}

	if tz := os.Getenv("SCHEDULE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	cfg.MastodonServer = os.Getenv("MASTODON_SERVER")
	cfg.MastodonVisibility = getenvDefault("MASTODON_VISIBILITY", "unlisted")
	cfg.DryRun = getenvBool("DRY_RUN", false)
	if cfg.MastodonServer == "" && !cfg.DryRun {
		return nil, fmt.Errorf("MASTODON_SERVER is required unless DRY_RUN is set")
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = getenvBool("DEBUG", false)

	return cfg, nil
}

// AccountSettings returns the per-account plugin settings present in the
// process environment, keyed by setting name then account id. They are used
// to seed the env store.
func (c *AppConfig) AccountSettings(names ...string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, name := range names {
		for _, a := range c.Accounts {
			v, ok := os.LookupEnv(name + "_" + a.ID)
			if !ok {
				continue
			}
			if out[name] == nil {
				out[name] = make(map[string]string)
			}
			out[name][a.ID] = v
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
