package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-forecast-bot/internal/api/http"
	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/config"
	"github.com/i474232898/weather-forecast-bot/internal/log"
	"github.com/i474232898/weather-forecast-bot/internal/plugin"
	"github.com/i474232898/weather-forecast-bot/internal/schedule"
	"github.com/i474232898/weather-forecast-bot/internal/scheduler"
	"github.com/i474232898/weather-forecast-bot/internal/social"
	"github.com/i474232898/weather-forecast-bot/internal/store"
	"github.com/i474232898/weather-forecast-bot/internal/weather"
	"github.com/i474232898/weather-forecast-bot/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; fall back to the production logger.
		_ = log.Init(false)
		log.Fatalf("failed to load config: %v", err)
	}
	if err := log.Init(cfg.Debug); err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Env store holding per-account plugin settings; also backs the forecast response cache.
	kv, closeStore := openStore(ctx, cfg)
	defer closeStore()
	seedSettings(ctx, cfg, kv)

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	forecastOpts := providers.Options{
		BaseURL:  cfg.ForecastBaseURL,
		Lang:     cfg.ForecastLang,
		CacheTTL: cfg.ForecastCacheTTL,
		Cache:    kv,
		HTTP: common.HTTPClientConfig{
			Client:  httpClient,
			Limiter: common.NewLimiter(cfg.ForecastRPS, 1),
		},
	}
	newClient, err := forecastClients(cfg, forecastOpts)
	if err != nil {
		log.Fatalf("failed to configure forecast provider: %v", err)
	}

	var poster social.Poster = social.LogPoster{}
	if !cfg.DryRun {
		poster = social.NewMastodonPoster(cfg.MastodonServer, cfg.MastodonVisibility, common.HTTPClientConfig{
			Client: httpClient,
		})
	}

	loader := schedule.NewLoader(kv, plugin.ID, cfg.ConfigRefresh)
	bot := plugin.New(loader, poster, weather.Formatter{Location: cfg.Location}, newClient)

	// Scheduler that checks every minute whether a forecast is due.
	sched := scheduler.New(cfg.Accounts, bot, cfg.Location, 2*cfg.HTTPTimeout)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast-bot",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weather-forecast-bot",
			"accounts": len(cfg.Accounts),
			"dryRun":   cfg.DryRun,
		})
	})

	httpapi.RegisterRoutes(app, bot, cfg.Accounts)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()
	log.Infow("weather-forecast-bot started", "port", cfg.Port, "provider", cfg.ForecastProvider, "accounts", len(cfg.Accounts), "store", cfg.StoreBackend)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

// forecastClients returns the per-key client constructor. The fallback
// provider, when configured, uses its own global key and the primary's
// endpoint override does not apply to it.
func forecastClients(cfg *config.AppConfig, opts providers.Options) (plugin.ClientFactory, error) {
	primary, err := providers.Factory(cfg.ForecastProvider, opts)
	if err != nil {
		return nil, err
	}
	if cfg.ForecastFallback == "" {
		return primary, nil
	}

	fbOpts := opts
	fbOpts.BaseURL = ""
	secondary, err := providers.Factory(cfg.ForecastFallback, fbOpts)
	if err != nil {
		return nil, err
	}
	fallback := secondary(cfg.ForecastFallbackKey)
	return func(apiKey string) weather.Provider {
		return weather.NewChain(primary(apiKey), fallback)
	}, nil
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.KV, func()) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()

	var (
		kv interface {
			store.KV
			Close() error
		}
		err error
	)
	switch cfg.StoreBackend {
	case config.StoreRedis:
		kv, err = store.NewRedisStore(dialCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StoreSQLite:
		kv, err = store.NewSQLiteStore(dialCtx, cfg.SQLitePath)
	default:
		return store.NewMemoryStore(), func() {}
	}
	if err != nil {
		log.Fatalf("failed to open env store: %v", err)
	}
	return kv, func() {
		if err := kv.Close(); err != nil {
			log.Warnw("closing env store", "backend", cfg.StoreBackend, "error", err)
		}
	}
}

// seedSettings copies per-account settings found in the process environment
// into the env store, overriding stored values.
func seedSettings(ctx context.Context, cfg *config.AppConfig, kv store.KV) {
	settings := cfg.AccountSettings(schedule.SchedulesSetting, schedule.ForecastKeySetting)
	for name, byAccount := range settings {
		for accountID, value := range byAccount {
			if err := kv.Set(ctx, store.Key(plugin.ID, name, accountID), value, 0); err != nil {
				log.Warnw("failed to seed setting", "setting", name, "account", accountID, "error", err)
			}
		}
	}
}
