package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast-bot/internal/plugin"
	"github.com/i474232898/weather-forecast-bot/internal/schedule"
	"github.com/i474232898/weather-forecast-bot/internal/social"
)

var validate = validator.New()

// Bot is what the operator API needs from the forecast plugin.
type Bot interface {
	Schedules(ctx context.Context, accountID string) schedule.AccountConfig
	Preview(ctx context.Context, accountID string, index int) (string, error)
	Reload(accountID string)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Only accounts in
// accounts are served.
func RegisterRoutes(app *fiber.App, bot Bot, accounts []social.Account) {
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		known[a.ID] = true
	}

	requireAccount := func(c *fiber.Ctx) error {
		req := accountParam{Account: c.Params("account")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !known[req.Account] {
			return fiber.NewError(fiber.StatusNotFound, "unknown account")
		}
		return c.Next()
	}

	v1 := app.Group("/api/v1/accounts")

	v1.Get("/:account/schedules", requireAccount, func(c *fiber.Ctx) error {
		return c.JSON(bot.Schedules(c.UserContext(), c.Params("account")))
	})

	v1.Get("/:account/match", requireAccount, func(c *fiber.Ctx) error {
		var q matchQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cfg := bot.Schedules(c.UserContext(), c.Params("account"))
		at := time.Date(2000, 1, 1, q.Hour, q.Minute, 0, 0, time.Local)
		entry, ok := schedule.FindMatch(at, cfg.Schedules)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no schedule entry at "+q.At)
		}
		return c.JSON(entry)
	})

	v1.Get("/:account/preview", requireAccount, func(c *fiber.Ctx) error {
		q := previewQuery{Index: c.QueryInt("index", 0)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		text, err := bot.Preview(c.UserContext(), c.Params("account"), q.Index)
		if err != nil {
			switch {
			case errors.Is(err, plugin.ErrNoSchedule):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, plugin.ErrNoForecastClient):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch forecast")
		}
		return c.JSON(fiber.Map{"text": text})
	})

	v1.Post("/:account/reload", requireAccount, func(c *fiber.Ctx) error {
		bot.Reload(c.Params("account"))
		return c.SendStatus(fiber.StatusNoContent)
	})
}

type accountParam struct {
	Account string `validate:"required,max=64,printascii,excludesall=:/"`
}

type previewQuery struct {
	Index int `validate:"min=0"`
}

// matchQuery holds the HH:MM time to match against.
type matchQuery struct {
	At     string `validate:"required"`
	Hour   int    `validate:"min=0,max=23"`
	Minute int    `validate:"min=0,max=59"`
}

func (q *matchQuery) bind(c *fiber.Ctx) error {
	q.At = c.Query("at")
	if q.At == "" {
		return errors.New("at query parameter is required (HH:MM)")
	}
	at, err := time.Parse("15:04", q.At)
	if err != nil {
		return fmt.Errorf("invalid time %q; use HH:MM", q.At)
	}
	q.Hour, q.Minute = at.Hour(), at.Minute()
	return validate.Struct(q)
}
