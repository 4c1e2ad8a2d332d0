package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-edge/internal/market"
	"github.com/i474232898/weather-edge/internal/store"
	"github.com/i474232898/weather-edge/internal/weather"
)

var validate = validator.New()

// PriceSource resolves a comma-delimited ticker list into quotes.
type PriceSource interface {
	Quotes(ctx context.Context, tickers string) (market.QuoteMap, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, appName string, prices PriceSource, service *weather.Service) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	priceHandler := newPriceHandler(prices)
	app.Get("/price", priceHandler)
	app.Get("/api/price", priceHandler)

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard/overview", func(c *fiber.Ctx) error {
		overview, err := service.Overview(c.UserContext())
		if err != nil {
			return backendError(err, "failed to load overview")
		}
		return c.JSON(overview)
	})

	v1.Get("/dashboard/volatility", func(c *fiber.Ctx) error {
		swings, err := service.Volatility(c.UserContext())
		if err != nil {
			return backendError(err, "failed to load volatility")
		}
		return c.JSON(swings)
	})

	v1.Get("/dashboard/busts", func(c *fiber.Ctx) error {
		busts, err := service.Busts(c.UserContext())
		if err != nil {
			return backendError(err, "failed to load forecast busts")
		}
		return c.JSON(busts)
	})

	v1.Get("/stats", func(c *fiber.Ctx) error {
		var req statsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := service.Stats(c.UserContext(), weather.StatKind(req.Kind), req.LeadDays)
		if err != nil {
			return backendError(err, "failed to load model stats")
		}
		return c.JSON(fiber.Map{
			"kind":      req.Kind,
			"lead_days": req.LeadDays,
			"stats":     stats,
		})
	})

	v1.Get("/bets", func(c *fiber.Ctx) error {
		var req betsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		view, err := service.Bets(c.UserContext(), req.Limit)
		if err != nil {
			return backendError(err, "failed to load best bets")
		}
		return c.JSON(view)
	})

	v1.Get("/errors/distribution", func(c *fiber.Ctx) error {
		bins, err := service.ErrorDistribution(c.UserContext())
		if err != nil {
			return backendError(err, "failed to load error distribution")
		}
		return c.JSON(bins)
	})

	v1.Get("/health/current", func(c *fiber.Ctx) error {
		report, err := service.LatestHealth()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no health report yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch health report")
		}
		return c.JSON(report)
	})

	v1.Get("/health/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := service.HealthRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no health reports for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch health history")
		}
		return c.JSON(fiber.Map{
			"from":    req.From,
			"to":      req.To,
			"reports": reports,
		})
	})

	v1.Post("/health/check", func(c *fiber.Ctx) error {
		report, err := service.CheckHealth(c.UserContext())
		if err != nil {
			return backendError(err, "failed to check data health")
		}
		return c.JSON(report)
	})
}

// priceQuery is validated after trimming; the raw value is what goes upstream.
type priceQuery struct {
	Tickers string `validate:"required"`
}

func newPriceHandler(prices PriceSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("tickers")
		if err := validate.Struct(priceQuery{Tickers: strings.TrimSpace(raw)}); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No tickers provided")
		}

		quotes, err := prices.Quotes(c.UserContext(), raw)
		if err != nil {
			logrus.WithError(err).WithField("tickers", raw).Error("price fetch failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch prices")
		}
		return c.JSON(quotes)
	}
}

func backendError(err error, msg string) error {
	logrus.WithError(err).Error(msg)
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// statsQuery holds query parameters for the model stats endpoint.
type statsQuery struct {
	Kind     string `validate:"oneof=high low both"`
	LeadDays int    `validate:"min=0,max=14"`
}

func (s *statsQuery) bind(c *fiber.Ctx) error {
	s.Kind = c.Query("kind", string(weather.KindBoth))
	s.LeadDays = 1

	if v := c.Query("lead_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("lead_days must be an integer")
		}
		s.LeadDays = n
	}
	return nil
}

// betsQuery holds query parameters for the best bets endpoint.
type betsQuery struct {
	Limit int `validate:"min=1,max=500"`
}

func (b *betsQuery) bind(c *fiber.Ctx) error {
	b.Limit = weather.DefaultBetLimit

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		b.Limit = n
	}
	return nil
}

// historyQuery holds query parameters for the health history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
