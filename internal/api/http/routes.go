package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/solar-report/internal/pipeline"
	"github.com/i474232898/solar-report/internal/site"
	"github.com/i474232898/solar-report/internal/store"
)

var validate = validator.New()

// Registry is the read side of the site registry.
type Registry interface {
	Sites() []site.Site
	Lookup(id int) (site.Site, error)
}

// RunHistory is the read side of the run history store.
type RunHistory interface {
	Latest(siteID int) (pipeline.SiteResult, error)
	Range(siteID int, from, to time.Time) ([]pipeline.SiteResult, error)
}

// RegisterRoutes wires the status handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sites Registry, history RunHistory) {
	v1 := app.Group("/api/v1")

	v1.Get("/sites", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sites": sites.Sites(),
		})
	})

	v1.Get("/sites/:id/runs/latest", func(c *fiber.Ctx) error {
		s, err := lookupSite(c, sites)
		if err != nil {
			return err
		}

		run, err := history.Latest(s.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs recorded for site")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
		}
		return c.JSON(run)
	})

	v1.Get("/sites/:id/runs", func(c *fiber.Ctx) error {
		s, err := lookupSite(c, sites)
		if err != nil {
			return err
		}

		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := history.Range(s.ID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs recorded for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
		}

		return c.JSON(fiber.Map{
			"site": s,
			"from": req.From,
			"to":   req.To,
			"runs": runs,
		})
	})
}

// RegisterMetrics exposes the Prometheus registry on /metrics.
func RegisterMetrics(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func lookupSite(c *fiber.Ctx, sites Registry) (site.Site, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return site.Site{}, fiber.NewError(fiber.StatusBadRequest, "site id must be an integer")
	}
	s, err := sites.Lookup(id)
	if err != nil {
		if errors.Is(err, site.ErrNotFound) {
			return site.Site{}, fiber.NewError(fiber.StatusNotFound, "site not found")
		}
		return site.Site{}, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return s, nil
}

// rangeQuery holds query parameters for the run history endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
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

	q.From = from
	q.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
