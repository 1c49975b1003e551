package irradiance

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/solar-report/internal/site"
)

// ErrNoData is returned when a site has no stored snapshot of the requested kind.
var ErrNoData = errors.New("no data available")

// Provider abstracts the irradiance API (Solcast world radiation endpoints).
type Provider interface {
	Name() string
	FetchForecasts(ctx context.Context, s site.Site) ([]Forecast, error)
	FetchActuals(ctx context.Context, s site.Site) ([]Actual, error)
}

// Store is the contract the on-disk CSV store must satisfy.
// Save* return the path of the written file.
type Store interface {
	SaveForecasts(s site.Site, at time.Time, recs []Forecast) (string, error)
	SaveActuals(s site.Site, at time.Time, recs []Actual) (string, error)
	LatestForecasts(s site.Site) (string, []Forecast, error)
	LatestActuals(s site.Site) (string, []Actual, error)
}
