package irradiance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/solar-report/internal/site"
)

// Service fetches datasets from the provider and persists them through the store.
type Service struct {
	store    Store
	provider Provider
	now      func() time.Time
}

// NewService creates a new Service using the local wall clock for file names.
func NewService(store Store, provider Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to stamp file names.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FetchForecast downloads the site's forecast and writes it to a timestamped CSV.
func (s *Service) FetchForecast(ctx context.Context, st site.Site) (string, error) {
	recs, err := s.provider.FetchForecasts(ctx, st)
	if err != nil {
		return "", fmt.Errorf("fetch forecast for site %d: %w", st.ID, err)
	}

	path, err := s.store.SaveForecasts(st, s.now(), recs)
	if err != nil {
		return "", fmt.Errorf("save forecast for site %d: %w", st.ID, err)
	}
	log.Printf("INFO: %s: saved %d forecast rows for site %d to %s", s.provider.Name(), len(recs), st.ID, path)
	return path, nil
}

// FetchActuals downloads the site's estimated actuals and writes them to a timestamped CSV.
func (s *Service) FetchActuals(ctx context.Context, st site.Site) (string, error) {
	recs, err := s.provider.FetchActuals(ctx, st)
	if err != nil {
		return "", fmt.Errorf("fetch actuals for site %d: %w", st.ID, err)
	}

	path, err := s.store.SaveActuals(st, s.now(), recs)
	if err != nil {
		return "", fmt.Errorf("save actuals for site %d: %w", st.ID, err)
	}
	log.Printf("INFO: %s: saved %d actuals rows for site %d to %s", s.provider.Name(), len(recs), st.ID, path)
	return path, nil
}

// LatestForecast loads the most recent forecast snapshot as a shifted, sorted series.
func (s *Service) LatestForecast(st site.Site) (Series, error) {
	path, recs, err := s.store.LatestForecasts(st)
	if err != nil {
		return nil, err
	}
	series, err := ForecastSeries(recs, st.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// LatestActuals loads the most recent actuals snapshot as a shifted, sorted series.
func (s *Service) LatestActuals(st site.Site) (Series, error) {
	path, recs, err := s.store.LatestActuals(st)
	if err != nil {
		return nil, err
	}
	series, err := ActualSeries(recs, st.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}
