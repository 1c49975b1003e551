package irradiance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/solar-report/internal/site"
)

type fakeProvider struct {
	forecasts []Forecast
	actuals   []Actual
	err       error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchForecasts(context.Context, site.Site) ([]Forecast, error) {
	return f.forecasts, f.err
}

func (f *fakeProvider) FetchActuals(context.Context, site.Site) ([]Actual, error) {
	return f.actuals, f.err
}

type fakeStore struct {
	savedAt   time.Time
	forecasts []Forecast
	actuals   []Actual
}

func (f *fakeStore) SaveForecasts(s site.Site, at time.Time, recs []Forecast) (string, error) {
	f.savedAt, f.forecasts = at, recs
	return fmt.Sprintf("%d_forecast.csv", s.ID), nil
}

func (f *fakeStore) SaveActuals(s site.Site, at time.Time, recs []Actual) (string, error) {
	f.savedAt, f.actuals = at, recs
	return fmt.Sprintf("%d_actuals.csv", s.ID), nil
}

func (f *fakeStore) LatestForecasts(site.Site) (string, []Forecast, error) {
	return "f.csv", f.forecasts, nil
}

func (f *fakeStore) LatestActuals(site.Site) (string, []Actual, error) {
	return "a.csv", f.actuals, nil
}

func TestFetchForecastPersistsWithClock(t *testing.T) {
	now := time.Date(2020, 10, 20, 7, 15, 0, 0, time.Local)
	prov := &fakeProvider{forecasts: []Forecast{{PeriodEnd: "2020-10-20T08:00:00Z", GHI: 1}}}
	st := &fakeStore{}
	svc := NewService(st, prov).WithClock(func() time.Time { return now })

	path, err := svc.FetchForecast(context.Background(), site.Site{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, "3_forecast.csv", path)
	assert.Equal(t, now, st.savedAt)
	assert.Equal(t, prov.forecasts, st.forecasts)
}

func TestFetchActualsPropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	st := &fakeStore{}
	svc := NewService(st, &fakeProvider{err: boom})

	_, err := svc.FetchActuals(context.Background(), site.Site{ID: 1})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, st.actuals)
}

func TestLatestSeriesAppliesSiteTimezone(t *testing.T) {
	st := &fakeStore{
		actuals: []Actual{
			{PeriodEnd: "2020-10-20T02:00:00Z", GHI: 2},
			{PeriodEnd: "2020-10-20T01:00:00Z", GHI: 1},
		},
		forecasts: []Forecast{{PeriodEnd: "2020-10-21T00:00:00Z", GHI: 5}},
	}
	svc := NewService(st, &fakeProvider{})
	s := site.Site{ID: 1, Timezone: 10}

	actuals, err := svc.LatestActuals(s)
	require.NoError(t, err)
	require.Len(t, actuals, 2)
	assert.Equal(t, time.Date(2020, 10, 20, 11, 0, 0, 0, time.UTC), actuals[0].Time)

	forecast, err := svc.LatestForecast(s)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 10, 21, 10, 0, 0, 0, time.UTC), forecast[0].Time)
}
