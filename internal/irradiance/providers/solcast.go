package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/site"
)

const (
	DefaultSolcastBaseURL = "https://api.solcast.com.au/"

	forecastsPath = "world_radiation/forecasts.json"
	actualsPath   = "world_radiation/estimated_actuals.json"
)

// SolcastProvider implements irradiance.Provider for the Solcast world radiation API.
type SolcastProvider struct {
	name    string
	baseURL string
	hours   int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewSolcastProvider creates a provider against baseURL. hours, when positive,
// is sent as the forecast horizon.
func NewSolcastProvider(client *http.Client, baseURL string, hours int, breaker BreakerConfig) *SolcastProvider {
	if baseURL == "" {
		baseURL = DefaultSolcastBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &SolcastProvider{
		name:    "solcast",
		baseURL: baseURL,
		hours:   hours,
		client:  client,
		circuit: newBreaker("solcast", breaker),
	}
}

func (p *SolcastProvider) Name() string {
	return p.name
}

// FetchForecasts returns the forecasts array for the site's coordinates.
func (p *SolcastProvider) FetchForecasts(ctx context.Context, s site.Site) ([]irradiance.Forecast, error) {
	values := p.query(s)
	if p.hours > 0 {
		values.Set("hours", strconv.Itoa(p.hours))
	}

	var payload irradiance.ForecastResponse
	if err := p.get(ctx, s, forecastsPath, values, &payload); err != nil {
		return nil, err
	}
	return payload.Forecasts, nil
}

// FetchActuals returns the estimated_actuals array for the site's coordinates.
func (p *SolcastProvider) FetchActuals(ctx context.Context, s site.Site) ([]irradiance.Actual, error) {
	var payload irradiance.ActualsResponse
	if err := p.get(ctx, s, actualsPath, p.query(s), &payload); err != nil {
		return nil, err
	}
	return payload.EstimatedActuals, nil
}

func (p *SolcastProvider) query(s site.Site) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(s.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(s.Longitude, 'f', -1, 64))
	return values
}

func (p *SolcastProvider) get(ctx context.Context, s site.Site, path string, values url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.APIKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", p.name, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", p.name, path, err)
	}
	return nil
}
