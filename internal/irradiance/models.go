package irradiance

import (
	"time"
)

// Kind identifies which API dataset a file or request belongs to.
type Kind string

const (
	KindForecast Kind = "forecast"
	KindActuals  Kind = "actuals"
)

// Forecast is one element of the API "forecasts" array.
// PeriodEnd and Period are kept exactly as received.
type Forecast struct {
	PeriodEnd string  `json:"period_end"`
	GHI       float64 `json:"ghi"`
	GHI90     float64 `json:"ghi90"`
	GHI10     float64 `json:"ghi10"`
	Period    string  `json:"period"`
}

// Actual is one element of the API "estimated_actuals" array.
type Actual struct {
	PeriodEnd string  `json:"period_end"`
	GHI       float64 `json:"ghi"`
	Period    string  `json:"period"`
}

// ForecastResponse is the body of the world radiation forecasts endpoint.
type ForecastResponse struct {
	Forecasts []Forecast `json:"forecasts"`
}

// ActualsResponse is the body of the world radiation estimated actuals endpoint.
type ActualsResponse struct {
	EstimatedActuals []Actual `json:"estimated_actuals"`
}

// Point is a single parsed observation ready for plotting.
type Point struct {
	Time   time.Time     `json:"time"`
	GHI    float64       `json:"ghi"`
	Period time.Duration `json:"period"`
}

// Series is a list of points ordered by Time ascending.
type Series []Point

// Summary is the reduced view of a series that ends up in the email table.
type Summary struct {
	Points      int       `json:"points"`
	PeakGHI     float64   `json:"peakGhi"`
	PeakAt      time.Time `json:"peakAt"`
	EnergyKWhM2 float64   `json:"energyKwhM2"` // irradiation over the series, kWh/m²
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
}
