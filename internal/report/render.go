package report

import (
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/site"
)

// Fixed chart file names inside the site directory; every render overwrites them.
const (
	ActualsChartName  = "actuals.png"
	ForecastChartName = "forecast.png"
)

var lineColor = color.RGBA{R: 0x00, G: 0x8c, B: 0xba, A: 0xff}

// SeriesSource loads the latest shifted, sorted series for a site.
type SeriesSource interface {
	LatestActuals(s site.Site) (irradiance.Series, error)
	LatestForecast(s site.Site) (irradiance.Series, error)
}

// Charts is the output of one render.
type Charts struct {
	ActualsPNG  string
	ForecastPNG string
	Actuals     irradiance.Series
	Forecast    irradiance.Series
}

// Renderer draws the irradiance charts for a site.
type Renderer struct {
	source SeriesSource
	now    func() time.Time
	width  vg.Length
	height vg.Length
}

// NewRenderer creates a Renderer producing 12x6 inch charts.
func NewRenderer(source SeriesSource) *Renderer {
	return &Renderer{
		source: source,
		now:    time.Now,
		width:  12 * vg.Inch,
		height: 6 * vg.Inch,
	}
}

// WithClock replaces the clock used for the chart titles.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// Render loads the newest actuals and forecast snapshots and writes both charts.
// It fails with irradiance.ErrNoData when either dataset is missing or empty.
func (r *Renderer) Render(s site.Site) (Charts, error) {
	actuals, err := r.source.LatestActuals(s)
	if err != nil {
		return Charts{}, fmt.Errorf("render site %d: %w", s.ID, err)
	}
	forecast, err := r.source.LatestForecast(s)
	if err != nil {
		return Charts{}, fmt.Errorf("render site %d: %w", s.ID, err)
	}
	if len(actuals) == 0 || len(forecast) == 0 {
		return Charts{}, fmt.Errorf("render site %d: empty snapshot: %w", s.ID, irradiance.ErrNoData)
	}

	today := r.now().Format("2006-01-02")
	charts := Charts{
		ActualsPNG:  filepath.Join(s.Dir, ActualsChartName),
		ForecastPNG: filepath.Join(s.Dir, ForecastChartName),
		Actuals:     actuals,
		Forecast:    forecast,
	}

	if err := r.draw(forecast, fmt.Sprintf("Forecast for %s\n%s", s.Name, today), charts.ForecastPNG); err != nil {
		return Charts{}, fmt.Errorf("render forecast chart for site %d: %w", s.ID, err)
	}
	if err := r.draw(actuals, fmt.Sprintf("Irradiance for %s\n%s", s.Name, today), charts.ActualsPNG); err != nil {
		return Charts{}, fmt.Errorf("render actuals chart for site %d: %w", s.ID, err)
	}

	log.Printf("INFO: rendered charts for site %d (%d actuals, %d forecast points)", s.ID, len(actuals), len(forecast))
	return charts, nil
}

func (r *Renderer) draw(series irradiance.Series, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "W/m^2"
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 02\n15:04", Time: plot.UTCUnixTime}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(series))
	for i, pt := range series {
		pts[i].X = float64(pt.Time.Unix())
		pts[i].Y = pt.GHI
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = lineColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Y.Min = 0

	return p.Save(r.width, r.height, path)
}
