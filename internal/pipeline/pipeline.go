package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/irradiance/providers"
	"github.com/i474232898/solar-report/internal/metrics"
	"github.com/i474232898/solar-report/internal/report"
	"github.com/i474232898/solar-report/internal/site"
)

// Stage is the last pipeline step a site run reached.
type Stage string

const (
	StageOpen     Stage = "open"
	StageActuals  Stage = "fetch_actuals"
	StageForecast Stage = "fetch_forecast"
	StageRender   Stage = "render"
	StageMail     Stage = "mail"
	StageDone     Stage = "done"
)

// Error kinds used in logs, metric labels and the status API.
const (
	KindOK                  = "ok"
	KindNotFound            = "not_found"
	KindUpstreamUnavailable = "upstream_unavailable"
	KindNoData              = "no_data"
	KindDeliveryFailed      = "delivery_failed"
	KindInternal            = "internal"
)

// Kind classifies err by the sentinel it wraps.
func Kind(err error) string {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, site.ErrNotFound):
		return KindNotFound
	case errors.Is(err, providers.ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, irradiance.ErrNoData):
		return KindNoData
	case errors.Is(err, report.ErrDeliveryFailed):
		return KindDeliveryFailed
	default:
		return KindInternal
	}
}

// SiteResult is the outcome of one site run.
type SiteResult struct {
	RunID    string    `json:"run_id"`
	SiteID   int       `json:"site_id"`
	SiteName string    `json:"site_name,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Stage    Stage     `json:"stage"`
	Files    []string  `json:"files,omitempty"`
	Kind     string    `json:"kind"`
	Error    string    `json:"error,omitempty"`

	Err error `json:"-"`
}

// OK reports whether every step succeeded.
func (r SiteResult) OK() bool {
	return r.Err == nil
}

type Sites interface {
	Open(id int) (site.Site, error)
}

type Fetcher interface {
	FetchActuals(ctx context.Context, s site.Site) (string, error)
	FetchForecast(ctx context.Context, s site.Site) (string, error)
}

type Renderer interface {
	Render(s site.Site) (report.Charts, error)
}

type Sender interface {
	Send(ctx context.Context, s site.Site, charts report.Charts) error
}

// Recorder keeps finished site results.
type Recorder interface {
	SaveRun(r SiteResult)
}

// Options tune a Pipeline. A nil Mailer disables the mail step.
type Options struct {
	ContinueOnError bool
	Mailer          Sender
	History         Recorder
	Metrics         *metrics.Metrics
}

// Pipeline runs fetch, render and mail for a list of sites.
type Pipeline struct {
	sites    Sites
	fetcher  Fetcher
	renderer Renderer
	opts     Options
	now      func() time.Time
}

// New creates a Pipeline.
func New(sites Sites, fetcher Fetcher, renderer Renderer, opts Options) *Pipeline {
	return &Pipeline{
		sites:    sites,
		fetcher:  fetcher,
		renderer: renderer,
		opts:     opts,
		now:      time.Now,
	}
}

// Run processes ids in order and returns one result per attempted site.
// With ContinueOnError a failing site does not stop the others and the
// returned error joins every failure; otherwise the run stops at the first one.
func (p *Pipeline) Run(ctx context.Context, ids []int) ([]SiteResult, error) {
	runID := uuid.NewString()
	log.Printf("INFO: run %s started for %d sites", runID, len(ids))

	results := make([]SiteResult, 0, len(ids))
	var merr *multierror.Error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, err)
			break
		}

		res := p.runSite(ctx, runID, id)
		results = append(results, res)
		if res.Err == nil {
			continue
		}
		merr = multierror.Append(merr, res.Err)
		if !p.opts.ContinueOnError {
			break
		}
	}

	log.Printf("INFO: run %s finished: %d/%d sites ok", runID, len(results)-countFailed(results), len(ids))
	return results, merr.ErrorOrNil()
}

// RunSite processes a single site under a fresh run id.
func (p *Pipeline) RunSite(ctx context.Context, id int) SiteResult {
	return p.runSite(ctx, uuid.NewString(), id)
}

func (p *Pipeline) runSite(ctx context.Context, runID string, id int) SiteResult {
	res := SiteResult{RunID: runID, SiteID: id, Started: p.now(), Stage: StageOpen}
	res.Err = p.steps(ctx, &res)

	res.Finished = p.now()
	res.Kind = Kind(res.Err)
	if res.Err != nil {
		res.Error = res.Err.Error()
		log.Printf("ERROR: site %d failed at %s (%s): %v", id, res.Stage, res.Kind, res.Err)
	} else {
		log.Printf("INFO: site %d report complete in %s", id, res.Finished.Sub(res.Started).Round(time.Millisecond))
	}

	p.opts.Metrics.ObserveSiteRun(strconv.Itoa(id), res.Kind, res.Finished.Sub(res.Started), res.Finished)
	if p.opts.History != nil {
		p.opts.History.SaveRun(res)
	}
	return res
}

func (p *Pipeline) steps(ctx context.Context, res *SiteResult) error {
	s, err := p.sites.Open(res.SiteID)
	if err != nil {
		return err
	}
	res.SiteName = s.Name

	res.Stage = StageActuals
	path, err := p.fetcher.FetchActuals(ctx, s)
	p.opts.Metrics.ObserveFetch(string(irradiance.KindActuals), err)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)

	res.Stage = StageForecast
	path, err = p.fetcher.FetchForecast(ctx, s)
	p.opts.Metrics.ObserveFetch(string(irradiance.KindForecast), err)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)

	res.Stage = StageRender
	charts, err := p.renderer.Render(s)
	p.opts.Metrics.ObserveRender(err)
	if err != nil {
		return err
	}
	res.Files = append(res.Files, charts.ActualsPNG, charts.ForecastPNG)

	if p.opts.Mailer != nil {
		res.Stage = StageMail
		err = p.opts.Mailer.Send(ctx, s, charts)
		p.opts.Metrics.ObserveMail(err)
		if err != nil {
			return fmt.Errorf("mail site %d: %w", s.ID, err)
		}
	}

	res.Stage = StageDone
	return nil
}

func countFailed(results []SiteResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
