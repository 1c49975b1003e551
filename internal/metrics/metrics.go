package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "solar_report_"

	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics groups the collectors updated by the report pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchTotal   *prometheus.CounterVec
	renderTotal  *prometheus.CounterVec
	mailTotal    *prometheus.CounterVec
	runTotal     *prometheus.CounterVec
	siteDuration *prometheus.HistogramVec
	lastSuccess  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_total",
				Help: "Irradiance API fetches by dataset and result",
			},
			[]string{"kind", "result"},
		),
		renderTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "render_total",
				Help: "Chart renders by result",
			},
			[]string{"result"},
		),
		mailTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mail_total",
				Help: "Report emails by result",
			},
			[]string{"result"},
		),
		runTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "site_runs_total",
				Help: "Per-site pipeline runs by outcome kind",
			},
			[]string{"kind"},
		),
		siteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "site_run_seconds",
				Help:    "Per-site pipeline duration",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"result"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_success_timestamp_seconds",
				Help: "Unix time of the last successful run per site",
			},
			[]string{"site"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.fetchTotal, m.renderTotal, m.mailTotal, m.runTotal, m.siteDuration, m.lastSuccess)
	}
	return m
}

func (m *Metrics) ObserveFetch(kind string, err error) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) ObserveRender(err error) {
	if m == nil {
		return
	}
	m.renderTotal.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveMail(err error) {
	if m == nil {
		return
	}
	m.mailTotal.WithLabelValues(result(err)).Inc()
}

// ObserveSiteRun records one finished site pipeline. kind is "ok" or an error kind.
func (m *Metrics) ObserveSiteRun(site, kind string, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.runTotal.WithLabelValues(kind).Inc()
	res := ResultSuccess
	if kind != "ok" {
		res = ResultError
	}
	m.siteDuration.WithLabelValues(res).Observe(elapsed.Seconds())
	if res == ResultSuccess {
		m.lastSuccess.WithLabelValues(site).Set(float64(finished.Unix()))
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
