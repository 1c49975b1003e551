package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/irradiance/providers"
	"github.com/i474232898/solar-report/internal/metrics"
	"github.com/i474232898/solar-report/internal/pipeline"
	"github.com/i474232898/solar-report/internal/report"
	"github.com/i474232898/solar-report/internal/site"
	"github.com/i474232898/solar-report/internal/store"
)

const registryJSON = `{"sites":[
	{"id":1,"name":"Fitzroy","latitude":-37.8,"longitude":144.97,"API_key":"k1","timezone":10,"client_name":"Alice"},
	{"id":2,"name":"Geelong","latitude":-38.1,"longitude":144.35,"API_key":"k2","timezone":10,"client_name":"Bob"}
]}`

const forecastsJSON = `{"forecasts":[
	{"period_end":"2020-10-20T22:00:00.0000000Z","ghi":300,"ghi90":320,"ghi10":280,"period":"PT30M"},
	{"period_end":"2020-10-20T21:00:00.0000000Z","ghi":100,"ghi90":120,"ghi10":80,"period":"PT30M"},
	{"period_end":"2020-10-20T21:30:00.0000000Z","ghi":200,"ghi90":220,"ghi10":180,"period":"PT30M"}]}`

const actualsJSON = `{"estimated_actuals":[
	{"period_end":"2020-10-19T23:30:00.0000000Z","ghi":150,"period":"PT30M"},
	{"period_end":"2020-10-19T23:00:00.0000000Z","ghi":50,"period":"PT30M"}]}`

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (c *captureDialer) DialAndSend(msgs ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msgs...)
	return nil
}

type harness struct {
	root    string
	history *store.MemoryStore
	dialer  *captureDialer
	calls   int
}

func clock() time.Time {
	return time.Date(2020, 10, 20, 7, 0, 0, 0, time.Local)
}

func newHarness(t *testing.T, status int, continueOnError bool) (*harness, *pipeline.Pipeline) {
	t.Helper()
	h := &harness{
		root:    t.TempDir(),
		history: store.NewMemoryStore(10, 0),
		dialer:  &captureDialer{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.calls++
		if status != http.StatusOK {
			http.Error(w, "upstream down", status)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/forecasts.json"):
			_, _ = w.Write([]byte(forecastsJSON))
		case strings.HasSuffix(r.URL.Path, "/estimated_actuals.json"):
			_, _ = w.Write([]byte(actualsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	reg, err := site.ParseRegistry([]byte(registryJSON), h.root)
	require.NoError(t, err)

	provider := providers.NewSolcastProvider(srv.Client(), srv.URL, 0, providers.BreakerConfig{})
	svc := irradiance.NewService(store.NewFileStore(), provider).WithClock(clock)
	renderer := report.NewRenderer(svc).WithClock(clock)
	mailer, err := report.NewMailer(report.MailConfig{From: "r@example.com", To: []string{"ops@example.com"}}, h.dialer)
	require.NoError(t, err)

	p := pipeline.New(reg, svc, renderer, pipeline.Options{
		ContinueOnError: continueOnError,
		Mailer:          mailer.WithClock(clock),
		History:         h.history,
		Metrics:         metrics.New(prometheus.NewRegistry()),
	})
	return h, p
}

func csvRowCount(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return len(rows)
}

func TestRunProducesCSVChartsAndEmail(t *testing.T) {
	h, p := newHarness(t, http.StatusOK, true)

	results, err := p.Run(context.Background(), []int{1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.True(t, res.OK())
	assert.Equal(t, pipeline.StageDone, res.Stage)
	assert.Equal(t, pipeline.KindOK, res.Kind)
	assert.Equal(t, "Fitzroy", res.SiteName)
	assert.NotEmpty(t, res.RunID)

	dir := filepath.Join(h.root, "1")
	assert.Equal(t, 3, csvRowCount(t, filepath.Join(dir, "1_actuals_2020_10_20_7.csv")))
	assert.Equal(t, 4, csvRowCount(t, filepath.Join(dir, "1_forecast_2020_10_20_7.csv")))
	assert.FileExists(t, filepath.Join(dir, report.ActualsChartName))
	assert.FileExists(t, filepath.Join(dir, report.ForecastChartName))
	assert.Len(t, res.Files, 4)

	require.Len(t, h.dialer.sent, 1)
	var raw bytes.Buffer
	_, err = h.dialer.sent[0].WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Content-ID: <image1>")
	assert.Contains(t, raw.String(), "Content-ID: <image2>")
	assert.Equal(t, 2, strings.Count(raw.String(), "Content-Disposition: inline"))

	latest, err := h.history.Latest(1)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, latest.RunID)
}

func TestRunContinuesPastUnknownSite(t *testing.T) {
	h, p := newHarness(t, http.StatusOK, true)

	results, err := p.Run(context.Background(), []int{99, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, site.ErrNotFound)
	require.Len(t, results, 2)

	assert.Equal(t, pipeline.KindNotFound, results[0].Kind)
	assert.Equal(t, pipeline.StageOpen, results[0].Stage)
	assert.True(t, results[1].OK())
	assert.Equal(t, results[0].RunID, results[1].RunID)

	_, statErr := os.Stat(filepath.Join(h.root, "99"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Len(t, h.dialer.sent, 1)
}

func TestRunStopsAtFirstFailureWhenConfigured(t *testing.T) {
	h, p := newHarness(t, http.StatusOK, false)

	results, err := p.Run(context.Background(), []int{99, 1})
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, h.calls)
	assert.Empty(t, h.dialer.sent)
}

func TestRunUpstreamFailure(t *testing.T) {
	h, p := newHarness(t, http.StatusServiceUnavailable, true)

	res := p.RunSite(context.Background(), 1)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, providers.ErrUpstreamUnavailable)
	assert.Equal(t, pipeline.KindUpstreamUnavailable, res.Kind)
	assert.Equal(t, pipeline.StageActuals, res.Stage)
	assert.Contains(t, res.Error, "503")

	entries, err := os.ReadDir(filepath.Join(h.root, "1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, h.dialer.sent)
}

func TestRunMailFailureIsDeliveryFailed(t *testing.T) {
	h, p := newHarness(t, http.StatusOK, true)
	h.dialer.err = errors.New("dial tcp: connection refused")

	res := p.RunSite(context.Background(), 1)
	assert.ErrorIs(t, res.Err, report.ErrDeliveryFailed)
	assert.Equal(t, pipeline.KindDeliveryFailed, res.Kind)
	assert.Equal(t, pipeline.StageMail, res.Stage)
	assert.FileExists(t, filepath.Join(h.root, "1", report.ActualsChartName))
}

func TestRunHonoursCancelledContext(t *testing.T) {
	_, p := newHarness(t, http.StatusOK, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.Run(ctx, []int{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		pipeline.KindOK:                  nil,
		pipeline.KindNotFound:            errors.Join(errors.New("x"), site.ErrNotFound),
		pipeline.KindUpstreamUnavailable: providers.ErrUpstreamUnavailable,
		pipeline.KindNoData:              irradiance.ErrNoData,
		pipeline.KindDeliveryFailed:      report.ErrDeliveryFailed,
		pipeline.KindInternal:            errors.New("disk full"),
	}
	for want, err := range cases {
		assert.Equal(t, want, pipeline.Kind(err))
	}
}
