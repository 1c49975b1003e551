package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/i474232898/solar-report/internal/config"
	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/irradiance/providers"
	"github.com/i474232898/solar-report/internal/metrics"
	"github.com/i474232898/solar-report/internal/pipeline"
	"github.com/i474232898/solar-report/internal/report"
	"github.com/i474232898/solar-report/internal/site"
	"github.com/i474232898/solar-report/internal/store"
)

const appName = "solar-report"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Solar irradiance forecast and actuals reports",
	Long: `solar-report fetches irradiance forecasts and estimated actuals for
registered sites, stores them as CSV, renders charts and emails a daily report.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.AppConfig
	registry *site.Registry
	service  *irradiance.Service
	renderer *report.Renderer
	history  *store.MemoryStore
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
}

// newApp loads configuration and wires every component. Mail is only
// configured when withMail is set and MAIL_ENABLED is true.
func newApp(withMail bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := site.LoadRegistry(cfg.SitesFile, cfg.SitesRoot())
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewSolcastProvider(httpClient, cfg.SolcastBaseURL, cfg.ForecastHours, providers.BreakerConfig{})

	service := irradiance.NewService(store.NewFileStore(), provider)
	renderer := report.NewRenderer(service)

	promReg := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		registry: registry,
		service:  service,
		renderer: renderer,
		history:  store.NewMemoryStore(cfg.RunHistory, 0),
		promReg:  promReg,
		metrics:  metrics.New(promReg),
	}

	opts := pipeline.Options{
		ContinueOnError: cfg.ContinueOnError,
		History:         a.history,
		Metrics:         a.metrics,
	}
	if withMail && cfg.Mail.Enabled {
		if err := cfg.ValidateMail(); err != nil {
			return nil, err
		}
		dialer := report.NewSMTPDialer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.Security)
		mailer, err := report.NewMailer(report.MailConfig{
			From:           cfg.Mail.From,
			To:             cfg.Mail.To,
			Organisation:   cfg.Mail.Organisation,
			AttachWorkbook: cfg.Mail.AttachWorkbook,
		}, dialer)
		if err != nil {
			return nil, err
		}
		opts.Mailer = mailer
	} else {
		log.Println("INFO: mail disabled; reports are rendered but not sent")
	}

	a.pipeline = pipeline.New(registry, service, renderer, opts)
	return a, nil
}
