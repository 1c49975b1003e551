package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/site"
)

// ErrDeliveryFailed wraps any SMTP dial, auth or send failure.
var ErrDeliveryFailed = errors.New("report delivery failed")

// Content ids of the inline charts referenced by the HTML body.
const (
	ActualsContentID  = "image1"
	ForecastContentID = "image2"
)

// Dialer sends fully built messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailConfig is the sender side of the report email.
type MailConfig struct {
	From           string
	To             []string
	Organisation   string
	AttachWorkbook bool
}

// NewSMTPDialer returns a dialer for host:port. security is "tls" for
// implicit TLS (SMTPS) or "starttls" for an upgraded plain connection.
func NewSMTPDialer(host string, port int, username, password, security string) *gomail.Dialer {
	d := gomail.NewDialer(host, port, username, password)
	switch security {
	case "starttls":
		d.SSL = false
		d.TLSConfig = &tls.Config{ServerName: host}
	default:
		d.SSL = true
	}
	return d
}

// Mailer builds and sends the daily report email.
type Mailer struct {
	cfg    MailConfig
	dialer Dialer
	tmpl   *template.Template
	now    func() time.Time
}

// NewMailer parses the report template and returns a Mailer.
func NewMailer(cfg MailConfig, dialer Dialer) (*Mailer, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"kwh":  func(v float64) string { return fmt.Sprintf("%.2f kWh/m²", v) },
		"wm2":  func(v float64) string { return fmt.Sprintf("%.0f W/m²", v) },
		"hhmm": func(t time.Time) string { return t.Format("15:04") },
	}).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	return &Mailer{cfg: cfg, dialer: dialer, tmpl: tmpl, now: time.Now}, nil
}

// WithClock replaces the clock used for the subject line and summary windows.
func (m *Mailer) WithClock(now func() time.Time) *Mailer {
	m.now = now
	return m
}

type reportData struct {
	ClientName   string
	SiteName     string
	Date         string
	Year         int
	Organisation string
	Actual       irradiance.Summary
	Forecast     irradiance.Summary
}

// Build composes the message without sending it.
func (m *Mailer) Build(s site.Site, charts Charts) (*gomail.Message, error) {
	for _, p := range []string{charts.ActualsPNG, charts.ForecastPNG} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("chart %s: %w", p, err)
		}
	}

	now := m.now()
	yesterday, today := m.summaries(s, charts)
	data := reportData{
		ClientName:   s.ClientName,
		SiteName:     s.Name,
		Date:         now.Format("2006-01-02"),
		Year:         now.Year(),
		Organisation: m.cfg.Organisation,
		Actual:       yesterday,
		Forecast:     today,
	}

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", "Daily Solar Report "+data.Date)
	msg.SetBody("text/html", body.String())

	msg.Embed(charts.ActualsPNG, gomail.SetHeader(map[string][]string{
		"Content-ID": {"<" + ActualsContentID + ">"},
	}))
	msg.Embed(charts.ForecastPNG, gomail.SetHeader(map[string][]string{
		"Content-ID": {"<" + ForecastContentID + ">"},
	}))

	if m.cfg.AttachWorkbook {
		book, err := BuildWorkbook(s, charts)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%d_report_%s.xlsx", s.ID, data.Date)
		msg.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(book)
			return err
		}))
	}
	return msg, nil
}

// Send builds the report and delivers it in a single SMTP session.
func (m *Mailer) Send(ctx context.Context, s site.Site, charts Charts) error {
	if len(m.cfg.To) == 0 {
		return fmt.Errorf("%w: no recipients configured", ErrDeliveryFailed)
	}
	msg, err := m.Build(s, charts)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	log.Printf("INFO: report for site %d sent to %d recipients", s.ID, len(m.cfg.To))
	return nil
}

// summaries reduces yesterday's actuals and today's forecast in site local
// time. A window with no points falls back to the whole series.
func (m *Mailer) summaries(s site.Site, charts Charts) (irradiance.Summary, irradiance.Summary) {
	local := m.now().UTC().Add(time.Duration(s.Timezone) * time.Hour)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	actual := charts.Actuals.Between(today.AddDate(0, 0, -1), today)
	if len(actual) == 0 {
		actual = charts.Actuals
	}
	forecast := charts.Forecast.Between(today, today.AddDate(0, 0, 1))
	if len(forecast) == 0 {
		forecast = charts.Forecast
	}
	return irradiance.Summarize(actual), irradiance.Summarize(forecast)
}

const reportTemplate = `<html>
<div style="max-width:600px;background-color:azure">
  <header style="background-color:#008cba;color:white;text-align:center;padding:1px;font-family:'Open Sans',sans-serif">
    <h1 style="font-family:'Open Sans',sans-serif">Daily Solar Report</h1>
  </header>
  <body>
    <p style="font-family:'Open Sans',sans-serif">Good morning {{.ClientName}},</p>
    <p style="font-family:'Open Sans',sans-serif">Here is the irradiance summary for {{.SiteName}} on {{.Date}}.</p>
    <table style="margin-left:auto;margin-right:auto;text-align:center;border:1px solid black;">
      <tr>
        <th style="width:140px">Yesterday</th>
        <th style="width:140px">Peak</th>
        <th style="width:140px">Today (forecast)</th>
        <th style="width:140px">Peak (forecast)</th>
      </tr>
      <tr>
        <td>{{kwh .Actual.EnergyKWhM2}}</td>
        <td>{{wm2 .Actual.PeakGHI}}{{if .Actual.Points}} at {{hhmm .Actual.PeakAt}}{{end}}</td>
        <td>{{kwh .Forecast.EnergyKWhM2}}</td>
        <td>{{wm2 .Forecast.PeakGHI}}{{if .Forecast.Points}} at {{hhmm .Forecast.PeakAt}}{{end}}</td>
      </tr>
    </table><br>
    <div style="text-align:center;font-family:'Open Sans',sans-serif"><h3>Yesterday's Irradiance:</h3></div>
    <table width="100%" style="max-width:600px;">
      <tr><td><img src="cid:image1" width="100%" /></td></tr>
    </table><br>
    <div style="text-align:center;font-family:'Open Sans',sans-serif"><h3>Today's Forecast:</h3></div>
    <table width="100%" style="max-width:600px;">
      <tr><td><img src="cid:image2" width="100%" /></td></tr>
    </table><br><br>
    {{if .Organisation}}<p style="font-family:'Open Sans',sans-serif"><b>&copy; {{.Year}} {{.Organisation}}, All rights reserved.</b></p>{{end}}
  </body>
</div>
</html>
`
