package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/solar-report/internal/common"
)

var validate = validator.New()

// MailConfig holds the SMTP side of the report email.
type MailConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Host           string   `yaml:"smtp_host"`
	Port           int      `yaml:"smtp_port" validate:"gte=1,lte=65535"`
	Username       string   `yaml:"smtp_username"`
	Password       string   `yaml:"smtp_password"`
	Security       string   `yaml:"smtp_security" validate:"oneof=tls starttls"`
	From           string   `yaml:"from" validate:"omitempty,email"`
	To             []string `yaml:"to" validate:"dive,email"`
	AttachWorkbook bool     `yaml:"attach_workbook"`
	Organisation   string   `yaml:"organisation"`
}

type AppConfig struct {
	// DataDir holds the registry file and the per-site directories.
	DataDir   string `yaml:"data_dir" validate:"required"`
	SitesFile string `yaml:"sites_file" validate:"required"`
	SiteIDs   []int  `yaml:"site_ids"`

	SolcastBaseURL string        `yaml:"solcast_base_url" validate:"required,url"`
	ForecastHours  int           `yaml:"forecast_hours" validate:"gte=0,lte=336"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" validate:"gt=0"`

	ReportCron      string `yaml:"report_cron" validate:"required"`
	ContinueOnError bool   `yaml:"continue_on_error"`

	// Status API and run history retention in schedule mode.
	StatusPort string `yaml:"status_port" validate:"required,numeric"`
	RunHistory int    `yaml:"run_history" validate:"gte=0"`

	Mail MailConfig `yaml:"mail"`
}

// SitesRoot is the directory holding one subdirectory per site id.
func (c *AppConfig) SitesRoot() string {
	return filepath.Join(c.DataDir, "sites")
}

// Load reads configuration from environment with sensible defaults, then
// applies the YAML file named by SOLAR_CONFIG on top when set.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DataDir = getenvDefault("DATA_DIR", ".")
	cfg.SitesFile = getenvDefault("SITES_FILE", filepath.Join(cfg.DataDir, "sites.json"))

	ids, err := common.ParseIDs(os.Getenv("SITE_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid SITE_IDS: %w", err)
	}
	cfg.SiteIDs = ids

	cfg.SolcastBaseURL = getenvDefault("SOLCAST_BASE_URL", "https://api.solcast.com.au/")
	cfg.ForecastHours = getenvInt("FORECAST_HOURS", 48)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// 07:00 every day.
	cfg.ReportCron = getenvDefault("REPORT_CRON", "0 7 * * *")
	cfg.ContinueOnError = getenvBool("CONTINUE_ON_ERROR", true)

	cfg.StatusPort = getenvDefault("STATUS_PORT", "8080")
	cfg.RunHistory = getenvInt("RUN_HISTORY", 30)

	cfg.Mail = MailConfig{
		Enabled:        getenvBool("MAIL_ENABLED", true),
		Host:           os.Getenv("SMTP_HOST"),
		Port:           getenvInt("SMTP_PORT", 465),
		Username:       os.Getenv("SMTP_USERNAME"),
		Password:       os.Getenv("SMTP_PASSWORD"),
		Security:       strings.ToLower(getenvDefault("SMTP_SECURITY", "tls")),
		From:           os.Getenv("MAIL_FROM"),
		To:             common.SplitList(os.Getenv("MAIL_TO")),
		AttachWorkbook: getenvBool("MAIL_ATTACH_WORKBOOK", false),
		Organisation:   os.Getenv("REPORT_ORGANISATION"),
	}

	if path := os.Getenv("SOLAR_CONFIG"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ValidateMail checks the fields needed to actually send the report.
// It is a no-op when mail is disabled.
func (c *AppConfig) ValidateMail() error {
	m := c.Mail
	if !m.Enabled {
		return nil
	}
	var missing []string
	if m.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if m.From == "" {
		missing = append(missing, "MAIL_FROM")
	}
	if len(m.To) == 0 {
		missing = append(missing, "MAIL_TO")
	}
	if len(missing) > 0 {
		return fmt.Errorf("mail enabled but %s not set", strings.Join(missing, ", "))
	}
	return nil
}

// overlay decodes a YAML file into cfg; keys absent from the file keep their env values.
func (c *AppConfig) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
