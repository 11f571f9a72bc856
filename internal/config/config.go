package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HTTP Server
	Port              string  `envconfig:"PORT" default:"3000"`
	APIPrefix         string  `envconfig:"API_PREFIX" default:"/api"`
	CORSAllowedOrigin string  `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`
	RateLimitRPS      float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst    int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Database
	SQLiteDBPath  string        `envconfig:"SQLITE_DB_PATH" default:"./data/keuangan.db"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBBusyTimeout time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"5s"`

	// Logging and error reporting
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	SentryDSN string `envconfig:"SENTRY_DSN"`

	// AMQP; an empty URL disables change events
	AMQPURL            string        `envconfig:"AMQP_URL"`
	AMQPExchange       string        `envconfig:"AMQP_EXCHANGE" default:"keuangan"`
	AMQPQueue          string        `envconfig:"AMQP_QUEUE" default:"keuangan_sheet_mirror"`
	AMQPConnectTimeout time.Duration `envconfig:"AMQP_CONNECT_TIMEOUT" default:"1m"`

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID      string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `envconfig:"GOOGLE_SHEET_NAME" default:"Keuangan"`
	GoogleServiceAccountJSON string `envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Full resync period of the worker; 0 disables it
	MirrorInterval time.Duration `envconfig:"MIRROR_INTERVAL" default:"15m"`
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg.APIPrefix = normalizePrefix(cfg.APIPrefix)
	return &cfg, nil
}

// normalizePrefix returns "" or a path starting with "/" and not ending
// with one.
func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIPrefix != "" && (!strings.HasPrefix(c.APIPrefix, "/") || strings.HasSuffix(c.APIPrefix, "/")) {
		errors = append(errors, fmt.Sprintf("invalid API prefix '%s': must start with '/' and not end with '/'", c.APIPrefix))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if c.DBMaxConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid DB max connections %d: must be at least 1", c.DBMaxConns))
	}
	if c.DBBusyTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid DB busy timeout %v: must not be negative", c.DBBusyTimeout))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks the sheet mirror worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the worker")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty for the worker")
	}
	if c.MirrorInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must not be negative", c.MirrorInterval))
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
