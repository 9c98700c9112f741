package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

type Config struct {
	// HTTP Server
	Port string `env:"PORT" envDefault:"8081"`

	// Remote backend
	APIBaseURL      string        `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
	APITimeout      time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	RefreshPath     string        `env:"REFRESH_PATH" envDefault:"/refresh-token"`
	RefreshCookie   string        `env:"REFRESH_COOKIE" envDefault:"refreshToken"`
	RecoverStatuses []int         `env:"RECOVER_STATUSES" envDefault:"401,403" envSeparator:","`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	CacheSize       int           `env:"CACHE_SIZE" envDefault:"256"`

	// Session store
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"sqlite"`
	SQLiteDBPath   string `env:"SQLITE_DB_PATH" envDefault:"./data/budgetbook.db"`

	// Presentation
	CurrencySymbol   string `env:"CURRENCY_SYMBOL" envDefault:"₹"`
	Locale           string `env:"LOCALE" envDefault:"en-IN"`
	TimeZone         string `env:"DISPLAY_TIMEZONE" envDefault:"Local"`
	CardBreakpointPx int    `env:"CARD_BREAKPOINT_PX" envDefault:"768"`
	RowsPerPage      int    `env:"ROWS_PER_PAGE" envDefault:"10"`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Extra networks, besides loopback and private ranges, whose peers may
	// set X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"budgetbook"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"table_exports"`

	// Google Sheets export sink
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleOAuthClientFile    string `env:"GOOGLE_OAUTH_CLIENT_FILE"`
	GoogleOAuthTokenFile     string `env:"GOOGLE_OAUTH_TOKEN_FILE"`
	GoogleOAuthClientJSON    string `env:"GOOGLE_OAUTH_CLIENT_JSON"`
	GoogleOAuthTokenJSON     string `env:"GOOGLE_OAUTH_TOKEN_JSON"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Location resolves TimeZone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// SheetsEnabled reports whether exports go to a real spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// ExportEnabled reports whether the export queue is configured.
func (c *Config) ExportEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}
	if c.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	}
	if !strings.HasPrefix(c.RefreshPath, "/") {
		errors = append(errors, fmt.Sprintf("invalid refresh path '%s': must start with '/'", c.RefreshPath))
	}
	if len(c.RecoverStatuses) == 0 {
		errors = append(errors, "at least one recoverable status is required")
	}
	for _, s := range c.RecoverStatuses {
		if s < 400 || s > 599 {
			errors = append(errors, fmt.Sprintf("invalid recoverable status %d: must be an HTTP error status", s))
		}
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	switch c.SessionBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite session backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of [memory sqlite]", c.SessionBackend))
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.TimeZone, err))
	}
	if c.CardBreakpointPx < 1 {
		errors = append(errors, fmt.Sprintf("invalid card breakpoint %d: must be positive", c.CardBreakpointPx))
	}
	if c.RowsPerPage < 1 || c.RowsPerPage > 500 {
		errors = append(errors, fmt.Sprintf("invalid rows per page %d: must be between 1 and 500", c.RowsPerPage))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': %v", cidr, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		errors = append(errors, c.validateGoogle()...)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// validateGoogle accepts a service account or an OAuth client plus token.
func (c *Config) validateGoogle() []string {
	var errors []string
	hasSA := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
	hasClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
	hasToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""

	if !hasSA {
		if !hasClient {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_* or GOOGLE_OAUTH_CLIENT_FILE/GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets export")
		}
		if !hasToken {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets export")
		}
	}

	for label, path := range map[string]string{
		"service account": c.GoogleServiceAccountFile,
		"OAuth client":    c.GoogleOAuthClientFile,
		"OAuth token":     c.GoogleOAuthTokenFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google %s file does not exist: %s", label, path))
		}
	}
	return errors
}
