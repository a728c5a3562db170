package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/cascade/models"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Cascade   CascadeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Webhook   WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how browser instances are launched and driven.
type BrowserConfig struct {
	// Engine is the default browser engine ("chromium" or "chrome").
	Engine string // default: "chromium"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the browser binary path.
	BrowserBin string

	// WaitUntil is the navigation wait condition.
	WaitUntil string // default: "load"

	// AllowedResourceTypes, when set, blocks every other resource type.
	AllowedResourceTypes []string

	// Stealth injects anti-detection scripts into every page.
	Stealth bool // default: true
}

// CascadeConfig holds the default strategy list and shared options.
type CascadeConfig struct {
	// Strategies is the ordered fallback list.
	// default: network, browser, browser:proxy
	Strategies []models.Strategy

	// Timeout bounds every single attempt.
	Timeout time.Duration // default: 30s

	// MaxTimeout caps timeouts requested by API clients.
	MaxTimeout time.Duration // default: 120s

	// Retry is the per-strategy retry policy.
	Retry models.RetryPolicy

	Proxies    []string
	UserAgents []string
	Viewports  []models.Viewport
	Headers    map[string]string

	// MaxRedirects bounds redirects followed by the network transport.
	MaxRedirects int // default: 10

	// RequireRendered rejects network responses that look like a JS shell.
	RequireRendered bool // default: true

	// ArchiveEndpoint is the archive availability API used by "custom"
	// strategies.
	ArchiveEndpoint string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the HTTP API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls failure notifications.
type WebhookConfig struct {
	// URL receives a cascade.failed event when every strategy fails.
	URL string

	// Secret signs webhook payloads (HMAC-SHA256).
	Secret string
}

// Load reads an optional .env file (CASCADE_ENV_FILE, default ".env") and
// then configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	envFile := envOr("CASCADE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	strategies, err := ParseStrategies(envOr("CASCADE_STRATEGIES", "network,browser,browser:proxy"))
	if err != nil {
		return nil, err
	}
	viewports, err := ParseViewports(os.Getenv("CASCADE_VIEWPORTS"))
	if err != nil {
		return nil, err
	}
	headers, err := ParseHeaders(os.Getenv("CASCADE_HEADERS"))
	if err != nil {
		return nil, err
	}
	statuses, err := parseInts(os.Getenv("CASCADE_RETRY_STATUSES"))
	if err != nil {
		return nil, fmt.Errorf("config: CASCADE_RETRY_STATUSES: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("CASCADE_HOST", "0.0.0.0"),
			Port: envIntOr("CASCADE_PORT", 8080),
			Mode: envOr("CASCADE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Engine:               envOr("CASCADE_BROWSER_ENGINE", "chromium"),
			Headless:             envBoolOr("CASCADE_HEADLESS", true),
			NoSandbox:            envBoolOr("CASCADE_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("CASCADE_BROWSER_BIN"),
			WaitUntil:            envOr("CASCADE_WAIT_UNTIL", "load"),
			AllowedResourceTypes: envSliceOr("CASCADE_ALLOWED_RESOURCES", nil),
			Stealth:              envBoolOr("CASCADE_STEALTH", true),
		},
		Cascade: CascadeConfig{
			Strategies: strategies,
			Timeout:    envDurationOr("CASCADE_TIMEOUT", 30*time.Second),
			MaxTimeout: envDurationOr("CASCADE_MAX_TIMEOUT", 120*time.Second),
			Retry: models.RetryPolicy{
				Count:             envIntOr("CASCADE_RETRY_COUNT", 2),
				Delay:             envDurationOr("CASCADE_RETRY_DELAY", 500*time.Millisecond),
				Type:              models.BackoffType(envOr("CASCADE_RETRY_BACKOFF", string(models.BackoffExponential))),
				RetryableStatuses: statuses,
			},
			Proxies:         envSliceOr("CASCADE_PROXIES", nil),
			UserAgents:      envSliceOr("CASCADE_USER_AGENTS", nil),
			Viewports:       viewports,
			Headers:         headers,
			MaxRedirects:    envIntOr("CASCADE_MAX_REDIRECTS", 10),
			RequireRendered: envBoolOr("CASCADE_REQUIRE_RENDERED", true),
			ArchiveEndpoint: os.Getenv("CASCADE_ARCHIVE_ENDPOINT"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CASCADE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CASCADE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CASCADE_RATE_RPS", 5.0),
			Burst:             envIntOr("CASCADE_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("CASCADE_LOG_LEVEL", "info"),
			Format: envOr("CASCADE_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("CASCADE_WEBHOOK_URL"),
			Secret: os.Getenv("CASCADE_WEBHOOK_SECRET"),
		},
	}, nil
}

// ScrapeConfig builds the default cascade configuration. The strategy list
// and option maps are copies; callers may modify them freely.
func (c *Config) ScrapeConfig() *models.ScrapeConfig {
	retry := c.Cascade.Retry
	headers := make(map[string]string, len(c.Cascade.Headers))
	for k, v := range c.Cascade.Headers {
		headers[k] = v
	}
	return &models.ScrapeConfig{
		Strategies: append([]models.Strategy(nil), c.Cascade.Strategies...),
		Options: models.Options{
			Timeout:    c.Cascade.Timeout,
			Retry:      &retry,
			Proxies:    append([]string(nil), c.Cascade.Proxies...),
			UserAgents: append([]string(nil), c.Cascade.UserAgents...),
			Viewports:  append([]models.Viewport(nil), c.Cascade.Viewports...),
			Headers:    headers,
		},
		Browser: models.BrowserOptions{
			Engine:               c.Browser.Engine,
			WaitUntil:            c.Browser.WaitUntil,
			AllowedResourceTypes: append([]string(nil), c.Browser.AllowedResourceTypes...),
			Stealth:              c.Browser.Stealth,
		},
	}
}

// ParseStrategies parses a comma-separated strategy list such as
// "network,browser:proxy,custom". A ":proxy" suffix sets UseProxy.
func ParseStrategies(s string) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, suffix, hasSuffix := strings.Cut(part, ":")
		if hasSuffix && suffix != "proxy" {
			return nil, fmt.Errorf("config: strategy %q: unknown modifier %q", part, suffix)
		}
		m := models.Mechanism(strings.ToLower(name))
		switch m {
		case models.MechanismNetwork, models.MechanismBrowser, models.MechanismCustom:
		default:
			return nil, fmt.Errorf("config: strategy %q: unknown mechanism %q", part, name)
		}
		out = append(out, models.Strategy{Mechanism: m, UseProxy: hasSuffix})
	}
	return out, nil
}

// ParseViewports parses "1920x1080,1366x768".
func ParseViewports(s string) ([]models.Viewport, error) {
	var out []models.Viewport
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, h, ok := strings.Cut(strings.ToLower(part), "x")
		if !ok {
			return nil, fmt.Errorf("config: viewport %q: want WIDTHxHEIGHT", part)
		}
		width, werr := strconv.Atoi(w)
		height, herr := strconv.Atoi(h)
		if werr != nil || herr != nil || width <= 0 || height <= 0 {
			return nil, fmt.Errorf("config: viewport %q: want positive integers", part)
		}
		out = append(out, models.Viewport{Width: width, Height: height})
	}
	return out, nil
}

// ParseHeaders parses "Key=Value;Key2=Value2".
func ParseHeaders(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("config: header %q: want Key=Value", part)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
