package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CASCADE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []models.Strategy{
		{Mechanism: models.MechanismNetwork},
		{Mechanism: models.MechanismBrowser},
		{Mechanism: models.MechanismBrowser, UseProxy: true},
	}, cfg.Cascade.Strategies)
	assert.Equal(t, 30*time.Second, cfg.Cascade.Timeout)
	assert.Equal(t, 2, cfg.Cascade.Retry.Count)
	assert.Equal(t, models.BackoffExponential, cfg.Cascade.Retry.Type)
	assert.Nil(t, cfg.Cascade.Retry.RetryableStatuses)
	assert.Equal(t, "chromium", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Stealth)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CASCADE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CASCADE_STRATEGIES", "custom, network:proxy")
	t.Setenv("CASCADE_RETRY_COUNT", "4")
	t.Setenv("CASCADE_RETRY_BACKOFF", "linear")
	t.Setenv("CASCADE_RETRY_STATUSES", "429,503")
	t.Setenv("CASCADE_PROXIES", "http://a:1, socks5://b:2")
	t.Setenv("CASCADE_VIEWPORTS", "1920x1080,800x600")
	t.Setenv("CASCADE_HEADERS", "Accept-Language=de; X-Trace = 1")
	t.Setenv("CASCADE_ALLOWED_RESOURCES", "Document,Script")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []models.Strategy{
		{Mechanism: models.MechanismCustom},
		{Mechanism: models.MechanismNetwork, UseProxy: true},
	}, cfg.Cascade.Strategies)
	assert.Equal(t, 4, cfg.Cascade.Retry.Count)
	assert.Equal(t, models.BackoffLinear, cfg.Cascade.Retry.Type)
	assert.Equal(t, []int{429, 503}, cfg.Cascade.Retry.RetryableStatuses)
	assert.Equal(t, []string{"http://a:1", "socks5://b:2"}, cfg.Cascade.Proxies)
	assert.Equal(t, []models.Viewport{{Width: 1920, Height: 1080}, {Width: 800, Height: 600}}, cfg.Cascade.Viewports)
	assert.Equal(t, map[string]string{"Accept-Language": "de", "X-Trace": "1"}, cfg.Cascade.Headers)
	assert.Equal(t, []string{"Document", "Script"}, cfg.Browser.AllowedResourceTypes)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CASCADE_PORT=9191\n"), 0o600))
	t.Setenv("CASCADE_ENV_FILE", path)
	// Registers cleanup; godotenv does not override variables already set.
	t.Setenv("CASCADE_PORT", "")
	require.NoError(t, os.Unsetenv("CASCADE_PORT"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CASCADE_STRATEGIES", "network,telepathy"},
		{"CASCADE_STRATEGIES", "browser:tor"},
		{"CASCADE_VIEWPORTS", "wide"},
		{"CASCADE_HEADERS", "no-equals-sign"},
		{"CASCADE_RETRY_STATUSES", "5xx"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("CASCADE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestScrapeConfigCopies(t *testing.T) {
	cfg := &Config{
		Cascade: CascadeConfig{
			Strategies: []models.Strategy{{Mechanism: models.MechanismNetwork}},
			Timeout:    time.Second,
			Retry:      models.RetryPolicy{Count: 1},
			Headers:    map[string]string{"A": "1"},
		},
		Browser: BrowserConfig{Engine: "chrome", WaitUntil: "networkidle"},
	}

	sc := cfg.ScrapeConfig()
	sc.Strategies[0].UseProxy = true
	sc.Options.Headers["B"] = "2"
	sc.Options.Retry.Count = 9

	assert.False(t, cfg.Cascade.Strategies[0].UseProxy)
	assert.NotContains(t, cfg.Cascade.Headers, "B")
	assert.Equal(t, 1, cfg.Cascade.Retry.Count)
	assert.Equal(t, "chrome", sc.Browser.Engine)
	assert.Equal(t, "networkidle", sc.Browser.WaitUntil)
	assert.Equal(t, time.Second, sc.Options.Timeout)
}
