package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/browser"
	"github.com/use-agent/cascade/cleaner"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/scraper"
)

func callScrape(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	cfg := &config.Config{Cascade: config.CascadeConfig{
		Strategies: []models.Strategy{{Mechanism: models.MechanismBrowser}},
	}}
	sc := scraper.New(cfg, scraper.WithLaunchFunc(func(context.Context, string) (browser.Browser, error) {
		return nil, errors.New("no browser in tests")
	}))
	defer sc.Close()

	var req mcp.CallToolRequest
	req.Params.Name = "scrape_url"
	req.Params.Arguments = args

	res, err := handleScrapeURL(sc, cleaner.NewCleaner())(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestScrapeURLTool(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html><head><title>Tide Tables</title></head><body><p>High water at noon.</p></body></html>")
	}))
	defer origin.Close()

	res := callScrape(t, map[string]any{
		"url":           origin.URL,
		"strategies":    "network",
		"output_format": "text",
		"extract_mode":  "raw",
	})
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Title: Tide Tables")
	assert.Contains(t, text, "Mechanism: network")
	assert.Contains(t, text, "High water at noon.")
}

func TestScrapeURLToolErrors(t *testing.T) {
	res := callScrape(t, map[string]any{})
	assert.True(t, res.IsError)

	res = callScrape(t, map[string]any{"url": "https://example.com", "strategies": "teleport"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "unknown mechanism")

	res = callScrape(t, map[string]any{"url": "https://example.com"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "[NAVIGATION_FAILED]")
}
