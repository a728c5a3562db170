package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/cascade/cleaner"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol.
	slog.SetDefault(config.NewLogger(cfg.Log, os.Stderr))

	sc := scraper.New(cfg)
	defer sc.Close()

	s := server.NewMCPServer(
		"cascade",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.AddTool(scrapeURLTool(), handleScrapeURL(sc, cleaner.NewCleaner()))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
