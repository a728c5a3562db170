package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/cascade/cleaner"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/scraper"
)

func scrapeURLTool() mcp.Tool {
	return mcp.NewTool("scrape_url",
		mcp.WithDescription("Fetch a web page through a fallback cascade (plain HTTP, headless browser, web archive) and return cleaned content."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithString("strategies",
			mcp.Description("Comma-separated strategy order, e.g. 'network,browser,browser:proxy,custom'. Defaults to the server configuration."),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'markdown' (default), 'text' or 'html'"),
			mcp.Enum(cleaner.FormatMarkdown, cleaner.FormatText, cleaner.FormatHTML),
		),
		mcp.WithString("extract_mode",
			mcp.Description("'readability' (default, main article only) or 'raw' (full page)"),
			mcp.Enum(cleaner.ModeReadability, cleaner.ModeRaw),
		),
		mcp.WithString("css_selector",
			mcp.Description("Optional CSS selector; only matching elements are kept"),
		),
	)
}

func handleScrapeURL(sc *scraper.Scraper, cl *cleaner.Cleaner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		scrapeCfg := sc.DefaultConfig()
		if s := request.GetString("strategies", ""); s != "" {
			strategies, err := config.ParseStrategies(s)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			scrapeCfg.Strategies = strategies
		}

		page, err := sc.Scrape(ctx, url, scrapeCfg)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", models.CodeOf(err), err)), nil
		}

		out, err := cl.Clean(page.HTML, page.FinalURL, cleaner.Options{
			Format:   request.GetString("output_format", cleaner.FormatMarkdown),
			Mode:     request.GetString("extract_mode", cleaner.ModeReadability),
			Selector: request.GetString("css_selector", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", models.CodeOf(err), err)), nil
		}

		title := out.Metadata.Title
		if title == "" {
			title = page.Title
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\nSource: %s\nMechanism: %s\n\n", title, page.FinalURL, page.Mechanism)
		b.WriteString(out.Content)
		return mcp.NewToolResultText(b.String()), nil
	}
}
