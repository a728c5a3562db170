package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/cascade/browser"
	"github.com/use-agent/cascade/models"
)

// BrowserExecutor renders the target in an isolated browsing context.
type BrowserExecutor struct {
	provider browser.Provider
}

// NewBrowserExecutor creates a BrowserExecutor backed by provider, usually a
// *browser.Pool.
func NewBrowserExecutor(provider browser.Provider) *BrowserExecutor {
	return &BrowserExecutor{provider: provider}
}

func (e *BrowserExecutor) Mechanism() models.Mechanism { return models.MechanismBrowser }

// Execute opens a fresh context and page and navigates to target. The
// context is closed before any error is returned; on success the caller
// closes it through BrowserResult.Cleanup.
func (e *BrowserExecutor) Execute(ctx context.Context, target string, cfg *models.ScrapeConfig, opts models.RequestOptions) (Result, error) {
	var bopts models.BrowserOptions
	if cfg != nil {
		bopts = cfg.Browser
	}

	b, err := e.provider.Acquire(ctx, bopts.Engine)
	if err != nil {
		return nil, categorizeBrowserError(err, "failed to acquire browser")
	}

	bctx, err := b.NewContext(ctx, browser.ContextOptions{
		Proxy:     opts.Proxy,
		UserAgent: opts.UserAgent,
		Viewport:  opts.Viewport,
		Headers:   opts.Headers,
	})
	if err != nil {
		e.provider.Report(bopts.Engine, b, false)
		return nil, categorizeBrowserError(err, "failed to open browser context")
	}

	result, err := e.navigate(ctx, b, bctx, target, cfg, bopts, opts)
	if err != nil {
		if closeErr := bctx.Close(); closeErr != nil {
			slog.Warn("failed to close browser context", "url", target, "error", closeErr)
		}
		return nil, err
	}
	return result, nil
}

func (e *BrowserExecutor) navigate(ctx context.Context, b browser.Browser, bctx browser.Context, target string, cfg *models.ScrapeConfig, bopts models.BrowserOptions, opts models.RequestOptions) (*BrowserResult, error) {
	page, err := bctx.NewPage(ctx, browser.PageOptions{
		AllowedResourceTypes: bopts.AllowedResourceTypes,
		Stealth:              bopts.Stealth,
	})
	if err != nil {
		e.provider.Report(bopts.Engine, b, false)
		return nil, categorizeBrowserError(err, "failed to open page")
	}
	e.provider.Report(bopts.Engine, b, true)

	waitUntil := bopts.WaitUntil
	if waitUntil == "" {
		waitUntil = browser.WaitLoad
	}
	resp, err := page.Goto(ctx, target, browser.GotoOptions{
		WaitUntil: waitUntil,
		Timeout:   opts.Timeout,
	})
	if err != nil {
		return nil, categorizeBrowserError(err, "navigation to target URL failed")
	}
	if resp == nil {
		return nil, models.NewScrapeError(models.ErrCodeNoResponse, "navigation returned no response", nil)
	}

	if err := validate(ctx, cfg, models.MechanismBrowser, resp); err != nil {
		return nil, err
	}
	return &BrowserResult{Response: resp, Page: page, context: bctx}, nil
}

// categorizeBrowserError is categorizeError with navigation as the default
// code for uncoded failures.
func categorizeBrowserError(err error, msg string) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return categorizeError(err, msg)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
