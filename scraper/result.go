package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/cascade/engine"
	"github.com/use-agent/cascade/models"
)

// Page is the rendered form of any cascade Result.
type Page struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string

	// Mechanism records which mechanism produced the page.
	Mechanism models.Mechanism
}

// HTMLer is implemented by custom values that carry a page body, such as
// *ArchivedPage.
type HTMLer interface {
	PageHTML() (html, finalURL string, status int)
}

// Render turns a Result into a Page. Browser results are cleaned up once
// their HTML has been read, so res must not be used afterwards.
func Render(ctx context.Context, target string, res engine.Result) (*Page, error) {
	switch r := res.(type) {
	case *engine.NetworkResult:
		return &Page{
			HTML:       string(r.Body),
			Title:      extractTitle(r.Body),
			StatusCode: r.StatusCode,
			FinalURL:   r.FinalURL,
			Mechanism:  models.MechanismNetwork,
		}, nil

	case *engine.BrowserResult:
		defer func() {
			if err := r.Cleanup(); err != nil {
				slog.Warn("browser cleanup failed", "url", target, "error", err)
			}
		}()
		html, err := r.Page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		page := &Page{
			HTML:      html,
			Title:     r.Page.Title(ctx),
			FinalURL:  target,
			Mechanism: models.MechanismBrowser,
		}
		if r.Response != nil {
			page.StatusCode = r.Response.StatusCode
			if r.Response.URL != "" {
				page.FinalURL = r.Response.URL
			}
		}
		return page, nil

	case *engine.CustomResult:
		return renderCustom(target, r.Value)

	default:
		return nil, models.NewScrapeError(models.ErrCodeInternal, fmt.Sprintf("unknown result type %T", res), nil)
	}
}

func renderCustom(target string, value any) (*Page, error) {
	page := &Page{FinalURL: target, Mechanism: models.MechanismCustom}
	switch v := value.(type) {
	case HTMLer:
		html, finalURL, status := v.PageHTML()
		page.HTML, page.StatusCode = html, status
		if finalURL != "" {
			page.FinalURL = finalURL
		}
	case string:
		page.HTML = v
	case []byte:
		page.HTML = string(v)
	default:
		return nil, models.NewScrapeError(models.ErrCodeInternal,
			fmt.Sprintf("custom result of type %T has no page content", value), nil)
	}
	page.Title = extractTitle([]byte(page.HTML))
	return page, nil
}
