package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cascade/cleaner"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, merge it over the configured cascade.
//  2. Scraper.Scrape runs the cascade and renders the page (fetch_ms).
//  3. Cleaner.Clean converts it to the requested format (cleaning_ms).
//  4. Fill page fields and timing, return 200.
func Scrape(sc *scraper.Scraper, cl *cleaner.Cleaner, cascade config.CascadeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), models.TimingInfo{})
			return
		}
		req.Defaults()

		scrapeCfg, err := BuildScrapeConfig(&req, sc.DefaultConfig(), cascade.MaxTimeout)
		if err != nil {
			respondError(c, err, models.TimingInfo{})
			return
		}

		fetchStart := time.Now()
		page, err := sc.Scrape(c.Request.Context(), req.URL, scrapeCfg)
		fetchMs := time.Since(fetchStart).Milliseconds()
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			})
			return
		}

		cleanStart := time.Now()
		out, err := cl.Clean(page.HTML, page.FinalURL, cleaner.Options{
			Format:   req.OutputFormat,
			Mode:     req.ExtractMode,
			Selector: req.CSSSelector,
		})
		cleaningMs := time.Since(cleanStart).Milliseconds()
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:    time.Since(totalStart).Milliseconds(),
				FetchMs:    fetchMs,
				CleaningMs: cleaningMs,
			})
			return
		}

		// Readability finds no title on raw-HTML fallback.
		if out.Metadata.Title == "" {
			out.Metadata.Title = page.Title
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success:    true,
			StatusCode: page.StatusCode,
			FinalURL:   page.FinalURL,
			Mechanism:  page.Mechanism,
			Content:    out.Content,
			Metadata:   out.Metadata,
			Tokens:     out.Tokens,
			Timing: models.TimingInfo{
				TotalMs:    time.Since(totalStart).Milliseconds(),
				FetchMs:    fetchMs,
				CleaningMs: cleaningMs,
			},
		})
	}
}

// BuildScrapeConfig applies the overrides of req to base. Timeouts above
// maxTimeout are clamped.
func BuildScrapeConfig(req *models.ScrapeRequest, base *models.ScrapeConfig, maxTimeout time.Duration) (*models.ScrapeConfig, error) {
	sc := *base

	if len(req.Strategies) > 0 {
		strategies, err := config.ParseStrategies(strings.Join(req.Strategies, ","))
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
		}
		sc.Strategies = strategies
	}

	if req.Timeout > 0 {
		sc.Options.Timeout = time.Duration(req.Timeout) * time.Second
	}
	if maxTimeout > 0 && sc.Options.Timeout > maxTimeout {
		sc.Options.Timeout = maxTimeout
	}

	if r := req.Retry; r != nil {
		policy := models.RetryPolicy{
			Count:             r.Count,
			Delay:             time.Duration(r.DelayMs) * time.Millisecond,
			Type:              models.BackoffType(r.Backoff),
			RetryableStatuses: r.Retryable,
		}
		if policy.Type == "" {
			policy.Type = models.BackoffExponential
		}
		sc.Options.Retry = &policy
	}

	if len(req.Proxies) > 0 {
		sc.Options.Proxies = req.Proxies
	}
	if len(req.UserAgents) > 0 {
		sc.Options.UserAgents = req.UserAgents
	}
	if len(req.Headers) > 0 {
		headers := make(map[string]string, len(sc.Options.Headers)+len(req.Headers))
		for k, v := range sc.Options.Headers {
			headers[k] = v
		}
		for k, v := range req.Headers {
			headers[k] = v
		}
		sc.Options.Headers = headers
	}

	if req.Engine != "" {
		sc.Browser.Engine = req.Engine
	}
	if req.WaitUntil != "" {
		sc.Browser.WaitUntil = req.WaitUntil
	}
	if len(req.AllowedResourceTypes) > 0 {
		sc.Browser.AllowedResourceTypes = req.AllowedResourceTypes
	}
	if req.Stealth != nil {
		sc.Browser.Stealth = *req.Stealth
	}
	if req.RequireRendered != nil {
		if *req.RequireRendered {
			sc.Options.Validate = scraper.RequireRenderedContent
		} else {
			sc.Options.Validate = nil
		}
	}
	return &sc, nil
}

// respondError maps an error to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeNetwork, models.ErrCodeNoResponse,
		models.ErrCodeValidation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeConfig:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
