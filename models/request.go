package models

// ScrapeRequest is the payload for POST /api/v1/scrape. Unset fields fall
// back to the server's configured cascade.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Strategies overrides the cascade, e.g. ["network", "browser:proxy"].
	Strategies []string `json:"strategies,omitempty"`

	// Timeout is the per-attempt timeout in seconds.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// Retry overrides the per-strategy retry policy.
	Retry *RetryRequest `json:"retry,omitempty"`

	// Proxies, UserAgents and Headers replace the configured pools.
	Proxies    []string          `json:"proxies,omitempty"`
	UserAgents []string          `json:"user_agents,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`

	// Engine selects the browser engine: "chromium" or "chrome".
	Engine string `json:"engine,omitempty" binding:"omitempty,oneof=chromium chrome"`

	// WaitUntil is the browser navigation wait condition.
	WaitUntil string `json:"wait_until,omitempty" binding:"omitempty,oneof=load domcontentloaded networkidle networkalmostidle"`

	// AllowedResourceTypes blocks every other browser resource type.
	AllowedResourceTypes []string `json:"allowed_resource_types,omitempty"`

	// Stealth toggles anti-bot-detection evasions.
	Stealth *bool `json:"stealth,omitempty"`

	// RequireRendered rejects network responses that look like a JS shell.
	RequireRendered *bool `json:"require_rendered,omitempty"`

	// OutputFormat controls the response body format.
	// Allowed: "markdown" (default), "html", "text".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown html text"`

	// ExtractMode is "readability" (default) or "raw".
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=readability raw"`

	// CSSSelector keeps only the matching elements before cleaning.
	CSSSelector string `json:"css_selector,omitempty"`
}

// RetryRequest is the retry policy of a ScrapeRequest.
type RetryRequest struct {
	Count     int    `json:"count" binding:"min=0,max=10"`
	DelayMs   int    `json:"delay_ms,omitempty" binding:"omitempty,min=0"`
	Backoff   string `json:"backoff,omitempty" binding:"omitempty,oneof=exponential linear constant"`
	Retryable []int  `json:"retryable_statuses,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
	if r.ExtractMode == "" {
		r.ExtractMode = "readability"
	}
}
