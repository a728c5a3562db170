// Package browser is the browser-automation collaborator of the cascade:
// a get-or-create pool of browser instances keyed by engine, isolated
// browsing contexts, and pages that can navigate and report a response.
package browser

import (
	"context"
	"time"

	"github.com/use-agent/cascade/models"
)

// Provider hands out browser instances by engine kind.
type Provider interface {
	Acquire(ctx context.Context, engine string) (Browser, error)

	// Report records whether b, acquired for engine, could open a context
	// and page. Repeated failures retire the instance.
	Report(engine string, b Browser, ok bool)
}

// Browser is a running browser instance shared across calls.
type Browser interface {
	NewContext(ctx context.Context, opts ContextOptions) (Context, error)
	Close() error
}

// Context is an isolated browsing context. Whoever obtains one must close it.
type Context interface {
	NewPage(ctx context.Context, opts PageOptions) (Page, error)
	Close() error
}

// Page is a single tab within a Context.
type Page interface {
	// Goto navigates to url. A nil Response with a nil error means the
	// navigation produced no response.
	Goto(ctx context.Context, url string, opts GotoOptions) (*Response, error)

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// Title returns document.title, or "" when unavailable.
	Title(ctx context.Context) string
}

// ContextOptions are applied to a fresh browsing context.
type ContextOptions struct {
	Proxy     string
	UserAgent string
	Viewport  *models.Viewport
	Headers   map[string]string
}

// PageOptions are applied to a page before navigation.
type PageOptions struct {
	// AllowedResourceTypes, when non-empty, blocks every other resource type.
	AllowedResourceTypes []string
	Stealth              bool
}

// GotoOptions control navigation.
type GotoOptions struct {
	WaitUntil string
	Timeout   time.Duration
}

// Response describes the main-frame navigation response.
type Response struct {
	StatusCode int
	URL        string
}

// Wait conditions accepted by GotoOptions.WaitUntil.
const (
	WaitLoad              = "load"
	WaitDOMContentLoaded  = "domcontentloaded"
	WaitNetworkIdle       = "networkidle"
	WaitNetworkAlmostIdle = "networkalmostidle"
)

// DefaultEngine is used when no engine is configured.
const DefaultEngine = "chromium"
