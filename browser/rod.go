package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// rodBrowser adapts a rod browser process to Browser.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewContext creates an isolated browser context (incognito-like) with its
// own proxy, then applies user agent, viewport and headers to its pages.
func (b *rodBrowser) NewContext(ctx context.Context, opts ContextOptions) (Context, error) {
	req := proto.TargetCreateBrowserContext{DisposeOnDetach: true}
	if opts.Proxy != "" {
		req.ProxyServer = proxyServer(opts.Proxy)
		if hasProxyCredentials(opts.Proxy) {
			slog.Warn("browser contexts cannot authenticate to proxies; credentials dropped",
				"proxy", req.ProxyServer)
		}
	}

	res, err := req.Call(b.browser.Context(ctx))
	if err != nil {
		return nil, categorizeError(err, "failed to create browser context")
	}

	isolated := *b.browser
	isolated.BrowserContextID = res.BrowserContextID
	return &rodContext{
		browser: &isolated,
		opts:    opts,
	}, nil
}

// Close kills the browser process.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

// rodContext is one isolated browser context.
type rodContext struct {
	browser *rod.Browser
	opts    ContextOptions

	mu      sync.Mutex
	routers []*rod.HijackRouter
	closed  bool
}

func (c *rodContext) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	page, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, categorizeError(err, "failed to open page")
	}
	// Drop the creation context so later calls are not bound to it.
	page = page.Context(context.Background())

	if c.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: c.opts.UserAgent}); err != nil {
			return nil, categorizeError(err, "failed to set user agent")
		}
	}
	if vp := c.opts.Viewport; vp != nil {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return nil, categorizeError(err, "failed to set viewport")
		}
	}
	if len(c.opts.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(c.opts.Headers)}).Call(page); err != nil {
			return nil, categorizeError(err, "failed to set extra headers")
		}
	}

	// Stealth JS only takes effect for documents created after it is installed.
	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	router, err := setupHijack(page, opts.AllowedResourceTypes)
	if err != nil {
		return nil, categorizeError(err, "failed to install resource filter")
	}
	if router != nil {
		c.mu.Lock()
		c.routers = append(c.routers, router)
		c.mu.Unlock()
	}

	return &rodPage{page: page}, nil
}

// Close stops every request router and disposes the context with its pages.
func (c *rodContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	routers := c.routers
	c.routers = nil
	c.mu.Unlock()

	var errs []error
	for _, r := range routers {
		if err := r.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := (proto.TargetDisposeBrowserContext{BrowserContextID: c.browser.BrowserContextID}).Call(c.browser); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// rodPage adapts a rod page to Page.
type rodPage struct {
	page *rod.Page
}

var waitEvents = map[string]proto.PageLifecycleEventName{
	WaitLoad:              proto.PageLifecycleEventNameLoad,
	WaitDOMContentLoaded:  proto.PageLifecycleEventNameDOMContentLoaded,
	WaitNetworkIdle:       proto.PageLifecycleEventNameNetworkIdle,
	WaitNetworkAlmostIdle: proto.PageLifecycleEventNameNetworkAlmostIdle,
}

// Goto navigates and waits for the configured lifecycle event. The status
// code is read from the Navigation Timing API (best-effort, 0 if unknown).
func (p *rodPage) Goto(ctx context.Context, target string, opts GotoOptions) (*Response, error) {
	navCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	pc := p.page.Context(navCtx)

	event, ok := waitEvents[opts.WaitUntil]
	if !ok {
		event = proto.PageLifecycleEventNameLoad
	}
	// Must be registered before Navigate or the event can be missed.
	wait := pc.WaitNavigation(event)

	if err := pc.Navigate(target); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return nil, categorizeError(err, "navigation did not finish")
	}

	resp := &Response{URL: target}
	if res, err := pc.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		resp.StatusCode = res.Value.Int()
	}
	if href := evalStringOrEmpty(pc, `() => window.location.href`); href != "" {
		resp.URL = href
	}
	return resp, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (p *rodPage) Title(ctx context.Context) string {
	return evalStringOrEmpty(p.page.Context(ctx), `() => document.title`)
}

// Rod exposes the underlying rod page for callers that need the full API.
func (p *rodPage) Rod() *rod.Page {
	return p.page
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// hasProxyCredentials reports whether a proxy URL carries a user name.
func hasProxyCredentials(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.User != nil && u.User.Username() != ""
}

// proxyServer strips credentials from a proxy URL; Chrome's proxy-server
// setting only accepts scheme://host:port.
func proxyServer(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
