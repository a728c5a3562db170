package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/use-agent/cascade/browser"
	"github.com/use-agent/cascade/config"
	"github.com/use-agent/cascade/engine"
	"github.com/use-agent/cascade/models"
)

// Scraper owns the collaborators of the cascade (transport, browser pool,
// archive fallback) and runs one cascade per Scrape call.
// It is safe for concurrent use.
type Scraper struct {
	cfg        *config.Config
	fetcher    *HTTPFetcher
	transport  engine.Transport
	pool       *browser.Pool
	archive    *ArchiveFetcher
	dispatcher *engine.Dispatcher
	active     atomic.Int32
	startTime  time.Time
}

type options struct {
	launch    browser.LaunchFunc
	transport engine.Transport
	clock     quartz.Clock
	observers models.Observers
}

// Option configures a Scraper.
type Option func(*options)

// WithLaunchFunc replaces the rod launcher used by the browser pool.
func WithLaunchFunc(launch browser.LaunchFunc) Option {
	return func(o *options) { o.launch = launch }
}

// WithTransport replaces the network transport.
func WithTransport(t engine.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithClock sets the clock used for retry backoff.
func WithClock(clock quartz.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithObserver adds an observer notified for every cascade.
func WithObserver(obs models.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// New creates a Scraper. Browsers are launched lazily on first use.
func New(cfg *config.Config, opts ...Option) *Scraper {
	o := options{
		launch: browser.NewRodLauncher(browser.LaunchOptions{
			Headless:  cfg.Browser.Headless,
			NoSandbox: cfg.Browser.NoSandbox,
			Bin:       cfg.Browser.BrowserBin,
		}),
		observers: models.Observers{engine.LogObserver{}},
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scraper{
		cfg:       cfg,
		pool:      browser.NewPool(o.launch),
		startTime: time.Now(),
	}
	if o.transport != nil {
		s.transport = o.transport
	} else {
		s.fetcher = NewHTTPFetcher(cfg.Cascade.MaxRedirects)
		s.transport = s.fetcher
	}
	s.archive = NewArchiveFetcher(s.transport, cfg.Cascade.ArchiveEndpoint)

	dopts := []engine.Option{engine.WithObserver(o.observers)}
	if o.clock != nil {
		dopts = append(dopts, engine.WithClock(o.clock))
	}
	s.dispatcher = engine.NewDispatcher([]engine.Executor{
		engine.NewNetworkExecutor(s.transport),
		engine.NewBrowserExecutor(s.pool),
		engine.CustomExecutor{},
	}, dopts...)
	return s
}

// DefaultConfig returns the configured cascade with the archive fallback as
// its custom function and, if enabled, the rendered-content validator.
func (s *Scraper) DefaultConfig() *models.ScrapeConfig {
	sc := s.cfg.ScrapeConfig()
	sc.Custom = s.archive.Fetch
	if s.cfg.Cascade.RequireRendered {
		sc.Options.Validate = RequireRenderedContent
	}
	return sc
}

// Dispatch runs the cascade and returns the raw result. Browser results
// must be cleaned up by the caller.
func (s *Scraper) Dispatch(ctx context.Context, target string, sc *models.ScrapeConfig) (engine.Result, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if sc == nil {
		sc = s.DefaultConfig()
	}

	s.active.Add(1)
	defer s.active.Add(-1)
	return s.dispatcher.Dispatch(ctx, target, sc)
}

// Scrape runs the cascade and renders the result into a Page.
func (s *Scraper) Scrape(ctx context.Context, target string, sc *models.ScrapeConfig) (*Page, error) {
	res, err := s.Dispatch(ctx, target, sc)
	if err != nil {
		return nil, err
	}
	return Render(ctx, target, res)
}

// Stats returns a snapshot of the scraper's state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		Browsers:      s.pool.Len(),
		ActiveScrapes: int(s.active.Load()),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
}

// Close shuts down every browser and idle connection.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() error {
	slog.Info("scraper shutting down: closing browsers")
	err := s.pool.Close()
	if s.fetcher != nil {
		s.fetcher.Close()
	}
	slog.Info("scraper shutdown complete")
	return err
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "invalid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "URL scheme must be http or https", nil)
	}
	if u.Host == "" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "URL has no host", errors.New(target))
	}
	return nil
}
