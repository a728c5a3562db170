package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/use-agent/cascade/models"
)

// LaunchFunc starts a browser for an engine kind.
type LaunchFunc func(ctx context.Context, engine string) (Browser, error)

// Pool is a get-or-create cache of browser instances keyed by engine.
// It is safe for concurrent use; concurrent Acquire calls for the same
// engine launch at most one instance. Instances that keep failing are
// retired and relaunched on the next Acquire.
type Pool struct {
	launch   LaunchFunc
	mu       sync.Mutex
	browsers map[string]*pooled
	closed   bool
}

// pooled is one engine's slot. ready is closed once the launch finished;
// browser and err are written under the pool lock before that.
type pooled struct {
	ready   chan struct{}
	browser Browser
	err     error
	health  health
}

func (e *pooled) launched() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// NewPool creates a Pool that starts browsers with launch.
func NewPool(launch LaunchFunc) *Pool {
	return &Pool{
		launch:   launch,
		browsers: make(map[string]*pooled),
	}
}

var errPoolClosed = models.NewScrapeError(models.ErrCodeBrowserCrash, "browser pool is closed", nil)

// Acquire returns the cached browser for engine, launching it on first use.
// The pool is not locked while a browser starts; callers for the same
// engine wait for that launch or for ctx.
func (p *Pool) Acquire(ctx context.Context, engine string) (Browser, error) {
	if engine == "" {
		engine = DefaultEngine
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errPoolClosed
	}
	if e, ok := p.browsers[engine]; ok {
		p.mu.Unlock()
		return e.wait(ctx)
	}
	e := &pooled{ready: make(chan struct{})}
	p.browsers[engine] = e
	p.mu.Unlock()

	b, err := p.launch(ctx, engine)

	p.mu.Lock()
	var orphan Browser
	switch {
	case err != nil:
		e.err = err
		delete(p.browsers, engine)
	case p.closed:
		e.err = errPoolClosed
		orphan = b
	default:
		e.browser = b
	}
	close(e.ready)
	p.mu.Unlock()

	if orphan != nil {
		if cerr := orphan.Close(); cerr != nil {
			slog.Warn("failed to close browser launched during shutdown", "engine", engine, "error", cerr)
		}
		return nil, errPoolClosed
	}
	if err != nil {
		return nil, err
	}
	slog.Info("browser launched", "engine", engine)
	return b, nil
}

func (e *pooled) wait(ctx context.Context) (Browser, error) {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "gave up waiting for browser launch", ctx.Err())
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.browser, nil
}

// Report implements Provider. Reports about an instance that is no longer
// pooled are ignored.
func (p *Pool) Report(engine string, b Browser, ok bool) {
	if engine == "" {
		engine = DefaultEngine
	}

	p.mu.Lock()
	e, found := p.browsers[engine]
	if !found || e.browser == nil || e.browser != b {
		p.mu.Unlock()
		return
	}
	e.health.record(ok)
	retire := e.health.shouldRetire()
	if retire {
		delete(p.browsers, engine)
	}
	p.mu.Unlock()

	if retire {
		slog.Warn("retiring unhealthy browser", "engine", engine, "uses", e.health.uses, "err_score", e.health.errScore)
		if err := b.Close(); err != nil {
			slog.Warn("failed to close retired browser", "engine", engine, "error", err)
		}
	}
}

// Evict drops and closes the cached browser for engine, so the next Acquire
// launches a fresh one. A browser that is still starting is left alone.
func (p *Pool) Evict(engine string) error {
	if engine == "" {
		engine = DefaultEngine
	}
	p.mu.Lock()
	e, ok := p.browsers[engine]
	if !ok || !e.launched() {
		p.mu.Unlock()
		return nil
	}
	delete(p.browsers, engine)
	p.mu.Unlock()

	return e.browser.Close()
}

// Len returns the number of live browser instances.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.browsers {
		if e.browser != nil {
			n++
		}
	}
	return n
}

// Close closes every browser and rejects further Acquire calls. Browsers
// still starting are closed by their launcher once up.
func (p *Pool) Close() error {
	p.mu.Lock()
	browsers := p.browsers
	p.browsers = make(map[string]*pooled)
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for engine, e := range browsers {
		p.mu.Lock()
		b := e.browser
		p.mu.Unlock()
		if b == nil {
			continue
		}
		slog.Info("closing browser", "engine", engine)
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
