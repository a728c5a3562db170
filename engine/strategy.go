package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/retry"
)

// BuildRequestOptions materializes the options of one strategy execution.
// A proxy is drawn only when the strategy asks for one; user agent and
// viewport are drawn whenever their pools are non-empty.
func BuildRequestOptions(opts models.Options, s models.Strategy) models.RequestOptions {
	ro := models.RequestOptions{
		Headers: maps.Clone(opts.Headers),
		Timeout: opts.Timeout,
	}
	if s.UseProxy {
		ro.Proxy, _ = Pick(opts.Proxies)
	}
	ro.UserAgent, _ = Pick(opts.UserAgents)
	if vp, ok := Pick(opts.Viewports); ok {
		ro.Viewport = &vp
	}
	return ro
}

// runStrategy runs one strategy under the retry policy. Each attempt gets
// its own deadline when a timeout is configured.
func (d *Dispatcher) runStrategy(ctx context.Context, target string, cfg *models.ScrapeConfig, s models.Strategy, obs models.Observer) (Result, error) {
	exec, ok := d.executors[s.Mechanism]
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeConfig,
			fmt.Sprintf("no executor for mechanism %q", s.Mechanism), nil)
	}

	reqOpts := BuildRequestOptions(cfg.Options, s)

	attempt := func(ctx context.Context) (Result, error) {
		if reqOpts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, reqOpts.Timeout)
			defer cancel()
		}
		return exec.Execute(ctx, target, cfg, reqOpts)
	}

	return retry.Do(ctx, cfg.Options.Retry, attempt,
		retry.WithClock(d.clock),
		retry.WithObserver(obs),
	)
}
