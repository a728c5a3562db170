package engine

import (
	"context"
	"log/slog"

	"github.com/coder/quartz"
	"github.com/use-agent/cascade/models"
)

// Dispatcher runs the strategy cascade: strategies are tried one after the
// other in declared order and the first success wins.
type Dispatcher struct {
	executors map[models.Mechanism]Executor
	clock     quartz.Clock
	observer  models.Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock used for retry backoff.
func WithClock(clock quartz.Clock) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithObserver adds an observer notified for every cascade, in addition to
// the one a ScrapeConfig may carry.
func WithObserver(obs models.Observer) Option {
	return func(d *Dispatcher) {
		d.observer = obs
	}
}

// NewDispatcher creates a Dispatcher. Later executors replace earlier ones
// for the same mechanism.
func NewDispatcher(executors []Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		executors: make(map[models.Mechanism]Executor, len(executors)),
		clock:     quartz.NewReal(),
	}
	for _, e := range executors {
		d.executors[e.Mechanism()] = e
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch retrieves target with the strategies of cfg.
//
// Earlier strategies' errors are only reported to observers; when every
// strategy fails the last one's error is returned. A configuration error
// ends the cascade at once and is returned as is.
func (d *Dispatcher) Dispatch(ctx context.Context, target string, cfg *models.ScrapeConfig) (Result, error) {
	if cfg == nil || len(cfg.Strategies) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeConfig, "at least one strategy is required", nil)
	}

	obs := d.observerFor(cfg)
	total := len(cfg.Strategies)

	var lastErr error
	for i, s := range cfg.Strategies {
		slog.Debug("strategy starting", "url", target, "strategy", s.String(), "index", i)

		result, err := d.runStrategy(ctx, target, cfg, s, obs)
		if err == nil {
			slog.Info("strategy succeeded", "url", target, "strategy", s.String(), "index", i)
			return result, nil
		}
		lastErr = err

		obs.OnStrategyFailed(ctx, models.StrategyFailedEvent{
			Target:   target,
			Err:      err,
			Strategy: s,
			Index:    i,
			Total:    total,
		})
		if models.IsConfigError(err) {
			return nil, err
		}
	}

	obs.OnAllStrategiesFailed(ctx, models.AllStrategiesFailedEvent{
		Target:     target,
		Err:        lastErr,
		Strategies: cfg.Strategies,
		Attempts:   total,
	})
	return nil, lastErr
}

func (d *Dispatcher) observerFor(cfg *models.ScrapeConfig) models.Observer {
	var obs models.Observers
	if d.observer != nil {
		obs = append(obs, d.observer)
	}
	if cfg.Observer != nil {
		obs = append(obs, cfg.Observer)
	}
	switch len(obs) {
	case 0:
		return models.NopObserver{}
	case 1:
		return obs[0]
	}
	return obs
}
