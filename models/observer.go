package models

import (
	"context"
	"time"
)

// RetryAttemptEvent is emitted before waiting for the next retry.
type RetryAttemptEvent struct {
	Err         error
	Attempt     int // 1-indexed attempt that just failed
	MaxAttempts int
	Delay       time.Duration
	Policy      RetryPolicy
}

// RetryExhaustedEvent is emitted when every attempt of a strategy failed.
type RetryExhaustedEvent struct {
	Err      error
	Attempts int
	Policy   RetryPolicy
}

// StrategyFailedEvent is emitted when a strategy of the cascade failed.
type StrategyFailedEvent struct {
	Target   string
	Err      error
	Strategy Strategy
	Index    int
	Total    int
}

// AllStrategiesFailedEvent is emitted once when the cascade is exhausted.
type AllStrategiesFailedEvent struct {
	Target     string
	Err        error
	Strategies []Strategy
	Attempts   int
}

// Observer receives cascade lifecycle events. Implementations must not
// block; return values are not consumed.
type Observer interface {
	OnRetryAttempt(ctx context.Context, ev RetryAttemptEvent)
	OnRetryExhausted(ctx context.Context, ev RetryExhaustedEvent)
	OnStrategyFailed(ctx context.Context, ev StrategyFailedEvent)
	OnAllStrategiesFailed(ctx context.Context, ev AllStrategiesFailedEvent)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnRetryAttempt(context.Context, RetryAttemptEvent)               {}
func (NopObserver) OnRetryExhausted(context.Context, RetryExhaustedEvent)           {}
func (NopObserver) OnStrategyFailed(context.Context, StrategyFailedEvent)           {}
func (NopObserver) OnAllStrategiesFailed(context.Context, AllStrategiesFailedEvent) {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) OnRetryAttempt(ctx context.Context, ev RetryAttemptEvent) {
	for _, ob := range o {
		ob.OnRetryAttempt(ctx, ev)
	}
}

func (o Observers) OnRetryExhausted(ctx context.Context, ev RetryExhaustedEvent) {
	for _, ob := range o {
		ob.OnRetryExhausted(ctx, ev)
	}
}

func (o Observers) OnStrategyFailed(ctx context.Context, ev StrategyFailedEvent) {
	for _, ob := range o {
		ob.OnStrategyFailed(ctx, ev)
	}
}

func (o Observers) OnAllStrategiesFailed(ctx context.Context, ev AllStrategiesFailedEvent) {
	for _, ob := range o {
		ob.OnAllStrategiesFailed(ctx, ev)
	}
}

// ObserverOrNop returns o, or NopObserver when o is nil.
func ObserverOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
