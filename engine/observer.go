package engine

import (
	"context"
	"log/slog"

	"github.com/use-agent/cascade/models"
)

// LogObserver reports cascade events through slog.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o LogObserver) OnRetryAttempt(ctx context.Context, ev models.RetryAttemptEvent) {
	o.logger().DebugContext(ctx, "attempt failed, retrying",
		"attempt", ev.Attempt, "max_attempts", ev.MaxAttempts,
		"delay", ev.Delay, "error", ev.Err)
}

func (o LogObserver) OnRetryExhausted(ctx context.Context, ev models.RetryExhaustedEvent) {
	o.logger().WarnContext(ctx, "retries exhausted", "attempts", ev.Attempts, "error", ev.Err)
}

func (o LogObserver) OnStrategyFailed(ctx context.Context, ev models.StrategyFailedEvent) {
	o.logger().WarnContext(ctx, "strategy failed",
		"url", ev.Target, "strategy", ev.Strategy.String(), "index", ev.Index, "total", ev.Total,
		"code", models.CodeOf(ev.Err), "error", ev.Err)
}

func (o LogObserver) OnAllStrategiesFailed(ctx context.Context, ev models.AllStrategiesFailedEvent) {
	o.logger().ErrorContext(ctx, "all strategies failed",
		"url", ev.Target, "strategies", len(ev.Strategies), "code", models.CodeOf(ev.Err), "error", ev.Err)
}
