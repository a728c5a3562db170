package engine

import (
	"context"
	"sync"

	"github.com/use-agent/cascade/models"
)

// fakeExecutor runs fn and records every call.
type fakeExecutor struct {
	mechanism models.Mechanism
	fn        func(ctx context.Context, call int) (Result, error)

	mu    sync.Mutex
	calls []models.RequestOptions
}

func (f *fakeExecutor) Mechanism() models.Mechanism { return f.mechanism }

func (f *fakeExecutor) Execute(ctx context.Context, _ string, _ *models.ScrapeConfig, opts models.RequestOptions) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	n := len(f.calls)
	f.mu.Unlock()
	return f.fn(ctx, n)
}

func (f *fakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingObserver keeps every event it receives.
type recordingObserver struct {
	mu        sync.Mutex
	attempts  []models.RetryAttemptEvent
	exhausted []models.RetryExhaustedEvent
	failed    []models.StrategyFailedEvent
	allFailed []models.AllStrategiesFailedEvent
}

func (r *recordingObserver) OnRetryAttempt(_ context.Context, ev models.RetryAttemptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, ev)
}

func (r *recordingObserver) OnRetryExhausted(_ context.Context, ev models.RetryExhaustedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted = append(r.exhausted, ev)
}

func (r *recordingObserver) OnStrategyFailed(_ context.Context, ev models.StrategyFailedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, ev)
}

func (r *recordingObserver) OnAllStrategiesFailed(_ context.Context, ev models.AllStrategiesFailedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allFailed = append(r.allFailed, ev)
}
