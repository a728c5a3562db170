package models

import (
	"context"
	"time"
)

// Mechanism is the retrieval technique a strategy uses.
type Mechanism string

const (
	MechanismNetwork Mechanism = "network"
	MechanismBrowser Mechanism = "browser"
	MechanismCustom  Mechanism = "custom"
)

// Strategy is one entry of the cascade. Order in ScrapeConfig.Strategies
// defines priority.
type Strategy struct {
	Mechanism Mechanism `json:"mechanism"`
	UseProxy  bool      `json:"use_proxy,omitempty"`
}

func (s Strategy) String() string {
	if s.UseProxy {
		return string(s.Mechanism) + "+proxy"
	}
	return string(s.Mechanism)
}

// BackoffType selects how the delay between retries grows.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffLinear      BackoffType = "linear"
	BackoffConstant    BackoffType = "constant"
)

// DefaultRetryableStatuses is used when RetryPolicy.RetryableStatuses is nil.
var DefaultRetryableStatuses = []int{408, 425, 429, 500, 502, 503, 504}

// RetryPolicy controls the per-strategy retry loop.
type RetryPolicy struct {
	// Count is the number of attempts beyond the first. 0 means a single attempt.
	Count int

	// Delay is the base backoff delay.
	Delay time.Duration

	// Type is the backoff shape; unknown values behave as exponential.
	Type BackoffType

	// RetryableStatuses lists the status codes a StatusError may carry and
	// still be retried. nil means DefaultRetryableStatuses.
	RetryableStatuses []int
}

// Statuses returns the effective retriable status set.
func (p *RetryPolicy) Statuses() []int {
	if p == nil || p.RetryableStatuses == nil {
		return DefaultRetryableStatuses
	}
	return p.RetryableStatuses
}

// Viewport is a browser window size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ValidationInput is what a Validator inspects. Response is
// *engine.NetworkResult for network, *browser.Response for browser and the
// caller's own value for custom.
type ValidationInput struct {
	Mechanism Mechanism
	Response  any
}

// Validator decides whether a retrieved response is acceptable. Returning
// false (or an error) fails the attempt.
type Validator func(ctx context.Context, in ValidationInput) (bool, error)

// Options are the global options shared by every strategy.
type Options struct {
	Timeout    time.Duration
	Retry      *RetryPolicy
	Proxies    []string
	UserAgents []string
	Viewports  []Viewport
	Headers    map[string]string
	Validate   Validator
}

// BrowserOptions configure the browser mechanism.
type BrowserOptions struct {
	// Engine selects the browser instance kind; "" means "chromium".
	Engine string

	// WaitUntil is the navigation wait condition:
	// "load" (default), "domcontentloaded", "networkidle" or "networkalmostidle".
	WaitUntil string

	// AllowedResourceTypes, when non-empty, blocks every resource type not
	// listed (e.g. "document", "script", "xhr").
	AllowedResourceTypes []string

	// Stealth injects anti-automation-detection evasions before navigation.
	Stealth bool
}

// RequestOptions are the materialized options of one strategy execution.
// Retries of the same strategy reuse them.
type RequestOptions struct {
	Proxy     string
	UserAgent string
	Viewport  *Viewport
	Headers   map[string]string
	Timeout   time.Duration
}

// CustomFunc is a caller-supplied retrieval function. A nil return value
// with a nil error counts as "no response".
type CustomFunc func(ctx context.Context, target string, opts RequestOptions) (any, error)

// ScrapeConfig is the root configuration of one cascade invocation.
type ScrapeConfig struct {
	Strategies []Strategy
	Options    Options
	Browser    BrowserOptions
	Custom     CustomFunc
	Observer   Observer
}
