package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/use-agent/cascade/models"
	"github.com/use-agent/cascade/retry"
)

// EventCascadeFailed is sent when every strategy of a cascade failed.
const EventCascadeFailed = "cascade.failed"

// SignatureHeader carries the HMAC-SHA256 signature of the body.
const SignatureHeader = "X-Cascade-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	Target    string `json:"target"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Failure is the Data of a cascade.failed event.
type Failure struct {
	Strategies []string `json:"strategies"`
	Attempts   int      `json:"attempts"`
	Code       string   `json:"code"`
	Error      string   `json:"error"`
}

// deliveryPolicy retries failed deliveries after 1s, 2s and 4s.
var deliveryPolicy = models.RetryPolicy{
	Count: 3,
	Delay: time.Second,
	Type:  models.BackoffExponential,
}

// Client delivers signed webhook events.
type Client struct {
	url    string
	secret string
	http   *http.Client
	policy models.RetryPolicy
}

// NewClient creates a Client posting to url. The body is signed with
// HMAC-SHA256 when secret is non-empty.
func NewClient(url, secret string) *Client {
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
		policy: deliveryPolicy,
	}
}

// Deliver sends one event synchronously.
// Header: X-Cascade-Signature: sha256=<hex>
func (c *Client) Deliver(ctx context.Context, event *Event) error {
	body, err := jsoniter.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Cascade-Webhook/1.0")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(c.secret, body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &models.StatusError{StatusCode: resp.StatusCode, URL: c.url}
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying with backoff.
// done, if non-nil, receives the final outcome.
func (c *Client) DeliverAsync(event *Event, done func(error)) {
	go func() {
		policy := c.policy
		_, err := retry.Do(context.Background(), &policy, func(ctx context.Context) (struct{}, error) {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return struct{}{}, c.Deliver(ctx, event)
		})
		if err != nil {
			slog.Error("webhook delivery failed", "url", c.url, "event", event.Type, "target", event.Target, "error", err)
		} else {
			slog.Info("webhook delivered", "url", c.url, "event", event.Type, "target", event.Target)
		}
		if done != nil {
			done(err)
		}
	}()
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Observer posts a cascade.failed event whenever a cascade is exhausted.
// Other events are ignored.
type Observer struct {
	models.NopObserver
	client *Client
}

// NewObserver creates an Observer delivering through client.
func NewObserver(client *Client) *Observer {
	return &Observer{client: client}
}

func (o *Observer) OnAllStrategiesFailed(_ context.Context, ev models.AllStrategiesFailedEvent) {
	strategies := make([]string, len(ev.Strategies))
	for i, s := range ev.Strategies {
		strategies[i] = s.String()
	}
	failure := Failure{
		Strategies: strategies,
		Attempts:   ev.Attempts,
		Code:       models.CodeOf(ev.Err),
	}
	if ev.Err != nil {
		failure.Error = ev.Err.Error()
	}
	o.client.DeliverAsync(&Event{
		Type:      EventCascadeFailed,
		Target:    ev.Target,
		Timestamp: time.Now().Unix(),
		Data:      failure,
	}, nil)
}
