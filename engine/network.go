package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/cascade/models"
)

// maxBody caps how much of a response body is read into memory.
const maxBody = 10 << 20

// TransportRequest is one outbound request of the network mechanism.
type TransportRequest struct {
	URL     string
	Headers map[string]string

	// Proxy is an opaque proxy URL; empty means a direct connection.
	Proxy string
}

// Transport performs HTTP requests. Cancelling ctx must abort the request.
type Transport interface {
	Do(ctx context.Context, req *TransportRequest) (*http.Response, error)
}

// NetworkExecutor fetches the target with a single transport call.
type NetworkExecutor struct {
	transport Transport
}

// NewNetworkExecutor creates a NetworkExecutor.
func NewNetworkExecutor(transport Transport) *NetworkExecutor {
	return &NetworkExecutor{transport: transport}
}

func (e *NetworkExecutor) Mechanism() models.Mechanism { return models.MechanismNetwork }

func (e *NetworkExecutor) Execute(ctx context.Context, target string, cfg *models.ScrapeConfig, opts models.RequestOptions) (Result, error) {
	resp, err := e.transport.Do(ctx, &TransportRequest{
		URL:     target,
		Headers: mergeHeaders(opts.Headers, opts.UserAgent),
		Proxy:   opts.Proxy,
	})
	if err != nil {
		return nil, categorizeError(err, "network request failed")
	}
	if resp == nil {
		return nil, models.NewScrapeError(models.ErrCodeNoResponse, "transport returned no response", nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, categorizeError(err, "failed to read response body")
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return nil, models.NewScrapeError(models.ErrCodeNetwork,
			fmt.Sprintf("unexpected status %d", resp.StatusCode),
			&models.StatusError{StatusCode: resp.StatusCode, URL: finalURL})
	}

	result := &NetworkResult{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   finalURL,
	}
	if err := validate(ctx, cfg, models.MechanismNetwork, result); err != nil {
		return nil, err
	}
	return result, nil
}

// mergeHeaders copies headers and sets the user agent over any
// User-Agent entry, whatever its case.
func mergeHeaders(headers map[string]string, userAgent string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		if userAgent != "" && strings.EqualFold(k, "User-Agent") {
			continue
		}
		out[k] = v
	}
	if userAgent != "" {
		out["User-Agent"] = userAgent
	}
	return out
}

// categorizeError wraps raw errors into typed ScrapeErrors. Errors that
// already carry a code are returned unchanged.
func categorizeError(err error, msg string) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNetwork, msg, err)
	}
}
