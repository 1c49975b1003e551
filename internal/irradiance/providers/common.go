package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUpstreamUnavailable is returned for transport failures, non-2xx
// responses and calls rejected by an open circuit.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

var (
	errServerError  = errors.New("server error")
	errRateLimited  = errors.New("rate limited")
	errNoHTTPClient = errors.New("http client not configured")
)

// BreakerConfig controls when the circuit opens and how long it stays open.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
}

// doRequest executes a single attempt through the circuit breaker.
// Only transport errors, 429 and 5xx count against the breaker; other
// non-2xx statuses are per-site problems (bad key, bad coordinates).
// The caller owns the returned body.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusError(resp, errRateLimited)
		}
		if resp.StatusCode >= 500 {
			return nil, statusError(resp, errServerError)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit %s: %v", ErrUpstreamUnavailable, cb.Name(), err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp, errors.New("unexpected status code"))
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

// statusError drains and closes the body and describes the status.
func statusError(resp *http.Response, kind error) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%w: %d %s", kind, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return fmt.Errorf("%w: %d %s: %s", kind, resp.StatusCode, http.StatusText(resp.StatusCode), msg)
}
