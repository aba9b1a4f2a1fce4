// Package resilience provides the retry policy used by the inference transport.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrTransient marks network-level failures (connection errors, per-attempt
// timeouts) that are worth another attempt.
var ErrTransient = errors.New("transient failure")

// StatusCoder is implemented by errors that carry an HTTP response status.
type StatusCoder interface {
	StatusCode() int
}

// Policy holds configuration for the exponential backoff retry logic.
type Policy struct {
	MaxRetries    int           // Attempts beyond the first
	BaseDelay     time.Duration // Delay before the first retry; doubles each retry
	MaxDelay      time.Duration // Maximum delay cap (0 = uncapped)
	RetryStatuses []int         // HTTP statuses that trigger a retry
	Methods       []string      // HTTP methods that may be retried
}

// DefaultPolicy retries POST three times on 429/5xx and network errors,
// sleeping 0.5s, 1s and 2s between attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		RetryStatuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		Methods: []string{http.MethodPost},
	}
}

// Transient wraps err so that Retryable treats it as a network-level failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Retryable reports whether a failed request with the given method should be retried.
func (p Policy) Retryable(method string, err error) bool {
	if err == nil || !p.allowsMethod(method) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		for _, code := range p.RetryStatuses {
			if sc.StatusCode() == code {
				return true
			}
		}
	}
	return false
}

func (p Policy) allowsMethod(method string) bool {
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// RetryableFunc is one attempt. It should return a non-nil error to trigger a retry.
type RetryableFunc func(ctx context.Context) error

// Retry executes fn, retrying retryable failures with exponential backoff.
// It respects context cancellation at every step.
func Retry(ctx context.Context, p Policy, method string, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("retry: context cancelled: %w", errors.Join(ctx.Err(), lastErr))
			}
			return fmt.Errorf("retry: context cancelled: %w", ctx.Err())
		default:
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !p.Retryable(method, lastErr) {
			return lastErr
		}

		// Don't sleep after the last attempt
		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: context cancelled during backoff: %w", errors.Join(ctx.Err(), lastErr))
		case <-time.After(p.Delay(attempt)):
		}
	}

	return fmt.Errorf("retry: max retries (%d) exceeded: %w", p.MaxRetries, lastErr)
}

// Delay returns the backoff before retry number attempt+1: BaseDelay * 2^attempt,
// capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}
