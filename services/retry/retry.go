package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/telacare/inference-core/services/providers"
	"go.uber.org/zap"
)

// Spec defines retry behavior for a single operation
type Spec struct {
	// MaxAttempts is the total number of invocations, including the first (>= 1)
	MaxAttempts int

	// BaseDelay is the delay before the second attempt
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration

	// IsRetryable classifies an error as transient. When nil,
	// DefaultRetryable is used.
	IsRetryable func(error) bool
}

// Operation is an idempotent, retryable unit of work
type Operation[T any] func(ctx context.Context) (T, error)

// LocalProfile suits on-host backends: fail over quickly, but tolerate a
// connection refused while the local server spins up.
func LocalProfile() Spec {
	return Spec{
		MaxAttempts: 2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		IsRetryable: LocalRetryable,
	}
}

// StandardProfile suits external cloud APIs: 429/503 and timeouts are
// transient, everything else aborts.
func StandardProfile() Spec {
	return Spec{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		IsRetryable: DefaultRetryable,
	}
}

// CriticalProfile is for high-criticality work where giving up is worse than
// waiting out a longer backoff.
func CriticalProfile() Spec {
	return Spec{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		IsRetryable: DefaultRetryable,
	}
}

// NoRetryProfile fails immediately; for operations where retrying is unsafe
// or redundant.
func NoRetryProfile() Spec {
	return Spec{
		MaxAttempts: 1,
		BaseDelay:   0,
		MaxDelay:    0,
		IsRetryable: func(error) bool { return false },
	}
}

// DefaultRetryable classifies known transient signatures: timeouts,
// connection resets, HTTP 429 and 503. HTTP 400/401 and anything
// unrecognized are non-retryable.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch providers.StatusCode(err) {
	case 429, 503:
		return true
	case 400, 401:
		return false
	}

	var backendErr *providers.BackendError
	if errors.As(err, &backendErr) && backendErr.Retryable {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "timed out") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "service unavailable")
}

// LocalRetryable extends the default classification with connection refused,
// which local backends return while starting up.
func LocalRetryable(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return true
	}
	return DefaultRetryable(err)
}

// Do executes op under spec. The first attempt runs immediately; on a
// retryable failure it backs off min(base * 2^(n-1), max) before attempt n+1.
// Non-retryable errors and exhaustion propagate immediately with no trailing
// delay. Cancelling ctx aborts the loop at the next suspension point.
// Every attempt emits a structured event; payload content is never logged.
func Do[T any](ctx context.Context, logger *zap.Logger, spec Spec, op Operation[T]) (T, error) {
	var zero T

	if spec.MaxAttempts < 1 {
		spec.MaxAttempts = 1
	}
	isRetryable := spec.IsRetryable
	if isRetryable == nil {
		isRetryable = DefaultRetryable
	}

	var lastErr error
	attempts := 0
	lastRetryable := false
	for attempt := 1; attempt <= spec.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		attempts = attempt

		lastRetryable = isRetryable(err)
		logger.Warn("retry attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", spec.MaxAttempts),
			zap.Bool("retryable", lastRetryable),
			zap.String("error_category", categorize(err)))

		if !lastRetryable || attempt == spec.MaxAttempts {
			break
		}

		delay := Backoff(attempt, spec)
		logger.Debug("backing off before next attempt",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastRetryable {
		logger.Warn("retries exhausted",
			zap.Int("attempts", attempts),
			zap.String("error_category", categorize(lastErr)))
	}

	return zero, lastErr
}

// Wrap produces a retry-decorated version of op with a fixed spec
func Wrap[T any](logger *zap.Logger, spec Spec, op Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, logger, spec, op)
	}
}

// Backoff computes the delay after the given 1-based attempt number:
// min(base * 2^(attempt-1), max). A zero MaxDelay means no cap.
func Backoff(attempt int, spec Spec) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := spec.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if spec.MaxDelay > 0 && delay >= spec.MaxDelay {
			return spec.MaxDelay
		}
	}
	return delay
}

// categorize maps an error to a loggable category without exposing content
func categorize(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if code := providers.StatusCode(err); code != 0 {
		return fmt.Sprintf("http_%d", code)
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout") || strings.Contains(s, "timed out"):
		return "timeout"
	case strings.Contains(s, "connection refused"):
		return "connection_refused"
	case strings.Contains(s, "connection reset"):
		return "connection_reset"
	default:
		return "other"
	}
}
