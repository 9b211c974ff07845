// internal/fetchers/retry.go
package fetchers

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/avast/retry-go/v4"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/metrics"
)

// Logger is the logging surface the fetchers need.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// AttemptFunc performs one attempt. attempt is zero-based.
type AttemptFunc[T any] func(ctx context.Context, attempt uint) (T, error)

// Retrier retries transient upstream failures with exponential backoff.
// Every attempt gets its own timeout; an attempt that hits it counts as a
// failed, retryable attempt.
type Retrier struct {
	attempts uint
	base     time.Duration
	timeout  time.Duration
	logger   Logger
}

func NewRetrier(attempts int, base, timeout time.Duration, log Logger) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{
		attempts: uint(attempts),
		base:     base,
		timeout:  timeout,
		logger:   log,
	}
}

// Timeout is the per-attempt deadline.
func (r *Retrier) Timeout() time.Duration {
	return r.timeout
}

// Run calls fn until it succeeds, fails with a non-transient error, or the
// attempts are used up. The delay before retry n (zero-based) is base * 2^n.
func Run[T any](ctx context.Context, r *Retrier, source string, fn AttemptFunc[T]) (T, error) {
	var (
		result  T
		attempt uint
	)

	err := retry.Do(
		func() error {
			n := attempt
			attempt++

			attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			v, err := fn(attemptCtx, n)
			if err != nil {
				err = classify(source, attemptCtx, err)
				outcome := "failed"
				if apperrors.IsRetryable(err) {
					outcome = "retry"
				}
				metrics.UpstreamFetchAttempts.WithLabelValues(source, outcome).Inc()
				return err
			}
			metrics.UpstreamFetchAttempts.WithLabelValues(source, "success").Inc()
			result = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.base),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(apperrors.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			if r.logger != nil {
				r.logger.Warn("Upstream attempt failed, retrying", map[string]interface{}{
					"source":  source,
					"attempt": n + 1,
					"error":   err.Error(),
				})
			}
		}),
	)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// classify turns transport-level failures into coded errors so the retry
// policy can tell transient from permanent ones. Already coded errors pass through.
func classify(source string, attemptCtx context.Context, err error) error {
	if _, ok := apperrors.AsStandard(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return apperrors.NewUpstreamTimeoutError(source, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewUpstreamTimeoutError(source, err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewInternalError(err)
	}
	return apperrors.NewUpstreamUnavailableError(source, err)
}
