package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"vaultScope/internal/metrics"
)

const defaultBaseDelay = 100 * time.Millisecond

// Policy bounds retries of one collaborator call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn with exponential backoff until it succeeds, returns a permanent
// error, exhausts MaxRetries, or ctx is done.
func Do[T any](ctx context.Context, policy Policy, op string, logger *zap.Logger, fn func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := policy.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = baseDelay
	expBackoff.MaxInterval = baseDelay * 10

	notify := func(err error, next time.Duration) {
		metrics.UpstreamRetry(op)
		logger.Warn("retrying upstream call", zap.String("op", op), zap.Duration("backoff", next), zap.Error(err))
	}

	return backoff.Retry(ctx, func() (T, error) {
		return fn(ctx)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(maxRetries+1)),
		backoff.WithNotify(notify),
	)
}
