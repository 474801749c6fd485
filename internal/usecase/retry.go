package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ArticleEnricher/internal/domain"
)

// RetryPolicy bounds how often and how patiently an external call is retried.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Multiplier   float64
	Pacing       time.Duration
}

// DefaultRetryPolicy is three attempts, 2s then 4s apart, 500ms between calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		Pacing:       500 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.InitialDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.InitialDelay * 60
	return b
}

// withRetry runs fn until it succeeds, the attempts are spent, or the error
// is not worth retrying. The last error is returned unchanged.
func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalized()
	attempt := 0

	operation := func() (T, error) {
		attempt++
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if !retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("retrying external call",
			"op", op,
			"attempt", attempt,
			"max_attempts", policy.Attempts,
			"next_delay", next,
			"error", err,
		)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.Attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, domain.ErrParse), errors.Is(err, domain.ErrNotFound):
		return false
	}
	return true
}

// pacer spaces consecutive calls of one kind by at least interval.
type pacer struct {
	interval time.Duration
	last     time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval}
}

// wait blocks until interval has passed since the previous mark.
func (p *pacer) wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 || p.last.IsZero() {
		return nil
	}
	remaining := p.interval - time.Since(p.last)
	if remaining <= 0 {
		return nil
	}
	return sleep(ctx, remaining)
}

func (p *pacer) mark() {
	if p != nil {
		p.last = time.Now()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
