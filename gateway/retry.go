package gateway

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the retries of a gateway call.
type Policy struct {
	MaxAttempts    int           // total attempts, including the first one.
	InitialBackoff time.Duration // wait before the second attempt.
	MaxBackoff     time.Duration // cap of the exponential backoff.
}

// DefaultPolicy is used when no policy is configured.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// Backoff returns the wait after the given failed attempt (1-based). The wait
// doubles at each attempt, up to MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// It returns the last error of fn.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClosed) {
			return err
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

// Retrying wraps a Gateway and retries failed writes with a Policy.
type Retrying struct {
	Gateway
	Policy Policy
}

// WithRetry returns g with writes retried according to p.
func WithRetry(g Gateway, p Policy) *Retrying { return &Retrying{Gateway: g, Policy: p} }

func (r *Retrying) Create(ctx context.Context, collection, id string, doc Document) error {
	return r.Policy.Do(ctx, func(ctx context.Context) error { return r.Gateway.Create(ctx, collection, id, doc) })
}

func (r *Retrying) Update(ctx context.Context, collection, id string, doc Document, merge bool) error {
	return r.Policy.Do(ctx, func(ctx context.Context) error { return r.Gateway.Update(ctx, collection, id, doc, merge) })
}

func (r *Retrying) Delete(ctx context.Context, collection, id string) error {
	return r.Policy.Do(ctx, func(ctx context.Context) error { return r.Gateway.Delete(ctx, collection, id) })
}
