package outbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/etnz/finance/gateway"
)

// Dispatcher replays outbox entries on a gateway, strictly in submission
// order: an entry is not sent before every older entry is delivered or given
// up.
//
// An entry failing Policy.MaxAttempts times is marked failed and skipped.
// Skipping is safe for balances since later changes carry absolute values.
type Dispatcher struct {
	box    *Outbox
	gw     gateway.Gateway
	policy gateway.Policy
	now    func() time.Time
	logger *log.Logger
}

// NewDispatcher creates a dispatcher of box onto gw.
func NewDispatcher(box *Outbox, gw gateway.Gateway, policy gateway.Policy) *Dispatcher {
	return &Dispatcher{box: box, gw: gw, policy: policy, now: time.Now, logger: log.New(io.Discard, "", 0)}
}

// SetLogger sets the logger reporting delivery failures.
func (d *Dispatcher) SetLogger(l *log.Logger) { d.logger = l }

// Drain delivers pending entries until the outbox is empty or the head entry
// has to wait. It returns the number of entries delivered. The error reports
// why the head entry is waiting.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	sent := 0
	for {
		e, ok, err := d.box.head(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			return sent, nil
		}
		now := d.now()
		if e.NextAttemptAt.After(now) {
			return sent, fmt.Errorf("entry %d %q waits until %s: %s", e.ID, e.Label, e.NextAttemptAt.Format(time.TimeOnly), e.LastError)
		}

		err = gateway.ApplyChange(ctx, d.gw, e.Change())
		if err == nil {
			if err := d.box.update(ctx, e.ID, StatusDone, e.Attempts+1, "", time.Time{}); err != nil {
				return sent, err
			}
			sent++
			continue
		}
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		attempts := e.Attempts + 1
		if attempts >= max(d.policy.MaxAttempts, 1) {
			d.logger.Printf("giving up %q after %d attempts: %v", e.Label, attempts, err)
			if err := d.box.update(ctx, e.ID, StatusFailed, attempts, err.Error(), time.Time{}); err != nil {
				return sent, err
			}
			continue
		}
		next := now.Add(d.policy.Backoff(attempts))
		d.logger.Printf("%q failed (attempt %d), retrying at %s: %v", e.Label, attempts, next.Format(time.TimeOnly), err)
		if uerr := d.box.update(ctx, e.ID, StatusPending, attempts, err.Error(), next); uerr != nil {
			return sent, uerr
		}
		return sent, fmt.Errorf("%s: %w", e.Label, err)
	}
}

// Run drains the outbox on every submission and at least every interval,
// until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			d.logger.Printf("outbox: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.box.Notify():
		case <-ticker.C:
		}
	}
}
