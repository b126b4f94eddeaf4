package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := p.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

// failing fails its first n writes.
type failing struct {
	*Memory
	n     int
	calls int
}

func (f *failing) Create(ctx context.Context, collection, id string, doc Document) error {
	f.calls++
	if f.calls <= f.n {
		return errors.New("unavailable")
	}
	return f.Memory.Create(ctx, collection, id, doc)
}

func TestRetrying(t *testing.T) {
	ctx := context.Background()
	p := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	t.Run("recovers", func(t *testing.T) {
		f := &failing{Memory: NewMemory(), n: 2}
		if err := WithRetry(f, p).Create(ctx, accounts, "a", Document{}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if f.calls != 3 {
			t.Errorf("calls = %d, want 3", f.calls)
		}
		if _, ok := f.Get(accounts, "a"); !ok {
			t.Error("document not written")
		}
	})

	t.Run("gives up", func(t *testing.T) {
		f := &failing{Memory: NewMemory(), n: 5}
		if err := WithRetry(f, p).Create(ctx, accounts, "a", Document{}); err == nil {
			t.Fatal("Create() succeeded, want an error")
		}
		if f.calls != 3 {
			t.Errorf("calls = %d, want 3", f.calls)
		}
	})

	t.Run("does not retry a closed gateway", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, func(context.Context) error {
			calls++
			return ErrClosed
		})
		if !errors.Is(err, ErrClosed) || calls != 1 {
			t.Errorf("Do() = %v after %d calls, want ErrClosed after 1", err, calls)
		}
	})
}
