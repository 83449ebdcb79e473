package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateRequiresConsecutiveFailures(t *testing.T) {
	boom := errors.New("refused")
	fail := true
	g := NewGate(func(context.Context) error {
		if fail {
			return boom
		}
		return nil
	})
	g.debounce = 0

	ctx := context.Background()
	if !g.Check(ctx) {
		t.Fatal("down after a single failure")
	}
	if g.Check(ctx) {
		t.Fatal("still up after two consecutive failures")
	}

	fail = false
	if !g.Check(ctx) {
		t.Fatal("not up after a successful probe")
	}

	fail = true
	if !g.Check(ctx) {
		t.Fatal("failure streak not reset by success")
	}
}

func TestGateDebouncesProbes(t *testing.T) {
	calls := 0
	g := NewGate(func(context.Context) error {
		calls++
		return nil
	})

	ctx := context.Background()
	g.Check(ctx)
	g.Check(ctx)
	g.Check(ctx)
	if calls != 1 {
		t.Fatalf("probe ran %d times inside debounce window, want 1", calls)
	}
}

func TestGateTimeoutIsInconclusive(t *testing.T) {
	g := NewGate(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.debounce = 0
	g.timeout = 10 * time.Millisecond

	ctx := context.Background()
	if !g.Check(ctx) {
		t.Fatal("timeout flipped a healthy gate down")
	}
	if !g.Check(ctx) {
		t.Fatal("repeated timeouts flipped a healthy gate down")
	}
	if !g.Healthy() {
		t.Fatal("Healthy() disagrees with Check()")
	}
}
