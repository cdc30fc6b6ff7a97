package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"pitchperfect/fault"
)

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	r := New(fastConfig())
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if r.Attempts("op") != 0 {
		t.Error("counter should be cleared on success")
	}
}

func TestDoRetriesUntilBudgetExhausted(t *testing.T) {
	r := New(fastConfig())
	calls := 0
	failure := fault.New(fault.ServiceUnavailable, "transcribe")
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Do = %v, want underlying failure", err)
	}
	// maxRetries + 1 total invocations
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if r.Attempts("op") != 0 {
		t.Error("counter should be cleared after exhaustion")
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	r := New(fastConfig())
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return fault.New(fault.AuthenticationError, "transcribe")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRecoversMidway(t *testing.T) {
	r := New(fastConfig())
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return fault.New(fault.NetworkError, "transcribe")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoUnclassifiedErrorIsRetried(t *testing.T) {
	// Unknown errors are conservatively retryable.
	r := New(fastConfig())
	calls := 0
	r.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("mystery")
	})
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoContextCancelDuringBackoff(t *testing.T) {
	r := New(Config{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "op", func() error {
			return fault.New(fault.Timeout, "transcribe")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDelayBounds(t *testing.T) {
	r := New(DefaultConfig())
	for attempt := 0; attempt < 10; attempt++ {
		d := r.delayFor(attempt)
		if d > r.cfg.MaxDelay+maxJitter {
			t.Errorf("attempt %d: delay %v exceeds max+jitter", attempt, d)
		}
		if d < r.cfg.BaseDelay {
			t.Errorf("attempt %d: delay %v below base", attempt, d)
		}
	}
}

func TestSeparateOperationCounters(t *testing.T) {
	r := New(fastConfig())
	r.bump("a")
	r.bump("a")
	r.bump("b")
	if r.Attempts("a") != 2 || r.Attempts("b") != 1 {
		t.Errorf("counters = %d/%d, want 2/1", r.Attempts("a"), r.Attempts("b"))
	}
	r.clear("a")
	if r.Attempts("a") != 0 {
		t.Error("clear did not reset counter")
	}
}
