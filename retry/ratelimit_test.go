package retry

import (
	"testing"
	"time"
)

func limiterAt(start time.Time) (*RateLimiter, *time.Time) {
	clock := start
	l := NewRateLimiter()
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := limiterAt(time.Unix(1000, 0))
	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("user", "feedback", 5)
		if !ok {
			t.Fatalf("request %d denied, want allowed", i)
		}
	}
	ok, cooldown := l.Allow("user", "feedback", 5)
	if ok {
		t.Fatal("6th request allowed, want denied")
	}
	if cooldown <= 0 || cooldown > time.Minute {
		t.Errorf("cooldown = %v, want (0, 1m]", cooldown)
	}
}

func TestWindowRollsOver(t *testing.T) {
	l, clock := limiterAt(time.Unix(1000, 0))
	for i := 0; i < 3; i++ {
		l.Allow("user", "feedback", 3)
	}
	if ok, _ := l.Allow("user", "feedback", 3); ok {
		t.Fatal("expected denial at limit")
	}

	*clock = clock.Add(61 * time.Second)
	if ok, _ := l.Allow("user", "feedback", 3); !ok {
		t.Fatal("expected allowance after window rolled over")
	}
}

func TestPartialRollover(t *testing.T) {
	l, clock := limiterAt(time.Unix(1000, 0))
	l.Allow("user", "feedback", 2)
	*clock = clock.Add(30 * time.Second)
	l.Allow("user", "feedback", 2)

	// First request is 30s old, second is fresh: still at limit.
	if ok, _ := l.Allow("user", "feedback", 2); ok {
		t.Fatal("expected denial")
	}

	// 31s later the first request has aged out.
	*clock = clock.Add(31 * time.Second)
	if ok, _ := l.Allow("user", "feedback", 2); !ok {
		t.Fatal("expected allowance after oldest request aged out")
	}
}

func TestSubjectsIndependent(t *testing.T) {
	l, _ := limiterAt(time.Unix(1000, 0))
	l.Allow("alice", "feedback", 1)
	if ok, _ := l.Allow("alice", "feedback", 1); ok {
		t.Fatal("alice should be at limit")
	}
	if ok, _ := l.Allow("bob", "feedback", 1); !ok {
		t.Fatal("bob should have a separate budget")
	}
	if ok, _ := l.Allow("alice", "transcribe", 1); !ok {
		t.Fatal("operations should have separate budgets")
	}
}

func TestCooldownShrinksOverTime(t *testing.T) {
	l, clock := limiterAt(time.Unix(1000, 0))
	l.Allow("user", "feedback", 1)
	_, c1 := l.Allow("user", "feedback", 1)
	*clock = clock.Add(20 * time.Second)
	_, c2 := l.Allow("user", "feedback", 1)
	if c2 >= c1 {
		t.Errorf("cooldown did not shrink: %v then %v", c1, c2)
	}
}
