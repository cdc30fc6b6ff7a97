package retry

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-minute request budget for each
// (subject, operation) pair using a rolling one-minute window of request
// timestamps. Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time // overridable for tests
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether a new request for (subjectID, operation) fits within
// limitPerMinute. When allowed, the request is counted immediately. When
// denied, the returned duration is how long until the oldest counted request
// rolls out of the window.
func (l *RateLimiter) Allow(subjectID, operation string, limitPerMinute int) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := subjectID + "|" + operation
	now := l.now()
	cutoff := now.Add(-time.Minute)

	kept := l.windows[key][:0]
	for _, t := range l.windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.windows[key] = kept

	if len(kept) >= limitPerMinute {
		cooldown := kept[0].Add(time.Minute).Sub(now)
		if cooldown < 0 {
			cooldown = 0
		}
		return false, cooldown
	}

	l.windows[key] = append(l.windows[key], now)
	return true, 0
}
