package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"court-reservation-engine/internal/core/ports"

	"golang.org/x/time/rate"
)

// RateLimiter implements ports.RateLimiter with one token bucket per key,
// refilled at limit tokens per window. It only limits the local process.
type RateLimiter struct {
	limiters sync.Map
	now      func() time.Time
}

// NewRateLimiter creates an empty local rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

func (l *RateLimiter) limiter(key string, limit int64, window time.Duration) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	every := window / time.Duration(limit)
	lim := rate.NewLimiter(rate.Every(every), int(limit))
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

// Allow takes one token for key.
func (l *RateLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	now := l.now()
	lim := l.limiter(key, limit, window)
	allowed := lim.AllowN(now, 1)

	tokens := lim.TokensAt(now)
	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	// Time until the next whole token is back.
	wait := time.Duration(0)
	if tokens < 1 {
		wait = time.Duration((1 - tokens) * float64(window/time.Duration(limit)))
	}
	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(wait).Unix() + 1,
	}, nil
}
