package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// PerKey hands out one token bucket per key (client IP). Idle keys fall out
// of the cache after ttl, and the cache never holds more than size keys.
type PerKey struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors *expirable.LRU[string, *rate.Limiter]
}

func NewPerKey(limit, burst, size int, ttl time.Duration) *PerKey {
	return &PerKey{
		limit:    rate.Limit(limit),
		burst:    burst,
		visitors: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	l, ok := p.visitors.Get(key)
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
	}
	// re-adding refreshes the idle ttl
	p.visitors.Add(key, l)
	p.mu.Unlock()
	return l.Allow()
}

func (p *PerKey) Len() int {
	return p.visitors.Len()
}
