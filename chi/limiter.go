package chi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// ClientLimiter provides per-client rate limiting using token buckets.
// Each client key gets its own limiter so one busy client cannot starve
// the others. Idle limiters are dropped periodically.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	rps       float64
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a ClientLimiter allowing rps requests per second
// per client with the given burst. A burst below 1 is treated as 1.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients:   make(map[string]*clientEntry),
		rps:       rps,
		burst:     max(burst, 1),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether the client identified by key may make a request now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleLimiterTTL {
		for k, e := range l.clients {
			if now.Sub(e.lastSeen) > idleLimiterTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
