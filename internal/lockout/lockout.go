// Package lockout throttles repeated sign-in failures per principal. After a
// configured number of failures the principal is locked until the cooloff
// elapses; a successful sign-in clears the counter immediately.
package lockout

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"accountsplus.org/internal/obs"
)

type bucket struct {
	limiter *rate.Limiter
	last    time.Time
}

// Guard tracks sign-in failures keyed by a caller-chosen string, normally the
// lowercased email. Each key gets a token bucket holding limit tokens that
// refills one token per cooloff; a failure spends a token and the key is
// locked while the bucket is empty.
type Guard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	cooloff time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewGuard(limit int, cooloff time.Duration) *Guard {
	if limit <= 0 {
		limit = 3
	}
	if cooloff <= 0 {
		cooloff = 15 * time.Minute
	}
	g := &Guard{
		buckets: make(map[string]*bucket),
		limit:   limit,
		cooloff: cooloff,
		done:    make(chan struct{}),
	}
	go g.janitor()
	return g
}

// Failure records one failed attempt and reports whether the key is now
// locked.
func (g *Guard) Failure(key string) bool {
	g.mu.Lock()
	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(g.cooloff), g.limit)}
		g.buckets[key] = b
	}
	b.last = time.Now()
	g.mu.Unlock()

	b.limiter.Allow()
	if b.limiter.Tokens() >= 1 {
		return false
	}
	obs.SignInLockout()
	return true
}

// Locked reports whether the key is currently locked, without recording an
// attempt.
func (g *Guard) Locked(key string) bool {
	g.mu.Lock()
	b, ok := g.buckets[key]
	g.mu.Unlock()
	if !ok {
		return false
	}
	return b.limiter.Tokens() < 1
}

// Reset clears the failure history for key. Called on successful sign-in.
func (g *Guard) Reset(key string) {
	g.mu.Lock()
	delete(g.buckets, key)
	g.mu.Unlock()
}

// Close stops the janitor goroutine.
func (g *Guard) Close() {
	g.once.Do(func() { close(g.done) })
}

// janitor drops buckets idle long enough to have fully refilled.
func (g *Guard) janitor() {
	ticker := time.NewTicker(g.cooloff)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			stale := time.Now().Add(-time.Duration(g.limit) * g.cooloff)
			g.mu.Lock()
			for key, b := range g.buckets {
				if b.last.Before(stale) {
					delete(g.buckets, key)
				}
			}
			g.mu.Unlock()
		}
	}
}
