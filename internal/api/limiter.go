package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// actorLimiter rate limits mutations per actor. Idle actors are evicted so
// the map does not grow with every id ever seen.
type actorLimiter struct {
	mu      sync.Mutex
	actors  map[string]*actorBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	nowFunc func() time.Time
}

type actorBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newActorLimiter returns nil when perSecond is 0, which allows everything.
func newActorLimiter(perSecond float64, burst int) *actorLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &actorLimiter{
		actors:  make(map[string]*actorBucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		nowFunc: time.Now,
	}
}

// Allow reports whether actor may perform one more mutation now.
func (l *actorLimiter) Allow(actor string) bool {
	if l == nil {
		return true
	}
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.actors[actor]
	if !ok {
		l.evictIdle(now)
		b = &actorBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.actors[actor] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdle drops buckets unused for idleTTL. Must be called with l.mu held.
func (l *actorLimiter) evictIdle(now time.Time) {
	for actor, b := range l.actors {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.actors, actor)
		}
	}
}

// RetryAfter is the wait before actor's next mutation would be allowed.
func (l *actorLimiter) RetryAfter(actor string) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	b, ok := l.actors[actor]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	now := l.nowFunc()
	r := b.limiter.ReserveN(now, 1)
	defer r.CancelAt(now)
	return r.DelayFrom(now)
}
