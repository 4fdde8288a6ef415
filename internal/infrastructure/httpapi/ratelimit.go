package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = time.Minute
	limiterEntryTTL        = 10 * time.Minute
)

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sessionLimiters hands out one token bucket per open session ID.
type sessionLimiters struct {
	mu       sync.Mutex
	limiters map[string]*sessionLimiter
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

func newSessionLimiters(perSecond float64, burst int) *sessionLimiters {
	return &sessionLimiters{
		limiters: make(map[string]*sessionLimiter, 64),
		rps:      rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *sessionLimiters) get(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[id]
	if !ok {
		entry = &sessionLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[id] = entry
	}
	entry.lastSeen = l.now()
	return entry.limiter
}

func (l *sessionLimiters) forget(id string) {
	l.mu.Lock()
	delete(l.limiters, id)
	l.mu.Unlock()
}

func (l *sessionLimiters) reset() {
	l.mu.Lock()
	l.limiters = make(map[string]*sessionLimiter, 64)
	l.mu.Unlock()
}

func (l *sessionLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// evictIdle drops limiters unused for longer than ttl and returns how many went.
func (l *sessionLimiters) evictIdle(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	evicted := 0
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > ttl {
			delete(l.limiters, id)
			evicted++
		}
	}
	return evicted
}

func (l *sessionLimiters) cleanup(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle(ttl)
		}
	}
}

// rateLimitAttempts resolves the session first so unknown IDs never get a bucket.
func (s *Server) rateLimitAttempts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookup(w, r)
		if !ok {
			return
		}
		if !s.limiters.get(sess.ID()).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
