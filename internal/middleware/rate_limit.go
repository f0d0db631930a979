package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/crickpick/contest-backend/internal/api/httpx"
)

type tokenBucket struct {
	tokens int
	last   time.Time
}

type limiter struct {
	mu      sync.Mutex
	rate    int
	burst   int
	buckets map[string]*tokenBucket
}

const bucketIdleTTL = time.Minute

func (l *limiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	tb, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) > 1024 {
			l.prune(now)
		}
		tb = &tokenBucket{tokens: l.burst, last: now}
		l.buckets[key] = tb
	}

	if refill := int(now.Sub(tb.last).Seconds() * float64(l.rate)); refill > 0 {
		tb.tokens += refill
		if tb.tokens > l.burst {
			tb.tokens = l.burst
		}
		tb.last = now
	}
	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}

// prune drops buckets that have been idle long enough to be full again.
// Called with the lock held.
func (l *limiter) prune(now time.Time) {
	for key, tb := range l.buckets {
		if now.Sub(tb.last) > bucketIdleTTL {
			delete(l.buckets, key)
		}
	}
}

// RateLimit applies a token-bucket limit per client: the authenticated
// account when the request carries one, otherwise the client address. One
// noisy client exhausts its own bucket, not everyone's.
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := &limiter{rate: rps, burst: rps, buckets: make(map[string]*tokenBucket)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientKey(r), time.Now()) {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id, ok := AccountID(r.Context()); ok {
		return "acct:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
