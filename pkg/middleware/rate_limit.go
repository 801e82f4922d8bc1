package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"turfbook/pkg/auth"
	"turfbook/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	cleanupThreshold = 500
	maxIdleAge       = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CallerRateLimiter hands out one token bucket per caller. Authenticated
// callers are keyed by user id, anonymous ones by remote IP.
type CallerRateLimiter struct {
	mu      sync.Mutex
	callers map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	log     *logger.Logger
}

// NewCallerRateLimiter allows requests per window with a burst of the same size.
func NewCallerRateLimiter(requests int, window time.Duration, log *logger.Logger) *CallerRateLimiter {
	return &CallerRateLimiter{
		callers: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		log:     log,
	}
}

func (l *CallerRateLimiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *CallerRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.callers) > cleanupThreshold {
		cutoff := time.Now().Add(-maxIdleAge)
		for k, e := range l.callers {
			if e.lastSeen.Before(cutoff) {
				delete(l.callers, k)
			}
		}
	}

	e, ok := l.callers[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func RateLimit(limiter *CallerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)
			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r),
					"caller", key,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusTooManyRequests, `{"error":"Rate limit exceeded","code":"RATE_LIMITED"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		return "user:" + actor.UserID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
