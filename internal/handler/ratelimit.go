package handler

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pavelanni/careerprep/internal/apperr"
)

// idleLimiterTTL is how long an unused per-user limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter keeps one token bucket per user.
type userLimiter struct {
	every rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[int64]*visitor
	lastPrune time.Time
}

// newUserLimiter allows perMinute requests per minute with the given burst.
// A non-positive perMinute returns nil, which allows everything.
func newUserLimiter(perMinute float64, burst int) *userLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{
		every:    rate.Limit(perMinute / 60),
		burst:    burst,
		visitors: make(map[int64]*visitor),
	}
}

func (l *userLimiter) allow(userID int64, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	if now.Sub(l.lastPrune) > idleLimiterTTL {
		for id, v := range l.visitors {
			if now.Sub(v.lastSeen) > idleLimiterTTL {
				delete(l.visitors, id)
			}
		}
		l.lastPrune = now
	}
	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// rateLimit throttles completion-backed routes per authenticated user.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.allow(userID(r), time.Now()) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, apperr.New(apperr.KindRateLimited, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
