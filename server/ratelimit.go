package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter keeps one token bucket per user. Buckets idle for longer than
// idle are dropped on the next sweep.
type userLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(r rate.Limit, burst int, idle time.Duration) *userLimiter {
	return &userLimiter{
		visitors:  make(map[string]*visitor),
		rate:      r,
		burst:     burst,
		idle:      idle,
		lastSweep: time.Now(),
	}
}

func (l *userLimiter) get(user string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		l.sweepLocked(now)
	}

	v, ok := l.visitors[user]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[user] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *userLimiter) sweepLocked(now time.Time) {
	for user, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, user)
		}
	}
	l.lastSweep = now
}

func (l *userLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// rateLimitMiddleware runs after authentication and limits each user.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserID(r.Context())
		now := time.Now()
		res := s.limiter.get(user, now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			s.logger.Warn("rate limit exceeded", "user_id", user, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(delay.Round(time.Second)/time.Second)+1))
			writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
