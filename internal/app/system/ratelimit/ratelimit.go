// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Limiter allows up to limit hits per key in a fixed window that starts at
// the key's first hit. Expired windows are evicted by the cache's janitor.
// It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	hits  *gocache.Cache
	limit int
}

// New creates a limiter of limit hits per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		hits:  gocache.New(window, 2*window),
		limit: limit,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.hits.Get(key)
	if !ok {
		l.hits.SetDefault(key, 1)
		return true
	}
	if v.(int) >= l.limit {
		return false
	}
	// IncrementInt keeps the window's original expiry.
	_, _ = l.hits.IncrementInt(key, 1)
	return true
}

// Reset forgets key's window.
func (l *Limiter) Reset(key string) {
	l.hits.Delete(key)
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SignInLimiter throttles sign-in attempts per client IP and per email, so
// neither one noisy client nor a spread of clients can hammer one account.
type SignInLimiter struct {
	byIP    *Limiter
	byEmail *Limiter
}

// NewSignInLimiter uses 10 attempts per IP per minute and 5 per email per
// 5 minutes.
func NewSignInLimiter() *SignInLimiter {
	return &SignInLimiter{
		byIP:    New(10, time.Minute),
		byEmail: New(5, 5*time.Minute),
	}
}

// Check records an attempt and returns ok=false with a user-facing reason
// once a limit is hit.
func (s *SignInLimiter) Check(r *http.Request, email string) (bool, string) {
	if !s.byIP.Allow(ClientIP(r)) {
		return false, "too many sign-in attempts; wait a minute and try again"
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !s.byEmail.Allow(key) {
			return false, "too many sign-in attempts for this account; wait a few minutes"
		}
	}
	return true, ""
}

// ResetEmail clears the per-email window after a successful sign-in.
func (s *SignInLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		s.byEmail.Reset(key)
	}
}
