// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counter counts hits per key over a fixed window.
// Memory and Redis implement it.
type Counter interface {
	// Allow records a hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the count for key.
	Reset(ctx context.Context, key string) error
}

// Limiter provides in-process rate limiting using a fixed window per key.
// It is safe for concurrent use. Use Redis when several instances must
// share counts.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

var _ Counter = (*Limiter)(nil)

// New creates a new rate limiter.
// limit: maximum requests allowed per duration
// duration: the time window for counting requests
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow checks if a request from the given key should be allowed.
func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]

	// If no window exists or window expired, create new one
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true, nil
	}

	// Window still active - check limit
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || l.now().After(w.expiresAt) {
		return l.limit
	}
	if remaining := l.limit - w.count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// SetClock overrides the time source. For tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Stop ends the background cleanup.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanupLoop periodically removes expired entries to prevent memory leaks.
func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list, first is client)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (strip port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter provides specialized rate limiting for login attempts.
// It tracks both IP-based and email-based limits to prevent:
//   - Distributed attacks from multiple IPs
//   - Targeted attacks on specific accounts
//
// A counter backend error fails open and is logged.
type LoginLimiter struct {
	ip    Counter
	email Counter
	log   *zap.Logger
}

// NewLoginLimiter combines an IP counter and an email counter.
func NewLoginLimiter(ip, email Counter, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{ip: ip, email: email, log: logger}
}

// NewMemoryLoginLimiter creates an in-process limiter.
// Defaults: ipLimit attempts per IP per minute, 5 attempts per email per 5 minutes.
func NewMemoryLoginLimiter(ipLimit int, logger *zap.Logger) *LoginLimiter {
	if ipLimit <= 0 {
		ipLimit = 10
	}
	return NewLoginLimiter(New(ipLimit, time.Minute), New(5, 5*time.Minute), logger)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Check verifies if a login attempt should be allowed.
// Returns (allowed, reason) where reason explains why it was blocked.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	ctx := r.Context()
	ip := ClientIP(r)

	ok, err := ll.ip.Allow(ctx, "ip:"+ip)
	if err != nil {
		ll.log.Warn("rate limit check failed", zap.String("scope", "ip"), zap.Error(err))
	} else if !ok {
		return false, "Too many attempts. Please wait a minute before trying again."
	}

	if key := emailKey(email); key != "" {
		ok, err := ll.email.Allow(ctx, "email:"+key)
		if err != nil {
			ll.log.Warn("rate limit check failed", zap.String("scope", "email"), zap.Error(err))
		} else if !ok {
			return false, "Too many attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the rate limit for a specific email after successful login.
func (ll *LoginLimiter) ResetEmail(ctx context.Context, email string) {
	if key := emailKey(email); key != "" {
		if err := ll.email.Reset(ctx, "email:"+key); err != nil {
			ll.log.Warn("rate limit reset failed", zap.Error(err))
		}
	}
}
