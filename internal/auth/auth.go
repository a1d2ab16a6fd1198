// Package auth guards the admin surface: a shared secret key checked in
// constant time, and a bounded per-IP tracker of failed attempts.
package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

var (
	// ErrUnauthorized means the key was missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTooManyAttempts means the caller is locked out for the window.
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

// AttemptTracker counts failed attempts per IP in a sliding window. It
// tracks at most a fixed number of IPs; the least recently seen is evicted
// first and idle IPs expire after one window.
type AttemptTracker struct {
	mu          sync.Mutex
	attempts    *expirable.LRU[string, []time.Time]
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewAttemptTracker creates a tracker.
func NewAttemptTracker(maxAttempts int, window time.Duration, maxIPs int) *AttemptTracker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	if maxIPs <= 0 {
		maxIPs = 1000
	}
	return &AttemptTracker{
		attempts:    expirable.NewLRU[string, []time.Time](maxIPs, nil, window),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// SetClock replaces the clock used for the sliding window.
func (t *AttemptTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Blocked reports whether ip used up its attempts in the current window.
func (t *AttemptTracker) Blocked(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.recent(ip)) >= t.maxAttempts
}

// Fail records a failed attempt for ip.
func (t *AttemptTracker) Fail(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts.Add(ip, append(t.recent(ip), t.now()))
}

// Reset forgets ip.
func (t *AttemptTracker) Reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts.Remove(ip)
}

// Len reports how many IPs are tracked.
func (t *AttemptTracker) Len() int {
	return t.attempts.Len()
}

func (t *AttemptTracker) recent(ip string) []time.Time {
	past, ok := t.attempts.Peek(ip)
	if !ok {
		return nil
	}
	cutoff := t.now().Add(-t.window)
	kept := past[:0:0]
	for _, at := range past {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

// Authenticator checks admin keys.
type Authenticator struct {
	secret  string
	tracker *AttemptTracker
}

// NewAuthenticator creates an authenticator. An empty secret disables
// admin access entirely.
func NewAuthenticator(secret string, tracker *AttemptTracker) *Authenticator {
	return &Authenticator{secret: secret, tracker: tracker}
}

// FromConfig builds an authenticator from the server config.
func FromConfig(cfg *config.Config) *Authenticator {
	tracker := NewAttemptTracker(cfg.Server.LoginAttempts, cfg.GetLoginWindow(), cfg.Server.LoginTrackedIPs)
	return NewAuthenticator(cfg.Server.AdminSecret, tracker)
}

// Authorize checks key for a caller at ip. Locked-out callers are refused
// before the key is looked at.
func (a *Authenticator) Authorize(ip, key string) error {
	if a.tracker != nil && a.tracker.Blocked(ip) {
		logging.AuthWarn("Admin access from %s refused: too many attempts", ip)
		return ErrTooManyAttempts
	}
	if a.secret == "" || key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(a.secret)) != 1 {
		if a.tracker != nil {
			a.tracker.Fail(ip)
		}
		logging.AuthWarn("Admin access from %s refused: bad key", ip)
		return ErrUnauthorized
	}
	return nil
}
