// Package ttl interprets envelope expiry metadata.
//
// Expiry is evaluated lazily: nothing runs in the background. Readers call
// Expired and evict the entry themselves.
package ttl

import (
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// Manager evaluates expiry against a clock.
type Manager struct {
	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow sets the clock. Tests use it to move time forward.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager using the wall clock unless overridden.
func New(opts ...Option) *Manager {
	m := &Manager{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the current time of the manager's clock.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Stamp sets env to expire ttl from now. A ttl of zero or less is rejected.
func (m *Manager) Stamp(env *domain.Envelope, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.ErrInvalidTTL.Detailf("ttl=%s", ttl)
	}
	exp := m.now().Add(ttl).UnixMilli()
	// Sub-millisecond TTLs would collide with the creation stamp.
	if exp <= env.CreatedAt {
		exp = env.CreatedAt + 1
	}
	env.ExpiresAt = exp
	return nil
}

// Expired reports whether env has reached its expiry.
func (m *Manager) Expired(env *domain.Envelope) bool {
	return env.IsExpired(m.now())
}

// Remaining returns the time left before env expires. ok is false when env
// has no expiry. An expired entry reports zero.
func (m *Manager) Remaining(env *domain.Envelope) (time.Duration, bool) {
	if !env.HasExpiry() {
		return 0, false
	}
	left := time.UnixMilli(env.ExpiresAt).Sub(m.now())
	if left < 0 {
		left = 0
	}
	return left, true
}
