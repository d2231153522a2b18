package service

import (
	"net/http"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// Option modifies a single call.
type Option func(*callOptions)

type callOptions struct {
	backend domain.Backend

	ttl    time.Duration
	hasTTL bool

	encrypt bool

	cookiePath     string
	cookieSecure   *bool
	cookieSameSite http.SameSite
}

// WithTTL makes the entry expire d after the write. d must be positive.
func WithTTL(d time.Duration) Option {
	return func(o *callOptions) {
		o.ttl = d
		o.hasTTL = true
	}
}

// WithEncryption encrypts the value. Encryption must be enabled in Config.
func WithEncryption() Option {
	return func(o *callOptions) {
		o.encrypt = true
	}
}

// InStorage selects the backend for the call.
func InStorage(b domain.Backend) Option {
	return func(o *callOptions) {
		o.backend = b
	}
}

// WithCookiePath overrides the cookie path.
func WithCookiePath(path string) Option {
	return func(o *callOptions) {
		o.cookiePath = path
	}
}

// WithCookieSecure overrides the cookie Secure attribute.
func WithCookieSecure(secure bool) Option {
	return func(o *callOptions) {
		o.cookieSecure = &secure
	}
}

// WithCookieSameSite overrides the cookie SameSite attribute.
func WithCookieSameSite(mode http.SameSite) Option {
	return func(o *callOptions) {
		o.cookieSameSite = mode
	}
}

func (m *Manager) options(opts []Option) (*callOptions, error) {
	o := &callOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.backend == domain.BackendDefault {
		o.backend = m.cfg.DefaultStorage
	}
	if !o.backend.Valid() {
		return nil, domain.ErrUnknownBackend.Detailf("backend %d", o.backend)
	}
	if o.hasTTL && o.ttl <= 0 {
		return nil, domain.ErrInvalidTTL.Detailf("ttl=%s", o.ttl)
	}
	if o.encrypt && m.crypt == nil {
		return nil, domain.ErrConfiguration.WithDetails("encryption is not enabled")
	}

	if o.cookiePath == "" {
		o.cookiePath = m.cfg.Cookie.Path
	}
	if o.cookieSecure == nil {
		secure := m.cfg.Cookie.Secure
		o.cookieSecure = &secure
	}
	if o.cookieSameSite == 0 {
		o.cookieSameSite = m.cfg.Cookie.SameSite
	}
	return o, nil
}
