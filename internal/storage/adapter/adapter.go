// Package adapter puts the four storage substrates behind one contract.
//
// Adapters move opaque strings: they know nothing about envelopes,
// namespaces or encryption. Errors are domain errors: ErrUnavailableBackend
// when the substrate is absent or disabled and ErrQuotaExceeded when it
// rejects a write for size.
package adapter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// probeKey is written and removed once to detect a working substrate.
const probeKey = "__webstore_probe__"

// WriteOptions carry per-write attributes.
type WriteOptions struct {
	// ExpiresAt is the entry expiry; zero means none. Only the cookie
	// adapter uses it natively.
	ExpiresAt time.Time

	// Cookie attributes.
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// Adapter is the uniform backend contract.
type Adapter interface {
	Backend() domain.Backend
	Capabilities() domain.Capabilities

	// IsAvailable reports whether the backend works. The substrate is
	// probed once; later calls only check that it was not disabled since.
	IsAvailable() bool

	Set(ctx context.Context, key, raw string, w WriteOptions) error

	// Get returns ok=false with a nil error for absent keys.
	Get(ctx context.Context, key string) (raw string, ok bool, err error)

	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Has(ctx context.Context, key string) (bool, error)
}

// probe caches the result of a one-time availability check.
type probe struct {
	once sync.Once
	ok   bool
	run  func() error
}

func (p *probe) available() bool {
	p.once.Do(func() {
		p.ok = p.run() == nil
	})
	return p.ok
}
