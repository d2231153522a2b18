package service

import (
	"context"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/pkg/observe"
)

// Route is a Manager bound to one backend.
type Route struct {
	m       *Manager
	backend domain.Backend
}

// Route returns the view of backend b. BackendDefault resolves to the
// configured default.
func (m *Manager) Route(b domain.Backend) *Route {
	if b == domain.BackendDefault {
		b = m.cfg.DefaultStorage
	}
	return &Route{m: m, backend: b}
}

// Local returns the localStorage route.
func (m *Manager) Local() *Route { return m.Route(domain.BackendLocal) }

// Session returns the sessionStorage route.
func (m *Manager) Session() *Route { return m.Route(domain.BackendSession) }

// Cookie returns the cookie route.
func (m *Manager) Cookie() *Route { return m.Route(domain.BackendCookie) }

// IndexedDB returns the IndexedDB route.
func (m *Manager) IndexedDB() *Route { return m.Route(domain.BackendIndexedDB) }

// Backend returns the bound backend.
func (r *Route) Backend() domain.Backend {
	return r.backend
}

// bind appends the backend selection so it overrides any InStorage option.
func (r *Route) bind(opts []Option) []Option {
	return append(opts[:len(opts):len(opts)], InStorage(r.backend))
}

func (r *Route) Set(ctx context.Context, key string, value any, opts ...Option) error {
	return r.m.Set(ctx, key, value, r.bind(opts)...)
}

func (r *Route) Get(ctx context.Context, key string, out any, opts ...Option) (bool, error) {
	return r.m.Get(ctx, key, out, r.bind(opts)...)
}

func (r *Route) Remove(ctx context.Context, key string, opts ...Option) error {
	return r.m.Remove(ctx, key, r.bind(opts)...)
}

func (r *Route) Clear(ctx context.Context, opts ...Option) error {
	return r.m.Clear(ctx, r.bind(opts)...)
}

func (r *Route) Keys(ctx context.Context, opts ...Option) ([]string, error) {
	return r.m.Keys(ctx, r.bind(opts)...)
}

func (r *Route) Has(ctx context.Context, key string, opts ...Option) (bool, error) {
	return r.m.Has(ctx, key, r.bind(opts)...)
}

func (r *Route) TTL(ctx context.Context, key string, opts ...Option) (time.Duration, bool, error) {
	return r.m.TTL(ctx, key, r.bind(opts)...)
}

func (r *Route) IsAvailable() bool {
	return r.m.IsAvailable(r.backend)
}

// Watch subscribes to changes of key. Only the localStorage route supports
// it; the others fail with ErrWatchUnsupported.
func (r *Route) Watch(ctx context.Context, key string, fn func(Change)) (*observe.Subscription, error) {
	return r.m.Watch(ctx, key, fn, InStorage(r.backend))
}
