package adapter

import (
	"context"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/webstorage"
)

// AreaAdapter serves localStorage and sessionStorage from a webstorage View.
type AreaAdapter struct {
	backend domain.Backend
	view    *webstorage.View
	probe   probe
}

// NewLocal returns the localStorage adapter for a view of the shared area.
func NewLocal(view *webstorage.View) *AreaAdapter {
	return newAreaAdapter(domain.BackendLocal, view)
}

// NewSession returns the sessionStorage adapter for a view of a private
// area.
func NewSession(view *webstorage.View) *AreaAdapter {
	return newAreaAdapter(domain.BackendSession, view)
}

func newAreaAdapter(b domain.Backend, view *webstorage.View) *AreaAdapter {
	a := &AreaAdapter{backend: b, view: view}
	a.probe.run = func() error {
		if err := view.Set(probeKey, probeKey); err != nil {
			return err
		}
		return view.Remove(probeKey)
	}
	return a
}

// View returns the underlying view.
func (a *AreaAdapter) View() *webstorage.View {
	return a.view
}

func (a *AreaAdapter) Backend() domain.Backend {
	return a.backend
}

func (a *AreaAdapter) Capabilities() domain.Capabilities {
	local := a.backend == domain.BackendLocal
	return domain.Capabilities{
		MaxBytes:   a.view.Area().Quota(),
		Notifies:   local,
		Persistent: local,
		Shared:     local,
	}
}

func (a *AreaAdapter) IsAvailable() bool {
	return a.view.Area().Enabled() && a.probe.available()
}

func (a *AreaAdapter) Set(ctx context.Context, key, raw string, _ WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.view.Set(key, raw)
}

func (a *AreaAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return a.view.Get(key)
}

func (a *AreaAdapter) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.view.Remove(key)
}

func (a *AreaAdapter) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.view.Clear()
}

func (a *AreaAdapter) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.view.Keys()
}

func (a *AreaAdapter) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := a.Get(ctx, key)
	return ok, err
}
