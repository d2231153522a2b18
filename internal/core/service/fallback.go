package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// SetWithFallback writes value to the first backend of the fallback order
// that accepts it and returns that backend. When every backend fails, the
// error wraps ErrUnavailableBackend and carries each backend's failure.
//
// An InStorage option is ignored; the fallback order decides.
func (m *Manager) SetWithFallback(ctx context.Context, key string, value any, opts ...Option) (domain.Backend, error) {
	o, err := m.options(opts)
	if err != nil {
		return domain.BackendDefault, err
	}
	physical := m.scope.Physical(key)
	raw, env, err := m.encode(physical, value, o)
	if err != nil {
		return domain.BackendDefault, err
	}

	var result *multierror.Error
	for _, b := range m.cfg.Fallback {
		if err := ctx.Err(); err != nil {
			return domain.BackendDefault, err
		}

		if !m.adapter(b).IsAvailable() {
			err := domain.ErrUnavailableBackend.Detailf("%s", b)
			m.metrics.ObserveFallback(b, err)
			result = multierror.Append(result, err)
			continue
		}

		err := m.write(ctx, b, physical, raw, env, o)
		m.metrics.ObserveFallback(b, err)
		if err == nil {
			if result != nil {
				m.logger.Info("fallback write succeeded",
					"key", key, "backend", b.String(), "skipped", len(result.Errors))
			}
			return b, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.BackendDefault, err
		}
		result = multierror.Append(result, fmt.Errorf("%s: %w", b, err))
	}

	m.logger.Warn("fallback write failed on every backend", "key", key, "error", result)
	return domain.BackendDefault, domain.ErrUnavailableBackend.
		Detailf("no backend accepted %q", key).
		WithCause(result.ErrorOrNil())
}

// GetWithFallback reads key from the first backend of the fallback order
// that holds it. Backends that fail to answer Has are skipped; an entry
// that turns out expired is evicted and the search continues.
func (m *Manager) GetWithFallback(ctx context.Context, key string, out any) (domain.Backend, bool, error) {
	for _, b := range m.cfg.Fallback {
		if err := ctx.Err(); err != nil {
			return domain.BackendDefault, false, err
		}

		a := m.adapter(b)
		if !a.IsAvailable() {
			continue
		}
		has, err := a.Has(ctx, m.scope.Physical(key))
		if err != nil {
			m.logger.Debug("fallback probe failed", "key", key, "backend", b.String(), "error", err)
			continue
		}
		if !has {
			continue
		}

		ok, err := m.read(ctx, b, key, out)
		if err != nil {
			return b, false, err
		}
		if ok {
			return b, true, nil
		}
	}
	return domain.BackendDefault, false, nil
}
