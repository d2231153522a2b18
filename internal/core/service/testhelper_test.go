package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/webstore-go/internal/storage"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newOrigin(t *testing.T, mutate func(*storage.Config)) *storage.Origin {
	t.Helper()
	cfg := storage.DefaultConfig("test")
	cfg.Logger = discard
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func testConfig(ns string) *Config {
	cfg := DefaultConfig()
	cfg.Namespace = ns
	cfg.Logger = discard
	return cfg
}

func withSecret(cfg *Config, secret string) *Config {
	cfg.Encryption = EncryptionConfig{
		Enabled:    true,
		Secret:     secret,
		Iterations: crypt.MinIterations,
	}
	return cfg
}

func newManager(t *testing.T, o *storage.Origin, cfg *Config, opts ...ManagerOption) *Manager {
	t.Helper()
	m, err := NewManager(o, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// rawLocal reads a physical key of the shared local area.
func rawLocal(t *testing.T, o *storage.Origin, physical string) string {
	t.Helper()
	raw, ok, err := o.Local().View("inspector").Get(physical)
	require.NoError(t, err)
	require.True(t, ok, "physical key %q missing", physical)
	return raw
}

// recorder collects pushed changes.
type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

func (r *recorder[T]) last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		var zero T
		return zero, false
	}
	return r.got[len(r.got)-1], true
}
