package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage"
	"github.com/yndnr/webstore-go/internal/storage/adapter"
	"github.com/yndnr/webstore-go/internal/storage/codec"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
	"github.com/yndnr/webstore-go/internal/storage/namespace"
	"github.com/yndnr/webstore-go/internal/storage/ttl"
	"github.com/yndnr/webstore-go/internal/telemetry/metric"
)

// Manager is the storage facade of one context.
//
// It is safe for concurrent use. Concurrent writes to the same key race:
// the last write to complete wins.
type Manager struct {
	cfg     Config
	origin  *storage.Origin
	id      string
	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry

	scope    namespace.Scope
	crypt    *crypt.Service
	ttl      *ttl.Manager
	adapters [domain.BackendCount]adapter.Adapter

	crossTabOnce sync.Once
	mu           sync.Mutex
	crossTab     *CrossTab
	closed       bool

	closeOnce sync.Once
}

// NewManager creates a context on origin.
func NewManager(origin *storage.Origin, cfg *Config, opts ...ManagerOption) (*Manager, error) {
	if origin == nil {
		return nil, domain.ErrConfiguration.WithDetails("origin is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.Fallback = append([]domain.Backend(nil), cfg.Fallback...)
	if err := c.normalize(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     c,
		origin:  origin,
		now:     time.Now,
		metrics: c.Metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = ulid.Make().String()
	}
	m.logger = c.Logger.With("component", "storage", "context_id", m.id, "namespace", c.Namespace)
	m.ttl = ttl.New(ttl.WithNow(m.now))

	scope, err := namespace.New(c.Namespace)
	if err != nil {
		return nil, err
	}
	m.scope = scope

	if c.Encryption.Enabled {
		svc, err := crypt.New(crypt.Config{
			Secret:     c.Encryption.Secret,
			Iterations: c.Encryption.Iterations,
			Algorithm:  c.Encryption.Algorithm,
		})
		if err != nil {
			return nil, err
		}
		m.crypt = svc
	}

	session, err := origin.Session(m.id)
	if err != nil {
		return nil, err
	}

	m.adapters[domain.BackendLocal.Index()] = adapter.NewLocal(origin.Local().View(m.id))
	m.adapters[domain.BackendSession.Index()] = adapter.NewSession(session.View(m.id))
	m.adapters[domain.BackendCookie.Index()] = adapter.NewCookie(origin.Cookies())
	m.adapters[domain.BackendIndexedDB.Index()] = adapter.NewIndexedDB(origin.IndexedDB(), adapter.IndexedDBConfig{
		DBName:    c.IndexedDB.DBName,
		StoreName: c.IndexedDB.StoreName,
		Version:   c.IndexedDB.Version,
		Steps:     c.IndexedDB.Steps,
	})

	m.logger.Debug("storage manager created",
		"default_storage", c.DefaultStorage.String(),
		"encryption", c.Encryption.Enabled)

	return m, nil
}

// ContextID returns the identifier of this context.
func (m *Manager) ContextID() string {
	return m.id
}

// Namespace returns the key namespace.
func (m *Manager) Namespace() string {
	return m.scope.Name()
}

// DefaultStorage returns the backend used when a call selects none.
func (m *Manager) DefaultStorage() domain.Backend {
	return m.cfg.DefaultStorage
}

// Origin returns the origin the manager was opened on.
func (m *Manager) Origin() *storage.Origin {
	return m.origin
}

// Logger returns the context logger.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Close stops cross-tab delivery and discards the session storage.
// Shared substrates stay open; they belong to the origin.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		ct := m.crossTab
		m.mu.Unlock()
		if ct != nil {
			ct.close()
		}
		m.origin.ReleaseSession(m.id)
		m.logger.Debug("storage manager closed")
	})
	return nil
}

func (m *Manager) adapter(b domain.Backend) adapter.Adapter {
	return m.adapters[b.Index()]
}

// Set stores value under key.
func (m *Manager) Set(ctx context.Context, key string, value any, opts ...Option) error {
	o, err := m.options(opts)
	if err != nil {
		return err
	}
	physical := m.scope.Physical(key)
	raw, env, err := m.encode(physical, value, o)
	if err != nil {
		return err
	}
	return m.write(ctx, o.backend, physical, raw, env, o)
}

// Get loads key into out, which must be a pointer. ok is false when the key
// is absent or expired; expired entries are deleted as a side effect.
func (m *Manager) Get(ctx context.Context, key string, out any, opts ...Option) (bool, error) {
	o, err := m.options(opts)
	if err != nil {
		return false, err
	}
	return m.read(ctx, o.backend, key, out)
}

// GetAs is the generic form of Get. It returns the zero value for absent
// keys.
func GetAs[T any](ctx context.Context, r Reader, key string, opts ...Option) (T, bool, error) {
	var v T
	ok, err := r.Get(ctx, key, &v, opts...)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// Reader is implemented by Manager and Route.
type Reader interface {
	Get(ctx context.Context, key string, out any, opts ...Option) (bool, error)
}

// Remove deletes key. Removing an absent key is not an error.
func (m *Manager) Remove(ctx context.Context, key string, opts ...Option) error {
	o, err := m.options(opts)
	if err != nil {
		return err
	}
	start := time.Now()
	err = m.adapter(o.backend).Remove(ctx, m.scope.Physical(key))
	m.metrics.ObserveOperation(o.backend, "remove", start, err)
	return err
}

// Clear deletes every key of this namespace. Keys of other namespaces
// sharing the backend are left alone.
func (m *Manager) Clear(ctx context.Context, opts ...Option) error {
	o, err := m.options(opts)
	if err != nil {
		return err
	}
	start := time.Now()
	err = m.clear(ctx, o.backend)
	m.metrics.ObserveOperation(o.backend, "clear", start, err)
	return err
}

func (m *Manager) clear(ctx context.Context, b domain.Backend) error {
	a := m.adapter(b)
	physical, err := a.Keys(ctx)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, k := range physical {
		if !m.scope.Owns(k) {
			continue
		}
		if err := a.Remove(ctx, k); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", k, err))
		}
	}
	return result.ErrorOrNil()
}

// Keys returns the user keys of this namespace, sorted. Expired entries are
// listed until a read evicts them.
func (m *Manager) Keys(ctx context.Context, opts ...Option) ([]string, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	physical, err := m.adapter(o.backend).Keys(ctx)
	m.metrics.ObserveOperation(o.backend, "keys", start, err)
	if err != nil {
		return nil, err
	}
	return m.scope.Filter(physical), nil
}

// Has reports whether key is stored. It does not check expiry.
func (m *Manager) Has(ctx context.Context, key string, opts ...Option) (bool, error) {
	o, err := m.options(opts)
	if err != nil {
		return false, err
	}
	start := time.Now()
	ok, err := m.adapter(o.backend).Has(ctx, m.scope.Physical(key))
	m.metrics.ObserveOperation(o.backend, "has", start, err)
	return ok, err
}

// TTL returns the time left before key expires. hasExpiry is false when the
// key has no expiry or is absent; Has tells the two apart. An expired key
// is evicted and reported absent.
func (m *Manager) TTL(ctx context.Context, key string, opts ...Option) (remaining time.Duration, hasExpiry bool, err error) {
	o, err := m.options(opts)
	if err != nil {
		return 0, false, err
	}
	env, ok, err := m.load(ctx, o.backend, m.scope.Physical(key))
	if err != nil || !ok {
		return 0, false, err
	}
	remaining, hasExpiry = m.ttl.Remaining(env)
	return remaining, hasExpiry, nil
}

// AvailableBackends lists the working backends in priority order.
func (m *Manager) AvailableBackends() []domain.Backend {
	var out []domain.Backend
	for _, b := range domain.Backends() {
		if m.adapter(b).IsAvailable() {
			out = append(out, b)
		}
	}
	return out
}

// IsAvailable reports whether backend b works. BackendDefault checks the
// configured default.
func (m *Manager) IsAvailable(b domain.Backend) bool {
	if b == domain.BackendDefault {
		b = m.cfg.DefaultStorage
	}
	if !b.Valid() {
		return false
	}
	return m.adapter(b).IsAvailable()
}

// Capabilities returns the static facts of backend b.
func (m *Manager) Capabilities(b domain.Backend) (domain.Capabilities, error) {
	if b == domain.BackendDefault {
		b = m.cfg.DefaultStorage
	}
	if !b.Valid() {
		return domain.Capabilities{}, domain.ErrUnknownBackend.Detailf("backend %d", b)
	}
	return m.adapter(b).Capabilities(), nil
}

// encode builds the stored form of value under physical.
func (m *Manager) encode(physical string, value any, o *callOptions) (string, *domain.Envelope, error) {
	data, err := codec.EncodeValue(value)
	if err != nil {
		return "", nil, err
	}

	env := domain.NewEnvelope(m.scope.Name(), data, m.ttl.Now())
	if o.hasTTL {
		if err := m.ttl.Stamp(env, o.ttl); err != nil {
			return "", nil, err
		}
	}

	if o.encrypt {
		sealed, err := m.crypt.Encrypt([]byte(data), []byte(physical))
		if err != nil {
			return "", nil, err
		}
		if env.Data, err = codec.EncodeSealed(sealed); err != nil {
			return "", nil, err
		}
		env.Encrypted = true
	}

	raw, err := codec.Encode(env)
	if err != nil {
		return "", nil, err
	}
	return raw, env, nil
}

func (m *Manager) write(ctx context.Context, b domain.Backend, physical, raw string, env *domain.Envelope, o *callOptions) error {
	w := adapter.WriteOptions{
		ExpiresAt: env.Expiry(),
		Path:      o.cookiePath,
		Secure:    *o.cookieSecure,
		SameSite:  o.cookieSameSite,
	}

	start := time.Now()
	err := m.adapter(b).Set(ctx, physical, raw, w)
	m.metrics.ObserveOperation(b, "set", start, err)
	if err != nil {
		m.logger.Debug("write failed", "backend", b.String(), "key", physical, "error", err)
	}
	return err
}

func (m *Manager) read(ctx context.Context, b domain.Backend, key string, out any) (bool, error) {
	physical := m.scope.Physical(key)

	start := time.Now()
	env, ok, err := m.load(ctx, b, physical)
	if err == nil && ok {
		err = m.decodeInto(env, physical, out)
	}
	m.metrics.ObserveOperation(b, "get", start, err)

	if err != nil {
		m.logger.Warn("read failed", "backend", b.String(), "key", physical, "error", err)
		return false, err
	}
	return ok, nil
}

// load fetches and decodes the envelope at physical, evicting it when
// expired.
func (m *Manager) load(ctx context.Context, b domain.Backend, physical string) (*domain.Envelope, bool, error) {
	a := m.adapter(b)

	raw, ok, err := a.Get(ctx, physical)
	if err != nil || !ok {
		return nil, false, err
	}

	env, err := codec.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	if env.Namespace != m.scope.Name() {
		return nil, false, domain.ErrSerialization.Detailf("envelope namespace %q under key %q", env.Namespace, physical)
	}

	if m.ttl.Expired(env) {
		if err := a.Remove(ctx, physical); err != nil {
			m.logger.Warn("evicting expired entry failed", "backend", b.String(), "key", physical, "error", err)
		}
		m.metrics.ObserveEviction(b)
		return nil, false, nil
	}
	return env, true, nil
}

// plaintext returns the JSON payload of env, decrypting it when needed.
func (m *Manager) plaintext(env *domain.Envelope, physical string) (string, error) {
	if !env.Encrypted {
		return env.Data, nil
	}
	if m.crypt == nil {
		m.metrics.ObserveDecryptionFailure()
		return "", domain.ErrDecryption.WithDetails("value is encrypted and no secret is configured")
	}

	sealed, err := codec.DecodeSealed(env.Data)
	if err != nil {
		return "", err
	}
	pt, err := m.crypt.Decrypt(sealed, []byte(physical))
	if err != nil {
		m.metrics.ObserveDecryptionFailure()
		return "", err
	}
	return string(pt), nil
}

func (m *Manager) decodeInto(env *domain.Envelope, physical string, out any) error {
	data, err := m.plaintext(env, physical)
	if err != nil {
		return err
	}
	return codec.DecodeValue(data, out)
}
