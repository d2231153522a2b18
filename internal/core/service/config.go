package service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/crypt"
	"github.com/yndnr/webstore-go/internal/storage/indexeddb"
	"github.com/yndnr/webstore-go/internal/storage/namespace"
	"github.com/yndnr/webstore-go/internal/telemetry/metric"
	"github.com/yndnr/webstore-go/pkg/crypto/adaptive"
)

// Config holds the configuration of a Manager.
type Config struct {
	// Namespace prefixes every key (default: "webstore").
	Namespace string

	// DefaultStorage is used when a call does not select a backend
	// (default: localStorage).
	DefaultStorage domain.Backend

	// Fallback is the priority order of SetWithFallback and
	// GetWithFallback (default: local, session, cookie, indexedDB).
	Fallback []domain.Backend

	Encryption EncryptionConfig
	IndexedDB  IndexedDBConfig
	Cookie     CookieConfig

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metric.Registry
}

// EncryptionConfig configures value encryption.
type EncryptionConfig struct {
	// Enabled makes WithEncryption usable. Encrypted values are always
	// decrypted on read when a secret is configured.
	Enabled bool

	Secret string

	// Iterations is the PBKDF2 iteration count (default: 100000).
	Iterations int

	// Algorithm selects the AEAD (default: auto).
	Algorithm adaptive.CipherType
}

// IndexedDBConfig names the database and object store.
type IndexedDBConfig struct {
	DBName    string
	StoreName string
	Version   int

	// Steps are schema upgrades keyed by the version they reach.
	Steps map[int]indexeddb.Upgrade
}

// CookieConfig holds the default cookie attributes.
type CookieConfig struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace:      "webstore",
		DefaultStorage: domain.BackendLocal,
		Fallback:       domain.Backends(),
		Encryption: EncryptionConfig{
			Iterations: crypt.DefaultIterations,
			Algorithm:  adaptive.CipherAuto,
		},
		IndexedDB: IndexedDBConfig{
			DBName:    "webstore",
			StoreName: "keyvalue",
			Version:   1,
		},
		Cookie: CookieConfig{
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// normalize fills zero values from the defaults and validates the result.
func (c *Config) normalize() error {
	def := DefaultConfig()

	if c.Namespace == "" {
		c.Namespace = def.Namespace
	}
	if err := namespace.Validate(c.Namespace); err != nil {
		return err
	}

	if c.DefaultStorage == domain.BackendDefault {
		c.DefaultStorage = def.DefaultStorage
	}
	if !c.DefaultStorage.Valid() {
		return domain.ErrUnknownBackend.Detailf("default storage %d", c.DefaultStorage)
	}

	if len(c.Fallback) == 0 {
		c.Fallback = def.Fallback
	}
	seen := make(map[domain.Backend]bool, len(c.Fallback))
	for _, b := range c.Fallback {
		if !b.Valid() {
			return domain.ErrUnknownBackend.Detailf("fallback entry %s", b)
		}
		if seen[b] {
			return domain.ErrConfiguration.Detailf("fallback lists %s twice", b)
		}
		seen[b] = true
	}

	if c.Encryption.Enabled {
		if c.Encryption.Iterations == 0 {
			c.Encryption.Iterations = def.Encryption.Iterations
		}
		if c.Encryption.Algorithm == "" {
			c.Encryption.Algorithm = def.Encryption.Algorithm
		}
	}

	if c.IndexedDB.DBName == "" {
		c.IndexedDB.DBName = def.IndexedDB.DBName
	}
	if c.IndexedDB.StoreName == "" {
		c.IndexedDB.StoreName = def.IndexedDB.StoreName
	}
	if c.IndexedDB.Version == 0 {
		c.IndexedDB.Version = def.IndexedDB.Version
	}
	if c.IndexedDB.Version < 0 {
		return domain.ErrConfiguration.Detailf("indexeddb version %d", c.IndexedDB.Version)
	}

	if c.Cookie.Path == "" {
		c.Cookie.Path = def.Cookie.Path
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return domain.ErrConfiguration.WithDetails("SameSite=None cookies must be secure")
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// ManagerOption customizes a Manager beyond its Config.
type ManagerOption func(*Manager)

// WithClock replaces the wall clock used for expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithContextID sets the context identifier instead of a fresh ULID.
func WithContextID(id string) ManagerOption {
	return func(m *Manager) {
		m.id = id
	}
}
