package indexeddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

var (
	ErrNoUpgradePath    = errors.New("indexeddb: no upgrade path")
	ErrVersionDowngrade = errors.New("indexeddb: requested version is lower than stored version")
	ErrStoreNotFound    = errors.New("indexeddb: object store not found")
	ErrClosed           = errors.New("indexeddb: database closed")
)

// Config configures a Factory.
type Config struct {
	// Dir holds one Badger directory per database. Empty keeps every
	// database in memory.
	Dir string

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is the value log GC period for on-disk databases.
	// Zero means 10 minutes.
	GCInterval time.Duration

	Disabled bool

	Logger *slog.Logger
}

// Upgrade migrates a database from version tx.OldVersion() to tx.NewVersion().
type Upgrade func(tx *VersionChange) error

// Schema describes the requested shape of a database.
type Schema struct {
	Version int

	// Stores are created whenever they are missing.
	Stores []string

	// Steps maps a target version to the upgrade that reaches it from the
	// previous version.
	Steps map[int]Upgrade
}

// Factory opens and caches database connections.
type Factory struct {
	cfg    Config
	logger *slog.Logger

	enabled atomic.Bool

	mu     sync.Mutex
	conns  map[string]*DB
	closed bool
}

// NewFactory creates a Factory. No database is opened until Open.
func NewFactory(cfg Config) *Factory {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval == 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	f := &Factory{
		cfg:    cfg,
		logger: logger.With("component", "indexeddb"),
		conns:  make(map[string]*DB),
	}
	f.enabled.Store(!cfg.Disabled)
	return f
}

// InMemory reports whether databases live only in memory.
func (f *Factory) InMemory() bool {
	return f.cfg.Dir == ""
}

// Enabled reports whether the factory accepts operations.
func (f *Factory) Enabled() bool {
	return f.enabled.Load()
}

// SetEnabled switches the factory between available and unavailable.
func (f *Factory) SetEnabled(enabled bool) {
	f.enabled.Store(enabled)
}

func (f *Factory) checkEnabled() error {
	if !f.enabled.Load() {
		return domain.ErrUnavailableBackend.WithDetails("indexeddb is disabled")
	}
	return nil
}

// Open returns the connection for name, negotiating schema first. Errors
// are UnavailableBackend domain errors; version failures wrap
// ErrNoUpgradePath or ErrVersionDowngrade.
func (f *Factory) Open(ctx context.Context, name string, schema Schema) (*DB, error) {
	if err := f.checkEnabled(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, domain.ErrConfiguration.WithDetails("database name is required")
	}
	if schema.Version < 1 {
		return nil, domain.ErrConfiguration.Detailf("database version must be >= 1, got %d", schema.Version)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, domain.ErrUnavailableBackend.WithCause(ErrClosed)
	}

	db, ok := f.conns[name]
	if !ok {
		bdb, err := f.openBadger(name)
		if err != nil {
			return nil, domain.ErrUnavailableBackend.Detailf("open database %s", name).WithCause(err)
		}
		db = newDB(f, name, bdb)
	}

	if err := db.negotiate(schema); err != nil {
		if !ok {
			db.close()
		}
		return nil, domain.ErrUnavailableBackend.Detailf("database %s", name).WithCause(err)
	}

	if !ok {
		f.conns[name] = db
		if !f.InMemory() {
			db.startGC(f.cfg.GCInterval)
		}
		f.logger.Info("database opened",
			"name", name,
			"version", db.Version(),
			"in_memory", f.InMemory())
	}
	return db, nil
}

// Databases returns the names of open connections.
func (f *Factory) Databases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.conns))
	for name := range f.conns {
		names = append(names, name)
	}
	return names
}

// Connections returns the open connections.
func (f *Factory) Connections() []*DB {
	f.mu.Lock()
	defer f.mu.Unlock()
	dbs := make([]*DB, 0, len(f.conns))
	for _, db := range f.conns {
		dbs = append(dbs, db)
	}
	return dbs
}

// Close closes every connection.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	var firstErr error
	for name, db := range f.conns {
		if err := db.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
	}
	f.conns = nil
	return firstErr
}

func (f *Factory) openBadger(name string) (*badger.DB, error) {
	var opts badger.Options
	if f.InMemory() {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(f.cfg.Dir, name+".idb"))
		opts.ValueLogFileSize = 64 << 20
		opts.SyncWrites = f.cfg.SyncWrites
	}
	opts.MemTableSize = 16 << 20
	opts.NumMemtables = 2
	opts.BlockCacheSize = 16 << 20
	opts.Logger = &badgerLogger{logger: f.logger.With("database", name)}

	return badger.Open(opts)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface. Badger's
// info output is routine, so it is logged at debug level.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
