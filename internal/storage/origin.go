package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/cookiejar"
	"github.com/yndnr/webstore-go/internal/storage/indexeddb"
	"github.com/yndnr/webstore-go/internal/storage/webstorage"
)

// Config configures an Origin.
type Config struct {
	// Name identifies the origin; it names the local persistence file.
	Name string

	// URL is the scheme and host cookies are scoped to.
	URL string

	// DataDir makes the local area and IndexedDB persistent. Empty keeps
	// everything in memory.
	DataDir string

	LocalQuotaBytes   int64
	SessionQuotaBytes int64

	CookieMaxEntryBytes int

	DisableLocal     bool
	DisableSession   bool
	DisableCookies   bool
	DisableIndexedDB bool

	// Now is the clock used by the cookie jar. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// DefaultConfig returns an in-memory origin configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		URL:               "https://localhost",
		LocalQuotaBytes:   webstorage.DefaultQuotaBytes,
		SessionQuotaBytes: webstorage.DefaultQuotaBytes,
	}
}

// SubstrateStats describes the usage of one substrate.
type SubstrateStats struct {
	Backend    domain.Backend
	Entries    int
	UsageBytes int64
	QuotaBytes int64
}

// Origin holds the substrates shared by all contexts of an application.
type Origin struct {
	cfg    Config
	logger *slog.Logger

	local   *webstorage.Area
	cookies *cookiejar.Jar
	idb     *indexeddb.Factory

	mu       sync.Mutex
	sessions map[string]*webstorage.Area
	closed   bool
}

// Open creates the origin's substrates.
func Open(cfg Config) (*Origin, error) {
	if cfg.Name == "" {
		return nil, domain.ErrConfiguration.WithDetails("origin name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("origin", cfg.Name)

	var localDir, idbDir string
	if cfg.DataDir != "" {
		localDir = filepath.Join(cfg.DataDir, "local")
		idbDir = filepath.Join(cfg.DataDir, "indexeddb")
	}

	local, err := webstorage.New(webstorage.Config{
		Name:       cfg.Name,
		QuotaBytes: cfg.LocalQuotaBytes,
		Dir:        localDir,
		Disabled:   cfg.DisableLocal,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: local area: %w", err)
	}

	cookies, err := cookiejar.New(cookiejar.Config{
		Origin:        cfg.URL,
		MaxEntryBytes: cfg.CookieMaxEntryBytes,
		Disabled:      cfg.DisableCookies,
		Now:           cfg.Now,
		Logger:        logger,
	})
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("storage: cookie jar: %w", err)
	}

	o := &Origin{
		cfg:     cfg,
		logger:  logger,
		local:   local,
		cookies: cookies,
		idb: indexeddb.NewFactory(indexeddb.Config{
			Dir:      idbDir,
			Disabled: cfg.DisableIndexedDB,
			Logger:   logger,
		}),
		sessions: make(map[string]*webstorage.Area),
	}

	logger.Info("origin opened",
		"data_dir", cfg.DataDir,
		"local_persistent", local.Persistent())

	return o, nil
}

// Name returns the origin name.
func (o *Origin) Name() string {
	return o.cfg.Name
}

// Local returns the shared local area.
func (o *Origin) Local() *webstorage.Area {
	return o.local
}

// Cookies returns the cookie jar.
func (o *Origin) Cookies() *cookiejar.Jar {
	return o.cookies
}

// IndexedDB returns the IndexedDB factory.
func (o *Origin) IndexedDB() *indexeddb.Factory {
	return o.idb
}

// Logger returns the origin logger.
func (o *Origin) Logger() *slog.Logger {
	return o.logger
}

// Session returns the private session area of contextID, creating it on
// first use.
func (o *Origin) Session(contextID string) (*webstorage.Area, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, domain.ErrUnavailableBackend.WithDetails("origin closed")
	}
	if a, ok := o.sessions[contextID]; ok {
		return a, nil
	}

	a, err := webstorage.New(webstorage.Config{
		Name:       o.cfg.Name + "/session/" + contextID,
		QuotaBytes: o.cfg.SessionQuotaBytes,
		Disabled:   o.cfg.DisableSession,
		Logger:     o.logger,
	})
	if err != nil {
		return nil, err
	}
	o.sessions[contextID] = a
	return a, nil
}

// ReleaseSession discards the session area of contextID.
func (o *Origin) ReleaseSession(contextID string) {
	o.mu.Lock()
	a, ok := o.sessions[contextID]
	delete(o.sessions, contextID)
	o.mu.Unlock()

	if ok {
		a.Close()
	}
}

// Stats reports usage of the shared substrates and the session areas.
// IndexedDB entries are not counted; its usage is the on-disk size.
func (o *Origin) Stats() []SubstrateStats {
	stats := []SubstrateStats{
		{
			Backend:    domain.BackendLocal,
			Entries:    o.local.Len(),
			UsageBytes: o.local.Usage(),
			QuotaBytes: o.local.Quota(),
		},
	}

	o.mu.Lock()
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	session := SubstrateStats{Backend: domain.BackendSession}
	for _, id := range ids {
		a := o.sessions[id]
		session.Entries += a.Len()
		session.UsageBytes += a.Usage()
		session.QuotaBytes += a.Quota()
	}
	o.mu.Unlock()
	stats = append(stats, session)

	names, _ := o.cookies.Names()
	stats = append(stats, SubstrateStats{
		Backend:    domain.BackendCookie,
		Entries:    len(names),
		UsageBytes: o.cookies.Usage(),
		QuotaBytes: int64(o.cookies.MaxEntry()) * int64(len(names)),
	})

	idb := SubstrateStats{Backend: domain.BackendIndexedDB}
	for _, db := range o.idb.Connections() {
		lsm, vlog := db.Size()
		idb.UsageBytes += lsm + vlog
	}
	stats = append(stats, idb)

	return stats
}

// Close releases every substrate.
func (o *Origin) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	sessions := o.sessions
	o.sessions = nil
	o.mu.Unlock()

	var result *multierror.Error
	for _, a := range sessions {
		if err := a.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := o.local.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("local area: %w", err))
	}
	if err := o.idb.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("indexeddb: %w", err))
	}

	o.logger.Info("origin closed")
	return result.ErrorOrNil()
}
