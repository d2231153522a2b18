package adapter

import (
	"context"
	"sync"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/indexeddb"
)

// IndexedDBConfig names the database and store the adapter uses.
type IndexedDBConfig struct {
	DBName    string
	StoreName string
	Version   int

	// Steps are the registered schema upgrades.
	Steps map[int]indexeddb.Upgrade
}

// IndexedDBAdapter stores entries in one object store. The database is
// opened on first use.
type IndexedDBAdapter struct {
	factory *indexeddb.Factory
	cfg     IndexedDBConfig
	probe   probe

	mu    sync.Mutex
	store *indexeddb.Store
}

// NewIndexedDB returns the IndexedDB adapter.
func NewIndexedDB(factory *indexeddb.Factory, cfg IndexedDBConfig) *IndexedDBAdapter {
	a := &IndexedDBAdapter{factory: factory, cfg: cfg}
	a.probe.run = func() error {
		ctx := context.Background()
		s, err := a.open(ctx)
		if err != nil {
			return err
		}
		if err := s.Put(ctx, probeKey, "1"); err != nil {
			return err
		}
		return s.Delete(ctx, probeKey)
	}
	return a
}

func (a *IndexedDBAdapter) open(ctx context.Context) (*indexeddb.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}

	db, err := a.factory.Open(ctx, a.cfg.DBName, indexeddb.Schema{
		Version: a.cfg.Version,
		Stores:  []string{a.cfg.StoreName},
		Steps:   a.cfg.Steps,
	})
	if err != nil {
		return nil, err
	}
	s, err := db.Store(a.cfg.StoreName)
	if err != nil {
		return nil, domain.ErrUnavailableBackend.WithCause(err)
	}
	a.store = s
	return s, nil
}

func (a *IndexedDBAdapter) Backend() domain.Backend {
	return domain.BackendIndexedDB
}

func (a *IndexedDBAdapter) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		Async:      true,
		Persistent: true,
		Shared:     true,
	}
}

func (a *IndexedDBAdapter) IsAvailable() bool {
	return a.factory.Enabled() && a.probe.available()
}

func (a *IndexedDBAdapter) Set(ctx context.Context, key, raw string, _ WriteOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, raw)
}

func (a *IndexedDBAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	s, err := a.open(ctx)
	if err != nil {
		return "", false, err
	}
	return s.Get(ctx, key)
}

func (a *IndexedDBAdapter) Remove(ctx context.Context, key string) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

func (a *IndexedDBAdapter) Clear(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	return s.Clear(ctx)
}

func (a *IndexedDBAdapter) Keys(ctx context.Context) ([]string, error) {
	s, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	return s.Keys(ctx)
}

func (a *IndexedDBAdapter) Has(ctx context.Context, key string) (bool, error) {
	s, err := a.open(ctx)
	if err != nil {
		return false, err
	}
	return s.Has(ctx, key)
}
