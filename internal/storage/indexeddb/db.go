package indexeddb

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const (
	versionKey   = "m/version"
	storeMarker  = "m/store/"
	recordPrefix = "s/"
)

// DB is a shared connection to one database.
type DB struct {
	factory *Factory
	name    string
	bdb     *badger.DB
	logger  *slog.Logger

	mu      sync.RWMutex
	version int
	stores  map[string]bool
	closed  bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func newDB(f *Factory, name string, bdb *badger.DB) *DB {
	return &DB{
		factory: f,
		name:    name,
		bdb:     bdb,
		logger:  f.logger.With("database", name),
		stores:  make(map[string]bool),
	}
}

// Name returns the database name.
func (d *DB) Name() string {
	return d.name
}

// Version returns the negotiated schema version.
func (d *DB) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// StoreNames returns the existing stores, sorted.
func (d *DB) StoreNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.stores))
	for name := range d.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store returns a handle on the named store.
func (d *DB) Store(name string) (*Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	if !d.stores[name] {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}
	return &Store{db: d, name: name, prefix: []byte(recordPrefix + name + "/")}, nil
}

// Size returns the LSM and value log sizes in bytes.
func (d *DB) Size() (lsm, vlog int64) {
	return d.bdb.Size()
}

func (d *DB) negotiate(schema Schema) error {
	var stores map[string]bool

	err := d.bdb.Update(func(txn *badger.Txn) error {
		current, err := readVersion(txn)
		if err != nil {
			return err
		}

		if schema.Version < current {
			return fmt.Errorf("%w: stored %d, requested %d", ErrVersionDowngrade, current, schema.Version)
		}
		if current > 0 && schema.Version > current {
			for v := current + 1; v <= schema.Version; v++ {
				if schema.Steps[v] == nil {
					return fmt.Errorf("%w: %d -> %d", ErrNoUpgradePath, v-1, v)
				}
			}
			for v := current + 1; v <= schema.Version; v++ {
				tx := &VersionChange{txn: txn, oldVersion: v - 1, newVersion: v}
				if err := schema.Steps[v](tx); err != nil {
					return fmt.Errorf("upgrade %d -> %d: %w", v-1, v, err)
				}
				d.logger.Info("database upgraded", "from", v-1, "to", v)
			}
		}

		for _, name := range schema.Stores {
			if err := createStore(txn, name); err != nil {
				return err
			}
		}
		if schema.Version != current {
			if err := txn.Set([]byte(versionKey), []byte(strconv.Itoa(schema.Version))); err != nil {
				return err
			}
		}

		stores, err = listStores(txn)
		return err
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.version = schema.Version
	d.stores = stores
	d.mu.Unlock()
	return nil
}

func (d *DB) startGC(interval time.Duration) {
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.gcLoop(interval)
}

// gcLoop runs periodic value log garbage collection.
func (d *DB) gcLoop(interval time.Duration) {
	defer close(d.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.runGC()
		case <-d.stopCh:
			return
		}
	}
}

func (d *DB) runGC() {
	start := time.Now()
	cycles := 0
	for {
		err := d.bdb.RunValueLogGC(0.5)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				d.logger.Error("value log gc failed", "error", err)
			}
			break
		}
		cycles++
	}
	if cycles > 0 {
		d.logger.Debug("value log gc completed", "cycles", cycles, "elapsed", time.Since(start))
	}
}

func (d *DB) close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.stopCh != nil {
		close(d.stopCh)
		<-d.doneCh
	}
	return d.bdb.Close()
}

func (d *DB) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

func readVersion(txn *badger.Txn) (int, error) {
	item, err := txn.Get([]byte(versionKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt version %q: %w", raw, err)
	}
	return v, nil
}

func createStore(txn *badger.Txn, name string) error {
	if name == "" {
		return errors.New("store name is required")
	}
	return txn.Set([]byte(storeMarker+name), nil)
}

func listStores(txn *badger.Txn) (map[string]bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(storeMarker)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	stores := make(map[string]bool)
	for it.Rewind(); it.Valid(); it.Next() {
		stores[string(it.Item().Key()[len(storeMarker):])] = true
	}
	return stores, nil
}

// VersionChange is the transaction an Upgrade runs in. Every change commits
// together with the new version, or not at all.
type VersionChange struct {
	txn        *badger.Txn
	oldVersion int
	newVersion int
}

// OldVersion returns the version being upgraded from.
func (tx *VersionChange) OldVersion() int {
	return tx.oldVersion
}

// NewVersion returns the version being upgraded to.
func (tx *VersionChange) NewVersion() int {
	return tx.newVersion
}

// CreateStore creates name if it does not exist.
func (tx *VersionChange) CreateStore(name string) error {
	return createStore(tx.txn, name)
}

// DeleteStore removes name and all its records.
func (tx *VersionChange) DeleteStore(name string) error {
	keys, err := tx.keys(name)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.txn.Delete([]byte(recordPrefix + name + "/" + k)); err != nil {
			return err
		}
	}
	return tx.txn.Delete([]byte(storeMarker + name))
}

// Get reads a record of store.
func (tx *VersionChange) Get(store, key string) (string, bool, error) {
	item, err := tx.txn.Get([]byte(recordPrefix + store + "/" + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	raw, err := item.ValueCopy(nil)
	return string(raw), err == nil, err
}

// Put writes a record of store.
func (tx *VersionChange) Put(store, key, value string) error {
	return tx.txn.Set([]byte(recordPrefix+store+"/"+key), []byte(value))
}

// Keys lists the record keys of store.
func (tx *VersionChange) Keys(store string) ([]string, error) {
	return tx.keys(store)
}

func (tx *VersionChange) keys(store string) ([]string, error) {
	prefix := []byte(recordPrefix + store + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().Key()[len(prefix):]))
	}
	return keys, nil
}
