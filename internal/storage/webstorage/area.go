package webstorage

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// DefaultQuotaBytes mirrors the usual per-origin browser allowance.
const DefaultQuotaBytes = 5 << 20

// Config configures an Area.
type Config struct {
	// Name identifies the area; it is also the persistence file stem.
	Name string

	// QuotaBytes caps the sum of len(key)+len(value) over all entries.
	// Zero means DefaultQuotaBytes.
	QuotaBytes int64

	// Dir enables file persistence shared across processes. Empty keeps the
	// area in memory.
	Dir string

	// Disabled starts the area in the unavailable state.
	Disabled bool

	Logger *slog.Logger
}

// Event describes one change to an Area.
type Event struct {
	// Key is the changed key. It is empty when Cleared is set.
	Key string

	OldValue string
	NewValue string

	// Exists is false when the key was removed.
	Exists bool

	// Cleared marks a Clear of the whole area.
	Cleared bool

	// Source is the ID of the View that made the change, or "remote:<id>"
	// for changes loaded from another process.
	Source string
}

// Area is a quota-limited string map.
type Area struct {
	name   string
	quota  int64
	logger *slog.Logger

	mu    sync.RWMutex
	items map[string]string
	used  int64

	enabled atomic.Bool
	events  *dispatcher

	file    *fileStore
	watcher *watcher

	closeOnce sync.Once
}

// New creates an Area. With cfg.Dir set it loads the existing file and
// starts watching it.
func New(cfg Config) (*Area, error) {
	if cfg.Name == "" {
		return nil, domain.ErrConfiguration.WithDetails("storage area name is required")
	}
	if cfg.QuotaBytes < 0 {
		return nil, domain.ErrConfiguration.Detailf("negative quota %d", cfg.QuotaBytes)
	}
	quota := cfg.QuotaBytes
	if quota == 0 {
		quota = DefaultQuotaBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Area{
		name:   cfg.Name,
		quota:  quota,
		logger: logger.With("area", cfg.Name),
		items:  make(map[string]string),
		events: newDispatcher(),
	}
	a.enabled.Store(!cfg.Disabled)

	if cfg.Dir != "" {
		fs, err := openFileStore(cfg.Dir, cfg.Name, ulid.Make().String())
		if err != nil {
			a.events.close()
			return nil, err
		}
		a.file = fs

		img, err := fs.read()
		if err != nil {
			a.events.close()
			return nil, err
		}
		if img != nil {
			a.items = img.Items
			a.used = usage(img.Items)
			fs.markSeen(img)
		}

		w, err := newWatcher(fs.path, a.reload, a.logger)
		if err != nil {
			a.events.close()
			return nil, fmt.Errorf("webstorage: watch %s: %w", fs.path, err)
		}
		a.watcher = w
		w.startAsync()

		a.logger.Debug("file-backed storage area opened",
			"path", fs.path,
			"instance", fs.instance,
			"entries", len(a.items))
	}

	return a, nil
}

// Name returns the area name.
func (a *Area) Name() string {
	return a.name
}

// Quota returns the byte quota.
func (a *Area) Quota() int64 {
	return a.quota
}

// Usage returns the bytes currently counted against the quota.
func (a *Area) Usage() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.used
}

// Len returns the number of entries.
func (a *Area) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Persistent reports whether the area is file-backed.
func (a *Area) Persistent() bool {
	return a.file != nil
}

// Enabled reports whether the area accepts operations.
func (a *Area) Enabled() bool {
	return a.enabled.Load()
}

// SetEnabled switches the area between available and unavailable. Data is
// kept while disabled.
func (a *Area) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
}

// View returns a handle whose writes are attributed to id.
func (a *Area) View(id string) *View {
	return &View{area: a, id: id}
}

// Flush blocks until every queued event has been delivered. It must not be
// called from an event listener.
func (a *Area) Flush() {
	a.events.wait()
}

// Close stops the file watcher and the event dispatcher.
func (a *Area) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.watcher != nil {
			err = a.watcher.stop()
		}
		a.events.close()
	})
	return err
}

func (a *Area) checkEnabled() error {
	if !a.enabled.Load() {
		return domain.ErrUnavailableBackend.Detailf("storage area %s is disabled", a.name)
	}
	return nil
}

func (a *Area) get(key string) (string, bool, error) {
	if err := a.checkEnabled(); err != nil {
		return "", false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.items[key]
	return v, ok, nil
}

func (a *Area) keys() ([]string, error) {
	if err := a.checkEnabled(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	out := make([]string, 0, len(a.items))
	for k := range a.items {
		out = append(out, k)
	}
	a.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (a *Area) set(source, key, value string) error {
	if err := a.checkEnabled(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	unlock, err := a.beginWriteLocked()
	if err != nil {
		return err
	}
	defer unlock()

	old, existed := a.items[key]
	if existed && old == value {
		return nil
	}

	delta := entrySize(key, value)
	if existed {
		delta -= entrySize(key, old)
	}
	if a.used+delta > a.quota {
		return domain.ErrQuotaExceeded.Detailf("%s: %d of %d bytes used, write needs %d more", a.name, a.used, a.quota, delta)
	}

	a.items[key] = value
	a.used += delta

	if err := a.persistLocked(); err != nil {
		if existed {
			a.items[key] = old
		} else {
			delete(a.items, key)
		}
		a.used -= delta
		return err
	}

	a.events.enqueue(Event{Key: key, OldValue: old, NewValue: value, Exists: true, Source: source})
	return nil
}

func (a *Area) remove(source, key string) error {
	if err := a.checkEnabled(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	unlock, err := a.beginWriteLocked()
	if err != nil {
		return err
	}
	defer unlock()

	old, existed := a.items[key]
	if !existed {
		return nil
	}

	delete(a.items, key)
	a.used -= entrySize(key, old)

	if err := a.persistLocked(); err != nil {
		a.items[key] = old
		a.used += entrySize(key, old)
		return err
	}

	a.events.enqueue(Event{Key: key, OldValue: old, Source: source})
	return nil
}

func (a *Area) clear(source string) error {
	if err := a.checkEnabled(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	unlock, err := a.beginWriteLocked()
	if err != nil {
		return err
	}
	defer unlock()

	if len(a.items) == 0 {
		return nil
	}

	prev, prevUsed := a.items, a.used
	a.items = make(map[string]string)
	a.used = 0

	if err := a.persistLocked(); err != nil {
		a.items, a.used = prev, prevUsed
		return err
	}

	a.events.enqueue(Event{Cleared: true, Source: source})
	return nil
}

// persistLocked writes the current items to disk. Caller holds a.mu.
func (a *Area) persistLocked() error {
	if a.file == nil {
		return nil
	}
	if err := a.file.write(a.items); err != nil {
		a.logger.Error("persist storage area failed", "error", err)
		return domain.ErrUnavailableBackend.Detailf("persist %s", a.name).WithCause(err)
	}
	return nil
}

// beginWriteLocked takes the file lock and applies changes other
// processes wrote since the last load, so the following persist does not
// overwrite them. Caller holds a.mu and must call the returned function
// after persisting.
func (a *Area) beginWriteLocked() (func(), error) {
	if a.file == nil {
		return func() {}, nil
	}
	unlock, err := a.file.lock()
	if err != nil {
		return nil, domain.ErrUnavailableBackend.Detailf("lock %s", a.name).WithCause(err)
	}
	if err := a.syncFromDiskLocked(); err != nil {
		unlock()
		return nil, domain.ErrUnavailableBackend.Detailf("reload %s", a.name).WithCause(err)
	}
	return unlock, nil
}

// syncFromDiskLocked applies changes another process wrote since the last
// load. Caller holds a.mu.
func (a *Area) syncFromDiskLocked() error {
	if a.file == nil {
		return nil
	}
	img, err := a.file.read()
	if err != nil {
		return err
	}
	a.applyImageLocked(img)
	return nil
}

// reload is the watcher callback.
func (a *Area) reload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.syncFromDiskLocked(); err != nil {
		a.logger.Warn("reload storage area failed", "error", err)
	}
}

func (a *Area) applyImageLocked(img *fileImage) {
	if img == nil || !a.file.isNew(img) {
		return
	}
	a.file.markSeen(img)

	source := "remote:" + img.Writer
	changed := 0

	for k, old := range a.items {
		if _, ok := img.Items[k]; !ok {
			a.events.enqueue(Event{Key: k, OldValue: old, Source: source})
			changed++
		}
	}
	for k, v := range img.Items {
		old, ok := a.items[k]
		if ok && old == v {
			continue
		}
		a.events.enqueue(Event{Key: k, OldValue: old, NewValue: v, Exists: true, Source: source})
		changed++
	}

	a.items = img.Items
	a.used = usage(img.Items)

	if changed > 0 {
		a.logger.Debug("applied remote storage changes",
			"writer", img.Writer,
			"seq", img.Seq,
			"changes", changed)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func usage(items map[string]string) int64 {
	var n int64
	for k, v := range items {
		n += entrySize(k, v)
	}
	return n
}
