package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/pkg/observe"
)

// GlobalState creates named reactive cells backed by a Manager.
type GlobalState struct {
	m *Manager

	mu    sync.Mutex
	cells map[string]cell
}

type cell interface {
	close()
}

// NewGlobalState creates a cell registry over m.
func NewGlobalState(m *Manager) *GlobalState {
	return &GlobalState{m: m, cells: make(map[string]cell)}
}

// Close closes every cell, flushing pending signal writes.
func (gs *GlobalState) Close() {
	gs.mu.Lock()
	cells := gs.cells
	gs.cells = make(map[string]cell)
	gs.mu.Unlock()

	for _, c := range cells {
		c.close()
	}
}

// Names returns the names of the live cells.
func (gs *GlobalState) Names() []string {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	names := make([]string, 0, len(gs.cells))
	for n := range gs.cells {
		names = append(names, n)
	}
	return names
}

func (gs *GlobalState) forget(name string, c cell) {
	gs.mu.Lock()
	if gs.cells[name] == c {
		delete(gs.cells, name)
	}
	gs.mu.Unlock()
}

// lookup returns the existing cell of name as C. found is false when no
// cell exists; a cell of another type is a configuration error.
func lookup[C cell](gs *GlobalState, name string) (c C, found bool, err error) {
	existing, ok := gs.cells[name]
	if !ok {
		return c, false, nil
	}
	c, ok = existing.(C)
	if !ok {
		return c, true, domain.ErrConfiguration.Detailf("cell %q exists with type %T", name, existing)
	}
	return c, true, nil
}

// CellOption configures a cell.
type CellOption func(*cellOptions)

type cellOptions struct {
	backend domain.Backend
	persist bool
	ttl     time.Duration
	encrypt bool
}

// CellStorage selects the backend the cell persists to.
func CellStorage(b domain.Backend) CellOption {
	return func(o *cellOptions) { o.backend = b }
}

// CellPersist turns persistence on or off (default on).
func CellPersist(persist bool) CellOption {
	return func(o *cellOptions) { o.persist = persist }
}

// CellTTL makes every persisted write expire after d.
func CellTTL(d time.Duration) CellOption {
	return func(o *cellOptions) { o.ttl = d }
}

// CellEncrypted encrypts persisted writes.
func CellEncrypted() CellOption {
	return func(o *cellOptions) { o.encrypt = true }
}

func (gs *GlobalState) cellOptions(opts []CellOption) (cellOptions, error) {
	o := cellOptions{persist: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == domain.BackendDefault {
		o.backend = gs.m.cfg.DefaultStorage
	}
	if !o.backend.Valid() {
		return o, domain.ErrUnknownBackend.Detailf("cell backend %d", o.backend)
	}
	if o.ttl < 0 {
		return o, domain.ErrInvalidTTL.Detailf("cell ttl=%s", o.ttl)
	}
	if o.encrypt && gs.m.crypt == nil {
		return o, domain.ErrConfiguration.WithDetails("encryption is not enabled")
	}
	return o, nil
}

func (o cellOptions) read() []Option {
	return []Option{InStorage(o.backend)}
}

func (o cellOptions) write() []Option {
	opts := []Option{InStorage(o.backend)}
	if o.ttl > 0 {
		opts = append(opts, WithTTL(o.ttl))
	}
	if o.encrypt {
		opts = append(opts, WithEncryption())
	}
	return opts
}

// seed returns the stored value of name, or initial when absent.
func seed[T any](ctx context.Context, m *Manager, name string, initial T, o cellOptions) (T, error) {
	if !o.persist {
		return initial, nil
	}
	v, ok, err := GetAs[T](ctx, m, name, o.read()...)
	if err != nil {
		return initial, fmt.Errorf("seed %q: %w", name, err)
	}
	if !ok {
		return initial, nil
	}
	return v, nil
}

// ============================================================================
// Signal
// ============================================================================

// Signal is a synchronous cell. Reads and writes never block on storage;
// writes are persisted in the background, coalescing bursts so that only
// the latest value is written.
type Signal[T any] struct {
	gs      *GlobalState
	name    string
	opts    cellOptions
	initial T
	topic   *observe.Topic[T]

	mu        sync.Mutex
	value     T
	seq       uint64 // bumped by every local write
	persisted uint64 // seq of the last completed persist
	lastErr   error
	flushed   chan struct{} // closed and replaced after each persist
	watch     *observe.Subscription
	closed    bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

// CreateSignal returns the signal called name, creating it seeded from
// storage (or initial when nothing is stored).
func CreateSignal[T any](ctx context.Context, gs *GlobalState, name string, initial T, opts ...CellOption) (*Signal[T], error) {
	o, err := gs.cellOptions(opts)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if s, found, err := lookup[*Signal[T]](gs, name); found {
		return s, err
	}

	v, err := seed(ctx, gs.m, name, initial, o)
	if err != nil {
		return nil, err
	}

	s := &Signal[T]{
		gs:      gs,
		name:    name,
		opts:    o,
		initial: initial,
		topic:   observe.NewTopic[T](),
		value:   v,
		flushed: make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if o.persist {
		go s.persistLoop()
	} else {
		close(s.done)
	}
	gs.cells[name] = s
	return s, nil
}

// Name returns the cell name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and queues a persist.
func (s *Signal[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) and queues a persist. fn runs
// under the signal lock and must not call back into the signal.
func (s *Signal[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	if s.closed {
		v := s.value
		s.mu.Unlock()
		return v
	}
	s.value = fn(s.value)
	s.seq++
	v := s.value
	s.mu.Unlock()

	if s.opts.persist {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	s.topic.Publish(v)
	return v
}

// Subscribe registers fn for value changes. The current value is pushed
// first.
func (s *Signal[T]) Subscribe(fn func(T)) *observe.Subscription {
	return s.topic.SubscribeWithInitial(fn, func() (T, bool) {
		return s.Get(), true
	})
}

// Flush waits until every write made before the call is persisted and
// returns the error of the last persist.
func (s *Signal[T]) Flush(ctx context.Context) error {
	if !s.opts.persist {
		return nil
	}
	s.mu.Lock()
	target := s.seq
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.persisted >= target || s.closed {
			err := s.lastErr
			s.mu.Unlock()
			return err
		}
		ch := s.flushed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SyncAcrossTabs keeps the signal current with writes made by other
// contexts. Pending writes are flushed first. Only localStorage-backed
// signals can sync.
//
// A value from another context is dropped while a local write is waiting
// to be persisted; that write reaches the other contexts once stored.
func (s *Signal[T]) SyncAcrossTabs(ctx context.Context) error {
	if !s.opts.persist || s.opts.backend != domain.BackendLocal {
		return domain.ErrWatchUnsupported.Detailf("signal %q is not persisted to localStorage", s.name)
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.watch != nil || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	sub, err := s.gs.m.Watch(ctx, s.name, s.receive, InStorage(domain.BackendLocal))
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.watch != nil || s.closed {
		s.mu.Unlock()
		sub.Stop()
		return nil
	}
	s.watch = sub
	s.mu.Unlock()
	return nil
}

// receive applies a value from another context without persisting it.
func (s *Signal[T]) receive(c Change) {
	v := s.initial
	if c.Exists {
		if err := c.Decode(&v); err != nil {
			s.gs.m.logger.Warn("signal: undecodable value", "cell", s.name, "error", err)
			return
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.persisted < s.seq {
		s.mu.Unlock()
		s.gs.m.logger.Debug("signal: remote value superseded by pending write", "cell", s.name, "source", c.Source)
		return
	}
	s.value = v
	s.mu.Unlock()

	s.topic.Publish(v)
}

// Close flushes pending writes and stops the signal.
func (s *Signal[T]) Close() {
	s.gs.forget(s.name, s)
	s.close()
}

func (s *Signal[T]) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	watch := s.watch
	s.mu.Unlock()

	if watch != nil {
		watch.Stop()
	}
	if s.opts.persist {
		close(s.stop)
	}
	<-s.done
	s.topic.Close()
}

func (s *Signal[T]) persistLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.kick:
			s.persist()
		case <-s.stop:
			s.persist()
			return
		}
	}
}

func (s *Signal[T]) persist() {
	s.mu.Lock()
	if s.persisted == s.seq {
		s.mu.Unlock()
		return
	}
	v, seq := s.value, s.seq
	s.mu.Unlock()

	err := s.gs.m.Set(context.Background(), s.name, v, s.opts.write()...)
	if err != nil {
		s.gs.m.logger.Warn("signal: persist failed", "cell", s.name, "error", err)
	}

	s.mu.Lock()
	s.persisted = seq
	s.lastErr = err
	close(s.flushed)
	s.flushed = make(chan struct{})
	s.mu.Unlock()
}

// ============================================================================
// Var
// ============================================================================

// Var is an observable variable. Writes go to storage before the new value
// is published. Local-backed variables follow writes from other contexts.
type Var[T any] struct {
	gs      *GlobalState
	name    string
	opts    cellOptions
	initial T
	topic   *observe.Topic[T]

	writeMu sync.Mutex // serializes Set, Update and Remove

	mu      sync.RWMutex
	value   T
	watch   *observe.Subscription
	removed bool
}

// CreateVar returns the variable called name, creating it seeded from
// storage (or initial when nothing is stored).
func CreateVar[T any](ctx context.Context, gs *GlobalState, name string, initial T, opts ...CellOption) (*Var[T], error) {
	o, err := gs.cellOptions(opts)
	if err != nil {
		return nil, err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if v, found, err := lookup[*Var[T]](gs, name); found {
		return v, err
	}

	cur, err := seed(ctx, gs.m, name, initial, o)
	if err != nil {
		return nil, err
	}

	v := &Var[T]{
		gs:      gs,
		name:    name,
		opts:    o,
		initial: initial,
		topic:   observe.NewTopic[T](),
		value:   cur,
	}
	if o.persist && o.backend == domain.BackendLocal {
		if v.watch, err = gs.m.Watch(ctx, name, v.receive, InStorage(domain.BackendLocal)); err != nil {
			return nil, err
		}
	}
	gs.cells[name] = v
	return v, nil
}

// Name returns the cell name.
func (v *Var[T]) Name() string {
	return v.name
}

// Get returns the latest known value.
func (v *Var[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set stores x and publishes it.
func (v *Var[T]) Set(ctx context.Context, x T) error {
	_, err := v.Update(ctx, func(T) T { return x })
	return err
}

// Update stores fn(latest) and publishes it. Calls are serialized, and
// each sees the result of the previous one or of the latest change received
// from another context.
func (v *Var[T]) Update(ctx context.Context, fn func(T) T) (T, error) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.RLock()
	cur, removed := v.value, v.removed
	v.mu.RUnlock()
	if removed {
		return cur, domain.ErrConfiguration.Detailf("variable %q was removed", v.name)
	}

	next := fn(cur)
	if v.opts.persist {
		if err := v.gs.m.Set(ctx, v.name, next, v.opts.write()...); err != nil {
			return cur, err
		}
	}

	v.mu.Lock()
	v.value = next
	v.mu.Unlock()

	v.topic.Publish(next)
	return next, nil
}

// Subscribe registers fn for value changes. The current value is pushed
// first.
func (v *Var[T]) Subscribe(fn func(T)) *observe.Subscription {
	return v.topic.SubscribeWithInitial(fn, func() (T, bool) {
		return v.Get(), true
	})
}

// Remove deletes the stored value and destroys the variable. Subscribers
// are stopped.
func (v *Var[T]) Remove(ctx context.Context) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if v.opts.persist {
		if err := v.gs.m.Remove(ctx, v.name, v.opts.read()...); err != nil {
			return err
		}
	}
	v.gs.forget(v.name, v)
	v.close()
	return nil
}

func (v *Var[T]) receive(c Change) {
	x := v.initial
	if c.Exists {
		if err := c.Decode(&x); err != nil {
			v.gs.m.logger.Warn("var: undecodable value", "cell", v.name, "error", err)
			return
		}
	}

	v.mu.Lock()
	if v.removed {
		v.mu.Unlock()
		return
	}
	v.value = x
	v.mu.Unlock()

	v.topic.Publish(x)
}

func (v *Var[T]) close() {
	v.mu.Lock()
	if v.removed {
		v.mu.Unlock()
		return
	}
	v.removed = true
	watch := v.watch
	v.mu.Unlock()

	if watch != nil {
		watch.Stop()
	}
	v.topic.Close()
}
