package observe

import "sync"

type entry[T any] struct {
	sub *Subscription
	fn  func(T)
}

// Topic is a callback list for values of type T.
type Topic[T any] struct {
	mu      sync.RWMutex
	entries []*entry[T]
	nextID  uint64
	onEmpty func()
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// OnEmpty registers a function called whenever the last subscriber leaves.
// It runs without the topic lock held.
func (t *Topic[T]) OnEmpty(fn func()) {
	t.mu.Lock()
	t.onEmpty = fn
	t.mu.Unlock()
}

// Subscribe registers fn and returns its active subscription.
func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	return t.SubscribeWithInitial(fn, nil)
}

// SubscribeWithInitial registers fn and, before any published value reaches
// it, delivers the value returned by initial (when ok is true).
//
// The subscription is registered before initial runs, so a value published
// concurrently is never lost; it is delivered after the initial push.
func (t *Topic[T]) SubscribeWithInitial(fn func(T), initial func() (T, bool)) *Subscription {
	t.mu.Lock()
	t.nextID++
	sub := newSubscription(t.nextID)
	sub.detach = func() { t.remove(sub) }
	t.entries = append(t.entries, &entry[T]{sub: sub, fn: fn})
	t.mu.Unlock()

	sub.deliverMu.Lock()
	sub.activate()
	if initial != nil && sub.Active() {
		if v, ok := initial(); ok {
			fn(v)
		}
	}
	sub.deliverMu.Unlock()

	return sub
}

// Publish delivers v to every active subscriber and returns how many
// received it.
func (t *Topic[T]) Publish(v T) int {
	t.mu.RLock()
	entries := make([]*entry[T], len(t.entries))
	copy(entries, t.entries)
	t.mu.RUnlock()

	delivered := 0
	for _, e := range entries {
		fn := e.fn
		if e.sub.deliver(func() { fn(v) }) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of registered subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close stops every subscription.
func (t *Topic[T]) Close() {
	t.mu.RLock()
	entries := make([]*entry[T], len(t.entries))
	copy(entries, t.entries)
	t.mu.RUnlock()

	for _, e := range entries {
		e.sub.Stop()
	}
}

func (t *Topic[T]) remove(sub *Subscription) {
	t.mu.Lock()
	for i, e := range t.entries {
		if e.sub == sub {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	empty := len(t.entries) == 0
	onEmpty := t.onEmpty
	t.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}
