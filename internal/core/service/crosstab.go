package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/webstore-go/internal/core/domain"
	"github.com/yndnr/webstore-go/internal/storage/adapter"
	"github.com/yndnr/webstore-go/internal/storage/codec"
	"github.com/yndnr/webstore-go/internal/storage/webstorage"
	"github.com/yndnr/webstore-go/internal/telemetry/metric"
	"github.com/yndnr/webstore-go/pkg/cmap"
	"github.com/yndnr/webstore-go/pkg/observe"
)

// Change is one value pushed to a watcher.
type Change struct {
	Key string

	// Exists is false when the key was removed, cleared or expired.
	Exists bool

	// Value is the JSON value, already decrypted. Nil when !Exists.
	Value json.RawMessage

	// Source identifies the writing context. It is empty for the push made
	// at subscribe time.
	Source string
}

// Decode unmarshals the value into out. It is a no-op when !Exists.
func (c Change) Decode(out any) error {
	if !c.Exists {
		return nil
	}
	return codec.DecodeValue(string(c.Value), out)
}

// Remote reports whether the change came from another process.
func (c Change) Remote() bool {
	return strings.HasPrefix(c.Source, "remote:")
}

// CrossTab republishes localStorage changes made by other contexts as
// per-key streams.
type CrossTab struct {
	m      *Manager
	listen *observe.Subscription

	mu     sync.Mutex // serializes topic creation and removal
	topics *cmap.Map[*observe.Topic[Change]]

	malformed rate.Sometimes
	closed    atomic.Bool
}

// CrossTab returns the change feed of this context, subscribing to the
// shared localStorage area on first use. After Close it returns a feed
// that refuses new watchers.
func (m *Manager) CrossTab() *CrossTab {
	m.crossTabOnce.Do(func() {
		ct := &CrossTab{
			m:         m,
			topics:    cmap.New[*observe.Topic[Change]](),
			malformed: rate.Sometimes{First: 3, Interval: 10 * time.Second},
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.crossTab = ct
		if m.closed {
			ct.closed.Store(true)
			return
		}
		local := m.adapter(domain.BackendLocal).(*adapter.AreaAdapter)
		ct.listen = local.View().Listen(ct.handle)
		m.logger.Debug("cross-tab sync started")
	})
	return m.crossTab
}

// Watch subscribes fn to changes of key made by other contexts. The current
// value is pushed first. Only localStorage supports watching; other
// backends fail with ErrWatchUnsupported.
func (m *Manager) Watch(ctx context.Context, key string, fn func(Change), opts ...Option) (*observe.Subscription, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	if o.backend != domain.BackendLocal {
		return nil, domain.ErrWatchUnsupported.Detailf("%s has no change notifications", o.backend)
	}
	return m.CrossTab().Watch(ctx, key, fn)
}

// Watch subscribes fn to changes of key.
func (ct *CrossTab) Watch(ctx context.Context, key string, fn func(Change)) (*observe.Subscription, error) {
	for {
		if ct.closed.Load() {
			return nil, domain.ErrUnavailableBackend.WithDetails("storage manager is closed")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		topic := ct.topic(key)
		orphan := false
		sub := topic.SubscribeWithInitial(fn, func() (Change, bool) {
			if !ct.owns(key, topic) {
				orphan = true
				return Change{}, false
			}
			return ct.current(ctx, key), true
		})
		if !orphan {
			return sub, nil
		}
		// The topic was dropped between lookup and subscribe.
		sub.Stop()
	}
}

// Watching returns the number of keys with at least one subscription.
func (ct *CrossTab) Watching() int {
	return ct.topics.Count()
}

func (ct *CrossTab) topic(key string) *observe.Topic[Change] {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if t, ok := ct.topics.Get(key); ok {
		return t
	}
	t := observe.NewTopic[Change]()
	t.OnEmpty(func() {
		ct.mu.Lock()
		defer ct.mu.Unlock()
		if cur, ok := ct.topics.Get(key); ok && cur == t && t.Len() == 0 {
			ct.topics.Delete(key)
		}
	})
	ct.topics.Set(key, t)
	return t
}

func (ct *CrossTab) owns(key string, t *observe.Topic[Change]) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	cur, ok := ct.topics.Get(key)
	return ok && cur == t
}

// current reads the present value of key for the initial push. Read errors
// are logged and reported as absent.
func (ct *CrossTab) current(ctx context.Context, key string) Change {
	c := Change{Key: key}
	physical := ct.m.scope.Physical(key)

	env, ok, err := ct.m.load(ctx, domain.BackendLocal, physical)
	if err == nil && ok {
		var data string
		if data, err = ct.m.plaintext(env, physical); err == nil {
			c.Exists = true
			c.Value = json.RawMessage(data)
		}
	}
	if err != nil {
		ct.m.logger.Warn("watch: reading current value failed", "key", key, "error", err)
	}
	return c
}

func (ct *CrossTab) handle(e webstorage.Event) {
	if e.Cleared {
		n := 0
		for key, t := range ct.topics.Snapshot() {
			n += t.Publish(Change{Key: key, Source: e.Source})
		}
		ct.observe(n)
		return
	}

	key, ok := ct.m.scope.User(e.Key)
	if !ok {
		ct.observe(0)
		return
	}
	t, ok := ct.topics.Get(key)
	if !ok {
		ct.observe(0)
		return
	}

	c, err := ct.decode(key, e)
	if err != nil {
		ct.m.metrics.ObserveCrossTab(metric.CrossTabMalformed)
		ct.malformed.Do(func() {
			ct.m.logger.Warn("dropping malformed cross-tab event",
				"key", e.Key, "source", e.Source, "error", err)
		})
		return
	}
	ct.observe(t.Publish(c))
}

func (ct *CrossTab) decode(key string, e webstorage.Event) (Change, error) {
	c := Change{Key: key, Source: e.Source}
	if !e.Exists {
		return c, nil
	}

	env, err := codec.Decode(e.NewValue)
	if err != nil {
		return c, err
	}
	if env.Namespace != ct.m.scope.Name() {
		return c, domain.ErrSerialization.Detailf("envelope namespace %q", env.Namespace)
	}
	if ct.m.ttl.Expired(env) {
		return c, nil
	}

	data, err := ct.m.plaintext(env, e.Key)
	if err != nil {
		return c, err
	}
	c.Exists = true
	c.Value = json.RawMessage(data)
	return c, nil
}

func (ct *CrossTab) observe(delivered int) {
	if delivered > 0 {
		ct.m.metrics.ObserveCrossTab(metric.CrossTabDelivered)
	} else {
		ct.m.metrics.ObserveCrossTab(metric.CrossTabIgnored)
	}
}

func (ct *CrossTab) close() {
	if !ct.closed.CompareAndSwap(false, true) {
		return
	}
	if ct.listen != nil {
		ct.listen.Stop()
	}
	for _, t := range ct.topics.Snapshot() {
		t.Close()
	}
}
