package observe

import (
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Subscription.
type State int32

const (
	StateCreated State = iota
	StateActive
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Subscription is the handle of one registered callback.
type Subscription struct {
	id    uint64
	state atomic.Int32

	// deliverMu serializes callback invocations for this subscription.
	deliverMu sync.Mutex

	stopOnce sync.Once
	done     chan struct{}
	detach   func()
}

func newSubscription(id uint64) *Subscription {
	return &Subscription{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the identifier of the subscription within its topic.
func (s *Subscription) ID() uint64 {
	return s.id
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	return State(s.state.Load())
}

// Active reports whether the subscription still receives values.
func (s *Subscription) Active() bool {
	return s.State() == StateActive
}

// Done returns a channel closed when the subscription stops.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Stop removes the subscription from its topic. It is safe to call more than
// once and from inside the subscription's own callback. No delivery starts
// after Stop returns.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateStopped))
		if s.detach != nil {
			s.detach()
		}
		close(s.done)
	})
}

func (s *Subscription) activate() bool {
	return s.state.CompareAndSwap(int32(StateCreated), int32(StateActive))
}

// deliver runs fn if the subscription is still active.
func (s *Subscription) deliver(fn func()) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.Active() {
		return false
	}
	fn()
	return true
}
