package webstorage

import (
	"sync"

	"github.com/yndnr/webstore-go/pkg/observe"
)

// dispatcher delivers events in enqueue order on one goroutine. Enqueue
// never blocks, so writers may hold their own locks while enqueueing.
type dispatcher struct {
	topic *observe.Topic[Event]

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	busy    bool
	closed  bool
	started bool
}

func newDispatcher() *dispatcher {
	d := &dispatcher{topic: observe.NewTopic[Event]()}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *dispatcher) enqueue(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, e)
	if !d.started {
		d.started = true
		go d.run()
	}
	d.cond.Broadcast()
}

func (d *dispatcher) run() {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.busy = true
		d.mu.Unlock()

		for _, e := range batch {
			d.topic.Publish(e)
		}

		d.mu.Lock()
		d.busy = false
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

// wait blocks until the queue is drained.
func (d *dispatcher) wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for (len(d.queue) > 0 || d.busy) && !d.closed {
		d.cond.Wait()
	}
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.queue = nil
	d.cond.Broadcast()
	d.mu.Unlock()
	d.topic.Close()
}
