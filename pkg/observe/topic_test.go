package observe

import (
	"sync"
	"testing"
)

func TestTopic_PublishInOrder(t *testing.T) {
	topic := NewTopic[int]()
	var got []string

	topic.Subscribe(func(v int) { got = append(got, "a") })
	topic.Subscribe(func(v int) { got = append(got, "b") })

	if n := topic.Publish(1); n != 2 {
		t.Fatalf("Publish() delivered = %d, want 2", n)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("delivery order = %v, want [a b]", got)
	}
}

func TestSubscription_Lifecycle(t *testing.T) {
	topic := NewTopic[string]()
	var received []string
	sub := topic.Subscribe(func(v string) { received = append(received, v) })

	if sub.State() != StateActive {
		t.Fatalf("State() = %v, want active", sub.State())
	}

	topic.Publish("one")
	sub.Stop()
	sub.Stop()
	topic.Publish("two")

	if sub.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", sub.State())
	}
	if len(received) != 1 || received[0] != "one" {
		t.Errorf("received = %v, want [one]", received)
	}
	if topic.Len() != 0 {
		t.Errorf("Len() = %d, want 0", topic.Len())
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed after Stop")
	}
}

func TestSubscription_StopInsideCallback(t *testing.T) {
	topic := NewTopic[int]()
	calls := 0
	var sub *Subscription
	sub = topic.Subscribe(func(int) {
		calls++
		sub.Stop()
	})

	topic.Publish(1)
	topic.Publish(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestTopic_InitialPushPrecedesEvents(t *testing.T) {
	topic := NewTopic[int]()
	var got []int

	topic.SubscribeWithInitial(func(v int) { got = append(got, v) }, func() (int, bool) {
		return 7, true
	})
	topic.Publish(8)

	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("got = %v, want [7 8]", got)
	}

	var none []int
	topic.SubscribeWithInitial(func(v int) { none = append(none, v) }, func() (int, bool) {
		return 0, false
	})
	if len(none) != 0 {
		t.Errorf("initial push with ok=false delivered %v", none)
	}
}

func TestTopic_OnEmpty(t *testing.T) {
	topic := NewTopic[int]()
	emptied := 0
	topic.OnEmpty(func() { emptied++ })

	a := topic.Subscribe(func(int) {})
	b := topic.Subscribe(func(int) {})
	a.Stop()
	if emptied != 0 {
		t.Fatalf("OnEmpty fired with a subscriber left")
	}
	b.Stop()
	if emptied != 1 {
		t.Errorf("OnEmpty calls = %d, want 1", emptied)
	}
}

func TestTopic_Close(t *testing.T) {
	topic := NewTopic[int]()
	subs := []*Subscription{
		topic.Subscribe(func(int) {}),
		topic.Subscribe(func(int) {}),
	}

	topic.Close()

	for i, s := range subs {
		if s.Active() {
			t.Errorf("subscription %d still active after Close", i)
		}
	}
	if n := topic.Publish(1); n != 0 {
		t.Errorf("Publish() after Close delivered = %d", n)
	}
}

func TestTopic_ConcurrentPublish(t *testing.T) {
	topic := NewTopic[int]()
	var mu sync.Mutex
	total := 0
	topic.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic.Publish(1)
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
}
