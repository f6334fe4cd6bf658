package serve

import (
	"testing"
	"time"

	deepthink "github.com/everydev1618/godeepthink"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(deepthink.Event{Type: deepthink.EventRunCompleted, RunID: "r1"})

	for i, ch := range []<-chan deepthink.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.RunID != "r1" {
				t.Errorf("subscriber %d got run %q", i, ev.RunID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	// Channel closes on unsubscribe.
	if _, ok := <-ch; ok {
		t.Fatal("unsubscribed channel should be closed")
	}

	// Publishing afterwards must not panic.
	b.Publish(deepthink.Event{Type: deepthink.EventRunCompleted})
	cancel() // second cancel is a no-op
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	_, cancel := b.Subscribe()
	defer cancel()

	// The subscriber never reads; publishing far past the buffer must
	// not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(deepthink.Event{Type: deepthink.EventGatewayAttempt})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBrokerSubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatal("subscription after close should yield a closed channel")
	}
}
