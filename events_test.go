package deepthink

import (
	"testing"
	"time"
)

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Publish(Event{Type: EventRunCompleted, RunID: "r1"})

	select {
	case ev := <-sink.Events():
		if ev.RunID != "r1" {
			t.Errorf("RunID = %q, want r1", ev.RunID)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(2)

	// Publishing past the buffer must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sink.Publish(Event{Type: EventGatewayAttempt})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full sink")
	}

	// The buffer holds the first events; the rest were dropped.
	if got := len(sink.Events()); got != 2 {
		t.Errorf("buffered events = %d, want 2", got)
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{StateCompleted, StateFailed, StateCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	live := []State{StatePlanning, StateResearching, StateThinking, StateThinkingExpanded, StateCritiquing, StateRefining, StateMetaRefining}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
