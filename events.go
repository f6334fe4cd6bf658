package deepthink

import (
	"log/slog"
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	EventStateChanged   EventType = "state_changed"
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageFailed    EventType = "stage_failed"
	EventGatewayAttempt EventType = "gateway_attempt"
	EventBudgetDecision EventType = "budget_decision"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
	EventRunCancelled   EventType = "run_cancelled"
)

// Event is one observable pipeline occurrence.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Stage     Stage          `json:"stage,omitempty"`
	State     State          `json:"state,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventSink receives pipeline events. Publish must never block; slow
// consumers see dropped events, not a stalled pipeline.
type EventSink interface {
	Publish(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements EventSink.
func (NopSink) Publish(Event) {}

// ChannelSink buffers events on a channel and drops when full.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = 64
	}
	return &ChannelSink{ch: make(chan Event, size)}
}

// Publish implements EventSink. Full buffer drops the event.
func (s *ChannelSink) Publish(ev Event) {
	select {
	case s.ch <- ev:
	default:
		slog.Debug("event dropped, sink buffer full", "type", ev.Type, "run_id", ev.RunID)
	}
}

// Events exposes the receive side.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close closes the underlying channel. Publish after Close panics; stop
// the pipeline first.
func (s *ChannelSink) Close() {
	close(s.ch)
}
