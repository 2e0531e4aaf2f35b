package sequencer

import (
	"sync"
	"time"

	"squeeze/internal/queue"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	EventTypeStarted   EventType = "started"
	EventTypeProgress  EventType = "progress"
	EventTypeCompleted EventType = "completed"
	EventTypeFailed    EventType = "failed"
)

// Event is a sequenced payload consumed by IPC subscribers. Message text is
// informational only; consumers derive job state from Status, never from the
// message.
type Event struct {
	Seq       int64        `json:"seq"`
	Timestamp time.Time    `json:"timestamp"`
	JobID     int64        `json:"jobId"`
	Type      EventType    `json:"type"`
	Status    queue.Status `json:"status,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// EventStream stores recent events and provides incremental reads by
// sequence number.
type EventStream struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventStream creates a bounded in-memory event buffer.
func NewEventStream(maxEvents int) *EventStream {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &EventStream{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event, assigning its sequence number and timestamp.
func (s *EventStream) Publish(event Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	event.Seq = s.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.events = append(s.events, event)
	if len(s.events) > s.maxEvents {
		trim := len(s.events) - s.maxEvents
		s.events = append([]Event(nil), s.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq, oldest first.
func (s *EventStream) Since(seq int64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
