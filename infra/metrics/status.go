package metrics

import (
	"sync"

	"github.com/kilianp07/chargectl/core/events"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
)

const statusEventHistory = 20

// StatusSink keeps the latest cycle and the most recent events in memory
// for the status API.
type StatusSink struct {
	mu     sync.RWMutex
	latest *coremetrics.CycleRecord
	events []events.Event
}

// NewStatusSink returns an empty StatusSink.
func NewStatusSink() *StatusSink { return &StatusSink{} }

func (s *StatusSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.mu.Lock()
	s.latest = &rec
	s.mu.Unlock()
	return nil
}

func (s *StatusSink) RecordEvent(ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > statusEventHistory {
		s.events = s.events[len(s.events)-statusEventHistory:]
	}
	return nil
}

// Latest returns the last recorded cycle.
func (s *StatusSink) Latest() (coremetrics.CycleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return coremetrics.CycleRecord{}, false
	}
	return *s.latest, true
}

// Events returns a copy of the recent events, oldest first.
func (s *StatusSink) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event(nil), s.events...)
}
