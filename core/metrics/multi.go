package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/chargectl/core/events"
)

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// Add appends a sink.
func (m *MultiSink) Add(s Sink) { m.Sinks = append(m.Sinks, s) }

// RecordCycle forwards the record to every sink. A failing sink does not
// stop the others; all errors are joined.
func (m *MultiSink) RecordCycle(rec CycleRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordCycle(rec); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// RecordEvent forwards events to the sinks that record them.
func (m *MultiSink) RecordEvent(ev events.Event) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(EventRecorder); ok {
			if err := rec.RecordEvent(ev); err != nil {
				errs = append(errs, fmt.Errorf("%T: %w", s, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Recent reads history from the first sink supporting it.
func (m *MultiSink) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	if r := m.History(); r != nil {
		return r.Recent(ctx, limit)
	}
	return nil, fmt.Errorf("no sink provides history")
}

// History returns the first sink able to read back cycles, or nil.
func (m *MultiSink) History() HistoryReader {
	for _, s := range m.Sinks {
		if inner, ok := s.(*MultiSink); ok {
			if r := inner.History(); r != nil {
				return r
			}
			continue
		}
		if r, ok := s.(HistoryReader); ok {
			return r
		}
	}
	return nil
}

// Close closes every sink implementing io.Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
