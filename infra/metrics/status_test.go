package metrics

import (
	"testing"
	"time"

	"github.com/kilianp07/chargectl/core/events"
)

func TestStatusSink(t *testing.T) {
	s := NewStatusSink()
	if _, ok := s.Latest(); ok {
		t.Fatal("expected no record")
	}
	_ = s.RecordCycle(sampleRecord(time.Now(), 9))
	rec, ok := s.Latest()
	if !ok || rec.TargetAmps != 9 {
		t.Fatalf("unexpected latest %+v", rec)
	}
	for i := 0; i < statusEventHistory+5; i++ {
		_ = s.RecordEvent(events.Event{Kind: events.AmpsChanged, Amps: i})
	}
	evs := s.Events()
	if len(evs) != statusEventHistory {
		t.Fatalf("expected %d events, got %d", statusEventHistory, len(evs))
	}
	if evs[len(evs)-1].Amps != statusEventHistory+4 {
		t.Fatalf("newest event missing")
	}
}
