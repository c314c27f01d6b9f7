package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/model"
)

type recordSink struct {
	cycles int
	events int
	err    error
}

func (r *recordSink) RecordCycle(CycleRecord) error {
	r.cycles++
	return r.err
}

func (r *recordSink) RecordEvent(events.Event) error {
	r.events++
	return nil
}

type historySink struct{ recordSink }

func (h *historySink) Recent(context.Context, int) ([]CycleRecord, error) {
	return []CycleRecord{{ID: "x"}}, nil
}

// TestMultiSink ensures records reach every sink even when one fails.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{err: errors.New("down")}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordCycle(CycleRecord{}); err == nil {
		t.Fatal("expected joined error")
	}
	if err := m.RecordEvent(events.Event{}); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if s1.cycles != 1 || s2.cycles != 1 || s1.events != 1 || s2.events != 1 {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSinkHistory(t *testing.T) {
	m := NewMultiSink(&recordSink{})
	if _, err := m.Recent(context.Background(), 1); err == nil {
		t.Fatal("expected error without history sink")
	}
	m.Add(NewMultiSink(&historySink{}))
	recs, err := m.Recent(context.Background(), 1)
	if err != nil || len(recs) != 1 || recs[0].ID != "x" {
		t.Fatalf("unexpected history %v %v", recs, err)
	}
}

func TestCycleRecordProjection(t *testing.T) {
	rec := CycleRecord{Plans: []PlanProjection{{Plan: model.PlanNightly, Amps: 9}}}
	if p, ok := rec.Projection(model.PlanNightly); !ok || p.Amps != 9 {
		t.Fatalf("unexpected projection %+v", p)
	}
	if _, ok := rec.Projection(model.PlanMaxSpeed); ok {
		t.Fatal("expected missing projection")
	}
}
