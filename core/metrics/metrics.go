package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/model"
)

// PlanProjection is the amps one plan would draw this cycle.
type PlanProjection struct {
	Plan   model.ChargingPlan `json:"plan"`
	Amps   int                `json:"amps"`
	Power  float64            `json:"power"`
	Reason engine.Reason      `json:"reason"`
}

// CycleRecord captures one control cycle: the snapshot, the derived
// strategy and budgets, the projection of every plan and the final target.
type CycleRecord struct {
	ID          string                `json:"id"`
	Time        time.Time             `json:"time"`
	Snapshot    model.Snapshot        `json:"snapshot"`
	Strategy    model.BatteryStrategy `json:"strategy"`
	Budgets     engine.Budgets        `json:"budgets"`
	Plans       []PlanProjection      `json:"plans"`
	ActivePlan  model.ChargingPlan    `json:"active_plan"`
	TargetAmps  int                   `json:"target_amps"`
	TargetPower float64               `json:"target_power"`
}

// Projection returns the projection recorded for plan.
func (r CycleRecord) Projection(plan model.ChargingPlan) (PlanProjection, bool) {
	for _, p := range r.Plans {
		if p.Plan == plan {
			return p, true
		}
	}
	return PlanProjection{Plan: plan}, false
}

// Sink records one entry per control cycle.
type Sink interface {
	RecordCycle(rec CycleRecord) error
}

// EventRecorder is implemented by sinks able to record charging events.
type EventRecorder interface {
	RecordEvent(ev events.Event) error
}

// HistoryReader is implemented by sinks that can read back recent cycles,
// newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]CycleRecord, error)
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleRecord) error  { return nil }
func (NopSink) RecordEvent(events.Event) error { return nil }
