package charging

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
)

// PlanOutcome is the planner decision for one plan.
type PlanOutcome struct {
	Plan     model.ChargingPlan
	Source   model.PowerSource
	Decision engine.Decision
}

// Evaluation is everything the engine derives from one snapshot.
type Evaluation struct {
	Strategy  model.BatteryStrategy
	Budgets   engine.Budgets
	Night     bool
	Scheduled bool
	Plans     []PlanOutcome
	// Active is the decision for the snapshot's plan.
	Active engine.Decision
	// Nightly is the planner state to carry into the next cycle. Only the
	// active plan's planner run contributes to it.
	Nightly engine.NightlyState
}

// Evaluate classifies the battery strategy, computes every budget and runs
// the planner for every plan. The projections for inactive plans never
// touch the nightly state.
func Evaluate(cfg engine.Config, snap model.Snapshot, now time.Time, st engine.NightlyState) Evaluation {
	strategy := engine.ClassifyBattery(cfg.Battery, snap.InverterSoC)
	budgets := engine.ComputeBudgets(cfg, strategy, engine.PowerInputFrom(snap))
	night, _ := engine.NightStatus(cfg, now)
	ev := Evaluation{
		Strategy:  strategy,
		Budgets:   budgets,
		Night:     night,
		Scheduled: engine.InScheduledWindow(cfg, now),
		Nightly:   st,
	}
	for _, p := range model.Plans {
		src := engine.PowerSourceFor(p, night)
		d, next := engine.PlanAmps(cfg, engine.PlanInput{
			Plan:   p,
			Budget: budgets.Get(src),
			CarSoC: snap.CarSoC,
			Limit:  float64(snap.ChargingLimit),
			Now:    now,
		}, st)
		ev.Plans = append(ev.Plans, PlanOutcome{Plan: p, Source: src, Decision: d})
		if p == snap.Plan {
			ev.Active = d
			ev.Nightly = next
		}
	}
	return ev
}

// Record converts the evaluation into the per-cycle metrics record.
func (e Evaluation) Record(cfg engine.Config, snap model.Snapshot, now time.Time) metrics.CycleRecord {
	rec := metrics.CycleRecord{
		ID:          uuid.NewString(),
		Time:        now,
		Snapshot:    snap,
		Strategy:    e.Strategy,
		Budgets:     e.Budgets,
		ActivePlan:  snap.Plan,
		TargetAmps:  e.Active.Amps,
		TargetPower: cfg.PowerAt(e.Active.Amps),
	}
	for _, p := range e.Plans {
		rec.Plans = append(rec.Plans, metrics.PlanProjection{
			Plan:   p.Plan,
			Amps:   p.Decision.Amps,
			Power:  cfg.PowerAt(p.Decision.Amps),
			Reason: p.Decision.Reason,
		})
	}
	return rec
}
