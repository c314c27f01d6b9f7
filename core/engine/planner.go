package engine

import (
	"math"
	"time"

	"github.com/kilianp07/chargectl/core/model"
)

// Reason explains why the planner chose its amps.
type Reason string

const (
	ReasonCarSoCUnavailable Reason = "car_soc_unavailable"
	ReasonCarFull           Reason = "car_full"
	ReasonInsufficientPower Reason = "insufficient_power"
	ReasonBelowMinAmps      Reason = "below_min_amps"
	ReasonNotNight          Reason = "not_night"
	ReasonNightEnding       Reason = "night_ending"
	ReasonNightlyCached     Reason = "nightly_cached"
	ReasonNightlyPlanned    Reason = "nightly_planned"
	ReasonMaxAvailable      Reason = "max_available"
	ReasonUnknownPlan       Reason = "unknown_plan"
)

// nightEndingFactor is how many poll intervals before the end of the night
// window the nightly plan hands over to max speed.
const nightEndingFactor = 1.2

// NightlyState is the nightly plan's amps cache carried between cycles.
// CachedAmps is only meaningful while LastCalc is set.
type NightlyState struct {
	LastCalc   time.Time
	CachedAmps int
}

// Valid reports whether the cache holds a computed value.
func (s NightlyState) Valid() bool { return !s.LastCalc.IsZero() }

// PlanInput is what the planner needs to size one plan.
type PlanInput struct {
	Plan   model.ChargingPlan
	Budget float64
	CarSoC float64
	Limit  float64
	Now    time.Time
}

// Decision is the planner result. When OverrideRequested is set the caller
// must switch the active plan to Override.
type Decision struct {
	Amps              int                `json:"amps"`
	Reason            Reason             `json:"reason"`
	OverrideRequested bool               `json:"override_requested,omitempty"`
	Override          model.ChargingPlan `json:"override,omitempty"`
}

// PowerAt reports the charging power of the decision.
func (d Decision) PowerAt(cfg Config) float64 { return cfg.PowerAt(d.Amps) }

// PlanAmps turns the power budget for a plan into target amps. It is pure:
// the nightly cache comes in as st and the updated cache is returned.
func PlanAmps(cfg Config, in PlanInput, st NightlyState) (Decision, NightlyState) {
	if math.IsNaN(in.CarSoC) {
		return Decision{Reason: ReasonCarSoCUnavailable}, st
	}
	if in.CarSoC >= in.Limit {
		return Decision{Reason: ReasonCarFull}, st
	}
	if math.IsNaN(in.Budget) || math.IsInf(in.Budget, 0) || in.Budget < cfg.MinChargePower() {
		return Decision{Reason: ReasonInsufficientPower}, st
	}
	// capped at max_amps so the int conversion cannot overflow
	steps := min(math.Floor(in.Budget/cfg.AmpStep()), float64(cfg.MaxAmps))
	fromBudget := int(steps)
	if fromBudget < cfg.MinAmps {
		return Decision{Reason: ReasonBelowMinAmps}, st
	}
	upper := min(fromBudget, cfg.MaxAmps)

	plan := in.Plan
	night, remaining := NightStatus(cfg, in.Now)
	if plan == model.PlanSolarPlusNightly {
		if night {
			plan = model.PlanNightly
		} else {
			plan = model.PlanSolarOnly
		}
	}

	switch plan {
	case model.PlanNightly:
		return planNightly(cfg, in, st, night, remaining, upper)
	case model.PlanManual, model.PlanSolarOnly, model.PlanMinPlusSolar, model.PlanMinBatteryLoad, model.PlanMaxSpeed:
		return Decision{Amps: upper, Reason: ReasonMaxAvailable}, NightlyState{}
	default:
		return Decision{Reason: ReasonUnknownPlan}, st
	}
}

func planNightly(cfg Config, in PlanInput, st NightlyState, night bool, remaining time.Duration, upper int) (Decision, NightlyState) {
	if !night {
		return Decision{Reason: ReasonNotNight}, NightlyState{}
	}
	if float64(remaining) < nightEndingFactor*float64(cfg.PollInterval) {
		return Decision{
			Amps:              upper,
			Reason:            ReasonNightEnding,
			OverrideRequested: true,
			Override:          model.PlanMaxSpeed,
		}, NightlyState{}
	}
	if st.Valid() && in.Now.Sub(st.LastCalc) < cfg.RecalcInterval {
		return Decision{Amps: min(st.CachedAmps, upper), Reason: ReasonNightlyCached}, st
	}
	remainingWh := cfg.BatteryCapacity * (in.Limit - in.CarSoC) / 100
	required := int(math.Ceil(remainingWh / (remaining.Hours() * cfg.Volts * cfg.Phases)))
	amps := min(max(required, cfg.MinAmps), upper)
	return Decision{Amps: amps, Reason: ReasonNightlyPlanned}, NightlyState{LastCalc: in.Now, CachedAmps: amps}
}
