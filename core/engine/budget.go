package engine

import (
	"math"

	"github.com/kilianp07/chargectl/core/model"
)

// PowerInput carries the household readings a budget is computed from.
type PowerInput struct {
	PV          float64
	Load        float64
	BatteryLoad float64
}

// PowerInputFrom extracts the budget inputs from a snapshot.
func PowerInputFrom(s model.Snapshot) PowerInput {
	return PowerInput{PV: s.PVPower, Load: s.TotalLoad, BatteryLoad: s.BatteryLoad}
}

// SourceBudget returns the charging power available in watts when funding
// charging from src under strategy. The result is never negative.
func SourceBudget(cfg Config, src model.PowerSource, strategy model.BatteryStrategy, in PowerInput) float64 {
	ceiling := GridCeiling(cfg.Battery, strategy)
	if ceiling < cfg.MinChargePower() {
		return 0
	}
	surplus := in.PV - in.Load
	switch src {
	case model.SourceSolarOnly:
		return math.Max(0, surplus)
	case model.SourceMinPlusSolar:
		return math.Max(cfg.MinChargePower(), surplus)
	case model.SourceMinBatteryLoad:
		if strategy == model.BatteryPeakShaving {
			ceiling = GridCeiling(cfg.Battery, model.BatteryPeakShavingMinimal)
		}
		return math.Max(0, surplus-in.BatteryLoad+ceiling)
	case model.SourceFull:
		return math.Max(0, surplus+ceiling)
	default:
		return 0
	}
}

// Budgets holds the budget of every power source for one cycle.
type Budgets struct {
	NoCharging     float64 `json:"no_charging"`
	SolarOnly      float64 `json:"solar_only"`
	MinPlusSolar   float64 `json:"min_plus_solar"`
	MinBatteryLoad float64 `json:"min_bat_load"`
	Full           float64 `json:"full"`
}

// ComputeBudgets evaluates SourceBudget for every power source.
func ComputeBudgets(cfg Config, strategy model.BatteryStrategy, in PowerInput) Budgets {
	return Budgets{
		NoCharging:     SourceBudget(cfg, model.SourceNoCharging, strategy, in),
		SolarOnly:      SourceBudget(cfg, model.SourceSolarOnly, strategy, in),
		MinPlusSolar:   SourceBudget(cfg, model.SourceMinPlusSolar, strategy, in),
		MinBatteryLoad: SourceBudget(cfg, model.SourceMinBatteryLoad, strategy, in),
		Full:           SourceBudget(cfg, model.SourceFull, strategy, in),
	}
}

// Get returns the budget for src.
func (b Budgets) Get(src model.PowerSource) float64 {
	switch src {
	case model.SourceSolarOnly:
		return b.SolarOnly
	case model.SourceMinPlusSolar:
		return b.MinPlusSolar
	case model.SourceMinBatteryLoad:
		return b.MinBatteryLoad
	case model.SourceFull:
		return b.Full
	default:
		return b.NoCharging
	}
}

// PowerSourceFor maps a plan to the power source funding it. SolarPlusNightly
// uses the full budget during the night window and solar surplus otherwise.
func PowerSourceFor(plan model.ChargingPlan, night bool) model.PowerSource {
	switch plan {
	case model.PlanSolarOnly:
		return model.SourceSolarOnly
	case model.PlanMinPlusSolar:
		return model.SourceMinPlusSolar
	case model.PlanMinBatteryLoad:
		return model.SourceMinBatteryLoad
	case model.PlanSolarPlusNightly:
		if night {
			return model.SourceFull
		}
		return model.SourceSolarOnly
	case model.PlanManual, model.PlanNightly, model.PlanMaxSpeed:
		return model.SourceFull
	default:
		return model.SourceNoCharging
	}
}
