package metrics

import (
	"math"
	"time"

	"github.com/kilianp07/chargectl/core/engine"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
)

func sampleRecord(at time.Time, target int) coremetrics.CycleRecord {
	rec := coremetrics.CycleRecord{
		ID:   "cycle-" + at.Format("150405"),
		Time: at,
		Snapshot: model.Snapshot{
			Time:             at,
			ChargingAmps:     8,
			ChargingLimit:    80,
			Plan:             model.PlanSolarOnly,
			TopUpLimit:       75,
			InverterSoC:      65,
			CarSoC:           math.NaN(),
			BatteryLoad:      -200,
			TotalLoad:        1000,
			GridPower:        50,
			PVPower:          3000,
			ChargerConnected: true,
			Charging:         true,
		},
		Strategy: model.BatteryPeakShaving,
		Budgets: engine.Budgets{
			SolarOnly:      2000,
			MinPlusSolar:   2000,
			MinBatteryLoad: 4200,
			Full:           6000,
		},
		ActivePlan:  model.PlanSolarOnly,
		TargetAmps:  target,
		TargetPower: float64(target) * 230,
	}
	for _, p := range model.Plans {
		rec.Plans = append(rec.Plans, coremetrics.PlanProjection{Plan: p, Amps: target, Power: float64(target) * 230, Reason: engine.ReasonMaxAvailable})
	}
	return rec
}
