package engine

import (
	"math"

	"github.com/kilianp07/chargectl/core/model"
)

// ClassifyBattery maps the inverter SoC onto a battery strategy using
// first-match ascending thresholds. An unavailable (NaN) SoC is treated as
// NoCharging so a missing reading never unlocks battery assistance.
func ClassifyBattery(t BatteryThresholds, soc float64) model.BatteryStrategy {
	switch {
	case math.IsNaN(soc):
		return model.BatteryNoCharging
	case soc < t.NoChargingSoC:
		return model.BatteryNoCharging
	case soc < t.ReserveSoC:
		return model.BatteryReserve
	case soc < t.PeakShavingMinimalSoC:
		return model.BatteryPeakShavingMinimal
	default:
		return model.BatteryPeakShaving
	}
}

// GridCeiling is the maximum grid assisted charging power for a strategy.
func GridCeiling(t BatteryThresholds, s model.BatteryStrategy) float64 {
	switch s {
	case model.BatteryReserve:
		return t.ReservePower
	case model.BatteryPeakShavingMinimal:
		return t.PeakShavingMinimalPower
	case model.BatteryPeakShaving:
		return t.PeakShavingPower
	default:
		return 0
	}
}
