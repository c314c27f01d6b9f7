package model

import "fmt"

// BatteryStrategy describes how much the home battery may assist charging,
// derived from the inverter state of charge.
type BatteryStrategy int

const (
	BatteryNoCharging BatteryStrategy = iota
	BatteryReserve
	BatteryPeakShavingMinimal
	BatteryPeakShaving
)

func (s BatteryStrategy) String() string {
	switch s {
	case BatteryNoCharging:
		return "no_charging"
	case BatteryReserve:
		return "reserve"
	case BatteryPeakShavingMinimal:
		return "peak_shaving_minimal"
	case BatteryPeakShaving:
		return "peak_shaving"
	default:
		return fmt.Sprintf("BatteryStrategy(%d)", int(s))
	}
}

// MarshalText encodes the strategy name.
func (s BatteryStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a strategy name.
func (s *BatteryStrategy) UnmarshalText(b []byte) error {
	for _, v := range []BatteryStrategy{BatteryNoCharging, BatteryReserve, BatteryPeakShavingMinimal, BatteryPeakShaving} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown battery strategy %q", string(b))
}

// PowerSource selects which supplies may fund charging.
type PowerSource int

const (
	SourceNoCharging PowerSource = iota
	SourceSolarOnly
	SourceMinPlusSolar
	SourceMinBatteryLoad
	SourceFull
)

// PowerSources lists every power source.
var PowerSources = []PowerSource{
	SourceNoCharging,
	SourceSolarOnly,
	SourceMinPlusSolar,
	SourceMinBatteryLoad,
	SourceFull,
}

func (s PowerSource) String() string {
	switch s {
	case SourceNoCharging:
		return "no_charging"
	case SourceSolarOnly:
		return "solar_only"
	case SourceMinPlusSolar:
		return "min_plus_solar"
	case SourceMinBatteryLoad:
		return "min_bat_load"
	case SourceFull:
		return "full"
	default:
		return fmt.Sprintf("PowerSource(%d)", int(s))
	}
}
