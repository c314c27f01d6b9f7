package model

import (
	"fmt"
	"strings"
)

// ChargingPlan is the user selected charging strategy exposed by the
// charging plan input_select in Home Assistant.
type ChargingPlan int

const (
	PlanManual ChargingPlan = iota
	PlanSolarOnly
	PlanMinPlusSolar
	PlanNightly
	PlanSolarPlusNightly
	PlanMinBatteryLoad
	PlanMaxSpeed
)

// Plans lists every charging plan in display order.
var Plans = []ChargingPlan{
	PlanManual,
	PlanSolarOnly,
	PlanMinPlusSolar,
	PlanNightly,
	PlanSolarPlusNightly,
	PlanMinBatteryLoad,
	PlanMaxSpeed,
}

// Label returns the option label used by the Home Assistant input_select.
func (p ChargingPlan) Label() string {
	switch p {
	case PlanManual:
		return "Manual"
	case PlanSolarOnly:
		return "Solar only"
	case PlanMinPlusSolar:
		return "Min + Solar"
	case PlanNightly:
		return "Nightly"
	case PlanSolarPlusNightly:
		return "Solar + Nightly"
	case PlanMinBatteryLoad:
		return "Min battery load"
	case PlanMaxSpeed:
		return "Max speed"
	default:
		return fmt.Sprintf("ChargingPlan(%d)", int(p))
	}
}

// Key returns a stable snake_case identifier used in metric labels,
// MQTT topics and database columns.
func (p ChargingPlan) Key() string {
	switch p {
	case PlanManual:
		return "manual"
	case PlanSolarOnly:
		return "solar_only"
	case PlanMinPlusSolar:
		return "min_plus_solar"
	case PlanNightly:
		return "nightly"
	case PlanSolarPlusNightly:
		return "solar_plus_nightly"
	case PlanMinBatteryLoad:
		return "min_battery_load"
	case PlanMaxSpeed:
		return "max_speed"
	default:
		return "unknown"
	}
}

func (p ChargingPlan) String() string { return p.Label() }

// MarshalText encodes the plan as its key.
func (p ChargingPlan) MarshalText() ([]byte, error) { return []byte(p.Key()), nil }

// UnmarshalText accepts either a key or a Home Assistant label.
func (p *ChargingPlan) UnmarshalText(b []byte) error {
	v, ok := LookupChargingPlan(string(b))
	if !ok {
		return fmt.Errorf("unknown charging plan %q", string(b))
	}
	*p = v
	return nil
}

// LookupChargingPlan resolves a label or key to a plan.
func LookupChargingPlan(s string) (ChargingPlan, bool) {
	s = strings.TrimSpace(s)
	for _, p := range Plans {
		if s == p.Label() || strings.EqualFold(s, p.Key()) {
			return p, true
		}
	}
	return PlanManual, false
}

// ParseChargingPlan resolves a Home Assistant option label. Unrecognised
// values degrade to PlanManual so an unexpected input_select option hands
// control back to the user.
func ParseChargingPlan(s string) ChargingPlan {
	p, _ := LookupChargingPlan(s)
	return p
}
