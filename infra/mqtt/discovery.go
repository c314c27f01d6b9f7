package mqtt

import (
	"encoding/json"
	"strconv"

	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
)

// component is one Home Assistant sensor published per cycle.
type component struct {
	ID          string
	Name        string
	Unit        string
	DeviceClass string
	value       func(coremetrics.CycleRecord) string
}

func watts(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func planAmps(p model.ChargingPlan) func(coremetrics.CycleRecord) string {
	return func(r coremetrics.CycleRecord) string {
		proj, _ := r.Projection(p)
		return strconv.Itoa(proj.Amps)
	}
}

var components = []component{
	{"max_power_solar", "Max power solar", "W", "power", func(r coremetrics.CycleRecord) string { return watts(r.Budgets.SolarOnly) }},
	{"max_power_min_solar", "Max power min + solar", "W", "power", func(r coremetrics.CycleRecord) string { return watts(r.Budgets.MinPlusSolar) }},
	{"max_power_min_battery", "Max power min battery load", "W", "power", func(r coremetrics.CycleRecord) string { return watts(r.Budgets.MinBatteryLoad) }},
	{"max_power_full", "Max power full", "W", "power", func(r coremetrics.CycleRecord) string { return watts(r.Budgets.Full) }},
	{"plan_amps_solar_only", "Amps solar only", "A", "current", planAmps(model.PlanSolarOnly)},
	{"plan_amps_min_solar", "Amps min + solar", "A", "current", planAmps(model.PlanMinPlusSolar)},
	{"plan_amps_nightly", "Amps nightly", "A", "current", planAmps(model.PlanNightly)},
	{"plan_amps_solar_nightly", "Amps solar + nightly", "A", "current", planAmps(model.PlanSolarPlusNightly)},
	{"plan_amps_min_battery", "Amps min battery load", "A", "current", planAmps(model.PlanMinBatteryLoad)},
	{"plan_amps_max_speed", "Amps max speed", "A", "current", planAmps(model.PlanMaxSpeed)},
	{"target_amps", "Target amps", "A", "current", func(r coremetrics.CycleRecord) string { return strconv.Itoa(r.TargetAmps) }},
	{"battery_strategy", "Battery strategy", "", "enum", func(r coremetrics.CycleRecord) string { return r.Strategy.String() }},
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

type discoveryOrigin struct {
	Name string `json:"name"`
}

type discoveryComponent struct {
	Platform          string   `json:"platform"`
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Options           []string `json:"options,omitempty"`
}

type discoveryPayload struct {
	Device            discoveryDevice               `json:"device"`
	Origin            discoveryOrigin               `json:"origin"`
	AvailabilityTopic string                        `json:"availability_topic"`
	Components        map[string]discoveryComponent `json:"components"`
}

// DiscoveryPayload builds the retained device discovery message.
func DiscoveryPayload(cfg Config) ([]byte, error) {
	p := discoveryPayload{
		Device: discoveryDevice{
			Identifiers:  []string{cfg.DeviceID},
			Name:         cfg.DeviceName,
			Manufacturer: "chargectl",
			Model:        "EV charge controller",
		},
		Origin:            discoveryOrigin{Name: "chargectl"},
		AvailabilityTopic: cfg.AvailabilityTopic(),
		Components:        make(map[string]discoveryComponent, len(components)),
	}
	for _, c := range components {
		dc := discoveryComponent{
			Platform:          "sensor",
			Name:              c.Name,
			UniqueID:          cfg.DeviceID + "_" + c.ID,
			StateTopic:        cfg.StateTopic(c.ID),
			UnitOfMeasurement: c.Unit,
			DeviceClass:       c.DeviceClass,
		}
		if c.DeviceClass == "enum" {
			for _, s := range []model.BatteryStrategy{model.BatteryNoCharging, model.BatteryReserve, model.BatteryPeakShavingMinimal, model.BatteryPeakShaving} {
				dc.Options = append(dc.Options, s.String())
			}
		} else {
			dc.StateClass = "measurement"
		}
		p.Components[c.ID] = dc
	}
	return json.Marshal(p)
}
