package homeassistant

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ModeMock swaps the REST client for the in-memory wallbox.
const ModeMock = "mock"

// Entities holds the Home Assistant entities the controller drives.
type Entities struct {
	SwitchSetCharging     string `json:"switch_set_charging"`
	NumberSetChargingAmps string `json:"number_set_charging_amps"`
	InputSelectPlan       string `json:"input_select_charging_plan"`
}

// Templates holds the Jinja templates rendered for each reading.
type Templates struct {
	ChargingAmps     string `json:"charging_amps"`
	ChargingLimit    string `json:"charging_limit"`
	ChargingPlan     string `json:"charging_plan"`
	TopUpLimit       string `json:"top_up_limit"`
	InverterSoC      string `json:"inverter_soc"`
	CarSoC           string `json:"car_soc"`
	BatteryLoad      string `json:"battery_load"`
	TotalLoad        string `json:"total_load"`
	GridPower        string `json:"grid_power"`
	PVPower          string `json:"pv_power"`
	ChargerConnected string `json:"charger_connected"`
	IsCharging       string `json:"is_charging"`
}

// Config configures the Home Assistant REST connection.
type Config struct {
	URL            string    `json:"url"`
	Token          string    `json:"token"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Mode           string    `json:"mode"`
	NotifyService  string    `json:"notify_service"`
	Entities       Entities  `json:"entities"`
	Templates      Templates `json:"templates"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	c.URL = strings.TrimRight(c.URL, "/")
}

// Validate checks that every template and entity is set. Mock mode only
// needs defaults.
func (c Config) Validate() error {
	if c.Mode == ModeMock {
		return nil
	}
	if c.Mode != "" {
		return fmt.Errorf("api.mode: unknown mode %q", c.Mode)
	}
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("api.url is required"))
	}
	if c.Token == "" {
		errs = append(errs, errors.New("api.token is required"))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("api.timeout_seconds must not be negative"))
	}
	required := map[string]string{
		"entities.switch_set_charging":        c.Entities.SwitchSetCharging,
		"entities.number_set_charging_amps":   c.Entities.NumberSetChargingAmps,
		"entities.input_select_charging_plan": c.Entities.InputSelectPlan,
		"templates.charging_amps":             c.Templates.ChargingAmps,
		"templates.charging_limit":            c.Templates.ChargingLimit,
		"templates.charging_plan":             c.Templates.ChargingPlan,
		"templates.top_up_limit":              c.Templates.TopUpLimit,
		"templates.inverter_soc":              c.Templates.InverterSoC,
		"templates.car_soc":                   c.Templates.CarSoC,
		"templates.battery_load":              c.Templates.BatteryLoad,
		"templates.total_load":                c.Templates.TotalLoad,
		"templates.grid_power":                c.Templates.GridPower,
		"templates.pv_power":                  c.Templates.PVPower,
		"templates.charger_connected":         c.Templates.ChargerConnected,
		"templates.is_charging":               c.Templates.IsCharging,
	}
	for _, k := range slices.Sorted(maps.Keys(required)) {
		if required[k] == "" {
			errs = append(errs, fmt.Errorf("api.%s is required", k))
		}
	}
	return errors.Join(errs...)
}
