package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kilianp07/chargectl/core/engine"
)

// NightlyConfig is the cheap tariff window.
type NightlyConfig struct {
	Start string `json:"start"`
	End   string `json:"end"`
	// RecalcInterval is how long, in seconds, a nightly amps plan is reused.
	RecalcInterval int `json:"recalc_interval"`
}

// ScheduledConfig is the start of the vehicle's own charging schedule. An
// empty start means the car has no schedule, so every unexpected charging
// start is treated as a manual change.
type ScheduledConfig struct {
	Start string `json:"start"`
}

// ChargerConfig describes the wallbox and the car.
type ChargerConfig struct {
	MinAmps                int     `json:"min_amps"`
	MaxAmps                int     `json:"max_amps"`
	MinPower               float64 `json:"min_power"`
	MaxPower               float64 `json:"max_power"`
	VehicleBatteryCapacity float64 `json:"vehicle_battery_capacity"`
	Phases                 float64 `json:"phases"`
	Volts                  float64 `json:"volts"`
	// PollInterval is the cycle period in seconds.
	PollInterval           int             `json:"poll_interval"`
	ChargeEfficiencyFactor float64         `json:"charge_efficiency_factor"`
	Timezone               string          `json:"timezone"`
	Nightly                NightlyConfig   `json:"nightly"`
	Scheduled              ScheduledConfig `json:"scheduled"`
}

// SetDefaults applies sane defaults.
func (c *ChargerConfig) SetDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 30
	}
	if c.ChargeEfficiencyFactor == 0 {
		c.ChargeEfficiencyFactor = 1
	}
	if c.Nightly.RecalcInterval == 0 {
		c.Nightly.RecalcInterval = 900
	}
	if c.Phases == 0 {
		c.Phases = 1
	}
	if c.Volts == 0 {
		c.Volts = 230
	}
}

// Threshold is one battery level: the SoC it applies below and the grid
// assisted charging ceiling in watts.
type Threshold struct {
	SoC      float64 `json:"soc"`
	MaxPower float64 `json:"max_power"`
}

// BatteryConfig holds the home battery strategy thresholds.
type BatteryConfig struct {
	NoCharging         Threshold `json:"no_charging"`
	Reserve            Threshold `json:"reserve"`
	PeakShavingMinimal Threshold `json:"peak_shaving_minimal"`
	PeakShaving        Threshold `json:"peak_shaving"`
}

// Thresholds converts the config into engine thresholds.
func (b BatteryConfig) Thresholds() engine.BatteryThresholds {
	return engine.BatteryThresholds{
		NoChargingSoC:           b.NoCharging.SoC,
		ReserveSoC:              b.Reserve.SoC,
		ReservePower:            b.Reserve.MaxPower,
		PeakShavingMinimalSoC:   b.PeakShavingMinimal.SoC,
		PeakShavingMinimalPower: b.PeakShavingMinimal.MaxPower,
		PeakShavingPower:        b.PeakShaving.MaxPower,
	}
}

// Engine converts the charger and battery sections into the validated
// engine configuration.
func (c *Config) Engine() (engine.Config, error) {
	ch := c.Charger
	start, err := engine.ParseClock(ch.Nightly.Start)
	if err != nil {
		return engine.Config{}, fmt.Errorf("charger.nightly.start: %w", err)
	}
	end, err := engine.ParseClock(ch.Nightly.End)
	if err != nil {
		return engine.Config{}, fmt.Errorf("charger.nightly.end: %w", err)
	}
	var scheduled engine.Window
	if ch.Scheduled.Start != "" {
		sched, err := engine.ParseClock(ch.Scheduled.Start)
		if err != nil {
			return engine.Config{}, fmt.Errorf("charger.scheduled.start: %w", err)
		}
		scheduled = engine.NewScheduledWindow(sched)
	}
	loc := time.Local
	if ch.Timezone != "" {
		if loc, err = time.LoadLocation(ch.Timezone); err != nil {
			return engine.Config{}, fmt.Errorf("charger.timezone: %w", err)
		}
	}
	ec := engine.Config{
		MinAmps:         ch.MinAmps,
		MaxAmps:         ch.MaxAmps,
		MinPower:        ch.MinPower,
		MaxPower:        ch.MaxPower,
		Volts:           ch.Volts,
		Phases:          ch.Phases,
		Efficiency:      ch.ChargeEfficiencyFactor,
		BatteryCapacity: ch.VehicleBatteryCapacity,
		PollInterval:    time.Duration(ch.PollInterval) * time.Second,
		Night:           engine.Window{Start: start, End: end},
		RecalcInterval:  time.Duration(ch.Nightly.RecalcInterval) * time.Second,
		Scheduled:       scheduled,
		Battery:         c.Battery.Thresholds(),
		Location:        loc,
	}
	if err := ec.Validate(); err != nil {
		return engine.Config{}, err
	}
	return ec, nil
}
