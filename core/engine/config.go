package engine

import (
	"errors"
	"fmt"
	"time"
)

// BatteryThresholds are the ascending inverter SoC cutoffs and the grid
// assisted charging ceilings that go with each battery strategy.
type BatteryThresholds struct {
	NoChargingSoC           float64
	ReserveSoC              float64
	ReservePower            float64
	PeakShavingMinimalSoC   float64
	PeakShavingMinimalPower float64
	PeakShavingPower        float64
}

// Config holds the immutable charger and household parameters the engine
// decides with.
type Config struct {
	MinAmps int
	MaxAmps int
	// MinPower is the draw at MinAmps in watts.
	MinPower        float64
	MaxPower        float64
	Volts           float64
	Phases          float64
	Efficiency      float64
	BatteryCapacity float64 // Wh

	PollInterval   time.Duration
	Night          Window
	RecalcInterval time.Duration
	Scheduled      Window

	Battery  BatteryThresholds
	Location *time.Location
}

// MinChargePower is the minimum draw adjusted for charging losses.
func (c Config) MinChargePower() float64 { return c.MinPower * c.Efficiency }

// AmpStep is the power in watts drawn by one amp across all phases.
func (c Config) AmpStep() float64 { return c.Phases * c.Volts * c.Efficiency }

// PowerAt converts amps into the charging power they represent.
func (c Config) PowerAt(amps int) float64 { return float64(amps) * c.AmpStep() }

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Validate reports configuration values the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.MinAmps <= 0 {
		errs = append(errs, fmt.Errorf("min_amps must be positive"))
	}
	if c.MaxAmps < c.MinAmps {
		errs = append(errs, fmt.Errorf("max_amps %d below min_amps %d", c.MaxAmps, c.MinAmps))
	}
	if c.Volts <= 0 || c.Phases <= 0 {
		errs = append(errs, fmt.Errorf("volts and phases must be positive"))
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		errs = append(errs, fmt.Errorf("charge_efficiency_factor must be in (0,1]"))
	}
	if c.BatteryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("vehicle_battery_capacity must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if err := c.Night.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("nightly window: %w", err))
	}
	b := c.Battery
	if !(b.NoChargingSoC <= b.ReserveSoC && b.ReserveSoC <= b.PeakShavingMinimalSoC) {
		errs = append(errs, fmt.Errorf("battery soc thresholds must be ascending"))
	}
	return errors.Join(errs...)
}
