package engine

import (
	"time"
)

func testConfig() Config {
	return Config{
		MinAmps:         6,
		MaxAmps:         16,
		MinPower:        1380,
		MaxPower:        3680,
		Volts:           230,
		Phases:          1,
		Efficiency:      1.0,
		BatteryCapacity: 60000,
		PollInterval:    30 * time.Second,
		Night:           Window{Start: 22 * time.Hour, End: 6 * time.Hour},
		RecalcInterval:  15 * time.Minute,
		Scheduled:       NewScheduledWindow(1 * time.Hour),
		Battery: BatteryThresholds{
			NoChargingSoC:           10,
			ReserveSoC:              30,
			ReservePower:            1000,
			PeakShavingMinimalSoC:   60,
			PeakShavingMinimalPower: 2000,
			PeakShavingPower:        4000,
		},
		Location: time.UTC,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}
