package model

import (
	"encoding/json"
	"math"
	"time"
)

// Snapshot is one polling cycle's view of the charger and the home.
// Powers are in watts, SoC and limits in percent. CarSoC and InverterSoC are
// NaN when the sensor reports unavailable.
type Snapshot struct {
	Time             time.Time
	ChargingAmps     int
	ChargingLimit    int
	Plan             ChargingPlan
	TopUpLimit       int
	InverterSoC      float64
	CarSoC           float64
	BatteryLoad      float64
	TotalLoad        float64
	GridPower        float64
	PVPower          float64
	ChargerConnected bool
	Charging         bool
}

type snapshotJSON struct {
	Time             time.Time    `json:"time"`
	ChargingAmps     int          `json:"charging_amps"`
	ChargingLimit    int          `json:"charging_limit"`
	Plan             ChargingPlan `json:"charging_plan"`
	TopUpLimit       int          `json:"top_up_limit"`
	InverterSoC      *float64     `json:"inverter_soc"`
	CarSoC           *float64     `json:"car_soc"`
	BatteryLoad      float64      `json:"battery_load"`
	TotalLoad        float64      `json:"total_load"`
	GridPower        float64      `json:"grid_power"`
	PVPower          float64      `json:"pv_power"`
	ChargerConnected bool         `json:"charger_connected"`
	Charging         bool         `json:"charging"`
}

// MarshalJSON encodes unavailable SoC readings as null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Time:             s.Time,
		ChargingAmps:     s.ChargingAmps,
		ChargingLimit:    s.ChargingLimit,
		Plan:             s.Plan,
		TopUpLimit:       s.TopUpLimit,
		InverterSoC:      nullable(s.InverterSoC),
		CarSoC:           nullable(s.CarSoC),
		BatteryLoad:      s.BatteryLoad,
		TotalLoad:        s.TotalLoad,
		GridPower:        s.GridPower,
		PVPower:          s.PVPower,
		ChargerConnected: s.ChargerConnected,
		Charging:         s.Charging,
	})
}

// UnmarshalJSON restores null SoC readings as NaN.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var v snapshotJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Snapshot{
		Time:             v.Time,
		ChargingAmps:     v.ChargingAmps,
		ChargingLimit:    v.ChargingLimit,
		Plan:             v.Plan,
		TopUpLimit:       v.TopUpLimit,
		InverterSoC:      fromNullable(v.InverterSoC),
		CarSoC:           fromNullable(v.CarSoC),
		BatteryLoad:      v.BatteryLoad,
		TotalLoad:        v.TotalLoad,
		GridPower:        v.GridPower,
		PVPower:          v.PVPower,
		ChargerConnected: v.ChargerConnected,
		Charging:         v.Charging,
	}
	return nil
}

func nullable(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func fromNullable(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
