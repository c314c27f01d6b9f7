package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargectl/core/model"
)

func TestPlanAmpsGuards(t *testing.T) {
	cfg := testConfig()
	noon := at(12, 0)
	cases := []struct {
		name   string
		in     PlanInput
		reason Reason
	}{
		{"soc unavailable", PlanInput{Plan: model.PlanSolarOnly, Budget: 5000, CarSoC: math.NaN(), Limit: 80, Now: noon}, ReasonCarSoCUnavailable},
		{"car full", PlanInput{Plan: model.PlanSolarOnly, Budget: 5000, CarSoC: 80, Limit: 80, Now: noon}, ReasonCarFull},
		{"insufficient", PlanInput{Plan: model.PlanSolarOnly, Budget: 1379, CarSoC: 50, Limit: 80, Now: noon}, ReasonInsufficientPower},
		{"nan budget", PlanInput{Plan: model.PlanMaxSpeed, Budget: math.NaN(), CarSoC: 50, Limit: 80, Now: noon}, ReasonInsufficientPower},
		{"infinite budget", PlanInput{Plan: model.PlanMaxSpeed, Budget: math.Inf(1), CarSoC: 50, Limit: 80, Now: noon}, ReasonInsufficientPower},
		{"not night", PlanInput{Plan: model.PlanNightly, Budget: 5000, CarSoC: 50, Limit: 80, Now: noon}, ReasonNotNight},
		{"unknown plan", PlanInput{Plan: model.ChargingPlan(42), Budget: 5000, CarSoC: 50, Limit: 80, Now: noon}, ReasonUnknownPlan},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, _ := PlanAmps(cfg, c.in, NightlyState{})
			assert.Equal(t, 0, d.Amps)
			assert.Equal(t, c.reason, d.Reason)
			assert.False(t, d.OverrideRequested)
		})
	}
}

func TestPlanAmpsBelowMinAmps(t *testing.T) {
	cfg := testConfig()
	cfg.MinPower = 900
	// 1300W / 230 = 5A which is below the 6A minimum
	d, _ := PlanAmps(cfg, PlanInput{Plan: model.PlanSolarOnly, Budget: 1300, CarSoC: 50, Limit: 80, Now: at(12, 0)}, NightlyState{})
	if d.Amps != 0 || d.Reason != ReasonBelowMinAmps {
		t.Fatalf("got %+v", d)
	}
}

func TestPlanAmpsHugeBudget(t *testing.T) {
	cfg := testConfig()
	d, _ := PlanAmps(cfg, PlanInput{Plan: model.PlanMaxSpeed, Budget: 1e300, CarSoC: 50, Limit: 80, Now: at(12, 0)}, NightlyState{})
	assert.Equal(t, cfg.MaxAmps, d.Amps)
	assert.Equal(t, ReasonMaxAvailable, d.Reason)
}

func TestPlanAmpsSolarOnlyScenario(t *testing.T) {
	cfg := testConfig()
	budget := SourceBudget(cfg, model.SourceSolarOnly, model.BatteryPeakShaving, PowerInput{PV: 3000, Load: 1000})
	require.Equal(t, 2000.0, budget)
	d, st := PlanAmps(cfg, PlanInput{Plan: model.PlanSolarOnly, Budget: budget, CarSoC: 50, Limit: 80, Now: at(12, 0)}, NightlyState{LastCalc: at(11, 0), CachedAmps: 10})
	assert.Equal(t, 8, d.Amps)
	assert.Equal(t, ReasonMaxAvailable, d.Reason)
	assert.False(t, st.Valid(), "non nightly plans reset the cache")
}

func TestPlanAmpsClampsToMaxAmps(t *testing.T) {
	cfg := testConfig()
	for _, p := range []model.ChargingPlan{model.PlanManual, model.PlanSolarOnly, model.PlanMinPlusSolar, model.PlanMinBatteryLoad, model.PlanMaxSpeed} {
		d, _ := PlanAmps(cfg, PlanInput{Plan: p, Budget: 10000, CarSoC: 50, Limit: 80, Now: at(12, 0)}, NightlyState{})
		if d.Amps != cfg.MaxAmps {
			t.Errorf("%v: got %d want %d", p, d.Amps, cfg.MaxAmps)
		}
	}
}

func TestPlanAmpsFloorProperty(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAmps = 1000
	step := cfg.AmpStep()
	for budget := cfg.MinChargePower(); budget < 20000; budget += 97.3 {
		d, _ := PlanAmps(cfg, PlanInput{Plan: model.PlanMaxSpeed, Budget: budget, CarSoC: 10, Limit: 90, Now: at(12, 0)}, NightlyState{})
		if float64(d.Amps)*step > budget || budget >= float64(d.Amps+1)*step {
			t.Fatalf("budget %v amps %d violates floor", budget, d.Amps)
		}
	}
}

func TestPlanAmpsNightlyComputesAndCaches(t *testing.T) {
	cfg := testConfig()
	now := at(23, 0)
	in := PlanInput{Plan: model.PlanNightly, Budget: 6000, CarSoC: 50, Limit: 80, Now: now}
	d, st := PlanAmps(cfg, in, NightlyState{})
	// 18000Wh over 7h at 230V single phase is 11.18A rounded up
	require.Equal(t, 12, d.Amps)
	assert.Equal(t, ReasonNightlyPlanned, d.Reason)
	assert.Equal(t, now, st.LastCalc)
	assert.Equal(t, 12, st.CachedAmps)

	in.Now = now.Add(5 * time.Minute)
	in.CarSoC = 55
	d2, st2 := PlanAmps(cfg, in, st)
	assert.Equal(t, 12, d2.Amps)
	assert.Equal(t, ReasonNightlyCached, d2.Reason)
	assert.Equal(t, st, st2)

	in.Now = now.Add(cfg.RecalcInterval)
	d3, st3 := PlanAmps(cfg, in, st2)
	assert.Equal(t, ReasonNightlyPlanned, d3.Reason)
	assert.Equal(t, in.Now, st3.LastCalc)
	// 15000Wh over 6h45m
	assert.Equal(t, 10, d3.Amps)
}

func TestPlanAmpsNightlyReclampsCache(t *testing.T) {
	cfg := testConfig()
	st := NightlyState{LastCalc: at(23, 0), CachedAmps: 14}
	d, out := PlanAmps(cfg, PlanInput{Plan: model.PlanNightly, Budget: 2000, CarSoC: 50, Limit: 80, Now: at(23, 1)}, st)
	assert.Equal(t, 8, d.Amps)
	assert.Equal(t, ReasonNightlyCached, d.Reason)
	assert.Equal(t, 14, out.CachedAmps, "cache keeps the planned value")
}

func TestPlanAmpsNightlyClampsToMinAmps(t *testing.T) {
	cfg := testConfig()
	d, st := PlanAmps(cfg, PlanInput{Plan: model.PlanNightly, Budget: 6000, CarSoC: 79, Limit: 80, Now: at(22, 0)}, NightlyState{})
	assert.Equal(t, cfg.MinAmps, d.Amps)
	assert.Equal(t, cfg.MinAmps, st.CachedAmps)
}

func TestPlanAmpsNightlyClampsToMaxAmps(t *testing.T) {
	cfg := testConfig()
	d, _ := PlanAmps(cfg, PlanInput{Plan: model.PlanNightly, Budget: 10000, CarSoC: 0, Limit: 100, Now: at(5, 0)}, NightlyState{})
	assert.Equal(t, cfg.MaxAmps, d.Amps)
}

func TestPlanAmpsNightEndingEscalates(t *testing.T) {
	cfg := testConfig()
	now := at(6, 0).Add(-30 * time.Second)
	d, st := PlanAmps(cfg, PlanInput{Plan: model.PlanNightly, Budget: 2500, CarSoC: 50, Limit: 80, Now: now}, NightlyState{LastCalc: at(5, 50), CachedAmps: 9})
	assert.True(t, d.OverrideRequested)
	assert.Equal(t, model.PlanMaxSpeed, d.Override)
	assert.Equal(t, ReasonNightEnding, d.Reason)
	assert.Equal(t, 10, d.Amps)
	assert.False(t, st.Valid())
}

func TestPlanAmpsLeavingNightResets(t *testing.T) {
	cfg := testConfig()
	_, st := PlanAmps(cfg, PlanInput{Plan: model.PlanNightly, Budget: 5000, CarSoC: 50, Limit: 80, Now: at(7, 0)}, NightlyState{LastCalc: at(5, 0), CachedAmps: 9})
	assert.False(t, st.Valid())
}

func TestPlanAmpsSolarPlusNightly(t *testing.T) {
	cfg := testConfig()
	day, st := PlanAmps(cfg, PlanInput{Plan: model.PlanSolarPlusNightly, Budget: 2000, CarSoC: 50, Limit: 80, Now: at(12, 0)}, NightlyState{})
	assert.Equal(t, 8, day.Amps)
	assert.Equal(t, ReasonMaxAvailable, day.Reason)
	assert.False(t, st.Valid())

	night, st := PlanAmps(cfg, PlanInput{Plan: model.PlanSolarPlusNightly, Budget: 6000, CarSoC: 50, Limit: 80, Now: at(23, 0)}, NightlyState{})
	assert.Equal(t, ReasonNightlyPlanned, night.Reason)
	assert.Equal(t, 12, night.Amps)
	assert.True(t, st.Valid())
}

func TestPlanAmpsAlwaysBounded(t *testing.T) {
	cfg := testConfig()
	for _, p := range model.Plans {
		for _, h := range []int{0, 3, 5, 12, 21, 22, 23} {
			for budget := 0.0; budget < 8000; budget += 450 {
				d, _ := PlanAmps(cfg, PlanInput{Plan: p, Budget: budget, CarSoC: 40, Limit: 90, Now: at(h, 59)}, NightlyState{})
				if d.Amps != 0 && (d.Amps < cfg.MinAmps || d.Amps > cfg.MaxAmps) {
					t.Fatalf("plan %v at %d:59 budget %v: amps %d out of bounds", p, h, budget, d.Amps)
				}
			}
		}
	}
}
