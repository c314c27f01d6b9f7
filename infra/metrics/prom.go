package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/chargectl/core/events"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
)

// PromSink exposes the latest cycle as Prometheus gauges and counts cycles
// and charging events.
type PromSink struct {
	cycles   prometheus.Counter
	events   *prometheus.CounterVec
	budget   *prometheus.GaugeVec
	planAmps *prometheus.GaugeVec
	power    *prometheus.GaugeVec
	soc      *prometheus.GaugeVec
	strategy *prometheus.GaugeVec
	target   prometheus.Gauge
	charging prometheus.Gauge
}

// NewPromSink registers the charger metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.cycles, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chargectl_cycles_total",
		Help: "Number of completed control cycles",
	})); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargectl_events_total",
		Help: "Charging events emitted by the controller",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.budget, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargectl_power_budget_watts",
		Help: "Charging power available per power source",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.planAmps, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargectl_plan_amps",
		Help: "Amps each charging plan would draw",
	}, []string{"plan"})); err != nil {
		return nil, err
	}
	if s.power, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargectl_household_watts",
		Help: "Household power readings",
	}, []string{"quantity"})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargectl_soc_percent",
		Help: "State of charge of the car and the home battery",
	}, []string{"device"})); err != nil {
		return nil, err
	}
	if s.strategy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargectl_battery_strategy",
		Help: "Active battery strategy, 1 for the current one",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if s.target, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargectl_target_amps",
		Help: "Target amps for the active plan",
	})); err != nil {
		return nil, err
	}
	if s.charging, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargectl_charging",
		Help: "1 while the charger is charging",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle updates the gauges from the record.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	s.cycles.Inc()
	for _, src := range model.PowerSources {
		s.budget.WithLabelValues(src.String()).Set(rec.Budgets.Get(src))
	}
	for _, p := range rec.Plans {
		s.planAmps.WithLabelValues(p.Plan.Key()).Set(float64(p.Amps))
	}
	snap := rec.Snapshot
	s.power.WithLabelValues("pv").Set(snap.PVPower)
	s.power.WithLabelValues("load").Set(snap.TotalLoad)
	s.power.WithLabelValues("battery").Set(snap.BatteryLoad)
	s.power.WithLabelValues("grid").Set(snap.GridPower)
	s.soc.WithLabelValues("car").Set(snap.CarSoC)
	s.soc.WithLabelValues("inverter").Set(snap.InverterSoC)
	for _, st := range []model.BatteryStrategy{model.BatteryNoCharging, model.BatteryReserve, model.BatteryPeakShavingMinimal, model.BatteryPeakShaving} {
		v := 0.0
		if st == rec.Strategy {
			v = 1
		}
		s.strategy.WithLabelValues(st.String()).Set(v)
	}
	s.target.Set(float64(rec.TargetAmps))
	s.charging.Set(boolGauge(snap.Charging))
	return nil
}

// RecordEvent counts the event by kind.
func (s *PromSink) RecordEvent(ev events.Event) error {
	s.events.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
