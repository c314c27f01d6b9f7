package charging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
	"github.com/kilianp07/chargectl/core/monitoring"
)

func testConfig() engine.Config {
	return engine.Config{
		MinAmps:         6,
		MaxAmps:         16,
		MinPower:        1380,
		MaxPower:        3680,
		Volts:           230,
		Phases:          1,
		Efficiency:      1.0,
		BatteryCapacity: 60000,
		PollInterval:    30 * time.Second,
		Night:           engine.Window{Start: 22 * time.Hour, End: 6 * time.Hour},
		RecalcInterval:  15 * time.Minute,
		Scheduled:       engine.NewScheduledWindow(1 * time.Hour),
		Battery: engine.BatteryThresholds{
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

func at(hour, minute, second int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, second, 0, time.UTC)
}

// sunny yields an 8A solar only target.
func sunny(plan model.ChargingPlan, charging bool, amps int) model.Snapshot {
	return model.Snapshot{
		ChargingAmps:     amps,
		ChargingLimit:    80,
		Plan:             plan,
		TopUpLimit:       90,
		InverterSoC:      80,
		CarSoC:           50,
		TotalLoad:        1000,
		PVPower:          3000,
		ChargerConnected: true,
		Charging:         charging,
	}
}

type fakeBox struct {
	snaps     []model.Snapshot
	idx       int
	readErr   error
	connected []bool
	setErr    error
	panics    bool
	calls     []string
}

func (f *fakeBox) Snapshot(context.Context) (model.Snapshot, error) {
	if f.panics {
		panic("sensor exploded")
	}
	if f.readErr != nil {
		return model.Snapshot{}, f.readErr
	}
	s := f.snaps[min(f.idx, len(f.snaps)-1)]
	f.idx++
	return s, nil
}

func (f *fakeBox) ChargerConnected(context.Context) (bool, error) {
	if len(f.connected) == 0 {
		return true, nil
	}
	c := f.connected[0]
	f.connected = f.connected[1:]
	return c, nil
}

func (f *fakeBox) SetCharging(_ context.Context, on bool) error {
	f.calls = append(f.calls, fmt.Sprintf("charging=%t", on))
	return f.setErr
}

func (f *fakeBox) SetChargingAmps(_ context.Context, amps int) error {
	f.calls = append(f.calls, fmt.Sprintf("amps=%d", amps))
	return f.setErr
}

func (f *fakeBox) SetChargingPlan(_ context.Context, p model.ChargingPlan) error {
	f.calls = append(f.calls, "plan="+p.Key())
	return f.setErr
}

type fakeBus struct{ events []events.Event }

func (b *fakeBus) Publish(ev events.Event) { b.events = append(b.events, ev) }

func (b *fakeBus) kinds() []events.Kind {
	out := make([]events.Kind, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Kind)
	}
	return out
}

type countSink struct{ n int }

func (s *countSink) RecordCycle(metrics.CycleRecord) error { s.n++; return nil }

type harness struct {
	box   *fakeBox
	bus   *fakeBus
	sink  *countSink
	clock *engine.FixedClock
	waits []time.Duration
	ctrl  *Controller
}

func newHarness(now time.Time, snaps ...model.Snapshot) *harness {
	h := &harness{
		box:   &fakeBox{snaps: snaps},
		bus:   &fakeBus{},
		sink:  &countSink{},
		clock: &engine.FixedClock{T: now},
	}
	h.ctrl = New(testConfig(), h.box,
		WithPublisher(h.bus),
		WithSink(h.sink),
		WithClock(h.clock),
		WithWait(func(_ context.Context, d time.Duration) error {
			h.waits = append(h.waits, d)
			return nil
		}),
	)
	return h
}

func (h *harness) cycle(t *testing.T) Result {
	t.Helper()
	res, err := h.ctrl.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	return res
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCycle_StartCharging(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, false, 6))
	res := h.cycle(t)
	if res.Action != ActionStart || res.Decision.Amps != 8 {
		t.Fatalf("unexpected result %+v", res)
	}
	if want := []string{"amps=8", "charging=true"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v want %v", h.box.calls, want)
	}
	if m := h.ctrl.Memory(); !m.Charging || m.Amps != 8 || m.WasManual {
		t.Fatalf("memory %+v", m)
	}
	if k := h.bus.kinds(); len(k) != 1 || k[0] != events.ChargingStarted {
		t.Fatalf("events %v", k)
	}
	if h.sink.n != 1 {
		t.Fatalf("expected one record, got %d", h.sink.n)
	}
}

func TestCycle_TopUpHold(t *testing.T) {
	snap := sunny(model.PlanSolarOnly, false, 6)
	snap.CarSoC = 75
	snap.TopUpLimit = 70
	h := newHarness(at(12, 0, 0), snap)
	res := h.cycle(t)
	if res.Action != ActionTopUpHold || len(h.box.calls) != 0 {
		t.Fatalf("action %s calls %v", res.Action, h.box.calls)
	}
}

func TestCycle_StopCharging(t *testing.T) {
	snap := sunny(model.PlanSolarOnly, true, 8)
	snap.PVPower = 0
	h := newHarness(at(12, 0, 0), snap)
	res := h.cycle(t)
	if res.Action != ActionStop {
		t.Fatalf("action %s", res.Action)
	}
	if want := []string{"charging=false"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v", h.box.calls)
	}
	if h.ctrl.Memory().Charging {
		t.Fatal("memory should record charging stopped")
	}
}

func TestCycle_AdjustAmps(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, true, 6))
	res := h.cycle(t)
	if res.Action != ActionAdjust {
		t.Fatalf("action %s", res.Action)
	}
	if want := []string{"amps=8"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v", h.box.calls)
	}
	if h.ctrl.Memory().Amps != 8 {
		t.Fatalf("memory %+v", h.ctrl.Memory())
	}
}

func TestCycle_HoldAtTarget(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, true, 8))
	res := h.cycle(t)
	if res.Action != ActionHold || len(h.box.calls) != 0 {
		t.Fatalf("action %s calls %v", res.Action, h.box.calls)
	}
}

func TestCycle_ManualDriftThenResync(t *testing.T) {
	h := newHarness(at(12, 0, 0),
		sunny(model.PlanSolarOnly, true, 8),
		sunny(model.PlanSolarOnly, true, 10),
		sunny(model.PlanSolarOnly, true, 10),
	)
	h.cycle(t)
	res := h.cycle(t)
	if res.Transition != engine.TransitionManual || res.Action != ActionManualOverride {
		t.Fatalf("unexpected result %+v", res)
	}
	if want := []string{"plan=manual"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v", h.box.calls)
	}
	if m := h.ctrl.Memory(); !m.WasManual || m.Amps != 10 {
		t.Fatalf("memory %+v", m)
	}
	if k := h.bus.kinds(); len(k) != 1 || k[0] != events.ManualOverride {
		t.Fatalf("events %v", k)
	}

	// The automatic plan is active again: memory resyncs without drift
	// detection and the controller takes over.
	h.box.calls = nil
	res = h.cycle(t)
	if res.Action != ActionAdjust || res.Transition != engine.TransitionExpected {
		t.Fatalf("unexpected result %+v", res)
	}
	if m := h.ctrl.Memory(); m.WasManual || m.Amps != 8 {
		t.Fatalf("memory %+v", m)
	}
}

func TestCycle_Disconnected(t *testing.T) {
	h := newHarness(at(12, 0, 0),
		sunny(model.PlanSolarOnly, true, 8),
		sunny(model.PlanSolarOnly, false, 8),
	)
	h.box.connected = []bool{false}
	h.cycle(t)
	res := h.cycle(t)
	if res.Transition != engine.TransitionDisconnected || res.Action != ActionDisconnected {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.box.calls) != 0 {
		t.Fatalf("no actuation expected, got %v", h.box.calls)
	}
	if len(h.waits) != 1 || h.waits[0] != 30*time.Second {
		t.Fatalf("recheck should wait one poll interval, got %v", h.waits)
	}
	if m := h.ctrl.Memory(); m.Charging || m.WasManual {
		t.Fatalf("memory %+v", m)
	}
}

func TestCycle_StopWhileConnectedIsManual(t *testing.T) {
	h := newHarness(at(12, 0, 0),
		sunny(model.PlanSolarOnly, true, 8),
		sunny(model.PlanSolarOnly, false, 8),
	)
	h.box.connected = []bool{true}
	h.cycle(t)
	res := h.cycle(t)
	if res.Transition != engine.TransitionManual {
		t.Fatalf("transition %s", res.Transition)
	}
	if !h.ctrl.Memory().WasManual {
		t.Fatal("expected manual mode")
	}
}

func TestCycle_ScheduledStart(t *testing.T) {
	h := newHarness(at(1, 30, 0),
		sunny(model.PlanSolarOnly, false, 8),
		sunny(model.PlanSolarOnly, true, 16),
	)
	h.box.snaps[0].CarSoC = 95
	h.cycle(t)
	res := h.cycle(t)
	if res.Transition != engine.TransitionScheduled {
		t.Fatalf("transition %s", res.Transition)
	}
	if res.Action != ActionAdjust {
		t.Fatalf("action %s", res.Action)
	}
	if want := []string{"amps=8"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v", h.box.calls)
	}
	k := h.bus.kinds()
	if len(k) != 2 || k[0] != events.ScheduledStart || k[1] != events.AmpsChanged {
		t.Fatalf("events %v", k)
	}
}

func TestCycle_IgnoredAmpsDrift(t *testing.T) {
	h := newHarness(at(12, 0, 0),
		sunny(model.PlanSolarOnly, false, 8),
		sunny(model.PlanSolarOnly, false, 12),
	)
	// The car is full on the first cycle so the charger stays idle.
	h.box.snaps[0].CarSoC = 95
	h.cycle(t)
	res := h.cycle(t)
	if res.Transition != engine.TransitionIgnored {
		t.Fatalf("transition %s", res.Transition)
	}
	if h.ctrl.Memory().WasManual {
		t.Fatal("ignored drift must not enter manual mode")
	}
}

func TestCycle_IdleStates(t *testing.T) {
	checks := []struct {
		name   string
		snap   model.Snapshot
		action Action
		manual bool
	}{
		{"disconnected", func() model.Snapshot {
			s := sunny(model.PlanSolarOnly, false, 6)
			s.ChargerConnected = false
			return s
		}(), ActionIdleDisconnected, false},
		{"manual plan", sunny(model.PlanManual, true, 10), ActionIdleManual, true},
	}
	for _, c := range checks {
		h := newHarness(at(12, 0, 0), c.snap)
		res := h.cycle(t)
		if res.Action != c.action {
			t.Errorf("%s: action %s want %s", c.name, res.Action, c.action)
		}
		if h.ctrl.Memory().WasManual != c.manual {
			t.Errorf("%s: was manual %t", c.name, h.ctrl.Memory().WasManual)
		}
		if len(h.box.calls) != 0 {
			t.Errorf("%s: unexpected calls %v", c.name, h.box.calls)
		}
		if h.sink.n != 1 {
			t.Errorf("%s: idle cycles still record metrics", c.name)
		}
	}
}

func TestCycle_ReadErrorLeavesState(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, true, 8))
	h.cycle(t)
	before := h.ctrl.Memory()
	h.box.readErr = errors.New("sensor offline")
	if _, err := h.ctrl.Cycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.ctrl.Memory() != before {
		t.Fatalf("memory changed: %+v", h.ctrl.Memory())
	}
	if h.sink.n != 1 {
		t.Fatalf("failed read must not record, got %d records", h.sink.n)
	}
}

func TestCycle_ActuationErrorKeepsMemory(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, false, 6))
	h.box.setErr = errors.New("service call failed")
	if _, err := h.ctrl.Cycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m := h.ctrl.Memory(); m.Charging || m.Amps != 6 {
		t.Fatalf("memory %+v", m)
	}
}

func TestCycle_NightEndingEscalates(t *testing.T) {
	snap := sunny(model.PlanNightly, false, 6)
	snap.PVPower = 0
	snap.TotalLoad = 500
	h := newHarness(at(5, 59, 40), snap)
	res := h.cycle(t)
	if !res.Decision.OverrideRequested || res.Decision.Amps != 15 {
		t.Fatalf("decision %+v", res.Decision)
	}
	if want := []string{"plan=max_speed", "amps=15", "charging=true"}; !equalCalls(h.box.calls, want) {
		t.Fatalf("calls %v", h.box.calls)
	}
	if k := h.bus.kinds(); k[0] != events.PlanEscalated {
		t.Fatalf("events %v", k)
	}
}

func TestCycle_NightlyStateOnlyFromActivePlan(t *testing.T) {
	snap := sunny(model.PlanNightly, false, 6)
	snap.PVPower = 0
	h := newHarness(at(23, 0, 0), snap)
	h.cycle(t)
	st := h.ctrl.Nightly()
	if !st.Valid() || !st.LastCalc.Equal(at(23, 0, 0)) {
		t.Fatalf("nightly state %+v", st)
	}

	h2 := newHarness(at(23, 0, 0), sunny(model.PlanSolarOnly, false, 6))
	h2.cycle(t)
	if h2.ctrl.Nightly().Valid() {
		t.Fatal("inactive nightly projection must not populate the cache")
	}
}

func TestEvaluate_ProjectsEveryPlan(t *testing.T) {
	cfg := testConfig()
	snap := sunny(model.PlanMinPlusSolar, false, 6)
	ev := Evaluate(cfg, snap, at(12, 0, 0), engine.NightlyState{})
	if len(ev.Plans) != len(model.Plans) {
		t.Fatalf("got %d projections", len(ev.Plans))
	}
	if ev.Strategy != model.BatteryPeakShaving {
		t.Fatalf("strategy %s", ev.Strategy)
	}
	rec := ev.Record(cfg, snap, at(12, 0, 0))
	if rec.ActivePlan != model.PlanMinPlusSolar || rec.TargetAmps != ev.Active.Amps {
		t.Fatalf("record %+v", rec)
	}
	if math.Abs(rec.TargetPower-float64(rec.TargetAmps)*230) > 1e-9 {
		t.Fatalf("target power %.1f", rec.TargetPower)
	}
	p, ok := rec.Projection(model.PlanNightly)
	if !ok || p.Amps != 0 || p.Reason != engine.ReasonNotNight {
		t.Fatalf("nightly projection %+v", p)
	}
	if rec.ID == "" {
		t.Fatal("record needs an id")
	}
}

type captureMonitor struct{ errs []error }

func (m *captureMonitor) CaptureException(err error, _ map[string]string) { m.errs = append(m.errs, err) }
func (m *captureMonitor) Flush(time.Duration)                             {}

func TestSafeCycle_RecoversPanic(t *testing.T) {
	mon := &captureMonitor{}
	monitoring.Init(mon)
	defer monitoring.Init(monitoring.NopMonitor{})

	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, false, 6))
	h.box.panics = true
	h.ctrl.safeCycle(context.Background())
	if len(mon.errs) != 1 {
		t.Fatalf("expected captured panic, got %v", mon.errs)
	}
	if k := h.bus.kinds(); len(k) != 1 || k[0] != events.ControllerRestarted {
		t.Fatalf("events %v", k)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(at(12, 0, 0), sunny(model.PlanSolarOnly, true, 8))
	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	h.ctrl.wait = func(ctx context.Context, _ time.Duration) error {
		cycles++
		if cycles == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	if err := h.ctrl.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.sink.n != 3 {
		t.Fatalf("expected 3 cycles, got %d", h.sink.n)
	}
}

func TestSleep_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
