package charging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/logger"
	"github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
	"github.com/kilianp07/chargectl/core/monitoring"
)

// Action is what the controller did with the charger in one cycle.
type Action string

const (
	ActionIdleDisconnected Action = "idle_disconnected"
	ActionIdleManual       Action = "idle_manual"
	ActionDisconnected     Action = "disconnected"
	ActionManualOverride   Action = "manual_override"
	ActionStop             Action = "stop"
	ActionStart            Action = "start"
	ActionAdjust           Action = "adjust"
	ActionTopUpHold        Action = "top_up_hold"
	ActionHold             Action = "hold"
)

// Memory is the actuator state the controller expects to observe next.
type Memory struct {
	WasManual bool
	Charging  bool
	Amps      int
}

func (m Memory) state() engine.ActuatorState {
	return engine.ActuatorState{Charging: m.Charging, Amps: m.Amps}
}

// Result describes a completed cycle.
type Result struct {
	Record     metrics.CycleRecord
	Decision   engine.Decision
	Transition engine.Transition
	Action     Action
}

// Controller runs the control loop. It is not safe for concurrent use; a
// single goroutine owns its memory and nightly state.
type Controller struct {
	cfg   engine.Config
	box   Wallbox
	sink  metrics.Sink
	bus   Publisher
	clock engine.Clock
	log   logger.Logger
	wait  func(ctx context.Context, d time.Duration) error

	mem     Memory
	nightly engine.NightlyState
	ready   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the metrics sink receiving one record per cycle.
func WithSink(s metrics.Sink) Option { return func(c *Controller) { c.sink = s } }

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option { return func(c *Controller) { c.bus = p } }

// WithClock overrides the wall clock.
func WithClock(clk engine.Clock) Option { return func(c *Controller) { c.clock = clk } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(c *Controller) { c.log = l } }

// WithWait overrides how the controller sleeps between cycles and before a
// connection recheck.
func WithWait(w func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.wait = w }
}

// New creates a Controller for the wallbox.
func New(cfg engine.Config, box Wallbox, opts ...Option) *Controller {
	c := &Controller{
		cfg:   cfg,
		box:   box,
		sink:  metrics.NopSink{},
		clock: engine.SystemClock{},
		log:   nopLogger{},
		wait:  sleep,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Memory returns the remembered actuator state.
func (c *Controller) Memory() Memory { return c.mem }

// Nightly returns the nightly planner state.
func (c *Controller) Nightly() engine.NightlyState { return c.nightly }

// Run executes cycles until the context is canceled. A failing or panicking
// cycle never stops the loop.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Infof("charger controller started, polling every %s", c.cfg.PollInterval)
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.safeCycle(ctx)
		if err := c.wait(ctx, c.cfg.PollInterval); err != nil {
			c.log.Infof("charger controller stopped")
			return nil
		}
	}
}

func (c *Controller) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := monitoring.CapturePanic("charging", r)
			c.log.Errorf("control cycle: %v\n%s", err, debug.Stack())
			c.publish(events.ControllerRestarted, model.PlanManual, 0, err.Error())
		}
	}()
	res, err := c.Cycle(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Errorf("control cycle: %v", err)
		}
		return
	}
	c.log.Debugw("cycle done", map[string]any{
		"plan":       res.Record.ActivePlan.Key(),
		"target":     res.Decision.Amps,
		"reason":     string(res.Decision.Reason),
		"transition": res.Transition.String(),
		"action":     string(res.Action),
	})
}

// Cycle runs one read, decide, act sequence. A read error leaves the
// controller state untouched.
func (c *Controller) Cycle(ctx context.Context) (Result, error) {
	snap, err := c.box.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot: %w", err)
	}
	if !c.ready {
		c.mem = Memory{WasManual: snap.Plan == model.PlanManual, Charging: snap.Charging, Amps: snap.ChargingAmps}
		c.ready = true
	}
	now := c.clock.Now()
	ev := Evaluate(c.cfg, snap, now, c.nightly)
	c.nightly = ev.Nightly
	res := Result{Record: ev.Record(c.cfg, snap, now), Decision: ev.Active}
	c.logEvaluation(snap, ev)
	if err := c.sink.RecordCycle(res.Record); err != nil {
		c.log.Warnf("record cycle: %v", err)
	}

	if !snap.ChargerConnected {
		c.log.Debugf("charger not connected")
		res.Action = ActionIdleDisconnected
		return res, nil
	}
	if snap.Plan == model.PlanManual {
		c.log.Debugf("charging plan is manual")
		c.mem.WasManual = true
		res.Action = ActionIdleManual
		return res, nil
	}

	observed := engine.ActuatorState{Charging: snap.Charging, Amps: snap.ChargingAmps}
	if c.mem.WasManual {
		c.remember(observed)
	} else {
		tr, err := engine.ClassifyTransition(ctx, observed, c.mem.state(), ev.Scheduled, c.recheck)
		if err != nil {
			return res, fmt.Errorf("recheck connection: %w", err)
		}
		res.Transition = tr
		switch tr {
		case engine.TransitionDisconnected:
			c.log.Infof("charger disconnected")
			c.remember(observed)
			c.publish(events.ChargerDisconnected, snap.Plan, observed.Amps, "")
			res.Action = ActionDisconnected
			return res, nil
		case engine.TransitionScheduled:
			c.log.Infof("charging started by the vehicle schedule")
			c.remember(observed)
			c.publish(events.ScheduledStart, snap.Plan, observed.Amps, "")
		case engine.TransitionIgnored:
			c.remember(observed)
		case engine.TransitionManual:
			c.log.Infof("unexpected charger change %+v (expected %+v), switching to manual mode", observed, c.mem.state())
			if err := c.box.SetChargingPlan(ctx, model.PlanManual); err != nil {
				return res, fmt.Errorf("switch to manual plan: %w", err)
			}
			c.remember(observed)
			c.mem.WasManual = true
			c.publish(events.ManualOverride, model.PlanManual, observed.Amps,
				fmt.Sprintf("Charger changed outside of %s, switched to Manual", snap.Plan.Label()))
			res.Action = ActionManualOverride
			return res, nil
		}
	}

	if ev.Active.OverrideRequested {
		c.log.Infof("switching charging plan from %s to %s", snap.Plan, ev.Active.Override)
		if err := c.box.SetChargingPlan(ctx, ev.Active.Override); err != nil {
			return res, fmt.Errorf("switch plan to %s: %w", ev.Active.Override, err)
		}
		c.publish(events.PlanEscalated, ev.Active.Override, ev.Active.Amps, string(ev.Active.Reason))
	}

	res.Action, err = c.reconcile(ctx, snap, ev.Active.Amps)
	return res, err
}

func (c *Controller) reconcile(ctx context.Context, snap model.Snapshot, target int) (Action, error) {
	switch {
	case target == 0 && snap.Charging:
		c.log.Infof("stop charging because of charging plan")
		if err := c.box.SetCharging(ctx, false); err != nil {
			return ActionStop, fmt.Errorf("stop charging: %w", err)
		}
		c.mem.Charging = false
		c.publish(events.ChargingStopped, snap.Plan, 0, "")
		return ActionStop, nil
	case target == 0:
		c.log.Debugf("no charging needed")
		return ActionHold, nil
	case !snap.Charging:
		if snap.CarSoC > float64(snap.TopUpLimit) {
			c.log.Debugf("car soc %.1f%% above top up limit %d%%, not starting", snap.CarSoC, snap.TopUpLimit)
			return ActionTopUpHold, nil
		}
		c.log.Infof("start charging at %dA because of charging plan", target)
		if err := c.box.SetChargingAmps(ctx, target); err != nil {
			return ActionStart, fmt.Errorf("set charging amps: %w", err)
		}
		if err := c.box.SetCharging(ctx, true); err != nil {
			return ActionStart, fmt.Errorf("start charging: %w", err)
		}
		c.mem.Charging = true
		c.mem.Amps = target
		c.publish(events.ChargingStarted, snap.Plan, target, "")
		return ActionStart, nil
	case target != snap.ChargingAmps:
		c.log.Infof("set charging amps to %dA", target)
		if err := c.box.SetChargingAmps(ctx, target); err != nil {
			return ActionAdjust, fmt.Errorf("set charging amps: %w", err)
		}
		c.mem.Amps = target
		c.publish(events.AmpsChanged, snap.Plan, target, "")
		return ActionAdjust, nil
	default:
		return ActionHold, nil
	}
}

// recheck waits one poll interval and reads the connection state again.
func (c *Controller) recheck(ctx context.Context) (bool, error) {
	if err := c.wait(ctx, c.cfg.PollInterval); err != nil {
		return false, err
	}
	return c.box.ChargerConnected(ctx)
}

func (c *Controller) remember(s engine.ActuatorState) {
	c.mem = Memory{Charging: s.Charging, Amps: s.Amps}
}

func (c *Controller) publish(kind events.Kind, plan model.ChargingPlan, amps int, msg string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.New(kind, c.clock.Now(), plan, amps, msg))
}

func (c *Controller) logEvaluation(snap model.Snapshot, ev Evaluation) {
	c.log.Debugw("snapshot", map[string]any{
		"charging_amps":     snap.ChargingAmps,
		"charging_limit":    snap.ChargingLimit,
		"charging_plan":     snap.Plan.Label(),
		"top_up_limit":      snap.TopUpLimit,
		"inverter_soc":      snap.InverterSoC,
		"car_soc":           snap.CarSoC,
		"battery_load":      snap.BatteryLoad,
		"total_load":        snap.TotalLoad,
		"grid_power":        snap.GridPower,
		"pv_power":          snap.PVPower,
		"charger_connected": snap.ChargerConnected,
		"charging":          snap.Charging,
		"battery_strategy":  ev.Strategy.String(),
	})
	for _, p := range ev.Plans {
		power := c.cfg.PowerAt(p.Decision.Amps)
		c.log.Debugw("plan projection", map[string]any{
			"plan":          p.Plan.Key(),
			"source":        p.Source.String(),
			"budget":        ev.Budgets.Get(p.Source),
			"amps":          p.Decision.Amps,
			"power":         power,
			"probable_load": snap.TotalLoad + power,
			"reason":        string(p.Decision.Reason),
		})
	}
	if ev.Active.Reason == engine.ReasonUnknownPlan {
		c.log.Warnf("no amps rule for plan %s", snap.Plan)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
