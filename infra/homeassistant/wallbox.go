package homeassistant

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/chargectl/core/charging"
	"github.com/kilianp07/chargectl/core/logger"
	"github.com/kilianp07/chargectl/core/model"
)

var (
	_ charging.Wallbox  = (*Wallbox)(nil)
	_ charging.Notifier = (*Wallbox)(nil)
)

// Wallbox maps the charger onto Home Assistant templates and services.
type Wallbox struct {
	client *Client
	cfg    Config
	log    logger.Logger
}

// NewWallbox creates a Wallbox backed by a REST client.
func NewWallbox(cfg Config, log logger.Logger) *Wallbox {
	if log == nil {
		log = nopLogger{}
	}
	return &Wallbox{client: NewClient(cfg, log), cfg: cfg, log: log}
}

// Snapshot renders every template concurrently and parses the results.
// Any transport or parse failure fails the whole snapshot.
func (w *Wallbox) Snapshot(ctx context.Context) (model.Snapshot, error) {
	t := w.cfg.Templates
	tpls := []string{
		t.ChargingAmps, t.ChargingLimit, t.ChargingPlan, t.TopUpLimit,
		t.InverterSoC, t.CarSoC, t.BatteryLoad, t.TotalLoad,
		t.GridPower, t.PVPower, t.ChargerConnected, t.IsCharging,
	}
	raw := make([]string, len(tpls))
	g, gctx := errgroup.WithContext(ctx)
	for i, tpl := range tpls {
		g.Go(func() error {
			v, err := w.client.Template(gctx, tpl)
			raw[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}
	return w.parse(raw)
}

func (w *Wallbox) parse(raw []string) (model.Snapshot, error) {
	p := &parser{}
	s := model.Snapshot{
		ChargingAmps:     p.intOrZero("charging_amps", raw[0]),
		ChargingLimit:    p.intOrZero("charging_limit", raw[1]),
		TopUpLimit:       p.int("top_up_limit", raw[3]),
		InverterSoC:      p.float("inverter_soc", raw[4]),
		CarSoC:           p.soc("car_soc", raw[5]),
		BatteryLoad:      p.float("battery_load", raw[6]),
		TotalLoad:        p.float("total_load", raw[7]),
		GridPower:        p.float("grid_power", raw[8]),
		PVPower:          p.float("pv_power", raw[9]),
		ChargerConnected: parseOn(raw[10]),
		Charging:         parseOn(raw[11]),
	}
	if p.err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot: %w", p.err)
	}
	plan, ok := model.LookupChargingPlan(raw[2])
	if !ok {
		w.log.Warnf("unknown charging plan %q, using Manual", raw[2])
	}
	s.Plan = plan
	return s, nil
}

// ChargerConnected renders only the connection template.
func (w *Wallbox) ChargerConnected(ctx context.Context) (bool, error) {
	v, err := w.client.Template(ctx, w.cfg.Templates.ChargerConnected)
	if err != nil {
		return false, err
	}
	return parseOn(v), nil
}

// SetCharging turns the charging switch on or off.
func (w *Wallbox) SetCharging(ctx context.Context, on bool) error {
	service := "turn_off"
	if on {
		service = "turn_on"
	}
	return w.client.CallService(ctx, "switch", service, map[string]any{
		"entity_id": w.cfg.Entities.SwitchSetCharging,
	})
}

// SetChargingAmps writes the amps number entity.
func (w *Wallbox) SetChargingAmps(ctx context.Context, amps int) error {
	return w.client.CallService(ctx, "number", "set_value", map[string]any{
		"entity_id": w.cfg.Entities.NumberSetChargingAmps,
		"value":     amps,
	})
}

// SetChargingPlan selects the plan's label on the plan input_select.
func (w *Wallbox) SetChargingPlan(ctx context.Context, plan model.ChargingPlan) error {
	return w.client.CallService(ctx, "input_select", "select_option", map[string]any{
		"entity_id": w.cfg.Entities.InputSelectPlan,
		"option":    plan.Label(),
	})
}

// Notify sends a message through the configured notify service. Without a
// service it is a no-op.
func (w *Wallbox) Notify(ctx context.Context, title, message string) error {
	if w.cfg.NotifyService == "" {
		return nil
	}
	svc := strings.TrimPrefix(w.cfg.NotifyService, "notify.")
	return w.client.CallService(ctx, "notify", svc, map[string]any{
		"title":   title,
		"message": message,
	})
}
