package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/chargectl/core/events"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/infra/logger"
)

// InfluxConfig holds the connection settings of the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes cycles and events to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// CyclePoint converts a cycle record into the charger_cycle point.
func CyclePoint(rec coremetrics.CycleRecord) *write.Point {
	snap := rec.Snapshot
	p := write.NewPointWithMeasurement("charger_cycle").
		AddTag("plan", rec.ActivePlan.Key()).
		AddTag("strategy", rec.Strategy.String()).
		AddField("charging_amps", snap.ChargingAmps).
		AddField("charging_limit", snap.ChargingLimit).
		AddField("top_up_limit", snap.TopUpLimit).
		AddField("battery_load", round3(snap.BatteryLoad)).
		AddField("total_load", round3(snap.TotalLoad)).
		AddField("grid_power", round3(snap.GridPower)).
		AddField("pv_power", round3(snap.PVPower)).
		AddField("charger_connected", snap.ChargerConnected).
		AddField("charging", snap.Charging).
		AddField("max_power_solar_only", round3(rec.Budgets.SolarOnly)).
		AddField("max_power_min_plus_solar", round3(rec.Budgets.MinPlusSolar)).
		AddField("max_power_min_bat_load", round3(rec.Budgets.MinBatteryLoad)).
		AddField("max_power_full", round3(rec.Budgets.Full)).
		AddField("target_charging_amps", rec.TargetAmps).
		AddField("target_charging_power", round3(rec.TargetPower)).
		SetTime(rec.Time)
	if !math.IsNaN(snap.CarSoC) {
		p.AddField("car_soc", round3(snap.CarSoC))
	}
	if !math.IsNaN(snap.InverterSoC) {
		p.AddField("inverter_soc", round3(snap.InverterSoC))
	}
	for _, pr := range rec.Plans {
		p.AddField(fmt.Sprintf("plan_%s_amps", pr.Plan.Key()), pr.Amps)
		p.AddField(fmt.Sprintf("plan_%s_power", pr.Plan.Key()), round3(pr.Power))
	}
	return p
}

// RecordCycle writes the cycle as one point.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, CyclePoint(rec))
}

// RecordEvent writes a charging event.
func (s *InfluxSink) RecordEvent(ev events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charger_event").
		AddTag("kind", string(ev.Kind)).
		AddTag("plan", ev.Plan.Key()).
		AddField("amps", ev.Amps).
		AddField("event_id", ev.ID).
		SetTime(ev.Time)
	if ev.Message != "" {
		p.AddField("message", ev.Message)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
