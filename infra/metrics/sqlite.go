package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/core/model"
)

// SQLiteSink stores one row per cycle in the charger_metrics table.
type SQLiteSink struct {
	db *sql.DB
}

var baseColumns = []string{
	"id TEXT",
	"timestamp INTEGER",
	"charging_amps INTEGER",
	"charging_limit INTEGER",
	"charging_plan TEXT",
	"top_up_limit INTEGER",
	"inverter_soc REAL",
	"car_soc REAL",
	"battery_load REAL",
	"total_load REAL",
	"grid_power REAL",
	"pv_power REAL",
	"charger_connected INTEGER",
	"charging INTEGER",
	"usage_strategy TEXT",
	"max_power_no_charging REAL",
	"max_power_solar_only REAL",
	"max_power_min_plus_solar REAL",
	"max_power_min_bat_load REAL",
	"max_power_full REAL",
}

var columns = func() []string {
	cols := append([]string{}, baseColumns...)
	for _, p := range model.Plans {
		cols = append(cols,
			fmt.Sprintf("plan_%s_amps INTEGER", p.Key()),
			fmt.Sprintf("plan_%s_power REAL", p.Key()))
	}
	return append(cols, "target_charging_amps INTEGER", "target_charging_power REAL")
}()

func columnNames() string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = strings.Fields(c)[0]
	}
	return strings.Join(names, ", ")
}

// NewSQLiteSink opens or creates the database at path and ensures schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS charger_metrics (%s)`, strings.Join(columns, ", ")),
		`CREATE INDEX IF NOT EXISTS charger_metrics_ts ON charger_metrics (timestamp)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteSink{db: db}, nil
}

// RecordCycle inserts the record.
func (s *SQLiteSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := rec.Snapshot
	args := []any{
		rec.ID,
		rec.Time.UnixMilli(),
		snap.ChargingAmps,
		snap.ChargingLimit,
		snap.Plan.Label(),
		snap.TopUpLimit,
		nullFloat(snap.InverterSoC),
		nullFloat(snap.CarSoC),
		snap.BatteryLoad,
		snap.TotalLoad,
		snap.GridPower,
		snap.PVPower,
		snap.ChargerConnected,
		snap.Charging,
		rec.Strategy.String(),
		rec.Budgets.NoCharging,
		rec.Budgets.SolarOnly,
		rec.Budgets.MinPlusSolar,
		rec.Budgets.MinBatteryLoad,
		rec.Budgets.Full,
	}
	for _, p := range model.Plans {
		pr, _ := rec.Projection(p)
		args = append(args, pr.Amps, pr.Power)
	}
	args = append(args, rec.TargetAmps, rec.TargetPower)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO charger_metrics (%s) VALUES (%s)`, columnNames(), placeholders), args...)
	return err
}

// Recent returns up to limit records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]coremetrics.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM charger_metrics ORDER BY timestamp DESC LIMIT ?`, columnNames()), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.CycleRecord
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func scanCycle(rows *sql.Rows) (coremetrics.CycleRecord, error) {
	var (
		rec       coremetrics.CycleRecord
		ts        int64
		planLabel string
		strategy  string
		inverter  sql.NullFloat64
		car       sql.NullFloat64
		snap      = &rec.Snapshot
		b         = &rec.Budgets
	)
	dest := []any{
		&rec.ID, &ts, &snap.ChargingAmps, &snap.ChargingLimit, &planLabel, &snap.TopUpLimit,
		&inverter, &car, &snap.BatteryLoad, &snap.TotalLoad, &snap.GridPower, &snap.PVPower,
		&snap.ChargerConnected, &snap.Charging, &strategy,
		&b.NoCharging, &b.SolarOnly, &b.MinPlusSolar, &b.MinBatteryLoad, &b.Full,
	}
	rec.Plans = make([]coremetrics.PlanProjection, len(model.Plans))
	for i, p := range model.Plans {
		rec.Plans[i].Plan = p
		dest = append(dest, &rec.Plans[i].Amps, &rec.Plans[i].Power)
	}
	dest = append(dest, &rec.TargetAmps, &rec.TargetPower)
	if err := rows.Scan(dest...); err != nil {
		return rec, fmt.Errorf("scan charger_metrics: %w", err)
	}
	rec.Time = time.UnixMilli(ts)
	snap.Time = rec.Time
	snap.Plan = model.ParseChargingPlan(planLabel)
	rec.ActivePlan = snap.Plan
	snap.InverterSoC = fromNull(inverter)
	snap.CarSoC = fromNull(car)
	if err := rec.Strategy.UnmarshalText([]byte(strategy)); err != nil {
		return rec, err
	}
	return rec, nil
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNull(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error { return s.db.Close() }
