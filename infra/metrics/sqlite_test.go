package metrics

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargectl/core/model"
)

func TestSQLiteSink_RecordAndRecent(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	base := time.UnixMilli(1700000000000)
	for i := 0; i < 3; i++ {
		require.NoError(t, sink.RecordCycle(sampleRecord(base.Add(time.Duration(i)*time.Minute), 6+i)))
	}

	recs, err := sink.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	newest := recs[0]
	assert.Equal(t, 8, newest.TargetAmps)
	assert.True(t, newest.Time.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, model.PlanSolarOnly, newest.ActivePlan)
	assert.Equal(t, model.BatteryPeakShaving, newest.Strategy)
	assert.True(t, math.IsNaN(newest.Snapshot.CarSoC))
	assert.Equal(t, 65.0, newest.Snapshot.InverterSoC)
	assert.True(t, newest.Snapshot.Charging)
	assert.Equal(t, 6000.0, newest.Budgets.Full)
	p, ok := newest.Projection(model.PlanMaxSpeed)
	require.True(t, ok)
	assert.Equal(t, 8, p.Amps)
	assert.Equal(t, 7, recs[1].TargetAmps)
}

func TestSQLiteSink_Columns(t *testing.T) {
	sink, err := NewSQLiteSink("file:columns.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()
	rows, err := sink.db.Query(`SELECT * FROM charger_metrics LIMIT 0`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	require.NoError(t, err)
	for _, want := range []string{"charging_plan", "usage_strategy", "max_power_min_bat_load", "plan_solar_plus_nightly_amps", "plan_min_battery_load_power", "target_charging_power"} {
		assert.Contains(t, cols, want)
	}
}
