package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargectl/app"
	"github.com/kilianp07/chargectl/core/charging"
	"github.com/kilianp07/chargectl/core/engine"
	"github.com/kilianp07/chargectl/core/model"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Read the sensors once and print the amps of every charging plan",
	Long:  "Evaluates a single cycle without touching the charger: battery strategy, power budgets and the target amps each plan would apply.",
	RunE:  planOnce,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the cycle record as JSON")
	rootCmd.AddCommand(planCmd)
}

func planOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ec, err := cfg.Engine()
	if err != nil {
		return err
	}
	snap, err := app.NewWallbox(cfg.API).Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	now := time.Now()
	ev := charging.Evaluate(ec, snap, now, engine.NightlyState{})
	if planJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ev.Record(ec, snap, now))
	}
	return printEvaluation(cmd.OutOrStdout(), ec, snap, ev)
}

func printEvaluation(out io.Writer, ec engine.Config, snap model.Snapshot, ev charging.Evaluation) error {
	fmt.Fprintf(out, "plan %s, car %s (limit %d%%), inverter %s, battery strategy %s\n",
		snap.Plan.Label(), percent(snap.CarSoC), snap.ChargingLimit, percent(snap.InverterSoC), ev.Strategy)
	fmt.Fprintf(out, "pv %.0fW, load %.0fW, battery %.0fW, grid %.0fW, night %t\n\n",
		snap.PVPower, snap.TotalLoad, snap.BatteryLoad, snap.GridPower, ev.Night)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tSOURCE\tBUDGET\tAMPS\tPOWER\tPROBABLE LOAD\tREASON")
	for _, p := range ev.Plans {
		marker := ""
		if p.Plan == snap.Plan {
			marker = " *"
		}
		power := ec.PowerAt(p.Decision.Amps)
		fmt.Fprintf(tw, "%s%s\t%s\t%.0fW\t%d\t%.0fW\t%.0fW\t%s\n",
			p.Plan.Label(), marker, p.Source, ev.Budgets.Get(p.Source), p.Decision.Amps,
			power, snap.TotalLoad+power, p.Decision.Reason)
	}
	return tw.Flush()
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f%%", v)
}
