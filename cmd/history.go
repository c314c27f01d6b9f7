package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	coremetrics "github.com/kilianp07/chargectl/core/metrics"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent control cycles from the configured history sink",
	RunE:  history,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of cycles to print")
	rootCmd.AddCommand(historyCmd)
}

func history(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sinks: %w", err)
	}
	multi := coremetrics.NewMultiSink(sink)
	defer multi.Close()

	reader := multi.History()
	if reader == nil {
		return fmt.Errorf("no configured metrics sink keeps history (use sqlite or jsonl)")
	}
	records, err := reader.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	return printHistory(cmd.OutOrStdout(), records)
}

func printHistory(out io.Writer, records []coremetrics.CycleRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPLAN\tSTRATEGY\tPV\tLOAD\tCAR\tCHARGING\tTARGET")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0fW\t%.0fW\t%s\t%t@%dA\t%dA\n",
			r.Time.Local().Format(time.DateTime), r.ActivePlan.Label(), r.Strategy,
			r.Snapshot.PVPower, r.Snapshot.TotalLoad, percent(r.Snapshot.CarSoC),
			r.Snapshot.Charging, r.Snapshot.ChargingAmps, r.TargetAmps)
	}
	return tw.Flush()
}
