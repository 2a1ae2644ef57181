package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dustplan/app"
	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	coremqtt "github.com/kilianp07/dustplan/core/mqtt"
	"github.com/kilianp07/dustplan/core/runlog"
)

var runsOpts struct {
	since  time.Duration
	status string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded planning runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().DurationVar(&runsOpts.since, "since", 0, "only runs started within this duration, e.g. 24h")
	runsCmd.Flags().StringVar(&runsOpts.status, "status", "", "only runs with this status, e.g. OPTIMAL")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg, app.WithSink(coremetrics.NopSink{}), app.WithPublisher(coremqtt.NopPublisher{}))
	if err != nil {
		return err
	}
	defer svc.Close()

	var q runlog.Query
	if runsOpts.since > 0 {
		q.Start = time.Now().Add(-runsOpts.since)
	}
	q.Status = runsOpts.status
	runs, err := svc.Runs(cmd.Context(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tOBJECTIVE\tCOST\tNODES\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%d\t%s\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.Status, r.Objective, r.TotalCost, r.Nodes,
			time.Duration(r.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}
