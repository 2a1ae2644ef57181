package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dustplan/app"
	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
	coremqtt "github.com/kilianp07/dustplan/core/mqtt"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and print the size of the model",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	off := false
	cfg.Logging.Enabled = &off
	svc, err := app.New(cfg, app.WithSink(coremetrics.NopSink{}), app.WithPublisher(coremqtt.NopPublisher{}))
	if err != nil {
		return err
	}
	defer svc.Close()
	m, err := svc.Build()
	if err != nil {
		return err
	}
	st := m.Problem.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sites %d, periods %d, arcs %d\n", len(m.Params.Sites()), len(m.Params.Periods()), len(m.Params.Arcs()))
	fmt.Fprintf(out, "variables: %d continuous, %d binary\n", st.Continuous, st.Binary)
	fmt.Fprintf(out, "constraints: %d (<= %d, >= %d, = %d)\n", len(m.Problem.Constraints()),
		st.BySense[milp.LessEqual], st.BySense[milp.GreaterEqual], st.BySense[milp.Equal])
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range st.Families() {
		fmt.Fprintf(tw, "  %s\t%d\n", f, st.ByFamily[f])
	}
	return tw.Flush()
}
