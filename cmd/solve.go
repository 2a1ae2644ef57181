package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dustplan/app"
	"github.com/kilianp07/dustplan/core/report"
	"github.com/kilianp07/dustplan/infra/logger"
)

var solveOpts struct {
	timeLimit time.Duration
	verify    bool
	export    string
	format    string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the planning model and print PM and water per site and month",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.DurationVar(&solveOpts.timeLimit, "time-limit", 0, "override the configured solver time limit")
	f.BoolVar(&solveOpts.verify, "verify", false, "re-solve with the plan fixed and check every constraint")
	f.StringVar(&solveOpts.export, "export", "", "write the plan to this file")
	f.StringVar(&solveOpts.format, "format", "", "export format: json or csv (default from extension)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	svc.ServeMetrics(ctx)

	res, err := svc.Plan(ctx, app.RunOptions{
		TimeLimit:    solveOpts.timeLimit,
		Verify:       solveOpts.verify,
		ExportPath:   solveOpts.export,
		ExportFormat: solveOpts.format,
	})
	if res != nil && res.Plan != nil {
		if werr := report.WriteText(cmd.OutOrStdout(), res.Plan); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
