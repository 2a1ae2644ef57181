// Package cmd implements the dustplan command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dustplan/config"
	"github.com/kilianp07/dustplan/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "dustplan",
	Short:        "Monthly dust control planning for tailings deposits",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (reference instance when empty)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Log.Options()); err != nil {
		return nil, fmt.Errorf("log config: %w", err)
	}
	return cfg, nil
}
