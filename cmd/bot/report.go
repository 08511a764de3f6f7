package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/recorder"
	"MomentumRotator/internal/report"
)

func newReportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the performance report from the SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return runReport(path, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (defaults to report.dir)")
	return cmd
}

func runReport(cfgPath, dir string) error {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.Report.Dir
	}
	if err := requireFile(cfg.Database.SQLitePath); err != nil {
		return err
	}

	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("open recorder: %w", err)
	}
	defer rec.Close()

	equity, err := rec.LatestEquity(0)
	if err != nil {
		return err
	}
	switches, err := rec.LatestSwitches(0)
	if err != nil {
		return err
	}
	decisions, err := rec.LatestDecisions(0)
	if err != nil {
		return err
	}

	start := cfg.Strategy.StartingBalance
	if state, ok, err := broker.LoadState(cfg.StateFile); err == nil && ok && state.StartBalance > 0 {
		start = state.StartBalance
	}

	summary := report.Build(start, equity, switches, decisions, time.Now())
	if err := report.Export(dir, summary, equity, switches); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	log.Info().Str("dir", dir).Msg("report exported")

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database %s: %w", path, err)
	}
	return nil
}
