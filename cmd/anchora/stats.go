package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show project statistics with recent activity",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	return outputResult(CLIResult{Command: "stats", Results: engine.Statistics()})
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show per-section task counts and completion rates",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

func runOverview(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	return outputResult(CLIResult{Command: "overview", Results: engine.Overview()})
}
