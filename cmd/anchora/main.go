package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	anchora "github.com/vremyavnikuda/anchora"
	"github.com/spf13/cobra"
)

var (
	flagWorkspace string
	flagFormat    string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "anchora",
	Short:         "Inline comment annotations as a task tracker",
	Long:          "Anchora scans source files for section:task_id comment annotations and maintains a persistent task graph under .anchora/.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(infoCmd)
}

// resolveWorkspace returns the absolute workspace root.
func resolveWorkspace() (string, error) {
	abs, err := filepath.Abs(flagWorkspace)
	if err != nil {
		return "", fmt.Errorf("resolving workspace %q: %w", flagWorkspace, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// newEngine opens the engine for the configured workspace.
func newEngine() (*anchora.Engine, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}
	engine, err := anchora.New(ws)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Scan the workspace (or one file) for task annotations",
	Long:  "Walks the workspace, parses eligible files for annotations, and reconciles the findings into the task graph. With a file argument only that file is rescanned.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()

	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	var result *anchora.ScanResult
	if len(args) > 0 {
		result, err = engine.ScanFile(ctx, args[0])
	} else {
		result, err = engine.ScanWorkspace(ctx)
	}
	if err != nil {
		return outputError("scan", err)
	}

	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Scanned %d files in %s\n",
			result.FilesScanned, time.Since(start).Round(time.Millisecond))
	}
	return outputResult(CLIResult{Command: "scan", Results: result})
}
