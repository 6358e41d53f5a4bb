package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vremyavnikuda/anchora/internal/rpc"
	"github.com/vremyavnikuda/anchora/internal/watch"
)

var flagServeWatch bool

func init() {
	serveCmd.Flags().BoolVar(&flagServeWatch, "watch", false, "rescan changed files while serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON-RPC API over stdin/stdout",
	Long:  "Speaks newline-delimited JSON-RPC 2.0 on stdio for editor integrations. With --watch, changed workspace files are rescanned automatically.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagServeWatch {
		ws, err := resolveWorkspace()
		if err != nil {
			return err
		}
		watcher, err := watch.New(ws, engine.Config(), func(path string) {
			if _, err := engine.ScanFile(ctx, path); err != nil {
				fmt.Fprintf(os.Stderr, "rescan %s: %s\n", path, err)
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "watcher stopped: %s\n", err)
			}
		}()
	}

	server := rpc.NewServer(rpc.NewTaskHandler(engine), os.Stdin, os.Stdout)
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
