// Command substrated runs the cognitive substrate as a long-lived
// daemon: it owns the data directory, drives the scheduler, and serves
// the HTTP surface until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/ehrlich-b/noetic/internal/config"
	"github.com/ehrlich-b/noetic/internal/httpapi"
	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/store"
	"github.com/ehrlich-b/noetic/internal/substrate"
	"github.com/spf13/cobra"
)

const (
	exitOK              = 0
	exitDirectoryLocked = 2
	exitCorruptState    = 3
	exitMissingEnvVar   = 4
)

func main() {
	var addr string
	var settingsPath string

	root := &cobra.Command{
		Use:   "substrated",
		Short: "cognitive substrate daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, settingsPath)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8733", "HTTP listen address")
	root.Flags().StringVar(&settingsPath, "settings", "", "path to a JSON settings file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(addr, settingsPath string) error {
	mgr := config.NewManager()
	if err := mgr.Load(settingsPath); err != nil {
		fmt.Fprintf(os.Stderr, "substrated: load config: %v\n", err)
		os.Exit(exitMissingEnvVar)
	}
	cfg := mgr.Get()
	if cfg.DataDir == "" {
		fmt.Fprintln(os.Stderr, "substrated: SUBSTRATE_DATA_DIR is required")
		os.Exit(exitMissingEnvVar)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "substrated: init logger: %v\n", err)
		os.Exit(1)
	}

	sub, err := substrate.Open(cfg)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDirectoryLocked):
			fmt.Fprintf(os.Stderr, "substrated: %v\n", err)
			os.Exit(exitDirectoryLocked)
		case errors.Is(err, store.ErrCorruptState):
			fmt.Fprintf(os.Stderr, "substrated: %v\n", err)
			os.Exit(exitCorruptState)
		default:
			return fmt.Errorf("open substrate: %w", err)
		}
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	sub.Start(ctx)

	srv := httpapi.New(sub)
	errCh := make(chan error, 1)
	go func() {
		logger.Component("substrated").Info("listening", "addr", addr)
		errCh <- srv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Component("substrated").Info("shutting down")
		srv.Close()
		os.Exit(exitOK)
	case err := <-errCh:
		return err
	}
	return nil
}
