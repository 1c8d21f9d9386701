package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridgeback/tasq/internal/bus"
	"github.com/ridgeback/tasq/internal/config"
	"github.com/ridgeback/tasq/internal/handler"
	"github.com/ridgeback/tasq/internal/host"
	"github.com/ridgeback/tasq/internal/metrics"
	"github.com/ridgeback/tasq/internal/observer"
	"github.com/ridgeback/tasq/internal/supervisor"
	"github.com/ridgeback/tasq/internal/tlog"
	"github.com/ridgeback/tasq/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <configuration_file>",
	Short: "Load a configuration file and run its tasks to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("level", "INFO", "log level filter: DEBUG, INFO, WARN, ERROR")
	runCmd.Flags().String("file-output", "", "mirror per-task logs to this directory")
	runCmd.Flags().Bool("gui", false, "force the observer on")
	runCmd.Flags().Bool("no-gui", false, "force the observer off")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}

func runRun(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("level")
	fileOutput, _ := cmd.Flags().GetString("file-output")
	wantGUI, _ := cmd.Flags().GetBool("gui")
	noGUI, _ := cmd.Flags().GetBool("no-gui")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	tlog.Init(tlog.Config{Level: types.Level(level)})

	cfg, err := config.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	if fileOutput != "" {
		if err := os.MkdirAll(fileOutput, 0o755); err != nil {
			return fmt.Errorf("creating --file-output directory: %w", err)
		}
	}

	useObserver := cfg.GUI != nil
	if wantGUI {
		useObserver = true
	}
	if noGUI {
		useObserver = false
	}

	b := bus.New()
	sup := supervisor.New(cfg, handler.NewRegistry(), b, supervisor.DefaultStopTimeout)

	obs := observer.NewConsole(types.Level(level), fileOutput, useObserver)

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	proc := host.New(sup, obs, b)

	err = proc.Run(cmd.Context())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, host.ErrInterrupted):
		return err
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		tlog.WithComponent("metrics").Error().Err(err).Msg("metrics server stopped")
	}
}

// exitCodeFor maps a run error to the process exit code spec.md §6
// specifies: 0 normal, 1 configuration error or startup failure, 130
// conventional on interrupt.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, host.ErrInterrupted) {
		return 130
	}
	return 1
}
