package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/orchestrator"
	_ "github.com/yairfalse/kartta/providers/aws" // Register AWS provider
	_ "github.com/yairfalse/kartta/providers/gcp" // Register GCP provider
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

// ExportCommand implements the 'kartta export' command
type ExportCommand struct {
	ConfigPath string
	OutputDir  string
	RootScope  string
	Provider   string
	Resume     bool
	Debug      bool
}

// Run executes the export command
func (cmd *ExportCommand) Run(ctx context.Context) error {
	cmd.setupLogging()

	cfg, err := cmd.loadConfig()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "kartta",
		ServiceVersion: version,
		OTELEndpoint:   cfg.Telemetry.OTELEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	var (
		g       run.Group
		summary types.RunSummary
		runErr  error
	)

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	resume := cmd.Resume || cfg.Checkpoint.Resume

	runCtx, cancelRun := context.WithCancel(ctx)
	g.Add(func() error {
		summary, runErr = orchestrator.New(cfg).Run(runCtx, resume)
		return runErr
	}, func(error) {
		cancelRun()
	})

	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Add(func() error {
			log.Info().Str("addr", addr).Msg("metrics server listening")
			return srv.ListenAndServe()
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	// Run returns after every actor has exited, so summary and runErr
	// are settled by the time we read them.
	err = g.Run()

	var sig run.SignalError
	interrupted := errors.As(err, &sig)
	if interrupted {
		log.Warn().Str("signal", sig.Signal.String()).Msg("interrupted, shutting down")
	}

	renderSummary(os.Stdout, summary)

	switch {
	case runErr != nil:
		return runErr
	case !summary.OK():
		return fmt.Errorf("%d work items failed", len(summary.Failed))
	case err != nil && !interrupted:
		return err
	default:
		return nil
	}
}

// setupLogging configures zerolog for interactive use
func (cmd *ExportCommand) setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cmd.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// loadConfig reads the config file and applies flag overrides.
// Overrides land before defaulting so derived paths (checkpoint,
// journal) follow an overridden output directory.
func (cmd *ExportCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(resolveConfigPath(cmd.ConfigPath))
	if err != nil {
		return nil, err
	}

	if cmd.Provider != "" {
		cfg.Provider = cmd.Provider
	}
	if cmd.RootScope != "" {
		cfg.RootScope = cmd.RootScope
	}
	if cmd.OutputDir != "" {
		cfg.Output.Dir = cmd.OutputDir
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath picks the config file: flag, then env, then cwd default
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv("KARTTA_CONFIG"); env != "" {
		return env
	}
	return "kartta.yaml"
}

// metricsHandler serves the Prometheus registry populated during InitOTEL
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	return mux
}

// renderSummary prints the run outcome: counts first, failures as a
// table, resume hint last.
func renderSummary(w io.Writer, summary types.RunSummary) {
	_, _ = fmt.Fprintf(w, "\nExport Summary (epoch %d, took %s):\n", summary.Epoch, summary.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "   Projects walked:   %d\n", summary.Projects)
	_, _ = fmt.Fprintf(w, "   Items completed:   %d\n", summary.Completed)
	_, _ = fmt.Fprintf(w, "   Resources written: %d\n", summary.ResourcesWritten)
	_, _ = fmt.Fprintf(w, "   Pages fetched:     %d\n", summary.PagesFetched)

	if summary.SkippedCheckpoint > 0 {
		_, _ = fmt.Fprintf(w, "   Skipped (already done): %d\n", summary.SkippedCheckpoint)
	}
	if summary.SkippedFolders > 0 {
		_, _ = fmt.Fprintf(w, "   Skipped folders (denied): %d\n", summary.SkippedFolders)
	}
	if len(summary.SkippedUnsupported) > 0 {
		_, _ = fmt.Fprintf(w, "   Unsupported services: %s\n", strings.Join(summary.SkippedUnsupported, ", "))
	}

	if len(summary.Failed) == 0 {
		_, _ = fmt.Fprintf(w, "\nAll work items completed.\n")
		return
	}

	_, _ = fmt.Fprintf(w, "\nFailed Items:\n")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROJECT\tSERVICE\tKIND\tERROR")
	_, _ = fmt.Fprintln(tw, "-------\t-------\t----\t-----")

	for _, failed := range summary.Failed {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			failed.Item.Project.ID,
			failed.Item.ServiceTag,
			types.KindOf(failed.Err),
			truncate(failed.Err.Error(), 60),
		)
	}

	_ = tw.Flush()

	_, _ = fmt.Fprintf(w, "\nRe-run with --resume to retry failed items without redoing completed work.\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
