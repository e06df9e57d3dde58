// Package main is the newscurator command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"NewsCurator/internal/app"
	"NewsCurator/internal/config"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/usecase"
)

const (
	appName = "newscurator"
	Version = "0.1.0"
)

// globals carries the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Personal news curation pipeline",
		Long: `newscurator searches news for your interests, keeps only new articles,
groups them into stories, learns which topics you like and writes a cited briefing.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		runCmd(g),
		watchCmd(g),
		interestCmd(g),
		interactCmd(g),
		affinityCmd(g),
		briefingCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// open loads configuration and builds the application. Callers must Close it.
func (g *globals) open(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, logger, nil
}

func runCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, _, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			result := application.RunOnce(ctx)
			printRunResult(cmd.OutOrStdout(), result)
			return result.Err
		},
	}
}

func watchCmd(g *globals) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, logger, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			if metricsAddr != "" {
				server := &http.Server{Addr: metricsAddr, ReadHeaderTimeout: 5 * time.Second}
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				server.Handler = mux
				go func() {
					logger.Info("metrics listening", "addr", metricsAddr)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server stopped", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Shutdown(shutdownCtx)
				}()
			}

			return application.Watch(ctx, func(result usecase.RunResult) {
				printRunResult(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}
