// relayserver is the command relay: it accepts admin and client peers over
// TCP, brokers commands between them and keeps a durable audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frtem2008/Server-finale-2.0/internal/logger"
	"github.com/frtem2008/Server-finale-2.0/internal/relay"
	"github.com/frtem2008/Server-finale-2.0/pkg/config"
	"github.com/frtem2008/Server-finale-2.0/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "relayserver",
		Short:        "TCP relay brokering commands between admin and client peers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config file (default "+config.GetDefaultConfigPath()+")")

	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage relayserver configuration",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				target = config.GetDefaultConfigPath()
			}
			if err := config.WriteDefault(target); err != nil {
				return err
			}
			fmt.Println("Wrote default config to", target)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "output", "o", "", "where to write the config file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func runServe(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanup, err := setupLogging(&cfg.Logging)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := config.CreateAuditStore(&cfg.Audit)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close audit store: %v", err)
		}
	}()

	var relayMetrics *metrics.RelayMetrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		relayMetrics = metrics.NewRelayMetrics()
		metricsServer = metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
	}

	server, err := relay.NewServer(cfg.Server.Listen, store, relayMetrics)
	if err != nil {
		return fmt.Errorf("failed to create relay server: %w", err)
	}
	server.SetAcceptLimit(cfg.Server.AcceptRate, cfg.Server.AcceptBurst)

	if parent == nil {
		parent = context.Background()
	}
	signalCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	if cfg.Server.Console {
		console := relay.NewConsole(server, os.Stdin, cancel)
		go console.Run(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	// Context cancelled: Serve is unwinding its sessions. Give it the
	// configured grace period.
	timer := time.NewTimer(cfg.Server.ShutdownTimeout)
	defer timer.Stop()
	select {
	case err := <-serveErr:
		return err
	case <-timer.C:
		return fmt.Errorf("shutdown timed out after %s", cfg.Server.ShutdownTimeout)
	}
}

// setupLogging applies the logging config and returns a cleanup for the
// log file, if one was opened.
func setupLogging(cfg *config.LoggingConfig) (func(), error) {
	logger.SetLevel(cfg.Level)

	cleanup := func() {}
	switch cfg.Output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		cleanup = func() { f.Close() }
	}

	if cfg.Colors {
		logger.EnableColors()
	} else {
		logger.DisableColors()
	}
	return cleanup, nil
}
