package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	arbor "github.com/arborflow/arbor"
	httpAdapter "github.com/arborflow/arbor/internal/adapters/http"
	"github.com/arborflow/arbor/internal/config"
	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the Arbor engine behind the JSON API, with health and metrics endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if err := runServe(configPath); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(slog.LevelInfo)

	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithNodeTimeout(cfg.NodeTimeout.Std()),
		arbor.WithMetrics(prometheus.DefaultRegisterer),
	}
	if cfg.Redis.Addr != "" {
		opts = append(opts, arbor.WithRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
	}
	if cfg.RegistryFile != "" {
		reg, err := registry.NewFile(cfg.RegistryFile, logger)
		if err != nil {
			return fmt.Errorf("loading capability registry: %w", err)
		}
		opts = append(opts, arbor.WithRegistry(reg))
		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		if _, err := reg.Watch(watchCtx); err != nil {
			logger.Warn("registry watch unavailable", "err", err)
		}
	}

	engine, err := arbor.New(cfg.TopologyDir, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpAdapter.NewHandler(engine, logger),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "topologies", cfg.TopologyDir)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return err
			}
		}
		logger.Info("server stopped")
	}
	return nil
}
