package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tranche-calculator-go/internal/config"
	"tranche-calculator-go/internal/grid"
	"tranche-calculator-go/internal/logger"
	"tranche-calculator-go/internal/server"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.yml")
	flag.Parse()

	// Load configuration
	loader := config.NewLoader(*configDir)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.FromConfig(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("file", loader.ConfigFileUsed()))

	calc, err := grid.NewCalculator(log, cfg.Grid)
	if err != nil {
		log.Fatal("Invalid grid configuration", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.NewAPIServer(cfg.Server, calc, log, reg)

	// Hot-reload the grid constants when the config file changes
	if loader.ConfigFileUsed() != "" {
		loader.Watch(func(next config.Config, e fsnotify.Event) {
			log.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			if err := srv.Reload(next.Grid); err != nil {
				log.Error("Failed to apply new grid config", zap.Error(err))
			}
		}, func(err error) {
			srv.Metrics().ObserveReload(false)
			log.Error("Ignoring invalid config change", zap.Error(err))
		})
	}

	srv.Start()

	// Wait for shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}
	log.Info("API server has been shut down.")
}
