package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tranche-calculator-go/internal/client"
	"tranche-calculator-go/internal/config"
	"tranche-calculator-go/internal/grid"
	"tranche-calculator-go/internal/logger"
	"tranche-calculator-go/internal/render"

	"go.uber.org/zap"
)

// tableSource produces sizing tables, either in-process or through the HTTP API.
type tableSource interface {
	Calculate(ctx context.Context, req grid.Request) (*grid.Table, error)
}

type localSource struct {
	calc *grid.Calculator
}

func (s localSource) Calculate(_ context.Context, req grid.Request) (*grid.Table, error) {
	return s.calc.Calculate(req)
}

// remoteSource calculates through the HTTP API and logs the grid the server runs with.
type remoteSource struct {
	api    client.CalculatorAPI
	logger *zap.Logger
}

func (s remoteSource) Calculate(ctx context.Context, req grid.Request) (*grid.Table, error) {
	status, err := s.api.Status(ctx)
	if err != nil {
		s.logger.Warn("Could not fetch remote status", zap.Error(err))
	} else {
		s.logger.Debug("Remote calculator",
			zap.String("instance_id", status.InstanceID),
			zap.String("uptime", status.Uptime),
			zap.Float64("total_range", status.Grid.TotalRange),
			zap.Float64("base_step", status.Grid.BaseStep),
			zap.Float64("default_lot", status.Grid.DefaultLot))
	}
	return s.api.Calculate(ctx, req)
}

func run(ctx context.Context, src tableSource, req grid.Request, format string, w io.Writer) error {
	table, err := src.Calculate(ctx, req)
	if err != nil {
		return err
	}
	return render.Write(w, table, format)
}

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.yml")
	price := flag.Float64("price", 2700, "starting price")
	direction := flag.String("direction", string(grid.DirectionDeclining), "declining or rising")
	mode := flag.String("mode", string(grid.ModeDefault), "default, alternate or rebalanced")
	format := flag.String("format", render.FormatTable, "table, json or yaml")
	remote := flag.Bool("remote", false, "calculate through the HTTP API at client.base_url")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configDir)
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

	var src tableSource
	if *remote {
		log.Debug("Using remote calculator", zap.String("base_url", cfg.Client.BaseURL))
		src = remoteSource{api: client.NewRestClient(&cfg.Client, log), logger: log}
	} else {
		calc, err := grid.NewCalculator(log, cfg.Grid)
		if err != nil {
			log.Fatal("Invalid grid configuration", zap.Error(err))
		}
		src = localSource{calc: calc}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req := grid.Request{
		StartingPrice: *price,
		Direction:     grid.Direction(*direction),
		Mode:          grid.Mode(*mode),
	}
	if err := run(ctx, src, req, *format, os.Stdout); err != nil {
		log.Fatal("Calculation failed", zap.Error(err))
	}
}
