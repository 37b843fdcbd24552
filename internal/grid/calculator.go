package grid

import (
	"fmt"
	"math"

	"tranche-calculator-go/internal/config"

	"go.uber.org/zap"
)

// Request is the input of a calculation.
type Request struct {
	StartingPrice float64   `json:"starting_price"`
	Direction     Direction `json:"direction"`
	Mode          Mode      `json:"mode"`
}

// Validate normalises the direction and mode and checks the starting price.
func (r *Request) Validate() error {
	if math.IsNaN(r.StartingPrice) || math.IsInf(r.StartingPrice, 0) || r.StartingPrice <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, r.StartingPrice)
	}
	dir, err := ParseDirection(string(r.Direction))
	if err != nil {
		return err
	}
	mode, err := ParseMode(string(r.Mode))
	if err != nil {
		return err
	}
	r.Direction, r.Mode = dir, mode
	return nil
}

// Calculator runs the sizing pipeline with a fixed set of grid constants.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	logger *zap.Logger
	cfg    config.Grid
}

// NewCalculator creates a Calculator after validating the grid constants.
func NewCalculator(logger *zap.Logger, cfg config.Grid) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{logger: logger.Named("calculator"), cfg: cfg}, nil
}

// Config returns the grid constants the calculator uses.
func (c *Calculator) Config() config.Grid {
	return c.cfg
}

// Calculate builds the sizing table for req.
func (c *Calculator) Calculate(req Request) (*Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 1. Price levels
	levels, err := GenerateLevels(req.StartingPrice, c.cfg.TotalRange, c.cfg.BaseStep, req.Direction)
	if err != nil {
		return nil, fmt.Errorf("could not generate levels: %w", err)
	}

	// 2. Lot sizes and structural edits
	rows := AssignLots(levels, req.StartingPrice, c.cfg.DefaultLot, req.Mode)

	// 3. Running metrics
	rows = Aggregate(rows, req.StartingPrice, req.Direction, c.cfg)

	// 4. Optional rebalancing, which invalidates every derived column
	if req.Mode == ModeRebalanced {
		rows = Rebalance(rows, c.cfg.InitialMultiplier, c.cfg.RebalancePrefix)
		rows = Aggregate(rows, req.StartingPrice, req.Direction, c.cfg)
	}

	table := &Table{
		StartingPrice: req.StartingPrice,
		Direction:     req.Direction,
		Mode:          req.Mode,
		Rows:          rows,
		Summary:       Summarize(rows),
	}

	c.logger.Debug("Calculated sizing table",
		zap.Float64("starting_price", req.StartingPrice),
		zap.String("direction", string(req.Direction)),
		zap.String("mode", string(req.Mode)),
		zap.Int("levels", len(levels)),
		zap.Int("rows", len(rows)),
		zap.Float64("total_lots", table.Summary.TotalLots),
	)
	return table, nil
}
