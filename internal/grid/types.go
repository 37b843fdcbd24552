// Package grid computes tiered position-sizing tables: price levels from a
// starting price, a lot size per level, and the running exposure metrics
// derived from them.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDirection is returned for a direction other than declining or rising.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrInvalidMode is returned for an unknown sizing mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidPrice is returned for a starting price that is not a positive number.
	ErrInvalidPrice = errors.New("invalid starting price")
)

// Direction is the market move the grid is built against.
type Direction string

const (
	DirectionDeclining Direction = "declining"
	DirectionRising    Direction = "rising"
)

// ParseDirection normalises s into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionDeclining, DirectionRising:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidDirection, s, DirectionDeclining, DirectionRising)
}

// Mode selects the sizing variant.
type Mode string

const (
	// ModeDefault applies the lot rules as they are.
	ModeDefault Mode = "default"
	// ModeAlternate is the conservative variant: the third level is sized like the second.
	ModeAlternate Mode = "alternate"
	// ModeRebalanced front-loads the first levels while keeping the total notional cost.
	ModeRebalanced Mode = "rebalanced"
)

// ParseMode normalises s into a Mode. An empty string selects ModeDefault.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeDefault, nil
	case ModeDefault, ModeAlternate, ModeRebalanced:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Level is a generated price point. Index is its position in the generated
// sequence and is only meaningful until the structural edits are applied.
type Level struct {
	Price float64
	Index int
}

// TargetExit is the distance price has to travel back for the position to
// close with the given profit.
type TargetExit struct {
	Target   float64 `json:"target" yaml:"target"`
	Distance float64 `json:"distance" yaml:"distance"`
}

// Row is one line of the sizing table.
type Row struct {
	Price                 float64      `json:"price" yaml:"price"`
	LotSize               float64      `json:"lot_size" yaml:"lot_size"`
	CumulativeLots        float64      `json:"cumulative_lots" yaml:"cumulative_lots"`
	BreakEvenPrice        float64      `json:"break_even_price" yaml:"break_even_price"`
	FloatingPnL           float64      `json:"floating_pnl" yaml:"floating_pnl"`
	FloatingPnLPct        float64      `json:"floating_pnl_pct" yaml:"floating_pnl_pct"`
	ExitDistance          float64      `json:"exit_distance" yaml:"exit_distance"`
	TargetExits           []TargetExit `json:"target_exits" yaml:"target_exits"`
	ProfitAtReturnToStart float64      `json:"profit_at_return_to_start" yaml:"profit_at_return_to_start"`
	MartingaleRatio       float64      `json:"martingale_ratio" yaml:"martingale_ratio"`
}

// Summary condenses a table into a few totals.
type Summary struct {
	Rows             int     `json:"rows" yaml:"rows"`
	TotalLots        float64 `json:"total_lots" yaml:"total_lots"`
	TotalNotional    float64 `json:"total_notional" yaml:"total_notional"`
	FinalBreakEven   float64 `json:"final_break_even" yaml:"final_break_even"`
	WorstFloatingPnL float64 `json:"worst_floating_pnl" yaml:"worst_floating_pnl"`
}

// Table is the result of a calculation, rows ordered by descending price.
type Table struct {
	StartingPrice float64   `json:"starting_price" yaml:"starting_price"`
	Direction     Direction `json:"direction" yaml:"direction"`
	Mode          Mode      `json:"mode" yaml:"mode"`
	Rows          []Row     `json:"rows" yaml:"rows"`
	Summary       Summary   `json:"summary" yaml:"summary"`
}
