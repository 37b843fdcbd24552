package grid

import (
	"fmt"
	"math"
)

// Declining grids widen their spacing with the distance from the start.
const (
	midZoneOffset = 120
	farZoneOffset = 280
	midZoneStep   = 20
	farZoneStep   = 40
)

// GenerateLevels returns the price levels of the grid in generation order.
//
// Rising grids are evenly spaced by baseStep. Declining grids use baseStep
// near the start, then 20 once 120 below it and 40 once 280 below it; the
// point exactly totalRange away is still included.
//
// Prices are computed as start minus an accumulated offset, so integer
// offsets compare exactly against startingPrice-N.
func GenerateLevels(startingPrice, totalRange, baseStep float64, dir Direction) ([]Level, error) {
	if baseStep <= 0 || totalRange < 0 {
		return nil, fmt.Errorf("invalid grid bounds: range %v, step %v", totalRange, baseStep)
	}

	var levels []Level
	switch dir {
	case DirectionDeclining:
		for offset := 0.0; offset <= totalRange; offset += declineStep(offset, baseStep) {
			levels = append(levels, Level{Price: startingPrice - offset, Index: len(levels)})
		}
	case DirectionRising:
		count := int(math.Floor(totalRange/baseStep+1e-9)) + 1
		levels = make([]Level, 0, count)
		for i := 0; i < count; i++ {
			levels = append(levels, Level{Price: startingPrice + float64(i)*baseStep, Index: i})
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	return levels, nil
}

func declineStep(offset, baseStep float64) float64 {
	switch {
	case offset >= farZoneOffset:
		return farZoneStep
	case offset >= midZoneOffset:
		return midZoneStep
	default:
		return baseStep
	}
}
