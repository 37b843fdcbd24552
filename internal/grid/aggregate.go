package grid

import (
	"math"

	"tranche-calculator-go/internal/config"
)

// lotEpsilon is the cumulative size below which a break-even is undefined.
const lotEpsilon = 1e-9

// value is a float that may be undefined, e.g. the result of a division by a
// zero position size. Undefined values propagate through arithmetic and are
// reported as 0.
type value struct {
	v       float64
	defined bool
}

func defined(v float64) value { return value{v: v, defined: true} }

var undefined = value{}

func div(num, den float64) value {
	if math.Abs(den) < lotEpsilon {
		return undefined
	}
	return defined(num / den)
}

func (a value) add(b value) value {
	if !a.defined || !b.defined {
		return undefined
	}
	return defined(a.v + b.v)
}

func (a value) sub(b value) value {
	return a.add(value{v: -b.v, defined: b.defined})
}

func (a value) mul(f float64) value {
	if !a.defined {
		return undefined
	}
	return defined(a.v * f)
}

func (a value) abs() value {
	if !a.defined {
		return undefined
	}
	return defined(math.Abs(a.v))
}

// report rounds a defined value and maps undefined or non-finite ones to 0.
func (a value) report() float64 {
	if !a.defined {
		return 0
	}
	return round2(a.v)
}

// round2 rounds to cents. Non-finite input and negative zero become 0.
func round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	r := math.Round(x*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// Aggregate computes the running exposure columns for rows in their stored
// order. Only Price and LotSize are read and Price is passed through unchanged;
// every derived column is recomputed, so aggregating an aggregated table yields
// the same result.
func Aggregate(rows []Row, startingPrice float64, dir Direction, cfg config.Grid) []Row {
	out := make([]Row, len(rows))

	var cumLots, cumCost float64
	for i, r := range rows {
		cumLots += r.LotSize
		cumCost += r.Price * r.LotSize

		price := defined(r.Price)
		units := cumLots * cfg.UnitsPerLot

		breakEven := div(cumCost, cumLots)
		floating := price.sub(breakEven).mul(units)
		floatingPct := floating.mul(100 / cfg.ReferenceCapital)

		var exit value
		if dir == DirectionDeclining {
			exit = price.sub(breakEven).abs()
		} else {
			exit = breakEven.sub(price)
		}

		targets := make([]TargetExit, 0, len(cfg.ProfitTargets))
		for _, target := range cfg.ProfitTargets {
			d := breakEven.add(div(target, units)).sub(price)
			targets = append(targets, TargetExit{Target: target, Distance: d.report()})
		}

		move := startingPrice - r.Price
		if dir != DirectionDeclining {
			move = -move
		}
		returnProfit := defined(move * units)

		ratio := defined(1)
		if i > 0 {
			ratio = div(r.LotSize, rows[i-1].LotSize)
		}

		out[i] = Row{
			Price:                 r.Price,
			LotSize:               round2(r.LotSize),
			CumulativeLots:        round2(cumLots),
			BreakEvenPrice:        breakEven.report(),
			FloatingPnL:           floating.report(),
			FloatingPnLPct:        floatingPct.report(),
			ExitDistance:          exit.report(),
			TargetExits:           targets,
			ProfitAtReturnToStart: returnProfit.report(),
			MartingaleRatio:       ratio.report(),
		}
	}
	return out
}

// Summarize totals an aggregated table.
func Summarize(rows []Row) Summary {
	s := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		return s
	}

	var notional float64
	worst := math.Inf(1)
	for _, r := range rows {
		notional += r.Price * r.LotSize
		worst = math.Min(worst, r.FloatingPnL)
	}

	last := rows[len(rows)-1]
	s.TotalLots = last.CumulativeLots
	s.TotalNotional = round2(notional)
	s.FinalBreakEven = last.BreakEvenPrice
	s.WorstFloatingPnL = round2(worst)
	return s
}
