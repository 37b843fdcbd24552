package grid

const rebalanceReduction = 0.25

// totalCost is the notional of the table, sum(price * lot).
func totalCost(rows []Row) float64 {
	var cost float64
	for _, r := range rows {
		cost += r.Price * r.LotSize
	}
	return cost
}

// scaleToCost multiplies the first prefix lots by multiplier and rescales
// every lot so the total notional cost is unchanged. The result is not rounded.
func scaleToCost(rows []Row, multiplier float64, prefix int) []Row {
	prefix = min(max(prefix, 0), len(rows))

	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Price: r.Price, LotSize: r.LotSize}
	}

	original := totalCost(out)
	for i := 0; i < prefix; i++ {
		out[i].LotSize *= multiplier
	}

	scale := 1.0
	if updated := totalCost(out); updated != 0 {
		scale = original / updated
	}
	for i := range out {
		out[i].LotSize *= scale
	}
	return out
}

// Rebalance shifts size towards the first prefix rows of an aggregated table
// while keeping its total notional cost, then takes 0.25 lot off each of them.
// Lots are clamped at zero and rounded. Only Price and LotSize are set on the
// result; run Aggregate again to refresh the other columns.
func Rebalance(rows []Row, multiplier float64, prefix int) []Row {
	out := scaleToCost(rows, multiplier, prefix)
	for i := range out {
		if i < prefix {
			out[i].LotSize -= rebalanceReduction
		}
		out[i].LotSize = round2(max(out[i].LotSize, 0))
	}
	return out
}
