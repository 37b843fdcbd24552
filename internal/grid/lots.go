package grid

import (
	"cmp"
	"slices"
)

const (
	droppedIndex     = 22
	escalationIndex  = 13
	headCount        = 4
	tailCount        = 3
	tailBaseLot      = 6 / 1.2
	feeFactor        = 1.06
	tailReduction    = 0.5
	deepOffset       = 460
	reinsertedOffset = 360
)

// lotRule assigns lot to the first level it matches.
type lotRule struct {
	name  string
	match func(lv Level) bool
	lot   float64
}

// lotRules returns the assignment rules in priority order. The last rule
// always matches.
func lotRules(start, defaultLot float64, total int) []lotRule {
	between := func(p, lo, hi float64) bool { return lo <= p && p <= hi }
	return []lotRule{
		{name: "second-step", lot: 2.5, match: func(lv Level) bool {
			return lv.Price == start-20
		}},
		{name: "tail", lot: tailBaseLot, match: func(lv Level) bool {
			return lv.Index >= total-tailCount
		}},
		{name: "escalation", lot: 1.75, match: func(lv Level) bool {
			return lv.Index >= escalationIndex
		}},
		{name: "third-step", lot: 2.0, match: func(lv Level) bool {
			return lv.Price == start-30 || lv.Price == start+30
		}},
		{name: "near-band", lot: 1.25, match: func(lv Level) bool {
			return between(lv.Price, start-90, start-40) || between(lv.Price, start+40, start+90)
		}},
		{name: "mid-band", lot: 1.5, match: func(lv Level) bool {
			return between(lv.Price, start-120, start-100) || between(lv.Price, start+100, start+120)
		}},
		{name: "default", lot: defaultLot, match: func(Level) bool { return true }},
	}
}

func baseLot(rules []lotRule, lv Level) float64 {
	for _, r := range rules {
		if r.match(lv) {
			return r.lot
		}
	}
	return 0
}

// lotDivisor is the scaling applied on top of the rule lot.
func lotDivisor(lv Level, start float64, total int) float64 {
	switch {
	case lv.Index < headCount && lv.Price != start-20:
		return 2 * feeFactor
	case lv.Index >= total-tailCount:
		return 1.6 * feeFactor
	default:
		return 2.5 * feeFactor
	}
}

// AssignLots sizes every generated level and applies the structural edits,
// returning the price/lot table sorted by descending price. Only Price and
// LotSize are set on the returned rows.
func AssignLots(levels []Level, startingPrice, defaultLot float64, mode Mode) []Row {
	rows := applyEdits(sizeLevels(levels, startingPrice, defaultLot), startingPrice, mode)
	sortRows(rows)
	return rows
}

// sizeLevels drops the 23rd level and computes the rounded lot of every other
// one. Rule indices refer to the generated sequence, before the drop.
func sizeLevels(levels []Level, start, defaultLot float64) []Row {
	total := len(levels)
	rules := lotRules(start, defaultLot, total)

	rows := make([]Row, 0, total)
	for _, lv := range levels {
		if lv.Index == droppedIndex {
			continue
		}
		lot := baseLot(rules, lv) / lotDivisor(lv, start, total)
		rows = append(rows, Row{Price: lv.Price, LotSize: round2(lot)})
	}
	return rows
}

// applyEdits performs the fixed structural edits in generation order. Edits
// that need more rows than are available are skipped.
func applyEdits(rows []Row, start float64, mode Mode) []Row {
	// 1. Trim the second-to-last entry.
	if len(rows) >= 2 {
		rows[len(rows)-2].LotSize = round2(rows[len(rows)-2].LotSize - tailReduction)
	}

	// 2. Add the deep entry before the last one, sized like the trimmed entry.
	if len(rows) >= 2 {
		last := len(rows) - 1
		deep := Row{Price: start - deepOffset, LotSize: rows[last-1].LotSize}
		rows = slices.Insert(rows, last, deep)
	}

	// 3. The last entry only marks the end of the range.
	if len(rows) > 0 {
		rows[len(rows)-1].LotSize = 0
	}

	// 4. Conservative sizing flattens the third entry onto the second.
	if mode == ModeAlternate && len(rows) > 2 {
		rows[2].LotSize = rows[1].LotSize
	}

	// 5. Put the skipped level back as an empty marker.
	rows = append(rows, Row{Price: start - reinsertedOffset})

	return rows
}

func sortRows(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Compare(b.Price, a.Price)
	})
}
