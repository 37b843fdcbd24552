// Package render writes sizing tables for people and for other programs.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"tranche-calculator-go/internal/grid"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Write renders t to w in the given format.
func Write(w io.Writer, t *grid.Table, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return writeTable(w, t)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeTable(w io.Writer, t *grid.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Start %s\tDirection %s\tMode %s\t\n\n", num(t.StartingPrice), t.Direction, t.Mode)

	header := []string{"Price", "Lots", "Cum. lots", "Break even", "Floating", "Floating %", "Exit"}
	if len(t.Rows) > 0 {
		for _, te := range t.Rows[0].TargetExits {
			header = append(header, "Exit "+strconv.FormatFloat(te.Target, 'f', -1, 64))
		}
	}
	header = append(header, "Return profit", "Martingale")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, r := range t.Rows {
		cols := []string{
			num(r.Price), num(r.LotSize), num(r.CumulativeLots), num(r.BreakEvenPrice),
			num(r.FloatingPnL), num(r.FloatingPnLPct), num(r.ExitDistance),
		}
		for _, te := range r.TargetExits {
			cols = append(cols, num(te.Distance))
		}
		cols = append(cols, num(r.ProfitAtReturnToStart), num(r.MartingaleRatio))
		fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
	}

	s := t.Summary
	fmt.Fprintf(tw, "\nRows %d\tTotal lots %s\tNotional %s\tBreak even %s\tWorst floating %s\t\n",
		s.Rows, num(s.TotalLots), num(s.TotalNotional), num(s.FinalBreakEven), num(s.WorstFloatingPnL))

	return tw.Flush()
}
