package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/piwi3910/HydroSize/internal/engine"
	"github.com/piwi3910/HydroSize/internal/model"
)

func printResult(w io.Writer, r model.SizingResult) {
	fmt.Fprintf(w, "Run %s: %s\n", r.RunID, strings.ToUpper(string(r.Status)))
	if len(r.Segments) == 0 {
		fmt.Fprintln(w, "No diameter selection was produced.")
		printAnomalies(w, r.Anomalies)
		return
	}

	fmt.Fprintf(w, "\nSEGMENTS (%d):\n", len(r.Segments))
	fmt.Fprintf(w, "  %-6s %-26s %8s %-10s %6s %8s %9s %9s  %s\n",
		"Id", "Start", "Length", "Fitting", "DN", "V (m/s)", "Loss (m)", "Price", "Reducer")
	for _, s := range r.Segments {
		reducer := ""
		if s.Reduction != nil {
			reducer = fmt.Sprintf("%.0f>%.0f", s.Reduction.Entry, s.Reduction.Exit)
		}
		fmt.Fprintf(w, "  %-6s %-26s %8.2f %-10s %6.0f %8.2f %9.3f %9.2f  %s\n",
			keyID(s.Key), s.Key.Start, s.Length, s.Fitting, s.Nominal, s.Velocity, s.HeadLoss, s.Price, reducer)
	}

	fmt.Fprintf(w, "\nPATHS (%d):\n", len(r.Paths))
	for _, p := range r.Paths {
		mark := "ok"
		if !p.Resolved {
			mark = "UNRESOLVED"
		}
		fmt.Fprintf(w, "  %-8s static %6.2f m  admissible %6.2f m  loss %6.3f m  margin %7.3f m  [%s]\n",
			p.Label, p.StaticPressure, p.MaxHeadLoss, p.TotalLoss, p.Margin, mark)
		if p.Warning != "" {
			fmt.Fprintf(w, "    * %s\n", p.Warning)
		}
	}

	printAnomalies(w, r.Anomalies)
	fmt.Fprintf(w, "\nTotal cost: %.2f\n", r.TotalCost)
}

func printAnomalies(w io.Writer, anomalies []model.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWARNINGS (%d):\n", len(anomalies))
	for _, a := range anomalies {
		fmt.Fprintf(w, "  [%s] %s\n", a.Kind, a.Message)
	}
}

func printComparison(w io.Writer, c model.BudgetComparison) {
	fmt.Fprintln(w, "=== Manual vs Optimised Budget ===")
	fmt.Fprintf(w, "  Manual:    %10.2f\n", c.ManualCost)
	fmt.Fprintf(w, "  Optimised: %10.2f\n", c.OptimizedCost)
	fmt.Fprintf(w, "  Savings:   %10.2f\n", c.Savings)

	fmt.Fprintln(w, "\nBY DIAMETER:")
	fmt.Fprintf(w, "  %6s %12s %12s %12s %12s\n", "DN", "Manual (m)", "Manual cost", "Optim. (m)", "Optim. cost")
	for _, row := range mergeTotals(c.ManualByDiameter, c.OptimizedByDiameter) {
		fmt.Fprintf(w, "  %6.0f %12.2f %12.2f %12.2f %12.2f\n",
			row.nominal, row.manual.Length, row.manual.Cost, row.optimized.Length, row.optimized.Cost)
	}

	components := 0
	for _, it := range c.ManualItems {
		if it.Source == engine.SourceComponents {
			components++
		}
	}
	if components > 0 {
		fmt.Fprintf(w, "\n%d manual diameter(s) were not candidates and were priced from components.\n", components)
	}
}

type totalsRow struct {
	nominal   float64
	manual    model.DiameterTotal
	optimized model.DiameterTotal
}

// mergeTotals aligns two ascending per-diameter lists on nominal diameter.
func mergeTotals(manual, optimized []model.DiameterTotal) []totalsRow {
	var out []totalsRow
	i, j := 0, 0
	for i < len(manual) || j < len(optimized) {
		switch {
		case j >= len(optimized) || (i < len(manual) && manual[i].Nominal < optimized[j].Nominal):
			out = append(out, totalsRow{nominal: manual[i].Nominal, manual: manual[i]})
			i++
		case i >= len(manual) || optimized[j].Nominal < manual[i].Nominal:
			out = append(out, totalsRow{nominal: optimized[j].Nominal, optimized: optimized[j]})
			j++
		default:
			out = append(out, totalsRow{nominal: manual[i].Nominal, manual: manual[i], optimized: optimized[j]})
			i++
			j++
		}
	}
	return out
}

func printNetwork(w io.Writer, net *model.Network) {
	fmt.Fprintf(w, "SEGMENTS (%d):\n", len(net.Segments))
	for _, s := range net.OrderedSegments() {
		fmt.Fprintf(w, "  %-6s %s -> %s  %.2f m  %-10s weight %.2f  labels [%s]\n",
			keyID(s.Key()), s.Start, s.End, s.Length, s.Fitting, s.WeightTotal, strings.Join(s.Labels, " "))
		if s.Candidates.Len() > 0 {
			fmt.Fprintf(w, "         candidates %v\n", s.Candidates.Nominal)
		}
	}

	fmt.Fprintf(w, "\nTEES (%d):\n", len(net.Tees))
	for _, t := range net.Tees {
		fmt.Fprintf(w, "  at %s: %s, %s <- %s\n", t.At, keyID(t.Members[0]), keyID(t.Members[1]), keyID(t.Members[2]))
	}

	fmt.Fprintf(w, "\nPATHS (%d):\n", len(net.Paths))
	for _, p := range net.Paths {
		ids := make([]string, len(p.Steps))
		for i, st := range p.Steps {
			ids[i] = keyID(st.Key)
		}
		reach := ""
		if !p.ReachesReservoir {
			reach = "  (does not reach the reservoir)"
		}
		fmt.Fprintf(w, "  %-8s %s  static %.2f m  admissible %.2f m%s\n",
			p.Label, strings.Join(ids, " > "), p.StaticPressure, p.MaxHeadLoss, reach)
		if p.Warning != "" {
			fmt.Fprintf(w, "    * %s\n", p.Warning)
		}
	}

	printAnomalies(w, net.Anomalies)
}

func printTables(w io.Writer, paths model.TablePaths, t *model.Tables) {
	fmt.Fprintln(w, "REFERENCE TABLES:")
	fmt.Fprintf(w, "  %-16s %5d rows  %s\n", "fixtures", len(t.Fixtures), paths.Fixtures)
	fmt.Fprintf(w, "  %-16s %5d rows  %s\n", "flow/diameter", len(t.FlowDiameters), paths.FlowDiameters)
	fmt.Fprintf(w, "  %-16s %5d rows  %s\n", "fitting losses", len(t.FittingLosses), paths.FittingLosses)
	fmt.Fprintf(w, "  %-16s %5d rows  %s\n", "prices", len(t.Prices), paths.Prices)
	fmt.Fprintf(w, "  %-16s %5d rows  %s\n", "reductions", len(t.Reductions), paths.Reductions)
}

// keyID renders a segment id, marking positional ids with '#'.
func keyID(k model.SegmentKey) string {
	if k.Labeled {
		return fmt.Sprintf("%d", k.ID)
	}
	return fmt.Sprintf("#%d", k.ID)
}
