package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSegments   = "Segments"
	SheetPaths      = "Paths"
	SheetSummary    = "Summary"
	SheetComparison = "Comparison"
)

var (
	segmentHeader = []interface{}{
		"Id", "Start X", "Start Y", "Start Z", "End X", "End Y", "End Z", "Labels",
		"Length (m)", "Fitting", "Flow (m3/s)", "DN (mm)", "Internal (m)",
		"Velocity (m/s)", "Head loss (m)", "Price", "Reducer in", "Reducer out",
	}
	pathHeader = []interface{}{
		"Path", "Segments", "Static pressure (m)", "Admissible loss (m)",
		"Total loss (m)", "Margin (m)", "Resolved", "Warning",
	}
)

// WriteWorkbook saves the result as an Excel workbook with one sheet per
// table. When cmp is not nil a comparison sheet against a manual budget is
// added.
func WriteWorkbook(path string, result model.SizingResult, cmp *model.BudgetComparison) error {
	if len(result.Segments) == 0 {
		return fmt.Errorf("no sized segments to export (status %s)", result.Status)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSegments); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetPaths, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	w := sheetWriter{f: f, header: header}
	w.segments(result.Segments)
	w.paths(result.Paths)
	w.summary(result)
	if cmp != nil {
		if _, err := f.NewSheet(SheetComparison); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", SheetComparison, err)
		}
		w.comparison(*cmp)
	}
	if w.err != nil {
		return fmt.Errorf("failed to write workbook: %w", w.err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// sheetWriter writes rows and keeps the first error, so the table code reads
// top to bottom without an error check per cell.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, r int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) headerRow(sheet string, r int, values []interface{}) {
	w.row(sheet, r, values)
	if w.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, err := excelize.CoordinatesToCellName(len(values), r)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(sheet, first, last, w.header)
}

func (w *sheetWriter) width(sheet, from, to string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, from, to, width)
}

func (w *sheetWriter) segments(segs []model.SegmentResult) {
	w.headerRow(SheetSegments, 1, segmentHeader)
	for i, s := range segs {
		var in, out interface{}
		if s.Reduction != nil {
			in, out = s.Reduction.Entry, s.Reduction.Exit
		}
		w.row(SheetSegments, i+2, []interface{}{
			segmentID(s.Key),
			s.Key.Start.X, s.Key.Start.Y, s.Key.Start.Z,
			s.End.X, s.End.Y, s.End.Z,
			strings.Join(s.Labels, " "),
			s.Length, s.Fitting, s.Flow, s.Nominal, s.Internal,
			s.Velocity, s.HeadLoss, s.Price, in, out,
		})
	}
	w.width(SheetSegments, "A", "R", 13)
}

func (w *sheetWriter) paths(paths []model.PathResult) {
	w.headerRow(SheetPaths, 1, pathHeader)
	for i, p := range paths {
		w.row(SheetPaths, i+2, []interface{}{
			p.Label, p.Segments, p.StaticPressure, p.MaxHeadLoss,
			p.TotalLoss, p.Margin, p.Resolved, p.Warning,
		})
	}
	w.width(SheetPaths, "A", "G", 18)
	w.width(SheetPaths, "H", "H", 60)
}

func (w *sheetWriter) summary(result model.SizingResult) {
	w.headerRow(SheetSummary, 1, []interface{}{"Item", "Value"})
	rows := [][]interface{}{
		{"Run", result.RunID},
		{"Status", string(result.Status)},
		{"Total cost", result.TotalCost},
		{"Segments", len(result.Segments)},
		{"Fixture paths", len(result.Paths)},
		{"Unresolved paths", strings.Join(result.Unresolved, ", ")},
	}
	r := 2
	for _, row := range rows {
		w.row(SheetSummary, r, row)
		r++
	}

	r++
	w.headerRow(SheetSummary, r, []interface{}{"DN (mm)", "Length (m)", "Cost"})
	r++
	for _, t := range diameterTotals(result.Segments) {
		w.row(SheetSummary, r, []interface{}{t.Nominal, t.Length, t.Cost})
		r++
	}

	if len(result.Anomalies) > 0 {
		r++
		w.headerRow(SheetSummary, r, []interface{}{"Anomaly", "Message"})
		r++
		for _, a := range result.Anomalies {
			w.row(SheetSummary, r, []interface{}{string(a.Kind), a.Message})
			r++
		}
	}
	w.width(SheetSummary, "A", "A", 22)
	w.width(SheetSummary, "B", "B", 60)
}

func (w *sheetWriter) comparison(cmp model.BudgetComparison) {
	w.headerRow(SheetComparison, 1, []interface{}{"Budget", "Cost"})
	w.row(SheetComparison, 2, []interface{}{"Manual", cmp.ManualCost})
	w.row(SheetComparison, 3, []interface{}{"Optimized", cmp.OptimizedCost})
	w.row(SheetComparison, 4, []interface{}{"Savings", cmp.Savings})

	r := 6
	w.headerRow(SheetComparison, r, []interface{}{"Segment", "Manual DN (mm)", "Manual cost", "Priced from"})
	r++
	for _, it := range cmp.ManualItems {
		w.row(SheetComparison, r, []interface{}{segmentID(it.Key), it.Nominal, it.Cost, it.Source})
		r++
	}

	r++
	w.headerRow(SheetComparison, r, []interface{}{"Budget", "DN (mm)", "Length (m)", "Cost"})
	r++
	for _, t := range cmp.ManualByDiameter {
		w.row(SheetComparison, r, []interface{}{"Manual", t.Nominal, t.Length, t.Cost})
		r++
	}
	for _, t := range cmp.OptimizedByDiameter {
		w.row(SheetComparison, r, []interface{}{"Optimized", t.Nominal, t.Length, t.Cost})
		r++
	}
	w.width(SheetComparison, "A", "D", 16)
}

// diameterTotals aggregates length and cost per nominal diameter, ascending.
func diameterTotals(segs []model.SegmentResult) []model.DiameterTotal {
	var out []model.DiameterTotal
	index := map[float64]int{}
	for _, s := range segs {
		i, ok := index[s.Nominal]
		if !ok {
			i = len(out)
			index[s.Nominal] = i
			out = append(out, model.DiameterTotal{Nominal: s.Nominal})
		}
		out[i].Length += s.Length
		out[i].Cost += s.Price
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nominal < out[j].Nominal })
	return out
}
