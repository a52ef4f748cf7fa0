package export

import (
	"path/filepath"
	"testing"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")

	if err := WriteWorkbook(path, buildTestResult(), nil); err != nil {
		t.Fatalf("WriteWorkbook returned error: %v", err)
	}

	f := openWorkbook(t, path)
	got := f.GetSheetList()
	want := []string{SheetSegments, SheetPaths, SheetSummary}
	if len(got) != len(want) {
		t.Fatalf("sheets: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d: got %q, want %q", i, got[i], want[i])
		}
	}

	rows, err := f.GetRows(SheetSegments)
	if err != nil {
		t.Fatalf("failed to read segments: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 segment rows, got %d", len(rows))
	}
	if rows[0][11] != "DN (mm)" {
		t.Errorf("unexpected header %q", rows[0][11])
	}
	if rows[2][0] != "2" || rows[2][11] != "20" || rows[2][16] != "25" || rows[2][17] != "20" {
		t.Errorf("second segment row: %v", rows[2])
	}
	if rows[3][0] != "#3" {
		t.Errorf("positional id not marked: %q", rows[3][0])
	}

	paths, err := f.GetRows(SheetPaths)
	if err != nil {
		t.Fatalf("failed to read paths: %v", err)
	}
	if len(paths) != 3 || paths[2][0] != "lv1" || paths[2][6] != "FALSE" {
		t.Errorf("unexpected paths sheet: %v", paths)
	}

	status, err := f.GetCellValue(SheetSummary, "B3")
	if err != nil {
		t.Fatalf("failed to read summary: %v", err)
	}
	if status != "optimal" {
		t.Errorf("status cell: got %q, want optimal", status)
	}
	dn, _ := f.GetCellValue(SheetSummary, "A10")
	cost, _ := f.GetCellValue(SheetSummary, "C10")
	if dn != "20" || cost != "38" {
		t.Errorf("first diameter total: got DN %q cost %q, want 20 and 38", dn, cost)
	}
}

func TestWriteWorkbook_Comparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compare.xlsx")
	cmp := &model.BudgetComparison{
		ManualCost:    90,
		OptimizedCost: 58.4,
		Savings:       31.6,
		ManualItems: []model.BudgetItem{
			{Key: model.SegmentKey{ID: 1, Labeled: true}, Nominal: 32, Cost: 30, Source: "baseline"},
		},
		ManualByDiameter:    []model.DiameterTotal{{Nominal: 32, Length: 12, Cost: 90}},
		OptimizedByDiameter: []model.DiameterTotal{{Nominal: 20, Length: 7, Cost: 38.4}},
	}

	if err := WriteWorkbook(path, buildTestResult(), cmp); err != nil {
		t.Fatalf("WriteWorkbook returned error: %v", err)
	}

	f := openWorkbook(t, path)
	savings, err := f.GetCellValue(SheetComparison, "B4")
	if err != nil {
		t.Fatalf("failed to read comparison: %v", err)
	}
	if savings != "31.6" {
		t.Errorf("savings: got %q, want 31.6", savings)
	}
	src, _ := f.GetCellValue(SheetComparison, "D7")
	if src != "baseline" {
		t.Errorf("manual item source: got %q", src)
	}
}

func TestWriteWorkbook_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	if err := WriteWorkbook(path, model.SizingResult{Status: model.StatusInfeasible}, nil); err == nil {
		t.Fatal("expected error for result without segments, got nil")
	}
}

func TestDiameterTotals(t *testing.T) {
	totals := diameterTotals(buildTestResult().Segments)

	if len(totals) != 2 {
		t.Fatalf("expected 2 diameters, got %d", len(totals))
	}
	if totals[0].Nominal != 20 || totals[0].Length != 7 {
		t.Errorf("DN 20: got %+v", totals[0])
	}
	if totals[1].Nominal != 25 || totals[1].Cost != 20 {
		t.Errorf("DN 25: got %+v", totals[1])
	}
}
