package export

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/HydroSize/internal/model"
)

// buildTestResult creates a realistic sizing result for testing.
func buildTestResult() model.SizingResult {
	return model.SizingResult{
		RunID:     "5f0c9d8e-1111-4a2b-9c3d-000000000001",
		Status:    model.StatusOptimal,
		TotalCost: 58,
		Segments: []model.SegmentResult{
			{
				Key:    model.SegmentKey{ID: 1, Labeled: true, Start: model.Point3{Z: 10}},
				End:    model.Point3{Z: 5},
				Labels: []string{"res"},
				Length: 5, Fitting: "None", Flow: 0.00025,
				Nominal: 25, Internal: 0.0216, Velocity: 0.68, HeadLoss: 0.21, Price: 20,
			},
			{
				Key:    model.SegmentKey{ID: 2, Labeled: true, Start: model.Point3{Z: 5}},
				End:    model.Point3{X: 4, Z: 5},
				Length: 4, Fitting: "Elbow90", Flow: 0.00025,
				Nominal: 20, Internal: 0.017, Velocity: 1.1, HeadLoss: 0.62, Price: 10.5,
				Reduction: &model.Adjustment{Entry: 25, Exit: 20, Price: 1.5, Loss: 0.18},
			},
			{
				Key:    model.SegmentKey{ID: 3, Start: model.Point3{X: 4, Z: 5}},
				End:    model.Point3{X: 4, Y: 3, Z: 5},
				Labels: []string{"lv1"},
				Length: 3, Fitting: "TeeBranch", Flow: 0.00016,
				Nominal: 20, Internal: 0.017, Velocity: 0.7, HeadLoss: 0.4, Price: 27.5,
			},
		},
		Paths: []model.PathResult{
			{Label: "pt1", Segments: 2, StaticPressure: 5, MaxHeadLoss: 4, TotalLoss: 0.83, Margin: 3.17, Resolved: true},
			{
				Label: "lv1", Segments: 3, StaticPressure: 5, MaxHeadLoss: 0.9, TotalLoss: 1.23, Margin: -0.33,
				Warning: "unresolved margin: no diameter reduction left to enlarge",
			},
		},
		Unresolved: []string{"lv1"},
		Anomalies: []model.Anomaly{
			{Kind: model.AnomalyUnmatchedLabel, Message: "label \"xx\" at (1.00, 1.00, 0.00) matches no segment end"},
		},
	}
}

func TestWritePDF_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")

	err := WritePDF(path, buildTestResult())
	if err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestWritePDF_EmptyResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pdf")

	result := model.SizingResult{Status: model.StatusInfeasible}
	if err := WritePDF(path, result); err == nil {
		t.Fatal("expected error for result without segments, got nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written for an empty result")
	}
}

func TestWritePDF_ManySegmentsSpanPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.pdf")

	result := buildTestResult()
	base := result.Segments[2]
	for i := 0; i < 80; i++ {
		s := base
		s.Key.ID = 10 + i
		s.Key.Start = model.Point3{X: float64(i)}
		result.Segments = append(result.Segments, s)
	}
	for i := 0; i < 40; i++ {
		result.Paths = append(result.Paths, model.PathResult{Label: fmt.Sprintf("lv%d", i+2), Resolved: true})
	}

	if err := WritePDF(path, result); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}
	long, _ := os.Stat(path)

	short := filepath.Join(dir, "short.pdf")
	if err := WritePDF(short, buildTestResult()); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}
	shortInfo, _ := os.Stat(short)

	if long.Size() <= shortInfo.Size() {
		t.Errorf("expected the multi-page report to be larger: %d <= %d", long.Size(), shortInfo.Size())
	}
}

func TestWritePDF_InvalidPath(t *testing.T) {
	err := WritePDF(filepath.Join(t.TempDir(), "missing", "report.pdf"), buildTestResult())
	if err == nil {
		t.Fatal("expected error for unwritable path, got nil")
	}
}

func TestSegmentID(t *testing.T) {
	if got := segmentID(model.SegmentKey{ID: 7, Labeled: true}); got != "7" {
		t.Errorf("labeled id: got %q, want %q", got, "7")
	}
	if got := segmentID(model.SegmentKey{ID: 3}); got != "#3" {
		t.Errorf("positional id: got %q, want %q", got, "#3")
	}
}
