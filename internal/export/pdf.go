// Package export writes sizing results to report formats: a PDF report,
// an Excel workbook and a sheet of QR-coded pipe tags.
package export

import (
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/HydroSize/internal/model"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	rowHeight    = 6.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// tableColumn is one column of a rendered table.
type tableColumn struct {
	header string
	width  float64
}

var pathColumns = []tableColumn{
	{"Path", 30},
	{"Segments", 22},
	{"Static (m)", 28},
	{"Admissible (m)", 32},
	{"Total loss (m)", 32},
	{"Margin (m)", 28},
	{"Warning", 95},
}

var segmentColumns = []tableColumn{
	{"Id", 14},
	{"Start", 50},
	{"Length (m)", 22},
	{"Fitting", 24},
	{"Flow (l/s)", 22},
	{"DN (mm)", 18},
	{"Velocity (m/s)", 28},
	{"Loss (m)", 20},
	{"Reducer", 30},
	{"Price", 39},
}

// WritePDF generates the sizing report: a summary page with the balance of
// every fixture path, followed by the per-segment diameter table.
func WritePDF(path string, result model.SizingResult) error {
	if len(result.Segments) == 0 {
		return fmt.Errorf("no sized segments to export (status %s)", result.Status)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	y := renderSummary(pdf, result)
	y = renderPaths(pdf, tr, result.Paths, y+6)
	if len(result.Anomalies) > 0 {
		renderAnomalies(pdf, tr, result.Anomalies, y+6)
	}
	renderFooter(pdf)

	renderSegments(pdf, tr, result.Segments)

	return pdf.OutputFileAndClose(path)
}

// renderSummary draws the title block and headline figures. It returns the
// y position below the block.
func renderSummary(pdf *fpdf.Fpdf, result model.SizingResult) float64 {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(contentWidth, 10, "Pipe Diameter Sizing Report", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+headerHeight, pageWidth-marginRight, marginTop+headerHeight)

	y := marginTop + 18
	items := []struct {
		label string
		value string
	}{
		{"Run", result.RunID},
		{"Status", string(result.Status)},
		{"Total cost", fmt.Sprintf("%.2f", result.TotalCost)},
		{"Segments", fmt.Sprintf("%d", len(result.Segments))},
		{"Fixture paths", fmt.Sprintf("%d", len(result.Paths))},
		{"Unresolved paths", fmt.Sprintf("%d", len(result.Unresolved))},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}
	return y
}

// tableHeader draws the grey header row of a table at y.
func tableHeader(pdf *fpdf.Fpdf, cols []tableColumn, y float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.SetTextColor(0, 0, 0)
	x := marginLeft
	for _, c := range cols {
		pdf.SetXY(x, y)
		pdf.CellFormat(c.width, rowHeight, c.header, "1", 0, "C", true, 0, "")
		x += c.width
	}
}

// tableRow draws one body row with alternating background.
func tableRow(pdf *fpdf.Fpdf, cols []tableColumn, cells []string, y float64, i int) {
	if i%2 == 0 {
		pdf.SetFillColor(245, 245, 245)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	x := marginLeft
	for j, cell := range cells {
		pdf.SetXY(x, y)
		pdf.CellFormat(cols[j].width, rowHeight, cell, "1", 0, "C", true, 0, "")
		x += cols[j].width
	}
}

// sectionTitle draws a bold heading and returns the y below it.
func sectionTitle(pdf *fpdf.Fpdf, title string, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, title, "", 0, "L", false, 0, "")
	return y + 9
}

// nextRow advances y by one row, starting a new page with a repeated header
// when the current page is full.
func nextRow(pdf *fpdf.Fpdf, cols []tableColumn, y float64) float64 {
	y += rowHeight
	if y+rowHeight > pageHeight-marginBottom-6 {
		renderFooter(pdf)
		pdf.AddPage()
		y = marginTop
		tableHeader(pdf, cols, y)
		y += rowHeight
		pdf.SetFont("Helvetica", "", 8)
	}
	return y
}

func renderPaths(pdf *fpdf.Fpdf, tr func(string) string, paths []model.PathResult, y float64) float64 {
	y = sectionTitle(pdf, "Fixture Paths", y)
	tableHeader(pdf, pathColumns, y)
	y += rowHeight

	pdf.SetFont("Helvetica", "", 8)
	for i, p := range paths {
		if !p.Resolved {
			pdf.SetTextColor(200, 0, 0)
		}
		tableRow(pdf, pathColumns, []string{
			tr(p.Label),
			fmt.Sprintf("%d", p.Segments),
			fmt.Sprintf("%.2f", p.StaticPressure),
			fmt.Sprintf("%.2f", p.MaxHeadLoss),
			fmt.Sprintf("%.3f", p.TotalLoss),
			fmt.Sprintf("%.3f", p.Margin),
			truncate(pdf, tr(p.Warning), pathColumns[6].width-2),
		}, y, i)
		pdf.SetTextColor(0, 0, 0)
		y = nextRow(pdf, pathColumns, y)
	}
	return y
}

func renderAnomalies(pdf *fpdf.Fpdf, tr func(string) string, anomalies []model.Anomaly, y float64) {
	if y+20 > pageHeight-marginBottom {
		renderFooter(pdf)
		pdf.AddPage()
		y = marginTop
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(200, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(200, 7, "WARNING: Drawing Anomalies", "", 0, "L", false, 0, "")
	y += 8

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, a := range anomalies {
		if y+5 > pageHeight-marginBottom-6 {
			renderFooter(pdf)
			pdf.AddPage()
			y = marginTop
		}
		pdf.SetXY(marginLeft+5, y)
		line := truncate(pdf, tr(fmt.Sprintf("- %s: %s", a.Kind, a.Message)), contentWidth-5)
		pdf.CellFormat(contentWidth-5, 5, line, "", 0, "L", false, 0, "")
		y += 5
	}
}

func renderSegments(pdf *fpdf.Fpdf, tr func(string) string, segs []model.SegmentResult) {
	pdf.AddPage()
	y := sectionTitle(pdf, "Segment Diameters", marginTop)
	tableHeader(pdf, segmentColumns, y)
	y += rowHeight

	pdf.SetFont("Helvetica", "", 8)
	for i, s := range segs {
		reducer := "-"
		if s.Reduction != nil {
			reducer = fmt.Sprintf("%.0f > %.0f", s.Reduction.Entry, s.Reduction.Exit)
		}
		tableRow(pdf, segmentColumns, []string{
			segmentID(s.Key),
			tr(s.Key.Start.String()),
			fmt.Sprintf("%.2f", s.Length),
			s.Fitting,
			fmt.Sprintf("%.3f", s.Flow*1000),
			fmt.Sprintf("%.0f", s.Nominal),
			fmt.Sprintf("%.2f", s.Velocity),
			fmt.Sprintf("%.3f", s.HeadLoss),
			reducer,
			fmt.Sprintf("%.2f", s.Price),
		}, y, i)
		y = nextRow(pdf, segmentColumns, y)
	}
	renderFooter(pdf)
}

func renderFooter(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(contentWidth, 4, fmt.Sprintf("Generated by HydroSize - page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// segmentID renders a key's id, marking positional ids with '#'.
func segmentID(k model.SegmentKey) string {
	if k.Labeled {
		return fmt.Sprintf("%d", k.ID)
	}
	return fmt.Sprintf("#%d", k.ID)
}

// truncate shortens s with an ellipsis until it fits width.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
