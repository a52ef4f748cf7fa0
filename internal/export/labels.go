package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/HydroSize/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// TagInfo holds the data encoded into each pipe tag's QR code.
type TagInfo struct {
	RunID    string       `json:"run"`
	Segment  string       `json:"segment"`
	Start    model.Point3 `json:"start"`
	End      model.Point3 `json:"end"`
	Length   float64      `json:"length_m"`
	Nominal  float64      `json:"dn_mm"`
	Fitting  string       `json:"fitting,omitempty"`
	Reducer  string       `json:"reducer,omitempty"`
	Labels   []string     `json:"labels,omitempty"`
	sequence int
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// WriteLabels generates a PDF of QR-coded tags, one per sized segment, so
// each pipe run can be marked with its diameter on site.
func WriteLabels(path string, result model.SizingResult) error {
	tags := CollectTags(result)
	if len(tags) == 0 {
		return fmt.Errorf("no sized segments to generate tags for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, tag := range tags {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderTag(pdf, x, y, tag); err != nil {
			return fmt.Errorf("failed to render tag for segment %s: %w", tag.Segment, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderTag draws a single tag at the given position.
func renderTag(pdf *fpdf.Fpdf, x, y float64, info TagInfo) error {
	// cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal tag info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", info.sequence)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 5, fmt.Sprintf("DN %.0f", info.Nominal), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+6)
	pdf.CellFormat(textW, 3.5, truncate(pdf, "Segment "+info.Segment, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+10)
	pdf.CellFormat(textW, 3, fmt.Sprintf("%.2f m from %s", info.Length, info.Start), "", 1, "L", false, 0, "")

	if info.Reducer != "" {
		pdf.SetXY(textX, y+labelPadding+13.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Reducer "+info.Reducer, "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectTags extracts tag information from a sizing result in report order.
func CollectTags(result model.SizingResult) []TagInfo {
	var tags []TagInfo
	for i, s := range result.Segments {
		tag := TagInfo{
			RunID:    result.RunID,
			Segment:  segmentID(s.Key),
			Start:    s.Key.Start,
			End:      s.End,
			Length:   s.Length,
			Nominal:  s.Nominal,
			Labels:   s.Labels,
			sequence: i,
		}
		if s.Fitting != model.FittingNone.String() {
			tag.Fitting = s.Fitting
		}
		if s.Reduction != nil {
			tag.Reducer = fmt.Sprintf("%.0f > %.0f", s.Reduction.Entry, s.Reduction.Exit)
		}
		tags = append(tags, tag)
	}
	return tags
}
