package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/entity"
)

// DrawingResult holds the geometry extracted from a DXF file.
type DrawingResult struct {
	Drawing  model.Drawing
	Errors   []string
	Warnings []string
}

// ImportDXF reads pipe runs (LINE) and annotations (TEXT) from a DXF file.
// Coordinates are rounded to the given number of decimals so that endpoints can
// be matched exactly by the topology builder.
func ImportDXF(path string, decimals int) DrawingResult {
	d, err := dxf.Open(path)
	if err != nil {
		return DrawingResult{Errors: []string{fmt.Sprintf("Cannot open DXF file: %v", err)}}
	}
	return ImportDrawing(d, decimals)
}

// ImportDrawing extracts segments and labels from an already parsed drawing.
func ImportDrawing(d *drawing.Drawing, decimals int) DrawingResult {
	result := DrawingResult{}

	entities := d.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	skipped := map[string]int{}
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.Line:
			seg := model.RawSegment{
				Start: model.RoundPoint(toPoint(e.Start), decimals),
				End:   model.RoundPoint(toPoint(e.End), decimals),
			}
			if seg.Start == seg.End {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Skipped zero-length line at %s", seg.Start))
				continue
			}
			result.Drawing.Segments = append(result.Drawing.Segments, seg)

		case *entity.Text:
			text := strings.TrimSpace(e.Value)
			if text == "" {
				continue
			}
			result.Drawing.Labels = append(result.Drawing.Labels, model.RawLabel{
				Text:     text,
				Position: model.RoundPoint(toPoint(e.Coord1), decimals),
			})

		default:
			skipped[fmt.Sprintf("%T", ent)]++
		}
	}

	types := make([]string, 0, len(skipped))
	for typ := range skipped {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Ignored %d %s entities", skipped[typ], strings.TrimPrefix(typ, "*entity.")))
	}

	if len(result.Drawing.Segments) == 0 {
		result.Errors = append(result.Errors, "No LINE entities found in DXF file")
	}
	return result
}

// toPoint converts a DXF coordinate slice to a point. Missing components are 0.
func toPoint(c []float64) model.Point3 {
	var p model.Point3
	if len(c) > 0 {
		p.X = c[0]
	}
	if len(c) > 1 {
		p.Y = c[1]
	}
	if len(c) > 2 {
		p.Z = c[2]
	}
	return p
}
