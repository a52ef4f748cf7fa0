package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)

// ParseDiameters extracts every number from text in order. Any separator is
// accepted between values and ',' may be used as decimal mark, so a column
// pasted from a spreadsheet parses as is.
func ParseDiameters(text string) []float64 {
	var out []float64
	for _, tok := range numberPattern.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ReadDiameters loads a manual diameter list, one value per segment in
// report order. Excel files are read from their first sheet; anything else
// is treated as text.
func ReadDiameters(path string) ([]float64, error) {
	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		rows, err := readExcelRows(path)
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(strings.Join(row, " "))
			b.WriteByte('\n')
		}
		text = b.String()
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read diameters: %w", err)
		}
		text = string(data)
	}

	d := ParseDiameters(text)
	if len(d) == 0 {
		return nil, fmt.Errorf("no diameters found in %s", path)
	}
	return d, nil
}
