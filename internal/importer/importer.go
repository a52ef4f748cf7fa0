// Package importer reads pipe drawings and the hydraulic reference tables.
// Tables may be Excel workbooks or CSV files; CSV delimiters are detected
// automatically and header names are recognised case-insensitively in
// Portuguese or English.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/xuri/excelize/v2"
)

// TablesResult holds the outcome of loading all reference tables.
type TablesResult struct {
	Tables   model.Tables
	Errors   []string
	Warnings []string
}

// Column roles of the reference tables.
const (
	colName        = "name"
	colFitting     = "fitting"
	colSigla       = "sigla"
	colDesignFlow  = "design_flow"
	colWeight      = "weight"
	colMinPressure = "min_pressure"
	colNominal     = "nominal"
	colInternal    = "internal"
	colArea        = "area"
	colFlow        = "flow"
	colElbow90     = "elbow_90"
	colElbow45     = "elbow_45"
	colTeeThrough  = "tee_through"
	colTeeBranch   = "tee_branch"
	colEntryLoss   = "entry_loss"
	colLockValve   = "lock_valve"
	colGateValve   = "gate_valve"
	colEntry       = "entry"
	colExit        = "exit"
	colType        = "type"
	colPrice       = "price"
	colCoefficient = "coefficient"
)

// tableLayout describes how to recognise the columns of one table.
type tableLayout struct {
	name     string
	order    []string            // positional fallback when no header is found
	required []string            // roles that must be present
	aliases  map[string][]string // role -> accepted header names (lowercase)
}

var nominalAliases = []string{"diâmetro nominal (mm)", "diametro nominal (mm)", "diâmetro nominal", "diametro nominal", "nominal", "nominal diameter", "dn"}

var fixtureLayout = tableLayout{
	name:     "fixtures",
	order:    []string{colName, colFitting, colSigla, colDesignFlow, colWeight, colMinPressure},
	required: []string{colSigla, colWeight},
	aliases: map[string][]string{
		colName:        {"aparelho sanitário", "aparelho sanitario", "aparelho", "fixture", "appliance"},
		colFitting:     {"peça de utilização", "peca de utilizacao", "peça", "outlet", "fitting"},
		colSigla:       {"sigla", "code", "tag"},
		colDesignFlow:  {"vazão de projeto (m^3/s)", "vazao de projeto (m^3/s)", "vazão de projeto", "design flow"},
		colWeight:      {"peso relativo", "peso", "relative weight", "weight"},
		colMinPressure: {"pressão mínima (m.c.a)", "pressao minima (m.c.a)", "pressão mínima", "min pressure", "minimum pressure"},
	},
}

var flowDiameterLayout = tableLayout{
	name:     "flow/diameter",
	order:    []string{colNominal, colInternal, colArea, colFlow},
	required: []string{colNominal, colInternal, colArea, colFlow},
	aliases: map[string][]string{
		colNominal:  nominalAliases,
		colInternal: {"diâmetro interno (m)", "diametro interno (m)", "diâmetro interno", "internal", "internal diameter"},
		colArea:     {"área (m^2)", "area (m^2)", "área", "area"},
		colFlow:     {"vazão (m^3/s)", "vazao (m^3/s)", "vazão", "vazao", "flow", "max flow"},
	},
}

var fittingLossLayout = tableLayout{
	name:     "fitting loss",
	order:    []string{colNominal, colElbow90, colElbow45, colTeeThrough, colTeeBranch, colEntryLoss, colLockValve, colGateValve},
	required: []string{colNominal},
	aliases: map[string][]string{
		colNominal:    nominalAliases,
		colElbow90:    {"joelho 90", "elbow 90"},
		colElbow45:    {"joelho 45", "elbow 45"},
		colTeeThrough: {"te pass dir", "tê passagem direta", "tee through"},
		colTeeBranch:  {"te saida lat", "te saída lat", "tê saída lateral", "tee branch"},
		colEntryLoss:  {"entrada normal", "entry"},
		colLockValve:  {"rgl", "lock valve"},
		colGateValve:  {"rg", "gate valve"},
	},
}

var priceLayout = tableLayout{
	name:     "price",
	order:    []string{colEntry, colExit, colType, colPrice},
	required: []string{colEntry, colPrice},
	aliases: map[string][]string{
		colEntry: {"diâmetro nominal entrada", "diametro nominal entrada", "entry", "entry diameter", "diameter"},
		colExit:  {"diâmetro nominal saída", "diametro nominal saida", "exit", "exit diameter"},
		colType:  {"tipo", "type"},
		colPrice: {"preço", "preco", "price", "unit price"},
	},
}

var reductionLayout = tableLayout{
	name:     "reduction",
	order:    []string{colEntry, colExit, colCoefficient},
	required: []string{colEntry, colExit, colCoefficient},
	aliases: map[string][]string{
		colEntry:       {"diâmetro nominal entrada", "diametro nominal entrada", "entry", "entry diameter"},
		colExit:        {"diâmetro nominal saída", "diametro nominal saida", "exit", "exit diameter"},
		colCoefficient: {"coeficiente", "coefficient", "k"},
	},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// columns maps column roles to their index in a row.
type columns map[string]int

// DetectColumns matches a header row against the layout aliases.
// Returns the mapping and true if a header was detected, or the positional
// mapping and false if no cell looked like a header.
func (l tableLayout) DetectColumns(row []string) (columns, bool) {
	mapping := columns{}
	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range l.aliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if _, seen := mapping[role]; !seen {
					mapping[role] = i
				}
			}
		}
	}
	if !isHeader {
		positional := columns{}
		for i, role := range l.order {
			positional[role] = i
		}
		return positional, false
	}
	return mapping, true
}

// text returns the trimmed cell for role, or "" when absent.
func (c columns) text(row []string, role string) string {
	idx, ok := c[role]
	if !ok {
		return ""
	}
	return getCell(row, idx)
}

// number parses the cell for role. ok is false when the cell is empty.
func (c columns) number(row []string, role string) (v float64, ok bool, err error) {
	s := c.text(row, role)
	if s == "" {
		return 0, false, nil
	}
	v, err = parseNumber(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s '%s'", strings.ReplaceAll(role, "_", " "), s)
	}
	return v, true, nil
}

// parseNumber accepts both '.' and ',' as decimal separator.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ReadRows loads the first sheet of an Excel file or the records of a CSV file.
func ReadRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return readExcelRows(path)
	default:
		return readCSVRows(path)
	}
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("cannot read Excel data: %w", err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectCSVDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV: %w", err)
	}
	return records, nil
}

// rowParser converts one data row. A non-nil error skips the row with a warning.
type rowParser func(row []string, cols columns) error

// parseTable applies parse to every data row and collects messages prefixed
// with the table name.
func parseTable(rows [][]string, layout tableLayout, parse rowParser, result *TablesResult) {
	if len(rows) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("%s table: no data rows found", layout.name))
		return
	}

	cols, hasHeader := layout.DetectColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
		var missing []string
		for _, role := range layout.required {
			if _, ok := cols[role]; !ok {
				missing = append(missing, role)
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s table: required columns not found in header: %s", layout.name, strings.Join(missing, ", ")))
			return
		}
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s table: no header recognised, using positional columns", layout.name))
	}

	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		if err := parse(rows[i], cols); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s table row %d: %v, row skipped", layout.name, i+1, err))
		}
	}
}

// requireNumber parses a mandatory numeric cell.
func requireNumber(row []string, cols columns, role string) (float64, error) {
	v, ok, err := cols.number(row, role)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("missing %s value", strings.ReplaceAll(role, "_", " "))
	}
	return v, nil
}

// optionalNumber parses an optional numeric cell, defaulting to 0.
func optionalNumber(row []string, cols columns, role string) (float64, error) {
	v, _, err := cols.number(row, role)
	return v, err
}

// ParseFixtures reads the fixture relative-weight table.
func ParseFixtures(rows [][]string, result *TablesResult) {
	parseTable(rows, fixtureLayout, func(row []string, cols columns) error {
		sigla := strings.ToLower(cols.text(row, colSigla))
		if sigla == "" {
			return fmt.Errorf("missing sigla")
		}
		weight, err := requireNumber(row, cols, colWeight)
		if err != nil {
			return err
		}
		flow, err := optionalNumber(row, cols, colDesignFlow)
		if err != nil {
			return err
		}
		fx := model.FixtureRow{
			Name:       cols.text(row, colName),
			Fitting:    cols.text(row, colFitting),
			Sigla:      sigla,
			DesignFlow: flow,
			Weight:     weight,
		}
		if p, ok, err := cols.number(row, colMinPressure); err != nil {
			return err
		} else if ok {
			fx.MinPressure = &p
		}
		result.Tables.Fixtures = append(result.Tables.Fixtures, fx)
		return nil
	}, result)
}

// ParseFlowDiameters reads the flow/diameter table and sorts it by ascending flow.
func ParseFlowDiameters(rows [][]string, result *TablesResult) {
	parseTable(rows, flowDiameterLayout, func(row []string, cols columns) error {
		var r model.FlowDiameterRow
		var err error
		if r.Nominal, err = requireNumber(row, cols, colNominal); err != nil {
			return err
		}
		if r.Internal, err = requireNumber(row, cols, colInternal); err != nil {
			return err
		}
		if r.Area, err = requireNumber(row, cols, colArea); err != nil {
			return err
		}
		if r.Flow, err = requireNumber(row, cols, colFlow); err != nil {
			return err
		}
		result.Tables.FlowDiameters = append(result.Tables.FlowDiameters, r)
		return nil
	}, result)
	sort.SliceStable(result.Tables.FlowDiameters, func(i, j int) bool {
		return result.Tables.FlowDiameters[i].Flow < result.Tables.FlowDiameters[j].Flow
	})
}

// ParseFittingLosses reads the equivalent-length table. Empty cells count as 0.
func ParseFittingLosses(rows [][]string, result *TablesResult) {
	parseTable(rows, fittingLossLayout, func(row []string, cols columns) error {
		var r model.FittingLossRow
		var err error
		if r.Nominal, err = requireNumber(row, cols, colNominal); err != nil {
			return err
		}
		fields := []struct {
			role string
			dst  *float64
		}{
			{colElbow90, &r.Elbow90},
			{colElbow45, &r.Elbow45},
			{colTeeThrough, &r.TeeThrough},
			{colTeeBranch, &r.TeeBranch},
			{colEntryLoss, &r.Entry},
			{colLockValve, &r.LockValve},
			{colGateValve, &r.GateValve},
		}
		for _, f := range fields {
			if *f.dst, err = optionalNumber(row, cols, f.role); err != nil {
				return err
			}
		}
		result.Tables.FittingLosses = append(result.Tables.FittingLosses, r)
		return nil
	}, result)
}

// ParsePrices reads the component price table.
func ParsePrices(rows [][]string, result *TablesResult) {
	parseTable(rows, priceLayout, func(row []string, cols columns) error {
		var r model.PriceRow
		var err error
		if r.Entry, err = requireNumber(row, cols, colEntry); err != nil {
			return err
		}
		if r.Exit, err = optionalNumber(row, cols, colExit); err != nil {
			return err
		}
		if r.Price, err = requireNumber(row, cols, colPrice); err != nil {
			return err
		}
		r.Type = model.PriceType(strings.ToLower(cols.text(row, colType)))
		result.Tables.Prices = append(result.Tables.Prices, r)
		return nil
	}, result)
}

// ParseReductions reads the diameter-reduction coefficient table.
func ParseReductions(rows [][]string, result *TablesResult) {
	parseTable(rows, reductionLayout, func(row []string, cols columns) error {
		var r model.ReductionRow
		var err error
		if r.Entry, err = requireNumber(row, cols, colEntry); err != nil {
			return err
		}
		if r.Exit, err = requireNumber(row, cols, colExit); err != nil {
			return err
		}
		if r.Coefficient, err = requireNumber(row, cols, colCoefficient); err != nil {
			return err
		}
		result.Tables.Reductions = append(result.Tables.Reductions, r)
		return nil
	}, result)
}

// LoadTables reads all five reference tables. A table that cannot be opened is
// reported in Errors; bad rows only produce warnings.
func LoadTables(paths model.TablePaths) TablesResult {
	result := TablesResult{}
	sources := []struct {
		name  string
		path  string
		parse func([][]string, *TablesResult)
	}{
		{"fixtures", paths.Fixtures, ParseFixtures},
		{"flow/diameter", paths.FlowDiameters, ParseFlowDiameters},
		{"fitting loss", paths.FittingLosses, ParseFittingLosses},
		{"price", paths.Prices, ParsePrices},
		{"reduction", paths.Reductions, ParseReductions},
	}
	for _, src := range sources {
		if src.path == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s table: no file configured", src.name))
			continue
		}
		rows, err := ReadRows(src.path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s table: %v", src.name, err))
			continue
		}
		src.parse(rows, &result)
	}
	return result
}
