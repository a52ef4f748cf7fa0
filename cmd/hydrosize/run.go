package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/piwi3910/HydroSize/internal/engine"
	"github.com/piwi3910/HydroSize/internal/export"
	"github.com/piwi3910/HydroSize/internal/importer"
	"github.com/piwi3910/HydroSize/internal/metrics"
	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/piwi3910/HydroSize/internal/project"
	"github.com/piwi3910/HydroSize/internal/sizing"
)

// newLogger builds the process logger. Logs go to stderr so reports printed
// on stdout stay clean.
func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig(g *globalFlags) (model.Config, *slog.Logger, error) {
	path := g.configPath
	if path == "" {
		path = project.DefaultConfigName
	}
	cfg, err := project.LoadConfig(path)
	if err != nil {
		return model.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	logger.Debug("configuration loaded", "path", path)
	return cfg, logger, nil
}

// loadTables reads every reference table, logging warnings and failing on
// errors.
func loadTables(cfg model.Config, logger *slog.Logger) (*model.Tables, error) {
	res := importer.LoadTables(cfg.Tables)
	for _, w := range res.Warnings {
		logger.Warn("reference table", "warning", w)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("loading reference tables: %s", strings.Join(res.Errors, "; "))
	}
	return &res.Tables, nil
}

// loadInput imports the drawing and the reference tables.
func loadInput(cfg model.Config, logger *slog.Logger, drawingPath string) (sizing.Input, error) {
	dr := importer.ImportDXF(drawingPath, cfg.Settings.CoordinateDecimals)
	for _, w := range dr.Warnings {
		logger.Warn("drawing", "warning", w)
	}
	if len(dr.Errors) > 0 {
		return sizing.Input{}, fmt.Errorf("importing %s: %s", drawingPath, strings.Join(dr.Errors, "; "))
	}
	logger.Info("drawing imported",
		"path", drawingPath,
		"segments", len(dr.Drawing.Segments),
		"labels", len(dr.Drawing.Labels))

	tables, err := loadTables(cfg, logger)
	if err != nil {
		return sizing.Input{}, err
	}
	return sizing.Input{Drawing: dr.Drawing, Tables: tables, Settings: cfg.Settings}, nil
}

func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// mergeOutputs lets command-line destinations override the configured ones.
func mergeOutputs(cfg model.OutputConfig, opts outputFlags) model.OutputConfig {
	pick := func(flag, conf string) string {
		if flag != "" {
			return flag
		}
		return conf
	}
	return model.OutputConfig{
		PDF:         pick(opts.pdf, cfg.PDF),
		Workbook:    pick(opts.xlsx, cfg.Workbook),
		Labels:      pick(opts.labels, cfg.Labels),
		JSON:        pick(opts.json, cfg.JSON),
		MetricsFile: pick(opts.metricsFile, cfg.MetricsFile),
	}
}

func runSolve(ctx context.Context, g *globalFlags, opts outputFlags, drawingPath string) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Settings.TimeLimit = opts.timeout
	}
	in, err := loadInput(cfg, logger, drawingPath)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(ctx)
	defer cancel()

	reg := metrics.NewRegistry()
	out, runErr := sizing.Run(ctx, in, sizing.Options{Logger: logger, Metrics: reg})
	printResult(os.Stdout, out.Result)

	dest := mergeOutputs(cfg.Output, opts)
	snap := project.Snapshot{Drawing: drawingPath, Settings: cfg.Settings, Result: out.Result}
	if err := writeOutputs(dest, snap, nil, reg, logger); err != nil {
		return err
	}
	return runErr
}

func runCompare(ctx context.Context, g *globalFlags, opts outputFlags, drawingPath, diametersPath string) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Settings.TimeLimit = opts.timeout
	}
	diameters, err := importer.ReadDiameters(diametersPath)
	if err != nil {
		return err
	}
	in, err := loadInput(cfg, logger, drawingPath)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(ctx)
	defer cancel()

	out, err := sizing.Run(ctx, in, sizing.Options{Logger: logger})
	if err != nil {
		printResult(os.Stdout, out.Result)
		return err
	}
	if n := len(out.Network.Segments); n != len(diameters) {
		logger.Warn("manual diameter count differs from segment count, extra entries are ignored",
			"diameters", len(diameters), "segments", n)
	}

	cmp := engine.CompareBudget(out.Network, in.Tables, in.Settings, diameters, out.Selection)
	printComparison(os.Stdout, cmp)

	dest := mergeOutputs(model.OutputConfig{}, opts)
	snap := project.Snapshot{Drawing: drawingPath, Settings: cfg.Settings, Result: out.Result, Comparison: &cmp}
	return writeOutputs(dest, snap, &cmp, nil, logger)
}

// writeOutputs writes every configured report. Reports needing sized
// segments are skipped when the run produced none.
func writeOutputs(dest model.OutputConfig, snap project.Snapshot, cmp *model.BudgetComparison, reg *metrics.Registry, logger *slog.Logger) error {
	var errs []error
	sized := len(snap.Result.Segments) > 0
	write := func(kind, path string, fn func() error) {
		if path == "" {
			return
		}
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", kind, err))
			return
		}
		logger.Info("report written", "kind", kind, "path", path)
	}

	if sized {
		write("pdf", dest.PDF, func() error { return export.WritePDF(dest.PDF, snap.Result) })
		write("workbook", dest.Workbook, func() error { return export.WriteWorkbook(dest.Workbook, snap.Result, cmp) })
		write("labels", dest.Labels, func() error { return export.WriteLabels(dest.Labels, snap.Result) })
	} else if dest.PDF != "" || dest.Workbook != "" || dest.Labels != "" {
		logger.Warn("no sized segments, skipping PDF, workbook and tags", "status", snap.Result.Status)
	}
	write("json", dest.JSON, func() error { return project.SaveResult(dest.JSON, snap) })
	if reg != nil {
		write("metrics", dest.MetricsFile, func() error { return reg.WriteTextfile(dest.MetricsFile) })
	}
	return errors.Join(errs...)
}

func runInspect(ctx context.Context, g *globalFlags, drawingPath string) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	in, err := loadInput(cfg, logger, drawingPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	net, err := sizing.Prepare(ctx, in, sizing.Options{Logger: logger})
	if err != nil {
		return err
	}
	printNetwork(os.Stdout, net)
	return nil
}

func runTables(g *globalFlags) error {
	cfg, logger, err := loadConfig(g)
	if err != nil {
		return err
	}
	tables, err := loadTables(cfg, logger)
	if err != nil {
		return err
	}
	printTables(os.Stdout, cfg.Tables, tables)
	return nil
}
