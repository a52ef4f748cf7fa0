// Package sizing runs the complete diameter sizing pipeline on a drawing.
package sizing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/piwi3910/HydroSize/internal/engine"
	"github.com/piwi3910/HydroSize/internal/hydraulics"
	"github.com/piwi3910/HydroSize/internal/metrics"
	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/piwi3910/HydroSize/internal/pricing"
	"github.com/piwi3910/HydroSize/internal/topology"
)

// ErrNoSegments is returned for a drawing without any pipe segment.
var ErrNoSegments = errors.New("drawing contains no segments")

// Input is everything a run needs besides its options.
type Input struct {
	Drawing  model.Drawing
	Tables   *model.Tables
	Settings model.Settings
}

// Options tune how a run is executed. Zero values are valid.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Registry
	Solver  engine.Solver
}

// Outcome is the result of a run together with the state it was computed on.
type Outcome struct {
	Result    model.SizingResult
	Network   *model.Network
	Selection model.Selection
}

type runner struct {
	in      Input
	logger  *slog.Logger
	metrics *metrics.Registry
	solver  engine.Solver
}

func newRunner(in Input, opts Options) *runner {
	r := &runner{in: in, logger: opts.Logger, metrics: opts.Metrics, solver: opts.Solver}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.in.Tables == nil {
		r.in.Tables = &model.Tables{}
	}
	return r
}

// stage runs fn and records its duration.
func (r *runner) stage(name string, fn func()) {
	start := time.Now()
	fn()
	d := time.Since(start)
	r.logger.Debug("stage finished", "stage", name, "duration", d)
	if r.metrics != nil {
		r.metrics.RecordStage(name, d)
	}
}

// Prepare builds the network and computes hydraulics, prices and reducers
// without optimising.
func Prepare(ctx context.Context, in Input, opts Options) (*model.Network, error) {
	return newRunner(in, opts).prepare(ctx)
}

func (r *runner) prepare(ctx context.Context) (*model.Network, error) {
	if len(r.in.Drawing.Segments) == 0 {
		return nil, ErrNoSegments
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var net *model.Network
	r.stage("topology", func() {
		net = topology.Build(r.in.Drawing, r.in.Tables, r.in.Settings, r.logger)
	})
	r.stage("hydraulics", func() {
		hydraulics.Run(net, r.in.Tables, r.in.Settings)
	})
	r.stage("pricing", func() {
		pricing.Resolve(net, r.in.Tables, r.in.Settings)
	})
	r.stage("reductions", func() {
		pricing.ResolveReductions(net, r.in.Tables, r.in.Settings)
	})

	if r.metrics != nil {
		r.metrics.UpdateNetwork(len(net.Segments), len(net.Paths), len(net.Tees))
		for _, a := range net.Anomalies {
			r.metrics.RecordAnomaly(string(a.Kind))
		}
	}
	return net, nil
}

// Run sizes every segment of the drawing. An infeasible model yields a result
// with status infeasible and no segments, together with engine.ErrInfeasible.
func Run(ctx context.Context, in Input, opts Options) (Outcome, error) {
	r := newRunner(in, opts)
	runID := uuid.NewString()
	log := r.logger.With("run_id", runID)
	r.logger = log

	net, err := r.prepare(ctx)
	if err != nil {
		r.finish(model.StatusError)
		return Outcome{Result: model.SizingResult{RunID: runID, Status: model.StatusError}}, err
	}

	out := Outcome{Network: net}
	opt := engine.New(r.in.Settings, r.solver, log)
	var sel model.Selection
	r.stage("optimize", func() {
		sel, err = opt.Optimize(ctx, net)
	})
	if r.metrics != nil {
		r.metrics.RecordSolve(opt.Stats.Variables, opt.Stats.Constraints, opt.Stats.Nodes)
	}
	if err != nil {
		status := model.StatusError
		switch {
		case errors.Is(err, engine.ErrSolverStopped):
			status = model.StatusStopped
		case errors.Is(err, engine.ErrInfeasible):
			status = model.StatusInfeasible
		}
		log.Error("optimization failed", "status", status, "error", err)
		r.finish(status)
		out.Result = model.SizingResult{RunID: runID, Status: status, Anomalies: net.Anomalies}
		return out, fmt.Errorf("run %s: %w", runID, err)
	}

	var outcomes []engine.RepairOutcome
	r.stage("repair", func() {
		outcomes = engine.Repair(net, sel, r.in.Settings, log)
	})

	out.Selection = sel
	out.Result = engine.BuildResult(net, sel, outcomes)
	out.Result.RunID = runID

	if r.metrics != nil {
		r.metrics.TotalCost.Set(out.Result.TotalCost)
		r.metrics.UnresolvedPaths.Set(float64(len(out.Result.Unresolved)))
		for _, o := range outcomes {
			r.metrics.RecordPath(o.Label, o.Iterations, o.Margin)
		}
	}
	r.finish(out.Result.Status)
	log.Info("sizing finished",
		"status", out.Result.Status,
		"total_cost", out.Result.TotalCost,
		"unresolved", len(out.Result.Unresolved))
	return out, nil
}

func (r *runner) finish(status model.Status) {
	if r.metrics != nil {
		r.metrics.RecordRun(string(status))
	}
}
