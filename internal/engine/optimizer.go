// Package engine selects one candidate diameter per segment at minimum cost
// and repairs paths whose final head loss exceeds what the reservoir allows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/piwi3910/HydroSize/internal/model"
)

var (
	// ErrInfeasible means no diameter selection satisfies every constraint.
	ErrInfeasible = errors.New("no feasible diameter selection")
	// ErrSolverStopped means the solver hit its node or time limit before
	// proving optimality. It is reported together with ErrInfeasible.
	ErrSolverStopped = errors.New("solver stopped before completion")
)

// SolveStats describes the size of the last model solved and the effort spent.
type SolveStats struct {
	Status      SolveStatus
	Variables   int
	Constraints int
	Nodes       int
}

// Optimizer runs the diameter-selection model through a Solver.
type Optimizer struct {
	Settings model.Settings
	Solver   Solver
	// Stats is filled by every call to Optimize, whatever its outcome.
	Stats  SolveStats
	logger *slog.Logger
}

// New creates an Optimizer. A nil solver selects the built-in branch and bound.
func New(settings model.Settings, solver Solver, logger *slog.Logger) *Optimizer {
	if solver == nil {
		solver = NewBranchAndBound(settings.NodeLimit)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Optimizer{Settings: settings, Solver: solver, logger: logger}
}

// Optimize formulates and solves the selection model, then applies the
// reducers the chosen diameters require to each segment's ledger. On any
// outcome other than a proven optimum no selection is returned.
func (o *Optimizer) Optimize(ctx context.Context, net *model.Network) (model.Selection, error) {
	f := Formulate(net, o.Settings)
	for _, b := range f.Unconstrained {
		o.logger.Warn("boundary has no valid diameter pair, leaving it unconstrained",
			"upstream", b.Up.String(), "downstream", b.Down.String())
	}

	if o.Settings.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Settings.TimeLimit)
		defer cancel()
	}

	sol, err := o.Solver.Solve(ctx, f.Model)
	o.Stats = SolveStats{
		Status:      sol.Status,
		Variables:   len(f.Model.Vars),
		Constraints: len(f.Model.Constraints),
		Nodes:       sol.Nodes,
	}
	o.logger.Info("solver finished",
		"status", sol.Status.String(),
		"variables", o.Stats.Variables,
		"constraints", o.Stats.Constraints,
		"nodes", o.Stats.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to solve diameter model: %w", err)
	}

	switch sol.Status {
	case SolveOptimal:
	case SolveInfeasible:
		return nil, ErrInfeasible
	case SolveNodeLimit, SolveCanceled:
		return nil, fmt.Errorf("%w: %w (%s after %d nodes)", ErrInfeasible, ErrSolverStopped, sol.Status, sol.Nodes)
	default:
		return nil, fmt.Errorf("solver returned status %s", sol.Status)
	}

	sel := f.Decode(sol.Values)
	ApplyReductions(net, sel, o.Settings, o.logger)
	return sel, nil
}

// ApplyReductions clears every ledger and records, on each downstream segment
// of a diameter step-down, the reducer joining it to its upstream neighbour.
func ApplyReductions(net *model.Network, sel model.Selection, s model.Settings, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, seg := range net.Segments {
		seg.Ledger = model.Ledger{}
	}
	seen := map[model.Boundary]bool{}
	for _, p := range net.Paths {
		for _, b := range p.Boundaries() {
			if seen[b] {
				continue
			}
			seen[b] = true
			if setReducer(net, sel, b, s) {
				continue
			}
			msg := fmt.Sprintf("no reducer from %s to %s for the chosen diameters", b.Up, b.Down)
			if noteOnce(net, model.AnomalyNoReducer, msg) {
				logger.Warn("missing reducer", "upstream", b.Up.String(), "downstream", b.Down.String())
			}
		}
	}
}

// noteOnce records an anomaly unless an identical one is already present.
func noteOnce(net *model.Network, kind model.AnomalyKind, msg string) bool {
	for _, a := range net.Anomalies {
		if a.Kind == kind && a.Message == msg {
			return false
		}
	}
	net.Note(kind, msg)
	return true
}

// setReducer updates the downstream ledger entry of boundary b for the current
// selection. It replaces any previous entry and reports false only when the
// diameters step down without a known reducer.
func setReducer(net *model.Network, sel model.Selection, b model.Boundary, s model.Settings) bool {
	up, okUp := net.ByKey[b.Up]
	dn, okDn := net.ByKey[b.Down]
	jUp, selUp := sel[b.Up]
	jDn, selDn := sel[b.Down]
	if !okUp || !okDn || !selUp || !selDn {
		return true
	}
	dUp, dDn := up.Candidates.Nominal[jUp], dn.Candidates.Nominal[jDn]
	if math.Abs(dUp-dDn) < s.Tolerance || dUp < dDn {
		delete(dn.Ledger, jDn)
		return true
	}
	r, ok := dn.FindReduction(dUp, dDn, s.Tolerance)
	if !ok {
		delete(dn.Ledger, jDn)
		return false
	}
	dn.Ledger[jDn] = model.Adjustment{Entry: r.Entry, Exit: r.Exit, Price: r.Price, Loss: r.Loss}
	return true
}

// PathLoss returns the effective head loss of a path under sel.
func PathLoss(net *model.Network, p *model.FixturePath, sel model.Selection) float64 {
	total := 0.0
	for _, step := range p.Steps {
		seg, ok := net.ByKey[step.Key]
		if !ok {
			continue
		}
		if j, ok := sel[step.Key]; ok {
			total += seg.EffectiveLoss(j)
		}
	}
	return total
}
