package engine

import (
	"context"
	"math"
	"sort"
)

// BranchAndBound is an exact depth-first solver for pure-binary models.
//
// Each choice set becomes one decision whose options are its variables;
// variables outside every choice set become a two-way decision (selected or
// not). Decisions are taken in model order and options cheapest first, so a
// good incumbent appears early. A node is pruned when
//   - its cost plus the cheapest completion reaches the incumbent, or
//   - some constraint it touched can no longer be satisfied given the
//     minimum/maximum contribution still available from undecided variables.
//
// The search stops early on context cancellation or once NodeLimit nodes have
// been expanded; the best assignment found so far is returned with a non-optimal
// status.
type BranchAndBound struct {
	NodeLimit int
	Tolerance float64
}

// NewBranchAndBound returns a solver with the given node limit (0 = unlimited).
func NewBranchAndBound(nodeLimit int) *BranchAndBound {
	return &BranchAndBound{NodeLimit: nodeLimit, Tolerance: 1e-9}
}

// Solve implements Solver.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (Solution, error) {
	if err := m.Validate(); err != nil {
		return Solution{Status: SolveError}, err
	}
	e := newBnbEngine(ctx, m, b.NodeLimit, b.Tolerance)
	if !e.rootFeasible() {
		return Solution{Status: SolveInfeasible}, nil
	}
	e.search(0, 0)

	sol := Solution{Nodes: e.nodes}
	switch {
	case e.canceled:
		sol.Status = SolveCanceled
	case e.limited:
		sol.Status = SolveNodeLimit
	case e.best == nil:
		sol.Status = SolveInfeasible
	default:
		sol.Status = SolveOptimal
	}
	if e.best != nil {
		sol.Values = e.best
		sol.Objective = e.bestCost
	}
	return sol, nil
}

// none marks the "leave unselected" option of a free variable.
const none = -1

type bnbOption struct {
	v       int
	cost    float64
	contrib []float64 // aligned with decision.touched
}

type bnbDecision struct {
	options []bnbOption
	touched []int     // constraints involving any option
	minC    []float64 // per touched constraint, smallest option contribution
	maxC    []float64 // per touched constraint, largest option contribution
}

// bnbEngine holds the search state of one Solve call.
type bnbEngine struct {
	ctx       context.Context
	m         *Model
	nodeLimit int
	tol       float64

	decisions  []bnbDecision
	minCostRem []float64 // minCostRem[k]: cheapest completion of decisions k..

	act    []float64 // per constraint, contribution of decided variables
	remMin []float64 // per constraint, smallest contribution still available
	remMax []float64 // per constraint, largest contribution still available

	values   []bool
	best     []bool
	bestCost float64

	nodes    int
	canceled bool
	limited  bool
}

func newBnbEngine(ctx context.Context, m *Model, nodeLimit int, tol float64) *bnbEngine {
	e := &bnbEngine{
		ctx:       ctx,
		m:         m,
		nodeLimit: nodeLimit,
		tol:       tol,
		act:       make([]float64, len(m.Constraints)),
		remMin:    make([]float64, len(m.Constraints)),
		remMax:    make([]float64, len(m.Constraints)),
		values:    make([]bool, len(m.Vars)),
		bestCost:  math.Inf(1),
	}

	// coefficient of each variable in each constraint, duplicates summed
	coefs := make([]map[int]float64, len(m.Vars))
	for ci, c := range m.Constraints {
		for _, t := range c.Terms {
			if coefs[t.Var] == nil {
				coefs[t.Var] = map[int]float64{}
			}
			coefs[t.Var][ci] += t.Coef
		}
	}

	inChoice := make([]bool, len(m.Vars))
	var groups [][]int
	for _, set := range m.Choices {
		for _, v := range set {
			inChoice[v] = true
		}
		groups = append(groups, set)
	}
	for v := range m.Vars {
		if !inChoice[v] {
			groups = append(groups, []int{v, none})
		}
	}

	for _, g := range groups {
		e.decisions = append(e.decisions, e.newDecision(g, coefs))
	}

	e.minCostRem = make([]float64, len(e.decisions)+1)
	for k := len(e.decisions) - 1; k >= 0; k-- {
		cheapest := math.Inf(1)
		for _, o := range e.decisions[k].options {
			cheapest = math.Min(cheapest, o.cost)
		}
		if len(e.decisions[k].options) == 0 {
			cheapest = 0
		}
		e.minCostRem[k] = e.minCostRem[k+1] + cheapest
	}
	return e
}

func (e *bnbEngine) newDecision(vars []int, coefs []map[int]float64) bnbDecision {
	var d bnbDecision
	pos := map[int]int{}
	for _, v := range vars {
		if v == none {
			continue
		}
		for ci := range coefs[v] {
			if _, ok := pos[ci]; !ok {
				pos[ci] = len(d.touched)
				d.touched = append(d.touched, ci)
			}
		}
	}
	sort.Ints(d.touched)
	for i, ci := range d.touched {
		pos[ci] = i
	}

	for _, v := range vars {
		o := bnbOption{v: v, contrib: make([]float64, len(d.touched))}
		if v != none {
			o.cost = e.m.Vars[v].Cost
			for ci, c := range coefs[v] {
				o.contrib[pos[ci]] = c
			}
		}
		d.options = append(d.options, o)
	}
	sort.SliceStable(d.options, func(i, j int) bool { return d.options[i].cost < d.options[j].cost })

	d.minC = make([]float64, len(d.touched))
	d.maxC = make([]float64, len(d.touched))
	for i := range d.touched {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, o := range d.options {
			lo = math.Min(lo, o.contrib[i])
			hi = math.Max(hi, o.contrib[i])
		}
		if len(d.options) == 0 {
			lo, hi = 0, 0
		}
		d.minC[i], d.maxC[i] = lo, hi
		e.remMin[d.touched[i]] += lo
		e.remMax[d.touched[i]] += hi
	}
	return d
}

// rootFeasible checks every constraint before anything is decided.
func (e *bnbEngine) rootFeasible() bool {
	for _, d := range e.decisions {
		if len(d.options) == 0 {
			return false
		}
	}
	for ci := range e.m.Constraints {
		if !e.satisfiable(ci) {
			return false
		}
	}
	return true
}

// satisfiable reports whether constraint ci can still hold.
func (e *bnbEngine) satisfiable(ci int) bool {
	c := e.m.Constraints[ci]
	lo := e.act[ci] + e.remMin[ci]
	hi := e.act[ci] + e.remMax[ci]
	switch c.Sense {
	case LessEqual:
		return lo <= c.RHS+e.tol
	case GreaterEqual:
		return hi >= c.RHS-e.tol
	default:
		return lo <= c.RHS+e.tol && hi >= c.RHS-e.tol
	}
}

// stopped polls the node limit and, every 1024 nodes, the context.
func (e *bnbEngine) stopped() bool {
	if e.canceled || e.limited {
		return true
	}
	if e.nodeLimit > 0 && e.nodes >= e.nodeLimit {
		e.limited = true
		return true
	}
	if e.nodes&1023 == 0 && e.ctx.Err() != nil {
		e.canceled = true
		return true
	}
	return false
}

func (e *bnbEngine) search(k int, cost float64) {
	if e.stopped() {
		return
	}
	e.nodes++

	if cost+e.minCostRem[k] >= e.bestCost-e.tol {
		return
	}
	if k == len(e.decisions) {
		e.best = append(e.best[:0], e.values...)
		e.bestCost = cost
		return
	}

	d := &e.decisions[k]
	for i, ci := range d.touched {
		e.remMin[ci] -= d.minC[i]
		e.remMax[ci] -= d.maxC[i]
	}
	for _, o := range d.options {
		ok := true
		for i, ci := range d.touched {
			e.act[ci] += o.contrib[i]
		}
		for _, ci := range d.touched {
			if !e.satisfiable(ci) {
				ok = false
				break
			}
		}
		if ok {
			if o.v != none {
				e.values[o.v] = true
			}
			e.search(k+1, cost+o.cost)
			if o.v != none {
				e.values[o.v] = false
			}
		}
		for i, ci := range d.touched {
			e.act[ci] -= o.contrib[i]
		}
		if e.canceled || e.limited {
			break
		}
	}
	for i, ci := range d.touched {
		e.remMin[ci] += d.minC[i]
		e.remMax[ci] += d.maxC[i]
	}
}
