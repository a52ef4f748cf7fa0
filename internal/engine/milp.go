package engine

import (
	"context"
	"fmt"
)

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Variable is a binary decision variable.
type Variable struct {
	Name string
	Cost float64
}

// Term is one coefficient·variable product of a constraint.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is Σ Terms (Sense) RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a pure-binary linear program minimising Σ cost·x.
// Choices lists sets of variables of which exactly one must be 1; solvers may
// exploit them directly instead of treating them as plain equality rows.
type Model struct {
	Vars        []Variable
	Constraints []Constraint
	Choices     [][]int
}

// AddVar appends a binary variable and returns its index.
func (m *Model) AddVar(name string, cost float64) int {
	m.Vars = append(m.Vars, Variable{Name: name, Cost: cost})
	return len(m.Vars) - 1
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// AddChoice declares that exactly one of vars is selected.
func (m *Model) AddChoice(vars []int) {
	m.Choices = append(m.Choices, vars)
}

// Validate checks that every referenced variable exists and that no variable
// belongs to two choice sets.
func (m *Model) Validate() error {
	owner := make(map[int]int, len(m.Vars))
	for ci, set := range m.Choices {
		for _, v := range set {
			if v < 0 || v >= len(m.Vars) {
				return fmt.Errorf("choice %d references unknown variable %d", ci, v)
			}
			if prev, ok := owner[v]; ok {
				return fmt.Errorf("variable %s belongs to choices %d and %d", m.Vars[v].Name, prev, ci)
			}
			owner[v] = ci
		}
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("constraint %s references unknown variable %d", c.Name, t.Var)
			}
		}
	}
	return nil
}

// Feasible reports whether values satisfies every constraint and choice set
// within tol.
func (m *Model) Feasible(values []bool, tol float64) bool {
	if len(values) != len(m.Vars) {
		return false
	}
	for _, set := range m.Choices {
		n := 0
		for _, v := range set {
			if values[v] {
				n++
			}
		}
		if n != 1 {
			return false
		}
	}
	for _, c := range m.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			if values[t.Var] {
				lhs += t.Coef
			}
		}
		switch c.Sense {
		case LessEqual:
			if lhs > c.RHS+tol {
				return false
			}
		case GreaterEqual:
			if lhs < c.RHS-tol {
				return false
			}
		case Equal:
			if lhs > c.RHS+tol || lhs < c.RHS-tol {
				return false
			}
		}
	}
	return true
}

// Objective evaluates Σ cost·x.
func (m *Model) Objective(values []bool) float64 {
	total := 0.0
	for i, v := range values {
		if v {
			total += m.Vars[i].Cost
		}
	}
	return total
}

// SolveStatus is the termination condition reported by a Solver.
type SolveStatus int

const (
	SolveOptimal SolveStatus = iota
	SolveInfeasible
	SolveNodeLimit
	SolveCanceled
	SolveError
)

func (s SolveStatus) String() string {
	switch s {
	case SolveOptimal:
		return "optimal"
	case SolveInfeasible:
		return "infeasible"
	case SolveNodeLimit:
		return "node limit"
	case SolveCanceled:
		return "canceled"
	default:
		return "error"
	}
}

// Solution is the answer of a Solver. Values is nil unless a feasible
// assignment was found.
type Solution struct {
	Status    SolveStatus
	Values    []bool
	Objective float64
	Nodes     int
}

// Solver is the optimisation oracle the optimizer delegates to.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Solution, error)
}
