package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/HydroSize/internal/model"
)

// Formulation is the binary diameter-selection model of a network together
// with the mapping back to segments.
type Formulation struct {
	Model *Model
	Keys  []model.SegmentKey         // segments in decision order
	Vars  map[model.SegmentKey][]int // variable index per candidate
	// Unconstrained lists boundaries that had no valid diameter pair at all
	// and were therefore left without forbidden-pair rows.
	Unconstrained []model.Boundary
}

// Formulate builds the selection model:
//   - one choice set x[t,·] per segment,
//   - Σ baseline loss·x ≤ admissible head loss per path,
//   - Σ d·x upstream ≥ Σ d·x downstream on every path boundary,
//   - x_up + x_dn ≤ 1 for every pair joined by neither an equal diameter nor a
//     valid reducer,
//
// minimising Σ baseline price·x.
func Formulate(net *model.Network, s model.Settings) *Formulation {
	f := &Formulation{
		Model: &Model{},
		Vars:  map[model.SegmentKey][]int{},
	}
	for _, k := range decisionOrder(net) {
		seg := net.ByKey[k]
		vars := make([]int, seg.Candidates.Len())
		for j := range vars {
			vars[j] = f.Model.AddVar(fmt.Sprintf("x[%s,%d]", k, j+1), seg.Candidates.Price[j])
		}
		f.Keys = append(f.Keys, k)
		f.Vars[k] = vars
		f.Model.AddChoice(vars)
	}

	for _, p := range net.Paths {
		var terms []Term
		for _, step := range p.Steps {
			seg, ok := net.ByKey[step.Key]
			if !ok {
				continue
			}
			for j, v := range f.Vars[step.Key] {
				terms = append(terms, Term{Var: v, Coef: seg.Candidates.HeadLoss[j]})
			}
		}
		f.Model.AddConstraint("head_loss["+p.Label+"]", terms, LessEqual, p.MaxHeadLoss)
	}

	seen := map[model.Boundary]bool{}
	for _, p := range net.Paths {
		for _, b := range p.Boundaries() {
			if seen[b] {
				continue
			}
			seen[b] = true
			up, okUp := net.ByKey[b.Up]
			dn, okDn := net.ByKey[b.Down]
			if !okUp || !okDn {
				continue
			}
			f.addBoundary(b, up, dn, s)
		}
	}
	return f
}

func (f *Formulation) addBoundary(b model.Boundary, up, dn *model.Segment, s model.Settings) {
	upVars, dnVars := f.Vars[b.Up], f.Vars[b.Down]

	var mono []Term
	for j, v := range upVars {
		mono = append(mono, Term{Var: v, Coef: up.Candidates.Nominal[j]})
	}
	for j, v := range dnVars {
		mono = append(mono, Term{Var: v, Coef: -dn.Candidates.Nominal[j]})
	}
	f.Model.AddConstraint(fmt.Sprintf("monotone[%s>%s]", b.Up, b.Down), mono, GreaterEqual, 0)

	valid := make([][]bool, len(upVars))
	anyValid := false
	for a := range upVars {
		valid[a] = make([]bool, len(dnVars))
		for c := range dnVars {
			entry, exit := up.Candidates.Nominal[a], dn.Candidates.Nominal[c]
			if math.Abs(entry-exit) < s.Tolerance {
				valid[a][c] = true
			} else if _, ok := dn.FindReduction(entry, exit, s.Tolerance); ok {
				valid[a][c] = true
			}
			anyValid = anyValid || valid[a][c]
		}
	}
	if !anyValid {
		f.Unconstrained = append(f.Unconstrained, b)
		return
	}
	for a, va := range upVars {
		for c, vc := range dnVars {
			if valid[a][c] {
				continue
			}
			f.Model.AddConstraint(fmt.Sprintf("forbid[%s:%d>%s:%d]", b.Up, a+1, b.Down, c+1),
				[]Term{{Var: va, Coef: 1}, {Var: vc, Coef: 1}}, LessEqual, 1)
		}
	}
}

// Decode maps a solver assignment back to candidate indices.
func (f *Formulation) Decode(values []bool) model.Selection {
	sel := make(model.Selection, len(f.Keys))
	for _, k := range f.Keys {
		for j, v := range f.Vars[k] {
			if values[v] {
				sel[k] = j
				break
			}
		}
	}
	return sel
}

// decisionOrder lists segments reservoir-first along each path, then every
// segment no path crosses, in drawing order. Deciding upstream segments first
// lets monotonicity and reducer rows prune early.
func decisionOrder(net *model.Network) []model.SegmentKey {
	var order []model.SegmentKey
	seen := map[model.SegmentKey]bool{}
	add := func(k model.SegmentKey) {
		if _, ok := net.ByKey[k]; !ok || seen[k] {
			return
		}
		seen[k] = true
		order = append(order, k)
	}
	for _, p := range net.Paths {
		for i := len(p.Steps) - 1; i >= 0; i-- {
			add(p.Steps[i].Key)
		}
	}
	for _, s := range net.Segments {
		add(s.Key())
	}
	return order
}
