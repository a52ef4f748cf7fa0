// Package pricing prices every candidate diameter and resolves the reducer
// fittings needed where a path steps down in diameter.
package pricing

import (
	"math"

	"github.com/piwi3910/HydroSize/internal/model"
)

// Resolve sets the baseline price of every candidate of every segment.
func Resolve(net *model.Network, tables *model.Tables, s model.Settings) {
	for _, seg := range net.Segments {
		firstTee := net.IsFirstTeeMember(seg.Key())
		for j, d := range seg.Candidates.Nominal {
			seg.Candidates.Price[j] = CandidatePrice(seg, d, firstTee, tables, s)
		}
	}
}

// CandidatePrice sums the pipe run and every fitting the segment carries at
// diameter d. A component missing from the price table costs the sentinel.
func CandidatePrice(seg *model.Segment, d float64, firstTee bool, tables *model.Tables, s model.Settings) float64 {
	lookup := func(typ model.PriceType) float64 {
		if p, ok := tables.Price(typ, d, s.Tolerance); ok {
			return p
		}
		return s.SentinelPrice
	}

	total := seg.Length * lookup(model.PricePipe)
	if firstTee {
		total += lookup(model.PriceTee)
	}
	switch seg.Fitting {
	case model.FittingElbow45:
		total += lookup(model.PriceElbow45)
	case model.FittingElbow90:
		total += lookup(model.PriceElbow90)
	}
	if seg.HasLabelPrefix(s.MeterPrefix) {
		total += lookup(model.PriceMeter)
	}
	if seg.HasLabel(s.LockValveLabel) {
		total += lookup(model.PriceLockValve)
	}
	if seg.HasLabel(s.GateValveLabel) {
		total += lookup(model.PriceGateValve)
	}
	return total
}

// BoundaryReductions evaluates every (upstream, downstream) candidate pair of
// a boundary. Equal diameters cost nothing, a pair with a reduction coefficient
// loses coefficient·v² at the downstream velocity, and any other pair carries
// the forbidden sentinel loss. Pairs are listed largest diameters first.
func BoundaryReductions(up, down *model.Segment, tables *model.Tables, s model.Settings) []model.ReductionRecord {
	var out []model.ReductionRecord
	for a := up.Candidates.Len() - 1; a >= 0; a-- {
		entry := up.Candidates.Nominal[a]
		for b := down.Candidates.Len() - 1; b >= 0; b-- {
			exit := down.Candidates.Nominal[b]
			v := down.Candidates.Velocity[b]
			loss := s.SentinelReduction
			switch {
			case math.Abs(entry-exit) < s.Tolerance:
				loss = 0
			default:
				if coef, ok := tables.ReductionCoefficient(entry, exit, s.Tolerance); ok {
					loss = coef * v * v
				}
			}
			out = append(out, model.ReductionRecord{
				Entry:    entry,
				Exit:     exit,
				Velocity: model.RoundTo(v, 6),
				Loss:     model.RoundTo(loss, 6),
			})
		}
	}
	return out
}

// IsRealReduction reports whether r describes an actual reducer fitting, as
// opposed to a same-diameter joint or a forbidden pair.
func IsRealReduction(r model.ReductionRecord, s model.Settings) bool {
	return math.Abs(r.Loss) >= s.Tolerance && math.Abs(r.Loss-s.SentinelReduction) >= s.Tolerance
}

// ResolveReductions walks every path from the reservoir toward its fixture and
// stores, on each downstream segment, the valid reducers from its upstream
// neighbour. A segment shared by several paths keeps the records of the first
// path that reaches it. Only real reducers are kept, each priced from the
// price table or the reducer sentinel.
func ResolveReductions(net *model.Network, tables *model.Tables, s model.Settings) {
	for _, p := range net.Paths {
		for _, b := range p.Boundaries() {
			up, ok := net.ByKey[b.Up]
			if !ok {
				continue
			}
			down, ok := net.ByKey[b.Down]
			if !ok || down.ReductionsResolved {
				continue
			}
			if up.Candidates.Len() == 0 || down.Candidates.Len() == 0 {
				down.Reductions = nil
				continue
			}

			var kept []model.ReductionRecord
			for _, r := range BoundaryReductions(up, down, tables, s) {
				if !IsRealReduction(r, s) {
					continue
				}
				r.Price = s.SentinelReducerPrice
				if price, ok := tables.ReducerPrice(r.Entry, r.Exit, s.Tolerance); ok {
					r.Price = price
				}
				kept = append(kept, r)
			}
			down.Reductions = kept
			down.ReductionsResolved = true
		}
	}
}
