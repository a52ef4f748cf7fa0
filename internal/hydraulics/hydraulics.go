// Package hydraulics derives flow, candidate diameters and head losses for
// every segment of a network.
package hydraulics

import (
	"math"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
)

// candidateCount is the number of diameters offered per segment: the first
// feasible one plus its two larger neighbours.
const candidateCount = 3

// MeterRating is a water meter's maximum flow for a nominal diameter.
type MeterRating struct {
	MaxFlow float64 // m³/s
	Nominal float64 // mm
}

// MeterRatings lists the meter capacities by ascending flow.
var MeterRatings = []MeterRating{
	{0.0004166667, 20},
	{0.0008333333, 20},
	{0.0013888889, 20},
	{0.0019444444, 25},
	{0.0027777778, 25},
	{0.0055555556, 40},
	{0.0083333333, 50},
}

// Run recomputes every hydraulic quantity of every segment from its weight
// total and fitting. Derived slices are rebuilt from scratch, so calling Run
// twice on the same input gives the same result.
func Run(net *model.Network, tables *model.Tables, s model.Settings) {
	for _, seg := range net.Segments {
		Compute(seg, tables, s)
	}
}

// Compute fills the hydraulic fields of one segment.
func Compute(seg *model.Segment, tables *model.Tables, s model.Settings) {
	seg.Flow = Flow(s.FlowCoefficient, seg.WeightTotal)
	rows := SelectCandidates(seg.Flow, tables.FlowDiameters)

	n := len(rows)
	c := model.Candidates{
		Nominal:       make([]float64, n),
		Internal:      make([]float64, n),
		Area:          make([]float64, n),
		Velocity:      make([]float64, n),
		Reynolds:      make([]float64, n),
		Friction:      make([]float64, n),
		UnitLoss:      make([]float64, n),
		VirtualLength: make([]float64, n),
		HeadLoss:      make([]float64, n),
		Price:         make([]float64, n),
	}
	for j, r := range rows {
		c.Nominal[j] = r.Nominal
		c.Internal[j] = r.Internal
		c.Area[j] = r.Area
		if r.Area > 0 {
			c.Velocity[j] = seg.Flow / r.Area
		}
		c.Reynolds[j] = c.Velocity[j] * r.Internal / s.Viscosity
		c.Friction[j] = FrictionFactor(c.Reynolds[j], r.Internal, s.Roughness)
		c.UnitLoss[j] = UnitLoss(c.Friction[j], r.Internal, c.Velocity[j], s.Gravity)
	}

	kind := equivalentKind(seg, s)
	for j := range rows {
		if kind == eqNone {
			c.VirtualLength[j] = seg.Length
			c.HeadLoss[j] = seg.Length * c.UnitLoss[j]
			continue
		}
		row, ok := tables.FittingLoss(c.Nominal[j], s.Tolerance)
		if !ok {
			// no equivalent length for this diameter: physical length only
			c.EquivalentLength = append(c.EquivalentLength, 0)
			c.VirtualLength[j] = seg.Length
			c.HeadLoss[j] = seg.Length * c.UnitLoss[j]
			continue
		}
		eq := kind.length(row)
		c.EquivalentLength = append(c.EquivalentLength, eq)
		c.VirtualLength[j] = model.RoundTo(seg.Length+eq, 2)
		c.HeadLoss[j] = c.VirtualLength[j] * c.UnitLoss[j]
	}

	if seg.HasLabelPrefix(s.MeterPrefix) {
		c.MeterLoss = make([]float64, n)
		for j := range rows {
			c.MeterLoss[j] = MeterLoss(seg.Flow, c.Nominal[j], s.SentinelLoss, s.Tolerance)
			c.HeadLoss[j] += c.MeterLoss[j]
		}
	}

	seg.Candidates = c
	// baselines changed, any applied reducer refers to stale values
	seg.Ledger = model.Ledger{}
	seg.Reductions = nil
	seg.ReductionsResolved = false
}

// Flow returns the probable flow in m³/s for a relative-weight total.
func Flow(k, weightTotal float64) float64 {
	if weightTotal <= 0 {
		return 0
	}
	return k * math.Sqrt(weightTotal)
}

// SelectCandidates returns the first row whose reference flow exceeds flow plus
// up to two following rows. rows must be sorted by ascending flow.
func SelectCandidates(flow float64, rows []model.FlowDiameterRow) []model.FlowDiameterRow {
	for i, r := range rows {
		if r.Flow > flow {
			end := i + candidateCount
			if end > len(rows) {
				end = len(rows)
			}
			return rows[i:end]
		}
	}
	return nil
}

// FrictionFactor returns the Darcy friction factor. Turbulent flow (Re > 1e5)
// uses the Swamee-Jain form; transitional flow (5e3 <= Re <= 1e5) with a
// relative roughness within [1e-6, 1e-2] uses a second explicit form. Any
// other regime yields 0.
func FrictionFactor(re, d, roughness float64) float64 {
	if d <= 0 {
		return 0
	}
	rel := roughness / d
	switch {
	case re > 1e5:
		t := math.Log10(rel/3.7 + 5.13/math.Pow(re, 0.89))
		if t == 0 {
			return 0
		}
		return math.Pow(1/(-2*t), 2)
	case re >= 5e3 && re <= 1e5 && rel >= 1e-6 && rel <= 1e-2:
		t := math.Log(roughness/(3.7*d) + 5.74/math.Pow(re, 0.9))
		if t == 0 {
			return 0
		}
		return 1.325 / (t * t)
	default:
		return 0
	}
}

// UnitLoss returns the head loss per metre of pipe.
func UnitLoss(friction, d, velocity, g float64) float64 {
	if d <= 0 {
		return 0
	}
	return friction * (1 / d) * (velocity * velocity / (2 * g))
}

// MeterLoss returns the head loss across a water meter of the given nominal
// diameter. The smallest rated meter able to pass twice the flow is used; when
// none fits the sentinel is returned.
func MeterLoss(flow, nominal, sentinel, tol float64) float64 {
	for _, m := range MeterRatings {
		if math.Abs(m.Nominal-nominal) >= tol {
			continue
		}
		if m.MaxFlow >= 2*flow {
			q := 10 * flow
			return q * q / (m.MaxFlow * m.MaxFlow * 10)
		}
	}
	return sentinel
}

// eqKind selects the fitting-loss column that applies to a segment.
type eqKind int

const (
	eqNone eqKind = iota
	eqElbow45
	eqElbow90
	eqTeeBranch
	eqTeeThrough
	eqEntry
	eqLockValve
	eqGateValve
)

func (k eqKind) length(r model.FittingLossRow) float64 {
	switch k {
	case eqElbow45:
		return r.Elbow45
	case eqElbow90:
		return r.Elbow90
	case eqTeeBranch:
		return r.TeeBranch
	case eqTeeThrough:
		return r.TeeThrough
	case eqEntry:
		return r.Entry
	case eqLockValve:
		return r.LockValve
	case eqGateValve:
		return r.GateValve
	default:
		return 0
	}
}

// equivalentKind picks the column from the segment's fitting, or failing that
// from its first label.
func equivalentKind(seg *model.Segment, s model.Settings) eqKind {
	switch seg.Fitting {
	case model.FittingElbow45:
		return eqElbow45
	case model.FittingElbow90:
		return eqElbow90
	case model.FittingTeeBranch:
		return eqTeeBranch
	case model.FittingTeeThrough:
		return eqTeeThrough
	}
	if len(seg.Labels) == 0 {
		return eqNone
	}
	switch strings.ToLower(seg.Labels[0]) {
	case strings.ToLower(s.ReservoirLabel):
		return eqEntry
	case strings.ToLower(s.LockValveLabel):
		return eqLockValve
	case strings.ToLower(s.GateValveLabel):
		return eqGateValve
	}
	return eqNone
}
