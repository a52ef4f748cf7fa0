package model

import (
	"fmt"
	"strings"
	"unicode"
)

// Fitting is the single local-loss fitting attributed to a segment.
// Keeping it as one field makes the four fitting flags mutually exclusive.
type Fitting int

const (
	FittingNone       Fitting = iota
	FittingElbow45            // 45 degree elbow
	FittingElbow90            // 90 degree elbow
	FittingTeeBranch          // tee, branch (side) outlet
	FittingTeeThrough         // tee, straight run
)

func (f Fitting) String() string {
	switch f {
	case FittingElbow45:
		return "Elbow45"
	case FittingElbow90:
		return "Elbow90"
	case FittingTeeBranch:
		return "TeeBranch"
	case FittingTeeThrough:
		return "TeeThrough"
	default:
		return "None"
	}
}

// SegmentKey identifies a segment. A drawn id may appear at several physical
// locations, so the start point is part of the identity.
type SegmentKey struct {
	ID      int    `json:"id"`
	Labeled bool   `json:"labeled"` // ID comes from a drawing label rather than input order
	Start   Point3 `json:"start"`
}

func (k SegmentKey) String() string {
	if k.Labeled {
		return fmt.Sprintf("%d@%s", k.ID, k.Start)
	}
	return fmt.Sprintf("#%d@%s", k.ID, k.Start)
}

// Adjustment is a reducer fitting applied on top of a candidate's baseline.
type Adjustment struct {
	Entry float64 `json:"entry"` // upstream nominal diameter (mm)
	Exit  float64 `json:"exit"`  // downstream nominal diameter (mm)
	Price float64 `json:"price"`
	Loss  float64 `json:"loss"`
}

// Ledger records the reducer adjustments applied per candidate index.
// Setting an entry replaces the previous one, so adjustments never accumulate.
type Ledger map[int]Adjustment

// ReductionRecord is a valid reducer between an upstream and a downstream diameter.
type ReductionRecord struct {
	Entry    float64 `json:"entry"`
	Exit     float64 `json:"exit"`
	Price    float64 `json:"price"`
	Velocity float64 `json:"velocity"`
	Loss     float64 `json:"loss"`
}

// Candidates holds the diameter alternatives of a segment as parallel slices.
// Index j in every slice refers to the j-th candidate diameter.
type Candidates struct {
	Nominal          []float64 `json:"nominal"`  // mm
	Internal         []float64 `json:"internal"` // m
	Area             []float64 `json:"area"`     // m²
	Velocity         []float64 `json:"velocity"` // m/s
	Reynolds         []float64 `json:"reynolds"`
	Friction         []float64 `json:"friction"`
	UnitLoss         []float64 `json:"unit_loss"`         // m/m
	EquivalentLength []float64 `json:"equivalent_length"` // m, empty when no fitting applies
	VirtualLength    []float64 `json:"virtual_length"`    // m
	MeterLoss        []float64 `json:"meter_loss"`        // m.c.a., empty unless metered
	HeadLoss         []float64 `json:"head_loss"`         // baseline m.c.a.
	Price            []float64 `json:"price"`             // baseline
}

// Len returns the number of candidate diameters.
func (c Candidates) Len() int {
	return len(c.Nominal)
}

// IndexOf returns the index of the candidate with the given nominal diameter, or -1.
func (c Candidates) IndexOf(nominal, tol float64) int {
	for j, d := range c.Nominal {
		if abs(d-nominal) < tol {
			return j
		}
	}
	return -1
}

// Segment is one drawn pipe run together with everything derived from it.
// The Topology Builder creates it; later stages fill their own fields.
type Segment struct {
	Index       int      `json:"index"` // 1-based position in the drawing, used when ID is nil
	ID          *int     `json:"id,omitempty"`
	Start       Point3   `json:"start"`
	End         Point3   `json:"end"`
	Length      float64  `json:"length"`
	Angle       float64  `json:"angle"`
	Labels      []string `json:"labels"`
	Weight      *float64 `json:"weight,omitempty"`
	WeightTotal float64  `json:"weight_total"`
	Fitting     Fitting  `json:"fitting"`
	Flow        float64  `json:"flow"` // m³/s

	Candidates         Candidates        `json:"candidates"`
	Reductions         []ReductionRecord `json:"reductions"`
	ReductionsResolved bool              `json:"-"`
	Ledger             Ledger            `json:"ledger,omitempty"`
}

// NewSegment creates a segment with every field initialised.
func NewSegment(index int, start, end Point3) *Segment {
	return &Segment{
		Index:  index,
		Start:  start,
		End:    end,
		Length: Distance(start, end),
		Angle:  Bearing(start, end),
		Labels: []string{},
		Ledger: Ledger{},
	}
}

// Ident returns the explicit id when labelled, otherwise the positional index.
func (s *Segment) Ident() int {
	if s.ID != nil {
		return *s.ID
	}
	return s.Index
}

// Key returns the composite identity of the segment.
func (s *Segment) Key() SegmentKey {
	return SegmentKey{ID: s.Ident(), Labeled: s.ID != nil, Start: s.Start}
}

// HasLabel reports whether any associated label equals name (case-insensitive).
func (s *Segment) HasLabel(name string) bool {
	for _, l := range s.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// HasLabelPrefix reports whether any associated label starts with prefix (case-insensitive).
func (s *Segment) HasLabelPrefix(prefix string) bool {
	p := strings.ToLower(prefix)
	for _, l := range s.Labels {
		if strings.HasPrefix(strings.ToLower(l), p) {
			return true
		}
	}
	return false
}

// EffectivePrice returns baseline price plus any reducer applied at candidate j.
func (s *Segment) EffectivePrice(j int) float64 {
	if j < 0 || j >= len(s.Candidates.Price) {
		return 0
	}
	return s.Candidates.Price[j] + s.Ledger[j].Price
}

// EffectiveLoss returns baseline head loss plus any reducer applied at candidate j.
func (s *Segment) EffectiveLoss(j int) float64 {
	if j < 0 || j >= len(s.Candidates.HeadLoss) {
		return 0
	}
	return s.Candidates.HeadLoss[j] + s.Ledger[j].Loss
}

// FindReduction returns the reducer record from entry to exit, if one exists.
func (s *Segment) FindReduction(entry, exit, tol float64) (ReductionRecord, bool) {
	for _, r := range s.Reductions {
		if abs(r.Entry-entry) < tol && abs(r.Exit-exit) < tol {
			return r, true
		}
	}
	return ReductionRecord{}, false
}

// Sigla extracts the lowercase alphabetic part of a label ("PT1" -> "pt").
func Sigla(label string) string {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// IsNumericLabel reports whether label consists only of decimal digits.
func IsNumericLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, r := range label {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
