package model

import "sort"

// RawSegment is a line as it comes out of the drawing.
type RawSegment struct {
	Start Point3
	End   Point3
}

// RawLabel is a text entity as it comes out of the drawing.
type RawLabel struct {
	Text     string
	Position Point3
}

// Drawing is the geometric input of the sizing pipeline.
type Drawing struct {
	Segments []RawSegment
	Labels   []RawLabel
}

// Tee is a junction where exactly two segments start and one segment ends.
type Tee struct {
	At      Point3        `json:"at"`
	Members [3]SegmentKey `json:"members"` // first start, second start, end
}

// PathStep is one segment of a fixture path.
type PathStep struct {
	Key    SegmentKey `json:"key"`
	Angle  float64    `json:"angle"`
	Weight float64    `json:"weight"` // relative weight of the fixture that owns the path
	Start  Point3     `json:"start"`
}

// FixturePath runs from a fixture segment (Steps[0]) up to the reservoir segment.
type FixturePath struct {
	Label            string       `json:"label"` // full label text, e.g. "pt1"
	Sigla            string       `json:"sigla"` // alphabetic part, e.g. "pt"
	Steps            []PathStep   `json:"steps"`
	TeeKeys          []SegmentKey `json:"tee_keys,omitempty"`
	StaticPressure   float64      `json:"static_pressure"` // m.c.a.
	MaxHeadLoss      float64      `json:"max_head_loss"`   // m.c.a.
	Warning          string       `json:"warning,omitempty"`
	ReachesReservoir bool         `json:"reaches_reservoir"`
}

// Boundary is a pair of adjacent path segments, Up being closer to the reservoir.
type Boundary struct {
	Up   SegmentKey
	Down SegmentKey
}

// Boundaries lists the adjacent pairs of the path, walking from the reservoir end
// toward the fixture.
func (p *FixturePath) Boundaries() []Boundary {
	var out []Boundary
	for i := len(p.Steps) - 1; i > 0; i-- {
		out = append(out, Boundary{Up: p.Steps[i].Key, Down: p.Steps[i-1].Key})
	}
	return out
}

// AnomalyKind classifies topology problems found while building the network.
type AnomalyKind string

const (
	AnomalyAmbiguousID     AnomalyKind = "ambiguous_id"
	AnomalyEndCollision    AnomalyKind = "end_collision"
	AnomalyUnmatchedLabel  AnomalyKind = "unmatched_label"
	AnomalyTruncatedPath   AnomalyKind = "truncated_path"
	AnomalyDuplicatePath   AnomalyKind = "duplicate_path"
	AnomalyMissingFixture  AnomalyKind = "missing_fixture_text"
	AnomalyNoReservoir     AnomalyKind = "no_reservoir"
	AnomalyCycle           AnomalyKind = "cycle"
	AnomalyMultipleSources AnomalyKind = "multiple_sources"
	AnomalyNoReducer       AnomalyKind = "no_reducer"
)

// Anomaly is a non-fatal modelling problem surfaced to the user.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Message string      `json:"message"`
}

// Network is the in-memory state shared by all pipeline stages.
type Network struct {
	Segments  []*Segment              `json:"segments"`
	ByKey     map[SegmentKey]*Segment `json:"-"`
	Tees      []Tee                   `json:"tees"`
	Paths     []*FixturePath          `json:"paths"`
	Anomalies []Anomaly               `json:"anomalies,omitempty"`
}

// NewNetwork indexes segs by their composite key. When two segments share a key
// the later one wins, matching the order they appear in the drawing.
func NewNetwork(segs []*Segment) *Network {
	n := &Network{Segments: segs}
	n.Reindex()
	return n
}

// Reindex rebuilds ByKey after ids have been assigned.
func (n *Network) Reindex() {
	n.ByKey = make(map[SegmentKey]*Segment, len(n.Segments))
	for _, s := range n.Segments {
		n.ByKey[s.Key()] = s
	}
}

// Segment looks up a segment by key.
func (n *Network) Segment(k SegmentKey) (*Segment, bool) {
	s, ok := n.ByKey[k]
	return s, ok
}

// Note records an anomaly.
func (n *Network) Note(kind AnomalyKind, msg string) {
	n.Anomalies = append(n.Anomalies, Anomaly{Kind: kind, Message: msg})
}

// Path returns the fixture path with the given label.
func (n *Network) Path(label string) (*FixturePath, bool) {
	for _, p := range n.Paths {
		if p.Label == label {
			return p, true
		}
	}
	return nil, false
}

// IsFirstTeeMember reports whether k is listed first in some tee.
func (n *Network) IsFirstTeeMember(k SegmentKey) bool {
	for _, t := range n.Tees {
		if t.Members[0] == k {
			return true
		}
	}
	return false
}

// OrderedSegments returns segments sorted by identity ascending, then by start Z
// descending. This is the order used for tabular reports and manual budgets.
func (n *Network) OrderedSegments() []*Segment {
	out := make([]*Segment, len(n.Segments))
	copy(out, n.Segments)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ident() != b.Ident() {
			return a.Ident() < b.Ident()
		}
		return a.Start.Z > b.Start.Z
	})
	return out
}
