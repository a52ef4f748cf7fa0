// Package topology turns drawn lines and texts into an identified pipe network
// with tee junctions and fixture-to-reservoir paths.
package topology

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
)

// Builder reconstructs the network topology from a drawing.
type Builder struct {
	tables   *model.Tables
	settings model.Settings
	logger   *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards all output.
func NewBuilder(tables *model.Tables, settings model.Settings, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{tables: tables, settings: settings, logger: logger}
}

// Build is a convenience wrapper around NewBuilder(...).Build(d).
func Build(d model.Drawing, tables *model.Tables, settings model.Settings, logger *slog.Logger) *model.Network {
	return NewBuilder(tables, settings, logger).Build(d)
}

// Build runs every topology step in order and returns the resulting network.
// Problems never abort the build; they are recorded in Network.Anomalies.
func (b *Builder) Build(d model.Drawing) *model.Network {
	labels := make([]model.RawLabel, len(d.Labels))
	for i, l := range d.Labels {
		labels[i] = model.RawLabel{Text: l.Text, Position: model.RoundPoint(l.Position, b.settings.CoordinateDecimals)}
	}

	segs := make([]*model.Segment, 0, len(d.Segments))
	for i, raw := range d.Segments {
		segs = append(segs, model.NewSegment(i+1,
			model.RoundPoint(raw.Start, b.settings.CoordinateDecimals),
			model.RoundPoint(raw.End, b.settings.CoordinateDecimals)))
	}
	net := &model.Network{Segments: segs}

	b.assignIDs(net, labels)
	b.attachLabels(net, labels)
	b.index(net)
	b.assignWeights(net)
	net.Tees = FindTees(net.Segments)
	b.buildPaths(net)
	AccumulateWeights(net)
	b.markTees(net)
	b.markElbows(net)
	b.staticPressures(net, labels)
	b.validateGraph(net)

	b.logger.Info("topology built",
		"segments", len(net.Segments),
		"tees", len(net.Tees),
		"paths", len(net.Paths),
		"anomalies", len(net.Anomalies))
	return net
}

// note records an anomaly and logs it as a warning.
func (b *Builder) note(net *model.Network, kind model.AnomalyKind, msg string, args ...any) {
	net.Note(kind, msg)
	b.logger.Warn(msg, append([]any{"kind", string(kind)}, args...)...)
}

// assignIDs gives every segment ending at a numeric label that number as id.
// Labels are applied in input order, so a later label on the same segment wins.
func (b *Builder) assignIDs(net *model.Network, labels []model.RawLabel) {
	for _, l := range labels {
		if !model.IsNumericLabel(l.Text) {
			continue
		}
		id, err := strconv.Atoi(l.Text)
		if err != nil {
			b.note(net, model.AnomalyUnmatchedLabel, fmt.Sprintf("id label %q is out of range", l.Text))
			continue
		}
		matched := false
		for _, s := range net.Segments {
			if s.End != l.Position {
				continue
			}
			matched = true
			if s.ID != nil && *s.ID != id {
				b.note(net, model.AnomalyAmbiguousID,
					fmt.Sprintf("segment ending at %s relabelled from %d to %d", s.End, *s.ID, id),
					"previous", *s.ID, "id", id)
			}
			v := id
			s.ID = &v
		}
		if !matched {
			b.note(net, model.AnomalyUnmatchedLabel,
				fmt.Sprintf("id label %q at %s matches no segment end", l.Text, l.Position))
		}
	}
}

// attachLabels appends every non-numeric label to the first segment starting at
// its position, or failing that the first segment ending there.
func (b *Builder) attachLabels(net *model.Network, labels []model.RawLabel) {
	for _, l := range labels {
		if model.IsNumericLabel(l.Text) {
			continue
		}
		var target *model.Segment
		for _, s := range net.Segments {
			if s.Start == l.Position {
				target = s
				break
			}
		}
		if target == nil {
			for _, s := range net.Segments {
				if s.End == l.Position {
					target = s
					break
				}
			}
		}
		if target == nil {
			b.note(net, model.AnomalyUnmatchedLabel,
				fmt.Sprintf("label %q at %s touches no segment", l.Text, l.Position))
			continue
		}
		target.Labels = append(target.Labels, l.Text)
	}
}

// index builds the key lookup. Two segments sharing id and start point collide;
// the later one in drawing order wins.
func (b *Builder) index(net *model.Network) {
	net.ByKey = make(map[model.SegmentKey]*model.Segment, len(net.Segments))
	for _, s := range net.Segments {
		k := s.Key()
		if prev, ok := net.ByKey[k]; ok {
			b.note(net, model.AnomalyAmbiguousID,
				fmt.Sprintf("segments %d and %d share key %s", prev.Index, s.Index, k))
		}
		net.ByKey[k] = s
	}
}

// assignWeights sets the relative weight from the fixture table. When several
// labels of a segment match, the last one wins.
func (b *Builder) assignWeights(net *model.Network) {
	reservoir := strings.ToLower(b.settings.ReservoirLabel)
	for _, s := range net.Segments {
		for _, l := range s.Labels {
			sigla := model.Sigla(l)
			if sigla == reservoir {
				continue
			}
			if fx, ok := b.tables.Fixture(sigla); ok {
				w := fx.Weight
				s.Weight = &w
			}
		}
	}
}

// FindTees returns every coordinate where exactly two segments start and exactly
// one ends. Tees are ordered by first appearance of their coordinate as a start.
func FindTees(segs []*model.Segment) []model.Tee {
	starts := map[model.Point3][]*model.Segment{}
	ends := map[model.Point3][]*model.Segment{}
	var order []model.Point3
	for _, s := range segs {
		if _, seen := starts[s.Start]; !seen {
			order = append(order, s.Start)
		}
		starts[s.Start] = append(starts[s.Start], s)
		ends[s.End] = append(ends[s.End], s)
	}

	var tees []model.Tee
	for _, at := range order {
		st := starts[at]
		en := ends[at]
		if len(st) != 2 || len(en) != 1 {
			continue
		}
		tees = append(tees, model.Tee{
			At:      at,
			Members: [3]model.SegmentKey{st[0].Key(), st[1].Key(), en[0].Key()},
		})
	}
	return tees
}

// AccumulateWeights resets and recomputes the weight total of every segment as
// the sum of the fixture weights of all paths crossing it.
func AccumulateWeights(net *model.Network) {
	for _, s := range net.Segments {
		s.WeightTotal = 0
	}
	for _, p := range net.Paths {
		for _, step := range p.Steps {
			if s, ok := net.ByKey[step.Key]; ok {
				s.WeightTotal += step.Weight
			}
		}
	}
}

// sortPaths orders paths by label for deterministic output.
func sortPaths(paths []*model.FixturePath) {
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Label < paths[j].Label
	})
}
