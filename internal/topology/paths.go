package topology

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/HydroSize/internal/model"
)

// buildPaths walks upstream from every fixture label to the reservoir.
func (b *Builder) buildPaths(net *model.Network) {
	endMap := b.endPointMap(net)
	reservoir := strings.ToLower(b.settings.ReservoirLabel)

	net.Paths = nil
	seen := map[string]bool{}
	for _, s := range net.Segments {
		if s.Weight == nil {
			continue
		}
		for _, label := range s.Labels {
			sigla := model.Sigla(label)
			if sigla == reservoir {
				continue
			}
			if _, ok := b.tables.Fixture(sigla); !ok {
				continue
			}
			if seen[label] {
				b.note(net, model.AnomalyDuplicatePath,
					fmt.Sprintf("fixture label %q appears more than once, keeping the first path", label))
				continue
			}
			seen[label] = true
			net.Paths = append(net.Paths, b.walk(net, s, label, sigla, endMap))
		}
	}
	sortPaths(net.Paths)
}

// endPointMap indexes segments by end point. When several segments end at the
// same point the last one in drawing order wins.
func (b *Builder) endPointMap(net *model.Network) map[model.Point3]*model.Segment {
	m := make(map[model.Point3]*model.Segment, len(net.Segments))
	for _, s := range net.Segments {
		if prev, ok := m[s.End]; ok {
			b.note(net, model.AnomalyEndCollision,
				fmt.Sprintf("segments %s and %s both end at %s, using the latter for path walks", prev.Key(), s.Key(), s.End))
		}
		m[s.End] = s
	}
	return m
}

// walk follows start->end links from the fixture segment until the reservoir.
func (b *Builder) walk(net *model.Network, from *model.Segment, label, sigla string, endMap map[model.Point3]*model.Segment) *model.FixturePath {
	p := &model.FixturePath{Label: label, Sigla: sigla}
	weight := *from.Weight
	visited := map[model.SegmentKey]bool{}

	cur := from
	for {
		k := cur.Key()
		if visited[k] {
			b.note(net, model.AnomalyCycle,
				fmt.Sprintf("path %q revisits segment %s", label, k))
			break
		}
		visited[k] = true
		p.Steps = append(p.Steps, model.PathStep{Key: k, Angle: cur.Angle, Weight: weight, Start: cur.Start})

		if cur.HasLabel(b.settings.ReservoirLabel) {
			p.ReachesReservoir = true
			break
		}
		prev, ok := endMap[cur.Start]
		if !ok {
			b.note(net, model.AnomalyTruncatedPath,
				fmt.Sprintf("path %q stops at %s without reaching the reservoir", label, cur.Start),
				"steps", len(p.Steps))
			break
		}
		cur = prev
	}
	return p
}

// markTees flags the first of the first two tee members met along each path.
// A straight run through the tee gets tee-through, a turn gets tee-branch.
func (b *Builder) markTees(net *model.Network) {
	for _, tee := range net.Tees {
		for _, p := range net.Paths {
			var found []model.PathStep
			for _, step := range p.Steps {
				if isMember(tee, step.Key) {
					found = append(found, step)
				}
			}
			if len(found) < 2 {
				continue
			}
			first, second := found[0], found[1]
			seg, ok := net.ByKey[first.Key]
			if !ok {
				continue
			}
			if seg.Fitting == model.FittingNone {
				if math.Abs(first.Angle-second.Angle) < b.settings.Tolerance {
					seg.Fitting = model.FittingTeeThrough
				} else {
					seg.Fitting = model.FittingTeeBranch
				}
			}
			p.TeeKeys = append(p.TeeKeys, first.Key, second.Key)
		}
	}
}

func isMember(t model.Tee, k model.SegmentKey) bool {
	for _, m := range t.Members {
		if m == k {
			return true
		}
	}
	return false
}

var (
	family90 = map[int]bool{0: true, 90: true, 180: true, 270: true}
	family45 = map[int]bool{45: true, 135: true, 225: true, 315: true}
)

// roundAngle rounds a bearing to whole degrees in [0, 360).
func roundAngle(a float64) int {
	return int(math.RoundToEven(a)) % 360
}

// isVertical reports whether a segment has no planar extent.
func isVertical(s *model.Segment) bool {
	return s.Start.SamePlanar(s.End)
}

// markElbows derives elbows from the bearing change between each path step and
// the step upstream of it. Segments that already carry a fitting are left alone.
func (b *Builder) markElbows(net *model.Network) {
	for _, p := range net.Paths {
		for i := 0; i+1 < len(p.Steps); i++ {
			cur, up := p.Steps[i], p.Steps[i+1]
			seg, ok := net.ByKey[cur.Key]
			if !ok || seg.Fitting != model.FittingNone {
				continue
			}
			upSeg, ok := net.ByKey[up.Key]
			if !ok {
				continue
			}
			seg.Fitting = elbowBetween(seg, upSeg, roundAngle(cur.Angle), roundAngle(up.Angle))
		}
	}
}

// elbowBetween classifies the joint between seg and its upstream neighbour.
func elbowBetween(seg, up *model.Segment, a1, a2 int) model.Fitting {
	switch {
	case a1 == a2:
		// a zero bearing also means vertical, so a drop into or out of a level run
		// shows up only as a change of planar extent
		if a1 == 0 && isVertical(seg) != isVertical(up) {
			return model.FittingElbow90
		}
		return model.FittingNone
	case family90[a1] && family90[a2], family45[a1] && family45[a2]:
		return model.FittingElbow90
	case family90[a1] && family45[a2]:
		return model.FittingElbow45
	case family45[a1] && family90[a2]:
		if up.Start.Z != up.End.Z {
			return model.FittingElbow90
		}
		return model.FittingElbow45
	default:
		return model.FittingNone
	}
}

// staticPressures derives the static head of each path from the elevation of
// its fixture text relative to the reservoir text.
func (b *Builder) staticPressures(net *model.Network, labels []model.RawLabel) {
	var zRes float64
	found := false
	for _, l := range labels {
		if strings.EqualFold(l.Text, b.settings.ReservoirLabel) {
			zRes = l.Position.Z
			found = true
			break
		}
	}
	if !found {
		if len(net.Paths) > 0 {
			b.note(net, model.AnomalyNoReservoir,
				fmt.Sprintf("no %q text found, static pressures not computed", b.settings.ReservoirLabel))
		}
		return
	}

	for _, p := range net.Paths {
		var zFix float64
		hasFixture := false
		for _, l := range labels {
			if l.Text == p.Label {
				zFix = l.Position.Z
				hasFixture = true
				break
			}
		}
		if !hasFixture {
			p.StaticPressure = 0
			p.MaxHeadLoss = -1
			b.note(net, model.AnomalyMissingFixture,
				fmt.Sprintf("fixture text %q not found, path has no admissible head loss", p.Label))
			continue
		}

		p.StaticPressure = StaticHead(zRes, zFix)
		minPressure := b.settings.DefaultMinPressure
		if fx, ok := b.tables.Fixture(p.Sigla); ok && fx.MinPressure != nil {
			minPressure = *fx.MinPressure
		}
		p.MaxHeadLoss = p.StaticPressure - minPressure
		if p.StaticPressure > b.settings.OverPressureLimit {
			p.Warning = fmt.Sprintf("static pressure %.2f m.c.a. exceeds the %.0f m.c.a. limit of NBR 5626:2020",
				p.StaticPressure, b.settings.OverPressureLimit)
			b.logger.Warn("over-pressure", "path", p.Label, "static_pressure", p.StaticPressure)
		}
	}
}

// StaticHead returns the water column between the reservoir and a fixture.
func StaticHead(zRes, zFix float64) float64 {
	switch {
	case zRes > 0 && zFix > 0:
		return zRes - zFix
	case zRes < 0 && zFix < 0:
		return math.Abs(zFix) - math.Abs(zRes)
	case zRes > 0 && zFix < 0:
		return zRes + math.Abs(zFix)
	default:
		return math.Abs(zRes) + math.Abs(zFix)
	}
}
