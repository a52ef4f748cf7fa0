package topology

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
	"github.com/piwi3910/HydroSize/internal/model"
)

// FlowGraph builds a directed graph whose vertices are drawing coordinates and
// whose edges follow the drawn direction of each segment (start -> end).
func FlowGraph(segs []*model.Segment) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true))
	for _, s := range segs {
		from, to := s.Start.String(), s.End.String()
		if from == to || g.HasEdge(from, to) {
			continue
		}
		if _, err := g.AddEdge(from, to, 0); err != nil {
			return nil, fmt.Errorf("failed to add segment %s: %w", s.Key(), err)
		}
	}
	return g, nil
}

// Roots returns the coordinates where a segment starts but none ends,
// in drawing order.
func Roots(segs []*model.Segment) []model.Point3 {
	ends := make(map[model.Point3]bool, len(segs))
	for _, s := range segs {
		ends[s.End] = true
	}
	var roots []model.Point3
	seen := map[model.Point3]bool{}
	for _, s := range segs {
		if ends[s.Start] || seen[s.Start] {
			continue
		}
		seen[s.Start] = true
		roots = append(roots, s.Start)
	}
	return roots
}

// validateGraph flags drawings outside the supported shape: networks with
// cycles or with more than one source are reported, never solved.
func (b *Builder) validateGraph(net *model.Network) {
	g, err := FlowGraph(net.Segments)
	if err != nil {
		b.logger.Error("graph validation skipped", "error", err)
		return
	}
	hasCycle, cycles, err := dfs.DetectCycles(g)
	if err != nil {
		b.logger.Error("cycle detection failed", "error", err)
	} else if hasCycle {
		for _, c := range cycles {
			b.note(net, model.AnomalyCycle,
				fmt.Sprintf("network contains a cycle through %s", strings.Join(c, " -> ")))
		}
	}

	reservoirs := 0
	for _, s := range net.Segments {
		if s.HasLabel(b.settings.ReservoirLabel) {
			reservoirs++
		}
	}
	if reservoirs > 1 {
		b.note(net, model.AnomalyMultipleSources,
			fmt.Sprintf("%d segments carry the %q label", reservoirs, b.settings.ReservoirLabel))
	}
	if roots := Roots(net.Segments); len(roots) > 1 {
		b.note(net, model.AnomalyMultipleSources,
			fmt.Sprintf("network has %d open upstream ends", len(roots)), "roots", len(roots))
	}
}
