package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/piwi3910/HydroSize/internal/model"
)

// RepairOutcome describes what margin repair did to one path.
type RepairOutcome struct {
	Label      string
	Iterations int
	Margin     float64
	Resolved   bool
	Reason     string
}

// Repair enlarges diameters on paths whose effective head loss exceeds the
// admissible loss. Each iteration takes the step-down nearest the fixture and
// raises the downstream segment to the next larger candidate that still fits
// under its upstream diameter and joins every neighbour, on any path, with a
// known reducer or an equal diameter. Reducer ledgers on all boundaries of the
// changed segment are then set afresh. Paths are handled one at a time in
// label order; once all are done the ledgers are rebuilt and every margin is
// measured again, since enlarging a shared segment moves the losses of the
// branches below it.
func Repair(net *model.Network, sel model.Selection, s model.Settings, logger *slog.Logger) []RepairOutcome {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	adj := adjacency(net)
	out := make([]RepairOutcome, 0, len(net.Paths))
	for _, p := range net.Paths {
		out = append(out, repairPath(net, adj, p, sel, s))
	}

	ApplyReductions(net, sel, s, logger)
	for i, p := range net.Paths {
		res := &out[i]
		res.Margin = p.MaxHeadLoss - PathLoss(net, p, sel)
		switch {
		case res.Margin >= 0 && !res.Resolved:
			res.Resolved = true
			res.Reason = ""
		case res.Margin < 0 && res.Resolved:
			res.Resolved = false
			res.Reason = "margin lost after another path was repaired"
		}

		if res.Iterations > 0 || !res.Resolved {
			logger.Info("margin repair",
				"path", p.Label,
				"iterations", res.Iterations,
				"margin", res.Margin,
				"resolved", res.Resolved)
		}
		if !res.Resolved {
			logger.Warn("path margin unresolved", "path", p.Label, "reason", res.Reason)
		}
	}
	return out
}

// adjacency lists, per segment, every distinct boundary it takes part in
// across all paths.
func adjacency(net *model.Network) map[model.SegmentKey][]model.Boundary {
	adj := map[model.SegmentKey][]model.Boundary{}
	seen := map[model.Boundary]bool{}
	for _, p := range net.Paths {
		for _, b := range p.Boundaries() {
			if seen[b] {
				continue
			}
			seen[b] = true
			adj[b.Up] = append(adj[b.Up], b)
			adj[b.Down] = append(adj[b.Down], b)
		}
	}
	return adj
}

func repairPath(net *model.Network, adj map[model.SegmentKey][]model.Boundary, p *model.FixturePath, sel model.Selection, s model.Settings) RepairOutcome {
	res := RepairOutcome{Label: p.Label}
	res.Margin = p.MaxHeadLoss - PathLoss(net, p, sel)
	if res.Margin >= 0 {
		res.Resolved = true
		return res
	}

	for res.Iterations < s.RepairIterations {
		idx, dUp, ok := nearestStepDown(net, p, sel, s)
		if !ok {
			res.Reason = "no diameter reduction left to enlarge"
			return res
		}
		key := p.Steps[idx].Key
		seg := net.ByKey[key]
		jNew, ok := nextCandidate(net, adj[key], key, sel, dUp, s)
		if !ok {
			res.Reason = fmt.Sprintf("segment %s has no larger candidate up to %.0f mm", key, dUp)
			return res
		}
		res.Iterations++

		delete(seg.Ledger, sel[key])
		sel[key] = jNew
		for _, b := range adj[key] {
			setReducer(net, sel, b, s)
		}

		res.Margin = p.MaxHeadLoss - PathLoss(net, p, sel)
		if res.Margin >= 0 {
			res.Resolved = true
			return res
		}
	}
	res.Reason = fmt.Sprintf("iteration limit of %d reached", s.RepairIterations)
	return res
}

// nearestStepDown finds the path step closest to the fixture whose chosen
// diameter is smaller than its upstream neighbour's. It returns the step index
// and the upstream diameter.
func nearestStepDown(net *model.Network, p *model.FixturePath, sel model.Selection, s model.Settings) (int, float64, bool) {
	for i := 1; i < len(p.Steps); i++ {
		dUp, okUp := chosenNominal(net, sel, p.Steps[i].Key)
		dDn, okDn := chosenNominal(net, sel, p.Steps[i-1].Key)
		if okUp && okDn && dUp > dDn+s.Tolerance {
			return i - 1, dUp, true
		}
	}
	return 0, 0, false
}

// nextCandidate returns the smallest candidate of key that is larger than the
// current one, not larger than dUp, and joins every neighbour in bounds
// validly: fed by each upstream diameter, and feeding each downstream one.
func nextCandidate(net *model.Network, bounds []model.Boundary, key model.SegmentKey, sel model.Selection, dUp float64, s model.Settings) (int, bool) {
	seg := net.ByKey[key]
	cur := seg.Candidates.Nominal[sel[key]]

next:
	for j, d := range seg.Candidates.Nominal {
		if d <= cur+s.Tolerance || d > dUp+s.Tolerance {
			continue
		}
		for _, b := range bounds {
			if b.Down == key {
				up, ok := chosenNominal(net, sel, b.Up)
				if ok && (d > up+s.Tolerance || !joins(seg, up, d, s)) {
					continue next
				}
				continue
			}
			dn, ok := chosenNominal(net, sel, b.Down)
			if ok && !joins(net.ByKey[b.Down], d, dn, s) {
				continue next
			}
		}
		return j, true
	}
	return 0, false
}

// joins reports whether entry can feed exit into seg: equal diameters, or a
// reducer resolved for seg.
func joins(seg *model.Segment, entry, exit float64, s model.Settings) bool {
	if math.Abs(entry-exit) < s.Tolerance {
		return true
	}
	_, ok := seg.FindReduction(entry, exit, s.Tolerance)
	return ok
}

func chosenNominal(net *model.Network, sel model.Selection, k model.SegmentKey) (float64, bool) {
	seg, ok := net.ByKey[k]
	if !ok {
		return 0, false
	}
	j, ok := sel[k]
	if !ok || j < 0 || j >= seg.Candidates.Len() {
		return 0, false
	}
	return seg.Candidates.Nominal[j], true
}
