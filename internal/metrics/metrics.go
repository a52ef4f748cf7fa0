package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordStage records how long a pipeline stage took.
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRun counts a finished run by status.
func (r *Registry) RecordRun(status string) {
	r.RunsTotal.WithLabelValues(status).Inc()
}

// UpdateNetwork records the size of a built network.
func (r *Registry) UpdateNetwork(segments, paths, tees int) {
	r.SegmentsTotal.Set(float64(segments))
	r.PathsTotal.Set(float64(paths))
	r.TeesTotal.Set(float64(tees))
}

// RecordAnomaly counts one topology anomaly.
func (r *Registry) RecordAnomaly(kind string) {
	r.AnomaliesTotal.WithLabelValues(kind).Inc()
}

// RecordSolve records the model size and search effort of one solve.
func (r *Registry) RecordSolve(variables, constraints, nodes int) {
	r.ModelVariables.Set(float64(variables))
	r.ModelConstraints.Set(float64(constraints))
	r.SolverNodes.Observe(float64(nodes))
}

// RecordPath records the repair effort and final margin of a path.
func (r *Registry) RecordPath(label string, iterations int, margin float64) {
	r.RepairIterations.Observe(float64(iterations))
	r.PathMargin.WithLabelValues(label).Set(margin)
}

// WriteTextfile writes every metric in Prometheus text format, for pickup by
// the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
