package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the metrics of sizing runs.
type Registry struct {
	// Pipeline
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Network
	SegmentsTotal  prometheus.Gauge
	PathsTotal     prometheus.Gauge
	TeesTotal      prometheus.Gauge
	AnomaliesTotal *prometheus.CounterVec

	// Optimizer
	ModelVariables   prometheus.Gauge
	ModelConstraints prometheus.Gauge
	SolverNodes      prometheus.Histogram
	TotalCost        prometheus.Gauge

	// Repair
	RepairIterations prometheus.Histogram
	UnresolvedPaths  prometheus.Gauge
	PathMargin       *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initPipelineMetrics()
	r.initNetworkMetrics()
	r.initOptimizerMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) initPipelineMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydrosize_runs_total",
			Help: "Total number of sizing runs by final status",
		},
		[]string{"status"}, // optimal, infeasible, stopped, error
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydrosize_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 60},
		},
		[]string{"stage"},
	)
}

func (r *Registry) initNetworkMetrics() {
	r.SegmentsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_segments_total",
			Help: "Number of pipe segments in the last network",
		},
	)

	r.PathsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_paths_total",
			Help: "Number of fixture paths in the last network",
		},
	)

	r.TeesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_tees_total",
			Help: "Number of tee junctions in the last network",
		},
	)

	r.AnomaliesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydrosize_anomalies_total",
			Help: "Topology anomalies found, by kind",
		},
		[]string{"kind"},
	)
}

func (r *Registry) initOptimizerMetrics() {
	r.ModelVariables = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_model_variables",
			Help: "Binary variables in the last selection model",
		},
	)

	r.ModelConstraints = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_model_constraints",
			Help: "Constraints in the last selection model",
		},
	)

	r.SolverNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hydrosize_solver_nodes",
			Help:    "Branch and bound nodes expanded per solve",
			Buckets: prometheus.ExponentialBuckets(10, 10, 7),
		},
	)

	r.TotalCost = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_total_cost",
			Help: "Material cost of the last sized network",
		},
	)

	r.RepairIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hydrosize_repair_iterations",
			Help:    "Margin repair iterations per path",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100},
		},
	)

	r.UnresolvedPaths = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrosize_unresolved_paths",
			Help: "Paths left with a negative margin after repair",
		},
	)

	r.PathMargin = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hydrosize_path_margin",
			Help: "Final head-loss margin per fixture path in m.c.a.",
		},
		[]string{"path"},
	)
}
