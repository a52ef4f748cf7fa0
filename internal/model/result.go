package model

// Selection maps each segment to its chosen candidate index.
type Selection map[SegmentKey]int

// Status is the outcome of a sizing run.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
)

// SegmentResult is the reported sizing of one segment.
type SegmentResult struct {
	Key       SegmentKey  `json:"key"`
	End       Point3      `json:"end"`
	Labels    []string    `json:"labels,omitempty"`
	Length    float64     `json:"length"`
	Fitting   string      `json:"fitting"`
	Flow      float64     `json:"flow"`
	Nominal   float64     `json:"nominal"`
	Internal  float64     `json:"internal"`
	Velocity  float64     `json:"velocity"`
	HeadLoss  float64     `json:"head_loss"`
	Price     float64     `json:"price"`
	Reduction *Adjustment `json:"reduction,omitempty"`
}

// PathResult is the reported hydraulic balance of one fixture path.
type PathResult struct {
	Label          string  `json:"label"`
	Segments       int     `json:"segments"`
	StaticPressure float64 `json:"static_pressure"`
	MaxHeadLoss    float64 `json:"max_head_loss"`
	TotalLoss      float64 `json:"total_loss"`
	Margin         float64 `json:"margin"`
	Resolved       bool    `json:"resolved"`
	Warning        string  `json:"warning,omitempty"`
}

// SizingResult is the complete output of a run.
type SizingResult struct {
	RunID      string          `json:"run_id"`
	Status     Status          `json:"status"`
	TotalCost  float64         `json:"total_cost"`
	Segments   []SegmentResult `json:"segments"`
	Paths      []PathResult    `json:"paths"`
	Unresolved []string        `json:"unresolved,omitempty"`
	Anomalies  []Anomaly       `json:"anomalies,omitempty"`
}

// DiameterTotal aggregates length and cost for one nominal diameter.
type DiameterTotal struct {
	Nominal float64 `json:"nominal"`
	Length  float64 `json:"length"`
	Cost    float64 `json:"cost"`
}

// BudgetItem is the cost of one segment in a manual budget. Source is
// "baseline" when the diameter was one of the segment's candidates and
// "components" when it had to be priced piece by piece.
type BudgetItem struct {
	Key     SegmentKey `json:"key"`
	Nominal float64    `json:"nominal"`
	Cost    float64    `json:"cost"`
	Source  string     `json:"source"`
}

// BudgetComparison contrasts a manual diameter assignment with the optimised one.
type BudgetComparison struct {
	ManualCost          float64         `json:"manual_cost"`
	OptimizedCost       float64         `json:"optimized_cost"`
	Savings             float64         `json:"savings"`
	ManualItems         []BudgetItem    `json:"manual_items"`
	ManualByDiameter    []DiameterTotal `json:"manual_by_diameter"`
	OptimizedByDiameter []DiameterTotal `json:"optimized_by_diameter"`
	ManualVelocities    []float64       `json:"manual_velocities"`
	OptimizedVelocities []float64       `json:"optimized_velocities"`
}
