package model

import "time"

// FixtureRow is one entry of the fixture relative-weight table.
type FixtureRow struct {
	Name        string   `json:"name"`
	Fitting     string   `json:"fitting"`
	Sigla       string   `json:"sigla"`
	DesignFlow  float64  `json:"design_flow"` // m³/s
	Weight      float64  `json:"weight"`
	MinPressure *float64 `json:"min_pressure,omitempty"` // m.c.a., nil when the table has no value
}

// FlowDiameterRow maps a reference flow to a commercial diameter.
type FlowDiameterRow struct {
	Nominal  float64 `json:"nominal"`  // mm
	Internal float64 `json:"internal"` // m
	Area     float64 `json:"area"`     // m²
	Flow     float64 `json:"flow"`     // m³/s
}

// FittingLossRow holds equivalent lengths (m) per fitting type for one diameter.
type FittingLossRow struct {
	Nominal    float64 `json:"nominal"`
	Elbow90    float64 `json:"elbow_90"`
	Elbow45    float64 `json:"elbow_45"`
	TeeThrough float64 `json:"tee_through"`
	TeeBranch  float64 `json:"tee_branch"`
	Entry      float64 `json:"entry"`
	LockValve  float64 `json:"lock_valve"`
	GateValve  float64 `json:"gate_valve"`
}

// PriceType identifies a priced component in the price table.
type PriceType string

const (
	PricePipe      PriceType = "tubo"
	PriceTee       PriceType = "te"
	PriceElbow45   PriceType = "joelho 45"
	PriceElbow90   PriceType = "joelho 90"
	PriceMeter     PriceType = "hidr"
	PriceLockValve PriceType = "rgl"
	PriceGateValve PriceType = "rg"
	PriceReducer   PriceType = "reducao"
)

// PriceRow is one entry of the price table. Exit is only meaningful for reducers.
type PriceRow struct {
	Entry float64   `json:"entry"`
	Exit  float64   `json:"exit"`
	Type  PriceType `json:"type"`
	Price float64   `json:"price"`
}

// ReductionRow is one entry of the diameter-reduction coefficient table.
type ReductionRow struct {
	Entry       float64 `json:"entry"`
	Exit        float64 `json:"exit"`
	Coefficient float64 `json:"coefficient"`
}

// Tables bundles all reference tables used by the pipeline.
type Tables struct {
	Fixtures      []FixtureRow      `json:"fixtures"`
	FlowDiameters []FlowDiameterRow `json:"flow_diameters"`
	FittingLosses []FittingLossRow  `json:"fitting_losses"`
	Prices        []PriceRow        `json:"prices"`
	Reductions    []ReductionRow    `json:"reductions"`
}

// Fixture returns the fixture row with the given sigla.
func (t *Tables) Fixture(sigla string) (FixtureRow, bool) {
	for _, f := range t.Fixtures {
		if f.Sigla == sigla {
			return f, true
		}
	}
	return FixtureRow{}, false
}

// FittingLoss returns the equivalent-length row for a nominal diameter.
func (t *Tables) FittingLoss(nominal, tol float64) (FittingLossRow, bool) {
	for _, r := range t.FittingLosses {
		if abs(r.Nominal-nominal) < tol {
			return r, true
		}
	}
	return FittingLossRow{}, false
}

// Price looks up a component price by type and entry diameter.
func (t *Tables) Price(typ PriceType, nominal, tol float64) (float64, bool) {
	for _, r := range t.Prices {
		if r.Type == typ && abs(r.Entry-nominal) < tol {
			return r.Price, true
		}
	}
	return 0, false
}

// ReducerPrice looks up the price of a reducer from entry to exit diameter.
// Any row carrying both diameters qualifies, whatever its type.
func (t *Tables) ReducerPrice(entry, exit, tol float64) (float64, bool) {
	for _, r := range t.Prices {
		if r.Exit != 0 && abs(r.Entry-entry) < tol && abs(r.Exit-exit) < tol {
			return r.Price, true
		}
	}
	return 0, false
}

// ReductionCoefficient returns the first coefficient matching entry and exit.
func (t *Tables) ReductionCoefficient(entry, exit, tol float64) (float64, bool) {
	for _, r := range t.Reductions {
		if abs(r.Entry-entry) < tol && abs(r.Exit-exit) < tol {
			return r.Coefficient, true
		}
	}
	return 0, false
}

// Settings holds the physical constants, label conventions and sentinels.
type Settings struct {
	FlowCoefficient    float64 `yaml:"flow_coefficient" json:"flow_coefficient" validate:"gt=0"`
	Viscosity          float64 `yaml:"viscosity" json:"viscosity" validate:"gt=0"` // m²/s
	Roughness          float64 `yaml:"roughness" json:"roughness" validate:"gt=0"` // m
	Gravity            float64 `yaml:"gravity" json:"gravity" validate:"gt=0"`
	CoordinateDecimals int     `yaml:"coordinate_decimals" json:"coordinate_decimals" validate:"gte=0,lte=6"`

	ReservoirLabel string `yaml:"reservoir_label" json:"reservoir_label" validate:"required"`
	MeterPrefix    string `yaml:"meter_prefix" json:"meter_prefix" validate:"required"`
	LockValveLabel string `yaml:"lock_valve_label" json:"lock_valve_label" validate:"required"`
	GateValveLabel string `yaml:"gate_valve_label" json:"gate_valve_label" validate:"required"`

	OverPressureLimit  float64 `yaml:"over_pressure_limit" json:"over_pressure_limit" validate:"gt=0"`   // m.c.a.
	DefaultMinPressure float64 `yaml:"default_min_pressure" json:"default_min_pressure" validate:"gte=0"` // m.c.a.

	SentinelPrice        float64 `yaml:"sentinel_price" json:"sentinel_price" validate:"gt=0"`
	SentinelReducerPrice float64 `yaml:"sentinel_reducer_price" json:"sentinel_reducer_price" validate:"gt=0"`
	SentinelReduction    float64 `yaml:"sentinel_reduction_loss" json:"sentinel_reduction_loss" validate:"gt=0"`
	SentinelLoss         float64 `yaml:"sentinel_loss" json:"sentinel_loss" validate:"gt=0"`

	RepairIterations int           `yaml:"repair_iterations" json:"repair_iterations" validate:"gte=1"`
	Tolerance        float64       `yaml:"tolerance" json:"tolerance" validate:"gt=0"`
	NodeLimit        int           `yaml:"node_limit" json:"node_limit" validate:"gte=0"` // 0 = unlimited
	TimeLimit        time.Duration `yaml:"time_limit" json:"time_limit" validate:"gte=0"` // 0 = no deadline
}

// DefaultSettings returns the reference constants.
func DefaultSettings() Settings {
	return Settings{
		FlowCoefficient:      0.0003,
		Viscosity:            1e-6,
		Roughness:            6e-5,
		Gravity:              9.81,
		CoordinateDecimals:   2,
		ReservoirLabel:       "res",
		MeterPrefix:          "hidr",
		LockValveLabel:       "rgl",
		GateValveLabel:       "rg",
		OverPressureLimit:    40,
		DefaultMinPressure:   1.0,
		SentinelPrice:        10000,
		SentinelReducerPrice: 100,
		SentinelReduction:    1000,
		SentinelLoss:         100,
		RepairIterations:     100,
		Tolerance:            1e-6,
		NodeLimit:            2_000_000,
		TimeLimit:            60 * time.Second,
	}
}
