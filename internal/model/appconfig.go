package model

// TablePaths locates the reference tables on disk. Each file may be .xlsx or .csv.
type TablePaths struct {
	Fixtures      string `yaml:"fixtures" json:"fixtures" validate:"required"`
	FlowDiameters string `yaml:"flow_diameters" json:"flow_diameters" validate:"required"`
	FittingLosses string `yaml:"fitting_losses" json:"fitting_losses" validate:"required"`
	Prices        string `yaml:"prices" json:"prices" validate:"required"`
	Reductions    string `yaml:"reductions" json:"reductions" validate:"required"`
}

// OutputConfig lists the optional report destinations. Empty means skip.
type OutputConfig struct {
	PDF         string `yaml:"pdf" json:"pdf"`
	Workbook    string `yaml:"workbook" json:"workbook"`
	Labels      string `yaml:"labels" json:"labels"`
	JSON        string `yaml:"json" json:"json"`
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
}

// Config is the full run configuration read from the YAML file.
type Config struct {
	Settings  Settings     `yaml:"settings" json:"settings"`
	Tables    TablePaths   `yaml:"tables" json:"tables"`
	Output    OutputConfig `yaml:"output" json:"output"`
	LogFormat string       `yaml:"log_format" json:"log_format" validate:"omitempty,oneof=json text"`
	LogLevel  string       `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config populated with DefaultSettings and the
// conventional table file names.
func DefaultConfig() Config {
	return Config{
		Settings: DefaultSettings(),
		Tables: TablePaths{
			Fixtures:      "tables/pesos.xlsx",
			FlowDiameters: "tables/vazao_diametro.xlsx",
			FittingLosses: "tables/perdas_localizadas.xlsx",
			Prices:        "tables/precos.xlsx",
			Reductions:    "tables/reducoes.xlsx",
		},
		LogFormat: "text",
		LogLevel:  "info",
	}
}
