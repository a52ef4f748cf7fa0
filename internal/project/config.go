// Package project loads run configuration and persists sizing results.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/piwi3910/HydroSize/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the file looked up when no --config flag is given.
const DefaultConfigName = "hydrosize.yaml"

var validate = validator.New()

// LoadConfig reads a YAML configuration from path. Keys absent from the file
// keep their default value. If the file does not exist, DefaultConfig is
// returned with no error. Relative table paths are resolved against the
// directory of the file.
func LoadConfig(path string) (model.Config, error) {
	cfg := model.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return model.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return model.Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Tables = resolveTables(filepath.Dir(path), cfg.Tables)
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating missing parent directories.
func SaveConfig(path string, cfg model.Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ValidateConfig checks cfg against its struct tags and reports the first
// violation by field name.
func ValidateConfig(cfg model.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, e.Param())
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}

func resolveTables(dir string, t model.TablePaths) model.TablePaths {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	return model.TablePaths{
		Fixtures:      abs(t.Fixtures),
		FlowDiameters: abs(t.FlowDiameters),
		FittingLosses: abs(t.FittingLosses),
		Prices:        abs(t.Prices),
		Reductions:    abs(t.Reductions),
	}
}
