package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/standardbeagle/lci-lsp/internal/ierrors"
)

// Validator validates configuration and sets smart defaults.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart
// defaults. A failure here is a Configuration error per §7 — fatal to the
// current operation.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return ierrors.NewConfigError("validate project", err)
	}
	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return ierrors.NewConfigError("validate index", err)
	}
	if err := v.validatePerformanceConfig(&cfg.Performance); err != nil {
		return ierrors.NewConfigError("validate performance", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", index.MaxFileSize)
	}
	if index.MaxFileCount <= 0 {
		return fmt.Errorf("MaxFileCount must be positive, got %d", index.MaxFileCount)
	}
	return nil
}

func (v *Validator) validatePerformanceConfig(perf *Performance) error {
	if perf.ParallelFileWorkers < 0 {
		return fmt.Errorf("ParallelFileWorkers cannot be negative, got %d", perf.ParallelFileWorkers)
	}
	if perf.MinRequestTimeoutMs < 0 || perf.MaxRequestTimeoutMs < 0 {
		return errors.New("request timeout bounds cannot be negative")
	}
	if perf.MaxRequestTimeoutMs > 0 && perf.MinRequestTimeoutMs > perf.MaxRequestTimeoutMs {
		return fmt.Errorf("MinRequestTimeoutMs (%d) exceeds MaxRequestTimeoutMs (%d)",
			perf.MinRequestTimeoutMs, perf.MaxRequestTimeoutMs)
	}
	return nil
}

// setSmartDefaults fills in values the config file left unset.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Performance.ParallelFileWorkers == 0 {
		w := runtime.NumCPU()
		if w > 8 {
			w = 8
		}
		cfg.Performance.ParallelFileWorkers = w
	}
	if cfg.Performance.MinRequestTimeoutMs == 0 {
		cfg.Performance.MinRequestTimeoutMs = 3000
	}
	if cfg.Performance.MaxRequestTimeoutMs == 0 {
		cfg.Performance.MaxRequestTimeoutMs = 60000
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath(cfg.Project.Root)
	}
	if cfg.Languages == nil {
		cfg.Languages = map[string]LanguageOverride{}
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
