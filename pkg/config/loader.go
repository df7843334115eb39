package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/lkh-solver/pkg/tsplib"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadProblem loads and parses a problem description file
func LoadProblem(path string) (*ProblemSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file %s: %w", path, err)
	}
	spec, err := ParseProblemYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse problem file %s: %w", path, err)
	}
	return spec, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	if strings.TrimSpace(cfg.Solver.Executable) == "" {
		return fmt.Errorf("solver executable cannot be empty")
	}
	if strings.TrimSpace(cfg.Solver.WorkDir) == "" {
		return fmt.Errorf("solver work_dir cannot be empty")
	}
	if cfg.Solver.MaxConcurrent <= 0 {
		return fmt.Errorf("solver max_concurrent must be positive, got %d", cfg.Solver.MaxConcurrent)
	}

	if cfg.Precision < 0 || cfg.Precision > tsplib.MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d, got %d", tsplib.MaxPrecision, cfg.Precision)
	}

	if err := cfg.Parameters.Validate(); err != nil {
		return fmt.Errorf("parameters validation failed: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
