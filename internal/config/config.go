package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents verigate configuration options
type Config struct {
	// VerifierTargets is the list of files or directories containing
	// verification targets (.dfy files)
	VerifierTargets []string `yaml:"verifier_targets"`

	// VerifierTool is the name of the formal verifier binary
	VerifierTool string `yaml:"verifier_tool"`

	// ScannerConfig is the path to the scanner's rule configuration file
	ScannerConfig string `yaml:"scanner_config"`

	// ScannerTool is the name of the static-analysis scanner binary
	ScannerTool string `yaml:"scanner_tool"`

	// ArtifactsDir is the directory where raw checker output is persisted
	ArtifactsDir string `yaml:"artifacts_dir"`

	// HistoryDBPath is the path to the run history database
	HistoryDBPath string `yaml:"history_db_path"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		VerifierTargets: []string{"check.dfy", "specs/dafny"},
		VerifierTool:    "dafny",
		ScannerConfig:   filepath.Join("semgrep", "semgrep.yml"),
		ScannerTool:     "semgrep",
		ArtifactsDir:    "artifacts",
		HistoryDBPath:   filepath.Join(".verigate", "history.db"),
		LogLevel:        "info",
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply values from file (merging with defaults).
	// The raw map distinguishes "key absent" from "key set to empty list",
	// so an explicitly empty verifier_targets disables the verifier instead
	// of falling back to the default targets.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, exists := rawMap["verifier_targets"]; exists {
		cfg.VerifierTargets = fileCfg.VerifierTargets
	}
	if fileCfg.VerifierTool != "" {
		cfg.VerifierTool = fileCfg.VerifierTool
	}
	if fileCfg.ScannerConfig != "" {
		cfg.ScannerConfig = fileCfg.ScannerConfig
	}
	if fileCfg.ScannerTool != "" {
		cfg.ScannerTool = fileCfg.ScannerTool
	}
	if fileCfg.ArtifactsDir != "" {
		cfg.ArtifactsDir = fileCfg.ArtifactsDir
	}
	if fileCfg.HistoryDBPath != "" {
		cfg.HistoryDBPath = fileCfg.HistoryDBPath
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .verigate/config.yaml in the
// specified directory
// If the directory or file doesn't exist, returns default configuration
// without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".verigate", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(artifactsDir *string, logLevel *string) {
	if artifactsDir != nil {
		c.ArtifactsDir = *artifactsDir
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.VerifierTool == "" {
		return fmt.Errorf("verifier_tool cannot be empty")
	}
	if c.ScannerTool == "" {
		return fmt.Errorf("scanner_tool cannot be empty")
	}
	if c.ScannerConfig == "" {
		return fmt.Errorf("scanner_config cannot be empty")
	}
	if c.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir cannot be empty")
	}
	if c.HistoryDBPath == "" {
		return fmt.Errorf("history_db_path cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	return nil
}
