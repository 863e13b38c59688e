// Package cmd wires the verigate command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/verigate/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for verigate.
// Running verigate with no arguments executes the gate.
func NewRootCommand() *cobra.Command {
	var configPath string
	var artifactsDir string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "verigate",
		Short: "Verification gate combining formal verification and static analysis",
		Long: `Verigate runs the configured external checkers (a formal verifier and a
static-analysis scanner), persists their raw output under the artifacts
directory, and aggregates a PASS/FAIL verdict.

The gate passes only when every check succeeds and the scanner reports zero
ERROR-severity findings. The process exits 0 on pass and 1 on fail, including
tool-unavailability and output-parse failures.

Configuration is loaded from .verigate/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		Args:    cobra.NoArgs,
		// Silence usage on errors to avoid duplicate help text; main
		// decides what to print for gate failures
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadGateConfig(cmd, configPath, artifactsDir, logLevel)
			if err != nil {
				return err
			}
			return executeGate(cmd.Context(), cfg, gateIO{
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default .verigate/config.yaml)")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "directory for persisted checker output")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "logging verbosity (trace, debug, info, warn, error)")

	cmd.AddCommand(NewHistoryCommand(&configPath))
	cmd.AddCommand(NewReportCommand(&configPath))

	return cmd
}

// loadGateConfig loads configuration and applies flag overrides.
func loadGateConfig(cmd *cobra.Command, configPath, artifactsDir, logLevel string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	var artifactsPtr, levelPtr *string
	if cmd.Flags().Changed("artifacts-dir") {
		artifactsPtr = &artifactsDir
	}
	if cmd.Flags().Changed("log-level") {
		levelPtr = &logLevel
	}
	cfg.MergeWithFlags(artifactsPtr, levelPtr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
