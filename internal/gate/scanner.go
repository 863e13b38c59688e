package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// blockingSeverity is the only finding severity that fails the gate.
const blockingSeverity = "ERROR"

// scannerOutput mirrors the scanner's JSON output.
// It contains only the fields the verdict needs.
type scannerOutput struct {
	Results []scannerFinding `json:"results"`
}

// scannerFinding is one structured issue reported by the scanner.
type scannerFinding struct {
	Extra scannerExtra `json:"extra"`
}

type scannerExtra struct {
	Severity string `json:"severity"`
}

// ScannerCheck runs the static-analysis scanner and counts blocking findings.
//
// The check is OK when the scanner ran and produced parseable JSON; empty or
// malformed output is an inability-to-verify failure, distinct from "ran and
// found zero issues". A non-zero scanner exit code does not by itself fail
// the check: the verdict is driven purely by the ERROR-severity finding
// count, with stderr surfaced for diagnostics.
type ScannerCheck struct {
	// Tool is the scanner binary name (e.g. "semgrep")
	Tool string

	// ConfigPath is the path to the scanner's rule configuration file
	ConfigPath string

	Runner    ToolRunner
	Artifacts *ArtifactStore
	Logger    Logger
}

// Name returns the scanner tool name.
func (c *ScannerCheck) Name() string {
	return c.Tool
}

// jsonName returns the artifact file name for the raw scanner output.
func (c *ScannerCheck) jsonName() string {
	return c.Tool + ".json"
}

// installGuidance returns actionable text for a missing scanner binary.
func (c *ScannerCheck) installGuidance() string {
	return fmt.Sprintf(`[GATE] %[1]s not found on PATH.
Install %[1]s and ensure the '%[1]s' command is on your PATH, e.g.:
- pipx install %[1]s
- Homebrew (if available): brew install %[1]s

After installing, verify with: %[1]s --version
`, c.Tool)
}

// Run invokes the scanner, persists its raw JSON output, and counts findings
// whose severity is ERROR (case-insensitive).
func (c *ScannerCheck) Run(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     c.Name(),
		ExitCode: ExitCodeToolMissing,
	}

	if _, err := c.Runner.LookPath(c.Tool); err != nil {
		guidance := c.installGuidance()
		c.Logger.LogError(guidance)
		if err := c.Artifacts.WriteFile(c.Tool+".log", []byte(guidance)); err != nil {
			c.Logger.LogWarn(fmt.Sprintf("[GATE] failed to persist %s log: %v", c.Tool, err))
		}
		result.Detail = fmt.Sprintf("%s not found on PATH", c.Tool)
		return result
	}

	proc, err := c.Runner.Run(ctx, c.Tool, "scan", "--config", c.ConfigPath, "--json")
	if err != nil {
		result.Detail = fmt.Sprintf("invocation failed: %v", err)
		c.Logger.LogError(fmt.Sprintf("[GATE] %s %s", c.Tool, result.Detail))
		return result
	}

	result.ExitCode = proc.ExitCode
	result.Stdout = proc.Stdout
	result.Stderr = proc.Stderr

	stdout := strings.TrimSpace(proc.Stdout)
	stderr := strings.TrimSpace(proc.Stderr)

	// Persist whatever the tool produced, even on failure
	if err := c.Artifacts.WriteFile(c.jsonName(), []byte(stdout)); err != nil {
		c.Logger.LogWarn(fmt.Sprintf("[GATE] failed to persist %s output: %v", c.Tool, err))
	}

	if stdout == "" {
		result.Detail = "produced no JSON output"
		c.Logger.LogError(fmt.Sprintf("[GATE] %s produced no JSON output.", c.Tool))
		if stderr != "" {
			c.Logger.LogError(stderr)
		}
		return result
	}

	var output scannerOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		result.Detail = "output was not valid JSON"
		c.Logger.LogError(fmt.Sprintf("[GATE] %s output was not valid JSON.", c.Tool))
		if stderr != "" {
			c.Logger.LogError(stderr)
		}
		return result
	}

	blocking := 0
	for _, finding := range output.Results {
		if strings.EqualFold(finding.Extra.Severity, blockingSeverity) {
			blocking++
		}
	}

	result.OK = true
	result.TotalFindings = len(output.Results)
	result.BlockingFindings = blocking
	result.Detail = fmt.Sprintf("%d findings, %d blocking", result.TotalFindings, blocking)

	c.Logger.LogInfo(fmt.Sprintf("[GATE] %s findings: %d total, %d %s", c.Tool, result.TotalFindings, blocking, blockingSeverity))

	// The tool's own exit code does not drive the verdict, but its stderr
	// is still worth surfacing for debugging
	if proc.ExitCode != 0 && stderr != "" {
		c.Logger.LogWarn(fmt.Sprintf("[GATE] %s stderr:", c.Tool))
		c.Logger.LogWarn(stderr)
	}

	return result
}
