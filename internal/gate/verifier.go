package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/verigate/internal/fileutil"
)

// verifierTargetExt is the file extension of formal verification targets.
const verifierTargetExt = ".dfy"

// VerifierCheck runs the formal verifier against the configured target files.
//
// Targets are resolved before every run; if none are found the check passes
// vacuously without spawning a subprocess. All files are verified in one
// batched invocation so a single combined log captures the whole run.
// Failure is defined strictly as a non-zero verifier exit code.
type VerifierCheck struct {
	// Tool is the verifier binary name (e.g. "dafny")
	Tool string

	// Targets are the configured files and directories to verify
	Targets []string

	Runner    ToolRunner
	Artifacts *ArtifactStore
	Logger    Logger
}

// Name returns the verifier tool name.
func (c *VerifierCheck) Name() string {
	return c.Tool
}

// logName returns the artifact file name for the combined verifier log.
func (c *VerifierCheck) logName() string {
	return c.Tool + ".log"
}

// installGuidance returns actionable text for a missing verifier binary.
func (c *VerifierCheck) installGuidance() string {
	return fmt.Sprintf(`[GATE] %[1]s not found on PATH.
Install %[1]s and ensure the '%[1]s' command is on your PATH.

Common install options:
- Homebrew (if available): brew install %[1]s
- .NET global tool: dotnet tool install -g %[1]s
  then add to PATH: export PATH="$PATH:$HOME/.dotnet/tools"
- Download a release: https://github.com/dafny-lang/dafny/releases

After installing, verify with: %[1]s --version
`, c.Tool)
}

// Run resolves the targets, invokes the verifier once against the full file
// set, and writes the combined log artifact.
func (c *VerifierCheck) Run(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     c.Name(),
		ExitCode: ExitCodeToolMissing,
	}

	files, err := fileutil.CollectTargets(c.Targets, verifierTargetExt)
	if err != nil {
		result.Detail = fmt.Sprintf("target discovery failed: %v", err)
		c.Logger.LogError(fmt.Sprintf("[GATE] %s target discovery failed: %v", c.Tool, err))
		c.persistLog(result.Detail + "\n")
		return result
	}

	if len(files) == 0 {
		note := fmt.Sprintf("[GATE] No %s files found. Skipping %s.", verifierTargetExt, c.Tool)
		c.Logger.LogInfo(note)
		c.persistLog(note + "\n")
		result.OK = true
		result.Skipped = true
		result.Detail = note
		return result
	}

	if _, err := c.Runner.LookPath(c.Tool); err != nil {
		guidance := c.installGuidance()
		c.Logger.LogError(guidance)
		c.persistLog(guidance)
		result.Detail = fmt.Sprintf("%s not found on PATH", c.Tool)
		return result
	}

	version, err := c.Runner.Run(ctx, c.Tool, "--version")
	if err != nil {
		result.Detail = fmt.Sprintf("version probe failed: %v", err)
		c.Logger.LogError(fmt.Sprintf("[GATE] %s", result.Detail))
		c.persistLog(result.Detail + "\n")
		return result
	}

	versionText := strings.TrimSpace(version.Stdout)
	if versionText == "" {
		versionText = strings.TrimSpace(version.Stderr)
	}
	header := fmt.Sprintf("[GATE] %s version:\n%s\n\n", c.Tool, versionText)
	c.Logger.LogInfo(strings.TrimSpace(header))

	// Verify all files in one command (faster, single log)
	args := append([]string{"verify"}, files...)
	proc, err := c.Runner.Run(ctx, c.Tool, args...)
	if err != nil {
		result.Detail = fmt.Sprintf("invocation failed: %v", err)
		c.Logger.LogError(fmt.Sprintf("[GATE] %s %s", c.Tool, result.Detail))
		c.persistLog(header + result.Detail + "\n")
		return result
	}

	var log strings.Builder
	log.WriteString(header)
	fmt.Fprintf(&log, "[GATE] %s command:\n%s %s\n\n", c.Tool, c.Tool, strings.Join(args, " "))
	fmt.Fprintf(&log, "[GATE] %s stdout:\n%s\n", c.Tool, proc.Stdout)
	fmt.Fprintf(&log, "[GATE] %s stderr:\n%s\n", c.Tool, proc.Stderr)
	c.persistLog(log.String())

	result.ExitCode = proc.ExitCode
	result.Stdout = proc.Stdout
	result.Stderr = proc.Stderr

	if proc.ExitCode != 0 {
		result.Detail = fmt.Sprintf("exit code %d, see %s", proc.ExitCode, c.Artifacts.Path(c.logName()))
		c.Logger.LogError(fmt.Sprintf("[GATE] %s FAIL (return code %d). See %s", c.Tool, proc.ExitCode, c.Artifacts.Path(c.logName())))
		return result
	}

	c.Logger.LogInfo(fmt.Sprintf("[GATE] %s PASS", c.Tool))
	result.OK = true
	return result
}

// persistLog writes the combined log artifact, reporting write failures to
// the logger rather than failing the check over them.
func (c *VerifierCheck) persistLog(text string) {
	if err := c.Artifacts.WriteFile(c.logName(), []byte(text)); err != nil {
		c.Logger.LogWarn(fmt.Sprintf("[GATE] failed to persist %s log: %v", c.Tool, err))
	}
}
