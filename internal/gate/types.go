// Package gate implements the verification gate: it invokes the configured
// external checkers, persists their raw output as artifacts, and aggregates
// a pass/fail verdict.
package gate

import "context"

// ExitCodeToolMissing is the sentinel exit code recorded when a checker's
// binary could not be located, or when no subprocess was spawned at all.
const ExitCodeToolMissing = -1

// CheckResult captures the outcome of one checker invocation.
// It is written once after the check completes and never mutated afterward.
type CheckResult struct {
	// Name identifies the checker (the tool name)
	Name string

	// OK reports whether the check itself succeeded. For the scanner this
	// means "ran and produced parseable output"; blocking findings are
	// counted separately and fail the gate during aggregation.
	OK bool

	// Skipped is true when the check passed vacuously without spawning a
	// subprocess (e.g. no verifier target files were discovered)
	Skipped bool

	// ExitCode is the tool's process exit code, or ExitCodeToolMissing
	ExitCode int

	// Stdout and Stderr hold the tool's captured output
	Stdout string
	Stderr string

	// TotalFindings is the number of structured findings reported
	TotalFindings int

	// BlockingFindings is the number of findings with severity ERROR
	BlockingFindings int

	// Detail is a human-readable note about the outcome
	Detail string
}

// Check is one external verification discipline evaluated by the gate.
type Check interface {
	// Name returns the checker's tool name
	Name() string

	// Run invokes the checker, blocking until it completes, and returns
	// its result. Run never returns an error: every failure mode is
	// folded into the CheckResult so the gate can keep evaluating the
	// remaining checks.
	Run(ctx context.Context) CheckResult
}

// Verdict is the aggregate gate decision derived from all check results.
type Verdict struct {
	// Pass is true only if every check succeeded and no blocking
	// findings were reported
	Pass bool

	// BlockingFindings is the total ERROR-severity finding count
	BlockingFindings int

	// Checks holds the individual results in declared check order
	Checks []CheckResult
}

// ExitCode maps the verdict to a process exit status: 0 on pass, 1 on fail.
func (v Verdict) ExitCode() int {
	if v.Pass {
		return 0
	}
	return 1
}

// Logger is the narrow logging surface the gate needs.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}
