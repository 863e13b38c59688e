package gate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ToolResult captures the output of one external tool invocation.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ToolRunner abstracts subprocess execution so tests can substitute canned
// results without spawning real processes.
type ToolRunner interface {
	// LookPath locates a tool binary on the execution path.
	// Returns an error when the binary cannot be found.
	LookPath(name string) (string, error)

	// Run executes the tool synchronously, blocking until it exits, and
	// captures its exit code, stdout, and stderr. A non-zero exit code is
	// reported in the result, not as an error; Run returns an error only
	// when the process could not be started at all.
	Run(ctx context.Context, name string, args ...string) (*ToolResult, error)
}

// ExecToolRunner runs tools as real subprocesses via os/exec.
type ExecToolRunner struct{}

// NewExecToolRunner creates an ExecToolRunner.
func NewExecToolRunner() *ExecToolRunner {
	return &ExecToolRunner{}
}

// LookPath locates the binary using the process environment's PATH.
func (r *ExecToolRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes the tool and captures its output.
func (r *ExecToolRunner) Run(ctx context.Context, name string, args ...string) (*ToolResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run %s: %w", name, err)
		}
	}

	return result, nil
}
