package gate

import (
	"context"
	"fmt"
	"io"
)

// Gate evaluates the configured checks in declared order and aggregates the
// overall verdict.
type Gate struct {
	checks []Check
	logger Logger
	stdout io.Writer
	stderr io.Writer
}

// New creates a Gate over the given checks. Success banners go to stdout,
// failure banners to stderr.
func New(checks []Check, logger Logger, stdout, stderr io.Writer) *Gate {
	return &Gate{
		checks: checks,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
}

// Run evaluates every check sequentially and returns the aggregate verdict.
// Evaluation does not short-circuit: a failing check never suppresses the
// remaining checks, so one run surfaces all diagnostics.
func (g *Gate) Run(ctx context.Context) Verdict {
	verdict := Verdict{Pass: true}

	for _, check := range g.checks {
		g.logger.LogDebug(fmt.Sprintf("running check: %s", check.Name()))

		result := check.Run(ctx)
		verdict.Checks = append(verdict.Checks, result)
		verdict.BlockingFindings += result.BlockingFindings

		if !result.OK || result.BlockingFindings > 0 {
			verdict.Pass = false
		}
	}

	if verdict.Pass {
		fmt.Fprintln(g.stdout, "[GATE] PASS")
	} else {
		fmt.Fprintln(g.stderr, "[GATE] FAIL")
	}

	return verdict
}
