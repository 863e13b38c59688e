package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/harrison/verigate/internal/config"
	"github.com/harrison/verigate/internal/gate"
	"github.com/harrison/verigate/internal/logger"
	"github.com/harrison/verigate/internal/store"
)

// ErrGateFailed signals an overall gate failure. The banner has already been
// printed when this is returned, so main maps it to exit code 1 without
// printing anything further.
var ErrGateFailed = errors.New("gate failed")

// gateIO carries the output streams for a gate run. Success info goes to
// stdout, failure notices to stderr.
type gateIO struct {
	stdout io.Writer
	stderr io.Writer
}

// splitLogger routes info-level messages to stdout and warnings/errors to
// stderr, matching the gate's stream contract.
type splitLogger struct {
	out *logger.ConsoleLogger
	err *logger.ConsoleLogger
}

func newSplitLogger(streams gateIO, level string) *splitLogger {
	return &splitLogger{
		out: logger.NewConsoleLogger(streams.stdout, level),
		err: logger.NewConsoleLogger(streams.stderr, level),
	}
}

func (l *splitLogger) LogDebug(message string) { l.out.LogDebug(message) }
func (l *splitLogger) LogInfo(message string)  { l.out.LogInfo(message) }
func (l *splitLogger) LogWarn(message string)  { l.err.LogWarn(message) }
func (l *splitLogger) LogError(message string) { l.err.LogError(message) }

// executeGate runs the configured checks, persists artifacts and history,
// and returns ErrGateFailed on an overall failure.
func executeGate(ctx context.Context, cfg *config.Config, streams gateIO) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := newSplitLogger(streams, cfg.LogLevel)

	artifacts := gate.NewArtifactStore(cfg.ArtifactsDir)
	if err := artifacts.Lock(); err != nil {
		return fmt.Errorf("another gate run may be in progress: %w", err)
	}
	defer artifacts.Unlock()

	runner := gate.NewExecToolRunner()
	checks := buildChecks(cfg, runner, artifacts, log)

	runID := store.NewRunID()
	log.LogDebug(fmt.Sprintf("gate run %s starting", runID))

	start := time.Now()
	verdict := gate.New(checks, log, streams.stdout, streams.stderr).Run(ctx)
	duration := time.Since(start)

	if err := artifacts.WriteSummary(runID, verdict, duration); err != nil {
		log.LogWarn(fmt.Sprintf("failed to write run summary: %v", err))
	}

	recordHistory(ctx, cfg, log, runID, start, duration, verdict)

	if !verdict.Pass {
		return ErrGateFailed
	}
	return nil
}

// buildChecks constructs the declared check sequence: verifier first, then
// scanner.
func buildChecks(cfg *config.Config, runner gate.ToolRunner, artifacts *gate.ArtifactStore, log gate.Logger) []gate.Check {
	return []gate.Check{
		&gate.VerifierCheck{
			Tool:      cfg.VerifierTool,
			Targets:   cfg.VerifierTargets,
			Runner:    runner,
			Artifacts: artifacts,
			Logger:    log,
		},
		&gate.ScannerCheck{
			Tool:       cfg.ScannerTool,
			ConfigPath: cfg.ScannerConfig,
			Runner:     runner,
			Artifacts:  artifacts,
			Logger:     log,
		},
	}
}

// recordHistory persists the run record. History failures are logged but
// never change the verdict.
func recordHistory(ctx context.Context, cfg *config.Config, log gate.Logger, runID string, start time.Time, duration time.Duration, verdict gate.Verdict) {
	st, err := store.NewStore(cfg.HistoryDBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("failed to open history database: %v", err))
		return
	}
	defer st.Close()

	rec := store.RunRecord{
		ID:               runID,
		StartedAt:        start,
		Duration:         duration,
		Pass:             verdict.Pass,
		BlockingFindings: verdict.BlockingFindings,
	}
	for _, res := range verdict.Checks {
		rec.Checks = append(rec.Checks, store.CheckSummary{
			Name:             res.Name,
			OK:               res.OK,
			Skipped:          res.Skipped,
			ExitCode:         res.ExitCode,
			TotalFindings:    res.TotalFindings,
			BlockingFindings: res.BlockingFindings,
		})
	}

	if err := st.RecordRun(ctx, rec); err != nil {
		log.LogWarn(fmt.Sprintf("failed to record run history: %v", err))
	}
}
