package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger records log messages for assertions.
type testLogger struct {
	messages []string
}

func (l *testLogger) LogDebug(message string) { l.messages = append(l.messages, message) }
func (l *testLogger) LogInfo(message string)  { l.messages = append(l.messages, message) }
func (l *testLogger) LogWarn(message string)  { l.messages = append(l.messages, message) }
func (l *testLogger) LogError(message string) { l.messages = append(l.messages, message) }

func (l *testLogger) contains(substr string) bool {
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// fakeRunner returns canned results instead of spawning subprocesses.
type fakeRunner struct {
	missing map[string]bool
	// results is keyed by "name arg0" (e.g. "dafny verify", "semgrep scan")
	results map[string]*ToolResult
	runErr  error
	calls   [][]string
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (*ToolResult, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.runErr != nil {
		return nil, r.runErr
	}
	key := name
	if len(args) > 0 {
		key = name + " " + args[0]
	}
	if res, ok := r.results[key]; ok {
		return res, nil
	}
	return &ToolResult{}, nil
}

func newVerifier(t *testing.T, runner ToolRunner, targets []string) (*VerifierCheck, *ArtifactStore, *testLogger) {
	t.Helper()
	artifacts := NewArtifactStore(filepath.Join(t.TempDir(), "artifacts"))
	log := &testLogger{}
	return &VerifierCheck{
		Tool:      "dafny",
		Targets:   targets,
		Runner:    runner,
		Artifacts: artifacts,
		Logger:    log,
	}, artifacts, log
}

func writeTargets(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("method Main() {}"), 0644))
		paths = append(paths, path)
	}
	return paths
}

func TestVerifierCheck_NoTargetsPassesWithoutSubprocess(t *testing.T) {
	runner := &fakeRunner{}
	check, artifacts, log := newVerifier(t, runner, []string{filepath.Join(t.TempDir(), "missing")})

	result := check.Run(context.Background())

	assert.True(t, result.OK)
	assert.True(t, result.Skipped)
	assert.Empty(t, runner.calls, "no subprocess may be spawned for zero targets")
	assert.True(t, log.contains("Skipping"))

	logText, err := os.ReadFile(artifacts.Path("dafny.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logText), "No .dfy files found")
}

func TestVerifierCheck_MissingBinaryFailsWithGuidance(t *testing.T) {
	runner := &fakeRunner{missing: map[string]bool{"dafny": true}}
	check, artifacts, log := newVerifier(t, runner, writeTargets(t, "check.dfy"))

	result := check.Run(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ExitCodeToolMissing, result.ExitCode)
	assert.True(t, log.contains("not found on PATH"))

	logText, err := os.ReadFile(artifacts.Path("dafny.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logText), "Install dafny")
	assert.Contains(t, string(logText), "dafny --version")
}

func TestVerifierCheck_BatchedInvocationAndLog(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"dafny --version": {Stdout: "dafny 4.4.0\n"},
			"dafny verify":    {Stdout: "Dafny program verifier finished with 2 verified, 0 errors\n"},
		},
	}
	targets := writeTargets(t, "a.dfy", "b.dfy")
	check, artifacts, _ := newVerifier(t, runner, targets)

	result := check.Run(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, 0, result.ExitCode)

	// One version probe plus one batched verify over all files
	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"dafny", "--version"}, runner.calls[0])
	assert.Equal(t, append([]string{"dafny", "verify"}, targets...), runner.calls[1])

	logText, err := os.ReadFile(artifacts.Path("dafny.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logText), "dafny 4.4.0")
	assert.Contains(t, string(logText), "dafny verify")
	assert.Contains(t, string(logText), "0 errors")
}

func TestVerifierCheck_NonZeroExitFails(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"dafny --version": {Stdout: "dafny 4.4.0\n"},
			"dafny verify":    {ExitCode: 4, Stderr: "assertion violation\n"},
		},
	}
	check, _, log := newVerifier(t, runner, writeTargets(t, "check.dfy"))

	result := check.Run(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, 4, result.ExitCode)
	assert.True(t, log.contains("dafny FAIL"))
}

func newScanner(t *testing.T, runner ToolRunner) (*ScannerCheck, *ArtifactStore, *testLogger) {
	t.Helper()
	artifacts := NewArtifactStore(filepath.Join(t.TempDir(), "artifacts"))
	log := &testLogger{}
	return &ScannerCheck{
		Tool:       "semgrep",
		ConfigPath: "semgrep/semgrep.yml",
		Runner:     runner,
		Artifacts:  artifacts,
		Logger:     log,
	}, artifacts, log
}

func scannerJSON(severities ...string) string {
	var results []string
	for _, sev := range severities {
		results = append(results, fmt.Sprintf(`{"check_id":"rule","extra":{"severity":"%s"}}`, sev))
	}
	return fmt.Sprintf(`{"results":[%s]}`, strings.Join(results, ","))
}

func TestScannerCheck_MissingBinaryFails(t *testing.T) {
	runner := &fakeRunner{missing: map[string]bool{"semgrep": true}}
	check, _, log := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ExitCodeToolMissing, result.ExitCode)
	assert.True(t, log.contains("not found on PATH"))
	assert.Empty(t, runner.calls)
}

func TestScannerCheck_EmptyOutputIsFailureNotZeroFindings(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: "", Stderr: "semgrep crashed\n", ExitCode: 2},
		},
	}
	check, _, log := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.False(t, result.OK)
	assert.Zero(t, result.TotalFindings)
	assert.True(t, log.contains("no JSON output"))
	assert.True(t, log.contains("semgrep crashed"))
}

func TestScannerCheck_MalformedJSONIsFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: "{not json"},
		},
	}
	check, _, log := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.False(t, result.OK)
	assert.True(t, log.contains("not valid JSON"))
}

func TestScannerCheck_CountsOnlyErrorSeverity(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: scannerJSON("ERROR", "error", "Info", "WARNING")},
		},
	}
	check, artifacts, _ := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, 4, result.TotalFindings)
	assert.Equal(t, 2, result.BlockingFindings)

	// Raw output persisted for inspection
	raw, err := os.ReadFile(artifacts.Path("semgrep.json"))
	require.NoError(t, err)
	assert.JSONEq(t, scannerJSON("ERROR", "error", "Info", "WARNING"), string(raw))
}

func TestScannerCheck_MissingSeverityDefaultsToEmpty(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: `{"results":[{"check_id":"rule"},{"extra":{}}]}`},
		},
	}
	check, _, _ := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, 2, result.TotalFindings)
	assert.Zero(t, result.BlockingFindings)
}

func TestScannerCheck_NonZeroExitWithCleanFindingsStillOK(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: scannerJSON(), ExitCode: 1, Stderr: "some rules failed to load\n"},
		},
	}
	check, _, log := newScanner(t, runner)

	result := check.Run(context.Background())

	assert.True(t, result.OK, "verdict is driven by finding count, not scanner exit code")
	assert.Zero(t, result.BlockingFindings)
	assert.True(t, log.contains("some rules failed to load"))
}

func TestScannerCheck_InvocationArgs(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*ToolResult{
			"semgrep scan": {Stdout: scannerJSON()},
		},
	}
	check, _, _ := newScanner(t, runner)

	check.Run(context.Background())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"semgrep", "scan", "--config", "semgrep/semgrep.yml", "--json"}, runner.calls[0])
}

// stubCheck is a canned Check for aggregation tests.
type stubCheck struct {
	name   string
	result CheckResult
	runs   *int
}

func (s *stubCheck) Name() string { return s.name }

func (s *stubCheck) Run(ctx context.Context) CheckResult {
	*s.runs = *s.runs + 1
	return s.result
}

func TestGate_Verdict(t *testing.T) {
	tests := []struct {
		name         string
		results      []CheckResult
		wantPass     bool
		wantBlocking int
	}{
		{
			name: "all checks pass with zero findings",
			results: []CheckResult{
				{Name: "dafny", OK: true},
				{Name: "semgrep", OK: true, TotalFindings: 3},
			},
			wantPass: true,
		},
		{
			name: "one blocking finding fails the gate",
			results: []CheckResult{
				{Name: "dafny", OK: true},
				{Name: "semgrep", OK: true, TotalFindings: 1, BlockingFindings: 1},
			},
			wantPass:     false,
			wantBlocking: 1,
		},
		{
			name: "failing check fails the gate",
			results: []CheckResult{
				{Name: "dafny", OK: false, ExitCode: 4},
				{Name: "semgrep", OK: true},
			},
			wantPass: false,
		},
		{
			name: "skipped verifier still passes",
			results: []CheckResult{
				{Name: "dafny", OK: true, Skipped: true},
				{Name: "semgrep", OK: true},
			},
			wantPass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var checks []Check
			runs := 0
			for _, res := range tt.results {
				checks = append(checks, &stubCheck{name: res.Name, result: res, runs: &runs})
			}

			var stdout, stderr bytes.Buffer
			verdict := New(checks, &testLogger{}, &stdout, &stderr).Run(context.Background())

			assert.Equal(t, tt.wantPass, verdict.Pass)
			assert.Equal(t, tt.wantBlocking, verdict.BlockingFindings)
			assert.Equal(t, len(tt.results), runs, "every check must run")

			if tt.wantPass {
				assert.Equal(t, 0, verdict.ExitCode())
				assert.Contains(t, stdout.String(), "[GATE] PASS")
				assert.Empty(t, stderr.String())
			} else {
				assert.Equal(t, 1, verdict.ExitCode())
				assert.Contains(t, stderr.String(), "[GATE] FAIL")
				assert.Empty(t, stdout.String())
			}
		})
	}
}

func TestGate_DoesNotShortCircuit(t *testing.T) {
	runs := 0
	checks := []Check{
		&stubCheck{name: "first", result: CheckResult{Name: "first", OK: false}, runs: &runs},
		&stubCheck{name: "second", result: CheckResult{Name: "second", OK: true}, runs: &runs},
	}

	var stdout, stderr bytes.Buffer
	verdict := New(checks, &testLogger{}, &stdout, &stderr).Run(context.Background())

	assert.False(t, verdict.Pass)
	assert.Equal(t, 2, runs, "a failing check must not suppress later checks")
	require.Len(t, verdict.Checks, 2)
	assert.Equal(t, "first", verdict.Checks[0].Name)
	assert.Equal(t, "second", verdict.Checks[1].Name)
}

func TestArtifactStore_WriteFileCreatesDirectories(t *testing.T) {
	store := NewArtifactStore(filepath.Join(t.TempDir(), "nested", "artifacts"))

	require.NoError(t, store.WriteFile("dafny.log", []byte("log text")))

	data, err := os.ReadFile(store.Path("dafny.log"))
	require.NoError(t, err)
	assert.Equal(t, "log text", string(data))
}

func TestArtifactStore_WriteFileOverwritesAtomically(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	require.NoError(t, store.WriteFile("semgrep.json", []byte("first")))
	require.NoError(t, store.WriteFile("semgrep.json", []byte("second")))

	data, err := os.ReadFile(store.Path("semgrep.json"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "leftover temp file %s", entry.Name())
	}
}

func TestArtifactStore_LockUnlock(t *testing.T) {
	store := NewArtifactStore(filepath.Join(t.TempDir(), "artifacts"))

	require.NoError(t, store.Lock())
	require.NoError(t, store.Unlock())
}

func TestArtifactStore_WriteSummary(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	verdict := Verdict{
		Pass:             false,
		BlockingFindings: 2,
		Checks: []CheckResult{
			{Name: "dafny", OK: true, Skipped: true},
			{Name: "semgrep", OK: true, TotalFindings: 4, BlockingFindings: 2},
		},
	}

	require.NoError(t, store.WriteSummary("run-123", verdict, 1500*time.Millisecond))

	data, err := os.ReadFile(store.Path("summary.md"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "run-123")
	assert.Contains(t, text, "**FAIL**")
	assert.Contains(t, text, "Blocking findings: 2")
	assert.Contains(t, text, "SKIPPED")
}

func TestExecToolRunner_LookPathMissing(t *testing.T) {
	runner := NewExecToolRunner()

	_, err := runner.LookPath("definitely-not-a-real-tool-a8f3e")
	assert.Error(t, err)
}

func TestExecToolRunner_CapturesOutputAndExitCode(t *testing.T) {
	runner := NewExecToolRunner()

	result, err := runner.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	require.NoError(t, err, "non-zero exit must be a result, not an error")

	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestFakeRunnerErrorPropagates(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("boom")}
	check, _, _ := newScanner(t, runner)

	result := check.Run(context.Background())
	assert.False(t, result.OK)
	assert.Contains(t, result.Detail, "invocation failed")
}
