package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ArtifactStore persists raw checker output under a single artifacts
// directory for post-hoc inspection. A file lock taken for the duration of a
// run keeps a second concurrent invocation from interleaving writes.
type ArtifactStore struct {
	dir  string
	lock *flock.Flock
}

// NewArtifactStore creates an ArtifactStore rooted at dir.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, "gate.lock")),
	}
}

// Dir returns the artifacts directory path.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Path returns the full path of a named artifact.
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Lock acquires an exclusive lock on the artifacts directory, blocking until
// it is available. The caller must release it with Unlock when the run ends.
func (s *ArtifactStore) Lock() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts directory %s: %w", s.dir, err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", s.lock.Path(), err)
	}
	return nil
}

// Unlock releases the artifacts directory lock.
func (s *ArtifactStore) Unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", s.lock.Path(), err)
	}
	return nil
}

// WriteFile persists an artifact atomically using a temp file and rename,
// creating the artifacts directory first if needed. Readers never see a
// partial write.
func (s *ArtifactStore) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts directory %s: %w", s.dir, err)
	}

	tempFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	target := s.Path(name)
	if err := os.Rename(tempPath, target); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", target, err)
	}

	// Renamed successfully, skip cleanup
	tempFile = nil

	return nil
}

// WriteSummary persists a markdown summary of a gate run as summary.md.
func (s *ArtifactStore) WriteSummary(runID string, verdict Verdict, duration time.Duration) error {
	var sb strings.Builder

	sb.WriteString("# Gate Run Summary\n\n")
	fmt.Fprintf(&sb, "- Run ID: `%s`\n", runID)
	fmt.Fprintf(&sb, "- Completed: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Duration: %s\n", duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "- Verdict: **%s**\n", verdictLabel(verdict.Pass))
	fmt.Fprintf(&sb, "- Blocking findings: %d\n\n", verdict.BlockingFindings)

	sb.WriteString("## Checks\n\n")
	sb.WriteString("| Check | Status | Exit code | Findings | Blocking |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, res := range verdict.Checks {
		status := verdictLabel(res.OK && res.BlockingFindings == 0)
		if res.Skipped {
			status = "SKIPPED"
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d |\n",
			res.Name, status, res.ExitCode, res.TotalFindings, res.BlockingFindings)
	}

	return s.WriteFile("summary.md", []byte(sb.String()))
}

func verdictLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
