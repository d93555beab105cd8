package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Manager owns the two directories the pipeline writes to: a base dir holding
// one isolated temp workspace per job, and a shared output dir where each job
// writes exactly one file under a globally unique name.
type Manager struct {
	baseDir   string
	outputDir string
}

func NewManager(baseDir, outputDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Manager{baseDir: baseDir, outputDir: outputDir}, nil
}

// Create makes the isolated temp directory for one job. The caller must
// Remove it on every exit path.
func (m *Manager) Create(jobID uuid.UUID) (*Workspace, error) {
	dir := filepath.Join(m.baseDir, "job-"+jobID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// OutputPath returns the job's unique output filename. Job IDs are UUIDs, so
// no two jobs can race on the same path.
func (m *Manager) OutputPath(jobID uuid.UUID) string {
	return filepath.Join(m.outputDir, fmt.Sprintf("render_%s.mp4", jobID.String()))
}

// Workspace is one job's isolated temp directory.
type Workspace struct {
	Dir string
}

// Path returns the absolute path for a file inside the workspace.
func (w *Workspace) Path(filename string) string {
	return filepath.Join(w.Dir, filename)
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}
