package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestCreateAndRemove(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(filepath.Join(base, "work"), filepath.Join(base, "out"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	ws, err := m.Create(uuid.New())
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	file := ws.Path("scene_0_bg.png")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write into workspace: %v", err)
	}

	if err := ws.Remove(); err != nil {
		t.Fatalf("failed to remove workspace: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace dir should be gone, stat err = %v", err)
	}
}

func TestOutputPathsAreUnique(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(filepath.Join(base, "work"), filepath.Join(base, "out"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	a := m.OutputPath(uuid.New())
	b := m.OutputPath(uuid.New())
	if a == b {
		t.Errorf("output paths for different jobs must differ: %s", a)
	}
}
