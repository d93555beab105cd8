package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/renderd/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENCODER", EncoderSimulated)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MaxConcurrentJobs < 2 {
		t.Errorf("expected at least 2 workers, got %d", cfg.MaxConcurrentJobs)
	}
	if cfg.JobTimeout != 15*time.Minute {
		t.Errorf("expected default job timeout, got %v", cfg.JobTimeout)
	}
	if cfg.Defaults.TransitionDuration != models.DefaultTransitionDuration {
		t.Errorf("expected default transition, got %v", cfg.Defaults.TransitionDuration)
	}
}

func TestLoadRejectsUnknownEncoder(t *testing.T) {
	t.Setenv("ENCODER", "webcodecs")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown encoder")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENCODER", EncoderSimulated)
	t.Setenv("MAX_CONCURRENT_JOBS", "7")
	t.Setenv("JOB_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MaxConcurrentJobs != 7 {
		t.Errorf("expected 7 workers, got %d", cfg.MaxConcurrentJobs)
	}
	if cfg.JobTimeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.JobTimeout)
	}
}

func TestRenderDefaultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	contents := "width: 1280\nheight: 720\nfps: 24\ntransition_duration: 0.75\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write defaults file: %v", err)
	}

	t.Setenv("ENCODER", EncoderSimulated)
	t.Setenv("RENDER_DEFAULTS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Defaults.Width != 1280 || cfg.Defaults.Height != 720 {
		t.Errorf("yaml resolution not applied: %dx%d", cfg.Defaults.Width, cfg.Defaults.Height)
	}
	if cfg.Defaults.FPS != 24 {
		t.Errorf("expected fps 24, got %d", cfg.Defaults.FPS)
	}
	if cfg.Defaults.TransitionDuration != 0.75 {
		t.Errorf("expected transition 0.75, got %v", cfg.Defaults.TransitionDuration)
	}
	// Unset fields keep the built-ins
	if cfg.Defaults.BackgroundColor != models.DefaultBackgroundColor {
		t.Errorf("expected built-in background color, got %q", cfg.Defaults.BackgroundColor)
	}
}

func TestRenderDefaultsApply(t *testing.T) {
	d := RenderDefaults{Width: 640, Height: 360, FPS: 25, BackgroundColor: "#112233", TransitionDuration: 1}

	s := models.Settings{Width: 1920}
	d.Apply(&s)

	if s.Width != 1920 {
		t.Errorf("explicit width must win, got %d", s.Width)
	}
	if s.Height != 360 || s.FPS != 25 {
		t.Errorf("defaults not applied: %d@%d", s.Height, s.FPS)
	}
	if s.TransitionDuration != 1 {
		t.Errorf("expected transition 1, got %v", s.TransitionDuration)
	}
}
