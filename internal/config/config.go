package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"github.com/clipforge/renderd/internal/models"
)

const (
	EncoderFFmpeg    = "ffmpeg"
	EncoderSimulated = "simulated"
)

type Config struct {
	// Environment
	AppEnv string // "development" enables console logging

	// Redis (job queue + progress events)
	RedisURL string

	// Database (persistence gateway; empty = in-memory gateway)
	DatabaseURL string

	// Encoder selection: "ffmpeg" or "simulated"
	Encoder     string
	FFmpegPath  string
	FFprobePath string

	// Directories
	WorkDir   string // per-job temp workspaces
	OutputDir string // final renders, one unique file per job

	// Worker pool
	MaxConcurrentJobs    int           // 0 = derive from host CPUs
	MaxConcurrentEncodes int           // 0 = one encode per worker
	JobTimeout           time.Duration // wall-clock ceiling per job

	// Render defaults applied to submissions that leave settings unset
	Defaults RenderDefaults
}

// RenderDefaults mirrors models.Settings defaults; an optional YAML file
// (RENDER_DEFAULTS_FILE) overrides the built-ins.
type RenderDefaults struct {
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	FPS                int     `yaml:"fps"`
	BackgroundColor    string  `yaml:"background_color"`
	BackgroundMusic    string  `yaml:"background_music"`
	TransitionDuration float64 `yaml:"transition_duration"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		Encoder:              getEnv("ENCODER", EncoderFFmpeg),
		FFmpegPath:           getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:          getEnv("FFPROBE_PATH", "ffprobe"),
		WorkDir:              getEnv("WORK_DIR", "/tmp/renderd"),
		OutputDir:            getEnv("OUTPUT_DIR", "/tmp/renderd/out"),
		MaxConcurrentJobs:    getEnvInt("MAX_CONCURRENT_JOBS", 0),
		MaxConcurrentEncodes: getEnvInt("MAX_CONCURRENT_ENCODES", 0),
		JobTimeout:           getEnvDuration("JOB_TIMEOUT", 15*time.Minute),
		Defaults: RenderDefaults{
			Width:              models.DefaultWidth,
			Height:             models.DefaultHeight,
			FPS:                models.DefaultFPS,
			BackgroundColor:    models.DefaultBackgroundColor,
			TransitionDuration: models.DefaultTransitionDuration,
		},
	}

	if path := getEnv("RENDER_DEFAULTS_FILE", ""); path != "" {
		if err := cfg.Defaults.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load render defaults: %w", err)
		}
	}

	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = autoConcurrency()
	}

	switch cfg.Encoder {
	case EncoderFFmpeg, EncoderSimulated:
	default:
		return nil, fmt.Errorf("ENCODER must be %q or %q, got %q", EncoderFFmpeg, EncoderSimulated, cfg.Encoder)
	}

	if cfg.JobTimeout <= 0 {
		return nil, fmt.Errorf("JOB_TIMEOUT must be positive")
	}

	return cfg, nil
}

// Apply copies the configured defaults onto a submission's settings where the
// submission left them unset.
func (d RenderDefaults) Apply(s *models.Settings) {
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.FPS <= 0 {
		s.FPS = d.FPS
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = d.BackgroundColor
	}
	if s.BackgroundMusic == "" {
		s.BackgroundMusic = d.BackgroundMusic
	}
	if s.TransitionDuration <= 0 {
		s.TransitionDuration = d.TransitionDuration
	}
}

func (d *RenderDefaults) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, d); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// autoConcurrency sizes the worker pool from the host: encoding is CPU-bound,
// so half the logical cores with a floor of 2.
func autoConcurrency() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		return 2
	}
	n := count / 2
	if n < 2 {
		n = 2
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
