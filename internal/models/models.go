package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

type BackgroundType string

const (
	BackgroundColor    BackgroundType = "color"
	BackgroundGradient BackgroundType = "gradient"
)

type ElementType string

const (
	ElementImage ElementType = "image"
	ElementVideo ElementType = "video"
	ElementText  ElementType = "text"
	ElementAudio ElementType = "audio"
)

type TrackType string

const (
	TrackVoice TrackType = "voice"
	TrackMusic TrackType = "music"
	TrackSFX   TrackType = "sfx"
)

// Defaults applied when the submission leaves a field unset
const (
	DefaultWidth              = 1080
	DefaultHeight             = 1920
	DefaultFPS                = 30
	DefaultBackgroundColor    = "#000000"
	DefaultTransitionDuration = 0.5

	// Image and video elements fade in/out over this many seconds unless the
	// submission sets an explicit value.
	DefaultElementFade = 0.5
)

// Models

// RenderJob tracks one video-generation request's lifecycle. It is created on
// submission, mutated only by the worker executing it, and never mutated again
// once it reaches a terminal state.
type RenderJob struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"` // 0-100, non-decreasing
	OutputPath   string     `json:"output_path,omitempty"`
	Duration     float64    `json:"duration,omitempty"` // seconds
	FileSize     int64      `json:"file_size,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j RenderJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Timeline is the full ordered description of one render: scenes, audio
// tracks, and global settings. It doubles as the submission payload.
type Timeline struct {
	Scenes      []Scene      `json:"scenes" validate:"required,min=1,dive"`
	AudioTracks []AudioTrack `json:"audio_tracks" validate:"dive"`
	SyncPoints  []SyncPoint  `json:"sync_points,omitempty"`
	Settings    Settings     `json:"settings"`
	OwnerID     *uuid.UUID   `json:"owner_id,omitempty"`
}

// Scene is one timed segment of the video: a background plus layered elements.
type Scene struct {
	Order      int        `json:"order" validate:"min=0"`
	Duration   float64    `json:"duration" validate:"gt=0"` // seconds
	Background Background `json:"background"`
	Elements   []Element  `json:"elements" validate:"dive"`
	Title      string     `json:"title,omitempty"`
}

type Background struct {
	Type          BackgroundType `json:"type" validate:"omitempty,oneof=color gradient"`
	Color         string         `json:"color,omitempty"`          // hex #rrggbb
	GradientStart string         `json:"gradient_start,omitempty"` // hex
	GradientEnd   string         `json:"gradient_end,omitempty"`   // hex
}

// Element is a positioned, layered item within a scene. AssetPath carries the
// payload for image/video/audio elements; Text and Style for text elements.
type Element struct {
	Type      ElementType `json:"type" validate:"required,oneof=image video text audio"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Layer     int         `json:"layer"`
	Rotation  float64     `json:"rotation"`           // degrees
	Opacity   float64     `json:"opacity,omitempty"`  // 0-1, 0 means unset (full)
	FadeIn    *float64    `json:"fade_in,omitempty"`  // seconds, nil means default
	FadeOut   *float64    `json:"fade_out,omitempty"` // seconds
	AssetPath string      `json:"asset_path,omitempty"`
	Text      string      `json:"text,omitempty"`
	Style     TextStyle   `json:"style,omitempty"`
}

type TextStyle struct {
	FontSize     int     `json:"font_size,omitempty"`
	Color        string  `json:"color,omitempty"`
	StrokeColor  string  `json:"stroke_color,omitempty"`
	StrokeWidth  int     `json:"stroke_width,omitempty"`
	ShadowColor  string  `json:"shadow_color,omitempty"`
	ShadowOffset float64 `json:"shadow_offset,omitempty"`
}

// AudioTrack is one audio input contributing to the final mix.
// Duration 0 means "fit to the target timeline duration".
type AudioTrack struct {
	ID           string    `json:"id,omitempty"`
	Source       string    `json:"source" validate:"required"`
	StartTime    float64   `json:"start_time" validate:"gte=0"`
	Duration     float64   `json:"duration" validate:"gte=0"` // seconds, 0 = fit
	Volume       float64   `json:"volume" validate:"gte=0,lte=1"`
	FadeIn       float64   `json:"fade_in" validate:"gte=0"`
	FadeOut      float64   `json:"fade_out" validate:"gte=0"`
	Loop         bool      `json:"loop"`
	Type         TrackType `json:"type" validate:"required,oneof=voice music sfx"`
	IsBackground bool      `json:"is_background"`
}

// SyncPoint correlates an audio cue with a visual event. It feeds the advisory
// alignment heuristic only; no audio is modified because of it.
type SyncPoint struct {
	Timestamp float64 `json:"timestamp"`
	AudioCue  float64 `json:"audio_cue"`
	VisualCue string  `json:"visual_cue,omitempty"`
	Type      string  `json:"type,omitempty"`
}

// Settings holds the global render configuration for one timeline.
type Settings struct {
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	FPS                int     `json:"fps"`
	BackgroundColor    string  `json:"background_color,omitempty"`
	BackgroundMusic    string  `json:"background_music,omitempty"` // path, optional
	TransitionDuration float64 `json:"transition_duration,omitempty"`
}

// ApplyDefaults fills unset settings fields with service defaults.
func (s *Settings) ApplyDefaults() {
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultHeight
	}
	if s.FPS <= 0 {
		s.FPS = DefaultFPS
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = DefaultBackgroundColor
	}
	if s.TransitionDuration <= 0 {
		s.TransitionDuration = DefaultTransitionDuration
	}
}

// ApplyDefaults normalizes the whole submission: settings defaults, unset
// track volumes to full volume, unset background types to solid color.
func (t *Timeline) ApplyDefaults() {
	t.Settings.ApplyDefaults()

	for i := range t.AudioTracks {
		if t.AudioTracks[i].Volume == 0 {
			t.AudioTracks[i].Volume = 1.0
		}
	}

	for i := range t.Scenes {
		sc := &t.Scenes[i]
		if sc.Background.Type == "" {
			sc.Background.Type = BackgroundColor
		}
		if sc.Background.Type == BackgroundColor && sc.Background.Color == "" {
			sc.Background.Color = t.Settings.BackgroundColor
		}
		for j := range sc.Elements {
			if sc.Elements[j].Opacity == 0 {
				sc.Elements[j].Opacity = 1.0
			}
		}
	}
}

// StatusResponse is the polling payload for a job.
type StatusResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	VideoURL     string    `json:"video_url,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	FileSize     int64     `json:"file_size,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// StatusFromJob builds the external status payload from a job snapshot.
func StatusFromJob(job RenderJob) StatusResponse {
	return StatusResponse{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		VideoURL:     job.OutputPath,
		Duration:     job.Duration,
		FileSize:     job.FileSize,
		ErrorMessage: job.ErrorMessage,
	}
}
