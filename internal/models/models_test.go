package models

import (
	"errors"
	"testing"
)

func validTimeline() Timeline {
	t := Timeline{
		Scenes: []Scene{
			{Order: 0, Duration: 3},
			{Order: 1, Duration: 4},
		},
		AudioTracks: []AudioTrack{
			{Source: "a.mp3", Type: TrackVoice, Volume: 1, Duration: 3},
			{Source: "b.mp3", Type: TrackVoice, Volume: 1, Duration: 4},
		},
	}
	t.ApplyDefaults()
	return t
}

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		StatusQueued,
		StatusGenerating,
		StatusCompleted,
		StatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestTerminal(t *testing.T) {
	if (RenderJob{Status: StatusGenerating}).Terminal() {
		t.Error("generating should not be terminal")
	}
	if !(RenderJob{Status: StatusCompleted}).Terminal() {
		t.Error("completed should be terminal")
	}
	if !(RenderJob{Status: StatusFailed}).Terminal() {
		t.Error("failed should be terminal")
	}
}

func TestApplyDefaults(t *testing.T) {
	tl := Timeline{
		Scenes:      []Scene{{Order: 0, Duration: 5}},
		AudioTracks: []AudioTrack{{Source: "m.mp3", Type: TrackMusic}},
	}
	tl.ApplyDefaults()

	s := tl.Settings
	if s.Width != DefaultWidth || s.Height != DefaultHeight || s.FPS != DefaultFPS {
		t.Errorf("resolution defaults not applied: %dx%d@%d", s.Width, s.Height, s.FPS)
	}
	if s.TransitionDuration != DefaultTransitionDuration {
		t.Errorf("expected transition %v, got %v", DefaultTransitionDuration, s.TransitionDuration)
	}
	if tl.AudioTracks[0].Volume != 1.0 {
		t.Errorf("expected unset volume to default to 1.0, got %v", tl.AudioTracks[0].Volume)
	}
	if tl.Scenes[0].Background.Type != BackgroundColor {
		t.Errorf("expected color background default, got %v", tl.Scenes[0].Background.Type)
	}
	if tl.Scenes[0].Background.Color != DefaultBackgroundColor {
		t.Errorf("expected background color default, got %q", tl.Scenes[0].Background.Color)
	}
}

func TestValidateOK(t *testing.T) {
	tl := validTimeline()
	if err := tl.Validate(); err != nil {
		t.Fatalf("expected valid timeline, got %v", err)
	}
}

func TestValidateEmptySceneList(t *testing.T) {
	tl := Timeline{}
	tl.ApplyDefaults()

	err := tl.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateNonContiguousOrder(t *testing.T) {
	tl := validTimeline()
	tl.Scenes[1].Order = 3

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for non-contiguous scene order")
	}

	tl = validTimeline()
	tl.Scenes[1].Order = 0
	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for duplicate scene order")
	}
}

func TestValidateZeroDuration(t *testing.T) {
	tl := validTimeline()
	tl.Scenes[0].Duration = 0

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for zero scene duration")
	}
}

func TestValidateNarrationMismatch(t *testing.T) {
	tl := validTimeline()
	tl.AudioTracks = tl.AudioTracks[:1] // 1 voice track, 2 scenes

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for narration/scene count mismatch")
	}
}

func TestValidateNoNarrationAllowed(t *testing.T) {
	tl := validTimeline()
	tl.AudioTracks = []AudioTrack{{Source: "m.mp3", Type: TrackMusic, Volume: 0.8}}

	if err := tl.Validate(); err != nil {
		t.Fatalf("timeline without voice tracks should be valid, got %v", err)
	}
}

func TestValidateVolumeRange(t *testing.T) {
	tl := validTimeline()
	tl.AudioTracks[0].Volume = 1.5

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for volume > 1")
	}
}

func TestValidateSceneShorterThanTransition(t *testing.T) {
	tl := validTimeline()
	tl.Scenes[0].Duration = 0.4 // transition default is 0.5

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for scene shorter than transition")
	}
}

func TestValidateTextElementNeedsText(t *testing.T) {
	tl := validTimeline()
	tl.Scenes[0].Elements = []Element{{Type: ElementText}}

	if err := tl.Validate(); err == nil {
		t.Fatal("expected error for empty text element")
	}
}

func TestStatusFromJob(t *testing.T) {
	job := RenderJob{
		Status:     StatusCompleted,
		Progress:   100,
		OutputPath: "/out/render.mp4",
		Duration:   11,
		FileSize:   2048,
	}

	resp := StatusFromJob(job)
	if resp.Status != StatusCompleted || resp.Progress != 100 {
		t.Errorf("unexpected status payload: %+v", resp)
	}
	if resp.VideoURL != "/out/render.mp4" {
		t.Errorf("expected video url to carry output path, got %q", resp.VideoURL)
	}
}
