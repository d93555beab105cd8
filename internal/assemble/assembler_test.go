package assemble

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

const epsilon = 1e-9

func clipsOf(durations ...float64) []models.VisualClip {
	clips := make([]models.VisualClip, len(durations))
	for i, d := range durations {
		clips[i] = models.VisualClip{SceneOrder: i, Duration: d, BackgroundColor: "#000000"}
	}
	return clips
}

func settingsWithTransition(t float64) models.Settings {
	s := models.Settings{TransitionDuration: t}
	s.ApplyDefaults()
	s.TransitionDuration = t
	return s
}

func TestTotalDuration(t *testing.T) {
	cases := []struct {
		name       string
		durations  []float64
		transition float64
		want       float64
	}{
		{"three scenes", []float64{3, 4, 5}, 0.5, 11},
		{"single scene", []float64{7}, 0.5, 7},
		{"two scenes", []float64{2, 2}, 0.5, 3.5},
		{"no transition", []float64{3, 3, 3}, 0, 9},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalDuration(tc.durations, tc.transition)
			if math.Abs(got-tc.want) > epsilon {
				t.Errorf("TotalDuration(%v, %v) = %v, want %v", tc.durations, tc.transition, got, tc.want)
			}
		})
	}
}

func TestAssembleDurationFormula(t *testing.T) {
	a := NewAssembler(zerolog.Nop())

	spec, err := a.Assemble(clipsOf(3, 4, 5), models.AudioClip{}, settingsWithTransition(0.5))
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if math.Abs(spec.TotalDuration-11) > epsilon {
		t.Errorf("expected total duration 11, got %v", spec.TotalDuration)
	}
	if len(spec.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(spec.Transitions))
	}

	// Clip starts: 0, 3-0.5, (3-0.5)+(4-0.5)
	wantStarts := []float64{0, 2.5, 6}
	for i, c := range spec.Clips {
		if math.Abs(c.Start-wantStarts[i]) > epsilon {
			t.Errorf("clip %d start = %v, want %v", i, c.Start, wantStarts[i])
		}
	}

	// Transition windows begin at the next clip's start.
	if math.Abs(spec.Transitions[0].Offset-2.5) > epsilon {
		t.Errorf("transition 0 offset = %v, want 2.5", spec.Transitions[0].Offset)
	}
	if math.Abs(spec.Transitions[1].Offset-6) > epsilon {
		t.Errorf("transition 1 offset = %v, want 6", spec.Transitions[1].Offset)
	}
}

func TestAssembleSingleClip(t *testing.T) {
	a := NewAssembler(zerolog.Nop())

	spec, err := a.Assemble(clipsOf(7), models.AudioClip{}, settingsWithTransition(0.5))
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if math.Abs(spec.TotalDuration-7) > epsilon {
		t.Errorf("single clip keeps full duration, got %v", spec.TotalDuration)
	}
	if len(spec.Transitions) != 0 {
		t.Errorf("single clip must have no transitions, got %d", len(spec.Transitions))
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	if _, err := a.Assemble(nil, models.AudioClip{}, settingsWithTransition(0.5)); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

func TestAssembleClipShorterThanTransition(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	if _, err := a.Assemble(clipsOf(0.4, 5), models.AudioClip{}, settingsWithTransition(0.5)); err == nil {
		t.Fatal("expected error when a non-final clip is shorter than the transition")
	}
}

func TestAssembleClampsAudio(t *testing.T) {
	a := NewAssembler(zerolog.Nop())
	audio := models.AudioClip{
		Duration: 20,
		Segments: []models.AudioSegment{
			{Source: "long.mp3", Track: models.TrackMusic, Duration: 20, Volume: 1, FadeOut: 15},
			{Source: "late.wav", Track: models.TrackSFX, Start: 15, Duration: 1, Volume: 1},
		},
	}

	spec, err := a.Assemble(clipsOf(3, 4, 5), audio, settingsWithTransition(0.5))
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if math.Abs(spec.Audio.Duration-11) > epsilon {
		t.Errorf("audio must be clamped to total duration, got %v", spec.Audio.Duration)
	}
	if len(spec.Audio.Segments) != 1 {
		t.Fatalf("segment past the end must be dropped, got %d segments", len(spec.Audio.Segments))
	}
	seg := spec.Audio.Segments[0]
	if math.Abs(seg.Duration-11) > epsilon {
		t.Errorf("overlong segment must be trimmed to 11, got %v", seg.Duration)
	}
	if seg.FadeOut > seg.Duration {
		t.Errorf("fade out must be clamped after trim: %v > %v", seg.FadeOut, seg.Duration)
	}
}

func TestBoundaries(t *testing.T) {
	got := Boundaries([]float64{3, 4, 5}, 0.5)
	want := []float64{2.5, 6}
	if len(got) != len(want) {
		t.Fatalf("expected %d boundaries, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("boundary %d = %v, want %v", i, got[i], want[i])
		}
	}

	if Boundaries([]float64{5}, 0.5) != nil {
		t.Error("single scene has no boundaries")
	}
}
