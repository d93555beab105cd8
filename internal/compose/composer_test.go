package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

func testComposer() *Composer {
	c := NewComposer(zerolog.Nop())
	c.Retries = 1
	c.RetryDelay = time.Millisecond
	return c
}

func testSettings() models.Settings {
	s := models.Settings{Width: 320, Height: 640}
	s.ApplyDefaults()
	return s
}

func writeAsset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("asset"), 0644); err != nil {
		t.Fatalf("failed to write asset: %v", err)
	}
	return path
}

func TestComposeSolidBackground(t *testing.T) {
	scene := models.Scene{
		Order:      0,
		Duration:   3,
		Background: models.Background{Type: models.BackgroundColor, Color: "#112233"},
	}

	clip, outcomes, err := testComposer().Compose(context.Background(), scene, testSettings(), t.TempDir())
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if clip.Duration != 3 {
		t.Errorf("expected clip duration 3, got %v", clip.Duration)
	}
	if clip.BackgroundColor != "#112233" {
		t.Errorf("expected solid background, got %q", clip.BackgroundColor)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected no element outcomes, got %d", len(outcomes))
	}
}

func TestComposeGradientBackground(t *testing.T) {
	dir := t.TempDir()
	scene := models.Scene{
		Order:    2,
		Duration: 4,
		Background: models.Background{
			Type:          models.BackgroundGradient,
			GradientStart: "#000000",
			GradientEnd:   "#ffffff",
		},
	}

	clip, _, err := testComposer().Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if clip.BackgroundPath == "" {
		t.Fatal("expected gradient background path")
	}
	if _, err := os.Stat(clip.BackgroundPath); err != nil {
		t.Errorf("gradient file should exist: %v", err)
	}
}

func TestGradientSinglePixelHeight(t *testing.T) {
	scene := models.Scene{
		Order: 0,
		Background: models.Background{
			Type:          models.BackgroundGradient,
			GradientStart: "#102030",
			GradientEnd:   "#ffffff",
		},
	}
	settings := models.Settings{Width: 4, Height: 1}

	path, err := renderGradientBackground(scene, settings, t.TempDir())
	if err != nil {
		t.Fatalf("1px-high gradient should render, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("gradient file should exist: %v", err)
	}
}

func TestComposeLayerOrdering(t *testing.T) {
	dir := t.TempDir()
	img := writeAsset(t, dir, "a.png")

	scene := models.Scene{
		Order:    0,
		Duration: 5,
		Elements: []models.Element{
			{Type: models.ElementText, Text: "top", Layer: 10, Opacity: 1},
			{Type: models.ElementImage, AssetPath: img, Layer: 1, Opacity: 1},
			{Type: models.ElementText, Text: "middle", Layer: 5, Opacity: 1},
		},
	}

	clip, _, err := testComposer().Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	zs := make([]int, len(clip.Layers))
	for i, l := range clip.Layers {
		zs[i] = l.Z
	}
	if !reflect.DeepEqual(zs, []int{1, 5, 10}) {
		t.Errorf("layers not in ascending z order: %v", zs)
	}
}

func TestComposeDefaultFades(t *testing.T) {
	dir := t.TempDir()
	img := writeAsset(t, dir, "a.png")
	noFade := 0.0

	scene := models.Scene{
		Order:    0,
		Duration: 5,
		Elements: []models.Element{
			{Type: models.ElementImage, AssetPath: img, Opacity: 1},
			{Type: models.ElementImage, AssetPath: img, Layer: 1, Opacity: 1, FadeIn: &noFade, FadeOut: &noFade},
			{Type: models.ElementText, Text: "t", Layer: 2, Opacity: 1},
		},
	}

	clip, _, err := testComposer().Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if clip.Layers[0].FadeIn != models.DefaultElementFade || clip.Layers[0].FadeOut != models.DefaultElementFade {
		t.Errorf("image element should default to 0.5s fades, got %v/%v", clip.Layers[0].FadeIn, clip.Layers[0].FadeOut)
	}
	if clip.Layers[1].FadeIn != 0 || clip.Layers[1].FadeOut != 0 {
		t.Errorf("explicit zero fades must be honored, got %v/%v", clip.Layers[1].FadeIn, clip.Layers[1].FadeOut)
	}
	if clip.Layers[2].FadeIn != 0 {
		t.Errorf("text elements should not get default fades, got %v", clip.Layers[2].FadeIn)
	}
}

func TestComposeSkipsMissingAsset(t *testing.T) {
	dir := t.TempDir()
	img := writeAsset(t, dir, "ok.png")

	scene := models.Scene{
		Order:    0,
		Duration: 5,
		Elements: []models.Element{
			{Type: models.ElementImage, AssetPath: img, Opacity: 1},
			{Type: models.ElementImage, AssetPath: filepath.Join(dir, "missing.png"), Layer: 1, Opacity: 1},
		},
	}

	clip, outcomes, err := testComposer().Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("missing asset must not fail the scene: %v", err)
	}

	if len(clip.Layers) != 1 {
		t.Fatalf("expected 1 composed layer, got %d", len(clip.Layers))
	}

	var skipped *ElementOutcome
	for i := range outcomes {
		if outcomes[i].Skipped {
			skipped = &outcomes[i]
		}
	}
	if skipped == nil {
		t.Fatal("expected a skipped outcome")
	}
	var missing *AssetMissingError
	if !errors.As(skipped.Err, &missing) {
		t.Fatalf("expected AssetMissingError, got %v", skipped.Err)
	}
	if missing.Attempts != 2 {
		t.Errorf("expected 2 attempts (1 retry), got %d", missing.Attempts)
	}
}

func TestComposeAudioElementBecomesTrack(t *testing.T) {
	dir := t.TempDir()
	sfx := writeAsset(t, dir, "whoosh.wav")

	scene := models.Scene{
		Order:    1,
		Duration: 4,
		Elements: []models.Element{
			{Type: models.ElementAudio, AssetPath: sfx, Opacity: 0.7},
		},
	}

	clip, outcomes, err := testComposer().Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if len(clip.Layers) != 0 {
		t.Errorf("audio elements should not produce visual layers, got %d", len(clip.Layers))
	}
	if len(outcomes) != 1 || outcomes[0].Track == nil {
		t.Fatalf("expected one outcome carrying a track, got %+v", outcomes)
	}
	tr := outcomes[0].Track
	if tr.Type != models.TrackSFX {
		t.Errorf("expected sfx track, got %v", tr.Type)
	}
	if tr.Volume != 0.7 {
		t.Errorf("expected volume 0.7, got %v", tr.Volume)
	}
}

func TestComposeDeterministic(t *testing.T) {
	dir := t.TempDir()
	img := writeAsset(t, dir, "a.png")

	scene := models.Scene{
		Order:    0,
		Duration: 6,
		Elements: []models.Element{
			{Type: models.ElementImage, AssetPath: img, Layer: 2, Opacity: 1},
			{Type: models.ElementText, Text: "hello", Layer: 1, Opacity: 1},
		},
	}

	c := testComposer()
	first, _, err := c.Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	second, _, err := c.Compose(context.Background(), scene, testSettings(), dir)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if len(first.Layers) != len(second.Layers) {
		t.Fatalf("element count differs between runs: %d vs %d", len(first.Layers), len(second.Layers))
	}
	if first.Duration != second.Duration {
		t.Errorf("duration differs between runs: %v vs %v", first.Duration, second.Duration)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("composing the same scene twice must yield identical clips")
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"#ffffff", true},
		{"000000", true},
		{"#12345", false},
		{"#gggggg", false},
		{"", false},
	}

	for _, tc := range cases {
		_, err := parseHexColor(tc.in)
		if tc.ok && err != nil {
			t.Errorf("parseHexColor(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("parseHexColor(%q) expected error", tc.in)
		}
	}
}
