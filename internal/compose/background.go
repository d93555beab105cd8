package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/clipforge/renderd/internal/models"
)

// Gradients are rasterized at a narrow base width and scaled up to the target
// resolution; a vertical two-stop gradient loses nothing at low horizontal
// resolution and CatmullRom keeps the ramp smooth.
const gradientBaseWidth = 16

// renderGradientBackground writes the scene's gradient as a PNG into workDir
// and returns its path. The filename is keyed by scene order so re-composing
// the same scene overwrites rather than accumulates.
func renderGradientBackground(scene models.Scene, settings models.Settings, workDir string) (string, error) {
	start, err := parseHexColor(scene.Background.GradientStart)
	if err != nil {
		return "", fmt.Errorf("bad gradient start: %w", err)
	}
	end, err := parseHexColor(scene.Background.GradientEnd)
	if err != nil {
		return "", fmt.Errorf("bad gradient end: %w", err)
	}

	// A 1px-high target has no ramp; avoid dividing by zero.
	span := float64(settings.Height - 1)
	if span < 1 {
		span = 1
	}

	base := image.NewRGBA(image.Rect(0, 0, gradientBaseWidth, settings.Height))
	for y := 0; y < settings.Height; y++ {
		t := float64(y) / span
		c := lerpColor(start, end, t)
		for x := 0; x < gradientBaseWidth; x++ {
			base.SetRGBA(x, y, c)
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, settings.Width, settings.Height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), base, base.Bounds(), draw.Src, nil)

	path := filepath.Join(workDir, fmt.Sprintf("scene_%d_bg.png", scene.Order))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create background file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, scaled); err != nil {
		return "", fmt.Errorf("failed to encode background: %w", err)
	}
	return path, nil
}

// parseHexColor parses "#rrggbb" (or "rrggbb") into an opaque RGBA color.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("expected #rrggbb, got %q", s)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("expected #rrggbb, got %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: 0xff,
	}
}
