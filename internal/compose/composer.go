package compose

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

// AssetMissingError marks a per-element failure: the element is skipped, the
// scene still composes, and the job keeps going.
type AssetMissingError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("asset %s unavailable after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *AssetMissingError) Unwrap() error { return e.Err }

// ElementOutcome records what happened to one element during composition.
// Skipped elements carry the AssetMissingError; accepted audio elements carry
// the track lifted into the mix (start time relative to the scene).
type ElementOutcome struct {
	Index   int
	Type    models.ElementType
	Skipped bool
	Err     error
	Track   *models.AudioTrack
}

// Composer builds one declarative VisualClip per scene.
type Composer struct {
	logger zerolog.Logger

	// Transient asset lookups are retried with exponential backoff before an
	// element is declared missing.
	Retries    int
	RetryDelay time.Duration
}

func NewComposer(logger zerolog.Logger) *Composer {
	return &Composer{
		logger:     logger,
		Retries:    3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Compose builds the clip for one scene: a background sized to the settings
// resolution plus the scene's elements layered in ascending layer order.
// Elements whose assets cannot be resolved are skipped, never fatal.
// Gradient backgrounds are rasterized into workDir.
func (c *Composer) Compose(ctx context.Context, scene models.Scene, settings models.Settings, workDir string) (models.VisualClip, []ElementOutcome, error) {
	clip := models.VisualClip{
		SceneOrder: scene.Order,
		Duration:   scene.Duration,
		Title:      scene.Title,
	}

	switch scene.Background.Type {
	case models.BackgroundGradient:
		path, err := renderGradientBackground(scene, settings, workDir)
		if err != nil {
			return models.VisualClip{}, nil, fmt.Errorf("failed to render gradient background for scene %d: %w", scene.Order, err)
		}
		clip.BackgroundPath = path
	default:
		color := scene.Background.Color
		if color == "" {
			color = settings.BackgroundColor
		}
		clip.BackgroundColor = color
	}

	// Stable layering: ascending layer order, submission order breaks ties.
	elements := make([]indexedElement, len(scene.Elements))
	for i, el := range scene.Elements {
		elements[i] = indexedElement{index: i, el: el}
	}
	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].el.Layer < elements[j].el.Layer
	})

	outcomes := make([]ElementOutcome, 0, len(elements))
	for _, ie := range elements {
		outcome := c.composeElement(ctx, ie, scene, &clip)
		outcomes = append(outcomes, outcome)
		if outcome.Skipped {
			c.logger.Warn().
				Int("scene", scene.Order).
				Int("element", outcome.Index).
				Str("type", string(outcome.Type)).
				Err(outcome.Err).
				Msg("element skipped")
		}
	}

	return clip, outcomes, nil
}

type indexedElement struct {
	index int
	el    models.Element
}

func (c *Composer) composeElement(ctx context.Context, ie indexedElement, scene models.Scene, clip *models.VisualClip) ElementOutcome {
	el := ie.el
	outcome := ElementOutcome{Index: ie.index, Type: el.Type}

	switch el.Type {
	case models.ElementText:
		clip.Layers = append(clip.Layers, models.Layer{
			Kind:     models.ElementText,
			Text:     el.Text,
			Style:    el.Style,
			X:        el.X,
			Y:        el.Y,
			Width:    el.Width,
			Height:   el.Height,
			Rotation: el.Rotation,
			Opacity:  el.Opacity,
			FadeIn:   fadeOrZero(el.FadeIn),
			FadeOut:  fadeOrZero(el.FadeOut),
			Z:        el.Layer,
		})

	case models.ElementImage, models.ElementVideo:
		if err := c.resolveAsset(ctx, el.AssetPath); err != nil {
			outcome.Skipped = true
			outcome.Err = err
			return outcome
		}
		clip.Layers = append(clip.Layers, models.Layer{
			Kind:     el.Type,
			Source:   el.AssetPath,
			X:        el.X,
			Y:        el.Y,
			Width:    el.Width,
			Height:   el.Height,
			Rotation: el.Rotation,
			Opacity:  el.Opacity,
			FadeIn:   fadeOrDefault(el.FadeIn),
			FadeOut:  fadeOrDefault(el.FadeOut),
			Z:        el.Layer,
		})

	case models.ElementAudio:
		if err := c.resolveAsset(ctx, el.AssetPath); err != nil {
			outcome.Skipped = true
			outcome.Err = err
			return outcome
		}
		// Scene-scoped audio joins the mix as a sound effect. The orchestrator
		// shifts StartTime by the scene's position on the assembled timeline.
		outcome.Track = &models.AudioTrack{
			Source:   el.AssetPath,
			Duration: scene.Duration,
			Volume:   el.Opacity, // opacity doubles as level for audio elements
			Type:     models.TrackSFX,
		}
	}

	return outcome
}

// resolveAsset checks that the asset exists, retrying transient failures with
// exponential backoff before giving up.
func (c *Composer) resolveAsset(ctx context.Context, path string) error {
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			delay := c.RetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return &AssetMissingError{Path: path, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				lastErr = fmt.Errorf("%s is a directory", path)
				break
			}
			return nil
		}
		lastErr = err
	}
	return &AssetMissingError{Path: path, Attempts: c.Retries + 1, Err: lastErr}
}

func fadeOrDefault(f *float64) float64 {
	if f == nil {
		return models.DefaultElementFade
	}
	return *f
}

func fadeOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
