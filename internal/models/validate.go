package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError rejects a malformed submission synchronously; no job is
// created when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid timeline: " + e.Message
	}
	return fmt.Sprintf("invalid timeline: %s: %s", e.Field, e.Message)
}

// validate is shared across calls; the validator caches struct metadata and is
// safe for concurrent use.
var validate = validator.New()

// Validate checks the submission before a job may be created. Call
// ApplyDefaults first so range checks see the effective values.
func (t *Timeline) Validate() error {
	if len(t.Scenes) == 0 {
		return &ValidationError{Field: "scenes", Message: "at least one scene is required"}
	}

	if err := validate.Struct(t); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return &ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return &ValidationError{Message: err.Error()}
	}

	// Scene order must be unique and contiguous starting at 0.
	seen := make(map[int]bool, len(t.Scenes))
	for _, sc := range t.Scenes {
		if sc.Order < 0 || sc.Order >= len(t.Scenes) {
			return &ValidationError{
				Field:   "scenes",
				Message: fmt.Sprintf("scene order %d out of range for %d scenes", sc.Order, len(t.Scenes)),
			}
		}
		if seen[sc.Order] {
			return &ValidationError{
				Field:   "scenes",
				Message: fmt.Sprintf("duplicate scene order %d", sc.Order),
			}
		}
		seen[sc.Order] = true
	}

	for _, sc := range t.Scenes {
		if sc.Background.Type == BackgroundGradient &&
			(sc.Background.GradientStart == "" || sc.Background.GradientEnd == "") {
			return &ValidationError{
				Field:   "scenes",
				Message: fmt.Sprintf("scene %d gradient background needs both stops", sc.Order),
			}
		}
		for i, el := range sc.Elements {
			switch el.Type {
			case ElementText:
				if el.Text == "" {
					return &ValidationError{
						Field:   "elements",
						Message: fmt.Sprintf("scene %d element %d: text element without text", sc.Order, i),
					}
				}
			default:
				if el.AssetPath == "" {
					return &ValidationError{
						Field:   "elements",
						Message: fmt.Sprintf("scene %d element %d: %s element without asset path", sc.Order, i, el.Type),
					}
				}
			}
		}
	}

	// When narration is supplied there must be exactly one voice track per
	// scene. Timelines with no voice tracks at all are allowed.
	voiceCount := 0
	for _, tr := range t.AudioTracks {
		if tr.Type == TrackVoice {
			voiceCount++
		}
	}
	if voiceCount > 0 && voiceCount != len(t.Scenes) {
		return &ValidationError{
			Field:   "audio_tracks",
			Message: fmt.Sprintf("narration count %d does not match scene count %d", voiceCount, len(t.Scenes)),
		}
	}

	// Transitions consume tail time from every scene except the last; a scene
	// shorter than the transition would assemble to a non-positive duration.
	if len(t.Scenes) > 1 {
		for _, sc := range t.Scenes {
			if sc.Order < len(t.Scenes)-1 && sc.Duration <= t.Settings.TransitionDuration {
				return &ValidationError{
					Field:   "scenes",
					Message: fmt.Sprintf("scene %d duration %.2fs not longer than transition %.2fs", sc.Order, sc.Duration, t.Settings.TransitionDuration),
				}
			}
		}
	}

	return nil
}
