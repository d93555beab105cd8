package assemble

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

// Assembler concatenates composed scene clips with crossfade transitions and
// attaches the mixed audio, producing the RenderSpec the encoder consumes.
type Assembler struct {
	logger zerolog.Logger
}

func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// TotalDuration computes the assembled timeline length for the given scene
// durations: sum(d_i) - (N-1)*transition for N > 1, the plain sum otherwise.
func TotalDuration(durations []float64, transition float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}
	if n := len(durations); n > 1 {
		total -= float64(n-1) * transition
	}
	return total
}

// Boundaries returns the start offset of each scene after the first on the
// assembled timeline; these are the scene-boundary timestamps the alignment
// heuristic anchors against.
func Boundaries(durations []float64, transition float64) []float64 {
	if len(durations) < 2 {
		return nil
	}
	boundaries := make([]float64, 0, len(durations)-1)
	offset := 0.0
	for _, d := range durations[:len(durations)-1] {
		offset += d - transition
		boundaries = append(boundaries, offset)
	}
	return boundaries
}

// Assemble joins the clips pairwise with a fixed-duration crossfade: each clip
// except the last gives up its tail to the transition, the next clip starts
// overlapped by the same amount, and the crossfade occupies the overlap
// window. The audio clip is attached clamped to the exact total duration.
func (a *Assembler) Assemble(clips []models.VisualClip, audio models.AudioClip, settings models.Settings) (models.RenderSpec, error) {
	if len(clips) == 0 {
		return models.RenderSpec{}, fmt.Errorf("no clips to assemble")
	}

	transition := settings.TransitionDuration
	for i, clip := range clips {
		if clip.Duration <= 0 {
			return models.RenderSpec{}, fmt.Errorf("clip %d has non-positive duration %v", i, clip.Duration)
		}
		if i < len(clips)-1 && len(clips) > 1 && clip.Duration <= transition {
			return models.RenderSpec{}, fmt.Errorf("clip %d duration %v not longer than transition %v", i, clip.Duration, transition)
		}
	}

	spec := models.RenderSpec{
		Settings: settings,
		Clips:    make([]models.TimedClip, 0, len(clips)),
	}

	offset := 0.0
	for i, clip := range clips {
		spec.Clips = append(spec.Clips, models.TimedClip{
			VisualClip: clip,
			Start:      offset,
		})

		if i < len(clips)-1 {
			next := offset + clip.Duration - transition
			spec.Transitions = append(spec.Transitions, models.Transition{
				FromScene: clip.SceneOrder,
				ToScene:   clips[i+1].SceneOrder,
				Offset:    next,
				Duration:  transition,
			})
			offset = next
		} else {
			offset += clip.Duration
		}
	}
	spec.TotalDuration = offset

	spec.Audio = clampAudio(audio, spec.TotalDuration)

	a.logger.Debug().
		Int("clips", len(spec.Clips)).
		Int("transitions", len(spec.Transitions)).
		Float64("total", spec.TotalDuration).
		Msg("timeline assembled")

	return spec, nil
}

// clampAudio trims the mixed clip so nothing outlives the assembled timeline.
func clampAudio(audio models.AudioClip, total float64) models.AudioClip {
	out := models.AudioClip{Duration: total}
	for _, seg := range audio.Segments {
		if seg.Start >= total {
			continue
		}
		if seg.Start+seg.Duration > total {
			seg.Duration = total - seg.Start
			if seg.FadeOut > seg.Duration {
				seg.FadeOut = seg.Duration
			}
			if seg.FadeIn > seg.Duration {
				seg.FadeIn = seg.Duration
			}
		}
		out.Segments = append(out.Segments, seg)
	}
	return out
}
