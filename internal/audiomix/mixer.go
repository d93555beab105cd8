package audiomix

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

const (
	// Music sits under narration at half its configured volume whenever any
	// voice track is present. The factor must stay within [0.4, 0.7].
	musicDuckFactor = 0.5

	// An audio cue within this window of a scene boundary counts as an
	// alignment anchor.
	anchorTolerance = 0.5
)

// Mixer builds one mixed AudioClip covering the full timeline duration.
type Mixer struct {
	logger zerolog.Logger

	// DuckFactor scales music volume when voice tracks are present.
	DuckFactor float64
}

func NewMixer(logger zerolog.Logger) *Mixer {
	return &Mixer{logger: logger, DuckFactor: musicDuckFactor}
}

// Mix fits every track to the target duration, applies fades, volume, and
// voice-over-music ducking, and composites the groups into one clip clamped
// to targetDuration. The returned segments are fresh values derived from the
// input tracks, so the duck factor can never compound across calls.
func (m *Mixer) Mix(tracks []models.AudioTrack, targetDuration float64) (models.AudioClip, error) {
	if targetDuration <= 0 {
		return models.AudioClip{}, fmt.Errorf("target duration must be positive, got %v", targetDuration)
	}

	hasVoice := false
	for _, tr := range tracks {
		if tr.Type == models.TrackVoice {
			hasVoice = true
			break
		}
	}

	clip := models.AudioClip{Duration: targetDuration}
	for _, tr := range tracks {
		seg, ok := m.fitTrack(tr, targetDuration)
		if !ok {
			continue
		}

		if tr.Type == models.TrackMusic && hasVoice {
			seg.Volume *= m.DuckFactor
		}

		clip.Segments = append(clip.Segments, seg)
	}

	// Deterministic segment order: by start, voice before music before sfx.
	sort.SliceStable(clip.Segments, func(i, j int) bool {
		a, b := clip.Segments[i], clip.Segments[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return trackRank(a.Track) < trackRank(b.Track)
	})

	return clip, nil
}

// fitTrack reconciles one track's length against the target window:
// longer tracks are trimmed; shorter background/looping tracks are looped
// then trimmed; everything is clamped so no segment outlives the timeline.
func (m *Mixer) fitTrack(tr models.AudioTrack, target float64) (models.AudioSegment, bool) {
	window := target - tr.StartTime
	if window <= 0 {
		m.logger.Warn().
			Str("source", tr.Source).
			Float64("start", tr.StartTime).
			Float64("target", target).
			Msg("track starts at or past timeline end, dropped")
		return models.AudioSegment{}, false
	}

	seg := models.AudioSegment{
		Source:  tr.Source,
		Track:   tr.Type,
		Start:   tr.StartTime,
		Volume:  tr.Volume,
		FadeIn:  tr.FadeIn,
		FadeOut: tr.FadeOut,
	}

	natural := tr.Duration
	switch {
	case natural <= 0 && (tr.Loop || tr.IsBackground):
		// Unknown length but must cover the window: loop indefinitely and
		// rely on the duration clamp downstream.
		seg.Loops = models.LoopIndefinite
		seg.Duration = window
	case natural <= 0:
		// Unknown/fit-to-target length: play until the window closes.
		seg.Duration = window
	case natural > window:
		seg.Duration = window
	case natural < window && (tr.Loop || tr.IsBackground):
		seg.Loops = int(math.Ceil(window/natural)) - 1
		seg.Duration = window
	default:
		seg.Duration = natural
	}

	if seg.FadeIn > seg.Duration {
		seg.FadeIn = seg.Duration
	}
	if seg.FadeOut > seg.Duration {
		seg.FadeOut = seg.Duration
	}

	return seg, true
}

// Anchors runs the advisory alignment heuristic: for each scene boundary, the
// nearest audio cue within the tolerance window becomes a soft anchor. No
// audio is modified; the result is metadata for downstream consumers.
func Anchors(syncPoints []models.SyncPoint, boundaries []float64) []models.Anchor {
	if len(syncPoints) == 0 || len(boundaries) == 0 {
		return nil
	}

	var anchors []models.Anchor
	for _, b := range boundaries {
		best := -1
		bestDist := anchorTolerance
		for i, sp := range syncPoints {
			dist := math.Abs(sp.AudioCue - b)
			if dist <= bestDist {
				best = i
				bestDist = dist
			}
		}
		if best >= 0 {
			sp := syncPoints[best]
			anchors = append(anchors, models.Anchor{
				Boundary: b,
				Cue:      sp.AudioCue,
				Offset:   sp.AudioCue - b,
				Type:     sp.Type,
			})
		}
	}
	return anchors
}

func trackRank(t models.TrackType) int {
	switch t {
	case models.TrackVoice:
		return 0
	case models.TrackMusic:
		return 1
	default:
		return 2
	}
}
