package encode

import (
	"fmt"
	"strings"

	"github.com/clipforge/renderd/internal/models"
)

// BuildArgs translates a RenderSpec into one ffmpeg invocation: inputs for
// every background, visual layer, and audio segment, a filter_complex wiring
// them together, and the output options. Construction is pure so it can be
// unit-tested without ffmpeg installed.
func BuildArgs(spec models.RenderSpec, outputPath string) []string {
	b := newGraphBuilder(spec)

	args := b.inputArgs()
	args = append(args, "-filter_complex", b.filterGraph())
	args = append(args, "-map", "["+b.videoLabel+"]")
	if b.audioLabel != "" {
		args = append(args,
			"-map", "["+b.audioLabel+"]",
			"-c:a", "aac",
			"-b:a", "192k",
		)
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", spec.Settings.FPS),
		"-t", formatSeconds(spec.TotalDuration),
		"-y",
		outputPath,
	)
	return args
}

type graphBuilder struct {
	spec models.RenderSpec

	inputs []inputSpec
	// input index of each clip's background and of each layer, per clip
	bgInput    []int
	layerInput [][]int
	audioInput []int

	videoLabel string
	audioLabel string
}

type inputSpec struct {
	opts []string
	url  string
}

func newGraphBuilder(spec models.RenderSpec) *graphBuilder {
	b := &graphBuilder{spec: spec}

	for _, clip := range spec.Clips {
		b.bgInput = append(b.bgInput, len(b.inputs))
		if clip.BackgroundPath != "" {
			b.inputs = append(b.inputs, inputSpec{
				opts: []string{"-loop", "1", "-t", formatSeconds(clip.Duration), "-framerate", fmt.Sprintf("%d", spec.Settings.FPS)},
				url:  clip.BackgroundPath,
			})
		} else {
			b.inputs = append(b.inputs, inputSpec{
				opts: []string{"-f", "lavfi", "-t", formatSeconds(clip.Duration)},
				url: fmt.Sprintf("color=c=%s:s=%dx%d:r=%d",
					hexToFFmpeg(clip.BackgroundColor), spec.Settings.Width, spec.Settings.Height, spec.Settings.FPS),
			})
		}

		layerIdx := make([]int, len(clip.Layers))
		for i, layer := range clip.Layers {
			switch layer.Kind {
			case models.ElementImage:
				layerIdx[i] = len(b.inputs)
				b.inputs = append(b.inputs, inputSpec{
					opts: []string{"-loop", "1", "-t", formatSeconds(clip.Duration)},
					url:  layer.Source,
				})
			case models.ElementVideo:
				layerIdx[i] = len(b.inputs)
				b.inputs = append(b.inputs, inputSpec{
					opts: []string{"-t", formatSeconds(clip.Duration)},
					url:  layer.Source,
				})
			default:
				layerIdx[i] = -1 // text renders via drawtext, no input
			}
		}
		b.layerInput = append(b.layerInput, layerIdx)
	}

	for _, seg := range spec.Audio.Segments {
		b.audioInput = append(b.audioInput, len(b.inputs))
		in := inputSpec{url: seg.Source}
		if seg.Loops != 0 {
			// LoopIndefinite maps to ffmpeg's -stream_loop -1; the atrim
			// clamp bounds the output either way.
			in.opts = []string{"-stream_loop", fmt.Sprintf("%d", seg.Loops)}
		}
		b.inputs = append(b.inputs, in)
	}

	return b
}

func (b *graphBuilder) inputArgs() []string {
	var args []string
	for _, in := range b.inputs {
		args = append(args, in.opts...)
		args = append(args, "-i", in.url)
	}
	return args
}

func (b *graphBuilder) filterGraph() string {
	var chains []string

	// One composed stream per clip
	clipLabels := make([]string, len(b.spec.Clips))
	for ci, clip := range b.spec.Clips {
		label := b.buildClipChain(ci, clip, &chains)
		clipLabels[ci] = label
	}

	// Crossfade chain joining consecutive clips at the assembler's offsets
	b.videoLabel = clipLabels[0]
	for i, tr := range b.spec.Transitions {
		out := fmt.Sprintf("x%d", i)
		chains = append(chains, fmt.Sprintf(
			"[%s][%s]xfade=transition=fade:duration=%s:offset=%s[%s]",
			b.videoLabel, clipLabels[i+1], formatSeconds(tr.Duration), formatSeconds(tr.Offset), out))
		b.videoLabel = out
	}

	// Audio: fit, shape, and mix every segment, then clamp to the timeline
	if n := len(b.spec.Audio.Segments); n > 0 {
		segLabels := make([]string, n)
		for i, seg := range b.spec.Audio.Segments {
			label := fmt.Sprintf("a%d", i)
			chains = append(chains, b.buildSegmentChain(i, seg, label))
			segLabels[i] = label
		}

		b.audioLabel = "aout"
		if n == 1 {
			chains = append(chains, fmt.Sprintf("[%s]atrim=duration=%s[%s]",
				segLabels[0], formatSeconds(b.spec.Audio.Duration), b.audioLabel))
		} else {
			chains = append(chains, fmt.Sprintf(
				"[%s]amix=inputs=%d:duration=longest:dropout_transition=3,atrim=duration=%s[%s]",
				strings.Join(segLabels, "]["), n, formatSeconds(b.spec.Audio.Duration), b.audioLabel))
		}
	}

	return strings.Join(chains, ";")
}

// buildClipChain scales the background, overlays each visual layer in z
// order, and draws text layers, returning the clip's output label.
func (b *graphBuilder) buildClipChain(ci int, clip models.TimedClip, chains *[]string) string {
	s := b.spec.Settings
	cur := fmt.Sprintf("c%dbg", ci)
	*chains = append(*chains, fmt.Sprintf("[%d:v]scale=%d:%d,setsar=1[%s]",
		b.bgInput[ci], s.Width, s.Height, cur))

	for li, layer := range clip.Layers {
		switch layer.Kind {
		case models.ElementImage, models.ElementVideo:
			prepared := fmt.Sprintf("c%dl%d", ci, li)
			*chains = append(*chains, fmt.Sprintf("[%d:v]%s[%s]",
				b.layerInput[ci][li], layerFilter(layer, clip.Duration), prepared))

			out := fmt.Sprintf("c%do%d", ci, li)
			*chains = append(*chains, fmt.Sprintf("[%s][%s]overlay=%s:%s[%s]",
				cur, prepared, formatSeconds(layer.X), formatSeconds(layer.Y), out))
			cur = out

		case models.ElementText:
			out := fmt.Sprintf("c%do%d", ci, li)
			*chains = append(*chains, fmt.Sprintf("[%s]%s[%s]", cur, drawtextFilter(layer), out))
			cur = out
		}
	}

	return cur
}

// layerFilter prepares one image/video layer: sizing, optional rotation and
// opacity, and alpha fades at the layer's edges.
func layerFilter(layer models.Layer, clipDuration float64) string {
	var parts []string

	if layer.Width > 0 && layer.Height > 0 {
		parts = append(parts, fmt.Sprintf("scale=%d:%d", int(layer.Width), int(layer.Height)))
	}
	parts = append(parts, "format=rgba")
	if layer.Rotation != 0 {
		parts = append(parts, fmt.Sprintf("rotate=%s*PI/180:c=none", formatSeconds(layer.Rotation)))
	}
	if layer.Opacity > 0 && layer.Opacity < 1 {
		parts = append(parts, fmt.Sprintf("colorchannelmixer=aa=%s", formatSeconds(layer.Opacity)))
	}
	if layer.FadeIn > 0 {
		parts = append(parts, fmt.Sprintf("fade=t=in:st=0:d=%s:alpha=1", formatSeconds(layer.FadeIn)))
	}
	if layer.FadeOut > 0 {
		parts = append(parts, fmt.Sprintf("fade=t=out:st=%s:d=%s:alpha=1",
			formatSeconds(clipDuration-layer.FadeOut), formatSeconds(layer.FadeOut)))
	}

	return strings.Join(parts, ",")
}

// drawtextFilter renders a text layer with optional stroke and drop shadow.
func drawtextFilter(layer models.Layer) string {
	parts := []string{
		fmt.Sprintf("drawtext=text='%s'", escapeFilterText(layer.Text)),
		fmt.Sprintf("x=%s", formatSeconds(layer.X)),
		fmt.Sprintf("y=%s", formatSeconds(layer.Y)),
	}

	style := layer.Style
	if style.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("fontsize=%d", style.FontSize))
	}
	if style.Color != "" {
		parts = append(parts, fmt.Sprintf("fontcolor=%s", hexToFFmpeg(style.Color)))
	}
	if style.StrokeWidth > 0 {
		parts = append(parts, fmt.Sprintf("borderw=%d", style.StrokeWidth))
		if style.StrokeColor != "" {
			parts = append(parts, fmt.Sprintf("bordercolor=%s", hexToFFmpeg(style.StrokeColor)))
		}
	}
	if style.ShadowOffset > 0 {
		off := formatSeconds(style.ShadowOffset)
		parts = append(parts, fmt.Sprintf("shadowx=%s", off), fmt.Sprintf("shadowy=%s", off))
		if style.ShadowColor != "" {
			parts = append(parts, fmt.Sprintf("shadowcolor=%s", hexToFFmpeg(style.ShadowColor)))
		}
	}

	return strings.Join(parts, ":")
}

// buildSegmentChain shapes one audio segment: trim to the fitted duration,
// volume, edge fades, and placement delay.
func (b *graphBuilder) buildSegmentChain(i int, seg models.AudioSegment, label string) string {
	parts := []string{
		fmt.Sprintf("atrim=duration=%s", formatSeconds(seg.Duration)),
		"asetpts=PTS-STARTPTS",
		fmt.Sprintf("volume=%s", formatSeconds(seg.Volume)),
	}
	if seg.FadeIn > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=in:st=0:d=%s", formatSeconds(seg.FadeIn)))
	}
	if seg.FadeOut > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=out:st=%s:d=%s",
			formatSeconds(seg.Duration-seg.FadeOut), formatSeconds(seg.FadeOut)))
	}
	if seg.Start > 0 {
		ms := int(seg.Start * 1000)
		parts = append(parts, fmt.Sprintf("adelay=%d|%d", ms, ms))
	}

	return fmt.Sprintf("[%d:a]%s[%s]", b.audioInput[i], strings.Join(parts, ","), label)
}

// formatSeconds renders a float without trailing noise (3 -> "3", 2.5 -> "2.5").
func formatSeconds(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// hexToFFmpeg converts "#rrggbb" to ffmpeg's 0xrrggbb color syntax.
func hexToFFmpeg(hex string) string {
	if strings.HasPrefix(hex, "#") {
		return "0x" + hex[1:]
	}
	return hex
}

// escapeFilterText escapes the characters ffmpeg filter strings treat
// specially inside drawtext values.
func escapeFilterText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "'", "'\\''")
	return s
}
