package encode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

// FFmpegEncoder shells out to ffmpeg with the filter graph built from the
// render spec, then reads back the result metadata with ffprobe.
type FFmpegEncoder struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

func NewFFmpegEncoder(logger zerolog.Logger, ffmpegPath, ffprobePath string) *FFmpegEncoder {
	return &FFmpegEncoder{
		logger:      logger,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, spec models.RenderSpec, outputPath string) (EncodeResult, error) {
	args := BuildArgs(spec, outputPath)

	e.logger.Info().
		Int("inputs", len(spec.Clips)+len(spec.Audio.Segments)).
		Float64("total", spec.TotalDuration).
		Str("output", outputPath).
		Msg("encoding")
	e.logger.Debug().Str("args", strings.Join(args, " ")).Msg("ffmpeg command")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return EncodeResult{}, &EncodeError{
			Output: outputPath,
			Err:    fmt.Errorf("%w: %s", err, tail(stderr.String(), 500)),
		}
	}

	duration, err := e.probeDuration(ctx, outputPath)
	if err != nil {
		// The file encoded; fall back to the spec's arithmetic.
		e.logger.Warn().Err(err).Msg("could not probe output duration")
		duration = spec.TotalDuration
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return EncodeResult{}, &EncodeError{Output: outputPath, Err: fmt.Errorf("output missing after encode: %w", err)}
	}

	return EncodeResult{Duration: duration, FileSize: info.Size()}, nil
}

// probeDuration returns the container duration in seconds.
func (e *FFmpegEncoder) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// tail keeps the last maxLen characters of ffmpeg's stderr, which is where
// the actionable error lives.
func tail(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
