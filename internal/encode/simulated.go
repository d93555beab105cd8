package encode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

// SimulatedEncoder stands in for ffmpeg when no real encode is wanted:
// development boxes without ffmpeg, and tests. It writes the render spec as a
// placeholder file and reports metadata derived from the spec.
type SimulatedEncoder struct {
	logger zerolog.Logger

	// Delay stretches the encode so tests can observe in-flight behavior.
	Delay time.Duration

	// Fail, when set, is returned after the placeholder file is written,
	// leaving a partial output behind the way a broken encode would.
	Fail error
}

func NewSimulatedEncoder(logger zerolog.Logger) *SimulatedEncoder {
	return &SimulatedEncoder{logger: logger}
}

func (e *SimulatedEncoder) Encode(ctx context.Context, spec models.RenderSpec, outputPath string) (EncodeResult, error) {
	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return EncodeResult{}, &EncodeError{Output: outputPath, Err: ctx.Err()}
		case <-time.After(e.Delay):
		}
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return EncodeResult{}, &EncodeError{Output: outputPath, Err: err}
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return EncodeResult{}, &EncodeError{Output: outputPath, Err: fmt.Errorf("failed to write output: %w", err)}
	}

	if e.Fail != nil {
		return EncodeResult{}, &EncodeError{Output: outputPath, Err: e.Fail}
	}

	e.logger.Info().
		Str("output", outputPath).
		Float64("duration", spec.TotalDuration).
		Msg("simulated encode complete")

	return EncodeResult{Duration: spec.TotalDuration, FileSize: int64(len(data))}, nil
}
