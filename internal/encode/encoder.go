package encode

import (
	"context"
	"fmt"

	"github.com/clipforge/renderd/internal/models"
)

// EncodeResult is the metadata reported for a finished render.
type EncodeResult struct {
	Duration float64 // seconds
	FileSize int64   // bytes
}

// EncodeError is fatal for the owning job; encoder failures are never
// auto-retried.
type EncodeError struct {
	Output string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode to %s failed: %v", e.Output, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encoder turns a fully-assembled render spec into an encoded file. Encoding
// is blocking and CPU-bound; scheduling is the orchestrator's problem.
type Encoder interface {
	Encode(ctx context.Context, spec models.RenderSpec, outputPath string) (EncodeResult, error)
}
