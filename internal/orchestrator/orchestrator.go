// Package orchestrator owns the render job lifecycle: submission, queueing,
// the staged pipeline each worker runs, progress reporting, cancellation, and
// cleanup.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/clipforge/renderd/internal/assemble"
	"github.com/clipforge/renderd/internal/audiomix"
	"github.com/clipforge/renderd/internal/compose"
	"github.com/clipforge/renderd/internal/encode"
	"github.com/clipforge/renderd/internal/gateway"
	"github.com/clipforge/renderd/internal/models"
	"github.com/clipforge/renderd/internal/notify"
	"github.com/clipforge/renderd/internal/queue"
	"github.com/clipforge/renderd/internal/workspace"
)

var errCancelled = errors.New("cancelled")

const dequeueWait = 2 * time.Second

// Progress milestones reported as the pipeline advances.
const (
	progressStarted   = 10
	progressComposed  = 30
	progressMixed     = 50
	progressAssembled = 90
)

// Orchestrator wires the pipeline stages together and runs the worker pool.
type Orchestrator struct {
	queue      queue.Queue
	gateway    gateway.Gateway
	notifier   notify.Notifier
	composer   *compose.Composer
	mixer      *audiomix.Mixer
	assembler  *assemble.Assembler
	encoder    encode.Encoder
	workspaces *workspace.Manager
	registry   *registry

	// encodeSem bounds concurrent encoder invocations separately from the
	// worker count; encoding is the CPU-heavy stage.
	encodeSem *semaphore.Weighted

	concurrency int
	jobTimeout  time.Duration
	defaults    func(*models.Settings)
	logger      zerolog.Logger
}

type Options struct {
	Queue       queue.Queue
	Gateway     gateway.Gateway
	Notifier    notify.Notifier
	Encoder     encode.Encoder
	Workspaces  *workspace.Manager
	Concurrency int
	// MaxConcurrentEncodes caps simultaneous encoder invocations across the
	// pool; 0 means one encode per worker.
	MaxConcurrentEncodes int
	JobTimeout           time.Duration
	// Defaults, when set, fills unset submission settings before the
	// built-in defaults apply.
	Defaults func(*models.Settings)
	Logger   zerolog.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 15 * time.Minute
	}
	if opts.MaxConcurrentEncodes <= 0 {
		opts.MaxConcurrentEncodes = opts.Concurrency
	}
	return &Orchestrator{
		queue:       opts.Queue,
		gateway:     opts.Gateway,
		notifier:    opts.Notifier,
		composer:    compose.NewComposer(opts.Logger),
		mixer:       audiomix.NewMixer(opts.Logger),
		assembler:   assemble.NewAssembler(opts.Logger),
		encoder:     opts.Encoder,
		workspaces:  opts.Workspaces,
		registry:    newRegistry(),
		encodeSem:   semaphore.NewWeighted(int64(opts.MaxConcurrentEncodes)),
		concurrency: opts.Concurrency,
		jobTimeout:  opts.JobTimeout,
		defaults:    opts.Defaults,
		logger:      opts.Logger,
	}
}

func (o *Orchestrator) applyDefaults(timeline *models.Timeline) {
	if o.defaults != nil {
		o.defaults(&timeline.Settings)
	}
	timeline.ApplyDefaults()
}

// Submit validates a timeline, registers the job, and enqueues it. The
// returned job is in the queued state; rendering happens asynchronously.
func (o *Orchestrator) Submit(ctx context.Context, timeline models.Timeline) (*models.RenderJob, error) {
	o.applyDefaults(&timeline)
	if err := timeline.Validate(); err != nil {
		return nil, err
	}

	job := models.RenderJob{
		ID:        uuid.New(),
		OwnerID:   timeline.OwnerID,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
	}

	o.registry.add(job)
	if err := o.gateway.CreateJob(ctx, &job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	if err := o.queue.Enqueue(ctx, &queue.Job{ID: job.ID, Timeline: timeline, CreatedAt: job.CreatedAt}); err != nil {
		o.registry.fail(job.ID, "failed to enqueue")
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	o.logger.Info().Str("job_id", job.ID.String()).Int("scenes", len(timeline.Scenes)).Msg("job submitted")
	return &job, nil
}

// Status returns the current lifecycle snapshot for a job, preferring the
// live in-memory view and falling back to durable storage.
func (o *Orchestrator) Status(ctx context.Context, id uuid.UUID) (models.StatusResponse, error) {
	if job, ok := o.registry.get(id); ok {
		return models.StatusFromJob(job), nil
	}
	job, err := o.gateway.GetJob(ctx, id)
	if err != nil {
		return models.StatusResponse{}, err
	}
	return models.StatusFromJob(*job), nil
}

// Cancel requests cooperative cancellation. The pipeline notices at the next
// stage boundary; terminal jobs cannot be cancelled.
func (o *Orchestrator) Cancel(id uuid.UUID) error {
	if !o.registry.requestCancel(id) {
		return fmt.Errorf("job not found or already finished")
	}
	o.logger.Info().Str("job_id", id.String()).Msg("cancellation requested")
	return nil
}

// QueueLength reports how many submissions are waiting for a worker.
func (o *Orchestrator) QueueLength(ctx context.Context) (int64, error) {
	return o.queue.Length(ctx)
}

// ListJobs returns recent jobs from durable storage, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context, limit int) ([]models.RenderJob, error) {
	return o.gateway.ListJobs(ctx, limit)
}

// Start runs the worker pool until ctx is cancelled. In-flight jobs finish
// their current render before the pool drains.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info().Int("workers", o.concurrency).Msg("starting render workers")

	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			o.workerLoop(ctx, n)
		}(i)
	}
	wg.Wait()
}

func (o *Orchestrator) workerLoop(ctx context.Context, n int) {
	log := o.logger.With().Int("worker", n).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := o.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		o.process(ctx, job)
	}
}

// process runs one job through the full pipeline. Every exit path removes the
// job's workspace; failure paths also remove any partial output.
func (o *Orchestrator) process(ctx context.Context, qjob *queue.Job) {
	log := o.logger.With().Str("job_id", qjob.ID.String()).Logger()
	o.ensureRegistered(ctx, qjob)

	timeline := qjob.Timeline
	o.applyDefaults(&timeline)
	if err := timeline.Validate(); err != nil {
		o.failJob(ctx, qjob.ID, err.Error(), "", nil)
		return
	}

	ws, err := o.workspaces.Create(qjob.ID)
	if err != nil {
		o.failJob(ctx, qjob.ID, fmt.Sprintf("failed to create workspace: %v", err), "", nil)
		return
	}

	outputPath := o.workspaces.OutputPath(qjob.ID)
	tctx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	defer cancel()

	o.progress(qjob.ID, models.StatusGenerating, progressStarted)
	log.Info().Int("scenes", len(timeline.Scenes)).Msg("render started")

	result, warnings, err := o.render(tctx, qjob.ID, timeline, ws, outputPath)
	if err != nil {
		o.failJob(ctx, qjob.ID, classifyError(err), outputPath, ws)
		return
	}

	ws.Remove()
	o.registry.complete(qjob.ID, outputPath, result.Duration, result.FileSize, warnings)
	if gerr := o.gateway.MarkComplete(ctx, qjob.ID, outputPath, result.Duration, result.FileSize, warnings); gerr != nil {
		log.Error().Err(gerr).Msg("failed to persist completion")
	}
	o.notifier.OnComplete(qjob.ID, outputPath)
	log.Info().
		Float64("duration", result.Duration).
		Int64("file_size", result.FileSize).
		Int("warnings", len(warnings)).
		Msg("render complete")
}

// render executes the pipeline stages in order, checking the cancel flag at
// each boundary.
func (o *Orchestrator) render(ctx context.Context, id uuid.UUID, timeline models.Timeline, ws *workspace.Workspace, outputPath string) (encode.EncodeResult, []string, error) {
	settings := timeline.Settings

	// Validation guarantees orders are unique and contiguous; the slice
	// itself may arrive in any order.
	scenes := append([]models.Scene(nil), timeline.Scenes...)
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Order < scenes[j].Order })

	durations := make([]float64, len(scenes))
	for i, sc := range scenes {
		durations[i] = sc.Duration
	}
	boundaries := assemble.Boundaries(durations, settings.TransitionDuration)
	total := assemble.TotalDuration(durations, settings.TransitionDuration)

	sceneStart := func(order int) float64 {
		if order == 0 {
			return 0
		}
		return boundaries[order-1]
	}

	// Stage 1: compose every scene concurrently, results kept in order.
	clips := make([]models.VisualClip, len(scenes))
	outcomes := make([][]compose.ElementOutcome, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			clip, out, err := o.composer.Compose(gctx, scene, settings, ws.Dir)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.Order, err)
			}
			clips[i], outcomes[i] = clip, out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return encode.EncodeResult{}, nil, err
	}
	if o.registry.isCancelled(id) {
		return encode.EncodeResult{}, nil, errCancelled
	}

	// Collect skip warnings and lift scene-scoped audio into the global mix.
	var warnings []string
	tracks := append([]models.AudioTrack(nil), timeline.AudioTracks...)
	for i, sceneOut := range outcomes {
		for _, out := range sceneOut {
			if out.Skipped {
				warnings = append(warnings, fmt.Sprintf("scene %d element %d skipped: %v",
					scenes[i].Order, out.Index, out.Err))
			}
			if out.Track != nil {
				tr := *out.Track
				tr.StartTime += sceneStart(scenes[i].Order)
				tracks = append(tracks, tr)
			}
		}
	}
	if settings.BackgroundMusic != "" {
		tracks = append(tracks, models.AudioTrack{
			ID:           "background-music",
			Source:       settings.BackgroundMusic,
			Type:         models.TrackMusic,
			Volume:       1.0,
			Loop:         true,
			IsBackground: true,
		})
	}
	o.progress(id, models.StatusGenerating, progressComposed)

	// Stage 2: mix audio and derive advisory sync anchors.
	audio, err := o.mixer.Mix(tracks, total)
	if err != nil {
		return encode.EncodeResult{}, warnings, fmt.Errorf("audio mix: %w", err)
	}
	anchors := audiomix.Anchors(timeline.SyncPoints, boundaries)
	if o.registry.isCancelled(id) {
		return encode.EncodeResult{}, warnings, errCancelled
	}
	o.progress(id, models.StatusGenerating, progressMixed)

	// Stage 3: assemble the full timeline.
	spec, err := o.assembler.Assemble(clips, audio, settings)
	if err != nil {
		return encode.EncodeResult{}, warnings, fmt.Errorf("assemble: %w", err)
	}
	spec.Anchors = anchors
	if o.registry.isCancelled(id) {
		return encode.EncodeResult{}, warnings, errCancelled
	}
	o.progress(id, models.StatusGenerating, progressAssembled)

	// Stage 4: encode. The deadline still applies but a cancel request no
	// longer interrupts a render this far along.
	if err := o.encodeSem.Acquire(ctx, 1); err != nil {
		return encode.EncodeResult{}, warnings, err
	}
	defer o.encodeSem.Release(1)

	result, err := o.encoder.Encode(ctx, spec, outputPath)
	if err != nil {
		return encode.EncodeResult{}, warnings, err
	}

	return result, warnings, nil
}

// ensureRegistered covers jobs pushed onto the queue by external producers
// that never went through Submit.
func (o *Orchestrator) ensureRegistered(ctx context.Context, qjob *queue.Job) {
	if _, ok := o.registry.get(qjob.ID); ok {
		return
	}
	job := models.RenderJob{
		ID:        qjob.ID,
		OwnerID:   qjob.Timeline.OwnerID,
		Status:    models.StatusQueued,
		CreatedAt: qjob.CreatedAt,
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	o.registry.add(job)
	if err := o.gateway.CreateJob(ctx, &job); err != nil {
		o.logger.Warn().Err(err).Str("job_id", qjob.ID.String()).Msg("failed to record external job")
	}
}

func (o *Orchestrator) progress(id uuid.UUID, status models.JobStatus, pct int) {
	o.registry.setProgress(id, status, pct)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.gateway.UpdateProgress(ctx, id, status, pct); err != nil {
		o.logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to persist progress")
	}
	o.notifier.OnProgress(id, status, pct)
}

// failJob records the failure everywhere and removes partial artifacts.
func (o *Orchestrator) failJob(ctx context.Context, id uuid.UUID, message, outputPath string, ws *workspace.Workspace) {
	if ws != nil {
		ws.Remove()
	}
	if outputPath != "" {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			o.logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to remove partial output")
		}
	}

	o.registry.fail(id, message)
	if err := o.gateway.MarkFailed(context.WithoutCancel(ctx), id, message); err != nil {
		o.logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to persist failure")
	}
	o.notifier.OnFailed(id, message)
	o.logger.Warn().Str("job_id", id.String()).Str("error", message).Msg("job failed")
}

// classifyError maps pipeline errors to the user-facing failure message.
func classifyError(err error) string {
	switch {
	case errors.Is(err, errCancelled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "render timeout exceeded"
	default:
		return err.Error()
	}
}
