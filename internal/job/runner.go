package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/workspace"
)

// Pipeline stage interfaces. The concrete implementations live in the
// ffmpeg, audio, and recognize packages; the Runner only needs these
// slices of them.
type (
	toolchainFn    func(ctx context.Context) (ffmpeg.State, error)
	connectivityFn func(ctx context.Context) error

	transcoder interface {
		Transcode(ctx context.Context, in media.File, ws *workspace.Workspace) (string, error)
	}

	chunker interface {
		Split(ctx context.Context, ffmpegPath, waveformPath string, ws *workspace.Workspace) ([]audio.Chunk, error)
	}

	chunkWorker interface {
		Run(ctx context.Context, language string, chunks []Chunk) (int, error)
	}
)

// Request describes one transcription job.
type Request struct {
	InputPath string
	Language  string // BCP-47 tag, empty for auto-detect.
}

// Result is the outcome of a completed pipeline run.
type Result struct {
	Text        string
	Chunks      []Chunk
	ChunksDone  int
	ChunksTotal int
	Elapsed     time.Duration
}

// Runner executes the transcription pipeline for one request: validate,
// ensure the toolchain, convert, chunk, recognize, aggregate. Every
// intermediate file lives in a per-job workspace that is removed when the
// run ends, whatever the outcome.
type Runner struct {
	ensureToolchain   toolchainFn
	checkConnectivity connectivityFn
	transcoder        transcoder
	chunker           chunker
	worker            chunkWorker
	aggregator        *Aggregator
	tempBase          string
	bus               *EventBus
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithToolchain overrides the toolchain bootstrap function.
func WithToolchain(fn toolchainFn) RunnerOption {
	return func(r *Runner) { r.ensureToolchain = fn }
}

// WithConnectivityCheck overrides the network preflight.
func WithConnectivityCheck(fn connectivityFn) RunnerOption {
	return func(r *Runner) { r.checkConnectivity = fn }
}

// WithTranscoder overrides the waveform converter.
func WithTranscoder(t transcoder) RunnerOption {
	return func(r *Runner) { r.transcoder = t }
}

// WithChunker overrides the waveform splitter.
func WithChunker(c chunker) RunnerOption {
	return func(r *Runner) { r.chunker = c }
}

// WithAggregator overrides the result aggregator.
func WithAggregator(a *Aggregator) RunnerOption {
	return func(r *Runner) { r.aggregator = a }
}

// WithTempBase places job workspaces under dir instead of the system
// temp directory.
func WithTempBase(dir string) RunnerOption {
	return func(r *Runner) { r.tempBase = dir }
}

// WithEventBus publishes progress events to bus.
func WithEventBus(bus *EventBus) RunnerOption {
	return func(r *Runner) { r.bus = bus }
}

// NewRunner wires a pipeline around a recognition worker. Defaults cover
// the remaining stages.
func NewRunner(worker chunkWorker, opts ...RunnerOption) *Runner {
	r := &Runner{
		ensureToolchain: ffmpeg.EnsureReady,
		worker:          worker,
		aggregator:      NewAggregator(DefaultFailureTolerance),
		bus:             NewEventBus(defaultEventHistory),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transcoder == nil {
		r.transcoder = audio.NewTranscoder()
	}
	if r.chunker == nil {
		r.chunker = audio.NewChunker(audio.DefaultChunkDuration)
	}
	return r
}

// Events exposes the runner's event bus for subscribers.
func (r *Runner) Events() *EventBus {
	return r.bus
}

func (r *Runner) status(s Status) {
	r.bus.Publish(Event{Type: EventStatus, Status: s})
}

func (r *Runner) message(format string, args ...any) {
	r.bus.Publish(Event{Type: EventMessage, Message: fmt.Sprintf(format, args...)})
}

// Run executes the pipeline. Cancellation via ctx surfaces as ErrCancelled
// and discards all intermediate output.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	result, err := r.run(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.status(StatusCancelled)
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		r.status(StatusFailed)
		return nil, err
	}

	result.Elapsed = time.Since(start)
	r.status(StatusCompleted)
	return result, nil
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	in, err := media.Validate(req.InputPath)
	if err != nil {
		return nil, err
	}
	r.message("input: %s (%s)", in.Path, in.Category)

	state, err := r.ensureToolchain(ctx)
	if err != nil {
		return nil, err
	}

	if r.checkConnectivity != nil {
		if err := r.checkConnectivity(ctx); err != nil {
			return nil, err
		}
	}

	ws, err := workspace.New(r.tempBase)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.Cleanup() }()

	r.status(StatusConverting)
	waveform, err := r.transcoder.Transcode(ctx, in, ws)
	if err != nil {
		return nil, err
	}

	r.status(StatusChunking)
	segments, err := r.chunker.Split(ctx, state.Path, waveform, ws)
	if err != nil {
		return nil, err
	}
	r.message("split into %d chunks", len(segments))

	chunks := make([]Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = Chunk{Chunk: seg, Status: ChunkPending}
	}

	r.status(StatusRecognizing)
	done, err := r.worker.Run(ctx, req.Language, chunks)
	if err != nil {
		return nil, err
	}

	r.status(StatusAggregating)
	text, err := r.aggregator.Aggregate(chunks)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:        text,
		Chunks:      chunks,
		ChunksDone:  done,
		ChunksTotal: len(chunks),
	}, nil
}
