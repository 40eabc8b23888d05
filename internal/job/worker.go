package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mhjang/speech2text/internal/apierr"
	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/recognize"
)

// MaxRecommendedParallel is the upper limit for concurrent recognition
// requests. Higher values trigger rate limiting.
const MaxRecommendedParallel = 10

// Chunk pairs an audio segment with its recognition outcome.
type Chunk struct {
	audio.Chunk

	Status ChunkStatus
	Text   string
	Err    error
}

// Worker runs recognition over a job's chunks.
//
// Chunks are submitted in index order. The default is one request at a
// time; WithParallel allows a bounded number in flight, and results still
// land at their chunk's index. A chunk that fails after retries is marked
// ChunkFailed and the job moves on; errors that affect every chunk alike
// (auth, quota) abort the run.
type Worker struct {
	recognizer recognize.Recognizer
	policy     apierr.Policy
	parallel   int
	notify     func(Event)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p apierr.Policy) WorkerOption {
	return func(w *Worker) { w.policy = p }
}

// WithParallel allows up to n recognition requests in flight. Values
// outside [1, MaxRecommendedParallel] are clamped.
func WithParallel(n int) WorkerOption {
	return func(w *Worker) {
		if n < 1 {
			n = 1
		}
		if n > MaxRecommendedParallel {
			n = MaxRecommendedParallel
		}
		w.parallel = n
	}
}

// WithNotify sets a per-chunk progress callback.
func WithNotify(fn func(Event)) WorkerOption {
	return func(w *Worker) { w.notify = fn }
}

// NewWorker creates a Worker around a recognition backend.
func NewWorker(r recognize.Recognizer, opts ...WorkerOption) *Worker {
	w := &Worker{
		recognizer: r,
		policy:     apierr.DefaultPolicy(),
		parallel:   1,
		notify:     func(Event) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// fatal reports errors that no amount of per-chunk retrying will fix.
// A dropped connection is not one of them: it is retried like any other
// transient failure, and on exhaustion only that chunk is marked failed.
func fatal(err error) bool {
	return errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrQuotaExceeded)
}

// Run recognizes every chunk. It mutates the slice in place and returns
// the number of chunks that produced text. Cancellation stops further
// submissions and surfaces as ctx.Err.
func (w *Worker) Run(ctx context.Context, language string, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if w.parallel > 1 {
		return w.runParallel(ctx, language, chunks)
	}
	return w.runSequential(ctx, language, chunks)
}

func (w *Worker) runSequential(ctx context.Context, language string, chunks []Chunk) (int, error) {
	done := 0
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := w.recognizeOne(ctx, language, &chunks[i], len(chunks), &done); err != nil {
			return done, err
		}
	}
	return done, nil
}

func (w *Worker) runParallel(ctx context.Context, language string, chunks []Chunk) (int, error) {
	var mu sync.Mutex
	done := 0

	sem := make(chan struct{}, w.parallel)
	g, ctx := errgroup.WithContext(ctx)

	for i := range chunks {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			return w.recognizeOneLocked(ctx, language, &chunks[i], len(chunks), &done, &mu)
		})
	}

	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return done, err
}

func (w *Worker) recognizeOne(ctx context.Context, language string, c *Chunk, total int, done *int) error {
	var noLock sync.Mutex
	return w.recognizeOneLocked(ctx, language, c, total, done, &noLock)
}

func (w *Worker) recognizeOneLocked(ctx context.Context, language string, c *Chunk, total int, done *int, mu *sync.Mutex) error {
	w.setChunk(c, ChunkProcessing, total, done, mu)

	text, err := apierr.Do(ctx, w.policy, func() (string, error) {
		return w.recognizer.Recognize(ctx, c.Path, language)
	}, apierr.Retryable)

	switch {
	case err == nil:
		mu.Lock()
		c.Text = text
		mu.Unlock()
		w.setChunk(c, ChunkDone, total, done, mu)
		return nil

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err

	case fatal(err):
		mu.Lock()
		c.Status = ChunkFailed
		c.Err = err
		mu.Unlock()
		return fmt.Errorf("chunk %d (%s): %w", c.Index, filepath.Base(c.Path), err)

	default:
		mu.Lock()
		c.Err = err
		mu.Unlock()
		w.setChunk(c, ChunkFailed, total, done, mu)
		return nil
	}
}

func (w *Worker) setChunk(c *Chunk, status ChunkStatus, total int, done *int, mu *sync.Mutex) {
	mu.Lock()
	c.Status = status
	if status == ChunkDone {
		*done++
	}
	snapshot := Event{
		Type:        EventChunk,
		ChunkIndex:  c.Index,
		ChunkStatus: status,
		ChunksDone:  *done,
		ChunksTotal: total,
	}
	mu.Unlock()

	w.notify(snapshot)
}
