package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhjang/speech2text/internal/apierr"
	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/config"
	"github.com/mhjang/speech2text/internal/format"
	"github.com/mhjang/speech2text/internal/interrupt"
	"github.com/mhjang/speech2text/internal/job"
	"github.com/mhjang/speech2text/internal/lang"
	"github.com/mhjang/speech2text/internal/media"
)

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		output        string
		language      string
		backend       string
		chunkDuration time.Duration
		parallel      int
	)

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe an audio or video file to text",
		Long: `Transcribe an audio or video file to text.

The media file is converted to a mono 16 kHz waveform, split into
fixed-duration chunks, and each chunk is sent to the recognition service.
Chunks that cannot be recognized leave a timestamped gap marker in the
transcript. Files up to 500 MB are accepted.

Supported formats: ` + strings.Join(media.SupportedExtensions(), ", "),
		Example: `  speech2text transcribe lecture.mp3
  speech2text transcribe interview.mp4 -o interview-notes.txt
  speech2text transcribe podcast.m4a -l ko-KR
  speech2text transcribe meeting.wav --backend openai --parallel 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], output, language, backend, chunkDuration, parallel)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.txt)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Audio language (e.g. en, ko-KR); empty means auto-detect")
	cmd.Flags().StringVar(&backend, "backend", "", "Recognition backend: google, openai (default: google)")
	cmd.Flags().DurationVar(&chunkDuration, "chunk-duration", 0, "Chunk length (default: 60s)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Max concurrent recognition requests (default: 1)")

	return cmd
}

// runTranscribe executes the transcription pipeline.
// Validation order: input file -> language -> config -> backend -> output
func runTranscribe(cmd *cobra.Command, env *Env, inputPath, output, language, backend string, chunkDuration time.Duration, parallel int) error {
	// First Ctrl+C cancels the job gracefully; a second within the window
	// force quits.
	handler, ctx := interrupt.NewHandler(cmd.Context())
	defer handler.Stop()

	// === VALIDATION (fail-fast) ===

	in, err := media.Validate(inputPath)
	if err != nil {
		return err
	}

	if err := lang.Validate(language); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	if language == "" {
		language = cfg.Language
	}
	if backend == "" {
		backend = cfg.Backend
	}
	if chunkDuration == 0 && cfg.ChunkDuration > 0 {
		chunkDuration = cfg.ChunkDuration
	}
	if parallel == 0 && cfg.Parallel > 0 {
		parallel = cfg.Parallel
	}

	recognizer, err := env.RecognizerFactory.New(backend)
	if err != nil {
		return err
	}

	defaultOutput := deriveOutputPath(filepath.Base(inputPath))
	output = config.ResolveOutputPath(output, cfg.OutputDir, defaultOutput)
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	// === ASSEMBLY ===

	policy := apierr.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}

	bus := job.NewEventBus(0)
	workerOpts := []job.WorkerOption{
		job.WithRetryPolicy(policy),
		job.WithNotify(func(e job.Event) { bus.Publish(e) }),
	}
	if parallel > 1 {
		workerOpts = append(workerOpts, job.WithParallel(parallel))
	}
	worker := job.NewWorker(recognizer, workerOpts...)

	runnerOpts := []job.RunnerOption{
		job.WithEventBus(bus),
		job.WithToolchain(env.Toolchain.EnsureReady),
		job.WithConnectivityCheck(env.Connectivity),
		job.WithChunker(audio.NewChunker(chunkDuration)),
		job.WithAggregator(job.NewAggregator(cfg.FailureTolerance)),
	}
	runnerOpts = append(runnerOpts, env.RunnerOptions...)
	runner := job.NewRunner(worker, runnerOpts...)

	// === RUN ===

	fmt.Fprintf(env.Stderr, "Input: %s (%s, %s)\n",
		filepath.Base(in.Path), in.Category, format.Size(in.Size))

	events, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()

	manager := job.NewManager()
	if _, err := manager.Start(ctx, runner, job.Request{
		InputPath: in.Path,
		Language:  lang.Tag(language),
	}); err != nil {
		return err
	}

	printProgress(env, events, manager.Done())

	final, err := manager.Wait(ctx)
	if err != nil {
		return err
	}
	if final.Err != nil {
		return final.Err
	}

	// === WRITE OUTPUT ===

	if err := writeOutputFile(output, final.Result.Text); err != nil {
		return err
	}

	result := final.Result
	fmt.Fprintf(env.Stderr, "Done: %s (%d/%d chunks, %s)\n",
		output, result.ChunksDone, result.ChunksTotal,
		format.Duration(result.Elapsed))
	if failed := result.ChunksTotal - result.ChunksDone; failed > 0 {
		fmt.Fprintf(env.Stderr, "Warning: %d chunk(s) could not be recognized; see gap markers in the transcript\n", failed)
	}

	return nil
}

// printProgress renders job events to stderr until the job finishes.
func printProgress(env *Env, events <-chan job.Event, done <-chan struct{}) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			printEvent(env, e)
		case <-done:
			// Drain what is already buffered, then stop.
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					printEvent(env, e)
				default:
					return
				}
			}
		}
	}
}

func printEvent(env *Env, e job.Event) {
	switch e.Type {
	case job.EventStatus:
		switch e.Status {
		case job.StatusConverting:
			fmt.Fprintln(env.Stderr, "Converting to waveform...")
		case job.StatusChunking:
			fmt.Fprintln(env.Stderr, "Splitting audio...")
		case job.StatusRecognizing:
			fmt.Fprintln(env.Stderr, "Recognizing speech...")
		case job.StatusAggregating:
			fmt.Fprintln(env.Stderr, "Assembling transcript...")
		}
	case job.EventChunk:
		switch e.ChunkStatus {
		case job.ChunkDone:
			fmt.Fprintf(env.Stderr, "  [%d/%d] chunk %d recognized\n",
				e.ChunksDone, e.ChunksTotal, e.ChunkIndex)
		case job.ChunkFailed:
			fmt.Fprintf(env.Stderr, "  [%d/%d] chunk %d failed\n",
				e.ChunksDone, e.ChunksTotal, e.ChunkIndex)
		}
	case job.EventMessage:
		fmt.Fprintln(env.Stderr, e.Message)
	}
}
