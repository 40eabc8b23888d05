package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/job"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/workspace"
)

func TestEventBusSince(t *testing.T) {
	bus := job.NewEventBus(10)
	bus.Publish(job.Event{Type: job.EventMessage, Message: "1"})
	second := bus.Publish(job.Event{Type: job.EventMessage, Message: "2"})
	bus.Publish(job.Event{Type: job.EventMessage, Message: "3"})

	events := bus.Since(second.Seq)
	if len(events) != 1 || events[0].Message != "3" {
		t.Fatalf("Since() = %+v, want only event 3", events)
	}
}

func TestEventBusCapsHistory(t *testing.T) {
	bus := job.NewEventBus(2)
	bus.Publish(job.Event{Message: "1"})
	bus.Publish(job.Event{Message: "2"})
	bus.Publish(job.Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("history length = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Errorf("oldest event was not trimmed: %+v", events)
	}
}

func TestEventBusPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := job.NewEventBus(10)
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	// Nobody reads ch; the second publish must not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(job.Event{Message: "1"})
		bus.Publish(job.Event{Message: "2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}

	// The first event is still delivered.
	select {
	case e := <-ch:
		if e.Message != "1" {
			t.Errorf("delivered event = %q", e.Message)
		}
	default:
		t.Error("subscriber channel is empty")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to job.Status
		want     bool
	}{
		{job.StatusPending, job.StatusConverting, true},
		{job.StatusConverting, job.StatusChunking, true},
		{job.StatusChunking, job.StatusRecognizing, true},
		{job.StatusRecognizing, job.StatusAggregating, true},
		{job.StatusAggregating, job.StatusCompleted, true},
		{job.StatusPending, job.StatusRecognizing, false},
		{job.StatusConverting, job.StatusCompleted, false},
		{job.StatusRecognizing, job.StatusFailed, true},
		{job.StatusChunking, job.StatusCancelled, true},
		{job.StatusCompleted, job.StatusConverting, false},
		{job.StatusFailed, job.StatusFailed, false},
	}

	for _, tt := range tests {
		err := job.Transition(tt.from, tt.to)
		if tt.want && err != nil {
			t.Errorf("Transition(%s, %s) = %v, want nil", tt.from, tt.to, err)
		}
		if !tt.want && !errors.Is(err, job.ErrInvalidTransition) {
			t.Errorf("Transition(%s, %s) = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestStatusStrings(t *testing.T) {
	if job.StatusRecognizing.String() != "recognizing" {
		t.Errorf("StatusRecognizing = %q", job.StatusRecognizing)
	}
	if !job.StatusCancelled.Terminal() {
		t.Error("StatusCancelled should be terminal")
	}
	if job.StatusConverting.Terminal() {
		t.Error("StatusConverting should not be terminal")
	}
}

// Pipeline fakes.

type fakeTranscoder struct {
	waveform string
	err      error
}

func (f *fakeTranscoder) Transcode(_ context.Context, _ media.File, ws *workspace.Workspace) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(ws.Dir(), "waveform.wav")
	ws.Register(path)
	_ = os.WriteFile(path, []byte("wav"), 0o644)
	return path, nil
}

type fakeChunker struct {
	n   int
	err error
}

func (f *fakeChunker) Split(_ context.Context, _, _ string, ws *workspace.Workspace) ([]audio.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	chunks := make([]audio.Chunk, f.n)
	for i := range chunks {
		path := filepath.Join(ws.Dir(), "chunk.flac")
		chunks[i] = audio.Chunk{
			Path:  path,
			Index: i,
			Start: time.Duration(i) * time.Minute,
			End:   time.Duration(i+1) * time.Minute,
		}
	}
	return chunks, nil
}

type fakeWorker struct {
	run func(ctx context.Context, chunks []job.Chunk) (int, error)
}

func (f *fakeWorker) Run(ctx context.Context, _ string, chunks []job.Chunk) (int, error) {
	if f.run != nil {
		return f.run(ctx, chunks)
	}
	for i := range chunks {
		chunks[i].Status = job.ChunkDone
		chunks[i].Text = "text"
	}
	return len(chunks), nil
}

func readyToolchain(context.Context) (ffmpeg.State, error) {
	return ffmpeg.State{Status: ffmpeg.StatusReady, Path: "/usr/bin/ffmpeg"}, nil
}

func testInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRunner(worker *fakeWorker, opts ...job.RunnerOption) *job.Runner {
	base := []job.RunnerOption{
		job.WithToolchain(readyToolchain),
		job.WithConnectivityCheck(func(context.Context) error { return nil }),
		job.WithTranscoder(&fakeTranscoder{}),
		job.WithChunker(&fakeChunker{n: 3}),
	}
	return job.NewRunner(worker, append(base, opts...)...)
}

func TestRunnerHappyPath(t *testing.T) {
	r := newTestRunner(&fakeWorker{}, job.WithTempBase(t.TempDir()))

	result, err := r.Run(context.Background(), job.Request{InputPath: testInput(t)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "text text text" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.ChunksDone != 3 || result.ChunksTotal != 3 {
		t.Errorf("progress = %d/%d", result.ChunksDone, result.ChunksTotal)
	}

	var statuses []job.Status
	for _, e := range r.Events().Since(0) {
		if e.Type == job.EventStatus {
			statuses = append(statuses, e.Status)
		}
	}
	want := []job.Status{
		job.StatusConverting, job.StatusChunking,
		job.StatusRecognizing, job.StatusAggregating, job.StatusCompleted,
	}
	if len(statuses) != len(want) {
		t.Fatalf("status events = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("status %d = %s, want %s", i, statuses[i], want[i])
		}
	}
}

func TestRunnerCleansWorkspace(t *testing.T) {
	base := t.TempDir()
	r := newTestRunner(&fakeWorker{}, job.WithTempBase(base))

	if _, err := r.Run(context.Background(), job.Request{InputPath: testInput(t)}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace left behind: %v", entries)
	}
}

func TestRunnerRejectsInvalidInput(t *testing.T) {
	r := newTestRunner(&fakeWorker{})

	_, err := r.Run(context.Background(), job.Request{InputPath: "/nonexistent.mp3"})
	if !errors.Is(err, media.ErrFileNotFound) {
		t.Fatalf("error = %v, want ErrFileNotFound", err)
	}
}

func TestRunnerToolchainFailureSurfaces(t *testing.T) {
	r := newTestRunner(&fakeWorker{}, job.WithToolchain(
		func(context.Context) (ffmpeg.State, error) {
			return ffmpeg.State{Status: ffmpeg.StatusUnavailable}, ffmpeg.ErrNotReady
		}))

	_, err := r.Run(context.Background(), job.Request{InputPath: testInput(t)})
	if !errors.Is(err, ffmpeg.ErrNotReady) {
		t.Fatalf("error = %v, want ErrNotReady", err)
	}
}

func TestRunnerCancellation(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	worker := &fakeWorker{
		run: func(ctx context.Context, chunks []job.Chunk) (int, error) {
			chunks[0].Status = job.ChunkDone
			chunks[0].Text = "partial"
			cancel()
			return 1, ctx.Err()
		},
	}
	r := newTestRunner(worker, job.WithTempBase(base))

	_, err := r.Run(ctx, job.Request{InputPath: testInput(t)})
	if !errors.Is(err, job.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}

	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Errorf("cancelled job left files behind: %v", entries)
	}

	events := r.Events().Since(0)
	last := events[len(events)-1]
	if last.Type != job.EventStatus || last.Status != job.StatusCancelled {
		t.Errorf("final event = %+v, want cancelled status", last)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := job.NewManager()
	r := newTestRunner(&fakeWorker{}, job.WithTempBase(t.TempDir()))

	id, err := m.Start(context.Background(), r, job.Request{InputPath: testInput(t)})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if id == "" {
		t.Error("Start() returned empty job ID")
	}

	final, err := m.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if final.Status != job.StatusCompleted {
		t.Errorf("final status = %s, want completed", final.Status)
	}
	if final.Result == nil || final.Result.Text == "" {
		t.Error("final job carries no result")
	}
	if final.ID != id {
		t.Errorf("job ID changed: %s != %s", final.ID, id)
	}
}

func TestManagerRejectsConcurrentStart(t *testing.T) {
	m := job.NewManager()

	started := make(chan struct{})
	release := make(chan struct{})
	worker := &fakeWorker{
		run: func(ctx context.Context, chunks []job.Chunk) (int, error) {
			close(started)
			<-release
			return 0, ctx.Err()
		},
	}
	r := newTestRunner(worker, job.WithTempBase(t.TempDir()))

	if _, err := m.Start(context.Background(), r, job.Request{InputPath: testInput(t)}); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	<-started

	_, err := m.Start(context.Background(), r, job.Request{InputPath: testInput(t)})
	if !errors.Is(err, job.ErrJobRunning) {
		t.Errorf("second Start() error = %v, want ErrJobRunning", err)
	}

	close(release)
	if _, err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestManagerCancel(t *testing.T) {
	m := job.NewManager()

	started := make(chan struct{})
	worker := &fakeWorker{
		run: func(ctx context.Context, chunks []job.Chunk) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}
	r := newTestRunner(worker, job.WithTempBase(t.TempDir()))

	if _, err := m.Start(context.Background(), r, job.Request{InputPath: testInput(t)}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	final, err := m.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if final.Status != job.StatusCancelled {
		t.Errorf("final status = %s, want cancelled", final.Status)
	}
	if !errors.Is(final.Err, job.ErrCancelled) {
		t.Errorf("final err = %v, want ErrCancelled", final.Err)
	}
}

func TestManagerCancelWithoutJob(t *testing.T) {
	m := job.NewManager()
	if err := m.Cancel(); !errors.Is(err, job.ErrNoJob) {
		t.Errorf("Cancel() error = %v, want ErrNoJob", err)
	}
}
