package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/cli"
	"github.com/mhjang/speech2text/internal/config"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/job"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/recognize"
	"github.com/mhjang/speech2text/internal/workspace"
)

// fakeConfigLoader returns a fixed config.
type fakeConfigLoader struct {
	cfg config.Config
	err error
}

func (f *fakeConfigLoader) Load() (config.Config, error) {
	return f.cfg, f.err
}

// fakeToolchain reports a scripted toolchain state.
type fakeToolchain struct {
	state ffmpeg.State
	err   error
	calls int
}

func (f *fakeToolchain) EnsureReady(context.Context) (ffmpeg.State, error) {
	f.calls++
	return f.state, f.err
}

func (f *fakeToolchain) State() ffmpeg.State {
	return f.state
}

func readyToolchain() *fakeToolchain {
	return &fakeToolchain{state: ffmpeg.State{Status: ffmpeg.StatusReady, Path: "/usr/bin/ffmpeg"}}
}

// scriptedRecognizer returns text keyed by chunk file name.
type scriptedRecognizer struct {
	texts    map[string]string
	errs     map[string]error
	language string
}

func (s *scriptedRecognizer) Recognize(_ context.Context, chunkPath, language string) (string, error) {
	s.language = language
	name := filepath.Base(chunkPath)
	if err, ok := s.errs[name]; ok {
		return "", err
	}
	if text, ok := s.texts[name]; ok {
		return text, nil
	}
	return "", recognize.ErrUnintelligible
}

// fakeRecognizerFactory hands out a scripted recognizer.
type fakeRecognizerFactory struct {
	recognizer recognize.Recognizer
	err        error
	backend    string
}

func (f *fakeRecognizerFactory) New(backend string) (recognize.Recognizer, error) {
	f.backend = backend
	if f.err != nil {
		return nil, f.err
	}
	return f.recognizer, nil
}

// stubTranscoder produces a waveform file without running ffmpeg.
type stubTranscoder struct{}

func (stubTranscoder) Transcode(_ context.Context, _ media.File, ws *workspace.Workspace) (string, error) {
	path := filepath.Join(ws.Dir(), "waveform.wav")
	ws.Register(path)
	if err := os.WriteFile(path, []byte("wav"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// stubChunker produces n chunk records without running ffmpeg.
type stubChunker struct{ n int }

func (s stubChunker) Split(_ context.Context, _, _ string, ws *workspace.Workspace) ([]audio.Chunk, error) {
	chunks := make([]audio.Chunk, s.n)
	for i := range chunks {
		path := filepath.Join(ws.Dir(), chunkName(i))
		ws.Register(path)
		if err := os.WriteFile(path, []byte("flac"), 0o644); err != nil {
			return nil, err
		}
		chunks[i] = audio.Chunk{
			Path:  path,
			Index: i,
			Start: time.Duration(i) * time.Minute,
			End:   time.Duration(i+1) * time.Minute,
		}
	}
	return chunks, nil
}

func chunkName(i int) string {
	return [...]string{"chunk_000.flac", "chunk_001.flac", "chunk_002.flac", "chunk_003.flac", "chunk_004.flac"}[i]
}

// testEnv wires an Env around fakes with the real config loader replaced.
func testEnv(t *testing.T, rec recognize.Recognizer, chunks int, opts ...cli.EnvOption) (*cli.Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	base := []cli.EnvOption{
		cli.WithStdout(&stdout),
		cli.WithStderr(&stderr),
		cli.WithGetenv(func(string) string { return "" }),
		cli.WithConfigLoader(&fakeConfigLoader{}),
		cli.WithToolchain(readyToolchain()),
		cli.WithConnectivity(func(context.Context) error { return nil }),
		cli.WithRecognizerFactory(&fakeRecognizerFactory{recognizer: rec}),
		cli.WithRunnerOptions(
			job.WithTranscoder(stubTranscoder{}),
			job.WithChunker(stubChunker{n: chunks}),
			job.WithTempBase(t.TempDir()),
		),
	}
	return cli.NewEnv(append(base, opts...)...), &stdout, &stderr
}

// writeInput creates a small valid media file and returns its path.
func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs a cobra command with args and returns the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd.ExecuteContext(context.Background())
}
