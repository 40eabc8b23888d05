package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhjang/speech2text/internal/cli"
	"github.com/mhjang/speech2text/internal/config"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/lang"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/recognize"
)

func TestTranscribeWritesTranscript(t *testing.T) {
	rec := &scriptedRecognizer{texts: map[string]string{
		"chunk_000.flac": "hello",
		"chunk_001.flac": "world",
	}}
	env, _, stderr := testEnv(t, rec, 2)

	input := writeInput(t, "talk.mp3")
	output := filepath.Join(t.TempDir(), "talk.txt")

	if err := execute(t, cli.TranscribeCmd(env), input, "-o", output, "-l", "en-US"); err != nil {
		t.Fatalf("transcribe error = %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("transcript = %q", data)
	}
	if rec.language != "en-US" {
		t.Errorf("recognizer language = %q", rec.language)
	}
	if !strings.Contains(stderr.String(), "Done: ") {
		t.Errorf("stderr missing summary: %s", stderr.String())
	}
}

func TestTranscribePartialWarnsAndMarksGap(t *testing.T) {
	rec := &scriptedRecognizer{
		texts: map[string]string{
			"chunk_000.flac": "before",
			"chunk_002.flac": "after",
		},
		errs: map[string]error{"chunk_001.flac": recognize.ErrUnintelligible},
	}
	env, _, stderr := testEnv(t, rec, 3)

	input := writeInput(t, "talk.mp3")
	output := filepath.Join(t.TempDir(), "talk.txt")

	if err := execute(t, cli.TranscribeCmd(env), input, "-o", output); err != nil {
		t.Fatalf("transcribe error = %v", err)
	}

	data, _ := os.ReadFile(output)
	want := "before [unrecognized 01:00-02:00] after"
	if string(data) != want {
		t.Errorf("transcript = %q\nwant %q", data, want)
	}
	if !strings.Contains(stderr.String(), "could not be recognized") {
		t.Errorf("stderr missing partial warning: %s", stderr.String())
	}
}

func TestTranscribeRejectsUnsupportedFormat(t *testing.T) {
	env, _, _ := testEnv(t, &scriptedRecognizer{}, 1)
	input := writeInput(t, "notes.txt")

	err := execute(t, cli.TranscribeCmd(env), input)
	if !errors.Is(err, media.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTranscribeRejectsMissingFile(t *testing.T) {
	env, _, _ := testEnv(t, &scriptedRecognizer{}, 1)

	err := execute(t, cli.TranscribeCmd(env), "/nonexistent/talk.mp3")
	if !errors.Is(err, media.ErrFileNotFound) {
		t.Fatalf("error = %v, want ErrFileNotFound", err)
	}
}

func TestTranscribeRejectsInvalidLanguage(t *testing.T) {
	env, _, _ := testEnv(t, &scriptedRecognizer{}, 1)
	input := writeInput(t, "talk.mp3")

	err := execute(t, cli.TranscribeCmd(env), input, "-l", "klingon")
	if !errors.Is(err, lang.ErrInvalid) {
		t.Fatalf("error = %v, want lang.ErrInvalid", err)
	}
}

func TestTranscribeRejectsUnknownBackend(t *testing.T) {
	env, _, _ := testEnv(t, &scriptedRecognizer{}, 1,
		cli.WithRecognizerFactory(&fakeRecognizerFactory{err: recognize.ErrUnknownBackend}))
	input := writeInput(t, "talk.mp3")

	err := execute(t, cli.TranscribeCmd(env), input, "--backend", "azure")
	if !errors.Is(err, recognize.ErrUnknownBackend) {
		t.Fatalf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestTranscribeRefusesExistingOutput(t *testing.T) {
	env, _, _ := testEnv(t, &scriptedRecognizer{texts: map[string]string{"chunk_000.flac": "x"}}, 1)
	input := writeInput(t, "talk.mp3")

	output := filepath.Join(t.TempDir(), "exists.txt")
	if err := os.WriteFile(output, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, cli.TranscribeCmd(env), input, "-o", output)
	if !errors.Is(err, cli.ErrOutputExists) {
		t.Fatalf("error = %v, want ErrOutputExists", err)
	}
	data, _ := os.ReadFile(output)
	if string(data) != "old" {
		t.Error("existing output was overwritten")
	}
}

func TestTranscribeSurfacesToolchainFailure(t *testing.T) {
	broken := &fakeToolchain{
		state: ffmpeg.State{Status: ffmpeg.StatusUnavailable},
		err:   ffmpeg.ErrInstallFailed,
	}
	env, _, _ := testEnv(t, &scriptedRecognizer{}, 1, cli.WithToolchain(broken))
	input := writeInput(t, "talk.mp3")

	err := execute(t, cli.TranscribeCmd(env), input,
		"-o", filepath.Join(t.TempDir(), "out.txt"))
	if !errors.Is(err, ffmpeg.ErrInstallFailed) {
		t.Fatalf("error = %v, want ErrInstallFailed", err)
	}
}

func TestTranscribeUsesConfigDefaults(t *testing.T) {
	rec := &scriptedRecognizer{texts: map[string]string{"chunk_000.flac": "x"}}
	factory := &fakeRecognizerFactory{recognizer: rec}
	outDir := t.TempDir()

	env, _, _ := testEnv(t, rec, 1,
		cli.WithRecognizerFactory(factory),
		cli.WithConfigLoader(&fakeConfigLoader{cfg: config.Config{
			Backend:   "openai",
			Language:  "ko-KR",
			OutputDir: outDir,
		}}))
	input := writeInput(t, "talk.mp3")

	if err := execute(t, cli.TranscribeCmd(env), input); err != nil {
		t.Fatalf("transcribe error = %v", err)
	}

	if factory.backend != "openai" {
		t.Errorf("backend = %q, want config default", factory.backend)
	}
	if rec.language != "ko-KR" {
		t.Errorf("language = %q, want config default", rec.language)
	}
	if _, err := os.Stat(filepath.Join(outDir, "talk.txt")); err != nil {
		t.Errorf("output not in configured output-dir: %v", err)
	}
}

func TestTranscribeFlagOverridesConfig(t *testing.T) {
	rec := &scriptedRecognizer{texts: map[string]string{"chunk_000.flac": "x"}}
	factory := &fakeRecognizerFactory{recognizer: rec}

	env, _, _ := testEnv(t, rec, 1,
		cli.WithRecognizerFactory(factory),
		cli.WithConfigLoader(&fakeConfigLoader{cfg: config.Config{Backend: "openai"}}))
	input := writeInput(t, "talk.mp3")

	err := execute(t, cli.TranscribeCmd(env), input,
		"--backend", "google",
		"-o", filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("transcribe error = %v", err)
	}
	if factory.backend != "google" {
		t.Errorf("backend = %q, want flag value", factory.backend)
	}
}
