// Package audio normalizes input media into the canonical waveform and
// splits it into bounded-duration chunks for recognition.
package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/workspace"
)

// Canonical waveform parameters, chosen to match the recognition
// service's expected input.
const (
	sampleRate = 16000
	channels   = 1
	pcmCodec   = "pcm_s16le"

	waveformName = "waveform.wav"
)

// outputTail bounds the ffmpeg diagnostic output carried in errors.
const outputTail = 800

// Transcoder converts validated input media into the canonical waveform:
// mono, fixed sample rate, signed 16-bit PCM.
type Transcoder struct {
	toolchain func() ffmpeg.State
	cmd       commandRunner
	statter   fileStatter
}

// TranscoderOption configures a Transcoder.
type TranscoderOption func(*Transcoder)

// WithTranscoderCommandRunner sets the command runner (for testing).
func WithTranscoderCommandRunner(r commandRunner) TranscoderOption {
	return func(t *Transcoder) { t.cmd = r }
}

// WithTranscoderStatter sets the file statter (for testing).
func WithTranscoderStatter(s fileStatter) TranscoderOption {
	return func(t *Transcoder) { t.statter = s }
}

// WithToolchainState sets the toolchain state source (for testing).
func WithToolchainState(fn func() ffmpeg.State) TranscoderOption {
	return func(t *Transcoder) { t.toolchain = fn }
}

// NewTranscoder creates a Transcoder gated on the process-wide toolchain state.
func NewTranscoder(opts ...TranscoderOption) *Transcoder {
	t := &Transcoder{
		toolchain: ffmpeg.CurrentState,
		cmd:       execRunner{},
		statter:   osFileStatter{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcode converts the input into the canonical waveform inside the
// workspace. The output path is registered with the workspace before the
// conversion runs, so a downstream failure still results in its cleanup.
// Fails fast with ffmpeg.ErrNotReady when the toolchain is not Ready.
func (t *Transcoder) Transcode(ctx context.Context, in media.File, ws *workspace.Workspace) (string, error) {
	state := t.toolchain()
	if state.Status != ffmpeg.StatusReady {
		return "", fmt.Errorf("%w: toolchain state is %s", ffmpeg.ErrNotReady, state.Status)
	}

	outPath := filepath.Join(ws.Dir(), waveformName)
	ws.Register(outPath)

	args := []string{
		"-y",
		"-i", in.Path,
		"-vn", // drop any video stream
		"-acodec", pcmCodec,
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channels),
		outPath,
	}

	output, err := t.cmd.RunOutput(ctx, state.Path, args)
	if err != nil {
		return "", fmt.Errorf("%w: %v\nOutput: %s", ErrConversionFailed, err, tail(output))
	}

	// FFmpeg can exit zero without writing output in rare cases
	// (e.g. inputs with no audio stream).
	if _, err := t.statter.Stat(outPath); err != nil {
		return "", fmt.Errorf("%w: %s\nOutput: %s", ErrWaveformNotFound, outPath, tail(output))
	}

	return outPath, nil
}

// tail returns the last outputTail bytes of s for diagnostics.
func tail(s string) string {
	if len(s) <= outputTail {
		return s
	}
	return "..." + s[len(s)-outputTail:]
}
