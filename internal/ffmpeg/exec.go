package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
)

// RunOutput executes the ffmpeg binary and captures its stderr, where
// ffmpeg writes probe info and progress. The captured output is returned
// even when the command fails: duration probes exit non-zero while still
// printing what the caller needs, so the exit error is left for the
// caller to interpret alongside the output.
func RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	// #nosec G204 -- path and args are assembled by the pipeline, not user input
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}
