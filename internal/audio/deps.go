package audio

import (
	"context"
	"os"

	"github.com/mhjang/speech2text/internal/ffmpeg"
)

// commandRunner executes the ffmpeg binary and returns its diagnostic output.
type commandRunner interface {
	RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// --- Default implementations using real OS functions ---

// execRunner implements commandRunner on the shared ffmpeg executor.
type execRunner struct{}

func (execRunner) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return ffmpeg.RunOutput(ctx, ffmpegPath, args)
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
