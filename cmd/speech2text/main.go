package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mhjang/speech2text/internal/apierr"
	"github.com/mhjang/speech2text/internal/audio"
	"github.com/mhjang/speech2text/internal/cli"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/job"
	"github.com/mhjang/speech2text/internal/lang"
	"github.com/mhjang/speech2text/internal/media"
	"github.com/mhjang/speech2text/internal/recognize"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitSetup       = 3
	ExitValidation  = 4
	ExitRecognition = 5
	ExitInterrupt   = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "speech2text",
		Short:   "Transcribe audio and video files to text",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.SetupCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt / cancellation.
	if errors.Is(err, context.Canceled) || errors.Is(err, job.ErrCancelled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotReady) || errors.Is(err, ffmpeg.ErrInstallFailed) ||
		errors.Is(err, ffmpeg.ErrVerifyFailed) || errors.Is(err, ffmpeg.ErrUnsupportedPlatform) ||
		errors.Is(err, ffmpeg.ErrChecksumMismatch) || errors.Is(err, ffmpeg.ErrDownloadFailed) ||
		errors.Is(err, recognize.ErrAPIKeyMissing) || errors.Is(err, recognize.ErrUnknownBackend) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, media.ErrFileNotFound) || errors.Is(err, media.ErrFileNotReadable) ||
		errors.Is(err, media.ErrFileTooLarge) ||
		errors.Is(err, media.ErrUnsupportedFormat) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, audio.ErrConversionFailed) ||
		errors.Is(err, audio.ErrWaveformNotFound) || errors.Is(err, audio.ErrChunkingFailed) {
		return ExitValidation
	}

	// Recognition errors (ExitRecognition = 5).
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrNetworkUnavailable) || errors.Is(err, job.ErrAllChunksFailed) ||
		errors.Is(err, job.ErrTooManyFailures) {
		return ExitRecognition
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"if any flags in the group",
	"accepts ",
	"requires at least",
	"requires at most",
	"unknown command",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
