// Package ffmpeg bootstraps and runs the external media-conversion
// toolchain. The Bootstrapper owns a process-wide state machine:
//
//	Unknown -> Detecting -> {Ready | Missing}
//	Missing -> Installing -> Verifying -> {Ready | Unavailable}
//
// Once Ready, detection and installation are never repeated for the
// process lifetime. A failed attempt ends Unavailable; a later
// EnsureReady call restarts the machine from Unknown.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// binaryName is the base name of the ffmpeg binary.
	binaryName = "ffmpeg"

	// binaryExtWindows is the file extension for Windows executables.
	binaryExtWindows = ".exe"

	// envFFmpegPath overrides all detection when set.
	envFFmpegPath = "FFMPEG_PATH"

	// installDirPerm is the permission mode for the install directory.
	installDirPerm = 0750

	// minMajorVersion is the minimum supported ffmpeg version. Older
	// releases lack codec support we rely on for chunk extraction.
	minMajorVersion = 4

	// verifyTimeout bounds the version probe. Installation carries its
	// own, much longer timeouts (see download.go and install.go).
	verifyTimeout = 30 * time.Second
)

// candidatePaths lists fixed install locations probed during detection,
// beyond the application install dir and the search path.
func candidatePaths(goos, home string) []string {
	switch goos {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), "FFmpeg", "bin", "ffmpeg.exe"),
			filepath.Join(home, "ffmpeg", "bin", "ffmpeg.exe"),
		}
	default:
		return []string{
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/usr/bin/ffmpeg",
			filepath.Join(home, "bin", "ffmpeg"),
		}
	}
}

// Bootstrapper detects, installs, and verifies the ffmpeg binary.
// Shared by all jobs in the process; EnsureReady serializes bootstrap
// attempts while State stays queryable concurrently.
type Bootstrapper struct {
	reader fileReader
	writer fileWriter
	http   httpDoer
	env    envProvider
	cmd    commandRunner
	stderr io.Writer
	goos   string
	goarch string

	platformInfo *binaryInfo // Override for testing; nil uses getPlatformInfo

	ensureMu sync.Mutex // single-writer: one bootstrap attempt at a time

	stateMu sync.RWMutex
	state   State
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithFileReader sets the file reader implementation.
func WithFileReader(r fileReader) Option {
	return func(b *Bootstrapper) { b.reader = r }
}

// WithFileWriter sets the file writer implementation.
func WithFileWriter(w fileWriter) Option {
	return func(b *Bootstrapper) { b.writer = w }
}

// WithHTTPClient sets the HTTP client implementation.
func WithHTTPClient(c httpDoer) Option {
	return func(b *Bootstrapper) { b.http = c }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) Option {
	return func(b *Bootstrapper) { b.env = e }
}

// WithCommandRunner sets the command runner implementation.
func WithCommandRunner(r commandRunner) Option {
	return func(b *Bootstrapper) { b.cmd = r }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) Option {
	return func(b *Bootstrapper) { b.stderr = w }
}

// WithPlatform sets the target platform (for testing cross-platform behavior).
func WithPlatform(goos, goarch string) Option {
	return func(b *Bootstrapper) {
		b.goos = goos
		b.goarch = goarch
	}
}

// WithPlatformInfo overrides the platform download info (for testing downloads).
func WithPlatformInfo(info binaryInfo) Option {
	return func(b *Bootstrapper) { b.platformInfo = &info }
}

// NewBootstrapper creates a Bootstrapper in the Unknown state.
// Uses production defaults if no options are provided.
func NewBootstrapper(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		reader: osFileReader{},
		writer: osFileWriter{},
		http:   defaultHTTPClient,
		env:    osEnvProvider{},
		cmd:    osCommandRunner{},
		stderr: os.Stderr,
		goos:   runtime.GOOS,
		goarch: runtime.GOARCH,
		state:  State{Status: StatusUnknown},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns a snapshot of the current toolchain state. Safe to call
// concurrently with an in-progress EnsureReady.
func (b *Bootstrapper) State() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Bootstrapper) setState(s State) {
	b.stateMu.Lock()
	b.state = s
	b.stateMu.Unlock()
}

// EnsureReady drives the state machine to Ready, installing the toolchain
// if necessary. Idempotent: once Ready, it returns immediately without
// re-detecting. Concurrent callers wait on the in-progress attempt rather
// than racing installs.
func (b *Bootstrapper) EnsureReady(ctx context.Context) (State, error) {
	b.ensureMu.Lock()
	defer b.ensureMu.Unlock()

	if s := b.State(); s.Status == StatusReady {
		return s, nil
	}

	// A previous attempt ended Unavailable; restart from Unknown.
	b.setState(State{Status: StatusUnknown})

	// Detection.
	b.setState(State{Status: StatusDetecting})
	path, err := b.detect(ctx)
	if err != nil {
		b.setState(State{Status: StatusUnavailable})
		return b.State(), err
	}
	if path != "" {
		s := State{Status: StatusReady, Path: path}
		b.setState(s)
		return s, nil
	}

	// Installation.
	b.setState(State{Status: StatusMissing})
	fmt.Fprintln(b.stderr, "ffmpeg not found, installing...")
	b.setState(State{Status: StatusInstalling})

	installedPath, err := b.install(ctx)
	if err != nil {
		b.setState(State{Status: StatusUnavailable})
		return b.State(), fmt.Errorf("%w: %v\n\n%s", ErrInstallFailed, err, b.manualInstallInstructions())
	}

	// Verification.
	b.setState(State{Status: StatusVerifying})
	if err := b.verify(ctx, installedPath); err != nil {
		b.setState(State{Status: StatusUnavailable})
		return b.State(), err
	}

	s := State{Status: StatusReady, Path: installedPath}
	b.setState(s)
	return s, nil
}

// detect probes for an existing ffmpeg binary. Precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. application install dir (~/.speech2text/bin)
//  3. fixed candidate locations
//  4. system PATH
//
// Returns "" with nil error when nothing is found (Missing).
func (b *Bootstrapper) detect(ctx context.Context) (string, error) {
	if envPath := b.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := b.reader.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but no binary is there (unset to enable auto-install)",
				ErrNotReady, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := b.installedPath(); err == nil {
		if _, err := b.reader.Stat(path); err == nil {
			// Re-verify a binary we installed ourselves before trusting it.
			if err := b.verify(ctx, path); err == nil {
				return path, nil
			}
		}
	}

	home, _ := b.env.UserHomeDir()
	for _, candidate := range candidatePaths(b.goos, home) {
		if _, err := b.reader.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := b.env.LookPath(binaryName); err == nil {
		return path, nil
	}

	return "", nil
}

// install places an ffmpeg binary into the application install dir.
// It first tries the host's package manager, then falls back to a static
// build download. Returns the path to the binary to verify.
func (b *Bootstrapper) install(ctx context.Context) (string, error) {
	// Package-manager route: on success ffmpeg lands on the search path.
	if err := b.installWithPackageManager(ctx); err == nil {
		if path, lookErr := b.env.LookPath(binaryName); lookErr == nil {
			return path, nil
		}
	}

	// Static build route.
	if err := b.downloadAndInstall(ctx); err != nil {
		return "", err
	}
	return b.installedPath()
}

// verify runs the binary with a version probe and checks for a successful
// exit and a parseable, supported version.
func (b *Bootstrapper) verify(ctx context.Context, path string) error {
	vctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	output, err := b.cmd.CombinedOutput(vctx, path, []string{"-version"})
	if err != nil {
		return fmt.Errorf("%w: %s -version: %v", ErrVerifyFailed, path, err)
	}

	major, ok := parseMajorVersion(string(output))
	if !ok {
		return fmt.Errorf("%w: cannot parse version from %q", ErrVerifyFailed, firstLine(string(output)))
	}
	if major < minMajorVersion {
		fmt.Fprintf(b.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minMajorVersion)
	}
	return nil
}

// installDir returns the application-local directory where ffmpeg is installed.
func (b *Bootstrapper) installDir() (string, error) {
	home, err := b.env.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".speech2text", "bin"), nil
}

// installedPath returns the path where ffmpeg would be installed.
func (b *Bootstrapper) installedPath() (string, error) {
	dir, err := b.installDir()
	if err != nil {
		return "", err
	}
	name := binaryName
	if b.goos == "windows" {
		name += binaryExtWindows
	}
	return filepath.Join(dir, name), nil
}

// parseMajorVersion extracts the major version from `ffmpeg -version` output,
// e.g. "ffmpeg version 6.1.1 Copyright..." or "ffmpeg version n6.1.1...".
func parseMajorVersion(output string) (int, bool) {
	line := firstLine(output)
	var major int
	if _, err := fmt.Sscanf(line, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(line, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}

// manualInstallInstructions returns platform-specific instructions.
func (b *Bootstrapper) manualInstallInstructions() string {
	switch b.goos {
	case "darwin":
		return `To install FFmpeg manually:
  brew install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "linux":
		return `To install FFmpeg manually:
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	case "windows":
		return `To install FFmpeg manually:
  winget install ffmpeg

Or set FFMPEG_PATH environment variable to your ffmpeg.exe.`
	default:
		return `To install FFmpeg manually, download from https://ffmpeg.org/download.html
Or set FFMPEG_PATH environment variable to your ffmpeg binary.`
	}
}

// ---------------------------------------------------------------------------
// Package-level facade - the process-wide toolchain state
// ---------------------------------------------------------------------------

var (
	defaultBootstrapper     *Bootstrapper
	defaultBootstrapperOnce sync.Once
)

// Default returns the lazily-initialized process-wide bootstrapper.
func Default() *Bootstrapper {
	defaultBootstrapperOnce.Do(func() {
		defaultBootstrapper = NewBootstrapper()
	})
	return defaultBootstrapper
}

// EnsureReady drives the process-wide toolchain state machine to Ready.
func EnsureReady(ctx context.Context) (State, error) {
	return Default().EnsureReady(ctx)
}

// CurrentState returns a snapshot of the process-wide toolchain state.
func CurrentState() State {
	return Default().State()
}
