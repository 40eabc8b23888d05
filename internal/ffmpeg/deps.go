package ffmpeg

import (
	"context"
	"net/http"
	"os"
	"os/exec"
)

// ---------------------------------------------------------------------------
// Interfaces - local to this package, following Go idiom
// ---------------------------------------------------------------------------

// fileReader abstracts read operations on the filesystem.
type fileReader interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// fileWriter abstracts write operations on the filesystem.
type fileWriter interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Chmod(name string, mode os.FileMode) error
	CreateTemp(dir, pattern string) (*os.File, error)
}

// httpDoer abstracts HTTP client operations.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// envProvider abstracts environment and search-path lookups.
type envProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
	LookPath(file string) (string, error)
}

// commandRunner executes external commands and returns their combined output.
// Used for version probes and package-manager installs.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to standard library
// ---------------------------------------------------------------------------

// Compile-time interface verification.
var (
	_ fileReader    = osFileReader{}
	_ fileWriter    = osFileWriter{}
	_ envProvider   = osEnvProvider{}
	_ commandRunner = osCommandRunner{}
)

type osFileReader struct{}

func (osFileReader) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (osFileReader) ReadFile(name string) ([]byte, error) {
	// #nosec G304 -- paths come from internal resolution, not user input
	return os.ReadFile(name)
}

type osFileWriter struct{}

func (osFileWriter) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (osFileWriter) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (osFileWriter) Remove(name string) error {
	return os.Remove(name)
}

func (osFileWriter) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFileWriter) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

func (osFileWriter) CreateTemp(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are assembled internally, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
