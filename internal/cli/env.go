package cli

import (
	"context"
	"io"
	"os"

	"github.com/mhjang/speech2text/internal/config"
	"github.com/mhjang/speech2text/internal/ffmpeg"
	"github.com/mhjang/speech2text/internal/job"
	"github.com/mhjang/speech2text/internal/recognize"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Domain dependencies
	ConfigLoader      ConfigLoader
	Toolchain         Toolchain
	Connectivity      func(ctx context.Context) error
	RecognizerFactory RecognizerFactory

	// RunnerOptions are appended when assembling the pipeline, letting
	// tests swap in fake transcoders and chunkers.
	RunnerOptions []job.RunnerOption
}

// ConfigLoader loads user configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// Toolchain manages the ffmpeg binary lifecycle.
type Toolchain interface {
	EnsureReady(ctx context.Context) (ffmpeg.State, error)
	State() ffmpeg.State
}

// RecognizerFactory constructs recognition backends by name.
type RecognizerFactory interface {
	New(backend string) (recognize.Recognizer, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithToolchain sets the toolchain manager.
func WithToolchain(t Toolchain) EnvOption {
	return func(e *Env) { e.Toolchain = t }
}

// WithConnectivity sets the network preflight check.
func WithConnectivity(fn func(ctx context.Context) error) EnvOption {
	return func(e *Env) { e.Connectivity = fn }
}

// WithRecognizerFactory sets the recognizer factory.
func WithRecognizerFactory(f RecognizerFactory) EnvOption {
	return func(e *Env) { e.RecognizerFactory = f }
}

// WithRunnerOptions appends pipeline options.
func WithRunnerOptions(opts ...job.RunnerOption) EnvOption {
	return func(e *Env) { e.RunnerOptions = append(e.RunnerOptions, opts...) }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		Getenv:            os.Getenv,
		ConfigLoader:      &defaultConfigLoader{},
		Toolchain:         &defaultToolchain{},
		Connectivity:      recognize.CheckConnectivity,
		RecognizerFactory: &defaultRecognizerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultToolchain implements Toolchain using the ffmpeg package facade.
type defaultToolchain struct{}

func (defaultToolchain) EnsureReady(ctx context.Context) (ffmpeg.State, error) {
	return ffmpeg.EnsureReady(ctx)
}

func (defaultToolchain) State() ffmpeg.State {
	return ffmpeg.CurrentState()
}

// defaultRecognizerFactory implements RecognizerFactory using the
// recognize package.
type defaultRecognizerFactory struct{}

func (defaultRecognizerFactory) New(backend string) (recognize.Recognizer, error) {
	return recognize.New(backend)
}

// Compile-time interface verification.
var (
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ Toolchain         = (*defaultToolchain)(nil)
	_ RecognizerFactory = (*defaultRecognizerFactory)(nil)
)
