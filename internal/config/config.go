// Package config loads user configuration from a key=value file under the
// user config directory, with environment variable fallbacks.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config keys.
const (
	KeyOutputDir        = "output-dir"
	KeyBackend          = "backend"
	KeyLanguage         = "language"
	KeyChunkDuration    = "chunk-duration"
	KeyMaxRetries       = "max-retries"
	KeyFailureTolerance = "failure-tolerance"
	KeyParallel         = "parallel"
)

// Environment variable fallbacks.
const (
	EnvOutputDir = "SPEECH2TEXT_OUTPUT_DIR"
	EnvBackend   = "SPEECH2TEXT_BACKEND"
	EnvLanguage  = "SPEECH2TEXT_LANGUAGE"
)

// knownKeys guards Save against typos.
var knownKeys = map[string]bool{
	KeyOutputDir:        true,
	KeyBackend:          true,
	KeyLanguage:         true,
	KeyChunkDuration:    true,
	KeyMaxRetries:       true,
	KeyFailureTolerance: true,
	KeyParallel:         true,
}

// Config holds user configuration loaded from ~/.config/speech2text/config.
// Zero values mean "not set"; callers apply their own defaults.
type Config struct {
	OutputDir        string
	Backend          string
	Language         string
	ChunkDuration    time.Duration
	MaxRetries       int
	FailureTolerance float64
	Parallel         int
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/speech2text.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "speech2text"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "speech2text"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		data = map[string]string{}
	}

	cfg.OutputDir = data[KeyOutputDir]
	cfg.Backend = data[KeyBackend]
	cfg.Language = data[KeyLanguage]

	if v := data[KeyChunkDuration]; v != "" {
		d, err := parseChunkDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", KeyChunkDuration, err)
		}
		cfg.ChunkDuration = d
	}
	if v := data[KeyMaxRetries]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("config %s: invalid value %q", KeyMaxRetries, v)
		}
		cfg.MaxRetries = n
	}
	if v := data[KeyFailureTolerance]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return cfg, fmt.Errorf("config %s: invalid value %q (want 0-1)", KeyFailureTolerance, v)
		}
		cfg.FailureTolerance = f
	}
	if v := data[KeyParallel]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("config %s: invalid value %q", KeyParallel, v)
		}
		cfg.Parallel = n
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = os.Getenv(EnvOutputDir)
	}
	if cfg.Backend == "" {
		cfg.Backend = os.Getenv(EnvBackend)
	}
	if cfg.Language == "" {
		cfg.Language = os.Getenv(EnvLanguage)
	}

	return cfg, nil
}

// parseChunkDuration accepts either a Go duration ("90s") or a bare number
// of seconds ("90").
func parseChunkDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 1 {
			return 0, fmt.Errorf("invalid value %q", v)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < time.Second {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	return d, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		data[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if !knownKeys[key] {
		return fmt.Errorf("unknown config key: %q", key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for key, value := range data {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// outputDir can come from config or flag.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// ValidOutputDir checks if a directory path is valid for use as output-dir.
// Returns nil if valid, or an error describing the problem.
func ValidOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}

	if strings.HasPrefix(d, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot expand ~: %w", err)
		}
		d = filepath.Join(home, d[2:])
	}

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	probe, err := os.CreateTemp(d, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", d)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return nil
}
