// Package media validates candidate input files before any processing
// begins: existence, size ceiling, extension allow-list. Validation is
// stateless and creates no resources, so rejected inputs leave nothing
// to clean up.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mhjang/speech2text/internal/format"
)

// Category distinguishes audio containers from video containers.
// Video inputs have their audio track extracted during transcoding.
type Category int

const (
	Audio Category = iota
	Video
)

// String returns the category name for display.
func (c Category) String() string {
	switch c {
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// MaxFileSize is the input size ceiling. Inputs above this are rejected
// before any processing.
const MaxFileSize = 500 * 1024 * 1024

// Extension allow-lists for common audio and video containers.
var (
	audioExtensions = map[string]bool{
		".mp3":  true,
		".wav":  true,
		".m4a":  true,
		".aac":  true,
		".flac": true,
		".ogg":  true,
	}
	videoExtensions = map[string]bool{
		".mp4": true,
		".avi": true,
		".mkv": true,
		".mov": true,
		".wmv": true,
	}
)

// File describes a validated media input. Created at job submission and
// read-only thereafter.
type File struct {
	Path     string
	Size     int64
	Ext      string
	Category Category
}

// SupportedExtensions returns the sorted allow-list for error messages.
// Sorted for deterministic output in tests and user-facing messages.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(audioExtensions)+len(videoExtensions))
	for ext := range audioExtensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	for ext := range videoExtensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(exts)
	return exts
}

// Validate checks a candidate input in order: file exists and is readable,
// size is under the ceiling, extension is in the allow-list. No side effects;
// safe to call concurrently for independent files.
func Validate(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return File{}, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	// Permission problems surface here instead of mid-pipeline.
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: %v", ErrFileNotReadable, path, err)
	}
	_ = f.Close()

	if info.Size() > MaxFileSize {
		return File{}, fmt.Errorf("%w: %s is %s (limit %s)",
			ErrFileTooLarge, path, format.Size(info.Size()), format.Size(MaxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(path))
	category, ok := categoryOf(ext)
	if !ok {
		return File{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}

	return File{
		Path:     path,
		Size:     info.Size(),
		Ext:      ext,
		Category: category,
	}, nil
}

// categoryOf classifies an extension against the allow-lists.
func categoryOf(ext string) (Category, bool) {
	switch {
	case audioExtensions[ext]:
		return Audio, true
	case videoExtensions[ext]:
		return Video, true
	default:
		return 0, false
	}
}
