package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// deriveOutputPath converts a media file path to a transcript output path.
// Example: "lecture.mp4" -> "lecture.txt"
func deriveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".txt"
}

// writeOutputFile writes the transcript to path.
// It fails if the file already exists (O_EXCL), preventing accidental
// overwrites. On write failure, the partial file is removed.
func writeOutputFile(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
