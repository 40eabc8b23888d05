package ffmpeg

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Static build download configuration.
// Binaries from github.com/eugeneware/ffmpeg-static release b6.1.1.
const (
	ffmpegVersion = "6.1.1"

	// downloadTimeout is the maximum time allowed for downloading ffmpeg.
	// Binary is ~20-30MB compressed, allowing for slow connections. This
	// is deliberately much longer than any recognition-call timeout.
	downloadTimeout = 10 * time.Minute

	// versionFileName stores the installed version for upgrade detection.
	versionFileName = ".version"
)

// defaultHTTPClient is a dedicated HTTP client for downloads with explicit timeouts.
var defaultHTTPClient = &http.Client{
	Timeout: downloadTimeout,
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// binaryInfo contains download metadata for a static ffmpeg build.
type binaryInfo struct {
	URL    string // Download URL (gzipped binary)
	SHA256 string // Expected checksum of the gzipped file
}

// downloadBaseURL is the base URL for eugeneware/ffmpeg-static releases.
const downloadBaseURL = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.1.1"

// getPlatformInfo returns download information for the given platform.
func getPlatformInfo(goos, goarch string) (binaryInfo, bool) {
	platforms := map[string]binaryInfo{
		"darwin-arm64": {
			URL:    downloadBaseURL + "/ffmpeg-darwin-arm64.gz",
			SHA256: "8923876afa8db5585022d7860ec7e589af192f441c56793971276d450ed3bbfa",
		},
		"darwin-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-darwin-x64.gz",
			SHA256: "5d8fb6f280c428d0e82cd5ee68215f0734d64f88e37dcc9e082f818c9e5025f0",
		},
		"linux-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-linux-x64.gz",
			SHA256: "bfe8a8fc511530457b528c48d77b5737527b504a3797a9bc4866aeca69c2dffa",
		},
		"windows-amd64": {
			URL:    downloadBaseURL + "/ffmpeg-win32-x64.gz",
			SHA256: "8883a3dffbd0a16cf4ef95206ea05283f78908dbfb118f73c83f4951dcc06d77",
		},
	}
	info, ok := platforms[goos+"-"+goarch]
	return info, ok
}

// downloadAndInstall downloads a static build into the install directory.
func (b *Bootstrapper) downloadAndInstall(ctx context.Context) error {
	var info binaryInfo
	if b.platformInfo != nil {
		info = *b.platformInfo
	} else {
		var ok bool
		info, ok = getPlatformInfo(b.goos, b.goarch)
		if !ok {
			return fmt.Errorf("%w: %s-%s (supported: darwin-arm64, darwin-amd64, linux-amd64, windows-amd64)",
				ErrUnsupportedPlatform, b.goos, b.goarch)
		}
	}

	dir, err := b.installDir()
	if err != nil {
		return err
	}
	if err := b.writer.MkdirAll(dir, installDirPerm); err != nil {
		return fmt.Errorf("cannot create install directory %s: %w", dir, err)
	}

	destPath, err := b.installedPath()
	if err != nil {
		return err
	}

	if err := b.downloadBinary(ctx, info, destPath); err != nil {
		_ = b.writer.Remove(destPath) // Cleanup on failure
		return fmt.Errorf("download ffmpeg: %w", err)
	}

	versionPath := filepath.Join(dir, versionFileName)
	if err := b.writer.WriteFile(versionPath, []byte(ffmpegVersion), 0644); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}

	return nil
}

// downloadBinary downloads, verifies, and extracts ffmpeg.
func (b *Bootstrapper) downloadBinary(ctx context.Context, info binaryInfo, destPath string) error {
	dir := filepath.Dir(destPath)
	tempFile, err := b.writer.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	tempFileClosed := false

	defer func() {
		if !tempFileClosed {
			_ = tempFile.Close()
		}
		_ = b.writer.Remove(tempPath)
	}()

	// Download - timeout is enforced by defaultHTTPClient.Timeout.
	if err := b.downloadToFile(ctx, info.URL, tempFile); err != nil {
		return err
	}

	// Close to flush writes before checksum.
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tempFileClosed = true

	if err := verifyChecksum(tempPath, info.SHA256); err != nil {
		return err
	}

	if err := decompressGzip(tempPath, destPath); err != nil {
		return err
	}

	// Make executable on Unix.
	if b.goos != "windows" {
		if err := b.writer.Chmod(destPath, 0755); err != nil {
			return fmt.Errorf("make binary executable: %w", err)
		}
	}

	return nil
}

// downloadToFile downloads a URL to an open file.
func (b *Bootstrapper) downloadToFile(ctx context.Context, url string, dest *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrDownloadFailed, err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", ErrDownloadFailed, resp.StatusCode, url)
	}

	if _, err = io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Pure helper functions
// These operate on internal temp files only; keeping them as pure functions
// simplifies the code without sacrificing testability (tested directly with
// t.TempDir).
// ---------------------------------------------------------------------------

// verifyChecksum computes the SHA256 of a file and compares to expected.
func verifyChecksum(filePath, expectedSHA256 string) error {
	f, err := os.Open(filePath) // #nosec G304 -- filePath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open file for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expectedSHA256 {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expectedSHA256, actual)
	}

	return nil
}

// maxDecompressedSize limits extraction to prevent decompression bombs.
// FFmpeg binary is ~80MB uncompressed; 200MB provides safety margin.
const maxDecompressedSize = 200 * 1024 * 1024

// decompressGzip decompresses a gzip file to a destination path using an
// atomic write.
func decompressGzip(gzPath, destPath string) error {
	gzFile, err := os.Open(gzPath) // #nosec G304 -- gzPath is internal temp file
	if err != nil {
		return fmt.Errorf("cannot open gzip file: %w", err)
	}
	defer func() { _ = gzFile.Close() }()

	gzReader, err := gzip.NewReader(gzFile)
	if err != nil {
		return fmt.Errorf("invalid gzip file: %w", err)
	}
	defer func() { _ = gzReader.Close() }()

	dir := filepath.Dir(destPath)
	tempFile, err := os.CreateTemp(dir, ".extract-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		_ = tempFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	limitedReader := io.LimitReader(gzReader, maxDecompressedSize)
	written, err := io.Copy(tempFile, limitedReader)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}
	if written >= maxDecompressedSize {
		return fmt.Errorf("decompression failed: file exceeds %d bytes limit", maxDecompressedSize)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("install binary: %w", err)
	}

	success = true
	return nil
}
