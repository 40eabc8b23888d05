package ffmpeg

import "errors"

// ErrNotReady indicates the toolchain has not been bootstrapped to Ready.
// Conversion fails fast with this rather than attempting to run a missing
// binary.
var ErrNotReady = errors.New("ffmpeg toolchain not ready")

// ErrInstallFailed indicates the toolchain could not be installed.
var ErrInstallFailed = errors.New("ffmpeg install failed")

// ErrVerifyFailed indicates the installed binary failed the version probe.
var ErrVerifyFailed = errors.New("ffmpeg verification failed")

// ErrUnsupportedPlatform indicates the OS/architecture has no static build
// available for auto-download.
var ErrUnsupportedPlatform = errors.New("unsupported platform for ffmpeg auto-download")

// ErrChecksumMismatch indicates a downloaded file's checksum verification failed.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrDownloadFailed indicates a file download could not be completed.
var ErrDownloadFailed = errors.New("download failed")
