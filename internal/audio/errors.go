package audio

import "errors"

// ErrConversionFailed indicates FFmpeg failed to produce the canonical waveform.
var ErrConversionFailed = errors.New("media conversion failed")

// ErrChunkingFailed indicates FFmpeg failed while splitting the waveform.
var ErrChunkingFailed = errors.New("audio chunking failed")

// ErrWaveformNotFound indicates the canonical waveform file does not exist.
var ErrWaveformNotFound = errors.New("waveform file not found")
