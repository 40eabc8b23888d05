package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/mhjang/speech2text/internal/format"
	"github.com/mhjang/speech2text/internal/workspace"
)

// DefaultChunkDuration is the maximum duration per chunk, tuned to the
// recognition service's per-request limit.
const DefaultChunkDuration = 60 * time.Second

// Chunk represents a segment of the canonical waveform. Indices are
// contiguous 0..N-1 and define both submission order and output order.
type Chunk struct {
	Path  string        // Absolute path to the chunk file.
	Index int           // Zero-based index for ordering.
	Start time.Duration // Start offset into the waveform.
	End   time.Duration // End offset into the waveform.
}

// Duration returns the length of this chunk.
func (c Chunk) Duration() time.Duration {
	return c.End - c.Start
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(c.Start),
		format.Duration(c.End))
}

// Chunker splits the canonical waveform into fixed-duration segments.
// Split points are a pure function of waveform length and the configured
// duration, so the same input always yields the same boundaries.
type Chunker struct {
	maxChunkDuration time.Duration
	cmd              commandRunner
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkerCommandRunner sets the command runner (for testing).
func WithChunkerCommandRunner(r commandRunner) ChunkerOption {
	return func(c *Chunker) { c.cmd = r }
}

// NewChunker creates a Chunker. A non-positive maxChunkDuration falls back
// to the default.
func NewChunker(maxChunkDuration time.Duration, opts ...ChunkerOption) *Chunker {
	if maxChunkDuration <= 0 {
		maxChunkDuration = DefaultChunkDuration
	}
	c := &Chunker{
		maxChunkDuration: maxChunkDuration,
		cmd:              execRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split cuts the waveform into contiguous, non-overlapping segments each
// at most the configured duration; the final segment may be shorter.
// Each segment file is registered with the workspace before extraction.
func (c *Chunker) Split(ctx context.Context, ffmpegPath, waveformPath string, ws *workspace.Workspace) ([]Chunk, error) {
	total, err := c.probeDuration(ctx, ffmpegPath, waveformPath)
	if err != nil {
		return nil, fmt.Errorf("%w: probe duration: %v", ErrChunkingFailed, err)
	}

	bounds := splitPoints(total, c.maxChunkDuration)
	chunks := make([]Chunk, 0, len(bounds)-1)

	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		chunkPath := filepath.Join(ws.Dir(), fmt.Sprintf("chunk_%03d.flac", i))
		ws.Register(chunkPath)

		if err := c.extract(ctx, ffmpegPath, waveformPath, chunkPath, start, end); err != nil {
			return nil, err
		}

		chunks = append(chunks, Chunk{
			Path:  chunkPath,
			Index: i,
			Start: start,
			End:   end,
		})
	}

	return chunks, nil
}

// splitPoints returns segment boundaries [0, d, 2d, ..., total].
// Pure: the boundaries depend only on total and d.
func splitPoints(total, d time.Duration) []time.Duration {
	bounds := []time.Duration{0}
	for cut := d; cut < total; cut += d {
		bounds = append(bounds, cut)
	}
	if total > 0 {
		bounds = append(bounds, total)
	}
	return bounds
}

// extract cuts one segment, re-encoding to FLAC for the recognition request.
func (c *Chunker) extract(ctx context.Context, ffmpegPath, waveformPath, chunkPath string, start, end time.Duration) error {
	args := []string{
		"-y",
		"-i", waveformPath,
		"-ss", ffmpegTime(start),
		"-to", ffmpegTime(end),
		"-c:a", "flac",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", fmt.Sprint(channels),
		chunkPath,
	}
	output, err := c.cmd.RunOutput(ctx, ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: extract %s: %v\nOutput: %s",
			ErrChunkingFailed, filepath.Base(chunkPath), err, tail(output))
	}
	return nil
}

// probeDuration returns the waveform duration by parsing ffmpeg's stderr.
// ffprobe may not be installed, so the ffmpeg binary itself is used.
func (c *Chunker) probeDuration(ctx context.Context, ffmpegPath, waveformPath string) (time.Duration, error) {
	args := []string{
		"-i", waveformPath,
		"-f", "null", "-",
	}
	output, err := c.cmd.RunOutput(ctx, ffmpegPath, args)
	if err != nil && len(output) == 0 {
		// FFmpeg returns non-zero even when it reads file info fine;
		// only give up when there is nothing to parse.
		return 0, err
	}

	return parseDurationOutput(output)
}

// durationRe matches "Duration: HH:MM:SS.cc" in ffmpeg stderr.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// timeRe matches "time=HH:MM:SS.cc" progress lines; the last one is the
// final position.
var timeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)

// parseDurationOutput extracts the stream duration from FFmpeg stderr.
func parseDurationOutput(output string) (time.Duration, error) {
	if m := durationRe.FindStringSubmatch(output); m != nil {
		return timeComponents(m[1], m[2], m[3], m[4]), nil
	}
	if all := timeRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		return timeComponents(m[1], m[2], m[3], m[4]), nil
	}
	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// timeComponents converts HH:MM:SS plus a fractional part to a Duration.
// The fraction may carry 1-6+ digits of precision.
func timeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}

// ffmpegTime formats a duration for FFmpeg -ss/-to arguments.
func ffmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
