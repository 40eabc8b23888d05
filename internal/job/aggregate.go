package job

import (
	"fmt"
	"strings"

	"github.com/mhjang/speech2text/internal/format"
)

// DefaultFailureTolerance is the fraction of chunks allowed to fail before
// the whole job is considered failed.
const DefaultFailureTolerance = 0.5

// Aggregator assembles chunk texts into the final transcript.
type Aggregator struct {
	tolerance float64
}

// NewAggregator creates an Aggregator. A tolerance outside (0, 1] falls
// back to the default.
func NewAggregator(tolerance float64) *Aggregator {
	if tolerance <= 0 || tolerance > 1 {
		tolerance = DefaultFailureTolerance
	}
	return &Aggregator{tolerance: tolerance}
}

// gapMarker stands in for a chunk that produced no text, so the reader can
// see where in the recording the gap is.
func gapMarker(c Chunk) string {
	return fmt.Sprintf("[unrecognized %s-%s]",
		format.Duration(c.Start),
		format.Duration(c.End))
}

// Aggregate joins chunk texts in index order, separated by single spaces,
// with a gap marker in place of each failed chunk.
//
// It fails with ErrAllChunksFailed when nothing was recognized, and with
// ErrTooManyFailures when the failed fraction exceeds the tolerance. The
// assembled transcript is returned even alongside those errors.
func (a *Aggregator) Aggregate(chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", ErrAllChunksFailed
	}

	parts := make([]string, 0, len(chunks))
	done := 0
	for _, c := range chunks {
		if c.Status == ChunkDone {
			parts = append(parts, c.Text)
			done++
			continue
		}
		parts = append(parts, gapMarker(c))
	}
	text := strings.Join(parts, " ")

	failed := len(chunks) - done
	switch {
	case done == 0:
		return text, ErrAllChunksFailed
	case float64(failed)/float64(len(chunks)) > a.tolerance:
		return text, fmt.Errorf("%w: %d of %d", ErrTooManyFailures, failed, len(chunks))
	}
	return text, nil
}
