// Package job coordinates the transcription pipeline: media validation,
// waveform conversion, chunking, recognition, and aggregation, with a
// lifecycle state machine and progress events around it.
package job

import "fmt"

// Status is the lifecycle state of a transcription job.
type Status int

const (
	StatusPending Status = iota
	StatusConverting
	StatusChunking
	StatusRecognizing
	StatusAggregating
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConverting:
		return "converting"
	case StatusChunking:
		return "chunking"
	case StatusRecognizing:
		return "recognizing"
	case StatusAggregating:
		return "aggregating"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// transition validates a lifecycle move and returns ErrInvalidTransition
// for moves the machine does not allow. Failure and cancellation are
// reachable from every non-terminal state.
func transition(from, to Status) error {
	ok := func() bool {
		if from.Terminal() {
			return false
		}
		if to == StatusFailed || to == StatusCancelled {
			return true
		}
		switch from {
		case StatusPending:
			return to == StatusConverting
		case StatusConverting:
			return to == StatusChunking
		case StatusChunking:
			return to == StatusRecognizing
		case StatusRecognizing:
			return to == StatusAggregating
		case StatusAggregating:
			return to == StatusCompleted
		}
		return false
	}()
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ChunkStatus is the recognition state of a single chunk.
type ChunkStatus int

const (
	ChunkPending ChunkStatus = iota
	ChunkProcessing
	ChunkDone
	ChunkFailed
)

// String returns a human-readable chunk status name.
func (s ChunkStatus) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkProcessing:
		return "processing"
	case ChunkDone:
		return "done"
	case ChunkFailed:
		return "failed"
	default:
		return "unknown"
	}
}
