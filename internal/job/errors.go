package job

import "errors"

// ErrJobRunning indicates a job is already in progress.
var ErrJobRunning = errors.New("a job is already running")

// ErrNoJob indicates no job exists to operate on.
var ErrNoJob = errors.New("no active job")

// ErrInvalidTransition indicates a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrCancelled indicates the job was cancelled before completion.
var ErrCancelled = errors.New("job cancelled")

// ErrAllChunksFailed indicates recognition produced no text at all.
var ErrAllChunksFailed = errors.New("no chunk produced any text")

// ErrTooManyFailures indicates the failed-chunk fraction exceeded the
// configured tolerance.
var ErrTooManyFailures = errors.New("too many chunks failed")
