package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is a snapshot of one transcription job's state.
type Job struct {
	ID         string
	InputPath  string
	Status     Status
	Err        error
	Result     *Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Manager owns the lifecycle of the current job. One job runs at a time;
// starting another while one is active fails with ErrJobRunning.
type Manager struct {
	mu      sync.Mutex
	current Job
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates an idle Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start launches the pipeline for req in a background goroutine and
// returns the new job's ID. Progress is observable on runner.Events() and
// through Current(); Done() closes when the job reaches a terminal state.
func (m *Manager) Start(ctx context.Context, runner *Runner, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil && !m.finishedLocked() {
		return "", ErrJobRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.current = Job{
		ID:        uuid.NewString(),
		InputPath: req.InputPath,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}

	events, unsubscribe := runner.Events().Subscribe(defaultEventHistory)
	go m.mirrorStatus(events)

	done := m.done
	go func() {
		defer cancel()
		defer unsubscribe()
		defer close(done)

		result, err := runner.Run(runCtx, req)

		m.mu.Lock()
		m.current.Result = result
		m.current.Err = err
		m.current.FinishedAt = time.Now()
		switch {
		case err == nil:
			m.current.Status = StatusCompleted
		case errors.Is(err, ErrCancelled):
			m.current.Status = StatusCancelled
		default:
			m.current.Status = StatusFailed
		}
		m.mu.Unlock()
	}()

	return m.current.ID, nil
}

// mirrorStatus keeps the job snapshot in step with runner status events.
// Terminal statuses are set by the run goroutine itself, together with the
// result, so they are skipped here.
func (m *Manager) mirrorStatus(events <-chan Event) {
	for e := range events {
		if e.Type != EventStatus || e.Status.Terminal() {
			continue
		}
		m.mu.Lock()
		if transition(m.current.Status, e.Status) == nil {
			m.current.Status = e.Status
		}
		m.mu.Unlock()
	}
}

// Current returns a snapshot of the active or most recent job.
func (m *Manager) Current() Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsRunning reports whether a job is actively processing.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil && !m.finishedLocked() && !m.current.Status.Terminal()
}

func (m *Manager) finishedLocked() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Cancel requests cancellation of the running job. The job reaches
// StatusCancelled once the pipeline observes the signal; intermediate
// output is discarded.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done == nil || m.current.Status.Terminal() {
		return ErrNoJob
	}
	m.cancel()
	return nil
}

// Done returns a channel closed when the current job finishes. It is nil
// before the first Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Wait blocks until the job finishes or ctx is cancelled, then returns the
// final snapshot.
func (m *Manager) Wait(ctx context.Context) (Job, error) {
	done := m.Done()
	if done == nil {
		return Job{}, ErrNoJob
	}
	select {
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	case <-done:
		return m.Current(), nil
	}
}
