// Package interrupt turns Ctrl+C into graceful job cancellation, with a
// double-press escape hatch for an immediate exit.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// forceQuitWindow is the time window for a second Ctrl+C to force an
// immediate exit.
const forceQuitWindow = 2 * time.Second

// Messages written to stderr on interrupt.
const (
	cancelMessage = "\nCancelling... press Ctrl+C again to force quit."
	abortMessage  = "\nAborted."
)

// Handler manages interrupt handling with double Ctrl+C detection.
// The first Ctrl+C cancels the returned context so the running job can
// stop and clean up. A second Ctrl+C within the window exits immediately.
type Handler struct {
	mu             sync.Mutex
	firstInterrupt time.Time
	interrupted    bool
	stopped        bool
	cancelFunc     context.CancelFunc
	done           chan struct{}

	// Injected dependencies (for testing)
	exitFunc func(int)
	nowFunc  func() time.Time
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	NowFunc  func() time.Time
	// Stderr must be safe for concurrent writes. Defaults to os.Stderr,
	// which is safe at the OS level.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is cancelled on first interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return newHandler(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		nowFunc:    nowFunc,
		stderr:     stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen handles incoming signals.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}

			h.mu.Lock()
			if h.stopped {
				h.mu.Unlock()
				return
			}
			now := h.nowFunc()

			if !h.interrupted {
				h.interrupted = true
				h.firstInterrupt = now
				h.cancelFunc()
				h.mu.Unlock()
				fmt.Fprintln(h.stderr, cancelMessage)
				continue
			}

			if now.Sub(h.firstInterrupt) <= forceQuitWindow {
				h.mu.Unlock()
				fmt.Fprintln(h.stderr, abortMessage)
				h.exitFunc(ExitInterrupt)
				return // In case exitFunc doesn't actually exit (tests)
			}

			// Late second press; treat it as a fresh cancellation signal.
			h.firstInterrupt = now
			h.mu.Unlock()
		}
	}
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Stop cleans up the handler. Should be called when done.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}
