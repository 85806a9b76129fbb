// Package lock implements the cross-process advisory lock used to
// serialize mutating operations on a given install id or on the
// global tracking state: a file-backed lock with re-entrancy support,
// stale-lock takeover, and retry-with-timeout acquisition.
package lock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
)

// Tracker remembers which lock paths this process has touched, so a
// sentinel left behind by this same process is never mistaken for a
// stale artifact of a crashed one. Re-expressed from a mutable global
// singleton as an explicit handle passed to the functions that need
// it, per the process-wide-state-without-a-global design note.
type Tracker struct {
	mu      sync.Mutex
	touched map[string]bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{touched: make(map[string]bool)}
}

func (t *Tracker) markTouched(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touched[path] = true
}

func (t *Tracker) hasTouched(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.touched[path]
}

// Fn is the function protected by a lock.
type Fn func() (any, error)

// Options configures a WithLock call.
type Options struct {
	// SentinelPath is the existence-as-truth lock sentinel.
	SentinelPath string

	// LockPath is the file the OS-level advisory lock is actually
	// taken on (the sentinel's ".lock" sibling).
	LockPath string

	// RetryInterval is the poll interval between acquisition attempts.
	RetryInterval time.Duration

	// Timeout bounds total time spent waiting to acquire the lock.
	Timeout time.Duration

	// AlreadyHeld skips lock operations entirely: Fn runs directly,
	// supporting re-entrant nested calls within one logical operation.
	AlreadyHeld bool

	Tracker *Tracker
}

// WithLock runs fn with exclusive ownership of the lock identified by
// opts.LockPath across all cooperating processes. If opts.AlreadyHeld
// is set, fn runs directly with no lock operations.
func WithLock(ctx context.Context, opts Options, fn Fn) (any, error) {
	if opts.AlreadyHeld {
		return fn()
	}

	cleanStaleSentinel(opts)

	fileLock := flock.New(opts.LockPath)

	if err := acquireWithRetry(ctx, fileLock, opts); err != nil {
		return nil, err
	}
	opts.Tracker.markTouched(opts.SentinelPath)

	defer func() {
		_ = fileLock.Unlock()
	}()

	if err := os.WriteFile(opts.SentinelPath, []byte(strconvPID()), 0644); err != nil {
		return nil, errs.NewStateError("failed to write lock sentinel", err)
	}
	defer os.Remove(opts.SentinelPath)

	return fn()
}

// cleanStaleSentinel removes a sentinel left by a crashed previous
// process: on first use by this process, an untouched sentinel whose
// lock file is not actually held is a stale artifact.
func cleanStaleSentinel(opts Options) {
	if opts.Tracker.hasTouched(opts.SentinelPath) {
		return
	}
	if _, err := os.Stat(opts.SentinelPath); err != nil {
		return
	}

	probe := flock.New(opts.LockPath)
	locked, err := probe.TryLock()
	if err != nil {
		return
	}
	if locked {
		_ = probe.Unlock()
		os.Remove(opts.SentinelPath)
	}
}

// acquireWithRetry polls every opts.RetryInterval up to
// opts.Timeout/opts.RetryInterval attempts, returning a LockTimeout
// error if the deadline passes first.
func acquireWithRetry(ctx context.Context, fileLock *flock.Flock, opts Options) error {
	deadline := time.Now().Add(opts.Timeout)
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errs.NewStateError(fmt.Sprintf("failed to acquire lock %s", opts.LockPath), err)
		}
		if locked {
			return nil
		}

		if time.Now().After(deadline) {
			return errs.NewLockError(opts.LockPath, readSentinelPID(opts.SentinelPath))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func strconvPID() string {
	return fmt.Sprintf("%d", os.Getpid())
}

// readSentinelPID best-effort reads the PID written to a lock
// sentinel by its current holder, for inclusion in a timeout error.
func readSentinelPID(sentinelPath string) int {
	data, err := os.ReadFile(sentinelPath)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0
	}
	return pid
}
