// Package acquire implements the Acquisition Coordinator (C7): the
// top-level state machine behind acquire(request). It resolves a
// loose version via the Version Resolver, dedupes concurrent requests
// for the same install id in-process, serializes mutating steps
// across processes via the Cross-Process Lock, recovers from partial
// installs, delegates the actual install to an Invoker, and
// self-validates the result via the Condition Validator before
// marking the id installed.
package acquire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/invoker"
	"github.com/terassyi/dotnetacquire/internal/lock"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/pathutil"
	"github.com/terassyi/dotnetacquire/internal/track"
	"github.com/terassyi/dotnetacquire/internal/validate"
	"github.com/terassyi/dotnetacquire/internal/versionresolver"
)

const (
	defaultInstallTimeout = 300 * time.Second
	defaultLockTimeout    = 60 * time.Second
	defaultLockRetry      = 100 * time.Millisecond
)

// Options configures a Coordinator.
type Options struct {
	Paths       *pathutil.Paths
	Resolver    *versionresolver.Resolver
	Validator   *validate.Validator
	TrackStore  *track.Store
	LockTracker *lock.Tracker
	Invokers    map[model.InstallType]invoker.Invoker
	Sink        event.Sink

	// ExistingDotnetPaths are externally provided hosts tried before
	// installing, in order, subject to AllowInvalidPaths.
	ExistingDotnetPaths []string
	AllowInvalidPaths   bool

	LockTimeout time.Duration
	LockRetry   time.Duration
}

// future is the in-process dedup unit for one install id: concurrent
// Acquire calls for the same id observe the same eventual result
// instead of each invoking the installer.
type future struct {
	done   chan struct{}
	result model.AcquireResult
	err    error
}

// Coordinator implements acquire/uninstall/uninstallAll.
type Coordinator struct {
	opts Options

	mu      sync.Mutex
	futures map[model.InstallID]*future
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.LockRetry <= 0 {
		opts.LockRetry = defaultLockRetry
	}
	if opts.LockTracker == nil {
		opts.LockTracker = lock.NewTracker()
	}
	return &Coordinator{
		opts:    opts,
		futures: make(map[model.InstallID]*future),
	}
}

// Acquire resolves req to a validated dotnet host path, installing it
// if necessary. Concurrent calls for the same install id share one
// installation attempt.
func (c *Coordinator) Acquire(ctx context.Context, req model.AcquireRequest) (model.AcquireResult, error) {
	if err := req.Validate(false); err != nil {
		return model.AcquireResult{}, errs.New(errs.CategoryInput, err.Error())
	}

	event.Emit(c.opts.Sink, event.AcquireStarted, map[string]any{
		"version": req.Version,
		"mode":    string(req.Mode),
	})

	spec := model.VersionSpec{Raw: req.Version, Preview: model.PreviewAllow}
	resolvedVersion, err := c.opts.Resolver.Resolve(ctx, spec, req.Mode)
	if err != nil {
		event.Emit(c.opts.Sink, event.VersionResolutionFailed, map[string]any{
			"version": req.Version,
			"error":   err.Error(),
		})
		event.Emit(c.opts.Sink, event.AcquireFailed, map[string]any{"kind": "VersionResolutionFailed"})
		return model.AcquireResult{}, err
	}
	event.Emit(c.opts.Sink, event.VersionResolutionSucceeded, map[string]any{
		"version":  req.Version,
		"resolved": resolvedVersion,
	})

	id := computeInstallID(resolvedVersion, req.Architecture, req.Mode, req.InstallType)

	fut, isNew := c.joinOrCreate(id)
	if isNew {
		timeout := time.Duration(req.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = defaultInstallTimeout
		}
		go c.run(ctx, id, resolvedVersion, req, timeout)
	}

	return c.await(ctx, fut)
}

// joinOrCreate returns the in-flight future for id, creating one if
// none exists. isNew tells the caller whether it is responsible for
// starting the work.
func (c *Coordinator) joinOrCreate(id model.InstallID) (fut *future, isNew bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.futures[id]; ok {
		return existing, false
	}
	fut = &future{done: make(chan struct{})}
	c.futures[id] = fut
	return fut, true
}

// await blocks on fut until it completes or ctx is canceled.
// Cancellation only detaches this caller: the underlying install, if
// this was the triggering call, keeps running to completion so
// tracking state never wedges mid-install.
func (c *Coordinator) await(ctx context.Context, fut *future) (model.AcquireResult, error) {
	select {
	case <-fut.done:
		return fut.result, fut.err
	case <-ctx.Done():
		return model.AcquireResult{}, ctx.Err()
	}
}

// run performs the locked portion of acquire (steps 4-10) on a
// detached context bounded only by timeout, independent of any
// particular caller's cancellation. It still carries over the
// triggering caller's context values (e.g. a download progress
// callback) so ambient plumbing like progress reporting reaches the
// invoker even though Done()/Err() no longer depend on that caller.
func (c *Coordinator) run(triggerCtx context.Context, id model.InstallID, resolvedVersion string, req model.AcquireRequest, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	runCtx = withValuesFrom(runCtx, triggerCtx)

	result, err := c.acquireLocked(runCtx, id, resolvedVersion, req)

	c.mu.Lock()
	fut := c.futures[id]
	delete(c.futures, id)
	c.mu.Unlock()

	fut.result = result
	fut.err = err
	close(fut.done)
}

// acquireLocked executes steps 4-10 under the cross-process lock for id.
func (c *Coordinator) acquireLocked(ctx context.Context, id model.InstallID, resolvedVersion string, req model.AcquireRequest) (model.AcquireResult, error) {
	opts := lock.Options{
		SentinelPath:  c.opts.Paths.LockSentinel(string(id)),
		LockPath:      c.opts.Paths.LockFile(string(id)),
		RetryInterval: c.opts.LockRetry,
		Timeout:       c.opts.LockTimeout,
		Tracker:       c.opts.LockTracker,
	}

	out, err := lock.WithLock(ctx, opts, func() (any, error) {
		return c.acquireWithTrackingLocked(ctx, id, resolvedVersion, req)
	})
	if err != nil {
		return model.AcquireResult{}, err
	}
	return out.(model.AcquireResult), nil
}

func (c *Coordinator) acquireWithTrackingLocked(ctx context.Context, id model.InstallID, resolvedVersion string, req model.AcquireRequest) (model.AcquireResult, error) {
	doc, err := c.opts.TrackStore.Load()
	if err != nil {
		return model.AcquireResult{}, err
	}

	if rec, ok := doc.Get(id); ok {
		switch rec.State {
		case model.TrackInstalled:
			if _, statErr := os.Stat(rec.Directory); statErr == nil {
				rec.AddOwner(req.RequestingExtensionID)
				if err := c.opts.TrackStore.Save(doc); err != nil {
					return model.AcquireResult{}, err
				}
				event.Emit(c.opts.Sink, event.AlreadyInstalled, map[string]any{"version": rec.Version})
				return model.AcquireResult{DotnetPath: dotnetPathFor(rec.Directory)}, nil
			}
			// installed record but the directory is gone: self-heal.
			doc.Remove(id)
		case model.TrackInstalling, model.TrackPartial:
			event.Emit(c.opts.Sink, event.PartialInstallDetected, map[string]any{"version": rec.Version})
			os.RemoveAll(rec.Directory)
			doc.Remove(id)
		}
	}

	if path, ok := c.probeExistingHosts(ctx, resolvedVersion, req); ok {
		event.Emit(c.opts.Sink, event.PreinstallDetected, map[string]any{"path": path})
		return model.AcquireResult{DotnetPath: path}, nil
	}

	installDir := c.opts.Paths.InstallDir(resolvedVersion)
	doc.MarkInstalling(id, resolvedVersion, req.Architecture, req.Mode, req.InstallType, installDir)
	if err := c.opts.TrackStore.Save(doc); err != nil {
		return model.AcquireResult{}, err
	}

	inv, ok := c.opts.Invokers[req.InstallType]
	if !ok || inv == nil {
		doc.MarkPartial(id)
		_ = c.opts.TrackStore.Save(doc)
		return model.AcquireResult{}, errs.New(errs.CategoryInstallation, "no invoker registered for install type "+string(req.InstallType))
	}

	dotnetPath := dotnetPathFor(installDir)
	installErr := inv.Install(ctx, invoker.Context{
		Version:      resolvedVersion,
		InstallDir:   installDir,
		DotnetPath:   dotnetPath,
		Architecture: req.Architecture,
		Mode:         req.Mode,
		InstallType:  req.InstallType,
	})
	if installErr != nil {
		doc.MarkPartial(id)
		_ = c.opts.TrackStore.Save(doc)
		event.Emit(c.opts.Sink, event.AcquireFailed, map[string]any{"kind": "InstallFailed", "error": installErr.Error()})
		return model.AcquireResult{}, installErr
	}

	requirement := req.ToRequirement(resolvedVersion, false)
	if !c.opts.Validator.Meets(ctx, dotnetPath, requirement) {
		doc.MarkPartial(id)
		_ = c.opts.TrackStore.Save(doc)
		validationErr := errs.NewConditionsError(resolvedVersion, req.Architecture.String(), installDir)
		event.Emit(c.opts.Sink, event.AcquireFailed, map[string]any{"kind": "InstallationValidationFailed"})
		return model.AcquireResult{}, validationErr
	}
	event.Emit(c.opts.Sink, event.ConditionsValidated, map[string]any{"version": resolvedVersion})

	if err := doc.MarkInstalled(id); err != nil {
		return model.AcquireResult{}, errs.NewStateError("failed to mark install id installed", err)
	}
	if rec, ok := doc.Get(id); ok {
		rec.AddOwner(req.RequestingExtensionID)
	}
	if err := c.opts.TrackStore.Save(doc); err != nil {
		return model.AcquireResult{}, err
	}

	event.Emit(c.opts.Sink, event.AcquireCompleted, map[string]any{"version": resolvedVersion, "path": dotnetPath})
	return model.AcquireResult{DotnetPath: dotnetPath}, nil
}

// probeExistingHosts checks configured external hosts against the
// resolved requirement before falling back to installing. When
// AllowInvalidPaths is set, the first configured path is trusted
// without validation; otherwise each candidate must satisfy C5 in
// order, and entries that don't are skipped rather than rejected
// outright.
func (c *Coordinator) probeExistingHosts(ctx context.Context, resolvedVersion string, req model.AcquireRequest) (string, bool) {
	if len(c.opts.ExistingDotnetPaths) == 0 {
		return "", false
	}
	if c.opts.AllowInvalidPaths {
		return c.opts.ExistingDotnetPaths[0], true
	}

	requirement := req.ToRequirement(resolvedVersion, false)
	for _, path := range c.opts.ExistingDotnetPaths {
		if c.opts.Validator.Meets(ctx, path, requirement) {
			return path, true
		}
	}
	return "", false
}

func dotnetPathFor(installDir string) string {
	return filepath.Join(installDir, pathutil.DotnetExeName())
}

// valuesFromCtx combines a deadline-bearing context's cancellation
// with a separate context's values, so a goroutine can outlive its
// triggering caller's cancellation while still reading values that
// caller attached (progress callbacks, request-scoped loggers).
type valuesFromCtx struct {
	context.Context
	values context.Context
}

func withValuesFrom(base, values context.Context) context.Context {
	return valuesFromCtx{Context: base, values: values}
}

func (v valuesFromCtx) Value(key any) any {
	if val := v.Context.Value(key); val != nil {
		return val
	}
	return v.values.Value(key)
}
