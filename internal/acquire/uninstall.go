package acquire

import (
	"context"
	"os"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/invoker"
	"github.com/terassyi/dotnetacquire/internal/lock"
	"github.com/terassyi/dotnetacquire/internal/model"
)

// uninstallAllSentinel names the global lock path guarding
// uninstallAll, distinct from any per-install-id lock path.
const uninstallAllSentinel = "uninstall-all"

// UninstallRequest identifies a single install id to remove.
type UninstallRequest struct {
	Version      string
	Mode         model.Mode
	Architecture model.Architecture
	InstallType  model.InstallType
}

// Uninstall removes one install id: its tracking entry and, for a
// local install, its directory; for a global install, delegates
// removal to the platform uninstaller via the Invoker.
func (c *Coordinator) Uninstall(ctx context.Context, req UninstallRequest) error {
	id := computeInstallID(req.Version, req.Architecture, req.Mode, req.InstallType)

	event.Emit(c.opts.Sink, event.UninstallStarted, map[string]any{"version": req.Version})

	opts := lock.Options{
		SentinelPath:  c.opts.Paths.LockSentinel(string(id)),
		LockPath:      c.opts.Paths.LockFile(string(id)),
		RetryInterval: c.opts.LockRetry,
		Timeout:       c.opts.LockTimeout,
		Tracker:       c.opts.LockTracker,
	}

	_, err := lock.WithLock(ctx, opts, func() (any, error) {
		return nil, c.uninstallLocked(ctx, id)
	})
	if err != nil {
		return err
	}

	event.Emit(c.opts.Sink, event.UninstallCompleted, map[string]any{"version": req.Version})
	return nil
}

func (c *Coordinator) uninstallLocked(ctx context.Context, id model.InstallID) error {
	doc, err := c.opts.TrackStore.Load()
	if err != nil {
		return err
	}

	rec, ok := doc.Get(id)
	if !ok {
		return nil
	}

	inv := c.opts.Invokers[rec.InstallType]
	if inv != nil {
		if err := inv.Uninstall(ctx, invoker.Context{
			Version:      rec.Version,
			InstallDir:   rec.Directory,
			Architecture: rec.Architecture,
			Mode:         rec.Mode,
			InstallType:  rec.InstallType,
		}); err != nil {
			return err
		}
	} else if rec.Directory != "" {
		if err := os.RemoveAll(rec.Directory); err != nil {
			return errs.NewInstallError(rec.Version, "uninstall", err)
		}
	}

	doc.Remove(id)
	return c.opts.TrackStore.Save(doc)
}

// UninstallAll wipes the entire tool-owned install root and resets
// all tracking state. Global installs tracked under it are left
// untouched on disk (they live outside the tool-owned root) but their
// tracking entries are dropped along with everything else.
func (c *Coordinator) UninstallAll(ctx context.Context) error {
	opts := lock.Options{
		SentinelPath:  c.opts.Paths.LockSentinel(uninstallAllSentinel),
		LockPath:      c.opts.Paths.LockFile(uninstallAllSentinel),
		RetryInterval: c.opts.LockRetry,
		Timeout:       c.opts.LockTimeout,
		Tracker:       c.opts.LockTracker,
	}

	_, err := lock.WithLock(ctx, opts, func() (any, error) {
		if err := os.RemoveAll(c.opts.Paths.InstallRoot()); err != nil {
			return nil, errs.NewInstallError("all", "uninstall", err)
		}

		doc, err := c.opts.TrackStore.Load()
		if err != nil {
			return nil, err
		}
		doc.Reset()
		return nil, c.opts.TrackStore.Save(doc)
	})
	return err
}
