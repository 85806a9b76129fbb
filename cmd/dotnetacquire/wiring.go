package main

import (
	"time"

	"github.com/terassyi/dotnetacquire/internal/acquire"
	"github.com/terassyi/dotnetacquire/internal/config"
	"github.com/terassyi/dotnetacquire/internal/download"
	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/invoker"
	"github.com/terassyi/dotnetacquire/internal/lock"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/pathutil"
	"github.com/terassyi/dotnetacquire/internal/releaseindex"
	"github.com/terassyi/dotnetacquire/internal/track"
	"github.com/terassyi/dotnetacquire/internal/validate"
	"github.com/terassyi/dotnetacquire/internal/versionresolver"
)

// newCoordinator wires a Coordinator from the loaded configuration,
// following the teacher's pattern of building collaborators directly
// in the command layer rather than through a DI container.
func newCoordinator(cfg *config.Config) (*acquire.Coordinator, *pathutil.Paths, error) {
	paths, err := pathutil.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := pathutil.EnsureDir(paths.StorageRoot()); err != nil {
		return nil, nil, err
	}

	index, err := releaseindex.New(releaseindex.Options{
		CachePath: paths.ReleaseIndexCacheFile(),
		CacheTTL:  time.Duration(cfg.CacheTTLMs) * time.Millisecond,
		ProxyURL:  cfg.ProxyURL,
	})
	if err != nil {
		return nil, nil, err
	}

	sink := event.NewSlogSink(nil)

	coord := acquire.New(acquire.Options{
		Paths:       paths,
		Resolver:    versionresolver.New(index),
		Validator:   validate.New(sink),
		TrackStore:  track.New(paths.TrackingStateFile()),
		LockTracker: lock.NewTracker(),
		Invokers: map[model.InstallType]invoker.Invoker{
			model.InstallLocal:  invoker.NewLocalInvoker(download.NewDownloader()),
			model.InstallGlobal: invoker.NewGlobalInvoker(),
		},
		Sink:                sink,
		ExistingDotnetPaths: cfg.ExistingDotnetPath,
		AllowInvalidPaths:   cfg.AllowInvalidPaths,
		LockTimeout:         time.Duration(cfg.InstallTimeoutSeconds) * time.Second,
	})

	return coord, paths, nil
}
