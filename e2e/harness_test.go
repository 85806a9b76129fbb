package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/terassyi/dotnetacquire/internal/acquire"
	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/invoker"
	"github.com/terassyi/dotnetacquire/internal/lock"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/pathutil"
	"github.com/terassyi/dotnetacquire/internal/track"
	"github.com/terassyi/dotnetacquire/internal/validate"
	"github.com/terassyi/dotnetacquire/internal/versionresolver"
)

// fakeIndex is a fixed-content versionresolver.Index, standing in for
// the release-index cache (C1) so these scenarios exercise the
// coordinator without a network call.
type fakeIndex struct {
	entries []model.ReleaseIndexEntry
}

func (f *fakeIndex) Fetch(ctx context.Context) (*model.IndexDocument, error) {
	return &model.IndexDocument{ReleasesIndex: f.entries}, nil
}

func (f *fakeIndex) FetchChannelReleases(ctx context.Context, url string) (*model.ChannelReleasesDocument, error) {
	return nil, fmt.Errorf("channel releases not used in this scenario")
}

// fakeInvoker stands in for the Install Invoker: instead of
// downloading and extracting a real archive, it writes a tiny shell
// script acting as the installed dotnet host, the same fixture shape
// internal/enumerate and internal/validate's own tests use for a
// fake host binary. The script prints a --list-sdks line for SDK
// installs and a --list-runtimes line for runtime installs.
type fakeInvoker struct {
	installCalls int
}

func (f *fakeInvoker) Install(ctx context.Context, installCtx invoker.Context) error {
	f.installCalls++
	if err := os.MkdirAll(installCtx.InstallDir, 0o755); err != nil {
		return err
	}
	line := fmt.Sprintf("%s [%s]", installCtx.Version,
		filepath.Join(installCtx.InstallDir, "sdk", installCtx.Version))
	if !installCtx.Mode.IsSDK() {
		family := installCtx.Mode.RuntimeFamily()
		line = fmt.Sprintf("%s %s [%s]", family, installCtx.Version,
			filepath.Join(installCtx.InstallDir, "shared", family))
	}
	script := fmt.Sprintf("#!/bin/sh\necho '%s'\n", line)
	return os.WriteFile(installCtx.DotnetPath, []byte(script), 0o755)
}

func (f *fakeInvoker) Uninstall(ctx context.Context, installCtx invoker.Context) error {
	return os.RemoveAll(installCtx.InstallDir)
}

// fixture bundles one Coordinator plus everything needed to inspect
// the storage root and tracking state a scenario mutated.
type fixture struct {
	coord *acquire.Coordinator
	paths *pathutil.Paths
	inv   *fakeInvoker
}

// newFixture builds a Coordinator backed by a temp storage root and a
// single "2.2"/"1.0"/"8.0" channel index, mirroring spec.md §8's S1-S6
// setup.
func newFixture(entries []model.ReleaseIndexEntry, existingHosts ...string) *fixture {
	tmpDir, err := os.MkdirTemp("", "dotnetacquire-e2e-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { os.RemoveAll(tmpDir) })

	paths, err := pathutil.New(pathutil.WithStorageRoot(tmpDir))
	Expect(err).NotTo(HaveOccurred())

	index := &fakeIndex{entries: entries}
	inv := &fakeInvoker{}

	coord := acquire.New(acquire.Options{
		Paths:               paths,
		Resolver:            versionresolver.New(index),
		Validator:           validate.New(event.NewMemorySink()),
		TrackStore:          track.New(paths.TrackingStateFile()),
		LockTracker:         lock.NewTracker(),
		Invokers:            map[model.InstallType]invoker.Invoker{model.InstallLocal: inv},
		Sink:                event.NewMemorySink(),
		ExistingDotnetPaths: existingHosts,
		LockTimeout:         2 * time.Second,
		LockRetry:           10 * time.Millisecond,
	})

	return &fixture{coord: coord, paths: paths, inv: inv}
}

// writeFakeHost writes a shell script standing in for an existing
// dotnet host: it answers `--list-runtimes [--arch X]` with listLine,
// and fails for any other requested --arch.
func writeFakeHost(dir, listLine, requireArch string) string {
	hostPath := filepath.Join(dir, "dotnet")
	var script string
	if requireArch == "" {
		script = fmt.Sprintf("#!/bin/sh\necho '%s'\n", listLine)
	} else {
		script = fmt.Sprintf("#!/bin/sh\ncase \"$*\" in\n*--arch\\ %s*) echo '%s' ;;\n*--arch*) exit 1 ;;\n*) echo '%s' ;;\nesac\n",
			requireArch, listLine, listLine)
	}
	Expect(os.WriteFile(hostPath, []byte(script), 0o755)).To(Succeed())
	return hostPath
}
