package e2e

import (
	"context"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/terassyi/dotnetacquire/internal/acquire"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/track"
)

// scenarioTests implements spec.md §8's six end-to-end scenarios
// (S1-S6) against the public acquire API.
func scenarioTests() {
	It("S1: a concrete version install resolves, installs once, and ends up tracked installed", func() {
		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "2.2", LatestSdk: "2.2.5", LatestRuntime: "2.2.5"},
		})

		result, err := f.coord.Acquire(context.Background(), model.AcquireRequest{
			Version:     "2.2",
			Mode:        model.ModeRuntime,
			InstallType: model.InstallLocal,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.DotnetPath).To(ContainSubstring("2.2.5"))
		Expect(result.DotnetPath).To(Or(HaveSuffix("dotnet"), HaveSuffix("dotnet.exe")))
		Expect(f.inv.installCalls).To(Equal(1))

		store := track.New(f.paths.TrackingStateFile())
		doc, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		found := false
		for _, rec := range doc.Installs {
			if rec.Version == "2.2.5" {
				found = true
				Expect(rec.State).To(Equal(model.TrackInstalled))
			}
		}
		Expect(found).To(BeTrue(), "tracking state must carry an installed record for the resolved version")
	})

	It("S2: three concurrent acquires for the same version dedupe to a single install", func() {
		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "2.2", LatestSdk: "2.2.5", LatestRuntime: "2.2.5"},
		})
		req := model.AcquireRequest{Version: "2.2", Mode: model.ModeRuntime, InstallType: model.InstallLocal}

		var wg sync.WaitGroup
		results := make([]model.AcquireResult, 3)
		errs := make([]error, 3)
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = f.coord.Acquire(context.Background(), req)
			}(i)
		}
		wg.Wait()

		for i := 0; i < 3; i++ {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(results[i].DotnetPath).To(Equal(results[0].DotnetPath))
		}
		Expect(f.inv.installCalls).To(Equal(1))
	})

	It("S3: uninstallAll clears state, and a subsequent acquire reinstalls from scratch", func() {
		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "2.2", LatestSdk: "2.2.5", LatestRuntime: "2.2.5"},
		})
		req := model.AcquireRequest{Version: "2.2", Mode: model.ModeRuntime, InstallType: model.InstallLocal}

		first, err := f.coord.Acquire(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.coord.UninstallAll(context.Background())).To(Succeed())

		_, statErr := os.Stat(f.paths.InstallRoot())
		Expect(os.IsNotExist(statErr)).To(BeTrue(), "install root must not exist between the uninstallAll and the next acquire")

		store := track.New(f.paths.TrackingStateFile())
		doc, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Installs).To(BeEmpty())

		second, err := f.coord.Acquire(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.DotnetPath).To(Equal(first.DotnetPath))
		Expect(f.inv.installCalls).To(Equal(2), "the second acquire after uninstallAll must reinstall, not reuse stale tracking")

		_, statErr = os.Stat(f.paths.InstallRoot())
		Expect(statErr).NotTo(HaveOccurred())

		doc, err = store.Load()
		Expect(err).NotTo(HaveOccurred())
		found := false
		for _, rec := range doc.Installs {
			if rec.Version == "2.2.5" {
				found = true
				Expect(rec.State).To(Equal(model.TrackInstalled))
			}
		}
		Expect(found).To(BeTrue())
	})

	It("S4: a stale installing record with no backing directory is cleaned up and reinstalled", func() {
		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "1.0", LatestSdk: "1.0.16", LatestRuntime: "1.0.16"},
		})
		req := model.AcquireRequest{Version: "1.0", Mode: model.ModeRuntime, InstallType: model.InstallLocal}

		store := track.New(f.paths.TrackingStateFile())
		doc, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		id := acquire.ComputeInstallID("1.0.16", req.Architecture, req.Mode, req.InstallType)
		doc.MarkInstalling(id, "1.0.16", req.Architecture, req.Mode, req.InstallType, f.paths.InstallDir("1.0.16"))
		Expect(store.Save(doc)).To(Succeed())

		result, err := f.coord.Acquire(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.DotnetPath).To(ContainSubstring("1.0.16"))
		Expect(f.inv.installCalls).To(Equal(1))

		doc, err = store.Load()
		Expect(err).NotTo(HaveOccurred())
		rec, ok := doc.Get(id)
		Expect(ok).To(BeTrue())
		Expect(rec.State).To(Equal(model.TrackInstalled))
	})

	It("S5: an unresolvable version spec fails resolution without ever invoking the installer", func() {
		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "2.2", LatestSdk: "2.2.5", LatestRuntime: "2.2.5"},
		})

		_, err := f.coord.Acquire(context.Background(), model.AcquireRequest{
			Version:     "foo",
			Mode:        model.ModeRuntime,
			InstallType: model.InstallLocal,
		})
		Expect(err).To(HaveOccurred())
		Expect(f.inv.installCalls).To(Equal(0))
	})

	It("S6: a satisfying existing host short-circuits installation", func() {
		hostDir := GinkgoT().TempDir()
		hostPath := writeFakeHost(hostDir, "Microsoft.NETCore.App 8.0.3 [/opt/dotnet/shared/Microsoft.NETCore.App]", "x64")

		f := newFixture([]model.ReleaseIndexEntry{
			{ChannelVersion: "8.0", LatestSdk: "8.0.100", LatestRuntime: "8.0.3"},
		}, hostPath)

		result, err := f.coord.Acquire(context.Background(), model.AcquireRequest{
			Version:      "8.0",
			Mode:         model.ModeRuntime,
			Architecture: model.ArchX64,
			InstallType:  model.InstallLocal,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.DotnetPath).To(Equal(hostPath))
		Expect(f.inv.installCalls).To(Equal(0))
	})
}
