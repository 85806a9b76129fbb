package invoker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/terassyi/dotnetacquire/internal/download"
	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/extract"
	"github.com/terassyi/dotnetacquire/internal/model"
)

const defaultFeedBaseURL = "https://dotnetcli.azureedge.net/dotnet"

// LocalInvoker installs by downloading a version/architecture archive
// into a temp location, verifying its checksum, and extracting it
// under the tool-owned install directory. Grounded on the teacher's
// download-or-delegate runtime installer, dropped to download-only
// since dotnet hosts are invoked by absolute path rather than a PATH
// symlink the teacher's runtime installer also manages.
type LocalInvoker struct {
	downloader download.Downloader
	feedBase   string
}

// NewLocalInvoker creates a LocalInvoker using the given Downloader.
func NewLocalInvoker(downloader download.Downloader) *LocalInvoker {
	return &LocalInvoker{downloader: downloader, feedBase: defaultFeedBaseURL}
}

// Install downloads the archive for installCtx.Version/Architecture/Mode,
// verifies it, and extracts it into installCtx.InstallDir.
func (l *LocalInvoker) Install(ctx context.Context, installCtx Context) error {
	url := l.archiveURL(installCtx)

	tmpDir, err := os.MkdirTemp("", "dotnetacquire-*")
	if err != nil {
		return errs.NewInstallError(string(installCtx.Mode), "acquire", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, filepath.Base(url))
	if _, err := l.downloader.Download(ctx, url, archivePath); err != nil {
		return errs.NewInstallError(installCtx.Version, "acquire", err).WithVersion(installCtx.Version).WithURL(url)
	}

	if err := l.downloader.Verify(ctx, archivePath, checksumFor(installCtx, url)); err != nil {
		return err
	}

	archiveType := extract.DetectArchiveType(url)
	extractor, err := extract.NewExtractor(archiveType)
	if err != nil {
		return errs.NewInstallError(installCtx.Version, "acquire", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return errs.NewInstallError(installCtx.Version, "acquire", err)
	}
	defer f.Close()

	if err := os.MkdirAll(installCtx.InstallDir, 0755); err != nil {
		return errs.NewInstallError(installCtx.Version, "acquire", err)
	}

	if err := extractor.Extract(f, installCtx.InstallDir); err != nil {
		return errs.NewInstallError(installCtx.Version, "acquire", err).WithVersion(installCtx.Version)
	}

	return nil
}

// Uninstall removes the install directory entirely; the file layout
// places nothing else outside it for a local install.
func (l *LocalInvoker) Uninstall(ctx context.Context, installCtx Context) error {
	if err := os.RemoveAll(installCtx.InstallDir); err != nil {
		return errs.NewInstallError(installCtx.Version, "uninstall", err)
	}
	return nil
}

// archiveURL builds the canonical per-version/arch/os archive URL.
// Checksum is resolved from the adjacent ".sha" file published
// alongside every archive on the feed.
func (l *LocalInvoker) archiveURL(installCtx Context) string {
	osName := feedOSName()
	ext := "tar.gz"
	if osName == "win" {
		ext = "zip"
	}
	kind := "runtime"
	if installCtx.Mode.IsSDK() {
		kind = "sdk"
	}
	archStr := installCtx.Architecture.String()
	if archStr == "unknown" {
		archStr = runtime.GOARCH
	}
	return fmt.Sprintf("%s/%s/%s/dotnet-%s-%s-%s.%s",
		l.feedBase, kind, installCtx.Version, kind, installCtx.Version, osName+"-"+archStr, ext)
}

func feedOSName() string {
	switch runtime.GOOS {
	case "windows":
		return "win"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}

// checksumFor points the downloader at the archive's adjacent ".sha"
// checksum file, published alongside every build on the feed.
func checksumFor(installCtx Context, archiveURL string) *model.Checksum {
	return &model.Checksum{URL: archiveURL + ".sha"}
}
