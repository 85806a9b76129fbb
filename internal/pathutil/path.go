// Package pathutil centralizes the on-disk layout dotnetacquire uses
// for installed runtimes/SDKs, lock sentinels, and the release-index
// cache, so every component agrees on one
// directory tree per storage root.
package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/config"
)

// Default path suffixes (relative to home directory).
const (
	defaultUserDataSuffix  = ".local/share/dotnetacquire"
	defaultUserCacheSuffix = ".cache/dotnetacquire"
)

// Paths holds the configurable storage root for dotnetacquire and
// derives every file and directory path components need from it.
type Paths struct {
	storageRoot  string
	userCacheDir string
}

// Option is a functional option for configuring Paths.
type Option func(*Paths)

// WithStorageRoot overrides the default storage root.
func WithStorageRoot(dir string) Option {
	return func(p *Paths) {
		p.storageRoot = dir
	}
}

// New creates a new Paths with optional custom configuration. The
// default storage root is ~/.local/share/dotnetacquire.
func New(opts ...Option) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := &Paths{
		storageRoot:  filepath.Join(home, defaultUserDataSuffix),
		userCacheDir: filepath.Join(home, defaultUserCacheSuffix),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// NewFromConfig creates Paths from a loaded config.Config.
func NewFromConfig(cfg *config.Config) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	storageRoot := filepath.Join(home, defaultUserDataSuffix)
	if cfg.StorageRoot != "" {
		expanded, err := Expand(cfg.StorageRoot)
		if err != nil {
			return nil, err
		}
		storageRoot = expanded
	}

	return &Paths{
		storageRoot:  storageRoot,
		userCacheDir: filepath.Join(home, defaultUserCacheSuffix),
	}, nil
}

// StorageRoot returns the root of the managed installation tree.
func (p *Paths) StorageRoot() string { return p.storageRoot }

// UserCacheDir returns the user cache directory (unrelated to the
// release-index cache, which lives under StorageRoot).
func (p *Paths) UserCacheDir() string { return p.userCacheDir }

// dotnetExeName returns "dotnet.exe" on Windows and "dotnet" elsewhere.
func dotnetExeName() string {
	if runtime.GOOS == "windows" {
		return "dotnet.exe"
	}
	return "dotnet"
}

// DotnetExeName exports dotnetExeName for components outside this
// package that need to derive a dotnet host path from a directory.
func DotnetExeName() string {
	return dotnetExeName()
}

// InstallRoot returns <storage>/.dotnet, the parent of every
// local-install version directory.
func (p *Paths) InstallRoot() string {
	return filepath.Join(p.storageRoot, ".dotnet")
}

// InstallDir returns <storage>/.dotnet/<version>, the root of one
// local-install version's tree (containing dotnet[.exe], sdk/, shared/).
func (p *Paths) InstallDir(version string) string {
	return filepath.Join(p.storageRoot, ".dotnet", version)
}

// InstallDotnetPath returns the dotnet host executable path inside a
// version's install directory.
func (p *Paths) InstallDotnetPath(version string) string {
	return filepath.Join(p.InstallDir(version), dotnetExeName())
}

// LocksDir returns <storage>/locks.
func (p *Paths) LocksDir() string {
	return filepath.Join(p.storageRoot, "locks")
}

// LockSentinel returns <storage>/locks/<install-id>.lock, the
// existence-as-truth sentinel for an in-progress install. The actual
// OS-level advisory lock is taken on LockFile's sibling.
func (p *Paths) LockSentinel(installID string) string {
	return filepath.Join(p.LocksDir(), installID+".lock")
}

// LockFile returns the path flock operates on for an install id: a
// sibling of the sentinel file with a doubled suffix, matching
// gofrs/flock's convention of locking a dedicated file rather than the
// sentinel's own content.
func (p *Paths) LockFile(installID string) string {
	return p.LockSentinel(installID) + ".lock"
}

// ReleaseIndexCacheFile returns <storage>/releases.json, the cached
// release-index document.
func (p *Paths) ReleaseIndexCacheFile() string {
	return filepath.Join(p.storageRoot, "releases.json")
}

// TrackingStateFile returns <storage>/install-state.json, the
// persisted Install Tracking State document.
func (p *Paths) TrackingStateFile() string {
	return filepath.Join(p.storageRoot, "install-state.json")
}

// TrackingStateLockFile returns the lock file guarding
// TrackingStateFile.
func (p *Paths) TrackingStateLockFile() string {
	return filepath.Join(p.storageRoot, "install-state.json.lock")
}

// EnsureDir creates a directory (and parents) if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Expand expands a leading ~ to the user's home directory.
func Expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
