package invoker

import (
	"context"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
)

// GlobalInvoker delegates to the platform's native dotnet installer
// (the macOS/Windows installer packages, Linux distro packages). The
// actual installer invocations are out of scope: this type exists so
// acquire's state machine has a real InstallType branch to dispatch
// on, but it always fails until a platform-specific implementation is
// wired in by the caller. Tests substitute a fake satisfying Invoker
// directly instead of exercising this type.
type GlobalInvoker struct{}

// NewGlobalInvoker creates a GlobalInvoker.
func NewGlobalInvoker() *GlobalInvoker {
	return &GlobalInvoker{}
}

// Install always fails: no platform installer delegation is wired in.
func (g *GlobalInvoker) Install(ctx context.Context, installCtx Context) error {
	return errs.NewInstallError(installCtx.Version, "acquire", nil).
		WithVersion(installCtx.Version)
}

// Uninstall always fails: no platform installer delegation is wired in.
func (g *GlobalInvoker) Uninstall(ctx context.Context, installCtx Context) error {
	return errs.NewInstallError(installCtx.Version, "uninstall", nil).
		WithVersion(installCtx.Version)
}
