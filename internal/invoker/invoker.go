// Package invoker implements the Install Invoker external interface:
// given a resolved version and target directory, produce a working
// dotnet installation. Two implementations exist, selected by
// installType: LocalInvoker (download + verify + extract under a
// tool-owned directory) and GlobalInvoker (platform-native installer
// delegation, a stub interface since writing new installers is out of
// scope).
package invoker

import (
	"context"

	"github.com/terassyi/dotnetacquire/internal/model"
)

// Context is the input to an Invoker, matching the external interface
// contract: version, installDir, dotnetPath, architecture, mode,
// installType, timeoutSeconds.
type Context struct {
	Version        string
	InstallDir     string
	DotnetPath     string
	Architecture   model.Architecture
	Mode           model.Mode
	InstallType    model.InstallType
	TimeoutSeconds int
}

// Invoker installs and uninstalls a dotnet runtime/SDK. On an Install
// error the coordinator marks the install id partial, emits one
// AcquireFailed event of kind "InstallFailed" carrying the error text,
// and returns the error unchanged; errors are not sorted into finer
// kinds.
type Invoker interface {
	Install(ctx context.Context, installCtx Context) error
	Uninstall(ctx context.Context, installCtx Context) error
}
