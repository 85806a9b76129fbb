package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/terassyi/dotnetacquire/internal/enumerate"
	"github.com/terassyi/dotnetacquire/internal/model"
)

// computeInstallID content-addresses an install configuration: the
// same resolved version, architecture, mode, and install type always
// produce the same id, so two concurrent requests for the same
// configuration collapse onto one install.
func computeInstallID(version string, architecture model.Architecture, mode model.Mode, installType model.InstallType) model.InstallID {
	arch := architecture
	if arch == model.ArchUnknown {
		arch = enumerate.ProcessArchitecture()
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", version, arch, mode, installType)))
	return model.InstallID(hex.EncodeToString(sum[:])[:16])
}

// ComputeInstallID exposes computeInstallID for callers that need to
// seed or inspect persisted tracking state directly (e.g. simulating
// a crash mid-install in a test), rather than going through Acquire.
func ComputeInstallID(version string, architecture model.Architecture, mode model.Mode, installType model.InstallType) model.InstallID {
	return computeInstallID(version, architecture, mode, installType)
}
