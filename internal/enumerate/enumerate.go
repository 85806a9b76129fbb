// Package enumerate lists installed SDKs/runtimes under a candidate
// dotnet host by invoking --list-sdks / --list-runtimes, reconciling
// architecture with internal/arch, and falling back to an --info probe
// when the binary's own header doesn't settle it.
package enumerate

import (
	"context"
	"runtime"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/arch"
	"github.com/terassyi/dotnetacquire/internal/hostexec"
	"github.com/terassyi/dotnetacquire/internal/model"
)

const multilevelLookupEnv = "DOTNET_MULTILEVEL_LOOKUP"

// familyToMode maps a runtime's self-reported family string to a Mode.
// Families not present here are ignored when listing runtimes.
var familyToMode = map[string]model.Mode{
	"Microsoft.AspNetCore.App": model.ModeAspNetCore,
	"Microsoft.NETCore.App":    model.ModeRuntime,
}

// List enumerates installed SDKs or runtimes under hostPath.
func List(ctx context.Context, hostPath string, mode model.Mode, requestedArch model.Architecture) ([]model.InstalledRecord, error) {
	hostArch, hostArchKnown := arch.Detect(hostPath)

	if requestedArch == model.ArchUnknown {
		requestedArch = processArch()
	}

	env := map[string]string{multilevelLookupEnv: "0"}

	args := []string{listFlag(mode), "--arch", requestedArch.String()}
	result, err := hostexec.Run(ctx, hostPath, args, env)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, nil
	}

	records := parseListOutput(result.Stdout, mode)

	resolvedArch := hostArch
	archKnown := hostArchKnown
	if !archKnown {
		if supportsArchFlag(ctx, hostPath, env) {
			resolvedArch = requestedArch
			archKnown = true
		}
	}

	for i := range records {
		if archKnown {
			records[i].Architecture = resolvedArch
		}
	}

	return records, nil
}

// ProcessArchitecture maps Go's GOARCH to the caller's arch
// vocabulary, exported so other components (the Acquisition
// Coordinator's install id hash) can use the same process-default
// architecture without re-deriving it.
func ProcessArchitecture() model.Architecture {
	return processArch()
}

// processArch maps Go's GOARCH to the caller's arch vocabulary, used
// as the default --arch value when the request leaves it unspecified.
func processArch() model.Architecture {
	switch runtime.GOARCH {
	case "amd64":
		return model.ArchX64
	case "386":
		return model.ArchX86
	case "arm64":
		return model.ArchArm64
	default:
		return model.ArchOther
	}
}

func listFlag(mode model.Mode) string {
	if mode.IsSDK() {
		return "--list-sdks"
	}
	return "--list-runtimes"
}

// parseListOutput parses "<version> [path]" lines for SDKs and
// "<family> <version> [path]" lines for runtimes.
func parseListOutput(output string, mode model.Mode) []model.InstalledRecord {
	var records []model.InstalledRecord
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if mode.IsSDK() {
			fields := strings.SplitN(line, " ", 2)
			if len(fields) < 2 {
				continue
			}
			version := fields[0]
			dir := extractBracketed(fields[1])
			records = append(records, model.InstalledRecord{
				Mode:      model.ModeSDK,
				Version:   version,
				Directory: dir,
			})
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			continue
		}
		family, version, rest := fields[0], fields[1], fields[2]
		recordMode, known := familyToMode[family]
		if !known {
			continue
		}
		dir := extractBracketed(rest)
		records = append(records, model.InstalledRecord{
			Mode:      recordMode,
			Version:   version,
			Directory: dir,
		})
	}
	return records
}

// extractBracketed pulls the path out of a trailing "[path]" segment.
func extractBracketed(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s[1 : len(s)-1]
	}
	return s
}

// supportsArchFlag probes whether hostPath honors --arch: a host that
// supports it exits non-zero for an invalid architecture, one that
// silently ignores it prints the same output as without the flag.
func supportsArchFlag(ctx context.Context, hostPath string, env map[string]string) bool {
	result, err := hostexec.Run(ctx, hostPath, []string{"--list-runtimes", "--arch", "invalid-arch"}, env)
	if err != nil {
		return false
	}
	return result.ExitCode != 0
}
