// Package validate decides whether a host satisfies a structured
// Condition: it enumerates installs via internal/enumerate and runs
// each candidate through an architecture/mode/version/preview lattice.
package validate

import (
	"context"
	"strconv"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/enumerate"
	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/model"
)

// Validator evaluates Conditions against a host.
type Validator struct {
	sink event.Sink
}

// New creates a Validator that emits decisions to sink (nil is fine).
func New(sink event.Sink) *Validator {
	return &Validator{sink: sink}
}

// Meets reports whether hostPath satisfies requirement. SDKs
// implicitly include runtimes, so an SDK-mode host is listed for SDK
// requirements and runtime-mode hosts for everything else.
func (v *Validator) Meets(ctx context.Context, hostPath string, requirement model.Condition) bool {
	listMode := requirement.Mode
	if listMode.IsSDK() {
		listMode = model.ModeSDK
	}

	records, err := enumerate.List(ctx, hostPath, listMode, requirement.Architecture)
	if err != nil || len(records) == 0 {
		event.Emit(v.sink, event.ConditionsValidated, map[string]any{
			"host": hostPath, "satisfied": false, "reason": "no installs found",
		})
		return false
	}

	hostArch := resolveHostArch(ctx, records, hostPath, v.sink)

	for _, record := range records {
		if !archMatches(requirement.Architecture, hostArch) {
			continue
		}
		if !modeMatches(requirement.Mode, record.Mode) {
			continue
		}
		if !versionMatches(requirement, record.Version) {
			continue
		}
		if requirement.RejectPreviews && isPreview(record.Version) {
			continue
		}

		event.Emit(v.sink, event.ConditionsValidated, map[string]any{
			"host": hostPath, "satisfied": true, "version": record.Version,
		})
		return true
	}

	event.Emit(v.sink, event.ConditionsValidated, map[string]any{
		"host": hostPath, "satisfied": false, "reason": "no matching install",
	})
	return false
}

// resolveHostArch prefers the first listed install's architecture,
// falling back to the --info probe when unknown.
func resolveHostArch(ctx context.Context, records []model.InstalledRecord, hostPath string, sink event.Sink) model.Architecture {
	if len(records) > 0 && records[0].Architecture != model.ArchUnknown {
		return records[0].Architecture
	}
	return enumerate.InfoArchitecture(ctx, hostPath, sink)
}

// archMatches implements the permissive-by-default arch rule: no
// requirement, an unknown observed architecture, or an exact match
// after normalization all count as a match. ArchStrictUnknown never
// matches, including against itself.
func archMatches(required, observed model.Architecture) bool {
	if observed == model.ArchStrictUnknown {
		return false
	}
	if required == model.ArchUnknown {
		return true
	}
	if observed == model.ArchUnknown {
		return true
	}
	return required == observed
}

func modeMatches(required, actual model.Mode) bool {
	if required.IsSDK() {
		return true
	}
	return required == actual
}

func isPreview(version string) bool {
	return strings.Contains(version, "-")
}

// versionMatches implements the version comparison lattice: both
// versions decompose into (major, minor, patch | (band, patchInBand)).
func versionMatches(requirement model.Condition, available string) bool {
	a, aOK := decompose(available)
	r, rOK := decompose(requirement.Version)
	if !aOK || !rOK {
		return false
	}

	sdk := requirement.Mode.IsSDK()

	switch requirement.VersionSpecRequirement.Normalize() {
	case model.ReqEqual:
		return a == r
	case model.ReqGreaterThanOrEqual:
		return compareComponents(a, r) >= 0
	case model.ReqLessThanOrEqual:
		return compareComponents(a, r) <= 0
	case model.ReqLatestPatch:
		if a.major != r.major || a.minor != r.minor {
			return false
		}
		if sdk && a.band != r.band {
			return false
		}
		return a.patch >= r.patch
	case model.ReqLatestFeature:
		if a.major != r.major || a.minor != r.minor {
			return false
		}
		return a.patch >= r.patch
	default:
		return false
	}
}

// versionComponents is (major, minor, band, patchInBand) for SDK
// versions and (major, minor, 0, patch) for runtime versions.
type versionComponents struct {
	major, minor, band, patch int
}

func compareComponents(a, r versionComponents) int {
	switch {
	case a.major != r.major:
		return sign(a.major - r.major)
	case a.minor != r.minor:
		return sign(a.minor - r.minor)
	case a.band != r.band:
		return sign(a.band - r.band)
	default:
		return sign(a.patch - r.patch)
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func decompose(version string) (versionComponents, bool) {
	base := version
	if idx := strings.IndexByte(base, '-'); idx >= 0 {
		base = base[:idx]
	}
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return versionComponents{}, false
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patchField, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return versionComponents{}, false
	}
	return versionComponents{
		major: major,
		minor: minor,
		band:  patchField / 100,
		patch: patchField % 100,
	}, true
}
