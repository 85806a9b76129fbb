package versionresolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/model"
)

var (
	fullPattern  = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-[0-9A-Za-z.-]+)?$`)
	bandPattern  = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d)xx$`)
	minorPattern = regexp.MustCompile(`^(\d+)\.(\d+)$`)
	majorPattern = regexp.MustCompile(`^(\d+)$`)
)

// classify determines the shape of a raw version spec string. It does
// not consult the release index; it only checks syntax.
func classify(raw string) (model.VersionSpecKind, error) {
	switch {
	case fullPattern.MatchString(raw):
		return model.SpecFull, nil
	case bandPattern.MatchString(raw):
		return model.SpecBand, nil
	case minorPattern.MatchString(raw):
		return model.SpecMajorMinor, nil
	case majorPattern.MatchString(raw):
		return model.SpecMajor, nil
	default:
		return "", errInvalidVersion(raw)
	}
}

// isPreview reports whether a fully specified version string carries
// a preview/prerelease suffix.
func isPreview(version string) bool {
	return strings.Contains(version, "-")
}

// bandOf extracts the hundreds-digit band from an SDK version's patch
// component, e.g. "8.0.103" -> 1. Runtime versions have no band; this
// is only meaningful for SDK mode.
func bandOf(version string) (band int, patchInBand int, ok bool) {
	m := fullPattern.FindStringSubmatch(version)
	if m == nil {
		return 0, 0, false
	}
	patch, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, false
	}
	return patch / 100, patch % 100, true
}

// channelAndBand extracts the major.minor prefix from a spec classified as
// band, e.g. "8.0.1xx" -> "8.0", band 1.
func channelAndBand(raw string) (channel string, band int, ok bool) {
	m := bandPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", 0, false
	}
	band, err := strconv.Atoi(m[3])
	if err != nil {
		return "", 0, false
	}
	return m[1] + "." + m[2], band, true
}

// majorOf extracts the leading integer from a major.minor or major
// spec string.
func majorOf(raw string) (int, bool) {
	m := minorPattern.FindStringSubmatch(raw)
	if m == nil {
		m = majorPattern.FindStringSubmatch(raw)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
