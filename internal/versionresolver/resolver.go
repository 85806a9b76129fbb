// Package versionresolver maps a loose version spec ("8", "8.0",
// "8.0.1xx", "8.0.103") to a fully specified version, using the
// cached release index and, for band specs, a channel's releases
// file.
package versionresolver

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/releaseindex"
)

// Index is the subset of releaseindex.Client the resolver needs,
// narrowed to an interface so tests can supply a fake index.
type Index interface {
	Fetch(ctx context.Context) (*model.IndexDocument, error)
	FetchChannelReleases(ctx context.Context, releasesJSONURL string) (*model.ChannelReleasesDocument, error)
}

// Resolver resolves loose version specs against a release index.
type Resolver struct {
	index Index
}

// New creates a Resolver backed by the given Index.
func New(index Index) *Resolver {
	return &Resolver{index: index}
}

func errInvalidVersion(raw string) error {
	return errs.New(errs.CategoryInput, fmt.Sprintf("invalid version spec %q", raw)).
		WithDetail("spec", raw)
}

// Resolve turns spec into a fully specified version for mode.
func (r *Resolver) Resolve(ctx context.Context, spec model.VersionSpec, mode model.Mode) (string, error) {
	kind, err := classify(spec.Raw)
	if err != nil {
		return "", err
	}

	doc, err := r.index.Fetch(ctx)
	if err != nil {
		return "", err
	}

	var resolved string
	switch kind {
	case model.SpecFull:
		resolved = spec.Raw
	case model.SpecMajorMinor:
		resolved, err = r.resolveMajorMinor(doc, spec.Raw, mode)
	case model.SpecMajor:
		resolved, err = r.resolveMajor(doc, spec.Raw, mode)
	case model.SpecBand:
		resolved, err = r.resolveBand(ctx, doc, spec.Raw, mode)
	default:
		return "", errInvalidVersion(spec.Raw)
	}
	if err != nil {
		return "", err
	}

	if isPreview(resolved) && !spec.Preview.Allows() {
		return "", errs.NewVersionResolutionError(spec.Raw, "", nil).
			WithHint(fmt.Sprintf("resolved version %q is a preview but the caller's preview policy denies previews", resolved))
	}

	return resolved, nil
}

// resolveMajor normalizes "8" to the highest major.minor channel
// present in the index whose first component matches, then resolves
// that channel like a major.minor spec.
func (r *Resolver) resolveMajor(doc *model.IndexDocument, raw string, mode model.Mode) (string, error) {
	major, ok := majorOf(raw)
	if !ok {
		return "", errInvalidVersion(raw)
	}

	var best string
	var bestMinor int
	found := false
	for _, entry := range doc.ReleasesIndex {
		m, ok := majorOf(entry.ChannelVersion)
		if !ok || m != major {
			continue
		}
		_, minor, ok := splitMajorMinor(entry.ChannelVersion)
		if !ok {
			continue
		}
		if !found || minor > bestMinor {
			found = true
			bestMinor = minor
			best = entry.ChannelVersion
		}
	}
	if !found {
		return "", errs.NewVersionResolutionError(raw, "", nil).WithHint(fmt.Sprintf("no channel found for major version %d", major))
	}
	return r.resolveMajorMinor(doc, best, mode)
}

func splitMajorMinor(raw string) (major, minor int, ok bool) {
	m := minorPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(m[1])
	min, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// resolveMajorMinor selects the matching channel entry and returns
// its latest-sdk or latest-runtime field.
func (r *Resolver) resolveMajorMinor(doc *model.IndexDocument, channel string, mode model.Mode) (string, error) {
	entry, ok := findChannel(doc, channel)
	if !ok {
		return "", errs.NewVersionResolutionError(channel, channel, nil).WithHint(fmt.Sprintf("no channel %q in release index", channel))
	}

	if mode.IsSDK() {
		if entry.LatestSdk == "" {
			return "", errs.NewVersionResolutionError(channel, channel, nil).WithHint(fmt.Sprintf("channel %q has no latest-sdk", channel))
		}
		return entry.LatestSdk, nil
	}
	if entry.LatestRuntime == "" {
		return "", errs.NewVersionResolutionError(channel, channel, nil).WithHint(fmt.Sprintf("channel %q has no latest-runtime", channel))
	}
	return entry.LatestRuntime, nil
}

func findChannel(doc *model.IndexDocument, channel string) (model.ReleaseIndexEntry, bool) {
	for _, entry := range doc.ReleasesIndex {
		if entry.ChannelVersion == channel {
			return entry, true
		}
	}
	return model.ReleaseIndexEntry{}, false
}

// resolveBand restricts to the matching channel, fetches its
// per-version releases file, and picks the entry with the highest
// patch within the requested band. An empty band fails with
// VersionResolutionFailed rather than falling back to any other band.
func (r *Resolver) resolveBand(ctx context.Context, doc *model.IndexDocument, raw string, mode model.Mode) (string, error) {
	channel, band, ok := channelAndBand(raw)
	if !ok {
		return "", errInvalidVersion(raw)
	}

	if _, ok := findChannel(doc, channel); !ok {
		return "", errs.NewVersionResolutionError(raw, channel, nil).WithHint(fmt.Sprintf("no channel %q in release index", channel))
	}

	releasesDoc, err := r.index.FetchChannelReleases(ctx, releaseindex.ChannelReleasesURL(channel))
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, rel := range releasesDoc.Releases {
		var v string
		if mode.IsSDK() {
			v = rel.Sdk.Version
		} else {
			v = rel.Runtime.Version
		}
		if v == "" {
			continue
		}
		if mode.IsSDK() {
			b, _, ok := bandOf(v)
			if !ok || b != band {
				continue
			}
		}
		candidates = append(candidates, v)
	}

	if len(candidates) == 0 {
		return "", errs.NewVersionResolutionError(raw, channel, nil).WithHint(fmt.Sprintf("band %dxx is empty for channel %q", band, channel))
	}

	sort.Slice(candidates, func(i, j int) bool {
		return versionLess(candidates[i], candidates[j])
	})

	return candidates[len(candidates)-1], nil
}

// versionLess orders two dotted version strings using semver where
// possible, falling back to string comparison for anything semver
// can't parse (e.g. SDK versions with a band digit, which parse fine
// as plain major.minor.patch since the band is just part of patch).
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.LessThan(vb)
	}
	return a < b
}
