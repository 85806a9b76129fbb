package acquire

import (
	"context"

	"github.com/terassyi/dotnetacquire/internal/model"
)

// FindPath searches the coordinator's candidate roots (the tool-owned
// install root plus any configured existing dotnet paths) for a host
// that satisfies requirement, without installing anything. It returns
// ok == false rather than an error when nothing matches: a negative
// result here is a normal outcome, not a failure.
func (c *Coordinator) FindPath(ctx context.Context, requirement model.Condition) (path string, ok bool) {
	for _, candidate := range c.candidateRoots(requirement.Mode) {
		if c.opts.Validator.Meets(ctx, candidate, requirement) {
			return candidate, true
		}
	}
	return "", false
}

// candidateRoots lists every dotnet host path worth probing: each
// tracked install directory's host binary, plus any externally
// configured existing paths.
func (c *Coordinator) candidateRoots(mode model.Mode) []string {
	var roots []string

	if doc, err := c.opts.TrackStore.Load(); err == nil {
		for _, rec := range doc.Installs {
			if rec.State != model.TrackInstalled || rec.Mode != mode {
				continue
			}
			roots = append(roots, dotnetPathFor(rec.Directory))
		}
	}

	roots = append(roots, c.opts.ExistingDotnetPaths...)
	return roots
}
