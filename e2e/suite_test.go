// Package e2e drives the public acquire API the way a caller
// (cmd/dotnetacquire, or an extension embedding this module) does,
// exercising the full coordinator against fake hosts and a temp
// storage root rather than real dotnet downloads.
package e2e

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "dotnetacquire E2E Suite", Label("e2e"))
}

// Single top-level Describe with Ordered so S1-S6 execute in the
// order they're written. Each scenario builds its own fixture over a
// fresh temp storage root and does not depend on another's state.
var _ = Describe("dotnetacquire acquire API", Ordered, func() {
	Context("Scenarios", scenarioTests)
})
