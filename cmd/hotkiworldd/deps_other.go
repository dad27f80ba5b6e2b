//go:build !darwin

package main

import (
	"fmt"
	"os"

	"github.com/hotki-project/hotki-world/internal/world"
)

// newRealDeps has no non-darwin implementation: CoreGraphics and
// Accessibility are macOS-only system frameworks (spec.md §1's Non-goals
// exclude cross-platform windowing entirely).
func newRealDeps() world.Deps {
	fmt.Fprintln(os.Stderr, "hotkiworldd: this build only runs on macOS")
	os.Exit(1)
	panic("unreachable")
}
