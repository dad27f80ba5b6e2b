//go:build darwin

package main

import (
	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/cgsource"
	"github.com/hotki-project/hotki-world/internal/world"
)

// newRealDeps wires the macOS-backed CG source and AX adapter into a
// World's collaborator set. The focus watcher is left nil: spec.md §1
// lists the focus-watcher thread among the collaborators treated as
// "external ... with stated contracts only", so no darwin implementation
// is built here; World treats an absent watcher as "no hints from that
// source", never fatal.
func newRealDeps() world.Deps {
	cg := cgsource.NewReal()
	ax := axadapter.NewReal()
	return world.Deps{
		CG:            cg,
		Adapter:       ax,
		AXGranted:     ax.AccessibilityGranted,
		ScreenGranted: cg.ScreenRecordingGranted,
	}
}
