// Package cgsource defines the CoreGraphics window-list collaborator
// World polls every reconcile pass (spec.md §6 "CG source (consumed)"),
// plus a deterministic fake used by every test in this module.
package cgsource

import (
	"sync"

	"github.com/hotki-project/hotki-world/internal/geom"
)

// WindowInfo is one CG-reported window, as returned by CGWindowListCopyWindowInfo
// on a real macOS host.
type WindowInfo struct {
	PID           int32
	ID            uint32
	Owner         string
	Title         string
	Layer         int32
	Bounds        geom.Rect
	OnScreen      bool
	OnActiveSpace bool
	Focused       bool
	Space         *uint64
	DisplayID     *uint32
}

// Display describes one connected display's integer bounds and visible
// frame (excluding menu bar and Dock).
type Display struct {
	ID            uint32
	Bounds        geom.Rect
	VisibleFrame  geom.Rect
}

// ListOptions narrows a CG poll.
type ListOptions struct {
	IncludeOffscreen bool
}

// Source is the CG collaborator's capability surface.
type Source interface {
	ListWindows(opts ListOptions) ([]WindowInfo, error)
	ActiveSpaces() ([]uint64, error)
	Displays() ([]Display, error)
}

// Fake is a deterministic, in-memory Source for tests. Safe for
// concurrent use: World polls it from its own goroutine while a test
// mutates it from another.
type Fake struct {
	mu       sync.Mutex
	windows  []WindowInfo
	spaces   []uint64
	displays []Display
	listErr  error
}

// NewFake returns an empty fake with one default display spanning a
// conventional 1440x900 primary screen.
func NewFake() *Fake {
	return &Fake{
		displays: []Display{{
			ID:           1,
			Bounds:       geom.Rect{X: 0, Y: 0, W: 1440, H: 900},
			VisibleFrame: geom.Rect{X: 0, Y: 0, W: 1440, H: 900},
		}},
		spaces: []uint64{1},
	}
}

// SetWindows replaces the fake's window list wholesale, simulating a CG
// snapshot. Callers pass a fresh slice each time; World never mutates it.
func (f *Fake) SetWindows(ws []WindowInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append([]WindowInfo(nil), ws...)
}

func (f *Fake) SetDisplays(ds []Display) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displays = append([]Display(nil), ds...)
}

func (f *Fake) SetActiveSpaces(spaces []uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spaces = append([]uint64(nil), spaces...)
}

// SetListWindowsError scripts ListWindows to fail with err until cleared
// with a nil argument, simulating a CG poll that can't complete (e.g. the
// window server is momentarily unreachable).
func (f *Fake) SetListWindowsError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *Fake) ListWindows(opts ListOptions) ([]WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]WindowInfo, 0, len(f.windows))
	for _, w := range f.windows {
		if !opts.IncludeOffscreen && !w.OnScreen {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (f *Fake) ActiveSpaces() ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.spaces...), nil
}

func (f *Fake) Displays() ([]Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Display(nil), f.displays...), nil
}
