// Package axadapter is the AX Adapter capability (spec.md §4.1): reading
// and writing window geometry, role/subrole, and settable-attribute flags
// for a process's windows. Two variants exist: Fake (deterministic,
// scriptable, records every call) for tests, and a darwin-only cgo
// implementation backed by the real Accessibility API.
package axadapter

import (
	"context"
	"sync"

	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/world/diag"
)

// WindowID is the AX-resolved CG window id counterpart.
type WindowID = uint32

// Adapter is the capability surface consumed by the AX Read Pool and the
// Placement Engine. All operations are blocking from the caller's view
// and fallible; setters are the only side-effecting operations.
type Adapter interface {
	ListWindows(ctx context.Context, pid int32) ([]WindowID, error)
	RoleSubrole(ctx context.Context, pid int32, id WindowID) (role, subrole string, err error)
	GetPosition(ctx context.Context, pid int32, id WindowID) (geom.Point, error)
	SetPosition(ctx context.Context, pid int32, id WindowID, p geom.Point) error
	GetSize(ctx context.Context, pid int32, id WindowID) (geom.Size, error)
	SetSize(ctx context.Context, pid int32, id WindowID, s geom.Size) error
	SettableAttrs(ctx context.Context, pid int32, id WindowID) (canPos, canSize bool, err error)
	WindowIDForElement(ctx context.Context, pid int32, elementHint string) (WindowID, bool, error)

	// Raise performs the AX "raise" action on a window element
	// (AXUIElementPerformAction(window, kAXRaiseAction) on darwin),
	// consumed by the Main-Op Queue's RaiseWindow operation.
	Raise(ctx context.Context, pid int32, id WindowID) error
	// Activate brings pid's application to the front (AXFrontmost on
	// darwin), consumed by the Main-Op Queue's ActivatePid operation.
	Activate(ctx context.Context, pid int32) error
}

// Op records one call made against a Fake, for test assertions.
type Op struct {
	Name string
	PID  int32
	ID   WindowID
	Args any
}

// windowState is a Fake's per-window scripted state.
type windowState struct {
	role, subrole      string
	pos                geom.Point
	size               geom.Size
	canPos, canSize    bool
	delay              func(op string) bool // returns true to simulate ax-gone
}

// Fake is a deterministic in-memory Adapter. Every method call is
// recorded into Ops for assertions; geometry mutations are applied
// immediately (no real OS round-trip, hence no real delay) unless a
// scripted quirk says otherwise via SetSettable, OnSetPosition,
// OnSetSize or OnRaise.
type Fake struct {
	mu      sync.Mutex
	windows map[WindowID]*windowState
	byPID   map[int32][]WindowID
	ops     []Op

	// Quirks let tests simulate non-compliant apps: e.g. an app that
	// clamps size changes, or one where SetPosition silently no-ops.
	onSetPosition func(pid int32, id WindowID, want geom.Point) geom.Point
	onSetSize     func(pid int32, id WindowID, want geom.Size) geom.Size
	onRaise       func(pid int32, id WindowID) error

	// diagReg/scenario, if set via UseDiag, receive a diag.Record each
	// time a scripted quirk actually manifests against a window, so a
	// scenario built from this Fake is introspectable via World.Status()
	// instead of only living in the hook closures themselves.
	diagReg  *diag.Registry
	scenario string
}

// UseDiag attaches a diagnostic registry and scenario name to the Fake:
// from this call on, every quirk that actually manifests (a clamped
// write, a non-settable attribute, a scripted Raise failure) is recorded
// against that scenario. Safe to call before or after AddWindow.
func (f *Fake) UseDiag(reg *diag.Registry, scenario string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diagReg, f.scenario = reg, scenario
}

// recordQuirk appends a quirk observation to the attached registry, if
// any. Caller must hold f.mu.
func (f *Fake) recordQuirk(pid int32, id WindowID, q diag.Quirk) {
	if f.diagReg == nil {
		return
	}
	f.diagReg.Record(f.scenario, diag.WindowInfo{PID: pid, ID: id, Quirks: []diag.Quirk{q}})
}

func NewFake() *Fake {
	return &Fake{
		windows: make(map[WindowID]*windowState),
		byPID:   make(map[int32][]WindowID),
	}
}

// AddWindow registers a scripted window with an initial frame and
// settable flags (both default true: a compliant app).
func (f *Fake) AddWindow(pid int32, id WindowID, role, subrole string, pos geom.Point, size geom.Size) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id] = &windowState{role: role, subrole: subrole, pos: pos, size: size, canPos: true, canSize: true}
	f.byPID[pid] = append(f.byPID[pid], id)
}

// SetSettable overrides the settable-position/size flags for a window,
// simulating a non-resizable or non-movable application.
func (f *Fake) SetSettable(id WindowID, canPos, canSize bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[id]; ok {
		w.canPos, w.canSize = canPos, canSize
		if !canPos || !canSize {
			f.recordQuirk(f.pidForWindowLocked(id), id, diag.QuirkNonResizable)
		}
	}
}

// pidForWindowLocked finds the owning pid for a scripted window id.
// Caller must hold f.mu.
func (f *Fake) pidForWindowLocked(id WindowID) int32 {
	for pid, ids := range f.byPID {
		for _, wid := range ids {
			if wid == id {
				return pid
			}
		}
	}
	return 0
}

// OnSetPosition / OnSetSize install hooks that transform the requested
// geometry before it's recorded as the window's new state, letting tests
// simulate clamping (anchored outcome) or silently-ignored writes.
func (f *Fake) OnSetPosition(fn func(pid int32, id WindowID, want geom.Point) geom.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSetPosition = fn
}

func (f *Fake) OnSetSize(fn func(pid int32, id WindowID, want geom.Size) geom.Size) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSetSize = fn
}

// OnRaise installs a hook overriding Raise's result for a scripted window,
// letting tests simulate permission errors without removing the window.
func (f *Fake) OnRaise(fn func(pid int32, id WindowID) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRaise = fn
}

// Ops returns a copy of every recorded call, in order.
func (f *Fake) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.ops...)
}

func (f *Fake) record(op Op) {
	f.ops = append(f.ops, op)
}

func (f *Fake) ListWindows(_ context.Context, pid int32) ([]WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "ListWindows", PID: pid})
	return append([]WindowID(nil), f.byPID[pid]...), nil
}

func (f *Fake) RoleSubrole(_ context.Context, pid int32, id WindowID) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "RoleSubrole", PID: pid, ID: id})
	w, ok := f.windows[id]
	if !ok {
		return "", "", ErrWindowGone
	}
	return w.role, w.subrole, nil
}

func (f *Fake) GetPosition(_ context.Context, pid int32, id WindowID) (geom.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "GetPosition", PID: pid, ID: id})
	w, ok := f.windows[id]
	if !ok {
		return geom.Point{}, ErrWindowGone
	}
	return w.pos, nil
}

func (f *Fake) SetPosition(_ context.Context, pid int32, id WindowID, p geom.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "SetPosition", PID: pid, ID: id, Args: p})
	w, ok := f.windows[id]
	if !ok {
		return ErrWindowGone
	}
	if !w.canPos {
		return ErrUnsupportedAttribute
	}
	if f.onSetPosition != nil {
		want := p
		p = f.onSetPosition(pid, id, p)
		if p != want {
			f.recordQuirk(pid, id, diag.QuirkIgnoresPosition)
		}
	}
	w.pos = p
	return nil
}

func (f *Fake) GetSize(_ context.Context, pid int32, id WindowID) (geom.Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "GetSize", PID: pid, ID: id})
	w, ok := f.windows[id]
	if !ok {
		return geom.Size{}, ErrWindowGone
	}
	return w.size, nil
}

func (f *Fake) SetSize(_ context.Context, pid int32, id WindowID, s geom.Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "SetSize", PID: pid, ID: id, Args: s})
	w, ok := f.windows[id]
	if !ok {
		return ErrWindowGone
	}
	if !w.canSize {
		return ErrUnsupportedAttribute
	}
	if f.onSetSize != nil {
		want := s
		s = f.onSetSize(pid, id, s)
		if s != want {
			f.recordQuirk(pid, id, diag.QuirkClampsSize)
		}
	}
	w.size = s
	return nil
}

func (f *Fake) SettableAttrs(_ context.Context, pid int32, id WindowID) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "SettableAttrs", PID: pid, ID: id})
	w, ok := f.windows[id]
	if !ok {
		return false, false, ErrWindowGone
	}
	return w.canPos, w.canSize, nil
}

func (f *Fake) WindowIDForElement(_ context.Context, pid int32, elementHint string) (WindowID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "WindowIDForElement", PID: pid, Args: elementHint})
	ids := f.byPID[pid]
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

func (f *Fake) Raise(_ context.Context, pid int32, id WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "Raise", PID: pid, ID: id})
	if f.onRaise != nil {
		if err := f.onRaise(pid, id); err != nil {
			f.recordQuirk(pid, id, diag.QuirkPermissionDenied)
			return err
		}
		return nil
	}
	if _, ok := f.windows[id]; !ok {
		return ErrWindowGone
	}
	return nil
}

func (f *Fake) Activate(_ context.Context, pid int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Op{Name: "Activate", PID: pid})
	return nil
}

// Frame is a convenience combining GetPosition+GetSize into one rect.
func (f *Fake) Frame(id WindowID) geom.Rect {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.windows[id]
	if w == nil {
		return geom.Rect{}
	}
	return geom.Rect{X: w.pos.X, Y: w.pos.Y, W: w.size.W, H: w.size.H}
}
