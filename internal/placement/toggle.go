package placement

import (
	"context"

	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/placement/framestore"
)

// Toggler drives the UI-thread "maximize toggle" and "hide toggle"
// affordances described by the original's frame_storage.rs: before
// driving a window to a new frame (the visible frame for maximize, an
// off-screen park for hide), the window's current frame is remembered so
// the reverse operation can restore it exactly. Dropped from spec.md's
// algorithmic core but not excluded by any Non-goal (see SPEC_FULL.md §9).
type Toggler struct {
	engine        *Engine
	preMaximize   *framestore.Store
	hidden        *framestore.Store
}

func NewToggler(engine *Engine, preMaximizeCap, hiddenCap int) *Toggler {
	return &Toggler{
		engine:      engine,
		preMaximize: framestore.New(preMaximizeCap),
		hidden:      framestore.New(hiddenCap),
	}
}

// ToggleMaximize drives the window to fill vf if it is not currently at
// (approximately) vf, saving its prior frame first; if it is already at
// vf and a prior frame was saved, it restores that frame instead.
func (t *Toggler) ToggleMaximize(ctx context.Context, adapter axadapter.Adapter, pid int32, id axadapter.WindowID, vf geom.Rect, opts Options) Outcome {
	pos, err := adapter.GetPosition(ctx, pid, id)
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	size, err := adapter.GetSize(ctx, pid, id)
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	current := geom.Rect{X: pos.X, Y: pos.Y, W: size.W, H: size.H}

	if geom.Sub(vf, current).WithinEps(Epsilon) {
		if prior, ok := t.preMaximize.Take(pid, id); ok {
			return t.engine.Apply(ctx, Target{PID: pid, ID: id, Rect: prior, VF: vf}, opts)
		}
		return Outcome{Kind: Verified, Rect: current}
	}

	t.preMaximize.Put(pid, id, current)
	return t.engine.Apply(ctx, Target{PID: pid, ID: id, Rect: vf, VF: vf}, opts)
}

// ToggleHide parks a window at the given off-screen rect, saving its
// current frame so RestoreHidden can bring it back.
func (t *Toggler) ToggleHide(ctx context.Context, adapter axadapter.Adapter, pid int32, id axadapter.WindowID, parkRect, vf geom.Rect, opts Options) Outcome {
	pos, err := adapter.GetPosition(ctx, pid, id)
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	size, err := adapter.GetSize(ctx, pid, id)
	if err != nil {
		return Outcome{Kind: Failed, Err: err}
	}
	current := geom.Rect{X: pos.X, Y: pos.Y, W: size.W, H: size.H}
	t.hidden.Put(pid, id, current)
	return t.engine.Apply(ctx, Target{PID: pid, ID: id, Rect: parkRect, VF: vf}, opts)
}

// RestoreHidden restores a previously hidden window's saved frame, if
// any was recorded; reports ok=false if there's nothing to restore.
func (t *Toggler) RestoreHidden(ctx context.Context, pid int32, id axadapter.WindowID, vf geom.Rect, opts Options) (Outcome, bool) {
	prior, ok := t.hidden.Take(pid, id)
	if !ok {
		return Outcome{}, false
	}
	return t.engine.Apply(ctx, Target{PID: pid, ID: id, Rect: prior, VF: vf}, opts), true
}
