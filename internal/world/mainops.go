package world

import (
	"context"
	"time"

	"github.com/hotki-project/hotki-world/internal/apperr"
	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/mainqueue"
	"github.com/hotki-project/hotki-world/internal/placement"
)

// executeMainOp runs one drained Op on the UI thread goroutine. It never
// panics: every path returns a (possibly nil) error, which the UI-thread
// drainer hands to Complete for delivery to the enqueuer; the drainer
// does not log it.
func (w *World) executeMainOp(op mainqueue.Op) error {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	switch op.Kind {
	case mainqueue.OpPlaceGrid:
		return w.runPlaceGrid(ctx, op)
	case mainqueue.OpPlaceMoveGrid:
		return w.runPlaceMoveGrid(ctx, op)
	case mainqueue.OpRaiseWindow:
		return w.runRaiseWindow(ctx, op)
	case mainqueue.OpActivatePID:
		return w.deps.Adapter.Activate(ctx, op.PID)
	case mainqueue.OpFullscreenNonNative:
		return w.runFullscreenToggle(ctx, op)
	default:
		return apperr.New(apperr.EngineDispatch, "unknown main-op kind")
	}
}

func (w *World) runPlaceGrid(ctx context.Context, op mainqueue.Op) error {
	rect := geom.GridCell(op.VF, op.Grid.Cols, op.Grid.Rows, op.Grid.Col, op.Grid.Row)
	target := placement.Target{PID: op.PID, ID: op.ID, Rect: rect, VF: op.VF}
	outcome := w.engine.Apply(ctx, target, op.Opts)
	return outcomeErr(outcome)
}

func (w *World) runPlaceMoveGrid(ctx context.Context, op mainqueue.Op) error {
	target := placement.Target{PID: op.PID, ID: op.ID, Rect: op.MoveGrid.Dest, VF: op.VF}
	outcome := w.engine.Apply(ctx, target, op.Opts)
	return outcomeErr(outcome)
}

func (w *World) runRaiseWindow(ctx context.Context, op mainqueue.Op) error {
	err := w.deps.Adapter.Raise(ctx, op.PID, op.ID)
	if err == nil {
		return nil
	}
	if level, known := apperr.NoiseLevel(err); known {
		_ = level
		// Known-noise raise failure: spec.md §4.7 falls back to
		// activating the owning application instead of surfacing this.
		return w.deps.Adapter.Activate(ctx, op.PID)
	}
	return err
}

func (w *World) runFullscreenToggle(ctx context.Context, op mainqueue.Op) error {
	outcome := w.toggler.ToggleMaximize(ctx, w.deps.Adapter, op.PID, op.ID, op.VF, op.Opts)
	return outcomeErr(outcome)
}

func outcomeErr(o placement.Outcome) error {
	if o.Kind == placement.Failed {
		return o.Err
	}
	return nil
}
