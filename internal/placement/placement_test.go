package placement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/geom"
)

func fastLimits() RetryLimits {
	l := DefaultRetryLimits()
	l.VerifyPoll = 0
	l.VerifyTimeout = 0
	return l
}

func TestApplyVerifiesCompliantWindow(t *testing.T) {
	fake := axadapter.NewFake()
	fake.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{X: 0, Y: 0}, geom.Size{W: 100, H: 100})
	engine := New(fake)

	target := Target{
		PID: 1, ID: 10,
		Rect: geom.Rect{X: 50, Y: 60, W: 400, H: 300},
		VF:   geom.Rect{X: 0, Y: 0, W: 1440, H: 900},
	}
	outcome := engine.Apply(context.Background(), target, Options{Limits: fastLimits()})

	require.Equal(t, Verified, outcome.Kind)
	require.True(t, geom.Sub(target.Rect, outcome.Rect).WithinEps(Epsilon))
	require.Equal(t, 1, outcome.Attempts["primary"])
}

func TestApplyAnchorsNonResizableWindow(t *testing.T) {
	fake := axadapter.NewFake()
	vf := geom.Rect{X: 0, Y: 0, W: 1440, H: 900}
	fake.AddWindow(1, 11, "AXWindow", "AXDialog", geom.Point{X: 0, Y: 0}, geom.Size{W: 300, H: 200})
	fake.SetSettable(11, true, false)
	// The app clamps every X write to the visible frame's left edge but
	// honors the requested Y, simulating a window pinned to that edge.
	fake.OnSetPosition(func(pid int32, id axadapter.WindowID, want geom.Point) geom.Point {
		return geom.Point{X: vf.X, Y: want.Y}
	})
	engine := New(fake)

	target := Target{PID: 1, ID: 11, Rect: geom.Rect{X: 500, Y: 0, W: 300, H: 200}, VF: vf}
	outcome := engine.Apply(context.Background(), target, Options{Limits: fastLimits()})

	require.Equal(t, Anchored, outcome.Kind)
	require.True(t, outcome.Flags.Left)
}

func TestApplyAxisNudgeFixesSingleOffAxis(t *testing.T) {
	fake := axadapter.NewFake()
	fake.AddWindow(1, 12, "AXWindow", "AXStandardWindow", geom.Point{X: 0, Y: 0}, geom.Size{W: 100, H: 100})
	// SetSize shrinks width by 10px for the primary and swap attempts, then
	// complies exactly once nudge re-issues it, leaving width as the only
	// axis the earlier attempts left off.
	calls := 0
	fake.OnSetSize(func(pid int32, id axadapter.WindowID, want geom.Size) geom.Size {
		calls++
		if calls <= 3 {
			return geom.Size{W: want.W - 10, H: want.H}
		}
		return want
	})
	engine := New(fake)

	target := Target{PID: 1, ID: 12, Rect: geom.Rect{X: 10, Y: 10, W: 400, H: 300}, VF: geom.Rect{X: 0, Y: 0, W: 1440, H: 900}}
	outcome := engine.Apply(context.Background(), target, Options{Limits: fastLimits()})

	require.Equal(t, Verified, outcome.Kind)
	require.Greater(t, outcome.Attempts["nudge"], 0)
}

func TestApplyFailsWithVerificationError(t *testing.T) {
	fake := axadapter.NewFake()
	fake.AddWindow(1, 13, "AXWindow", "AXStandardWindow", geom.Point{X: 0, Y: 0}, geom.Size{W: 100, H: 100})
	fake.OnSetPosition(func(pid int32, id axadapter.WindowID, want geom.Point) geom.Point {
		return geom.Point{X: 0, Y: 0} // app never actually moves
	})
	fake.OnSetSize(func(pid int32, id axadapter.WindowID, want geom.Size) geom.Size {
		return geom.Size{W: 100, H: 100} // app never actually resizes
	})
	engine := New(fake)

	target := Target{PID: 1, ID: 13, Rect: geom.Rect{X: 500, Y: 500, W: 400, H: 300}, VF: geom.Rect{X: 0, Y: 0, W: 1440, H: 900}}
	outcome := engine.Apply(context.Background(), target, Options{Limits: fastLimits()})

	require.Equal(t, Failed, outcome.Kind)
	var verr *VerificationFailedError
	require.ErrorAs(t, outcome.Err, &verr)
	require.Equal(t, target.Rect, verr.Expected)
}
