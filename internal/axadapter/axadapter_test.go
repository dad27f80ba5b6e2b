package axadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hotki-project/hotki-world/internal/geom"
)

func TestAddWindowDefaultsToCompliantSettableFlags(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{X: 1, Y: 2}, geom.Size{W: 3, H: 4})

	canPos, canSize, err := f.SettableAttrs(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, canPos)
	require.True(t, canSize)
}

func TestSetSettableOverridesFlags(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXDialog", geom.Point{}, geom.Size{W: 100, H: 100})
	f.SetSettable(10, false, true)

	canPos, canSize, err := f.SettableAttrs(context.Background(), 1, 10)
	require.NoError(t, err)
	require.False(t, canPos)
	require.True(t, canSize)

	require.ErrorIs(t, f.SetPosition(context.Background(), 1, 10, geom.Point{X: 5, Y: 5}), ErrUnsupportedAttribute)
	require.NoError(t, f.SetSize(context.Background(), 1, 10, geom.Size{W: 200, H: 200}))
}

func TestOnSetPositionHookTransformsWrite(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 100, H: 100})
	f.OnSetPosition(func(pid int32, id WindowID, want geom.Point) geom.Point {
		return geom.Point{X: 0, Y: want.Y}
	})

	require.NoError(t, f.SetPosition(context.Background(), 1, 10, geom.Point{X: 500, Y: 20}))
	pos, err := f.GetPosition(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, geom.Point{X: 0, Y: 20}, pos)
}

func TestOnSetSizeHookTransformsWrite(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 100, H: 100})
	f.OnSetSize(func(pid int32, id WindowID, want geom.Size) geom.Size {
		return geom.Size{W: want.W - 10, H: want.H}
	})

	require.NoError(t, f.SetSize(context.Background(), 1, 10, geom.Size{W: 300, H: 200}))
	size, err := f.GetSize(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, geom.Size{W: 290, H: 200}, size)
}

func TestOnRaiseHookOverridesResult(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 100, H: 100})
	sentinel := errors.New("permission denied")
	f.OnRaise(func(pid int32, id WindowID) error { return sentinel })

	require.ErrorIs(t, f.Raise(context.Background(), 1, 10), sentinel)
}

func TestRaiseMissingWindowReturnsErrWindowGone(t *testing.T) {
	f := NewFake()
	require.ErrorIs(t, f.Raise(context.Background(), 1, 999), ErrWindowGone)
}

func TestOperationsOnMissingWindowReturnErrWindowGone(t *testing.T) {
	f := NewFake()
	_, _, err := f.RoleSubrole(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrWindowGone)

	_, err = f.GetPosition(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrWindowGone)

	_, err = f.GetSize(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrWindowGone)

	err = f.SetPosition(context.Background(), 1, 999, geom.Point{})
	require.ErrorIs(t, err, ErrWindowGone)

	err = f.SetSize(context.Background(), 1, 999, geom.Size{})
	require.ErrorIs(t, err, ErrWindowGone)

	_, _, err = f.SettableAttrs(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrWindowGone)
}

func TestActivateAlwaysSucceedsAndIsRecorded(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Activate(context.Background(), 7))

	ops := f.Ops()
	require.Len(t, ops, 1)
	require.Equal(t, "Activate", ops[0].Name)
	require.Equal(t, int32(7), ops[0].PID)
}

func TestWindowIDForElementReturnsFirstWindowForPID(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{})
	f.AddWindow(1, 11, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{})

	id, ok, err := f.WindowIDForElement(context.Background(), 1, "hint")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, WindowID(10), id)

	_, ok, err = f.WindowIDForElement(context.Background(), 2, "hint")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpsRecordsEveryCallInOrder(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 1, H: 1})

	_, _ = f.GetPosition(context.Background(), 1, 10)
	_ = f.SetSize(context.Background(), 1, 10, geom.Size{W: 5, H: 5})

	ops := f.Ops()
	require.Len(t, ops, 2)
	require.Equal(t, "GetPosition", ops[0].Name)
	require.Equal(t, "SetSize", ops[1].Name)
}

func TestFrameCombinesPositionAndSize(t *testing.T) {
	f := NewFake()
	f.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{X: 10, Y: 20}, geom.Size{W: 300, H: 400})

	require.Equal(t, geom.Rect{X: 10, Y: 20, W: 300, H: 400}, f.Frame(10))
	require.Equal(t, geom.Rect{}, f.Frame(999), "an unknown window id yields the zero rect")
}
