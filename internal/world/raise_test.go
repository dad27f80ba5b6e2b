package world

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hotki-project/hotki-world/internal/apperr"
	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/cgsource"
)

func appIntent(pattern string) RaiseIntent {
	return RaiseIntent{AppRegex: regexp.MustCompile(pattern)}
}

func TestRequestRaiseSingleMatchRaisesDirectly(t *testing.T) {
	w, cg, ax := newTestWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "Foo", "Win1", true, false)})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 1 })

	receipt := w.RequestRaise(appIntent("^Foo$"))
	require.NotNil(t, receipt.Target)
	require.Equal(t, WindowKey{PID: 1, ID: 10}, *receipt.Target)

	waitUntil(t, time.Second, func() bool {
		for _, op := range ax.Ops() {
			if op.Name == "Raise" && op.PID == 1 && op.ID == 10 {
				return true
			}
		}
		return false
	})
}

func TestRequestRaiseNoMatchReturnsNilTarget(t *testing.T) {
	w, cg, _ := newTestWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "Foo", "Win1", true, false)})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 1 })

	receipt := w.RequestRaise(appIntent("^Nope$"))
	require.Nil(t, receipt.Target)
}

func TestRequestRaiseFiltersOffScreenWindows(t *testing.T) {
	w, cg, _ := newTestWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{
		cgWindow(1, 10, "Foo", "Offscreen", false, false),
		cgWindow(1, 11, "Foo", "Onscreen", true, false),
	})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 2 })

	receipt := w.RequestRaise(appIntent("^Foo$"))
	require.NotNil(t, receipt.Target)
	require.Equal(t, WindowKey{PID: 1, ID: 11}, *receipt.Target)
}

func TestRequestRaiseRotatesAmongMultipleMatches(t *testing.T) {
	w, cg, _ := newTestWorld(t)
	win0 := cgWindow(1, 10, "Foo", "Win0", true, false)
	win1 := cgWindow(1, 11, "Foo", "Win1", true, false)
	win2 := cgWindow(1, 12, "Foo", "Win2", true, false)
	cg.SetWindows([]cgsource.WindowInfo{win0, win1, win2})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 3 })
	// computeFocus falls back to the frontmost (index 0) entry when none
	// of CG's windows report Focused, so the table starts focused on win0.
	waitUntil(t, time.Second, func() bool {
		f := w.Focused()
		return f != nil && *f == WindowKey{PID: 1, ID: 10}
	})

	receipt := w.RequestRaise(appIntent("^Foo$"))
	require.Equal(t, WindowKey{PID: 1, ID: 11}, *receipt.Target, "with win0 focused, rotation should advance to win1")

	// Simulate the window manager actually moving focus to win1.
	win1.Focused = true
	cg.SetWindows([]cgsource.WindowInfo{win0, win1, win2})
	waitUntil(t, time.Second, func() bool {
		f := w.Focused()
		return f != nil && *f == WindowKey{PID: 1, ID: 11}
	})

	receipt = w.RequestRaise(appIntent("^Foo$"))
	require.Equal(t, WindowKey{PID: 1, ID: 12}, *receipt.Target, "rotation should wrap forward to win2")
}

func TestRequestRaiseFallsBackToFirstMatchWhenFocusedNotAMatch(t *testing.T) {
	w, cg, _ := newTestWorld(t)
	other := cgWindow(1, 9, "Other", "Other", true, true) // focused, but doesn't match the intent
	matchA := cgWindow(2, 10, "Foo", "A", true, false)
	matchB := cgWindow(2, 11, "Foo", "B", true, false)
	cg.SetWindows([]cgsource.WindowInfo{other, matchA, matchB})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 3 })
	waitUntil(t, time.Second, func() bool {
		f := w.Focused()
		return f != nil && *f == WindowKey{PID: 1, ID: 9}
	})

	receipt := w.RequestRaise(appIntent("^Foo$"))
	require.Equal(t, WindowKey{PID: 2, ID: 10}, *receipt.Target)
}

func TestRequestRaiseFallsBackToActivateOnNoisyRaiseFailure(t *testing.T) {
	w, cg, ax := newTestWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "Foo", "Win1", true, false)})
	waitUntil(t, time.Second, func() bool { return len(w.Snapshot()) == 1 })

	// Script a known-noise Raise failure (apperr.NoiseLevel classifies
	// ErrPermissionDenied as noise), which runRaiseWindow should recover
	// from by falling back to Activate instead of surfacing the error.
	ax.OnRaise(func(pid int32, id axadapter.WindowID) error {
		return apperr.ErrPermissionDenied
	})
	w.RequestRaise(appIntent("^Foo$"))

	waitUntil(t, time.Second, func() bool {
		for _, op := range ax.Ops() {
			if op.Name == "Activate" && op.PID == 1 {
				return true
			}
		}
		return false
	})
}
