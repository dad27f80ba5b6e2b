package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/cgsource"
	"github.com/hotki-project/hotki-world/internal/geom"
)

// newUndrivenWorld builds a World and exercises reconcile() directly, with
// no Run goroutine started: a test calling reconcile single-threadedly can
// read/write w's unexported fields safely without the actor's job
// indirection, which is what lets these tests assert eviction-pass
// counters and event ordering precisely.
func newUndrivenWorld(t *testing.T) (*World, *cgsource.Fake) {
	t.Helper()
	cg := cgsource.NewFake()
	ax := axadapter.NewFake()
	cfg := testConfig()
	w := New(cfg, Deps{CG: cg, Adapter: ax})
	return w, cg
}

func drainEvents(w *World) []Event {
	var out []Event
	c := w.hub.Subscribe()
	for {
		ev, ok := w.hub.Next(withImmediateDeadline(), c)
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func withImmediateDeadline() context.Context {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now())
	_ = cancel
	return ctx
}

func TestReconcileEmitsAddedOnFirstSight(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	c := w.hub.Subscribe()
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "App1", "Win1", true, false)})

	w.reconcile(false)

	ev, ok := w.hub.Next(context.Background(), c)
	require.True(t, ok)
	require.Equal(t, EventAdded, ev.Kind)
	require.Equal(t, WindowKey{PID: 1, ID: 10}, ev.Key)
}

func TestReconcileEmitsUpdatedOnTitleChange(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "App1", "Win1", true, false)})
	w.reconcile(false)

	c := w.hub.Subscribe()
	win := cgWindow(1, 10, "App1", "Win1 Renamed", true, false)
	cg.SetWindows([]cgsource.WindowInfo{win})
	w.reconcile(false)

	ev, ok := w.hub.Next(context.Background(), c)
	require.True(t, ok)
	require.Equal(t, EventUpdated, ev.Kind)
	require.True(t, ev.Delta.Title)
	require.Equal(t, "Win1 Renamed", ev.Window.Title)
}

func TestReconcileTwoPassEvictionBeforeRemoval(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(1, 10, "App1", "Win1", true, false)})
	w.reconcile(false)
	require.Contains(t, w.records, WindowKey{PID: 1, ID: 10})

	cg.SetWindows(nil)
	w.reconcile(false) // first miss: suspected, not yet evicted
	require.Contains(t, w.records, WindowKey{PID: 1, ID: 10}, "a single missing pass must not evict")
	require.Equal(t, 1, w.records[WindowKey{PID: 1, ID: 10}].SuspectMissingPasses)

	c := w.hub.Subscribe()
	w.reconcile(false) // second consecutive miss: evicted
	require.NotContains(t, w.records, WindowKey{PID: 1, ID: 10})

	ev, ok := w.hub.Next(context.Background(), c)
	require.True(t, ok)
	require.Equal(t, EventRemoved, ev.Kind)
	require.Equal(t, WindowKey{PID: 1, ID: 10}, ev.Key)
}

func TestReconcileMissingPassResetsOnReappearance(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	win := cgWindow(1, 10, "App1", "Win1", true, false)
	cg.SetWindows([]cgsource.WindowInfo{win})
	w.reconcile(false)

	cg.SetWindows(nil)
	w.reconcile(false)
	require.Equal(t, 1, w.records[WindowKey{PID: 1, ID: 10}].SuspectMissingPasses)

	cg.SetWindows([]cgsource.WindowInfo{win})
	w.reconcile(false)
	require.Equal(t, 0, w.records[WindowKey{PID: 1, ID: 10}].SuspectMissingPasses)
	require.Contains(t, w.records, WindowKey{PID: 1, ID: 10})
}

func TestReconcilePidReuseIsDistinctWindow(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(7, 100, "App1", "Win1", true, false)})
	w.reconcile(false)
	require.Contains(t, w.records, WindowKey{PID: 7, ID: 100})

	cg.SetWindows(nil)
	w.reconcile(false)
	w.reconcile(false) // evicts (7, 100)
	require.NotContains(t, w.records, WindowKey{PID: 7, ID: 100})

	// pid 7 reused with a new window id: a distinct key, not a resurrection
	// of the evicted one.
	cg.SetWindows([]cgsource.WindowInfo{cgWindow(7, 200, "App1Relaunched", "Win1", true, false)})
	w.reconcile(false)
	require.Contains(t, w.records, WindowKey{PID: 7, ID: 200})
	require.NotContains(t, w.records, WindowKey{PID: 7, ID: 100})
}

func TestReconcileEventOrderRemovedAddedUpdatedFocusChanged(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	stale := cgWindow(1, 10, "App1", "Stale", true, false)
	stays := cgWindow(1, 11, "App1", "Stays", true, false)
	cg.SetWindows([]cgsource.WindowInfo{stale, stays})
	w.reconcile(false)
	cg.SetWindows([]cgsource.WindowInfo{stays})
	w.reconcile(false) // first miss pass for `stale`

	c := w.hub.Subscribe()
	fresh := cgWindow(1, 12, "App2", "Fresh", true, true) // newly focused
	updatedStays := cgWindow(1, 11, "App1", "Stays Renamed", true, false)
	cg.SetWindows([]cgsource.WindowInfo{fresh, updatedStays})
	w.reconcile(false) // stale evicted (2nd miss), fresh added, stays updated, focus changes

	events := make([]Event, 0, 4)
	for {
		ev, ok := w.hub.Next(context.Background(), c)
		if !ok {
			break
		}
		events = append(events, ev)
		if len(events) == 4 {
			break
		}
	}
	require.Len(t, events, 4)
	require.Equal(t, EventRemoved, events[0].Kind)
	require.Equal(t, EventAdded, events[1].Kind)
	require.Equal(t, EventUpdated, events[2].Kind)
	require.Equal(t, EventFocusChanged, events[3].Kind)
}

func TestReconcileAXWatchFrontmostNarrowsAugmentation(t *testing.T) {
	w, cg := newUndrivenWorld(t)
	w.cfg.AXWatchFrontmost = true
	fake := w.deps.Adapter.(*axadapter.Fake)
	fake.AddWindow(1, 10, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 100, H: 100})
	fake.AddWindow(2, 20, "AXWindow", "AXStandardWindow", geom.Point{}, geom.Size{W: 100, H: 100})

	front := cgWindow(1, 10, "Frontmost", "Win1", true, false)
	back := cgWindow(2, 20, "Background", "Win2", true, false)
	cg.SetWindows([]cgsource.WindowInfo{front, back}) // front is cgList[0], the frontmost app

	w.reconcile(false)
	w.pool.Schedule(1, 10)
	w.pool.Schedule(2, 20)
	time.Sleep(20 * time.Millisecond)
	w.reconcile(false)

	require.NotNil(t, w.records[WindowKey{PID: 1, ID: 10}].AX, "frontmost app's window should get AX augmentation")
	require.Nil(t, w.records[WindowKey{PID: 2, ID: 20}].AX, "background app's window should be skipped when AXWatchFrontmost is set")
}

func TestReconcileCGErrorDegradesToNoUpdate(t *testing.T) {
	w, _ := newUndrivenWorld(t)
	w.deps.CG = erroringCG{}
	require.NotPanics(t, func() { w.reconcile(false) })
	require.Empty(t, w.records)
}

// TestReconcilePublishesResyncRecommendedAfterFailStreak exercises spec.md
// §3's "signalled when internal invariants suggest a full rebuild" contract
// for EventResyncRecommended: a CG source that keeps failing to list windows
// can't be fixed by another incremental reconcile pass.
func TestReconcilePublishesResyncRecommendedAfterFailStreak(t *testing.T) {
	w, _ := newUndrivenWorld(t)
	w.deps.CG = erroringCG{}
	c := w.hub.Subscribe()

	for i := 0; i < cgFailResyncThreshold-1; i++ {
		w.reconcile(false)
	}
	_, ok := w.hub.Next(withImmediateDeadline(), c)
	require.False(t, ok, "no resync event before the fail streak reaches the threshold")

	w.reconcile(false)
	ev, ok := w.hub.Next(context.Background(), c)
	require.True(t, ok)
	require.Equal(t, EventResyncRecommended, ev.Kind)
}

type erroringCG struct{}

func (erroringCG) ListWindows(cgsource.ListOptions) ([]cgsource.WindowInfo, error) {
	return nil, assertErr
}
func (erroringCG) ActiveSpaces() ([]uint64, error) { return nil, assertErr }
func (erroringCG) Displays() ([]cgsource.Display, error) { return nil, assertErr }

var assertErr = context.DeadlineExceeded
