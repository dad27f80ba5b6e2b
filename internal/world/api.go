package world

import (
	"context"
	"time"

	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/mainqueue"
	"github.com/hotki-project/hotki-world/internal/placement"
	"github.com/hotki-project/hotki-world/internal/world/hub"
)

// Snapshot returns every live window ordered by z, frontmost first
// (spec.md §4.5's snapshot()).
func (w *World) Snapshot() []Window {
	reply := make(chan []Window, 1)
	w.send(func(w *World) {
		keys := w.sortedKeysByZ()
		out := make([]Window, len(keys))
		for i, k := range keys {
			out[i] = windowFromRecord(w.records[k])
		}
		reply <- out
	})
	return <-reply
}

// Focused returns the currently focused window's key, if any.
func (w *World) Focused() *WindowKey {
	reply := make(chan *WindowKey, 1)
	w.send(func(w *World) { reply <- w.focusedKey })
	return <-reply
}

// FocusedWindow returns the full record of the focused window, if any.
func (w *World) FocusedWindow() *Window {
	reply := make(chan *Window, 1)
	w.send(func(w *World) {
		if w.focusedKey == nil {
			reply <- nil
			return
		}
		rec, ok := w.records[*w.focusedKey]
		if !ok {
			reply <- nil
			return
		}
		win := windowFromRecord(rec)
		reply <- &win
	})
	return <-reply
}

// ListWindowsForSpaces returns every live window whose recorded space is
// in spaces; windows with no known space are excluded.
func (w *World) ListWindowsForSpaces(spaces []uint64) []Window {
	want := make(map[uint64]bool, len(spaces))
	for _, s := range spaces {
		want[s] = true
	}
	reply := make(chan []Window, 1)
	w.send(func(w *World) {
		keys := w.sortedKeysByZ()
		out := make([]Window, 0, len(keys))
		for _, k := range keys {
			rec := w.records[k]
			if rec.Space != nil && want[*rec.Space] {
				out = append(out, windowFromRecord(rec))
			}
		}
		reply <- out
	})
	return <-reply
}

// AXProps returns the last-known AX-sourced properties for key, or nil if
// the window is unknown or AX data hasn't arrived yet.
func (w *World) AXProps(key WindowKey) *AXProps {
	reply := make(chan *AXProps, 1)
	w.send(func(w *World) {
		rec, ok := w.records[key]
		if !ok || rec.AX == nil {
			reply <- nil
			return
		}
		ax := *rec.AX
		reply <- &ax
	})
	return <-reply
}

// Status reports permission state, current poll interval, and live
// counts, never failing even when the underlying OS permissions are
// denied (spec.md §4.5's permissions gate).
func (w *World) Status() Status {
	reply := make(chan Status, 1)
	w.send(func(w *World) {
		s := Status{
			CurrentPollMs: w.currentPollMs,
			WindowCount:   len(w.records),
			Subscribers:   w.subscribers,
			DiagScenarios: len(w.diag.Scenarios()),
		}
		if w.deps.AXGranted != nil {
			s.AccessibilityGranted = w.deps.AXGranted()
		}
		if w.deps.ScreenGranted != nil {
			s.ScreenRecordingGranted = w.deps.ScreenGranted()
		}
		reply <- s
	})
	return <-reply
}

// HintRefresh requests an early reconcile pass, per spec.md §4.5's
// hint_refresh(): the next Run loop iteration clips its sleep rather than
// waiting out the full poll interval.
func (w *World) HintRefresh() {
	w.signalHint()
}

// Subscribe returns a cursor over the event hub, tracking the live
// subscriber count for Status/QuiescenceReport.
func (w *World) Subscribe() *hub.Cursor {
	reply := make(chan *hub.Cursor, 1)
	w.send(func(w *World) {
		w.subscribers++
		reply <- w.hub.Subscribe()
	})
	return <-reply
}

// Unsubscribe releases a cursor obtained from Subscribe, decrementing the
// live subscriber count. Safe to call at most once per cursor.
func (w *World) Unsubscribe(c *hub.Cursor) {
	w.send(func(w *World) {
		if w.subscribers > 0 {
			w.subscribers--
		}
	})
}

// NextEventUntil blocks for the next event on cursor, or returns
// (zero, false) once deadline passes without one arriving.
func (w *World) NextEventUntil(ctx context.Context, cursor *hub.Cursor, deadline time.Time) (Event, bool) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return w.hub.Next(ctx, cursor)
}

// RequestPlaceForWindow enqueues a grid placement for target, returning a
// receipt immediately; the actual apply runs on the UI thread.
func (w *World) RequestPlaceForWindow(target WindowKey, cols, rows, col, row int, opts placement.Options) CommandReceipt {
	reply := make(chan CommandReceipt, 1)
	w.send(func(w *World) {
		vf := w.vfForKey(target)
		receipt := nextReceipt(&target)
		op := mainqueue.Op{
			Kind: mainqueue.OpPlaceGrid,
			PID:  target.PID, ID: target.ID, VF: vf,
			Grid: mainqueue.GridSpec{Cols: cols, Rows: rows, Col: col, Row: row},
			Opts: opts,
		}
		_ = w.queue.Enqueue(op)
		reply <- receipt
	})
	return <-reply
}

// RequestPlaceMoveForWindow enqueues a placement to an explicit
// destination rectangle (dest.Dest) instead of a grid cell; the drainer
// runs it through the same Placement Engine as RequestPlaceForWindow.
func (w *World) RequestPlaceMoveForWindow(target WindowKey, dest mainqueue.MoveGridSpec, opts placement.Options) CommandReceipt {
	reply := make(chan CommandReceipt, 1)
	w.send(func(w *World) {
		vf := w.vfForKey(target)
		receipt := nextReceipt(&target)
		op := mainqueue.Op{
			Kind: mainqueue.OpPlaceMoveGrid,
			PID:  target.PID, ID: target.ID, VF: vf,
			MoveGrid: dest,
			Opts:     opts,
		}
		_ = w.queue.Enqueue(op)
		reply <- receipt
	})
	return <-reply
}

// Reset tears down every subscriber and clears all records, returning a
// quiescence report (spec.md §5): Subscriptions is the number of
// subscribers it tore down, InFlight the number of main-ops still queued
// at that moment. It does not wait for queued work to finish.
func (w *World) Reset() QuiescenceReport {
	reply := make(chan QuiescenceReport, 1)
	w.send(func(w *World) {
		w.hub.Close()
		report := QuiescenceReport{Subscriptions: w.subscribers, InFlight: w.queue.Len()}
		w.subscribers = 0
		w.records = make(map[WindowKey]*WindowRecord)
		w.focusedKey = nil
		w.focusedApp, w.focusedTitle = "", ""
		w.hub = hub.New[Event](w.cfg.EventsBuffer)
		reply <- report
	})
	return <-reply
}

// vfForKey resolves the visible frame a main-op targeting key should use.
// Must only be called from the writer goroutine (job closures).
func (w *World) vfForKey(key WindowKey) geom.Rect {
	rec, ok := w.records[key]
	if !ok {
		return w.visibleFrameForDisplay(nil)
	}
	return w.visibleFrameForDisplay(rec.DisplayID)
}
