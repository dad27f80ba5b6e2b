package world

import (
	"github.com/hotki-project/hotki-world/internal/cgsource"
	"github.com/hotki-project/hotki-world/internal/geom"
)

const (
	evictAfterPasses = 2
	hintCeilingMs    = 50
	backoffFactor    = 1.5

	// cgFailResyncThreshold is how many consecutive failed CG polls
	// recommend a full external resync: spec.md §3's EventResyncRecommended
	// is "signalled when internal invariants suggest a full rebuild", and a
	// CG source that can't be listed for several passes running means this
	// World's cache is stale in a way incremental reconcile can't fix.
	cgFailResyncThreshold = 3
)

// reconcile runs one pass of spec.md §4.5's reconcile loop steps 3-7
// (steps 1-2, the sleep and hint clip, happen in Run's select before
// this is called). hinted reports whether this pass was triggered early
// by a hint rather than the normal poll interval.
func (w *World) reconcile(hinted bool) {
	if hinted {
		w.currentPollMs = minInt(w.currentPollMs, hintCeilingMs)
	}

	cgList, err := w.deps.CG.ListWindows(cgsource.ListOptions{IncludeOffscreen: w.cfg.IncludeOffscreen})
	if err != nil {
		// CG failures degrade to "no update this pass"; never fatal
		// (spec.md §7 propagation policy). A streak of them, though, means
		// the cache can no longer be trusted incrementally.
		w.cgFailStreak++
		if w.cgFailStreak == cgFailResyncThreshold {
			w.hub.Publish(resyncRecommendedEvent())
		}
		return
	}
	w.cgFailStreak = 0
	if displays, derr := w.deps.CG.Displays(); derr == nil {
		w.displays = displays
	}

	seen := make(map[WindowKey]bool, len(cgList))
	var added, updated []Event
	var removed []Event

	var frontmostApp string
	if w.cfg.AXWatchFrontmost && len(cgList) > 0 {
		frontmostApp = cgList[0].Owner
	}

	for idx, wi := range cgList {
		key := WindowKey{PID: wi.PID, ID: wi.ID}
		seen[key] = true

		rec, exists := w.records[key]
		if !exists {
			rec = &WindowRecord{Key: key}
			w.records[key] = rec
		}
		var delta Delta
		delta.Focused = rec.Focused != wi.Focused
		delta.Z = rec.Z != idx

		rec.SuspectMissingPasses = 0
		rec.App = wi.Owner
		rec.Layer = wi.Layer
		rec.IsOnScreen = wi.OnScreen
		rec.OnActiveSpace = wi.OnActiveSpace
		rec.Focused = wi.Focused
		rec.Z = idx

		if rec.Title != wi.Title {
			delta.Title = true
			rec.Title = wi.Title
		}
		if rec.Pos == nil || *rec.Pos != wi.Bounds {
			delta.Pos = true
			bounds := wi.Bounds
			rec.Pos = &bounds
			w.pool.Invalidate(wi.PID, wi.ID)
		}
		if !uint64PtrEq(rec.Space, wi.Space) {
			delta.Space = true
			rec.Space = copyUint64(wi.Space)
		}
		displayID := w.resolveDisplay(wi.Bounds)
		if !uint32PtrEq(rec.DisplayID, displayID) {
			delta.Display = true
			rec.DisplayID = displayID
		}

		if !w.cfg.AXWatchFrontmost || wi.Owner == frontmostApp {
			if w.augmentAX(rec) {
				delta.AX = true
			}
		}

		if !exists {
			added = append(added, addedEvent(windowFromRecord(rec)))
		} else if delta.any() {
			updated = append(updated, updatedEvent(windowFromRecord(rec), delta))
		}
	}

	for key, rec := range w.records {
		if seen[key] {
			continue
		}
		rec.SuspectMissingPasses++
		if rec.SuspectMissingPasses >= evictAfterPasses {
			delete(w.records, key)
			removed = append(removed, removedEvent(key))
			w.pool.Invalidate(key.PID, key.ID)
		}
	}

	focusEvent, focusChanged := w.computeFocus(cgList)

	for _, e := range removed {
		w.hub.Publish(e)
	}
	for _, e := range added {
		w.hub.Publish(e)
	}
	for _, e := range updated {
		w.hub.Publish(e)
	}
	if focusChanged {
		w.hub.Publish(focusEvent)
	}

	churn := len(added) > 0 || len(removed) > 0 || len(updated) > 0
	w.adjustPollInterval(hinted, churn)
}

// augmentAX folds in the AX Read Pool's last cached role/subrole/settable
// values, scheduling a background read on a cache miss. Returns whether
// the AX-derived fields changed.
func (w *World) augmentAX(rec *WindowRecord) bool {
	role, subrole, roleOK := w.pool.PeekRoleSubrole(rec.Key.PID, rec.Key.ID)
	canPos, canSize, settableOK := w.pool.PeekSettable(rec.Key.PID, rec.Key.ID)
	if !roleOK && !settableOK {
		w.pool.Schedule(rec.Key.PID, rec.Key.ID)
		return false
	}
	prev := rec.AX
	next := &AXProps{}
	if prev != nil {
		*next = *prev
	}
	changed := false
	if roleOK && (prev == nil || prev.Role != role || prev.Subrole != subrole) {
		next.Role, next.Subrole = role, subrole
		changed = true
	}
	if settableOK && (prev == nil || prev.CanSetPos != canPos || prev.CanSetSize != canSize) {
		next.CanSetPos, next.CanSetSize = canPos, canSize
		changed = true
	}
	if changed {
		rec.AX = next
	}
	return changed
}

// computeFocus implements spec.md §4.5 step 5: prefer CG-reported focus;
// fall back to the lowest-z window in the frontmost application. It
// reports the FocusChanged event rather than publishing it directly, so
// reconcile can keep the documented Removed -> Added -> Updated ->
// FocusChanged publish order for a single pass.
func (w *World) computeFocus(cgList []cgsource.WindowInfo) (Event, bool) {
	var newKey *WindowKey
	var newApp, newTitle string

	for _, wi := range cgList {
		if wi.Focused {
			k := WindowKey{PID: wi.PID, ID: wi.ID}
			newKey = &k
			newApp, newTitle = wi.Owner, wi.Title
			break
		}
	}
	if newKey == nil {
		for idx := range cgList {
			wi := cgList[idx]
			k := WindowKey{PID: wi.PID, ID: wi.ID}
			newKey = &k
			newApp, newTitle = wi.Owner, wi.Title
			break // cgList is already frontmost-first per CG list order
		}
	}

	changed := !windowKeyPtrEq(w.focusedKey, newKey) || w.focusedApp != newApp || w.focusedTitle != newTitle
	if !changed {
		return Event{}, false
	}
	w.focusedKey, w.focusedApp, w.focusedTitle = newKey, newApp, newTitle

	var pid *int32
	if newKey != nil {
		p := newKey.PID
		pid = &p
	}
	return focusChangedEvent(FocusChange{PID: pid, Key: newKey, App: newApp, Title: newTitle}), true
}

// adjustPollInterval implements spec.md §4.5 step 7: snap to the floor
// on hints or churn, otherwise back off geometrically toward the ceiling.
func (w *World) adjustPollInterval(hinted, churn bool) {
	if hinted || churn {
		w.currentPollMs = w.cfg.PollMsMin
		if hinted {
			w.hub.Publish(hintRefreshAppliedEvent())
		}
		return
	}
	next := int(float64(w.currentPollMs) * backoffFactor)
	if next > w.cfg.PollMsMax {
		next = w.cfg.PollMsMax
	}
	w.currentPollMs = next
}

// resolveDisplay finds the display with the greatest overlap against
// bounds, matching "display_id: CG display id with greatest overlap"
// (spec.md §3).
func (w *World) resolveDisplay(bounds geom.Rect) *uint32 {
	var best *cgsource.Display
	bestArea := 0.0
	for i := range w.displays {
		d := &w.displays[i]
		area := overlapArea(bounds, d.Bounds)
		if area > bestArea {
			bestArea = area
			best = d
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

func overlapArea(a, b geom.Rect) float64 {
	x0 := maxF(a.X, b.X)
	y0 := maxF(a.Y, b.Y)
	x1 := minF(a.X+a.W, b.X+b.W)
	y1 := minF(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return (x1 - x0) * (y1 - y0)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func uint64PtrEq(a *uint64, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uint32PtrEq(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func windowKeyPtrEq(a, b *WindowKey) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyUint64(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
