package world

// Convenience read helpers layered on the snapshot API, each resolved
// inside a single writer job so they see a consistent table (supplemented
// from view_util.rs; not part of spec.md's core algorithmic surface).

// FrontmostWindow returns the focused window if one is known and still
// live, falling back to the z=0 window otherwise (view_util.rs's
// frontmost_window(): prefer focus, fall back to lowest-z).
func (w *World) FrontmostWindow() *Window {
	reply := make(chan *Window, 1)
	w.send(func(w *World) {
		if w.focusedKey != nil {
			if rec, ok := w.records[*w.focusedKey]; ok {
				win := windowFromRecord(rec)
				reply <- &win
				return
			}
		}
		keys := w.sortedKeysByZ()
		if len(keys) == 0 {
			reply <- nil
			return
		}
		win := windowFromRecord(w.records[keys[0]])
		reply <- &win
	})
	return <-reply
}

// ResolveKey finds the live key matching pid and id, confirming the
// record hasn't since been evicted and replaced by a pid-reused window.
func (w *World) ResolveKey(pid int32, id WindowID) (WindowKey, bool) {
	reply := make(chan struct {
		key WindowKey
		ok  bool
	}, 1)
	w.send(func(w *World) {
		key := WindowKey{PID: pid, ID: id}
		_, ok := w.records[key]
		reply <- struct {
			key WindowKey
			ok  bool
		}{key, ok}
	})
	r := <-reply
	return r.key, r.ok
}

// WindowByPIDTitle returns the first live window for pid whose title
// matches exactly, frontmost-first.
func (w *World) WindowByPIDTitle(pid int32, title string) *Window {
	return w.AnyWindowMatching(func(win Window) bool {
		return win.Key.PID == pid && win.Title == title
	})
}

// AnyWindowMatching returns the first live window, in z order, for which
// pred reports true, or nil if none match.
func (w *World) AnyWindowMatching(pred func(Window) bool) *Window {
	reply := make(chan *Window, 1)
	w.send(func(w *World) {
		for _, k := range w.sortedKeysByZ() {
			win := windowFromRecord(w.records[k])
			if pred(win) {
				reply <- &win
				return
			}
		}
		reply <- nil
	})
	return <-reply
}
