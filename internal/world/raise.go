package world

import "github.com/hotki-project/hotki-world/internal/mainqueue"

// RequestRaise resolves intent against the current snapshot and enqueues
// a RaiseWindow main-op (spec.md §4.7): if exactly one window matches, it
// is raised; if several match, resolution rotates from the current front
// to the next match in z order so repeated invocations cycle through
// every match instead of sticking to the first one found.
func (w *World) RequestRaise(intent RaiseIntent) CommandReceipt {
	reply := make(chan CommandReceipt, 1)
	w.send(func(w *World) {
		target := w.resolveRaiseTarget(intent)
		if target == nil {
			reply <- nextReceipt(nil)
			return
		}
		receipt := nextReceipt(target)
		vf := w.vfForKey(*target)
		_ = w.queue.Enqueue(mainqueue.Op{
			Kind: mainqueue.OpRaiseWindow,
			PID:  target.PID, ID: target.ID, VF: vf,
		})
		reply <- receipt
	})
	return <-reply
}

// resolveRaiseTarget implements the match/rotate rule, filtered to
// on-screen windows only (matching the original's current behavior).
// Must only be called from the writer goroutine.
func (w *World) resolveRaiseTarget(intent RaiseIntent) *WindowKey {
	keys := w.sortedKeysByZ()
	var matches []WindowKey
	for _, k := range keys {
		rec := w.records[k]
		if !rec.IsOnScreen {
			continue
		}
		if intent.matches(windowFromRecord(rec)) {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return &matches[0]
	}

	if w.focusedKey != nil {
		for i, k := range matches {
			if k == *w.focusedKey {
				next := matches[(i+1)%len(matches)]
				return &next
			}
		}
	}
	return &matches[0]
}
