// Package focuswatch defines the focus-watcher collaborator World treats
// as a refresh hint only, never authoritative (spec.md §2, §6). The real
// implementation (darwin, CGEventTap/NSWorkspace-backed) lives outside
// this module's algorithmic core per spec.md §1's Non-goals; only the
// consumed interface and a deterministic fake live here.
package focuswatch

// EventKind discriminates the two signals the watcher emits.
type EventKind int

const (
	AppChanged EventKind = iota
	TitleChanged
)

// Event is one focus-watcher signal.
type Event struct {
	Kind  EventKind
	Title string
	PID   int32
}

// Watcher streams focus-watcher signals on Events(). Closing Stop() must
// close the channel exactly once.
type Watcher interface {
	Events() <-chan Event
	Stop()
}

// Fake is a test double whose Emit method lets a test drive Events().
type Fake struct {
	ch chan Event
}

func NewFake() *Fake {
	return &Fake{ch: make(chan Event, 64)}
}

func (f *Fake) Events() <-chan Event { return f.ch }

func (f *Fake) Stop() { close(f.ch) }

// Emit pushes an event to subscribers; it does not block indefinitely —
// the fake's buffer is sized generously for tests, matching the "hint
// only" nature of this collaborator (a dropped hint is harmless).
func (f *Fake) Emit(e Event) {
	select {
	case f.ch <- e:
	default:
	}
}
