// Package mainqueue is the Main-Op Queue (spec.md §4.3): a FIFO of
// operations that must run on the OS UI thread (the thread that called
// runtime.LockOSThread and pumps CFRunLoop/the AppKit run loop), since
// several window operations are either undefined or flaky off that
// thread. This mirrors mac-winops/src/main_thread_ops.rs's
// Mutex<VecDeque<MainOp>> with a poisoned-mutex -> typed-error contract,
// translated to Go's explicit-error idiom (no panic/poison: once the
// owner calls Close, further Enqueue calls return a typed error).
package mainqueue

import (
	"container/list"
	"sync"

	"github.com/hotki-project/hotki-world/internal/apperr"
	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/placement"
)

// OpKind discriminates the operations that must run on the UI thread.
type OpKind int

const (
	OpFullscreenNonNative OpKind = iota
	OpPlaceGrid
	OpPlaceMoveGrid
	OpActivatePID
	OpRaiseWindow
)

// WindowID mirrors axadapter.WindowID as a plain uint32 alias, so Op
// values can be built without naming the axadapter type.
type WindowID = uint32

// GridSpec is PlaceGrid/PlaceMoveGrid's target cell.
type GridSpec struct {
	Cols, Rows int
	Col, Row   int
}

// MoveGridSpec additionally carries an already-computed destination
// rectangle. The drainer places the window at Dest through the same
// Placement Engine as PlaceGrid (separate position and size writes); the
// embedded GridSpec is not consulted.
type MoveGridSpec struct {
	GridSpec
	Dest geom.Rect
}

// Op is one queued main-thread operation. Exactly one of the spec
// fields is meaningful, selected by Kind.
type Op struct {
	Kind OpKind
	PID  int32
	ID   WindowID

	// VF is the destination display's visible frame, resolved by World
	// (the only component with display geometry) before enqueueing, so
	// the UI-thread drainer never needs to reach back into World state.
	VF geom.Rect

	Grid     GridSpec
	MoveGrid MoveGridSpec

	// Opts carries placement attempt tuning (epsilon, retry limits, forced
	// fallback stage) through to the Placement Engine call the UI-thread
	// drainer makes for PlaceGrid/PlaceMoveGrid/FullscreenNonNative ops.
	Opts placement.Options

	// Result, if non-nil, receives exactly one value (the outcome of
	// running this op) once the UI thread worker has drained and
	// executed it, letting the enqueuer wait for completion without
	// polling. Buffer it with capacity 1 so Complete never blocks.
	Result chan error
}

// Queue is a FIFO of Op, drained by the UI-thread worker goroutine.
// The queue is unbounded and Enqueue never blocks the caller; a poisoned
// (closed) queue returns an error immediately rather than the caller
// discovering failure only at drain time.
type Queue struct {
	mu     sync.Mutex
	items  *list.List
	wake   chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{
		items: list.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Wake fires once per batch of enqueues, standing in for Tao's
// post_user_event wakeup of a blocked run loop. Close closes it, so a
// drainer blocked on it wakes one last time and sees ok == false.
func (q *Queue) Wake() <-chan struct{} { return q.wake }

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue appends op to the tail of the queue. Returns ErrQueuePoisoned
// if the queue has been closed (e.g. the UI thread worker exited).
func (q *Queue) Enqueue(op Op) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return apperr.ErrQueuePoisoned
	}
	q.items.PushBack(op)
	q.signal()
	return nil
}

// Drain pops every currently queued Op in FIFO order. Called by the UI
// thread worker after waking; returns nil (not an empty slice) when
// idle to distinguish "nothing to do" from "did work" in tests.
func (q *Queue) Drain() []Op {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return nil
	}
	out := make([]Op, 0, q.items.Len())
	for e := q.items.Front(); e != nil; {
		next := e.Next()
		out = append(out, e.Value.(Op))
		q.items.Remove(e)
		e = next
	}
	return out
}

// Close marks the queue poisoned and closes the Wake channel: further
// Enqueue calls fail immediately. Already-drained ops in flight are
// unaffected. Calling Close more than once is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.wake)
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Complete resolves op's Result channel (if present) with err, called by
// the worker once op has actually run. Result must be buffered (capacity
// >= 1) so this never blocks.
func Complete(op Op, err error) {
	if op.Result == nil {
		return
	}
	op.Result <- err
}
