package world

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/axpool"
	"github.com/hotki-project/hotki-world/internal/cgsource"
	"github.com/hotki-project/hotki-world/internal/config"
	"github.com/hotki-project/hotki-world/internal/focuswatch"
	"github.com/hotki-project/hotki-world/internal/geom"
	"github.com/hotki-project/hotki-world/internal/mainqueue"
	"github.com/hotki-project/hotki-world/internal/placement"
	"github.com/hotki-project/hotki-world/internal/world/diag"
	"github.com/hotki-project/hotki-world/internal/world/hub"
)

// Deps are World's collaborators, all consumed as capability interfaces
// so a test can swap in the package's fakes for every one of them
// (spec.md §6's "consumed" surfaces).
type Deps struct {
	CG           cgsource.Source
	Adapter      axadapter.Adapter
	FocusWatcher focuswatch.Watcher

	// Pool, if non-nil, is an existing AX Read Pool that New reuses
	// instead of allocating a fresh one. spec.md §4.2's lifetime contract
	// says the pool is process-global and outlives world instances:
	// respawning a world must reuse the pool and its hint channel rather
	// than starting over with a cold cache and reset counters. Callers
	// that want that lifetime construct the pool once (e.g. with
	// axpool.New) and pass it here on every subsequent New call; leaving
	// it nil makes New allocate a pool scoped to that single World, which
	// is fine for one-shot callers like most of this package's tests.
	Pool *axpool.Pool

	// AXGranted / ScreenGranted report the live permission state. Tests
	// supply a constant closure; the darwin cmd wiring supplies
	// AXIsProcessTrusted / CGPreflightScreenCaptureAccess-backed ones.
	AXGranted     func() bool
	ScreenGranted func() bool
}

// job is one message sent to the World's single writer goroutine: a
// closure is the idiomatic Go stand-in for the Rust actor's typed
// message enum — no payload/response pairing boilerplate needed per verb.
type job func(w *World)

// World is the single-writer actor described in spec.md §4.5: the only
// goroutine that mutates records, focusedKey, or currentPollMs is the
// one running Run(). Every other method sends a job over jobs and reads
// its result from a reply channel the job closure writes to.
type World struct {
	cfg   config.WorldCfg
	deps  Deps
	pool  *axpool.Pool
	hub   *hub.Hub[Event]
	queue *mainqueue.Queue
	diag  *diag.Registry

	engine  *placement.Engine
	toggler *placement.Toggler

	jobs chan job
	stop chan struct{}
	done chan struct{}

	// writer-owned state; touched only inside the goroutine Run starts.
	records       map[WindowKey]*WindowRecord
	displays      []cgsource.Display
	focusedKey    *WindowKey
	focusedApp    string
	focusedTitle  string
	currentPollMs int
	subscribers   int
	cgFailStreak  int

	hintCh chan struct{}
}

// New constructs a World. Call Run in its own goroutine to start the
// reconcile loop and the UI-thread drainer; the World is inert until then.
func New(cfg config.WorldCfg, deps Deps) *World {
	pool := deps.Pool
	if pool == nil {
		pool = axpool.New(deps.Adapter, axpool.Config{
			Concurrency:   cfg.AXPoolConcurrency,
			Deadline:      cfg.AXPoolDeadline,
			CacheCapacity: cfg.AXCacheCapacity,
			CacheTTL:      cfg.AXCacheTTL,
		})
	}
	w := &World{
		cfg:   cfg,
		deps:  deps,
		pool:  pool,
		hub:   hub.New[Event](cfg.EventsBuffer),
		queue: mainqueue.New(),
		diag:  diag.New(),

		jobs: make(chan job, 64),
		stop: make(chan struct{}),
		done: make(chan struct{}),

		records:       make(map[WindowKey]*WindowRecord),
		currentPollMs: cfg.PollMsMin,
		hintCh:        make(chan struct{}, 1),
	}
	w.engine = placement.New(deps.Adapter)
	w.toggler = placement.NewToggler(w.engine, cfg.FrameStoragePreMaximizeCap, cfg.FrameStorageHiddenCap)
	return w
}

// Pool exposes the AX Read Pool for callers that want its raw stats or
// want to hand it to a later New via Deps.Pool; World itself is the only
// consumer that drives reads through it during reconcile.
func (w *World) Pool() *axpool.Pool { return w.pool }

// Diag exposes the diagnostic registry for test scenario introspection.
func (w *World) Diag() *diag.Registry { return w.diag }

// Run starts the reconcile loop and the UI-thread drainer, blocking
// until ctx is cancelled or Close is called. Intended to be started in
// its own goroutine, once per World instance.
func (w *World) Run(ctx context.Context) {
	uiDone := make(chan struct{})
	go w.runUIThread(uiDone)

	go w.forwardHints(ctx)
	if w.deps.FocusWatcher != nil {
		go w.forwardFocusWatcher(ctx)
	}

	defer close(w.done)
	defer func() {
		w.queue.Close()
		<-uiDone
	}()

	// One timer per pass: jobs handled while waiting do not restart the
	// poll interval, so a steady stream of API calls cannot starve reconcile.
	timer := time.NewTimer(time.Duration(w.currentPollMs) * time.Millisecond)
	defer timer.Stop()
	for {
		hinted := false

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case j := <-w.jobs:
			j(w)
			continue
		case <-w.hintCh:
			hinted = true
		case <-timer.C:
		}

		w.reconcile(hinted)

		// Drain any jobs queued during the reconcile pass before sleeping
		// again, so synchronous callers don't block for a full interval.
		for {
			select {
			case j := <-w.jobs:
				j(w)
			default:
				goto nextPass
			}
		}
	nextPass:
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(time.Duration(w.currentPollMs) * time.Millisecond)
	}
}

// Close stops the reconcile loop and the UI thread drainer, and blocks
// until both have exited — the synchronous quiescence guarantee tests
// rely on (spec.md §5).
func (w *World) Close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

// runUIThread is the dedicated OS UI thread drainer (spec.md §5):
// runtime.LockOSThread pins this goroutine to one OS thread for its
// entire lifetime, the idiomatic Go analogue of AppKit's thread-0
// requirement for window-mutating calls — a documented Go/cgo
// convention rather than a specific pack example (see DESIGN.md).
func (w *World) runUIThread(done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	for {
		_, ok := <-w.queue.Wake()
		for _, op := range w.queue.Drain() {
			err := w.executeMainOp(op)
			mainqueue.Complete(op, err)
		}
		if !ok {
			return
		}
	}
}

func (w *World) forwardHints(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case _, ok := <-w.pool.Hints():
			if !ok {
				return
			}
			w.signalHint()
		}
	}
}

func (w *World) forwardFocusWatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case _, ok := <-w.deps.FocusWatcher.Events():
			if !ok {
				return
			}
			w.signalHint()
		}
	}
}

func (w *World) signalHint() {
	select {
	case w.hintCh <- struct{}{}:
	default:
	}
}

// send dispatches j to the writer goroutine, picked up either on its
// next idle poll or immediately if it's blocked waiting. Blocks until
// the World has shut down or the job has been delivered; callers that
// need a result read it off their own reply channel inside j.
func (w *World) send(j job) {
	select {
	case w.jobs <- j:
	case <-w.done:
	}
}

func nextReceipt(target *WindowKey) CommandReceipt {
	return CommandReceipt{ID: uuid.NewString(), Target: target}
}

// sortedKeysByZ returns the live keys ordered by Z ascending, the
// canonical snapshot order spec.md §4.5 requires.
func (w *World) sortedKeysByZ() []WindowKey {
	keys := make([]WindowKey, 0, len(w.records))
	for k := range w.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := w.records[keys[i]], w.records[keys[j]]
		if ri.Z != rj.Z {
			return ri.Z < rj.Z
		}
		if keys[i].PID != keys[j].PID {
			return keys[i].PID < keys[j].PID
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// visibleFrameForDisplay finds the visible frame for a display id, or
// the first known display as a fallback, or the zero rect if none are
// known yet (e.g. before the first reconcile pass completes).
func (w *World) visibleFrameForDisplay(displayID *uint32) geom.Rect {
	if displayID != nil {
		for _, d := range w.displays {
			if d.ID == *displayID {
				return d.VisibleFrame
			}
		}
	}
	if len(w.displays) > 0 {
		return w.displays[0].VisibleFrame
	}
	return geom.Rect{}
}
