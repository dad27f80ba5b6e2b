// Package placement is the Placement Engine (spec.md §4.4): a verified,
// retry-and-fallback executor that drives a target window into a
// requested rectangle and confirms the post-state within an epsilon,
// grounded file-for-file on mac-winops/src/place/{mod,fallback}.rs and
// screen_util.rs. It is pure arithmetic plus adapter calls — no pack
// dependency offers anything closer to this than the stdlib math it
// already uses (see DESIGN.md).
package placement

import (
	"context"
	"fmt"
	"time"

	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/geom"
)

// Epsilon is the default placement verification tolerance in pixels.
const Epsilon = 2.0

// safeParkOffset and safeParkCap mirror mac-winops' safe-park constants:
// a small offset from the visible frame's origin and a conservative
// window size, used to dodge known AX bad-coordinate-space failures on
// non-primary displays near the global origin.
const (
	safeParkOffset = 32.0
	safeParkCapW   = 400.0
	safeParkCapH   = 300.0
)

// RetryLimits caps attempts across the primary apply, axis nudge and
// each fallback stage, translated from the Rust PlaceAttemptOptions /
// RetryLimits pair (crates/hotki-world/src/mimic/world.rs).
type RetryLimits struct {
	Primary       int
	Swap          int
	AxisNudge     int
	SafePark      int
	ShrinkMoveGrow int

	// VerifyPoll is how long to wait, and how often to re-check, after
	// issuing a write before comparing the observed frame.
	VerifyPoll    time.Duration
	VerifyTimeout time.Duration
}

// DefaultRetryLimits matches the original's conservative small caps: a
// handful of attempts per stage, never unbounded retry.
func DefaultRetryLimits() RetryLimits {
	return RetryLimits{
		Primary:        2,
		Swap:           1,
		AxisNudge:      2,
		SafePark:       1,
		ShrinkMoveGrow: 1,
		VerifyPoll:     20 * time.Millisecond,
		VerifyTimeout:  300 * time.Millisecond,
	}
}

// Options configures one placement attempt.
type Options struct {
	PosFirstOnly bool
	Epsilon      float64
	Limits       RetryLimits

	// ForceSecondAttempt lets tests force the swapped-order retry stage
	// even when the primary attempt nominally verified.
	ForceSecondAttempt bool
	// ForceFallback, when non-empty, restricts the optional retry stages:
	// "swap" runs the swapped-order retry but skips the axis nudge,
	// "nudge" skips the swap and runs the nudge, and any other value skips
	// both. The anchor, safe-park and shrink-move-grow stages run
	// regardless, under their own conditions.
	ForceFallback string
}

// OutcomeKind discriminates a placement's terminal state.
type OutcomeKind int

const (
	Verified OutcomeKind = iota
	Anchored
	Failed
)

// Outcome is the terminal result of Apply, with per-stage attempt
// counters for tests and diagnostics.
type Outcome struct {
	Kind  OutcomeKind
	Rect  geom.Rect
	Flags geom.ClampFlags
	Err   error

	Attempts map[string]int
}

// VerificationFailedError carries full diagnostics for a placement that
// exhausted every fallback stage without satisfying epsilon.
type VerificationFailedError struct {
	Op       string
	Expected geom.Rect
	Got      geom.Rect
	Epsilon  float64
	Delta    geom.Delta
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("placement: %s verification failed: expected=%v got=%v eps=%.1f delta=%+v",
		e.Op, e.Expected, e.Got, e.Epsilon, e.Delta)
}

// Target is what a caller wants: a window driven into Rect within a
// visible frame VF (used for anchor-clamp and safe-park decisions).
type Target struct {
	PID  int32
	ID   axadapter.WindowID
	Rect geom.Rect
	VF   geom.Rect
}

// Engine drives an Adapter through the verified apply + fallback
// sequence. It holds no per-window state; all state lives in the
// attempt counters returned per-call.
type Engine struct {
	adapter axadapter.Adapter
}

func New(adapter axadapter.Adapter) *Engine {
	return &Engine{adapter: adapter}
}

// Apply drives target's window toward target.Rect, applying the full
// retry-and-fallback sequence described in spec.md §4.4: primary
// ordered apply, swapped-order retry, axis nudge, anchor clamp,
// safe-park, shrink->move->grow.
func (e *Engine) Apply(ctx context.Context, t Target, opts Options) Outcome {
	if opts.Epsilon == 0 {
		opts.Epsilon = Epsilon
	}
	if opts.Limits == (RetryLimits{}) {
		opts.Limits = DefaultRetryLimits()
	}
	attempts := map[string]int{}

	canPos, canSize, err := e.adapter.SettableAttrs(ctx, t.PID, t.ID)
	if err != nil {
		return Outcome{Kind: Failed, Err: err, Attempts: attempts}
	}

	posFirst := opts.PosFirstOnly || e.shouldShrinkFirst(ctx, t)

	rect, ok := e.primaryApply(ctx, t, canPos, canSize, posFirst, opts, attempts)
	if ok && !opts.ForceSecondAttempt {
		return Outcome{Kind: Verified, Rect: rect, Attempts: attempts}
	}

	if opts.ForceFallback == "" || opts.ForceFallback == "swap" {
		if rect, ok := e.swapRetry(ctx, t, canPos, canSize, posFirst, opts, attempts); ok {
			return Outcome{Kind: Verified, Rect: rect, Attempts: attempts}
		}
	}

	if opts.ForceFallback == "" || opts.ForceFallback == "nudge" {
		if rect, ok := e.axisNudge(ctx, t, canPos, canSize, opts, attempts); ok {
			return Outcome{Kind: Verified, Rect: rect, Attempts: attempts}
		}
	}

	if !canSize {
		if rect, flags, ok := e.anchorClamp(ctx, t, opts, attempts); ok {
			return Outcome{Kind: Anchored, Rect: rect, Flags: flags, Attempts: attempts}
		}
	}

	if e.needsSafePark(t) {
		if rect, ok := e.safePark(ctx, t, canPos, canSize, posFirst, opts, attempts); ok {
			return Outcome{Kind: Verified, Rect: rect, Attempts: attempts}
		}
	}

	if rect, ok := e.shrinkMoveGrow(ctx, t, canPos, canSize, opts, attempts); ok {
		return Outcome{Kind: Verified, Rect: rect, Attempts: attempts}
	}

	got, _ := e.observe(ctx, t)
	return Outcome{
		Kind: Failed,
		Rect: got,
		Err: &VerificationFailedError{
			Op: "place", Expected: t.Rect, Got: got,
			Epsilon: opts.Epsilon, Delta: geom.Sub(t.Rect, got),
		},
		Attempts: attempts,
	}
}

func (e *Engine) observe(ctx context.Context, t Target) (geom.Rect, error) {
	pos, err := e.adapter.GetPosition(ctx, t.PID, t.ID)
	if err != nil {
		return geom.Rect{}, err
	}
	size, err := e.adapter.GetSize(ctx, t.PID, t.ID)
	if err != nil {
		return geom.Rect{}, err
	}
	return geom.Rect{X: pos.X, Y: pos.Y, W: size.W, H: size.H}, nil
}

// writeOrdered issues SetPosition/SetSize in the requested order,
// skipping any write whose attribute is known-unsettable.
func (e *Engine) writeOrdered(ctx context.Context, t Target, canPos, canSize, posFirst bool, rect geom.Rect) error {
	pos := geom.Point{X: rect.X, Y: rect.Y}
	size := geom.Size{W: rect.W, H: rect.H}
	writePos := func() error {
		if !canPos {
			return nil
		}
		return e.adapter.SetPosition(ctx, t.PID, t.ID, pos)
	}
	writeSize := func() error {
		if !canSize {
			return nil
		}
		return e.adapter.SetSize(ctx, t.PID, t.ID, size)
	}
	if posFirst {
		if err := writePos(); err != nil {
			return err
		}
		return writeSize()
	}
	if err := writeSize(); err != nil {
		return err
	}
	return writePos()
}

func (e *Engine) verify(ctx context.Context, t Target, opts Options) (geom.Rect, bool) {
	deadline := time.Now().Add(opts.Limits.VerifyTimeout)
	for {
		got, err := e.observe(ctx, t)
		if err == nil && geom.Sub(t.Rect, got).WithinEps(opts.Epsilon) {
			return got, true
		}
		if time.Now().After(deadline) {
			return got, false
		}
		select {
		case <-ctx.Done():
			return got, false
		case <-time.After(opts.Limits.VerifyPoll):
		}
	}
}

func (e *Engine) primaryApply(ctx context.Context, t Target, canPos, canSize, posFirst bool, opts Options, attempts map[string]int) (geom.Rect, bool) {
	for i := 0; i < maxInt(opts.Limits.Primary, 1); i++ {
		attempts["primary"]++
		if err := e.writeOrdered(ctx, t, canPos, canSize, posFirst, t.Rect); err != nil {
			continue
		}
		if rect, ok := e.verify(ctx, t, opts); ok {
			return rect, true
		}
	}
	return geom.Rect{}, false
}

func (e *Engine) swapRetry(ctx context.Context, t Target, canPos, canSize, posFirst bool, opts Options, attempts map[string]int) (geom.Rect, bool) {
	for i := 0; i < maxInt(opts.Limits.Swap, 1); i++ {
		attempts["swap"]++
		if err := e.writeOrdered(ctx, t, canPos, canSize, !posFirst, t.Rect); err != nil {
			continue
		}
		if rect, ok := e.verify(ctx, t, opts); ok {
			return rect, true
		}
	}
	return geom.Rect{}, false
}

// axisNudge re-issues only the single component still off after the
// primary/swap attempts, when exactly one axis disagrees.
func (e *Engine) axisNudge(ctx context.Context, t Target, canPos, canSize bool, opts Options, attempts map[string]int) (geom.Rect, bool) {
	got, err := e.observe(ctx, t)
	if err != nil {
		return geom.Rect{}, false
	}
	delta := geom.Sub(t.Rect, got)
	offAxes := 0
	if absF(delta.DX) > opts.Epsilon {
		offAxes++
	}
	if absF(delta.DY) > opts.Epsilon {
		offAxes++
	}
	if absF(delta.DW) > opts.Epsilon {
		offAxes++
	}
	if absF(delta.DH) > opts.Epsilon {
		offAxes++
	}
	if offAxes != 1 {
		return geom.Rect{}, false
	}
	for i := 0; i < maxInt(opts.Limits.AxisNudge, 1); i++ {
		attempts["nudge"]++
		switch {
		case absF(delta.DX) > opts.Epsilon || absF(delta.DY) > opts.Epsilon:
			if canPos {
				if err := e.adapter.SetPosition(ctx, t.PID, t.ID, geom.Point{X: t.Rect.X, Y: t.Rect.Y}); err != nil {
					continue
				}
			}
		default:
			if canSize {
				if err := e.adapter.SetSize(ctx, t.PID, t.ID, geom.Size{W: t.Rect.W, H: t.Rect.H}); err != nil {
					continue
				}
			}
		}
		if rect, ok := e.verify(ctx, t, opts); ok {
			return rect, true
		}
	}
	return geom.Rect{}, false
}

// anchorClamp accepts a non-resizable window's frame as successful when
// it has been clamped against a VF edge and position otherwise matches.
func (e *Engine) anchorClamp(ctx context.Context, t Target, opts Options, attempts map[string]int) (geom.Rect, geom.ClampFlags, bool) {
	attempts["anchor"]++
	got, err := e.observe(ctx, t)
	if err != nil {
		return geom.Rect{}, geom.ClampFlags{}, false
	}
	flags := geom.ComputeClampFlags(t.VF, got, opts.Epsilon)
	if !flags.Any() {
		return geom.Rect{}, geom.ClampFlags{}, false
	}
	delta := geom.Sub(t.Rect, got)
	if absF(delta.DX) > opts.Epsilon && absF(delta.DY) > opts.Epsilon {
		return geom.Rect{}, geom.ClampFlags{}, false
	}
	return got, flags, true
}

// needsSafePark flags the known AX bad-coordinate-space hazard: target
// near the global origin on a display whose visible frame origin is
// itself non-zero (a non-primary display).
func (e *Engine) needsSafePark(t Target) bool {
	const nearOrigin = 4.0
	return absF(t.Rect.X) < nearOrigin && absF(t.Rect.Y) < nearOrigin && (t.VF.X != 0 || t.VF.Y != 0)
}

func (e *Engine) safePark(ctx context.Context, t Target, canPos, canSize, posFirst bool, opts Options, attempts map[string]int) (geom.Rect, bool) {
	attempts["safe_park"]++
	parkRect := geom.Rect{
		X: t.VF.X + safeParkOffset,
		Y: t.VF.Y + safeParkOffset,
		W: minF(safeParkCapW, t.Rect.W),
		H: minF(safeParkCapH, t.Rect.H),
	}
	if err := e.writeOrdered(ctx, t, canPos, canSize, true, parkRect); err != nil {
		return geom.Rect{}, false
	}
	// Settle briefly before retrying the ordered apply at the real target.
	time.Sleep(opts.Limits.VerifyPoll)
	if err := e.writeOrdered(ctx, t, canPos, canSize, posFirst, t.Rect); err != nil {
		return geom.Rect{}, false
	}
	return e.verify(ctx, t, opts)
}

// shrinkMoveGrow: shrink at current position to a conservative size,
// move to the target origin at that safe size, then grow to the target
// size. Only the final frame is verified; the intermediate shrink and
// move are not checked, and a failed write aborts the stage.
func (e *Engine) shrinkMoveGrow(ctx context.Context, t Target, canPos, canSize bool, opts Options, attempts map[string]int) (geom.Rect, bool) {
	attempts["shrink_move_grow"]++
	if !canSize {
		return geom.Rect{}, false
	}
	safeSize := geom.Size{W: minF(safeParkCapW, t.Rect.W), H: minF(safeParkCapH, t.Rect.H)}
	if err := e.adapter.SetSize(ctx, t.PID, t.ID, safeSize); err != nil {
		return geom.Rect{}, false
	}
	if canPos {
		if err := e.adapter.SetPosition(ctx, t.PID, t.ID, geom.Point{X: t.Rect.X, Y: t.Rect.Y}); err != nil {
			return geom.Rect{}, false
		}
	}
	if err := e.adapter.SetSize(ctx, t.PID, t.ID, geom.Size{W: t.Rect.W, H: t.Rect.H}); err != nil {
		return geom.Rect{}, false
	}
	return e.verify(ctx, t, opts)
}

// shouldShrinkFirst mirrors the original's move-with-shrink heuristic:
// it reports whether the current frame is larger than the target on both
// axes. Apply then writes position before size, the same order as
// PosFirstOnly.
func (e *Engine) shouldShrinkFirst(ctx context.Context, t Target) bool {
	cur, err := e.observe(ctx, t)
	if err != nil {
		return false
	}
	return cur.W > t.Rect.W && cur.H > t.Rect.H
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
