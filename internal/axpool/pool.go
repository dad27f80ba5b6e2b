// Package axpool is the AX Read Pool (spec.md §4.2): a globally
// concurrency-capped, deadline-bound, cached fan-out over the AX Adapter.
// World's reconcile loop calls through here rather than straight to the
// adapter so that a slow or hung app can never hold more than a handful
// of goroutines hostage, and so repeated reads of unchanged geometry don't
// re-hit the Accessibility API on every poll tick.
package axpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hotki-project/hotki-world/internal/apperr"
	"github.com/hotki-project/hotki-world/internal/axadapter"
	"github.com/hotki-project/hotki-world/internal/geom"
)

// Config controls the pool's concurrency cap, per-request deadline and
// cache sizing. The pool's only default is Concurrency <= 0, which is
// treated as 1; a zero Deadline means no per-request deadline.
type Config struct {
	Concurrency   int
	Deadline      time.Duration
	CacheCapacity int
	CacheTTL      time.Duration
}

// HintKind discriminates what a Hint carries.
type HintKind int

const (
	HintPosition HintKind = iota
	HintSize
	HintRoleSubrole
	HintSettable
)

// Hint is emitted whenever a read completes and populates the cache,
// letting World apply the freshly observed value immediately instead of
// waiting for its next poll tick (spec.md §4.2's "hint channel").
type Hint struct {
	PID  int32
	ID   axadapter.WindowID
	Kind HintKind

	Pos           geom.Point
	Size          geom.Size
	Role, Subrole string
	CanPos        bool
	CanSize       bool
}

// Stats is a snapshot of the pool's live counters, for tests and the
// World status surface.
type Stats struct {
	InFlight     int
	PeakInFlight int
	StaleDrops   uint64
	CacheSize    int
}

// Pool fans requests out to an Adapter, bounding global concurrency with
// a weighted semaphore (the same primitive the original's
// ax_read_pool_limits.rs test asserts a hard cap on) and short-circuiting
// through a TTL+size bounded cache.
type Pool struct {
	adapter  axadapter.Adapter
	sem      *semaphore.Weighted
	deadline time.Duration
	cache    *boundedCache
	hints    chan Hint

	mu           sync.Mutex
	inFlight     int
	peakInFlight int
	staleDrops   atomic.Uint64
	scheduled    map[string]bool
}

func New(adapter axadapter.Adapter, cfg Config) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		adapter:  adapter,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		deadline: cfg.Deadline,
		cache:    newBoundedCache(cfg.CacheCapacity, cfg.CacheTTL),
		hints:    make(chan Hint, 256),
	}
}

// Hints streams cache-populating reads. Never blocks publishers: a full
// hint channel silently drops the hint, since World's own poll loop will
// pick up the value on its next pass regardless.
func (p *Pool) Hints() <-chan Hint { return p.hints }

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	inFlight, peak := p.inFlight, p.peakInFlight
	p.mu.Unlock()
	return Stats{
		InFlight:     inFlight,
		PeakInFlight: peak,
		StaleDrops:   p.staleDrops.Load(),
		CacheSize:    p.cache.len(),
	}
}

func cacheKey(pid int32, id axadapter.WindowID, attr string) string {
	return fmt.Sprintf("%d/%d/%s", pid, id, attr)
}

// withSlot acquires a pool slot under ctx (itself capped by the pool's
// configured deadline), runs fn, and releases the slot. If the deadline
// elapses before a slot is acquired, the request is counted as a stale
// drop and never reaches the adapter at all. If it elapses while fn runs,
// the request is also counted as a stale drop and an error is returned,
// so the caller does not cache or publish the late result.
func (p *Pool) withSlot(ctx context.Context, fn func(ctx context.Context) error) error {
	var cancel context.CancelFunc
	if p.deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.staleDrops.Add(1)
		return &apperr.Error{Code: apperr.EngineDispatch, Message: "ax pool: deadline exceeded acquiring slot", Cause: err}
	}
	defer p.sem.Release(1)

	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peakInFlight {
		p.peakInFlight = p.inFlight
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		p.staleDrops.Add(1)
		return &apperr.Error{Code: apperr.EngineDispatch, Message: "ax pool: request stale before dispatch", Cause: err}
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		p.staleDrops.Add(1)
		return &apperr.Error{Code: apperr.EngineDispatch, Message: "ax pool: result arrived after deadline", Cause: err}
	}
	return nil
}

func (p *Pool) publish(h Hint) {
	select {
	case p.hints <- h:
	default:
	}
}

func (p *Pool) GetPosition(ctx context.Context, pid int32, id axadapter.WindowID) (geom.Point, error) {
	key := cacheKey(pid, id, "position")
	if v, ok := p.cache.get(key); ok {
		return v.(geom.Point), nil
	}
	var pos geom.Point
	err := p.withSlot(ctx, func(ctx context.Context) error {
		var err error
		pos, err = p.adapter.GetPosition(ctx, pid, id)
		return err
	})
	if err != nil {
		return geom.Point{}, err
	}
	p.cache.set(key, pos)
	p.publish(Hint{PID: pid, ID: id, Kind: HintPosition, Pos: pos})
	return pos, nil
}

func (p *Pool) GetSize(ctx context.Context, pid int32, id axadapter.WindowID) (geom.Size, error) {
	key := cacheKey(pid, id, "size")
	if v, ok := p.cache.get(key); ok {
		return v.(geom.Size), nil
	}
	var sz geom.Size
	err := p.withSlot(ctx, func(ctx context.Context) error {
		var err error
		sz, err = p.adapter.GetSize(ctx, pid, id)
		return err
	})
	if err != nil {
		return geom.Size{}, err
	}
	p.cache.set(key, sz)
	p.publish(Hint{PID: pid, ID: id, Kind: HintSize, Size: sz})
	return sz, nil
}

type roleSubrole struct{ role, subrole string }

func (p *Pool) GetRoleSubrole(ctx context.Context, pid int32, id axadapter.WindowID) (string, string, error) {
	key := cacheKey(pid, id, "role_subrole")
	if v, ok := p.cache.get(key); ok {
		rs := v.(roleSubrole)
		return rs.role, rs.subrole, nil
	}
	var rs roleSubrole
	err := p.withSlot(ctx, func(ctx context.Context) error {
		var err error
		rs.role, rs.subrole, err = p.adapter.RoleSubrole(ctx, pid, id)
		return err
	})
	if err != nil {
		return "", "", err
	}
	p.cache.set(key, rs)
	p.publish(Hint{PID: pid, ID: id, Kind: HintRoleSubrole, Role: rs.role, Subrole: rs.subrole})
	return rs.role, rs.subrole, nil
}

type settable struct{ canPos, canSize bool }

func (p *Pool) GetSettable(ctx context.Context, pid int32, id axadapter.WindowID) (bool, bool, error) {
	key := cacheKey(pid, id, "settable")
	if v, ok := p.cache.get(key); ok {
		s := v.(settable)
		return s.canPos, s.canSize, nil
	}
	var s settable
	err := p.withSlot(ctx, func(ctx context.Context) error {
		var err error
		s.canPos, s.canSize, err = p.adapter.SettableAttrs(ctx, pid, id)
		return err
	})
	if err != nil {
		return false, false, err
	}
	p.cache.set(key, s)
	p.publish(Hint{PID: pid, ID: id, Kind: HintSettable, CanPos: s.canPos, CanSize: s.canSize})
	return s.canPos, s.canSize, nil
}

// PeekPosition, PeekSize, PeekRoleSubrole and PeekSettable are
// non-scheduling cache peeks: they never call the adapter and never
// block, matching spec.md §4.2's peek_title contract generalized to
// every attribute.
func (p *Pool) PeekPosition(pid int32, id axadapter.WindowID) (geom.Point, bool) {
	v, ok := p.cache.get(cacheKey(pid, id, "position"))
	if !ok {
		return geom.Point{}, false
	}
	return v.(geom.Point), true
}

func (p *Pool) PeekSize(pid int32, id axadapter.WindowID) (geom.Size, bool) {
	v, ok := p.cache.get(cacheKey(pid, id, "size"))
	if !ok {
		return geom.Size{}, false
	}
	return v.(geom.Size), true
}

func (p *Pool) PeekRoleSubrole(pid int32, id axadapter.WindowID) (string, string, bool) {
	v, ok := p.cache.get(cacheKey(pid, id, "role_subrole"))
	if !ok {
		return "", "", false
	}
	rs := v.(roleSubrole)
	return rs.role, rs.subrole, true
}

func (p *Pool) PeekSettable(pid int32, id axadapter.WindowID) (bool, bool, bool) {
	v, ok := p.cache.get(cacheKey(pid, id, "settable"))
	if !ok {
		return false, false, false
	}
	s := v.(settable)
	return s.canPos, s.canSize, true
}

// Schedule enqueues a background read of every attribute for (pid, id)
// if one isn't already in flight, matching spec.md §4.2's "on miss,
// returns None and enqueues a background read" with duplicate-pending
// reads coalesced per window (a coarser grain than per-attribute, since
// the four AX reads for one window are cheap to batch together).
func (p *Pool) Schedule(pid int32, id axadapter.WindowID) {
	key := cacheKey(pid, id, "inflight")
	p.mu.Lock()
	if p.scheduled == nil {
		p.scheduled = make(map[string]bool)
	}
	if p.scheduled[key] {
		p.mu.Unlock()
		return
	}
	p.scheduled[key] = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.scheduled, key)
			p.mu.Unlock()
		}()
		ctx := context.Background()
		_, _ = p.GetPosition(ctx, pid, id)
		_, _ = p.GetSize(ctx, pid, id)
		_, _, _ = p.GetRoleSubrole(ctx, pid, id)
		_, _, _ = p.GetSettable(ctx, pid, id)
	}()
}

// Invalidate drops every cached attribute for a window, used when World
// observes the window has moved/resized via a CG event and the cached AX
// read would otherwise mask the change until TTL expiry.
func (p *Pool) Invalidate(pid int32, id axadapter.WindowID) {
	for _, attr := range []string{"position", "size", "role_subrole", "settable"} {
		p.cache.delete(cacheKey(pid, id, attr))
	}
}

// Adapter returns the adapter the pool reads through. The pool itself
// offers no write methods: writes are not read-pooled (spec.md routes
// mutations through the Main-Op Queue on the UI thread, not this
// background pool).
func (p *Pool) Adapter() axadapter.Adapter { return p.adapter }
