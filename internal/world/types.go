// Package world implements the single-writer World actor: the
// authoritative, process-local cache of on-screen windows reconciled from
// CoreGraphics and Accessibility, per spec.md §3–§5.
package world

import (
	"regexp"

	"github.com/hotki-project/hotki-world/internal/geom"
)

// WindowID is the CoreGraphics window identifier (kCGWindowNumber).
type WindowID = uint32

// WindowKey uniquely identifies a window throughout its lifetime. A pid
// reused with the same WindowID is a distinct key: the old (pid, id) pair
// must evict before the new one is considered "the same window".
type WindowKey struct {
	PID int32
	ID  WindowID
}

// AXProps is the last known AX-sourced subset of a window's attributes.
type AXProps struct {
	Role        string
	Subrole     string
	CanSetPos   bool
	CanSetSize  bool
}

// WindowRecord is the authoritative per-window record held in the World's
// entity table. Exactly one goroutine (the World writer) ever mutates it.
type WindowRecord struct {
	Key   WindowKey
	App   string
	Title string

	Pos           *geom.Rect
	Space         *uint64
	DisplayID     *uint32
	Layer         int32
	Focused       bool
	IsOnScreen    bool
	OnActiveSpace bool

	// Z is frontmost = 0, increasing backward; recomputed every reconcile
	// pass from CG list order.
	Z int

	AX *AXProps

	// SuspectMissingPasses counts consecutive reconcile passes in which CG
	// did not list this key. Reaching 2 with the key still absent triggers
	// eviction (two-pass confirmation, spec.md §3).
	SuspectMissingPasses int
}

// Clone returns a deep-enough copy for safe hand-off to readers: the
// pointer fields are copied, not shared, so a reader never observes a
// subsequent in-place mutation by the writer.
func (r *WindowRecord) Clone() *WindowRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Pos != nil {
		p := *r.Pos
		out.Pos = &p
	}
	if r.Space != nil {
		s := *r.Space
		out.Space = &s
	}
	if r.DisplayID != nil {
		d := *r.DisplayID
		out.DisplayID = &d
	}
	if r.AX != nil {
		a := *r.AX
		out.AX = &a
	}
	return &out
}

// Window is the read-only view of a WindowRecord returned from snapshot
// APIs: a plain value type, safe to hold across goroutines.
type Window struct {
	Key           WindowKey
	App           string
	Title         string
	Pos           *geom.Rect
	Space         *uint64
	DisplayID     *uint32
	Layer         int32
	Focused       bool
	IsOnScreen    bool
	OnActiveSpace bool
	Z             int
	AX            *AXProps
}

func windowFromRecord(r *WindowRecord) Window {
	c := r.Clone()
	return Window{
		Key: c.Key, App: c.App, Title: c.Title, Pos: c.Pos, Space: c.Space,
		DisplayID: c.DisplayID, Layer: c.Layer, Focused: c.Focused,
		IsOnScreen: c.IsOnScreen, OnActiveSpace: c.OnActiveSpace, Z: c.Z, AX: c.AX,
	}
}

// Delta names which attributes changed in an Updated event. Go has no
// tagged-union sugar for the Rust UpdateKind enum this is grounded on
// (hotki-world events), so it's expressed as a small flags struct.
type Delta struct {
	Title, Pos, Space, Display, AX, Focused, Z bool
}

func (d Delta) any() bool {
	return d.Title || d.Pos || d.Space || d.Display || d.AX || d.Focused || d.Z
}

// FocusChange describes a FocusChanged event payload.
type FocusChange struct {
	PID   *int32
	Key   *WindowKey
	App   string
	Title string
}

// EventKind discriminates WorldEvent's payload.
type EventKind int

const (
	EventAdded EventKind = iota
	EventUpdated
	EventRemoved
	EventFocusChanged
	EventHintRefreshApplied
	EventResyncRecommended
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventFocusChanged:
		return "focus_changed"
	case EventHintRefreshApplied:
		return "hint_refresh_applied"
	case EventResyncRecommended:
		return "resync_recommended"
	default:
		return "unknown"
	}
}

// Event is the broadcast event taxonomy from spec.md §3, modeled as one
// struct with a Kind discriminant rather than an interface hierarchy:
// cheaper to copy into the broadcast ring and trivial to switch on.
type Event struct {
	Kind    EventKind
	Key     WindowKey
	Window  Window
	Delta   Delta
	Focus   FocusChange
}

func addedEvent(w Window) Event   { return Event{Kind: EventAdded, Key: w.Key, Window: w} }
func removedEvent(k WindowKey) Event {
	return Event{Kind: EventRemoved, Key: k}
}
func updatedEvent(w Window, d Delta) Event {
	return Event{Kind: EventUpdated, Key: w.Key, Window: w, Delta: d}
}
func focusChangedEvent(fc FocusChange) Event {
	return Event{Kind: EventFocusChanged, Focus: fc}
}
func hintRefreshAppliedEvent() Event    { return Event{Kind: EventHintRefreshApplied} }
func resyncRecommendedEvent() Event     { return Event{Kind: EventResyncRecommended} }

// RaiseIntent selects a target window for request_raise: at least one of
// AppRegex / TitleRegex must be set.
type RaiseIntent struct {
	AppRegex   *regexp.Regexp
	TitleRegex *regexp.Regexp
}

func (ri RaiseIntent) matches(w Window) bool {
	if ri.AppRegex == nil && ri.TitleRegex == nil {
		return false
	}
	if ri.AppRegex != nil && !ri.AppRegex.MatchString(w.App) {
		return false
	}
	if ri.TitleRegex != nil && !ri.TitleRegex.MatchString(w.Title) {
		return false
	}
	return true
}

// CommandReceipt is returned by command-style World operations
// (request_place_for_window, request_raise, ...).
type CommandReceipt struct {
	ID     string
	Target *WindowKey
}

// Status reports World health for diagnostics: permission gaps never fail
// an operation, they degrade the data and show up here (spec.md §4.5, §9).
type Status struct {
	AccessibilityGranted   bool
	ScreenRecordingGranted bool
	CurrentPollMs          int
	WindowCount            int
	Subscribers            int

	// DiagScenarios counts the scenarios recorded in the diagnostic
	// registry (internal/world/diag), populated as the AX adapter fake's
	// scripted quirks manifest. Always zero against the real darwin
	// adapter, which never calls diag.Record.
	DiagScenarios int
}

// QuiescenceReport exposes subscriber/in-flight counts for tests asserting
// that Reset() tore everything down (spec.md §5).
type QuiescenceReport struct {
	Subscriptions int
	InFlight      int
}
