//go:build darwin

package cgsource

/*
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <stdlib.h>
#include <ApplicationServices/ApplicationServices.h>

static CFArrayRef hotki_copy_window_list(int includeOffscreen) {
    CGWindowListOption opts = kCGWindowListExcludeDesktopElements;
    if (!includeOffscreen) {
        opts |= kCGWindowListOptionOnScreenOnly;
    }
    return CGWindowListCopyWindowInfo(opts, kCGNullWindowID);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/hotki-project/hotki-world/internal/geom"
)

// Real is the macOS-backed CG Source, querying CGWindowListCopyWindowInfo
// directly via cgo. No pack dependency wraps this surface (grounded on
// original_source's raw CoreGraphics FFI, crates/mac-winops) so this is
// necessarily a cgo leaf against the system framework, not a third-party
// Go library — see DESIGN.md.
type Real struct{}

func NewReal() *Real { return &Real{} }

// ScreenRecordingGranted reports whether this process currently holds
// screen-recording permission, per spec.md §4.5's permissions gate
// ("when screen-recording is denied, titles may be missing").
func (r *Real) ScreenRecordingGranted() bool {
	return C.CGPreflightScreenCaptureAccess() != 0
}

func (r *Real) ListWindows(opts ListOptions) ([]WindowInfo, error) {
	include := C.int(0)
	if opts.IncludeOffscreen {
		include = 1
	}
	arr := C.hotki_copy_window_list(include)
	if arr == 0 {
		return nil, fmt.Errorf("cgsource: CGWindowListCopyWindowInfo returned NULL")
	}
	defer C.CFRelease(C.CFTypeRef(arr))

	n := int(C.CFArrayGetCount(arr))
	out := make([]WindowInfo, 0, n)
	for i := 0; i < n; i++ {
		dict := C.CFDictionaryRef(C.CFArrayGetValueAtIndex(arr, C.CFIndex(i)))
		if dict == 0 {
			continue
		}
		wi, ok := decodeWindowDict(dict)
		if ok {
			out = append(out, wi)
		}
	}
	return out, nil
}

func (r *Real) ActiveSpaces() ([]uint64, error) {
	// CGSCopySpaces / the Mission Control private APIs are not part of the
	// public ApplicationServices surface; a faithful implementation would
	// use the same private-framework dlsym pattern as the original's
	// ax_private.rs. Reporting the empty set here is conservative and
	// matches "absent" per spec.md's `space` field semantics.
	return nil, nil
}

func (r *Real) Displays() ([]Display, error) {
	const maxDisplays = 32
	var ids [maxDisplays]C.CGDirectDisplayID
	var count C.uint32_t
	if C.CGGetActiveDisplayList(C.uint32_t(maxDisplays), &ids[0], &count) != C.kCGErrorSuccess {
		return nil, fmt.Errorf("cgsource: CGGetActiveDisplayList failed")
	}
	out := make([]Display, 0, int(count))
	for i := 0; i < int(count); i++ {
		id := ids[i]
		b := C.CGDisplayBounds(id)
		rect := geom.Rect{
			X: float64(b.origin.x), Y: float64(b.origin.y),
			W: float64(b.size.width), H: float64(b.size.height),
		}
		// ApplicationServices has no direct "visible frame" query outside
		// AppKit; NSScreen.visibleFrame is the authoritative source. Here
		// VisibleFrame is set to the full display bounds: the menu bar and
		// Dock are not excluded, and no caller in this module refines it.
		out = append(out, Display{ID: uint32(id), Bounds: rect, VisibleFrame: rect})
	}
	return out, nil
}

func decodeWindowDict(dict C.CFDictionaryRef) (WindowInfo, bool) {
	var wi WindowInfo

	getInt := func(key string) (int64, bool) {
		cfKey := cfStringFromGo(key)
		defer C.CFRelease(C.CFTypeRef(cfKey))
		val := C.CFDictionaryGetValue(dict, C.CFTypeRef(unsafe.Pointer(cfKey)))
		if val == 0 {
			return 0, false
		}
		var out C.int64_t
		if C.CFNumberGetValue(C.CFNumberRef(val), C.kCFNumberSInt64Type, unsafe.Pointer(&out)) == 0 {
			return 0, false
		}
		return int64(out), true
	}
	getBool := func(key string) (bool, bool) {
		v, ok := getInt(key)
		return v != 0, ok
	}
	getString := func(key string) (string, bool) {
		cfKey := cfStringFromGo(key)
		defer C.CFRelease(C.CFTypeRef(cfKey))
		val := C.CFDictionaryGetValue(dict, C.CFTypeRef(unsafe.Pointer(cfKey)))
		if val == 0 {
			return "", false
		}
		return cfStringToGo(C.CFStringRef(val)), true
	}

	pid, _ := getInt("kCGWindowOwnerPID")
	id, _ := getInt("kCGWindowNumber")
	layer, _ := getInt("kCGWindowLayer")
	owner, _ := getString("kCGWindowOwnerName")
	title, _ := getString("kCGWindowName")
	onScreen, _ := getBool("kCGWindowIsOnscreen")

	wi.PID = int32(pid)
	wi.ID = uint32(id)
	wi.Layer = int32(layer)
	wi.Owner = owner
	wi.Title = title
	wi.OnScreen = onScreen
	wi.OnActiveSpace = onScreen

	cfKey := cfStringFromGo("kCGWindowBounds")
	defer C.CFRelease(C.CFTypeRef(cfKey))
	boundsVal := C.CFDictionaryGetValue(dict, C.CFTypeRef(unsafe.Pointer(cfKey)))
	if boundsVal != 0 {
		var rect C.CGRect
		if C.CGRectMakeWithDictionaryRepresentation(C.CFDictionaryRef(boundsVal), &rect) != 0 {
			wi.Bounds = geom.Rect{
				X: float64(rect.origin.x), Y: float64(rect.origin.y),
				W: float64(rect.size.width), H: float64(rect.size.height),
			}
		}
	}

	return wi, pid != 0 || id != 0
}

func cfStringFromGo(s string) C.CFStringRef {
	cstr := C.CString(s)
	defer C.free(unsafe.Pointer(cstr))
	return C.CFStringCreateWithCString(C.kCFAllocatorDefault, cstr, C.kCFStringEncodingUTF8)
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
