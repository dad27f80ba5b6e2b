package axadapter

import "github.com/hotki-project/hotki-world/internal/apperr"

// Re-exported sentinel errors, per spec.md §4.1's failure taxonomy:
// permission-denied, app-element-missing, focused-window-missing,
// AX-code (numeric), window-gone, unsupported-attribute.
var (
	ErrPermissionDenied     = apperr.ErrPermissionDenied
	ErrAppElementMissing    = apperr.ErrAppElementMissing
	ErrFocusedWindowMissing = apperr.ErrFocusedWindowMissing
	ErrWindowGone           = apperr.ErrWindowGone
	ErrUnsupportedAttribute = apperr.ErrUnsupportedAttribute
)

// AXCodeError is a numeric AX error code that doesn't map to a named
// sentinel above.
type AXCodeError = apperr.AXCodeError
