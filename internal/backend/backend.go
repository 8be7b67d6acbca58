// Package backend defines the pluggable drawing/windowing surface the
// dispatcher calls into for every operation that has a visible effect
// (spec.md §4.10, SPEC_FULL.md §B.2). It is modeled directly on the
// teacher's gpu.Backend (gpu/backend.go) and its registry
// (gpu/registry.go): a single Go interface, opaque handle types,
// and a package-level registry of named, self-registering
// implementations, re-scoped from GPU pipeline primitives to 2-D
// windowing/drawing primitives.
package backend

import "errors"

// Sentinel errors mirroring the teacher's errors.go posture.
var (
	ErrNotInitialized    = errors.New("backend: not initialized")
	ErrUnknownBackend    = errors.New("backend: unknown backend name")
	ErrAlreadyRegistered = errors.New("backend: name already registered")
)

// WindowHandle and PixmapHandle are opaque backend-assigned handles,
// exactly like gpu.Instance/gpu.Device's uintptr-backed handle types.
type WindowHandle uintptr
type PixmapHandle uintptr

// Rect is an axis-aligned pixel rectangle, window-relative.
type Rect struct{ X, Y int16; W, H uint16 }

// Point is a single pixel-space coordinate.
type Point struct{ X, Y int16 }

// Color is a packed 24-bit TrueColor pixel plus an 8-bit alpha reserved
// for future use (always 0xff for core-protocol drawing ops).
type Color struct{ R, G, B, A uint8 }

// InputEvent is a backend-native input notification, translated by
// internal/server into the matching internal/evpipe event (SPEC_FULL.md §B.3).
type InputEvent struct {
	Kind   InputKind
	Window WindowHandle
	// KeyCode/Button are populated for Key*/Button* kinds.
	KeyCode uint8
	Button  uint8
	X, Y    int16
	State   uint16
}

// InputKind enumerates the backend-native input notifications a Backend
// can produce via PollEvent.
type InputKind int

const (
	InputNone InputKind = iota
	InputKeyPress
	InputKeyRelease
	InputButtonPress
	InputButtonRelease
	InputMotion
	InputClose // the backend's surface was asked to close
)

// Backend is the trait every windowing surface implements: one method
// per drawing/windowing primitive the dispatcher needs (spec.md §4.10).
type Backend interface {
	// Name returns the backend's registered name.
	Name() string
	// Init prepares the backend for use; Destroy releases it.
	Init() error
	Destroy() error

	CreateWindow(w WindowHandle, rect Rect) error
	DestroyWindow(w WindowHandle) error
	MapWindow(w WindowHandle) error
	UnmapWindow(w WindowHandle) error
	ConfigureWindow(w WindowHandle, rect Rect) error

	SetCursor(w WindowHandle, glyphID uint32) error

	FillRectangles(w WindowHandle, rects []Rect, color Color) error
	StrokeRectangles(w WindowHandle, rects []Rect, color Color) error
	DrawLines(w WindowHandle, points []Point, color Color) error
	DrawArcs(w WindowHandle, rects []Rect, color Color) error
	FillPolygon(w WindowHandle, points []Point, color Color) error

	PutImage(w WindowHandle, rect Rect, format uint8, data []byte) error
	GetImage(w WindowHandle, rect Rect, format uint8) ([]byte, error)
	CopyArea(src, dst WindowHandle, srcRect Rect, dstX, dstY int16) error
	CopyPlane(src, dst WindowHandle, srcRect Rect, dstX, dstY int16, plane uint32) error

	DrawText(w WindowHandle, x, y int16, text string, color Color) error
	QueryFontMetrics() (ascent, descent int16, charWidth int16)

	// PollEvent returns the next pending input notification, or
	// (InputEvent{}, false) if none is pending. Non-blocking; the
	// ingestion task in internal/server calls this in a loop with a
	// short sleep between empty polls.
	PollEvent() (InputEvent, bool)
}
