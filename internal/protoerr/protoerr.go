// Package protoerr defines the typed protocol-error value that every
// dispatch handler returns in place of an X11 error frame, plus the
// sentinel errors used for conditions the caller branches on directly.
package protoerr

import (
	"errors"
	"fmt"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// Sentinel errors for conditions outside the wire-error-frame path:
// transport failures, handshake rejection, and listener setup.
var (
	ErrConnectionClosed = errors.New("protoerr: connection closed")
	ErrHandshakeFailed  = errors.New("protoerr: handshake failed")
	ErrShuttingDown     = errors.New("protoerr: server shutting down")
)

// Error is a typed X11 protocol error: everything needed to encode one
// error frame (spec.md §7). Kind is one of the proto.Err* codes.
type Error struct {
	Kind        uint8
	Sequence    uint16
	BadValue    uint32
	MinorOpcode uint16
	MajorOpcode uint8
}

// Error implements the error interface with a human-readable summary;
// wire encoding is done separately by internal/wire.EncodeError.
func (e *Error) Error() string {
	return fmt.Sprintf("protoerr: %s (bad value %d, opcode %d/%d)", kindName(e.Kind), e.BadValue, e.MajorOpcode, e.MinorOpcode)
}

// New builds an Error for the given kind/bad-value pair; Sequence and
// opcode fields are filled in by the dispatcher once the request's
// header is known.
func New(kind uint8, badValue uint32) *Error {
	return &Error{Kind: kind, BadValue: badValue}
}

// Window is a convenience constructor for a bad-window-id error.
func Window(id uint32) *Error { return New(proto.ErrWindow, id) }

// Value is a convenience constructor for a bad-parameter-value error.
func Value(v uint32) *Error { return New(proto.ErrValue, v) }

// Match is a convenience constructor for a parameter-mismatch error.
func Match() *Error { return New(proto.ErrMatch, 0) }

// Access is a convenience constructor for a permission/use error.
func Access() *Error { return New(proto.ErrAccess, 0) }

// Alloc is a convenience constructor for a resource-exhaustion error.
func Alloc() *Error { return New(proto.ErrAlloc, 0) }

// Implementation is a convenience constructor used by the panic-recovery
// boundary in internal/dispatch.
func Implementation() *Error { return New(proto.ErrImplementation, 0) }

func kindName(kind uint8) string {
	switch kind {
	case proto.ErrRequest:
		return "Request"
	case proto.ErrValue:
		return "Value"
	case proto.ErrWindow:
		return "Window"
	case proto.ErrPixmap:
		return "Pixmap"
	case proto.ErrAtom:
		return "Atom"
	case proto.ErrCursor:
		return "Cursor"
	case proto.ErrFont:
		return "Font"
	case proto.ErrMatch:
		return "Match"
	case proto.ErrDrawable:
		return "Drawable"
	case proto.ErrAccess:
		return "Access"
	case proto.ErrAlloc:
		return "Alloc"
	case proto.ErrColormap:
		return "Colormap"
	case proto.ErrGContext:
		return "GContext"
	case proto.ErrIDChoice:
		return "IDChoice"
	case proto.ErrName:
		return "Name"
	case proto.ErrLength:
		return "Length"
	case proto.ErrImplementation:
		return "Implementation"
	default:
		return "Unknown"
	}
}
