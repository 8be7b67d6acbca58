// Package dispatch implements the opcode table and per-opcode request
// handlers (spec.md §4.10): one function per teacher request-builder in
// x11/window.go/x11/atoms.go, collapsed into a single table the way
// gpu/registry.go collapses backend selection into a map lookup.
package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/KarpelesLab/x11anywhere/internal/atomtable"
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/fontstore"
	"github.com/KarpelesLab/x11anywhere/internal/property"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/selection"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

// Client is a connected client's dispatch-visible state. Transport
// concerns (socket, read/write loop) live in internal/session; this is
// only what request handlers need.
type Client struct {
	ID          resource.ClientID
	IDBase      uint32
	IDMask      uint32
	ByteOrder   proto.ByteOrder
	Queue       *evpipe.Queue
	BigRequests bool

	mu            sync.Mutex
	CloseDownMode uint8
	PointerGrab   bool
	KeyboardGrab  bool
	GrabWindow    proto.ResourceID
	Killed        bool
}

// pixmap is the payload stored in the resource table for KindPixmap.
type pixmap struct {
	Width, Height uint16
	Depth         uint8
}

// Server holds every shared subsystem a handler might touch. One Server
// exists per running x11anywhere process (internal/server.Server holds
// it).
type Server struct {
	Log *zap.Logger

	Res   *resource.Table
	Tree  *wintree.Tree
	Atoms *atomtable.Table
	Props *property.Store
	Sels  *selection.Table
	Fonts *fontstore.Store

	Backend backend.Backend

	mu      sync.Mutex
	clients map[resource.ClientID]*Client

	RootWindow proto.ResourceID
	RootVisual uint32
	RootDepth  uint8

	// focus/focusRevert track SetInputFocus/GetInputFocus state; no
	// backend in this repository actually changes input routing based on
	// focus, so this is bookkeeping only (GetInputFocus must still echo
	// back whatever was last set).
	focus       proto.ResourceID
	focusRevert uint8
}

// NewServer wires together a fresh Server around an already-initialized
// backend and a root window already registered in res/tree.
func NewServer(log *zap.Logger, res *resource.Table, tree *wintree.Tree, atoms *atomtable.Table, be backend.Backend, rootVisual uint32, rootDepth uint8) *Server {
	return &Server{
		Log:        log,
		Res:        res,
		Tree:       tree,
		Atoms:      atoms,
		Props:      property.New(),
		Sels:       selection.New(),
		Fonts:      fontstore.New(),
		Backend:    be,
		clients:    make(map[resource.ClientID]*Client),
		RootWindow: tree.Root(),
		RootVisual: rootVisual,
		RootDepth:  rootDepth,
	}
}

// RegisterClient makes c visible to SendEvent/KillClient/routing.
func (s *Server) RegisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// UnregisterClient removes c and cascades resource destruction (spec.md
// §4.3's disconnect cascade).
func (s *Server) UnregisterClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ID)
	s.mu.Unlock()

	s.Res.DestroyAllForOwner(c.ID, func(e resource.Entry) {
		switch e.Kind {
		case resource.KindWindow:
			s.Tree.DestroyWindow(e.ID, func(id proto.ResourceID) {
				s.Props.DestroyWindow(id)
				s.Sels.ClearOwnerForWindow(id)
				if s.Backend != nil {
					_ = s.Backend.DestroyWindow(backend.WindowHandle(id))
				}
			})
		case resource.KindPixmap, resource.KindGC, resource.KindCursor, resource.KindFont, resource.KindColormap:
			// Already removed from the resource table by DestroyAllForOwner;
			// no further subsystem state to release for these kinds.
		}
	})
}

// SetFocus/GetFocus implement SetInputFocus/GetInputFocus's bookkeeping
// (spec.md §4.10); no pointer/keyboard routing actually consults it.
func (s *Server) SetFocus(window proto.ResourceID, revertTo uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = window
	s.focusRevert = revertTo
}

func (s *Server) GetFocus() (proto.ResourceID, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus, s.focusRevert
}

func (s *Server) clientByID(id resource.ClientID) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	return c, ok
}

// queuesSnapshot returns every registered client's event queue keyed by
// client id, for the Router built in router().
func (s *Server) queuesSnapshot() map[uint32]*evpipe.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint32]*evpipe.Queue, len(s.clients))
	for id, c := range s.clients {
		out[uint32(id)] = c.Queue
	}
	return out
}

func (s *Server) router() *evpipe.Router {
	return evpipe.NewRouter(
		s.queuesSnapshot(),
		func(w proto.ResourceID) []proto.ResourceID { return s.Tree.Ancestors(w) },
		func(w proto.ResourceID) (map[uint32]uint32, bool) {
			sel, ok := s.Tree.Selectors(w)
			if !ok {
				return nil, false
			}
			out := make(map[uint32]uint32, len(sel))
			for cid, mask := range sel {
				out[uint32(cid)] = mask
			}
			return out, true
		},
	)
}

// Emit routes ev to every client selecting on its target window,
// propagating up the tree as needed (spec.md §4.9).
func (s *Server) Emit(ev evpipe.Event) {
	s.router().Dispatch(ev)
}

// handlerFunc processes one request's already-framed body (header
// stripped) and returns reply bytes (nil if the request has no reply)
// or a protocol error.
type handlerFunc func(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error)

var table = map[uint8]handlerFunc{
	proto.OpCreateWindow:           handleCreateWindow,
	proto.OpChangeWindowAttributes: handleChangeWindowAttributes,
	proto.OpGetWindowAttributes:    handleGetWindowAttributes,
	proto.OpDestroyWindow:          handleDestroyWindow,
	proto.OpDestroySubwindows:      handleDestroySubwindows,
	proto.OpReparentWindow:         handleReparentWindow,
	proto.OpMapWindow:              handleMapWindow,
	proto.OpMapSubwindows:          handleMapSubwindows,
	proto.OpUnmapWindow:            handleUnmapWindow,
	proto.OpUnmapSubwindows:        handleUnmapSubwindows,
	proto.OpConfigureWindow:        handleConfigureWindow,
	proto.OpCirculateWindow:        handleCirculateWindow,
	proto.OpGetGeometry:            handleGetGeometry,
	proto.OpQueryTree:              handleQueryTree,
	proto.OpInternAtom:             handleInternAtom,
	proto.OpGetAtomName:            handleGetAtomName,
	proto.OpChangeProperty:         handleChangeProperty,
	proto.OpDeleteProperty:         handleDeleteProperty,
	proto.OpGetProperty:            handleGetProperty,
	proto.OpListProperties:         handleListProperties,
	proto.OpSetSelectionOwner:      handleSetSelectionOwner,
	proto.OpGetSelectionOwner:      handleGetSelectionOwner,
	proto.OpConvertSelection:       handleConvertSelection,
	proto.OpSendEvent:              handleSendEvent,
	proto.OpGrabPointer:            handleGrabPointer,
	proto.OpUngrabPointer:          handleUngrabPointer,
	proto.OpGrabButton:             handleGrabButton,
	proto.OpUngrabButton:           handleUngrabButton,
	proto.OpGrabKeyboard:           handleGrabKeyboard,
	proto.OpUngrabKeyboard:         handleUngrabKeyboard,
	proto.OpGrabKey:                handleGrabKey,
	proto.OpUngrabKey:              handleUngrabKey,
	proto.OpAllowEvents:            handleAllowEvents,
	proto.OpGrabServer:             handleNoop,
	proto.OpUngrabServer:           handleNoop,
	proto.OpQueryPointer:           handleQueryPointer,
	proto.OpGetMotionEvents:        handleGetMotionEvents,
	proto.OpTranslateCoordinates:   handleTranslateCoordinates,
	proto.OpWarpPointer:            handleWarpPointer,
	proto.OpSetInputFocus:          handleSetInputFocus,
	proto.OpGetInputFocus:          handleGetInputFocus,
	proto.OpQueryKeymap:            handleQueryKeymap,
	proto.OpOpenFont:               handleOpenFont,
	proto.OpCloseFont:              handleCloseFont,
	proto.OpQueryFont:              handleQueryFont,
	proto.OpQueryTextExtents:       handleQueryTextExtents,
	proto.OpListFonts:              handleListFonts,
	proto.OpListFontsWithInfo:      handleListFontsWithInfo,
	proto.OpCreatePixmap:           handleCreatePixmap,
	proto.OpFreePixmap:             handleFreePixmap,
	proto.OpCreateGC:               handleCreateGC,
	proto.OpChangeGC:               handleChangeGC,
	proto.OpCopyGC:                 handleCopyGC,
	proto.OpSetDashes:              handleSetDashes,
	proto.OpSetClipRectangles:      handleSetClipRectangles,
	proto.OpFreeGC:                 handleFreeGC,
	proto.OpClearArea:              handleClearArea,
	proto.OpCopyArea:               handleCopyArea,
	proto.OpCopyPlane:              handleCopyPlane,
	proto.OpPolyPoint:              handlePolyPoint,
	proto.OpPolyLine:               handlePolyLine,
	proto.OpPolySegment:            handlePolySegment,
	proto.OpPolyRectangle:          handlePolyRectangle,
	proto.OpPolyArc:                handlePolyArc,
	proto.OpFillPoly:               handleFillPoly,
	proto.OpPolyFillRectangle:      handlePolyFillRectangle,
	proto.OpPolyFillArc:            handlePolyFillArc,
	proto.OpPutImage:               handlePutImage,
	proto.OpGetImage:               handleGetImage,
	proto.OpImageText8:             handleImageText8,
	proto.OpImageText16:            handleImageText16,
	proto.OpCreateColormap:         handleCreateColormap,
	proto.OpFreeColormap:           handleFreeColormap,
	proto.OpCopyColormapAndFree:    handleCopyColormapAndFree,
	proto.OpInstallColormap:        handleInstallColormap,
	proto.OpUninstallColormap:      handleUninstallColormap,
	proto.OpListInstalledColormaps: handleListInstalledColormaps,
	proto.OpAllocColor:             handleAllocColor,
	proto.OpAllocNamedColor:        handleAllocNamedColor,
	proto.OpFreeColors:             handleNoop,
	proto.OpStoreColors:            handleNoop,
	proto.OpStoreNamedColor:        handleNoop,
	proto.OpQueryColors:            handleQueryColors,
	proto.OpLookupColor:            handleLookupColor,
	proto.OpCreateCursor:           handleCreateCursor,
	proto.OpCreateGlyphCursor:      handleCreateGlyphCursor,
	proto.OpFreeCursor:             handleFreeCursor,
	proto.OpRecolorCursor:          handleRecolorCursor,
	proto.OpQueryBestSize:          handleQueryBestSize,
	proto.OpQueryExtension:         handleQueryExtension,
	proto.OpListExtensions:         handleListExtensions,
	proto.OpBell:                   handleNoop,
	proto.OpGetKeyboardMapping:     handleGetKeyboardMapping,
	proto.OpGetKeyboardControl:     handleGetKeyboardControl,
	proto.OpChangeKeyboardControl:  handleNoop,
	proto.OpChangeKeyboardMapping:  handleNoop,
	proto.OpChangePointerControl:   handleNoop,
	proto.OpGetPointerControl:      handleGetPointerControl,
	proto.OpSetScreenSaver:         handleNoop,
	proto.OpGetScreenSaver:         handleGetScreenSaver,
	proto.OpChangeHosts:            handleNoop,
	proto.OpListHosts:              handleListHosts,
	proto.OpSetAccessControl:       handleNoop,
	proto.OpSetCloseDownMode:       handleSetCloseDownMode,
	proto.OpKillClient:             handleKillClient,
	proto.OpRotateProperties:       handleNoop,
	proto.OpForceScreenSaver:       handleNoop,
	proto.OpSetPointerMapping:      handleSetPointerMapping,
	proto.OpGetPointerMapping:      handleGetPointerMapping,
	proto.OpSetModifierMapping:     handleSetModifierMapping,
	proto.OpGetModifierMapping:     handleGetModifierMapping,
	proto.OpNoOperation:            handleNoop,
	proto.OpBigReqEnable:           handleBigReqEnable,
}

// Handle looks up and invokes the handler for header.Opcode, recovering
// from any panic and converting it into ErrImplementation (spec.md §7,
// SPEC_FULL.md §A.3's per-request panic boundary).
func (s *Server) Handle(c *Client, header wire.RequestHeader, body []byte) (reply []byte, perr *protoerr.Error) {
	defer func() {
		if r := recover(); r != nil {
			if s.Log != nil {
				s.Log.Error("recovered panic in request handler", zap.Any("panic", r), zap.Uint8("opcode", header.Opcode))
			}
			reply = nil
			perr = protoerr.Implementation()
			perr.MajorOpcode = header.Opcode
		}
	}()

	h, ok := table[header.Opcode]
	if !ok {
		e := protoerr.New(proto.ErrRequest, 0)
		e.MajorOpcode = header.Opcode
		return nil, e
	}
	reply, perr = h(s, c, header, body)
	if perr != nil {
		perr.MajorOpcode = header.Opcode
	}
	return reply, perr
}

func handleNoop(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	return nil, nil
}

// dec wraps a request body in a wire.Decoder using c's negotiated byte
// order.
func dec(c *Client, body []byte) *wire.Decoder {
	return wire.NewDecoder(c.ByteOrder, body)
}

// enc starts a reply encoder using c's negotiated byte order.
func enc(c *Client) *wire.Encoder {
	return wire.NewEncoder(c.ByteOrder)
}

// valueList builds a gcontext/wintree-compatible "next value" reader
// over the tail of a decoder, used by CreateWindow/ChangeWindowAttributes/
// CreateGC/ChangeGC's value-mask + value-list shape.
func valueList(d *wire.Decoder) func() (uint32, error) {
	return func() (uint32, error) { return d.Uint32() }
}

