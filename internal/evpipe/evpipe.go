// Package evpipe implements per-client event queues and mask/ancestor
// propagation routing (spec.md §4.9). It keeps the teacher's per-event-
// type struct shapes from x11/events.go but repurposes the parse*
// functions into encode* functions that produce the same wire shape
// instead of consuming it (SPEC_FULL.md §B.3).
package evpipe

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

// Event is anything that can encode itself onto the 32-byte core wire
// event shape (or, for ClientMessage, reuses the same fixed size).
type Event interface {
	// Encode appends the 32-byte wire event (marker byte and all) to e,
	// stamping the given sequence number into byte offset 2.
	Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16)
	// TargetWindow is the window this event is routed against.
	TargetWindow() proto.ResourceID
	// Mask is the EventMask bit this event corresponds to, for
	// mask-based client selection (spec.md §4.9). 0 for events always
	// delivered regardless of mask. SendEvent does not go through Event:
	// the dispatcher pushes its raw bytes with PushRaw to the clients
	// selecting on the destination window.
	Mask() uint32
}

func put32Header(e *wire.Encoder, code uint8, detail uint8, sequence uint16) {
	e.PutUint8(code)
	e.PutUint8(detail)
	e.PutUint16(sequence)
}

// KeyEvent covers KeyPress/KeyRelease.
type KeyEvent struct {
	Release                bool
	Keycode                uint8
	Time                   proto.Timestamp
	Root, Event, Child     proto.ResourceID
	RootX, RootY           int16
	EventX, EventY         int16
	State                  uint16
	SameScreen             bool
}

func (k *KeyEvent) TargetWindow() proto.ResourceID { return k.Event }
func (k *KeyEvent) Mask() uint32 {
	if k.Release {
		return proto.EventMaskKeyRelease
	}
	return proto.EventMaskKeyPress
}
func (k *KeyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	code := uint8(proto.EventKeyPress)
	if k.Release {
		code = proto.EventKeyRelease
	}
	put32Header(e, code, k.Keycode, sequence)
	e.PutUint32(uint32(k.Time))
	e.PutUint32(uint32(k.Root))
	e.PutUint32(uint32(k.Event))
	e.PutUint32(uint32(k.Child))
	e.PutInt16(k.RootX)
	e.PutInt16(k.RootY)
	e.PutInt16(k.EventX)
	e.PutInt16(k.EventY)
	e.PutUint16(k.State)
	e.PutBool(k.SameScreen)
	e.PutPadN(1)
}

// ButtonEvent covers ButtonPress/ButtonRelease.
type ButtonEvent struct {
	Release            bool
	Button             uint8
	Time               proto.Timestamp
	Root, Event, Child proto.ResourceID
	RootX, RootY       int16
	EventX, EventY     int16
	State              uint16
	SameScreen         bool
}

func (b *ButtonEvent) TargetWindow() proto.ResourceID { return b.Event }
func (b *ButtonEvent) Mask() uint32 {
	if b.Release {
		return proto.EventMaskButtonRelease
	}
	return proto.EventMaskButtonPress
}
func (b *ButtonEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	code := uint8(proto.EventButtonPress)
	if b.Release {
		code = proto.EventButtonRelease
	}
	put32Header(e, code, b.Button, sequence)
	e.PutUint32(uint32(b.Time))
	e.PutUint32(uint32(b.Root))
	e.PutUint32(uint32(b.Event))
	e.PutUint32(uint32(b.Child))
	e.PutInt16(b.RootX)
	e.PutInt16(b.RootY)
	e.PutInt16(b.EventX)
	e.PutInt16(b.EventY)
	e.PutUint16(b.State)
	e.PutBool(b.SameScreen)
	e.PutPadN(1)
}

// MotionNotifyEvent reports pointer movement.
type MotionNotifyEvent struct {
	Hint               bool
	Time               proto.Timestamp
	Root, Event, Child proto.ResourceID
	RootX, RootY       int16
	EventX, EventY     int16
	State              uint16
	SameScreen         bool
}

func (m *MotionNotifyEvent) TargetWindow() proto.ResourceID { return m.Event }
func (m *MotionNotifyEvent) Mask() uint32                   { return proto.EventMaskPointerMotion }
func (m *MotionNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	detail := uint8(0)
	if m.Hint {
		detail = 1
	}
	put32Header(e, proto.EventMotionNotify, detail, sequence)
	e.PutUint32(uint32(m.Time))
	e.PutUint32(uint32(m.Root))
	e.PutUint32(uint32(m.Event))
	e.PutUint32(uint32(m.Child))
	e.PutInt16(m.RootX)
	e.PutInt16(m.RootY)
	e.PutInt16(m.EventX)
	e.PutInt16(m.EventY)
	e.PutUint16(m.State)
	e.PutBool(m.SameScreen)
	e.PutPadN(1)
}

// CrossingEvent covers EnterNotify/LeaveNotify.
type CrossingEvent struct {
	Leave              bool
	Detail             uint8
	Time               proto.Timestamp
	Root, Event, Child proto.ResourceID
	RootX, RootY       int16
	EventX, EventY     int16
	State              uint16
	Mode               uint8
	SameScreenFocus    uint8
}

func (c *CrossingEvent) TargetWindow() proto.ResourceID { return c.Event }
func (c *CrossingEvent) Mask() uint32 {
	if c.Leave {
		return proto.EventMaskLeaveWindow
	}
	return proto.EventMaskEnterWindow
}
func (c *CrossingEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	code := uint8(proto.EventEnterNotify)
	if c.Leave {
		code = proto.EventLeaveNotify
	}
	put32Header(e, code, c.Detail, sequence)
	e.PutUint32(uint32(c.Time))
	e.PutUint32(uint32(c.Root))
	e.PutUint32(uint32(c.Event))
	e.PutUint32(uint32(c.Child))
	e.PutInt16(c.RootX)
	e.PutInt16(c.RootY)
	e.PutInt16(c.EventX)
	e.PutInt16(c.EventY)
	e.PutUint16(c.State)
	e.PutUint8(c.Mode)
	e.PutUint8(c.SameScreenFocus)
}

// FocusEvent covers FocusIn/FocusOut.
type FocusEvent struct {
	Out    bool
	Detail uint8
	Event  proto.ResourceID
	Mode   uint8
}

func (f *FocusEvent) TargetWindow() proto.ResourceID { return f.Event }
func (f *FocusEvent) Mask() uint32                   { return proto.EventMaskFocusChange }
func (f *FocusEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	code := uint8(proto.EventFocusIn)
	if f.Out {
		code = proto.EventFocusOut
	}
	put32Header(e, code, f.Detail, sequence)
	e.PutUint32(uint32(f.Event))
	e.PutUint8(f.Mode)
	e.PutPadN(23)
}

// ExposeEvent reports a region needing redraw.
type ExposeEvent struct {
	Window               proto.ResourceID
	X, Y, Width, Height  uint16
	Count                uint16
}

func (x *ExposeEvent) TargetWindow() proto.ResourceID { return x.Window }
func (x *ExposeEvent) Mask() uint32                   { return proto.EventMaskExposure }
func (x *ExposeEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventExpose, 0, sequence)
	e.PutUint32(uint32(x.Window))
	e.PutUint16(x.X)
	e.PutUint16(x.Y)
	e.PutUint16(x.Width)
	e.PutUint16(x.Height)
	e.PutUint16(x.Count)
	e.PutPadN(14)
}

// ConfigureNotifyEvent reports a window's geometry change.
type ConfigureNotifyEvent struct {
	Event, Window, AboveSibling proto.ResourceID
	X, Y                        int16
	Width, Height               uint16
	BorderWidth                 uint16
	OverrideRedirect            bool
}

func (c *ConfigureNotifyEvent) TargetWindow() proto.ResourceID { return c.Event }
func (c *ConfigureNotifyEvent) Mask() uint32                   { return proto.EventMaskStructureNotify }
func (c *ConfigureNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventConfigureNotify, 0, sequence)
	e.PutUint32(uint32(c.Event))
	e.PutUint32(uint32(c.Window))
	e.PutUint32(uint32(c.AboveSibling))
	e.PutInt16(c.X)
	e.PutInt16(c.Y)
	e.PutUint16(c.Width)
	e.PutUint16(c.Height)
	e.PutUint16(c.BorderWidth)
	e.PutBool(c.OverrideRedirect)
	e.PutPadN(5)
}

// MapNotifyEvent reports a window being mapped.
type MapNotifyEvent struct {
	Event, Window    proto.ResourceID
	OverrideRedirect bool
}

func (m *MapNotifyEvent) TargetWindow() proto.ResourceID { return m.Event }
func (m *MapNotifyEvent) Mask() uint32                   { return proto.EventMaskStructureNotify }
func (m *MapNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventMapNotify, 0, sequence)
	e.PutUint32(uint32(m.Event))
	e.PutUint32(uint32(m.Window))
	e.PutBool(m.OverrideRedirect)
	e.PutPadN(19)
}

// UnmapNotifyEvent reports a window being unmapped.
type UnmapNotifyEvent struct {
	Event, Window proto.ResourceID
	FromConfigure bool
}

func (u *UnmapNotifyEvent) TargetWindow() proto.ResourceID { return u.Event }
func (u *UnmapNotifyEvent) Mask() uint32                   { return proto.EventMaskStructureNotify }
func (u *UnmapNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventUnmapNotify, 0, sequence)
	e.PutUint32(uint32(u.Event))
	e.PutUint32(uint32(u.Window))
	e.PutBool(u.FromConfigure)
	e.PutPadN(19)
}

// DestroyNotifyEvent reports a window being destroyed.
type DestroyNotifyEvent struct {
	Event, Window proto.ResourceID
}

func (d *DestroyNotifyEvent) TargetWindow() proto.ResourceID { return d.Event }
func (d *DestroyNotifyEvent) Mask() uint32                   { return proto.EventMaskStructureNotify }
func (d *DestroyNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventDestroyNotify, 0, sequence)
	e.PutUint32(uint32(d.Event))
	e.PutUint32(uint32(d.Window))
	e.PutPadN(20)
}

// ReparentNotifyEvent reports a window's parent changing.
type ReparentNotifyEvent struct {
	Event, Window, Parent proto.ResourceID
	X, Y                   int16
	OverrideRedirect       bool
}

func (r *ReparentNotifyEvent) TargetWindow() proto.ResourceID { return r.Event }
func (r *ReparentNotifyEvent) Mask() uint32                   { return proto.EventMaskStructureNotify }
func (r *ReparentNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventReparentNotify, 0, sequence)
	e.PutUint32(uint32(r.Event))
	e.PutUint32(uint32(r.Window))
	e.PutUint32(uint32(r.Parent))
	e.PutInt16(r.X)
	e.PutInt16(r.Y)
	e.PutBool(r.OverrideRedirect)
	e.PutPadN(11)
}

// PropertyNotifyEvent reports a property change on a window.
type PropertyNotifyEvent struct {
	Window proto.ResourceID
	Atom   proto.Atom
	Time   proto.Timestamp
	State  uint8
}

func (p *PropertyNotifyEvent) TargetWindow() proto.ResourceID { return p.Window }
func (p *PropertyNotifyEvent) Mask() uint32                   { return proto.EventMaskPropertyChange }
func (p *PropertyNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventPropertyNotify, 0, sequence)
	e.PutUint32(uint32(p.Window))
	e.PutUint32(uint32(p.Atom))
	e.PutUint32(uint32(p.Time))
	e.PutUint8(p.State)
	e.PutPadN(15)
}

// SelectionClearEvent reports a selection losing its owner.
type SelectionClearEvent struct {
	Time      proto.Timestamp
	Owner     proto.ResourceID
	Selection proto.Atom
}

func (s *SelectionClearEvent) TargetWindow() proto.ResourceID { return s.Owner }
func (s *SelectionClearEvent) Mask() uint32                   { return 0 } // always delivered, no mask gate
func (s *SelectionClearEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventSelectionClear, 0, sequence)
	e.PutUint32(uint32(s.Time))
	e.PutUint32(uint32(s.Owner))
	e.PutUint32(uint32(s.Selection))
	e.PutPadN(16)
}

// SelectionNotifyEvent reports the outcome of ConvertSelection.
type SelectionNotifyEvent struct {
	Time                       proto.Timestamp
	Requestor                  proto.ResourceID
	Selection, Target, Property proto.Atom
}

func (s *SelectionNotifyEvent) TargetWindow() proto.ResourceID { return s.Requestor }
func (s *SelectionNotifyEvent) Mask() uint32                   { return 0 }
func (s *SelectionNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventSelectionNotify, 0, sequence)
	e.PutUint32(uint32(s.Time))
	e.PutUint32(uint32(s.Requestor))
	e.PutUint32(uint32(s.Selection))
	e.PutUint32(uint32(s.Target))
	e.PutUint32(uint32(s.Property))
	e.PutPadN(8)
}

// SelectionRequestEvent asks the selection owner to convert its
// selection for a requestor (ConvertSelection's forwarded request).
type SelectionRequestEvent struct {
	Time                                proto.Timestamp
	Owner, Requestor                    proto.ResourceID
	Selection, Target, Property         proto.Atom
}

func (s *SelectionRequestEvent) TargetWindow() proto.ResourceID { return s.Owner }
func (s *SelectionRequestEvent) Mask() uint32                   { return 0 }
func (s *SelectionRequestEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventSelectionRequest, 0, sequence)
	e.PutUint32(uint32(s.Time))
	e.PutUint32(uint32(s.Owner))
	e.PutUint32(uint32(s.Requestor))
	e.PutUint32(uint32(s.Selection))
	e.PutUint32(uint32(s.Target))
	e.PutUint32(uint32(s.Property))
	e.PutPadN(4)
}

// ColormapNotifyEvent reports a window's colormap being installed,
// uninstalled, or changed to a different colormap.
type ColormapNotifyEvent struct {
	Window   proto.ResourceID
	Colormap proto.ResourceID
	New      bool
	State    uint8 // 0 = uninstalled, 1 = installed
}

func (c *ColormapNotifyEvent) TargetWindow() proto.ResourceID { return c.Window }
func (c *ColormapNotifyEvent) Mask() uint32                   { return proto.EventMaskColormapChange }
func (c *ColormapNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventColormapNotify, 0, sequence)
	e.PutUint32(uint32(c.Window))
	e.PutUint32(uint32(c.Colormap))
	e.PutBool(c.New)
	e.PutUint8(c.State)
	e.PutPadN(18)
}

// ClientMessageEvent carries an application-defined payload, used both
// by clients (SendEvent) and the server (ICCCM delete-window etc.).
type ClientMessageEvent struct {
	Format uint8
	Window proto.ResourceID
	Type   proto.Atom
	Data   [20]byte // raw format-8/16/32 payload, pre-packed by the caller
}

func (c *ClientMessageEvent) TargetWindow() proto.ResourceID { return c.Window }
func (c *ClientMessageEvent) Mask() uint32                   { return 0 }
func (c *ClientMessageEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventClientMessage, c.Format, sequence)
	e.PutUint32(uint32(c.Window))
	e.PutUint32(uint32(c.Type))
	e.PutBytes(c.Data[:])
}

// MappingNotifyEvent reports a keyboard/pointer/modifier mapping change.
type MappingNotifyEvent struct {
	Request     uint8
	FirstKeycode uint8
	Count        uint8
}

func (m *MappingNotifyEvent) TargetWindow() proto.ResourceID { return proto.None }
func (m *MappingNotifyEvent) Mask() uint32                   { return 0 }
func (m *MappingNotifyEvent) Encode(e *wire.Encoder, order proto.ByteOrder, sequence uint16) {
	put32Header(e, proto.EventMappingNotify, 0, sequence)
	e.PutUint8(m.Request)
	e.PutUint8(m.FirstKeycode)
	e.PutUint8(m.Count)
	e.PutPadN(25)
}

// Queue is one client's pending-event FIFO.
type Queue struct {
	mu     sync.Mutex
	events []queuedEvent
	notify chan struct{}
}

type queuedEvent struct {
	ev  Event
	raw []byte // pre-encoded, used for SendEvent's already-packed payload
}

// NewQueue creates an empty per-client event queue.
func NewQueue() *Queue { return &Queue{notify: make(chan struct{}, 1)} }

// Push enqueues ev.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, queuedEvent{ev: ev})
	q.mu.Unlock()
	q.wake()
}

// PushRaw enqueues an already wire-encoded 32-byte event (used for
// SendEvent, which forwards the client-supplied bytes verbatim except
// for the synthetic bit, per spec.md §4.9).
func (q *Queue) PushRaw(raw []byte) {
	q.mu.Lock()
	q.events = append(q.events, queuedEvent{raw: raw})
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Notify returns a channel that receives a value after each Push or
// PushRaw (signals coalesce while one is pending); internal/session
// selects on it to know when
// to drain and flush events to a client blocked reading its socket.
func (q *Queue) Notify() <-chan struct{} { return q.notify }

// Drain returns every queued event, encoded, clearing the queue.
// sequence is the client's current sequence counter, stamped into each
// newly-encoded (non-raw) event.
func (q *Queue) Drain(order proto.ByteOrder, sequence uint16) [][]byte {
	q.mu.Lock()
	pending := q.events
	q.events = nil
	q.mu.Unlock()

	out := make([][]byte, 0, len(pending))
	for _, qe := range pending {
		if qe.raw != nil {
			out = append(out, qe.raw)
			continue
		}
		e := wire.NewEncoder(order)
		qe.ev.Encode(e, order, sequence)
		out = append(out, e.Bytes())
	}
	return out
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// AncestorLookup returns a window's ancestor chain, nearest parent
// first, matching wintree.Tree.Ancestors's contract.
type AncestorLookup func(window proto.ResourceID) []proto.ResourceID

// SelectorLookup returns the client->mask selection map for a window,
// matching wintree.Tree.Selectors's contract.
type SelectorLookup func(window proto.ResourceID) (map[uint32]uint32, bool)

// Router delivers an Event to every client whose selected mask on the
// event's target window (or, for masks in proto.PropagatingMask, the
// nearest propagating ancestor) matches the event's Mask().
type Router struct {
	queues    map[uint32]*Queue
	ancestors AncestorLookup
	selectors SelectorLookup
}

// NewRouter creates a Router backed by the given per-client queue table
// and window-tree lookups.
func NewRouter(queues map[uint32]*Queue, ancestors AncestorLookup, selectors SelectorLookup) *Router {
	return &Router{queues: queues, ancestors: ancestors, selectors: selectors}
}

// Dispatch routes ev per spec.md §4.9: first try clients selecting on
// the target window; if none do and the event's mask participates in
// propagation, walk up ancestors until a selecting client is found or
// the root is reached. Windows' do-not-propagate masks are not
// consulted during the walk.
func (r *Router) Dispatch(ev Event) {
	mask := ev.Mask()
	window := ev.TargetWindow()
	if window == proto.None {
		return
	}

	if r.deliverAt(window, mask, ev) {
		return
	}
	if mask&proto.PropagatingMask == 0 {
		return
	}
	for _, ancestor := range r.ancestors(window) {
		if r.deliverAt(ancestor, mask, ev) {
			return
		}
	}
}

func (r *Router) deliverAt(window proto.ResourceID, mask uint32, ev Event) bool {
	selectors, ok := r.selectors(window)
	if !ok {
		return false
	}
	delivered := false
	for client, selected := range selectors {
		if mask != 0 && selected&mask == 0 {
			continue
		}
		if q, ok := r.queues[client]; ok {
			q.Push(ev)
			delivered = true
		}
	}
	return delivered
}
