// Package wintree implements the server's window tree: geometry,
// stacking order, and attribute state (spec.md §4.4). It is grounded on
// the request-building methods of the teacher's x11/window.go
// (CreateWindow/MapWindow/UnmapWindow/DestroyWindow/ConfigureWindow/
// GetGeometry), inverted into handlers that mutate server-side state
// directly instead of encoding a request to send over the wire.
package wintree

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
)

// Attributes holds the CreateWindow/ChangeWindowAttributes-settable
// window attributes (spec.md §4.4).
type Attributes struct {
	BackPixmap       proto.ResourceID
	BackPixel        uint32
	BorderPixmap     proto.ResourceID
	BorderPixel      uint32
	BitGravity       uint8
	WinGravity       uint8
	BackingStore     uint8
	BackingPlanes    uint32
	BackingPixel     uint32
	OverrideRedirect bool
	SaveUnder        bool
	EventMask        uint32
	DontPropagate    uint32
	Colormap         proto.ResourceID
	Cursor           proto.ResourceID
}

// Geometry is a window's position/size/border relative to its parent.
type Geometry struct {
	X, Y                 int16
	Width, Height        uint16
	BorderWidth          uint16
}

// Window is one node of the tree.
type Window struct {
	ID       proto.ResourceID
	Parent   proto.ResourceID
	Children []proto.ResourceID // back to front (index 0 = bottom of stack)
	Class    uint8
	Depth    uint8
	Visual   uint32
	Geom     Geometry
	Attrs    Attributes
	Mapped   bool
	Owner    resource.ClientID

	// EventSelectors records which clients selected which masks on this
	// window, for mask-based routing (spec.md §4.9). The union of all
	// clients' selections is reflected in Attrs.EventMask for CW/GetWindowAttributes.
	EventSelectors map[resource.ClientID]uint32
}

// Tree owns the full window hierarchy rooted at a single root window.
type Tree struct {
	mu      sync.Mutex
	res     *resource.Table
	root    proto.ResourceID
	windows map[proto.ResourceID]*Window
}

// NewTree creates a Tree whose root window is rootID and registers
// rootID in the resource table.
func NewTree(res *resource.Table, rootID proto.ResourceID, width, height uint16) *Tree {
	root := &Window{
		ID:       rootID,
		Parent:   proto.None,
		Class:    proto.WindowClassInputOutput,
		Depth:    24,
		Geom:     Geometry{Width: width, Height: height},
		Mapped:   true,
		EventSelectors: make(map[resource.ClientID]uint32),
	}
	t := &Tree{
		res:     res,
		root:    rootID,
		windows: map[proto.ResourceID]*Window{rootID: root},
	}
	res.Create(rootID, resource.KindWindow, 0, root)
	return t
}

// Root returns the root window id.
func (t *Tree) Root() proto.ResourceID { return t.root }

// Get returns the Window for id.
func (t *Tree) Get(id proto.ResourceID) (*Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	return w, ok
}

// CreateParams bundles CreateWindow's arguments.
type CreateParams struct {
	ID          proto.ResourceID
	Parent      proto.ResourceID
	Class       uint8
	Depth       uint8
	Visual      uint32
	Geom        Geometry
	ValueMask   uint32
	Values      gcontextValueReader
	Owner       resource.ClientID
}

// gcontextValueReader mirrors gcontext.ValueReader without importing that
// package, to keep wintree decoupled from GC internals; dispatch supplies
// a closure reading the request's value-list in CW* bit order.
type gcontextValueReader = func() (uint32, error)

// CreateWindow inserts a new window as the top (frontmost) child of its
// parent. Returns false if the parent does not exist.
func (t *Tree) CreateWindow(p CreateParams) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, ok := t.windows[p.Parent]
	if !ok {
		return false
	}
	w := &Window{
		ID:             p.ID,
		Parent:         p.Parent,
		Class:          p.Class,
		Depth:          p.Depth,
		Visual:         p.Visual,
		Geom:           p.Geom,
		Owner:          p.Owner,
		EventSelectors: make(map[resource.ClientID]uint32),
	}
	if err := w.applyAttrs(p.ValueMask, p.Values, p.Owner); err != nil {
		return false
	}
	t.windows[p.ID] = w
	parent.Children = append(parent.Children, p.ID)
	t.res.Create(p.ID, resource.KindWindow, p.Owner, w)
	return true
}

func (w *Window) applyAttrs(mask uint32, next gcontextValueReader, client resource.ClientID) error {
	if next == nil {
		return nil
	}
	type field struct {
		bit uint32
		set func(uint32)
	}
	fields := []field{
		{proto.CWBackPixmap, func(v uint32) { w.Attrs.BackPixmap = proto.ResourceID(v) }},
		{proto.CWBackPixel, func(v uint32) { w.Attrs.BackPixel = v }},
		{proto.CWBorderPixmap, func(v uint32) { w.Attrs.BorderPixmap = proto.ResourceID(v) }},
		{proto.CWBorderPixel, func(v uint32) { w.Attrs.BorderPixel = v }},
		{proto.CWBitGravity, func(v uint32) { w.Attrs.BitGravity = uint8(v) }},
		{proto.CWWinGravity, func(v uint32) { w.Attrs.WinGravity = uint8(v) }},
		{proto.CWBackingStore, func(v uint32) { w.Attrs.BackingStore = uint8(v) }},
		{proto.CWBackingPlanes, func(v uint32) { w.Attrs.BackingPlanes = v }},
		{proto.CWBackingPixel, func(v uint32) { w.Attrs.BackingPixel = v }},
		{proto.CWOverrideRedirect, func(v uint32) { w.Attrs.OverrideRedirect = v != 0 }},
		{proto.CWSaveUnder, func(v uint32) { w.Attrs.SaveUnder = v != 0 }},
		{proto.CWEventMask, func(v uint32) {
			if w.EventSelectors == nil {
				w.EventSelectors = make(map[resource.ClientID]uint32)
			}
			if v == 0 {
				delete(w.EventSelectors, client)
			} else {
				w.EventSelectors[client] = v
			}
			var union uint32
			for _, m := range w.EventSelectors {
				union |= m
			}
			w.Attrs.EventMask = union
		}},
		{proto.CWDontPropagate, func(v uint32) { w.Attrs.DontPropagate = v }},
		{proto.CWColormap, func(v uint32) { w.Attrs.Colormap = proto.ResourceID(v) }},
		{proto.CWCursor, func(v uint32) { w.Attrs.Cursor = proto.ResourceID(v) }},
	}
	for _, f := range fields {
		if mask&f.bit == 0 {
			continue
		}
		v, err := next()
		if err != nil {
			return err
		}
		f.set(v)
	}
	return nil
}

// ChangeAttributes applies a ChangeWindowAttributes value-mask/list to
// an existing window, on behalf of client (for CWEventMask routing).
func (t *Tree) ChangeAttributes(id proto.ResourceID, mask uint32, next gcontextValueReader, client resource.ClientID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	_ = w.applyAttrs(mask, next, client)
	return true
}

// destroyLocked removes id and, recursively, all of its descendants,
// from the tree and the resource table, invoking fn for every window
// removed (deepest-first so a caller emitting DestroyNotify can walk the
// subtree child-before-parent, matching real server ordering).
func (t *Tree) destroyLocked(id proto.ResourceID, fn func(proto.ResourceID)) {
	w, ok := t.windows[id]
	if !ok {
		return
	}
	for _, child := range append([]proto.ResourceID(nil), w.Children...) {
		t.destroyLocked(child, fn)
	}
	if parent, ok := t.windows[w.Parent]; ok {
		parent.Children = removeID(parent.Children, id)
	}
	delete(t.windows, id)
	t.res.Destroy(id)
	if fn != nil {
		fn(id)
	}
}

// DestroyWindow removes id and its subtree. fn is invoked once per
// removed window, descendants first.
func (t *Tree) DestroyWindow(id proto.ResourceID, fn func(proto.ResourceID)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == t.root {
		return false // root is never destroyed by a client request
	}
	if _, ok := t.windows[id]; !ok {
		return false
	}
	t.destroyLocked(id, fn)
	return true
}

// DestroySubwindows destroys every child of id (not id itself).
func (t *Tree) DestroySubwindows(id proto.ResourceID, fn func(proto.ResourceID)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	for _, child := range append([]proto.ResourceID(nil), w.Children...) {
		t.destroyLocked(child, fn)
	}
	return true
}

// Map marks id mapped. Returns false if id doesn't exist.
func (t *Tree) Map(id proto.ResourceID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	w.Mapped = true
	return true
}

// Unmap marks id unmapped.
func (t *Tree) Unmap(id proto.ResourceID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	w.Mapped = false
	return true
}

// MapSubwindows maps every child of id, top-to-bottom per the protocol's
// MapSubwindows ordering requirement, returning the ids mapped.
func (t *Tree) MapSubwindows(id proto.ResourceID) ([]proto.ResourceID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return nil, false
	}
	var mapped []proto.ResourceID
	for i := len(w.Children) - 1; i >= 0; i-- {
		child := w.Children[i]
		if cw, ok := t.windows[child]; ok && !cw.Mapped {
			cw.Mapped = true
			mapped = append(mapped, child)
		}
	}
	return mapped, true
}

// UnmapSubwindows unmaps every mapped child of id, returning the ids
// unmapped.
func (t *Tree) UnmapSubwindows(id proto.ResourceID) ([]proto.ResourceID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return nil, false
	}
	var unmapped []proto.ResourceID
	for _, child := range w.Children {
		if cw, ok := t.windows[child]; ok && cw.Mapped {
			cw.Mapped = false
			unmapped = append(unmapped, child)
		}
	}
	return unmapped, true
}

// ConfigureParams bundles ConfigureWindow's optional fields; Mask uses
// the proto.Config* bits to say which are present.
type ConfigureParams struct {
	Mask                        uint32
	X, Y                        int16
	Width, Height, BorderWidth  uint16
	Sibling                     proto.ResourceID
	StackMode                   uint8
}

// Configure applies a ConfigureWindow request to id, reordering its
// position in the parent's stacking list when StackMode/Sibling are
// given. Returns false only if id doesn't exist; a named sibling that
// doesn't exist is not an error (callers validate Match semantics
// themselves).
func (t *Tree) Configure(id proto.ResourceID, p ConfigureParams) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	if p.Mask&proto.ConfigX != 0 {
		w.Geom.X = p.X
	}
	if p.Mask&proto.ConfigY != 0 {
		w.Geom.Y = p.Y
	}
	if p.Mask&proto.ConfigWidth != 0 {
		w.Geom.Width = p.Width
	}
	if p.Mask&proto.ConfigHeight != 0 {
		w.Geom.Height = p.Height
	}
	if p.Mask&proto.ConfigBorderWidth != 0 {
		w.Geom.BorderWidth = p.BorderWidth
	}
	if p.Mask&proto.ConfigStackMode != 0 {
		t.restackLocked(w, p)
	}
	return true
}

func (t *Tree) restackLocked(w *Window, p ConfigureParams) {
	parent, ok := t.windows[w.Parent]
	if !ok {
		return
	}
	siblings := parent.Children
	idx := indexOf(siblings, w.ID)
	if idx < 0 {
		return
	}
	siblings = removeID(siblings, w.ID)

	switch p.StackMode {
	case proto.StackAbove:
		if p.Mask&proto.ConfigSibling != 0 {
			si := indexOf(siblings, p.Sibling)
			if si < 0 {
				parent.Children = append(siblings, w.ID)
				return
			}
			siblings = insertAfter(siblings, si, w.ID)
		} else {
			siblings = append(siblings, w.ID)
		}
	case proto.StackBelow:
		if p.Mask&proto.ConfigSibling != 0 {
			si := indexOf(siblings, p.Sibling)
			if si < 0 {
				parent.Children = append([]proto.ResourceID{w.ID}, siblings...)
				return
			}
			siblings = insertBefore(siblings, si, w.ID)
		} else {
			siblings = append([]proto.ResourceID{w.ID}, siblings...)
		}
	case proto.StackTopIf, proto.StackBottomIf, proto.StackOpposite:
		// Conditional stacking relative to occlusion is not evaluated
		// (no backend rendering order is tracked); treated as Above.
		siblings = append(siblings, w.ID)
	default:
		siblings = append(siblings, w.ID)
	}
	parent.Children = siblings
}

// Circulate raises or lowers the bottom/top-most mapped child of id to
// the opposite end of the stacking order. dir is 0 (RaiseLowest) or 1
// (LowerHighest) per CirculateWindow's wire encoding.
func (t *Tree) Circulate(id proto.ResourceID, dir uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	if len(w.Children) < 2 {
		return true
	}
	if dir == 0 {
		// Raise the lowest mapped child to the top.
		for i, child := range w.Children {
			if cw, ok := t.windows[child]; ok && cw.Mapped {
				w.Children = append(append(w.Children[:i:i], w.Children[i+1:]...), child)
				break
			}
		}
	} else {
		for i := len(w.Children) - 1; i >= 0; i-- {
			child := w.Children[i]
			if cw, ok := t.windows[child]; ok && cw.Mapped {
				rest := append([]proto.ResourceID{child}, w.Children[:i]...)
				w.Children = append(rest, w.Children[i+1:]...)
				break
			}
		}
	}
	return true
}

// Reparent moves id to become a child of newParent at position (x, y)
// in the new parent's coordinate space.
func (t *Tree) Reparent(id, newParent proto.ResourceID, x, y int16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return false
	}
	np, ok := t.windows[newParent]
	if !ok {
		return false
	}
	if oldParent, ok := t.windows[w.Parent]; ok {
		oldParent.Children = removeID(oldParent.Children, id)
	}
	w.Parent = newParent
	w.Geom.X, w.Geom.Y = x, y
	np.Children = append(np.Children, id)
	return true
}

// QueryTree returns id's parent and children (bottom-to-top order).
func (t *Tree) QueryTree(id proto.ResourceID) (parent proto.ResourceID, children []proto.ResourceID, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, exists := t.windows[id]
	if !exists {
		return 0, nil, false
	}
	return w.Parent, append([]proto.ResourceID(nil), w.Children...), true
}

// Selectors returns a copy of the client->mask selection map for id.
func (t *Tree) Selectors(id proto.ResourceID) (map[resource.ClientID]uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return nil, false
	}
	out := make(map[resource.ClientID]uint32, len(w.EventSelectors))
	for c, m := range w.EventSelectors {
		out[c] = m
	}
	return out, true
}

// Ancestors returns id's ancestor chain, id's parent first, root last.
func (t *Tree) Ancestors(id proto.ResourceID) []proto.ResourceID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var chain []proto.ResourceID
	w, ok := t.windows[id]
	if !ok {
		return nil
	}
	cur := w.Parent
	for cur != proto.None {
		chain = append(chain, cur)
		next, ok := t.windows[cur]
		if !ok {
			break
		}
		cur = next.Parent
	}
	return chain
}

func removeID(ids []proto.ResourceID, target proto.ResourceID) []proto.ResourceID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func indexOf(ids []proto.ResourceID, target proto.ResourceID) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func insertAfter(ids []proto.ResourceID, idx int, id proto.ResourceID) []proto.ResourceID {
	out := append([]proto.ResourceID(nil), ids[:idx+1]...)
	out = append(out, id)
	out = append(out, ids[idx+1:]...)
	return out
}

func insertBefore(ids []proto.ResourceID, idx int, id proto.ResourceID) []proto.ResourceID {
	out := append([]proto.ResourceID(nil), ids[:idx]...)
	out = append(out, id)
	out = append(out, ids[idx:]...)
	return out
}
