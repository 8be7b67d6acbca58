package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func handleCreateWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	id, _ := d.Uint32()
	parent, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	borderWidth, _ := d.Uint16()
	class, _ := d.Uint16()
	visual, _ := d.Uint32()
	valueMask, _ := d.Uint32()

	if !resource.InRange(proto.ResourceID(id), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, id)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(id)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, id)
	}

	depth := header.Detail
	if depth == 0 {
		depth = s.RootDepth
	}
	v := visual
	if v == 0 {
		v = s.RootVisual
	}

	ok := s.Tree.CreateWindow(wintree.CreateParams{
		ID:     proto.ResourceID(id),
		Parent: proto.ResourceID(parent),
		Class:  uint8(class),
		Depth:  depth,
		Visual: v,
		Geom: wintree.Geometry{
			X: x, Y: y, Width: width, Height: height, BorderWidth: borderWidth,
		},
		ValueMask: valueMask,
		Values:    valueList(d),
		Owner:     c.ID,
	})
	if !ok {
		return nil, protoerr.Window(parent)
	}

	if s.Backend != nil {
		_ = s.Backend.CreateWindow(backend.WindowHandle(id), toRect(x, y, width, height))
	}
	return nil, nil
}

func handleChangeWindowAttributes(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	valueMask, _ := d.Uint32()
	if !s.Tree.ChangeAttributes(proto.ResourceID(window), valueMask, valueList(d), c.ID) {
		return nil, protoerr.Window(window)
	}
	return nil, nil
}

func handleGetWindowAttributes(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	w, ok := s.Tree.Get(proto.ResourceID(window))
	if !ok {
		return nil, protoerr.Window(window)
	}
	yourMask := w.Attrs.EventMask
	if sel, ok := s.Tree.Selectors(proto.ResourceID(window)); ok {
		yourMask = sel[c.ID]
	}
	mapState := uint8(0) // Unmapped
	if w.Mapped {
		mapState = 2 // Viewable (no occlusion tracking, so never Unviewable)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, w.Attrs.BackingStore, 0, 3)
	e.PutUint32(w.Visual)
	e.PutUint16(uint16(w.Class))
	e.PutUint8(w.Attrs.BitGravity)
	e.PutUint8(w.Attrs.WinGravity)
	e.PutUint32(w.Attrs.BackingPlanes)
	e.PutUint32(w.Attrs.BackingPixel)
	e.PutBool(w.Attrs.SaveUnder)
	e.PutBool(true) // map-is-installed
	e.PutUint8(mapState)
	e.PutBool(w.Attrs.OverrideRedirect)
	e.PutUint32(uint32(w.Attrs.Colormap))
	e.PutUint32(w.Attrs.EventMask)
	e.PutUint32(yourMask)
	e.PutUint16(uint16(w.Attrs.DontPropagate))
	e.PutPadN(2)
	return e.Bytes(), nil
}

func handleDestroyWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if window == uint32(s.RootWindow) {
		return nil, protoerr.Match()
	}
	ok := s.Tree.DestroyWindow(proto.ResourceID(window), func(id proto.ResourceID) {
		s.Props.DestroyWindow(id)
		s.Sels.ClearOwnerForWindow(id)
		if s.Backend != nil {
			_ = s.Backend.DestroyWindow(backend.WindowHandle(id))
		}
		s.Emit(&evpipe.DestroyNotifyEvent{Event: id, Window: id})
	})
	if !ok {
		return nil, protoerr.Window(window)
	}
	return nil, nil
}

func handleDestroySubwindows(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	ok := s.Tree.DestroySubwindows(proto.ResourceID(window), func(id proto.ResourceID) {
		s.Props.DestroyWindow(id)
		s.Sels.ClearOwnerForWindow(id)
		if s.Backend != nil {
			_ = s.Backend.DestroyWindow(backend.WindowHandle(id))
		}
		s.Emit(&evpipe.DestroyNotifyEvent{Event: id, Window: id})
	})
	if !ok {
		return nil, protoerr.Window(window)
	}
	return nil, nil
}

func handleReparentWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	parent, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	if !s.Tree.Reparent(proto.ResourceID(window), proto.ResourceID(parent), x, y) {
		return nil, protoerr.Window(window)
	}
	s.Emit(&evpipe.ReparentNotifyEvent{Event: proto.ResourceID(window), Window: proto.ResourceID(window), Parent: proto.ResourceID(parent), X: x, Y: y})
	return nil, nil
}

func handleMapWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if !s.Tree.Map(proto.ResourceID(window)) {
		return nil, protoerr.Window(window)
	}
	if s.Backend != nil {
		_ = s.Backend.MapWindow(backend.WindowHandle(window))
	}
	s.Emit(&evpipe.MapNotifyEvent{Event: proto.ResourceID(window), Window: proto.ResourceID(window)})
	return nil, nil
}

func handleUnmapWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if !s.Tree.Unmap(proto.ResourceID(window)) {
		return nil, protoerr.Window(window)
	}
	if s.Backend != nil {
		_ = s.Backend.UnmapWindow(backend.WindowHandle(window))
	}
	s.Emit(&evpipe.UnmapNotifyEvent{Event: proto.ResourceID(window), Window: proto.ResourceID(window)})
	return nil, nil
}

func handleMapSubwindows(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	mapped, ok := s.Tree.MapSubwindows(proto.ResourceID(window))
	if !ok {
		return nil, protoerr.Window(window)
	}
	for _, id := range mapped {
		if s.Backend != nil {
			_ = s.Backend.MapWindow(backend.WindowHandle(id))
		}
		s.Emit(&evpipe.MapNotifyEvent{Event: id, Window: id})
	}
	return nil, nil
}

func handleUnmapSubwindows(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	unmapped, ok := s.Tree.UnmapSubwindows(proto.ResourceID(window))
	if !ok {
		return nil, protoerr.Window(window)
	}
	for _, id := range unmapped {
		if s.Backend != nil {
			_ = s.Backend.UnmapWindow(backend.WindowHandle(id))
		}
		s.Emit(&evpipe.UnmapNotifyEvent{Event: id, Window: id})
	}
	return nil, nil
}

func handleConfigureWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	mask16, _ := d.Uint16()
	d.Skip(2)
	mask := uint32(mask16)

	p := wintree.ConfigureParams{Mask: mask}
	if mask&proto.ConfigX != 0 {
		v, _ := d.Int32()
		p.X = int16(v)
	}
	if mask&proto.ConfigY != 0 {
		v, _ := d.Int32()
		p.Y = int16(v)
	}
	if mask&proto.ConfigWidth != 0 {
		v, _ := d.Uint32()
		p.Width = uint16(v)
	}
	if mask&proto.ConfigHeight != 0 {
		v, _ := d.Uint32()
		p.Height = uint16(v)
	}
	if mask&proto.ConfigBorderWidth != 0 {
		v, _ := d.Uint32()
		p.BorderWidth = uint16(v)
	}
	if mask&proto.ConfigSibling != 0 {
		v, _ := d.Uint32()
		p.Sibling = proto.ResourceID(v)
	}
	if mask&proto.ConfigStackMode != 0 {
		v, _ := d.Uint32()
		p.StackMode = uint8(v)
	}

	if !s.Tree.Configure(proto.ResourceID(window), p) {
		return nil, protoerr.Window(window)
	}
	w, _ := s.Tree.Get(proto.ResourceID(window))
	if s.Backend != nil {
		_ = s.Backend.ConfigureWindow(backend.WindowHandle(window), toRect(w.Geom.X, w.Geom.Y, w.Geom.Width, w.Geom.Height))
	}
	s.Emit(&evpipe.ConfigureNotifyEvent{
		Event: proto.ResourceID(window), Window: proto.ResourceID(window),
		X: w.Geom.X, Y: w.Geom.Y, Width: w.Geom.Width, Height: w.Geom.Height,
		BorderWidth: w.Geom.BorderWidth, OverrideRedirect: w.Attrs.OverrideRedirect,
	})
	return nil, nil
}

func handleCirculateWindow(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if !s.Tree.Circulate(proto.ResourceID(window), header.Detail) {
		return nil, protoerr.Window(window)
	}
	s.Emit(&evpipe.ConfigureNotifyEvent{Event: proto.ResourceID(window), Window: proto.ResourceID(window)})
	return nil, nil
}

func handleGetGeometry(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	var depth uint8
	var geom wintree.Geometry
	if w, ok := s.Tree.Get(proto.ResourceID(drawable)); ok {
		depth, geom = w.Depth, w.Geom
	} else if entry, ok := s.Res.LookupKind(proto.ResourceID(drawable), resource.KindPixmap); ok {
		pm := entry.Payload.(*pixmap)
		depth = pm.Depth
		geom = wintree.Geometry{Width: pm.Width, Height: pm.Height}
	} else {
		return nil, protoerr.New(proto.ErrDrawable, drawable)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, depth, 0, 0)
	e.PutUint32(uint32(s.RootWindow))
	e.PutInt16(geom.X)
	e.PutInt16(geom.Y)
	e.PutUint16(geom.Width)
	e.PutUint16(geom.Height)
	e.PutUint16(geom.BorderWidth)
	e.PutPadN(10)
	return e.Bytes(), nil
}

func handleQueryTree(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	parent, children, ok := s.Tree.QueryTree(proto.ResourceID(window))
	if !ok {
		return nil, protoerr.Window(window)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, wire.Units4(len(children)*4))
	e.PutUint32(uint32(s.RootWindow))
	e.PutUint32(uint32(parent))
	e.PutUint16(uint16(len(children)))
	e.PutPadN(14)
	for _, child := range children {
		e.PutUint32(uint32(child))
	}
	return e.Bytes(), nil
}
