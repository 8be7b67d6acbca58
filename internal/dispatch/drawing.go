package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/gcontext"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

// drawableGeom resolves a WINDOW or PIXMAP id to its geometry/depth,
// since most drawing requests accept either.
func drawableGeom(s *Server, id proto.ResourceID) (wintree.Geometry, uint8, bool) {
	if w, ok := s.Tree.Get(id); ok {
		return w.Geom, w.Depth, true
	}
	if entry, ok := s.Res.LookupKind(id, resource.KindPixmap); ok {
		pm := entry.Payload.(*pixmap)
		return wintree.Geometry{Width: pm.Width, Height: pm.Height}, pm.Depth, true
	}
	return wintree.Geometry{}, 0, false
}

func gcColor(gc *gcontext.GC) backend.Color {
	return backend.Color{
		R: uint8(gc.Foreground >> 16),
		G: uint8(gc.Foreground >> 8),
		B: uint8(gc.Foreground),
		A: 0xff,
	}
}

func handleClearArea(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	if s.Backend != nil {
		_ = s.Backend.FillRectangles(backend.WindowHandle(window), []backend.Rect{{X: x, Y: y, W: width, H: height}}, backend.Color{A: 0xff})
	}
	return nil, nil
}

func handleCopyArea(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	src, _ := d.Uint32()
	dst, _ := d.Uint32()
	_, perr := lookupGC(s, func() uint32 { v, _ := d.Uint32(); return v }())
	if perr != nil {
		return nil, perr
	}
	srcX, _ := d.Int16()
	srcY, _ := d.Int16()
	dstX, _ := d.Int16()
	dstY, _ := d.Int16()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	if s.Backend != nil {
		_ = s.Backend.CopyArea(backend.WindowHandle(src), backend.WindowHandle(dst),
			backend.Rect{X: srcX, Y: srcY, W: width, H: height}, dstX, dstY)
	}
	return nil, nil
}

func handleCopyPlane(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	src, _ := d.Uint32()
	dst, _ := d.Uint32()
	_, perr := lookupGC(s, func() uint32 { v, _ := d.Uint32(); return v }())
	if perr != nil {
		return nil, perr
	}
	srcX, _ := d.Int16()
	srcY, _ := d.Int16()
	dstX, _ := d.Int16()
	dstY, _ := d.Int16()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	plane, _ := d.Uint32()
	if s.Backend != nil {
		_ = s.Backend.CopyPlane(backend.WindowHandle(src), backend.WindowHandle(dst),
			backend.Rect{X: srcX, Y: srcY, W: width, H: height}, dstX, dstY, plane)
	}
	return nil, nil
}

func handlePolyPoint(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var points []backend.Point
	for d.Remaining() >= 4 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		points = append(points, backend.Point{X: x, Y: y})
	}
	if s.Backend != nil {
		var rects []backend.Rect
		for _, p := range points {
			rects = append(rects, backend.Rect{X: p.X, Y: p.Y, W: 1, H: 1})
		}
		_ = s.Backend.FillRectangles(backend.WindowHandle(drawable), rects, gcColor(gc))
	}
	return nil, nil
}

func handlePolyLine(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var points []backend.Point
	for d.Remaining() >= 4 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		points = append(points, backend.Point{X: x, Y: y})
	}
	if s.Backend != nil {
		_ = s.Backend.DrawLines(backend.WindowHandle(drawable), points, gcColor(gc))
	}
	return nil, nil
}

func handlePolySegment(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var points []backend.Point
	for d.Remaining() >= 8 {
		x1, _ := d.Int16()
		y1, _ := d.Int16()
		x2, _ := d.Int16()
		y2, _ := d.Int16()
		points = append(points, backend.Point{X: x1, Y: y1}, backend.Point{X: x2, Y: y2})
	}
	if s.Backend != nil {
		// Draw each disjoint segment as its own two-point DrawLines call
		// so unrelated segments aren't joined into one polyline.
		for i := 0; i+1 < len(points); i += 2 {
			_ = s.Backend.DrawLines(backend.WindowHandle(drawable), points[i:i+2], gcColor(gc))
		}
	}
	return nil, nil
}

func handlePolyRectangle(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var rects []backend.Rect
	for d.Remaining() >= 8 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		width, _ := d.Uint16()
		height, _ := d.Uint16()
		rects = append(rects, backend.Rect{X: x, Y: y, W: width, H: height})
	}
	if s.Backend != nil {
		_ = s.Backend.StrokeRectangles(backend.WindowHandle(drawable), rects, gcColor(gc))
	}
	return nil, nil
}

func handlePolyArc(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var rects []backend.Rect
	for d.Remaining() >= 12 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		width, _ := d.Uint16()
		height, _ := d.Uint16()
		d.Skip(4) // angle1, angle2
		rects = append(rects, backend.Rect{X: x, Y: y, W: width, H: height})
	}
	if s.Backend != nil {
		_ = s.Backend.DrawArcs(backend.WindowHandle(drawable), rects, gcColor(gc))
	}
	return nil, nil
}

func handleFillPoly(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	d.Skip(4) // shape, coordinate-mode + 2 unused
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var points []backend.Point
	for d.Remaining() >= 4 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		points = append(points, backend.Point{X: x, Y: y})
	}
	if s.Backend != nil {
		_ = s.Backend.FillPolygon(backend.WindowHandle(drawable), points, gcColor(gc))
	}
	return nil, nil
}

func handlePolyFillRectangle(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var rects []backend.Rect
	for d.Remaining() >= 8 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		width, _ := d.Uint16()
		height, _ := d.Uint16()
		rects = append(rects, backend.Rect{X: x, Y: y, W: width, H: height})
	}
	if s.Backend != nil {
		_ = s.Backend.FillRectangles(backend.WindowHandle(drawable), rects, gcColor(gc))
	}
	return nil, nil
}

func handlePolyFillArc(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var rects []backend.Rect
	for d.Remaining() >= 12 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		width, _ := d.Uint16()
		height, _ := d.Uint16()
		d.Skip(4)
		rects = append(rects, backend.Rect{X: x, Y: y, W: width, H: height})
	}
	if s.Backend != nil {
		_ = s.Backend.DrawArcs(backend.WindowHandle(drawable), rects, gcColor(gc))
	}
	return nil, nil
}

func handlePutImage(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	_, _ = d.Uint32() // gc, unused by the null backend's raw blit
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	dstX, _ := d.Int16()
	dstY, _ := d.Int16()
	d.Skip(1) // left-pad
	depth, _ := d.Uint8()
	d.Skip(2)
	data, _ := d.Bytes(d.Remaining())
	if s.Backend != nil {
		_ = s.Backend.PutImage(backend.WindowHandle(drawable), backend.Rect{X: dstX, Y: dstY, W: width, H: height}, header.Detail, data)
	}
	_ = depth
	return nil, nil
}

func handleGetImage(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	d.Skip(4) // plane-mask

	_, depth, ok := drawableGeom(s, proto.ResourceID(drawable))
	if !ok {
		return nil, protoerr.New(proto.ErrDrawable, drawable)
	}

	var data []byte
	if s.Backend != nil {
		data, _ = s.Backend.GetImage(backend.WindowHandle(drawable), backend.Rect{X: x, Y: y, W: width, H: height}, header.Detail)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, depth, 0, wire.Units4(len(data)))
	e.PutUint32(s.RootVisual)
	e.PutPadN(20)
	e.PutBytes(data)
	e.PutPadN(wire.Pad(len(data)))
	return e.Bytes(), nil
}

func handleImageText8(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	text, _ := d.String(int(header.Detail))
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	if s.Backend != nil {
		_ = s.Backend.DrawText(backend.WindowHandle(drawable), x, y, text, gcColor(gc))
	}
	return nil, nil
}

func handleImageText16(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	gid, _ := d.Uint32()
	x, _ := d.Int16()
	y, _ := d.Int16()
	// Each CHAR2B is 2 bytes; the null backend only understands byte
	// strings, so fold each 2-byte code down to its low byte.
	n := int(header.Detail)
	buf := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		hi, _ := d.Uint8()
		lo, _ := d.Uint8()
		_ = hi
		buf = append(buf, lo)
	}
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	if s.Backend != nil {
		_ = s.Backend.DrawText(backend.WindowHandle(drawable), x, y, string(buf), gcColor(gc))
	}
	return nil, nil
}
