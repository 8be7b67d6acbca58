package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/gcontext"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func handleCreatePixmap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	pid, _ := d.Uint32()
	drawable, _ := d.Uint32()
	width, _ := d.Uint16()
	height, _ := d.Uint16()

	if !resource.InRange(proto.ResourceID(pid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, pid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(pid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, pid)
	}
	if _, ok := s.Tree.Get(proto.ResourceID(drawable)); !ok {
		if _, ok := s.Res.LookupKind(proto.ResourceID(drawable), resource.KindPixmap); !ok {
			return nil, protoerr.New(proto.ErrDrawable, drawable)
		}
	}

	s.Res.Create(proto.ResourceID(pid), resource.KindPixmap, c.ID, &pixmap{Width: width, Height: height, Depth: header.Detail})
	return nil, nil
}

func handleFreePixmap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	pid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(pid), resource.KindPixmap); !ok {
		return nil, protoerr.New(proto.ErrPixmap, pid)
	}
	s.Res.Destroy(proto.ResourceID(pid))
	return nil, nil
}

func handleCreateGC(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	gid, _ := d.Uint32()
	drawable, _ := d.Uint32()
	valueMask, _ := d.Uint32()

	if !resource.InRange(proto.ResourceID(gid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, gid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(gid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, gid)
	}

	gc := gcontext.New(proto.ResourceID(drawable))
	if err := gc.Apply(valueMask, gcValueReader(d)); err != nil {
		return nil, protoerr.Value(0)
	}
	s.Res.Create(proto.ResourceID(gid), resource.KindGC, c.ID, gc)
	return nil, nil
}

func gcValueReader(d *wire.Decoder) gcontext.ValueReader {
	return func() (uint32, error) { return d.Uint32() }
}

func lookupGC(s *Server, id uint32) (*gcontext.GC, *protoerr.Error) {
	entry, ok := s.Res.LookupKind(proto.ResourceID(id), resource.KindGC)
	if !ok {
		return nil, protoerr.New(proto.ErrGContext, id)
	}
	return entry.Payload.(*gcontext.GC), nil
}

func handleChangeGC(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	gid, _ := d.Uint32()
	valueMask, _ := d.Uint32()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	if err := gc.Apply(valueMask, gcValueReader(d)); err != nil {
		return nil, protoerr.Value(0)
	}
	return nil, nil
}

func handleCopyGC(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	src, _ := d.Uint32()
	dst, _ := d.Uint32()
	valueMask, _ := d.Uint32()
	srcGC, perr := lookupGC(s, src)
	if perr != nil {
		return nil, perr
	}
	dstGC, perr := lookupGC(s, dst)
	if perr != nil {
		return nil, perr
	}
	dstGC.CopyComponents(srcGC, valueMask)
	return nil, nil
}

func handleSetDashes(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	gid, _ := d.Uint32()
	offset, _ := d.Uint16()
	n, _ := d.Uint16()
	dashes, err := d.Bytes(int(n))
	if err != nil {
		return nil, protoerr.Value(uint32(n))
	}
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	gc.SetDashes(offset, dashes)
	return nil, nil
}

// handleSetClipRectangles stores the request's rectangle list on the
// GC's ClipRectangles field (spec.md §4.5). No drawing handler applies
// ClipRectangles, Dashes or ClipMask; drawing uses only the GC's
// Foreground. header.Detail carries
// the ordering hint (UnSorted/YSorted/YXSorted/YXBanded), which affects
// only how fast a real server may composite the clip, never which
// pixels are covered, so it is recorded but not otherwise interpreted.
func handleSetClipRectangles(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	gid, _ := d.Uint32()
	xOrigin, _ := d.Int16()
	yOrigin, _ := d.Int16()
	gc, perr := lookupGC(s, gid)
	if perr != nil {
		return nil, perr
	}
	var rects []gcontext.ClipRect
	for d.Remaining() >= 8 {
		x, _ := d.Int16()
		y, _ := d.Int16()
		w, _ := d.Uint16()
		h, _ := d.Uint16()
		rects = append(rects, gcontext.ClipRect{X: x, Y: y, Width: w, Height: h})
	}
	gc.SetClipRectangles(header.Detail, xOrigin, yOrigin, rects)
	return nil, nil
}

func handleFreeGC(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	gid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(gid), resource.KindGC); !ok {
		return nil, protoerr.New(proto.ErrGContext, gid)
	}
	s.Res.Destroy(proto.ResourceID(gid))
	return nil, nil
}
