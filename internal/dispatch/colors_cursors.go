package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/colormap"
	"github.com/KarpelesLab/x11anywhere/internal/cursor"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func lookupColormap(s *Server, id uint32) (*colormap.Colormap, *protoerr.Error) {
	entry, ok := s.Res.LookupKind(proto.ResourceID(id), resource.KindColormap)
	if !ok {
		return nil, protoerr.New(proto.ErrColormap, id)
	}
	return entry.Payload.(*colormap.Colormap), nil
}

func handleCreateColormap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	window, _ := d.Uint32()
	visual, _ := d.Uint32()

	if !resource.InRange(proto.ResourceID(cid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(cid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	cm := colormap.New(proto.ResourceID(cid), proto.ResourceID(window), visual)
	s.Res.Create(proto.ResourceID(cid), resource.KindColormap, c.ID, cm)
	return nil, nil
}

func handleFreeColormap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	if _, perr := lookupColormap(s, cid); perr != nil {
		return nil, perr
	}
	s.Res.Destroy(proto.ResourceID(cid))
	return nil, nil
}

func handleCopyColormapAndFree(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	src, _ := d.Uint32()

	if !resource.InRange(proto.ResourceID(cid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(cid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	srcCM, perr := lookupColormap(s, src)
	if perr != nil {
		return nil, perr
	}
	cm := colormap.New(proto.ResourceID(cid), srcCM.Window, srcCM.Visual)
	s.Res.Create(proto.ResourceID(cid), resource.KindColormap, c.ID, cm)
	s.Res.Destroy(proto.ResourceID(src))
	return nil, nil
}

func handleInstallColormap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	cm, perr := lookupColormap(s, cid)
	if perr != nil {
		return nil, perr
	}
	cm.Installed = true
	s.Emit(&evpipe.ColormapNotifyEvent{Window: cm.Window, Colormap: proto.ResourceID(cid), New: false, State: 1})
	return nil, nil
}

func handleUninstallColormap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	cm, perr := lookupColormap(s, cid)
	if perr != nil {
		return nil, perr
	}
	cm.Installed = false
	s.Emit(&evpipe.ColormapNotifyEvent{Window: cm.Window, Colormap: proto.ResourceID(cid), New: false, State: 0})
	return nil, nil
}

func handleListInstalledColormaps(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	var ids []uint32
	for _, entry := range s.Res.AllOfKind(resource.KindColormap) {
		cm := entry.Payload.(*colormap.Colormap)
		if cm.Installed {
			ids = append(ids, uint32(entry.ID))
		}
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, uint32(len(ids)))
	e.PutUint16(uint16(len(ids)))
	e.PutPadN(22)
	for _, id := range ids {
		e.PutUint32(id)
	}
	return e.Bytes(), nil
}

func handleAllocColor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	red, _ := d.Uint16()
	green, _ := d.Uint16()
	blue, _ := d.Uint16()
	if _, perr := lookupColormap(s, cid); perr != nil {
		return nil, perr
	}
	pixel, outR, outG, outB := colormap.AllocColor(red, green, blue)
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint16(outR)
	e.PutUint16(outG)
	e.PutUint16(outB)
	e.PutPadN(2)
	e.PutUint32(pixel)
	e.PutPadN(12)
	return e.Bytes(), nil
}

func handleAllocNamedColor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	n, _ := d.Uint16()
	d.Skip(2)
	name, _ := d.String(int(n))
	d.SkipPad(int(n))
	_ = name

	if _, perr := lookupColormap(s, cid); perr != nil {
		return nil, perr
	}
	// Named colors are not resolved against any palette in a headless
	// TrueColor visual; every name allocates to black, matching the one
	// outcome AllocColor always produces when it can't fail.
	pixel, outR, outG, outB := colormap.AllocColor(0, 0, 0)
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint32(pixel)
	e.PutUint16(outR)
	e.PutUint16(outG)
	e.PutUint16(outB)
	e.PutUint16(outR)
	e.PutUint16(outG)
	e.PutUint16(outB)
	e.PutPadN(8)
	return e.Bytes(), nil
}

func handleQueryColors(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	if _, perr := lookupColormap(s, cid); perr != nil {
		return nil, perr
	}
	var pixels []uint32
	for d.Remaining() >= 4 {
		p, _ := d.Uint32()
		pixels = append(pixels, p)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, uint32(len(pixels)*2))
	e.PutUint16(uint16(len(pixels)))
	e.PutPadN(22)
	for _, p := range pixels {
		r := uint16(p>>16&0xff) * 0x101
		g := uint16(p>>8&0xff) * 0x101
		b := uint16(p&0xff) * 0x101
		e.PutUint16(r)
		e.PutUint16(g)
		e.PutUint16(b)
		e.PutPadN(2)
	}
	return e.Bytes(), nil
}

func handleLookupColor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	n, _ := d.Uint16()
	d.Skip(2)
	name, _ := d.String(int(n))
	d.SkipPad(int(n))
	_ = name

	if _, perr := lookupColormap(s, cid); perr != nil {
		return nil, perr
	}
	_, outR, outG, outB := colormap.AllocColor(0, 0, 0)
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint16(outR)
	e.PutUint16(outG)
	e.PutUint16(outB)
	e.PutUint16(outR)
	e.PutUint16(outG)
	e.PutUint16(outB)
	e.PutPadN(8)
	return e.Bytes(), nil
}

func handleCreateCursor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	source, _ := d.Uint32()
	mask, _ := d.Uint32()
	foreR, _ := d.Uint16()
	foreG, _ := d.Uint16()
	foreB, _ := d.Uint16()
	backR, _ := d.Uint16()
	backG, _ := d.Uint16()
	backB, _ := d.Uint16()
	d.Skip(4) // x, y hotspot — not modeled by the null backend's cursor

	if !resource.InRange(proto.ResourceID(cid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(cid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, ok := s.Res.LookupKind(proto.ResourceID(source), resource.KindPixmap); !ok {
		return nil, protoerr.New(proto.ErrPixmap, source)
	}
	if mask != 0 {
		if _, ok := s.Res.LookupKind(proto.ResourceID(mask), resource.KindPixmap); !ok {
			return nil, protoerr.New(proto.ErrPixmap, mask)
		}
	}

	cur := cursor.New(proto.ResourceID(cid), proto.ResourceID(source), proto.ResourceID(mask),
		foreR, foreG, foreB, backR, backG, backB)
	s.Res.Create(proto.ResourceID(cid), resource.KindCursor, c.ID, cur)
	return nil, nil
}

func handleCreateGlyphCursor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	sourceFont, _ := d.Uint32()
	maskFont, _ := d.Uint32()
	sourceChar, _ := d.Uint16()
	maskChar, _ := d.Uint16()
	foreR, _ := d.Uint16()
	foreG, _ := d.Uint16()
	foreB, _ := d.Uint16()
	backR, _ := d.Uint16()
	backG, _ := d.Uint16()
	backB, _ := d.Uint16()

	if !resource.InRange(proto.ResourceID(cid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(cid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, cid)
	}
	if _, ok := s.Fonts.Get(proto.ResourceID(sourceFont)); !ok {
		return nil, protoerr.New(proto.ErrFont, sourceFont)
	}

	cur := cursor.NewGlyph(proto.ResourceID(cid), proto.ResourceID(sourceFont), proto.ResourceID(maskFont),
		sourceChar, maskChar, foreR, foreG, foreB, backR, backG, backB)
	s.Res.Create(proto.ResourceID(cid), resource.KindCursor, c.ID, cur)
	return nil, nil
}

func handleFreeCursor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(cid), resource.KindCursor); !ok {
		return nil, protoerr.New(proto.ErrCursor, cid)
	}
	s.Res.Destroy(proto.ResourceID(cid))
	return nil, nil
}

func handleRecolorCursor(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	cid, _ := d.Uint32()
	foreR, _ := d.Uint16()
	foreG, _ := d.Uint16()
	foreB, _ := d.Uint16()
	backR, _ := d.Uint16()
	backG, _ := d.Uint16()
	backB, _ := d.Uint16()

	entry, ok := s.Res.LookupKind(proto.ResourceID(cid), resource.KindCursor)
	if !ok {
		return nil, protoerr.New(proto.ErrCursor, cid)
	}
	entry.Payload.(*cursor.Cursor).Recolor(foreR, foreG, foreB, backR, backG, backB)
	return nil, nil
}
