package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/fontstore"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func handleOpenFont(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	fid, _ := d.Uint32()
	n, _ := d.Uint16()
	d.Skip(2)
	name, _ := d.String(int(n))
	d.SkipPad(int(n))

	if !resource.InRange(proto.ResourceID(fid), c.IDBase, c.IDMask) {
		return nil, protoerr.New(proto.ErrIDChoice, fid)
	}
	if _, exists := s.Res.Lookup(proto.ResourceID(fid)); exists {
		return nil, protoerr.New(proto.ErrIDChoice, fid)
	}
	s.Fonts.Open(proto.ResourceID(fid), name)
	s.Res.Create(proto.ResourceID(fid), resource.KindFont, c.ID, struct{}{})
	return nil, nil
}

func handleCloseFont(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	fid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(fid), resource.KindFont); !ok {
		return nil, protoerr.New(proto.ErrFont, fid)
	}
	s.Res.Destroy(proto.ResourceID(fid))
	s.Fonts.Close(proto.ResourceID(fid))
	return nil, nil
}

// putCharInfo appends one 12-byte CHARINFO structure.
func putCharInfo(e *wire.Encoder, ci fontstore.CharInfo) {
	e.PutInt16(ci.LeftSideBearing)
	e.PutInt16(ci.RightSideBearing)
	e.PutInt16(ci.CharWidth)
	e.PutInt16(ci.Ascent)
	e.PutInt16(ci.Descent)
	e.PutUint16(ci.Attributes)
}

func handleQueryFont(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	fid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(fid), resource.KindFont); !ok {
		return nil, protoerr.New(proto.ErrFont, fid)
	}

	metrics := fontstore.Metrics()
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 7) // 0 properties, 0 char-infos
	putCharInfo(e, metrics)
	e.PutPadN(4)
	putCharInfo(e, metrics)
	e.PutPadN(4)
	e.PutUint16(0x20) // min-char-or-byte2
	e.PutUint16(0x7e) // max-char-or-byte2
	e.PutUint16(0x20) // default-char
	e.PutUint16(0)    // number of FONTPROPs
	e.PutUint8(0)     // draw-direction: left-to-right
	e.PutUint8(0)     // min-byte1
	e.PutUint8(0)     // max-byte1
	e.PutBool(true)   // all-chars-exist
	e.PutInt16(fontstore.CharAscent)
	e.PutInt16(fontstore.CharDescent)
	e.PutUint32(0) // number of CHARINFOs
	return e.Bytes(), nil
}

func handleQueryTextExtents(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	fid, _ := d.Uint32()
	if _, ok := s.Res.LookupKind(proto.ResourceID(fid), resource.KindFont); !ok {
		return nil, protoerr.New(proto.ErrFont, fid)
	}
	// Remaining body is a CHAR2B array; each glyph code's low byte is all
	// that matters to the single fixed-width builtin font.
	n := d.Remaining() / 2

	ascent, descent, width := fontstore.TextExtent(n)
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutInt16(fontstore.CharAscent)
	e.PutInt16(fontstore.CharDescent)
	e.PutInt16(ascent)
	e.PutInt16(descent)
	e.PutInt32(width)
	e.PutInt32(0) // overall-left
	e.PutInt32(width)
	e.PutPadN(4)
	return e.Bytes(), nil
}

func handleListFonts(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	maxNames, _ := d.Uint16()
	n, _ := d.Uint16()
	pattern, _ := d.String(int(n))
	d.SkipPad(int(n))

	names := fontstore.Match(pattern, int(maxNames))
	e := enc(c)
	dataLen := 0
	for _, name := range names {
		dataLen += 1 + len(name)
	}
	wire.EncodeReplyHeader(e, 0, 0, wire.Units4(dataLen))
	e.PutUint16(uint16(len(names)))
	e.PutPadN(22)
	for _, name := range names {
		e.PutUint8(uint8(len(name)))
		e.PutString(name)
	}
	e.PutPadN(wire.Pad(dataLen))
	return e.Bytes(), nil
}

func handleListFontsWithInfo(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	maxNames, _ := d.Uint16()
	n, _ := d.Uint16()
	pattern, _ := d.String(int(n))
	d.SkipPad(int(n))

	names := fontstore.Match(pattern, int(maxNames))
	metrics := fontstore.Metrics()

	var out []byte
	for i, name := range names {
		e := enc(c)
		e.PutUint8(1) // reply marker
		e.PutUint8(uint8(len(name)))
		e.PutUint16(0) // sequence, patched by internal/session
		e.PutUint32(uint32(7 + wire.Units4(len(name))))
		putCharInfo(e, metrics)
		e.PutPadN(4)
		putCharInfo(e, metrics)
		e.PutPadN(4)
		e.PutUint16(0x20)
		e.PutUint16(0x7e)
		e.PutUint16(0x20)
		e.PutUint16(0) // number of FONTPROPs
		e.PutUint8(0)
		e.PutUint8(0)
		e.PutUint8(0)
		e.PutBool(true)
		e.PutInt16(fontstore.CharAscent)
		e.PutInt16(fontstore.CharDescent)
		e.PutUint32(uint32(len(names) - i - 1)) // replies-hint
		e.PutString(name)
		e.PutPadN(wire.Pad(len(name)))
		out = append(out, e.Bytes()...)
	}

	// Terminating reply: zero name-length marks the end of the series.
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 7)
	e.PutPadN(52)
	out = append(out, e.Bytes()...)
	return out, nil
}
