package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/extension"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

// Grab/AllowEvents handling here is bookkeeping only: the Client struct
// records that a grab is held so UngrabPointer/UngrabKeyboard have
// something to release, but no backend in this repository generates real
// pointer/keyboard input for a grab to actually intercept.

func handleGrabPointer(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	grabWindow, _ := d.Uint32()
	d.Skip(2) // event-mask
	d.Skip(2) // pointer-mode, keyboard-mode
	d.Skip(4) // confine-to
	d.Skip(4) // cursor
	d.Skip(4) // time

	if _, ok := s.Tree.Get(proto.ResourceID(grabWindow)); !ok {
		return nil, protoerr.Window(grabWindow)
	}
	c.mu.Lock()
	c.PointerGrab = true
	c.GrabWindow = proto.ResourceID(grabWindow)
	c.mu.Unlock()

	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0) // 0 = GrabSuccess
	e.PutPadN(24)
	return e.Bytes(), nil
}

func handleUngrabPointer(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	c.mu.Lock()
	c.PointerGrab = false
	c.mu.Unlock()
	return nil, nil
}

func handleGrabButton(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	grabWindow, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(grabWindow)); !ok {
		return nil, protoerr.Window(grabWindow)
	}
	c.mu.Lock()
	c.GrabWindow = proto.ResourceID(grabWindow)
	c.mu.Unlock()
	return nil, nil
}

func handleUngrabButton(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	return nil, nil
}

func handleGrabKeyboard(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	grabWindow, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(grabWindow)); !ok {
		return nil, protoerr.Window(grabWindow)
	}
	c.mu.Lock()
	c.KeyboardGrab = true
	c.GrabWindow = proto.ResourceID(grabWindow)
	c.mu.Unlock()

	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutPadN(24)
	return e.Bytes(), nil
}

func handleUngrabKeyboard(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	c.mu.Lock()
	c.KeyboardGrab = false
	c.mu.Unlock()
	return nil, nil
}

func handleGrabKey(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	grabWindow, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(grabWindow)); !ok {
		return nil, protoerr.Window(grabWindow)
	}
	return nil, nil
}

func handleUngrabKey(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	return nil, nil
}

func handleAllowEvents(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	return nil, nil
}

func handleQueryPointer(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 1, 0, 0) // detail=1: same-screen true
	e.PutUint32(uint32(s.RootWindow))
	e.PutUint32(uint32(proto.None)) // child
	e.PutInt16(0)                   // root-x
	e.PutInt16(0)                   // root-y
	e.PutInt16(0)                   // win-x
	e.PutInt16(0)                   // win-y
	e.PutUint16(0)                  // mask
	e.PutPadN(6)
	return e.Bytes(), nil
}

func handleGetMotionEvents(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	// No motion history is retained, so the reply is always empty.
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint32(0)
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleTranslateCoordinates(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	srcWindow, _ := d.Uint32()
	dstWindow, _ := d.Uint32()
	srcX, _ := d.Int16()
	srcY, _ := d.Int16()

	if _, ok := s.Tree.Get(proto.ResourceID(srcWindow)); !ok {
		return nil, protoerr.Window(srcWindow)
	}
	dst, ok := s.Tree.Get(proto.ResourceID(dstWindow))
	if !ok {
		return nil, protoerr.Window(dstWindow)
	}
	_ = dst
	e := enc(c)
	wire.EncodeReplyHeader(e, 1, 0, 0) // same-screen true
	e.PutUint32(uint32(proto.None))    // child
	e.PutInt16(srcX)
	e.PutInt16(srcY)
	e.PutPadN(16)
	return e.Bytes(), nil
}

func handleWarpPointer(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	return nil, nil
}

func handleSetInputFocus(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	focus, _ := d.Uint32()
	s.SetFocus(proto.ResourceID(focus), header.Detail)
	return nil, nil
}

func handleGetInputFocus(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	focus, revertTo := s.GetFocus()
	e := enc(c)
	wire.EncodeReplyHeader(e, revertTo, 0, 0)
	e.PutUint32(uint32(focus))
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleQueryKeymap(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 2)
	e.PutPadN(32) // no keys tracked as down
	return e.Bytes(), nil
}

func handleQueryBestSize(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	drawable, _ := d.Uint32()
	width, _ := d.Uint16()
	height, _ := d.Uint16()
	if _, _, ok := drawableGeom(s, proto.ResourceID(drawable)); !ok {
		return nil, protoerr.New(proto.ErrDrawable, drawable)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint16(width)
	e.PutUint16(height)
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleQueryExtension(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	n, _ := d.Uint16()
	d.Skip(2)
	name, _ := d.String(int(n))
	d.SkipPad(int(n))

	desc, present := extension.Query(name)
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutBool(present)
	e.PutUint8(desc.MajorOpcode)
	e.PutUint8(desc.FirstEvent)
	e.PutUint8(desc.FirstError)
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleListExtensions(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	names := extension.Names()
	dataLen := 0
	for _, name := range names {
		dataLen += 1 + len(name)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, uint8(len(names)), 0, wire.Units4(dataLen))
	e.PutPadN(24)
	for _, name := range names {
		e.PutUint8(uint8(len(name)))
		e.PutString(name)
	}
	e.PutPadN(wire.Pad(dataLen))
	return e.Bytes(), nil
}

func handleGetKeyboardMapping(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	d.Skip(1) // first-keycode
	count, _ := d.Uint8()

	const keysymsPerKeycode = 1
	e := enc(c)
	wire.EncodeReplyHeader(e, keysymsPerKeycode, 0, uint32(count)*keysymsPerKeycode)
	e.PutPadN(24)
	for i := uint8(0); i < count; i++ {
		e.PutUint32(0) // NoSymbol: no real keysym table is modeled
	}
	return e.Bytes(), nil
}

func handleGetKeyboardControl(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 1, 0, 5) // detail=1: global-auto-repeat on
	e.PutUint32(0)                     // led-mask
	e.PutUint8(0)                      // key-click-percent
	e.PutUint8(0)                      // bell-percent
	e.PutUint16(0)                     // bell-pitch
	e.PutUint16(0)                     // bell-duration
	e.PutPadN(2)
	e.PutPadN(32) // auto-repeats bitmap
	return e.Bytes(), nil
}

func handleGetPointerControl(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint16(1) // acceleration-numerator
	e.PutUint16(1) // acceleration-denominator
	e.PutUint16(0) // threshold
	e.PutPadN(18)
	return e.Bytes(), nil
}

func handleGetScreenSaver(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint16(0) // timeout
	e.PutUint16(0) // interval
	e.PutUint8(0)  // prefer-blanking
	e.PutUint8(0)  // allow-exposures
	e.PutPadN(18)
	return e.Bytes(), nil
}

func handleListHosts(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	// Host-based access control is not modeled; the host list is always
	// empty and access is always enabled.
	e := enc(c)
	wire.EncodeReplyHeader(e, 1, 0, 0)
	e.PutUint16(0)
	e.PutPadN(22)
	return e.Bytes(), nil
}

func handleSetCloseDownMode(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	c.mu.Lock()
	c.CloseDownMode = header.Detail
	c.mu.Unlock()
	return nil, nil
}

func handleKillClient(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	res, _ := d.Uint32()
	if res == 0 {
		// AllTemporary: this server does not distinguish temporary
		// resources from permanent ones, so there is nothing to do.
		return nil, nil
	}
	entry, ok := s.Res.Lookup(proto.ResourceID(res))
	if !ok {
		return nil, protoerr.Value(res)
	}
	target, ok := s.clientByID(entry.Owner)
	if !ok {
		return nil, nil
	}
	target.mu.Lock()
	target.Killed = true
	target.mu.Unlock()
	s.UnregisterClient(target)
	return nil, nil
}

func handleSetPointerMapping(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0) // 0 = Success
	e.PutPadN(24)
	return e.Bytes(), nil
}

func handleGetPointerMapping(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	mapping := []uint8{1, 2, 3}
	e := enc(c)
	wire.EncodeReplyHeader(e, uint8(len(mapping)), 0, wire.Units4(len(mapping)))
	e.PutPadN(24)
	for _, b := range mapping {
		e.PutUint8(b)
	}
	e.PutPadN(wire.Pad(len(mapping)))
	return e.Bytes(), nil
}

func handleSetModifierMapping(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0) // 0 = Success
	e.PutPadN(24)
	return e.Bytes(), nil
}

func handleGetModifierMapping(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	const keycodesPerModifier = 1
	const modifiers = 8
	e := enc(c)
	wire.EncodeReplyHeader(e, keycodesPerModifier, 0, wire.Units4(keycodesPerModifier*modifiers))
	e.PutPadN(24)
	e.PutPadN(keycodesPerModifier * modifiers)
	return e.Bytes(), nil
}

func handleBigReqEnable(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	c.BigRequests = true
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint32(uint32(wire.BigRequestsMaxLength / 4))
	e.PutPadN(20)
	return e.Bytes(), nil
}
