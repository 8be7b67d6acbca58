package dispatch

import (
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func handleInternAtom(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	onlyIfExists := header.Detail != 0
	n, _ := d.Uint16()
	d.Skip(2)
	name, _ := d.String(int(n))
	d.SkipPad(int(n))

	atom, ok := s.Atoms.Intern(name, onlyIfExists)
	if !ok {
		atom = proto.AtomNone
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint32(uint32(atom))
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleGetAtomName(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	atom, _ := d.Uint32()
	name, ok := s.Atoms.Name(proto.Atom(atom))
	if !ok {
		return nil, protoerr.New(proto.ErrAtom, atom)
	}
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, wire.Units4(len(name)))
	e.PutUint16(uint16(len(name)))
	e.PutPadN(22)
	e.PutString(name)
	e.PutPadN(wire.Pad(len(name)))
	return e.Bytes(), nil
}

func handleChangeProperty(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	name, _ := d.Uint32()
	typ, _ := d.Uint32()
	format, _ := d.Uint8()
	d.Skip(3)
	dataLen, _ := d.Uint32()

	elem := 1
	switch format {
	case 16:
		elem = 2
	case 32:
		elem = 4
	}
	data, err := d.Bytes(int(dataLen) * elem)
	if err != nil {
		return nil, protoerr.Value(dataLen)
	}

	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	s.Props.Change(proto.ResourceID(window), proto.Atom(name), proto.Atom(typ), format, header.Detail, data)
	s.Emit(&evpipe.PropertyNotifyEvent{Window: proto.ResourceID(window), Atom: proto.Atom(name), State: proto.PropertyNewValue})
	return nil, nil
}

func handleDeleteProperty(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	name, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	if s.Props.Delete(proto.ResourceID(window), proto.Atom(name)) {
		s.Emit(&evpipe.PropertyNotifyEvent{Window: proto.ResourceID(window), Atom: proto.Atom(name), State: proto.PropertyDelete})
	}
	return nil, nil
}

func handleGetProperty(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	name, _ := d.Uint32()
	typ, _ := d.Uint32()
	longOffset, _ := d.Uint32()
	longLength, _ := d.Uint32()
	del := header.Detail != 0

	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}

	result := s.Props.Get(proto.ResourceID(window), proto.Atom(name), proto.Atom(typ), longOffset, longLength, del)
	e := enc(c)
	if !result.Exists {
		wire.EncodeReplyHeader(e, 0, 0, 0)
		e.PutUint32(uint32(proto.AtomNone))
		e.PutPadN(20)
		return e.Bytes(), nil
	}

	if result.Deleted {
		s.Emit(&evpipe.PropertyNotifyEvent{Window: proto.ResourceID(window), Atom: proto.Atom(name), State: proto.PropertyDelete})
	}

	wire.EncodeReplyHeader(e, result.Format, 0, wire.Units4(len(result.Data)))
	e.PutUint32(uint32(result.Type))
	e.PutUint32(result.BytesAfter)
	e.PutUint32(uint32(len(result.Data) / maxInt(elemSize(result.Format), 1)))
	e.PutPadN(12)
	e.PutBytes(result.Data)
	e.PutPadN(wire.Pad(len(result.Data)))
	return e.Bytes(), nil
}

func elemSize(format uint8) int {
	switch format {
	case 16:
		return 2
	case 32:
		return 4
	default:
		return 1
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func handleListProperties(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	window, _ := d.Uint32()
	if _, ok := s.Tree.Get(proto.ResourceID(window)); !ok {
		return nil, protoerr.Window(window)
	}
	atoms := s.Props.List(proto.ResourceID(window))
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, uint32(len(atoms)))
	e.PutUint16(uint16(len(atoms)))
	e.PutPadN(22)
	for _, a := range atoms {
		e.PutUint32(uint32(a))
	}
	return e.Bytes(), nil
}

func handleSetSelectionOwner(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	owner, _ := d.Uint32()
	selection, _ := d.Uint32()
	ts, _ := d.Uint32()

	prevOwner := s.Sels.GetOwner(proto.Atom(selection))
	s.Sels.SetOwner(proto.Atom(selection), proto.ResourceID(owner), proto.Timestamp(ts))
	if prevOwner != proto.None && prevOwner != proto.ResourceID(owner) {
		s.Emit(&evpipe.SelectionClearEvent{Time: proto.Timestamp(ts), Owner: prevOwner, Selection: proto.Atom(selection)})
	}
	return nil, nil
}

func handleGetSelectionOwner(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	selection, _ := d.Uint32()
	owner := s.Sels.GetOwner(proto.Atom(selection))
	e := enc(c)
	wire.EncodeReplyHeader(e, 0, 0, 0)
	e.PutUint32(uint32(owner))
	e.PutPadN(20)
	return e.Bytes(), nil
}

func handleConvertSelection(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	requestor, _ := d.Uint32()
	selection, _ := d.Uint32()
	target, _ := d.Uint32()
	property, _ := d.Uint32()
	ts, _ := d.Uint32()

	owner := s.Sels.GetOwner(proto.Atom(selection))
	if owner == proto.None {
		s.Emit(&evpipe.SelectionNotifyEvent{
			Time: proto.Timestamp(ts), Requestor: proto.ResourceID(requestor),
			Selection: proto.Atom(selection), Target: proto.Atom(target), Property: proto.AtomNone,
		})
		return nil, nil
	}
	s.Emit(&evpipe.SelectionRequestEvent{
		Time: proto.Timestamp(ts), Owner: owner, Requestor: proto.ResourceID(requestor),
		Selection: proto.Atom(selection), Target: proto.Atom(target), Property: proto.Atom(property),
	})
	return nil, nil
}

func handleSendEvent(s *Server, c *Client, header wire.RequestHeader, body []byte) ([]byte, *protoerr.Error) {
	d := dec(c, body)
	destination, _ := d.Uint32()
	eventMask, _ := d.Uint32()
	eventBytes, err := d.Bytes(32)
	if err != nil {
		return nil, protoerr.Value(0)
	}
	eventBytes[0] |= proto.EventSyntheticBit

	// PointerWindow (0) and InputFocus (1) require pointer/focus tracking
	// this server doesn't keep; both fall back to the literal window id
	// path, which is the common case every real client actually uses.
	window := proto.ResourceID(destination)
	selectors, ok := s.Tree.Selectors(window)
	if !ok {
		return nil, protoerr.Window(destination)
	}
	for clientID, selected := range selectors {
		if eventMask != 0 && selected&eventMask == 0 {
			continue
		}
		if cl, ok := s.clientByID(resource.ClientID(clientID)); ok {
			cl.Queue.PushRaw(eventBytes)
		}
	}
	return nil, nil
}
