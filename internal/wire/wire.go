// Package wire implements the byte-order aware encode/decode layer of the
// X11 wire protocol: request/reply/event/error framing, 4-byte padding,
// and the BIG-REQUESTS extended length word.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// Wire protocol errors.
var (
	ErrMessageTooLarge  = errors.New("wire: message exceeds maximum size")
	ErrBufferTooSmall   = errors.New("wire: buffer too small for message")
	ErrUnexpectedEOF    = errors.New("wire: unexpected end of message")
	ErrInvalidStringLen = errors.New("wire: invalid string length")
)

// DefaultMaxRequestLength is the maximum request size (in bytes) accepted
// from a client that has not enabled BIG-REQUESTS: 256KiB, the value
// advertised in a standard SetupReply's max-request-length field (64KiB
// of 4-byte units from spec.md §4.1).
const DefaultMaxRequestLength = 256 * 1024

// BigRequestsMaxLength is the maximum request size accepted once
// BIG-REQUESTS has been enabled for a client (spec.md §4.8: "minimum 4 MiB").
const BigRequestsMaxLength = 4 * 1024 * 1024

// byteOrderOf returns the binary.ByteOrder for a wire ByteOrder byte.
func byteOrderOf(order proto.ByteOrder) binary.ByteOrder {
	if order == proto.MSBFirst {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Pad returns the number of zero bytes needed to round n up to a multiple
// of 4.
func Pad(n int) int {
	return (4 - n%4) % 4
}

// Units4 rounds n up to the next multiple of 4 and returns the count of
// 4-byte units (used for "length" fields which are always in such units).
func Units4(n int) uint32 {
	return uint32((n + 3) / 4)
}

// Encoder appends wire-format values to an internal buffer using a fixed
// byte order.
type Encoder struct {
	buf       []byte
	byteOrder binary.ByteOrder
}

// NewEncoder creates an Encoder writing in the given byte order.
func NewEncoder(order proto.ByteOrder) *Encoder {
	return &Encoder{
		buf:       make([]byte, 0, 32),
		byteOrder: byteOrderOf(order),
	}
}

// Reset clears the encoder for reuse.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the accumulated bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the current buffer length.
func (e *Encoder) Len() int { return len(e.buf) }

// PutUint8 appends a single byte.
func (e *Encoder) PutUint8(v uint8) { e.buf = append(e.buf, v) }

// PutBool appends a boolean as a single byte (0 or 1).
func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint8(1)
	} else {
		e.PutUint8(0)
	}
}

// PutUint16 appends a 16-bit value.
func (e *Encoder) PutUint16(v uint16) {
	var b [2]byte
	e.byteOrder.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// PutUint32 appends a 32-bit value.
func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	e.byteOrder.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// PutInt16 appends a signed 16-bit value.
func (e *Encoder) PutInt16(v int16) { e.PutUint16(uint16(v)) }

// PutInt32 appends a signed 32-bit value.
func (e *Encoder) PutInt32(v int32) { e.PutUint32(uint32(v)) }

// PutBytes appends raw bytes verbatim.
func (e *Encoder) PutBytes(data []byte) { e.buf = append(e.buf, data...) }

// PutPad pads the buffer to a 4-byte boundary.
func (e *Encoder) PutPad() {
	e.PutPadN(Pad(len(e.buf)))
}

// PutPadN appends n zero bytes.
func (e *Encoder) PutPadN(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// PutString appends raw string bytes, unpadded (callers pad explicitly so
// that fixed-shape structures can interleave strings and scalars).
func (e *Encoder) PutString(s string) { e.buf = append(e.buf, s...) }

// Decoder reads wire-format values from a buffer using a fixed byte order.
type Decoder struct {
	buf       []byte
	offset    int
	byteOrder binary.ByteOrder
}

// NewDecoder creates a Decoder over buf, reading in the given byte order.
func NewDecoder(order proto.ByteOrder, buf []byte) *Decoder {
	return &Decoder{buf: buf, byteOrder: byteOrderOf(order)}
}

// Reset rebinds the decoder to a new buffer, offset 0.
func (d *Decoder) Reset(buf []byte) {
	d.buf = buf
	d.offset = 0
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.offset }

// Offset returns the current read position.
func (d *Decoder) Offset() int { return d.offset }

// Skip advances the offset by n bytes.
func (d *Decoder) Skip(n int) error {
	if d.offset+n > len(d.buf) {
		return ErrUnexpectedEOF
	}
	d.offset += n
	return nil
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	if d.offset >= len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	v := d.buf[d.offset]
	d.offset++
	return v, nil
}

// Bool reads a single byte as a boolean.
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint8()
	return v != 0, err
}

// Uint16 reads a 16-bit value.
func (d *Decoder) Uint16() (uint16, error) {
	if d.offset+2 > len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	v := d.byteOrder.Uint16(d.buf[d.offset:])
	d.offset += 2
	return v, nil
}

// Uint32 reads a 32-bit value.
func (d *Decoder) Uint32() (uint32, error) {
	if d.offset+4 > len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	v := d.byteOrder.Uint32(d.buf[d.offset:])
	d.offset += 4
	return v, nil
}

// Int16 reads a signed 16-bit value.
func (d *Decoder) Int16() (int16, error) {
	v, err := d.Uint16()
	return int16(v), err
}

// Int32 reads a signed 32-bit value.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Bytes reads n bytes.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	if n < 0 || d.offset+n > len(d.buf) {
		return nil, ErrUnexpectedEOF
	}
	data := make([]byte, n)
	copy(data, d.buf[d.offset:d.offset+n])
	d.offset += n
	return data, nil
}

// String reads n bytes as a string.
func (d *Decoder) String(n int) (string, error) {
	data, err := d.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SkipPad skips the padding following a field of the given logical length.
func (d *Decoder) SkipPad(length int) error {
	return d.Skip(Pad(length))
}

// RequestHeader is the common 4-byte prefix of every request.
type RequestHeader struct {
	Opcode uint8
	Detail uint8 // "data" byte; per-request meaning (e.g. depth, propagate)
	Length uint16
}

// DecodeStatus tells the session loop whether a full request was decoded.
type DecodeStatus int

const (
	// StatusOK means Request is fully populated and Consumed bytes can be
	// dropped from the read buffer.
	StatusOK DecodeStatus = iota
	// StatusNeedMore means there were not enough bytes buffered yet;
	// the caller retries once more bytes have arrived.
	StatusNeedMore
	// StatusBadLength means the declared length is inconsistent with the
	// BIG-REQUESTS enablement state (spec.md §4.1, §8 boundary case).
	StatusBadLength
)

// DecodedRequest is a fully framed, not-yet-parsed request: header plus
// raw body bytes (body excludes the 4-byte header).
type DecodedRequest struct {
	Header   RequestHeader
	Body     []byte
	Consumed int
}

// DecodeRequest attempts to frame one request out of buf. bigRequests
// indicates whether the client has enabled the BIG-REQUESTS extension
// (spec.md §4.1: "The codec MUST refuse extended length when the client
// has not enabled BIG-REQUESTS").
func DecodeRequest(order proto.ByteOrder, buf []byte, bigRequests bool) (DecodedRequest, DecodeStatus) {
	if len(buf) < 4 {
		return DecodedRequest{}, StatusNeedMore
	}
	d := NewDecoder(order, buf)
	opcode, _ := d.Uint8()
	detail, _ := d.Uint8()
	length, _ := d.Uint16()

	if length != 0 {
		total := int(length) * 4
		if total < 4 {
			return DecodedRequest{}, StatusBadLength
		}
		if len(buf) < total {
			return DecodedRequest{}, StatusNeedMore
		}
		return DecodedRequest{
			Header:   RequestHeader{Opcode: opcode, Detail: detail, Length: length},
			Body:     buf[4:total],
			Consumed: total,
		}, StatusOK
	}

	// length == 0: BIG-REQUESTS extended header.
	if !bigRequests {
		return DecodedRequest{}, StatusBadLength
	}
	if len(buf) < 8 {
		return DecodedRequest{}, StatusNeedMore
	}
	ext, _ := d.Uint32()
	total := int(ext) * 4
	if total < 8 || total > BigRequestsMaxLength {
		return DecodedRequest{}, StatusBadLength
	}
	if len(buf) < total {
		return DecodedRequest{}, StatusNeedMore
	}
	return DecodedRequest{
		Header:   RequestHeader{Opcode: opcode, Detail: detail, Length: length},
		Body:     buf[8:total],
		Consumed: total,
	}, StatusOK
}

// EncodeReplyHeader writes the 8-byte common reply prefix:
// type(1)=1, detail(1), sequence(2), length(4, in 4-byte units of trailing
// data beyond the 32-byte base reply).
func EncodeReplyHeader(e *Encoder, detail uint8, sequence uint16, extraWords uint32) {
	e.PutUint8(1)
	e.PutUint8(detail)
	e.PutUint16(sequence)
	e.PutUint32(extraWords)
}

// PadReplyTo32 pads the encoder out to a 32-byte reply if it is short,
// used by handlers that build a reply's fixed part manually.
func PadReplyTo32(e *Encoder) {
	for e.Len() < 32 {
		e.PutUint8(0)
	}
}

// PatchSequence overwrites the sequence-number field (wire offset 2-3,
// shared by the reply/event/error frame shapes) of an already-encoded
// frame. Handlers always encode sequence 0 since only internal/session
// tracks the client's true per-request counter; session patches it in
// just before writing the frame to the socket.
func PatchSequence(buf []byte, order proto.ByteOrder, sequence uint16) {
	if len(buf) < 4 {
		return
	}
	byteOrderOf(order).PutUint16(buf[2:4], sequence)
}

// EncodeError builds a complete 32-byte X11 error frame.
func EncodeError(order proto.ByteOrder, code uint8, sequence uint16, badValue uint32, minorOpcode uint16, majorOpcode uint8) []byte {
	e := NewEncoder(order)
	e.PutUint8(0) // error marker
	e.PutUint8(code)
	e.PutUint16(sequence)
	e.PutUint32(badValue)
	e.PutUint16(minorOpcode)
	e.PutUint8(majorOpcode)
	e.PutPadN(21)
	return e.Bytes()
}
