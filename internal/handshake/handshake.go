// Package handshake parses a client's connection prologue and synthesizes
// the SetupReply, inverting the client-side build/parse pair in the
// teacher's x11/setup.go into a server-side parse/build pair.
package handshake

import (
	"fmt"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

// ProtocolMajor and ProtocolMinor are the X11 protocol version this
// server implements.
const (
	ProtocolMajor = 11
	ProtocolMinor = 0
)

// Prologue is the parsed client connection setup request.
type Prologue struct {
	ByteOrder      proto.ByteOrder
	ProtocolMajor  uint16
	ProtocolMinor  uint16
	AuthName       string
	AuthData       string
}

// ParsePrologue reads the 12-byte-plus-strings setup request that opens
// every X11 connection: byte-order byte, protocol major/minor, and the
// authorization-protocol name/data pair, each padded to 4 bytes.
func ParsePrologue(buf []byte) (Prologue, int, error) {
	if len(buf) < 1 {
		return Prologue{}, 0, nil
	}
	order := proto.ByteOrder(buf[0])
	if order != proto.MSBFirst && order != proto.LSBFirst {
		return Prologue{}, 0, fmt.Errorf("handshake: invalid byte-order byte 0x%02x", buf[0])
	}
	if len(buf) < 12 {
		return Prologue{}, 0, nil // need more bytes
	}
	d := wire.NewDecoder(order, buf)
	_, _ = d.Uint8() // byte-order byte already consumed above
	_, _ = d.Uint8() // unused pad
	major, _ := d.Uint16()
	minor, _ := d.Uint16()
	authNameLen, _ := d.Uint16()
	authDataLen, _ := d.Uint16()
	_, _ = d.Uint16() // unused pad

	need := 12 + int(authNameLen) + wire.Pad(int(authNameLen)) + int(authDataLen) + wire.Pad(int(authDataLen))
	if len(buf) < need {
		return Prologue{}, 0, nil
	}

	authName, err := d.String(int(authNameLen))
	if err != nil {
		return Prologue{}, 0, err
	}
	if err := d.SkipPad(int(authNameLen)); err != nil {
		return Prologue{}, 0, err
	}
	authData, err := d.String(int(authDataLen))
	if err != nil {
		return Prologue{}, 0, err
	}
	if err := d.SkipPad(int(authDataLen)); err != nil {
		return Prologue{}, 0, err
	}

	return Prologue{
		ByteOrder:     order,
		ProtocolMajor: major,
		ProtocolMinor: minor,
		AuthName:      authName,
		AuthData:      authData,
	}, need, nil
}

// ScreenParams describes the single screen this server advertises.
type ScreenParams struct {
	Width, Height             uint16
	WidthMM, HeightMM         uint16
	RootVisualID              uint32
	RootDepth                 uint8
	BlackPixel, WhitePixel    uint32
}

// ReplyParams bundles everything needed to build a SetupReply success
// response for the single-screen, single-visual, single-depth server
// this implementation advertises (spec.md §4.2).
type ReplyParams struct {
	ResourceIDBase, ResourceIDMask uint32
	Vendor                         string
	ReleaseNumber                  uint32
	MotionBufferSize               uint32
	MaxRequestLength               uint16
	Screen                         ScreenParams
}

// The single visual is fixed: one TrueColor 24-bit visual, matching
// the depth/visual tuple most X11 clients assume is available.
const (
	visualClassTrueColor = 4
	bitsPerRGBValue      = 8
	colormapEntries      = 256
)

// BuildSuccess encodes a full "success" SetupReply: fixed header, vendor
// string, one pixmap-format entry (depth 24, bpp 32, scanline-pad 32),
// and one screen with one depth (24) offering one TrueColor visual.
func BuildSuccess(order proto.ByteOrder, p ReplyParams) []byte {
	e := wire.NewEncoder(order)

	vendorLen := len(p.Vendor)
	vendorPad := wire.Pad(vendorLen)

	// Body length, in 4-byte units, beyond the fixed 8-byte reply header
	// (success/unused/major/minor/length). fixedAfterHeader is the
	// release-number..unused block (32 bytes); pixmapFormatLen is one
	// PIXMAP-FORMAT entry (8 bytes); screenBlockLen is the SCREEN's own
	// 40-byte fixed part plus one DEPTH block (8-byte header + one
	// 24-byte VISUALTYPE).
	const fixedAfterHeader = 32
	const pixmapFormatLen = 8
	const depthHeaderLen = 8
	const visualTypeLen = 24
	screenBlockLen := 40 + depthHeaderLen + 1*visualTypeLen
	bodyLen := fixedAfterHeader + vendorLen + vendorPad + pixmapFormatLen + screenBlockLen
	extraWords := wire.Units4(bodyLen)

	e.PutUint8(1) // success
	e.PutUint8(0) // unused
	e.PutUint16(ProtocolMajor)
	e.PutUint16(ProtocolMinor)
	e.PutUint16(uint16(extraWords))

	e.PutUint32(p.ReleaseNumber)
	e.PutUint32(p.ResourceIDBase)
	e.PutUint32(p.ResourceIDMask)
	e.PutUint32(p.MotionBufferSize)
	e.PutUint16(uint16(vendorLen))
	e.PutUint16(p.MaxRequestLength)
	e.PutUint8(1)  // roots: one screen
	e.PutUint8(1)  // formats: one pixmap format
	e.PutUint8(0)  // image byte order: LSBFirst (not advertised as meaningful here)
	e.PutUint8(0)  // bitmap format bit order: LeastSignificant
	e.PutUint8(32) // bitmap format scanline unit
	e.PutUint8(32) // bitmap format scanline pad
	e.PutUint8(1)  // min keycode
	e.PutUint8(255) // max keycode
	e.PutUint32(0)  // unused

	e.PutString(p.Vendor)
	e.PutPadN(vendorPad)

	// One PIXMAP-FORMAT: depth, bits-per-pixel, scanline-pad, 5 unused.
	e.PutUint8(p.Screen.RootDepth)
	e.PutUint8(32)
	e.PutUint8(32)
	e.PutPadN(5)

	// SCREEN block.
	e.PutUint32(1)                     // root window id (allocated by caller as resource id 1)
	e.PutUint32(0)                     // default colormap (allocated separately)
	e.PutUint32(p.Screen.WhitePixel)
	e.PutUint32(p.Screen.BlackPixel)
	e.PutUint32(0)                     // current input masks
	e.PutUint16(p.Screen.Width)
	e.PutUint16(p.Screen.Height)
	e.PutUint16(p.Screen.WidthMM)
	e.PutUint16(p.Screen.HeightMM)
	e.PutUint16(1) // min installed maps
	e.PutUint16(1) // max installed maps
	e.PutUint32(p.Screen.RootVisualID)
	e.PutUint8(0) // backing-stores: never
	e.PutUint8(0) // save-unders: false
	e.PutUint8(p.Screen.RootDepth)
	e.PutUint8(1) // allowed-depths count: one

	// One DEPTH block with one VISUALTYPE.
	e.PutUint8(p.Screen.RootDepth)
	e.PutUint8(0) // unused
	e.PutUint16(1) // visuals count
	e.PutUint32(0) // unused

	e.PutUint32(p.Screen.RootVisualID)
	e.PutUint8(visualClassTrueColor)
	e.PutUint8(bitsPerRGBValue)
	e.PutUint16(colormapEntries)
	e.PutUint32(0xff0000) // red mask
	e.PutUint32(0x00ff00) // green mask
	e.PutUint32(0x0000ff) // blue mask
	e.PutUint32(0)        // unused

	return e.Bytes()
}

// BuildRefused encodes a "connection refused" SetupReply carrying a
// short reason string (protocol version mismatch or unsupported auth).
func BuildRefused(order proto.ByteOrder, reason string) []byte {
	e := wire.NewEncoder(order)
	reasonLen := len(reason)
	e.PutUint8(0) // failed
	e.PutUint8(uint8(reasonLen))
	e.PutUint16(ProtocolMajor)
	e.PutUint16(ProtocolMinor)
	e.PutUint16(uint16(wire.Units4(reasonLen)))
	e.PutString(reason)
	e.PutPadN(wire.Pad(reasonLen))
	return e.Bytes()
}
