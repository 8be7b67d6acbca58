// Package colormap holds the colormap resource payload and the TrueColor
// pixel encoding used by the colormap requests (spec.md §3, §4): New for
// CreateColormap, and Pixel/AllocColor for AllocColor/AllocNamedColor.
// AllocColorCells and AllocColorPlanes are not implemented; FreeColors
// and StoreColors are no-ops. Since the single advertised visual is TrueColor,
// every pixel value is a direct RGB encoding and "allocation" always
// succeeds without contention (spec.md §9's simplification for a
// headless/virtual display). New code grounded on the resource-lifecycle
// invariants of spec.md §3; id existence/ownership is owned by
// internal/resource's Table, so Colormap here only carries the
// domain-specific install-state.
package colormap

import "github.com/KarpelesLab/x11anywhere/internal/proto"

// Colormap is one colormap resource's payload, stored in
// internal/resource.Table under KindColormap.
type Colormap struct {
	ID        proto.ResourceID
	Window    proto.ResourceID
	Visual    uint32
	Installed bool
}

// New builds a fresh, uninstalled Colormap (CreateColormap).
func New(id, window proto.ResourceID, visual uint32) *Colormap {
	return &Colormap{ID: id, Window: window, Visual: visual}
}

// Pixel packs the high 8 bits of 16-bit RGB components into a TrueColor
// pixel value using
// the visual's fixed 0xff0000/0x00ff00/0x0000ff channel masks
// (matching the masks advertised in internal/handshake's SetupReply).
func Pixel(red, green, blue uint16) uint32 {
	r := uint32(red>>8) & 0xff
	g := uint32(green>>8) & 0xff
	b := uint32(blue>>8) & 0xff
	return r<<16 | g<<8 | b
}

// AllocColor implements AllocColor/AllocNamedColor's TrueColor
// semantics: the requested color is always obtained (no shared-cell
// contention is possible), so the reply just echoes back the pixel
// encoding and the (possibly rounded) component values.
func AllocColor(red, green, blue uint16) (pixel uint32, outRed, outGreen, outBlue uint16) {
	pixel = Pixel(red, green, blue)
	// Truncate each component to its high 8 bits and widen it back to 16
	// bits (x * 0x101), so QueryColors round-trips exactly.
	r8 := uint16(pixel>>16&0xff) * 0x101
	g8 := uint16(pixel>>8&0xff) * 0x101
	b8 := uint16(pixel&0xff) * 0x101
	return pixel, r8, g8, b8
}
