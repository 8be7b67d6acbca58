// Package cursor implements the cursor resource (spec.md §3's resource
// table): CreateCursor/CreateGlyphCursor/FreeCursor/RecolorCursor. New
// code grounded on the resource-lifecycle invariants of spec.md §3; a
// thin wrapper around internal/resource since no backend in this
// repository actually renders a cursor image.
package cursor

import "github.com/KarpelesLab/x11anywhere/internal/proto"

// Cursor holds a cursor resource's colors and source glyph description.
// The bitmap/mask pixmaps and glyph font/index are recorded for
// RecolorCursor and potential future rendering but are not rasterized by
// the null backend.
type Cursor struct {
	ID               proto.ResourceID
	Source, Mask     proto.ResourceID
	SourceFont       proto.ResourceID
	MaskFont         proto.ResourceID
	SourceChar       uint16
	MaskChar         uint16
	ForeRed, ForeGreen, ForeBlue uint16
	BackRed, BackGreen, BackBlue uint16
	IsGlyph          bool
}

// New builds a Cursor from CreateCursor's arguments.
func New(id, source, mask proto.ResourceID, foreR, foreG, foreB, backR, backG, backB uint16) *Cursor {
	return &Cursor{
		ID: id, Source: source, Mask: mask,
		ForeRed: foreR, ForeGreen: foreG, ForeBlue: foreB,
		BackRed: backR, BackGreen: backG, BackBlue: backB,
	}
}

// NewGlyph builds a Cursor from CreateGlyphCursor's arguments (a font
// glyph index rather than a pixmap pair).
func NewGlyph(id, sourceFont, maskFont proto.ResourceID, sourceChar, maskChar uint16, foreR, foreG, foreB, backR, backG, backB uint16) *Cursor {
	return &Cursor{
		ID: id, SourceFont: sourceFont, MaskFont: maskFont,
		SourceChar: sourceChar, MaskChar: maskChar,
		ForeRed: foreR, ForeGreen: foreG, ForeBlue: foreB,
		BackRed: backR, BackGreen: backG, BackBlue: backB,
		IsGlyph: true,
	}
}

// Recolor updates the fore/back color components (RecolorCursor).
func (c *Cursor) Recolor(foreR, foreG, foreB, backR, backG, backB uint16) {
	c.ForeRed, c.ForeGreen, c.ForeBlue = foreR, foreG, foreB
	c.BackRed, c.BackGreen, c.BackBlue = backR, backG, backB
}
