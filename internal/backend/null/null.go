// Package null implements an in-memory backend.Backend used by tests and
// -backend=null (SPEC_FULL.md §B.2): it tracks window rectangles and a
// synthetic framebuffer per window but performs no real rendering or
// host-platform interaction, since host backends are out of scope
// (spec.md §1).
package null

import (
	"sync"

	"github.com/KarpelesLab/x11anywhere/internal/backend"
)

func init() {
	backend.Register("null", func() backend.Backend { return New() })
}

type window struct {
	rect   backend.Rect
	mapped bool
	pixels map[[2]int16]backend.Color
}

// Backend is the null in-memory implementation.
type Backend struct {
	mu      sync.Mutex
	windows map[backend.WindowHandle]*window
	events  []backend.InputEvent
}

// New creates an unstarted null Backend.
func New() *Backend {
	return &Backend{windows: make(map[backend.WindowHandle]*window)}
}

func (b *Backend) Name() string { return "null" }

func (b *Backend) Init() error    { return nil }
func (b *Backend) Destroy() error { return nil }

func (b *Backend) CreateWindow(w backend.WindowHandle, rect backend.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[w] = &window{rect: rect, pixels: make(map[[2]int16]backend.Color)}
	return nil
}

func (b *Backend) DestroyWindow(w backend.WindowHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, w)
	return nil
}

func (b *Backend) MapWindow(w backend.WindowHandle) error {
	return b.withWindow(w, func(win *window) { win.mapped = true })
}

func (b *Backend) UnmapWindow(w backend.WindowHandle) error {
	return b.withWindow(w, func(win *window) { win.mapped = false })
}

func (b *Backend) ConfigureWindow(w backend.WindowHandle, rect backend.Rect) error {
	return b.withWindow(w, func(win *window) { win.rect = rect })
}

func (b *Backend) withWindow(w backend.WindowHandle, fn func(*window)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	win, ok := b.windows[w]
	if !ok {
		return backend.ErrNotInitialized
	}
	fn(win)
	return nil
}

func (b *Backend) SetCursor(w backend.WindowHandle, glyphID uint32) error {
	return b.withWindow(w, func(*window) {})
}

func (b *Backend) FillRectangles(w backend.WindowHandle, rects []backend.Rect, color backend.Color) error {
	return b.withWindow(w, func(win *window) {
		for _, r := range rects {
			for y := r.Y; y < r.Y+int16(r.H); y++ {
				for x := r.X; x < r.X+int16(r.W); x++ {
					win.pixels[[2]int16{x, y}] = color
				}
			}
		}
	})
}

func (b *Backend) StrokeRectangles(w backend.WindowHandle, rects []backend.Rect, color backend.Color) error {
	return b.withWindow(w, func(win *window) {
		for _, r := range rects {
			for x := r.X; x < r.X+int16(r.W); x++ {
				win.pixels[[2]int16{x, r.Y}] = color
				win.pixels[[2]int16{x, r.Y + int16(r.H) - 1}] = color
			}
			for y := r.Y; y < r.Y+int16(r.H); y++ {
				win.pixels[[2]int16{r.X, y}] = color
				win.pixels[[2]int16{r.X + int16(r.W) - 1, y}] = color
			}
		}
	})
}

func (b *Backend) DrawLines(w backend.WindowHandle, points []backend.Point, color backend.Color) error {
	return b.withWindow(w, func(win *window) {
		for i := 0; i+1 < len(points); i++ {
			plotLine(win, points[i], points[i+1], color)
		}
	})
}

func plotLine(win *window, a, b backend.Point, color backend.Color) {
	dx, dy := int(b.X-a.X), int(b.Y-a.Y)
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		win.pixels[[2]int16{a.X, a.Y}] = color
		return
	}
	for i := 0; i <= steps; i++ {
		x := a.X + int16(dx*i/steps)
		y := a.Y + int16(dy*i/steps)
		win.pixels[[2]int16{x, y}] = color
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (b *Backend) DrawArcs(w backend.WindowHandle, rects []backend.Rect, color backend.Color) error {
	// Arcs are approximated as their bounding rectangle's outline; no
	// client in the target test scenarios depends on true arc curvature.
	return b.StrokeRectangles(w, rects, color)
}

func (b *Backend) FillPolygon(w backend.WindowHandle, points []backend.Point, color backend.Color) error {
	return b.withWindow(w, func(win *window) {
		if len(points) == 0 {
			return
		}
		minX, maxX := points[0].X, points[0].X
		minY, maxY := points[0].Y, points[0].Y
		for _, p := range points {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if pointInPolygon(points, x, y) {
					win.pixels[[2]int16{x, y}] = color
				}
			}
		}
	})
}

func pointInPolygon(points []backend.Point, x, y int16) bool {
	inside := false
	n := len(points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := points[i], points[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// bytesPerPixel is the stride PutImage/GetImage pack to: the server
// advertises a single depth-24 ZPixmap format with bits-per-pixel=32
// (internal/handshake/handshake.go), so every pixel is 4 bytes on the
// wire regardless of the 24 significant bits, with the 4th byte unused
// padding. Byte order within a pixel follows the advertised masks
// (red 0xff0000, green 0x00ff00, blue 0x0000ff): B, G, R, then padding.
const bytesPerPixel = 4

func (b *Backend) PutImage(w backend.WindowHandle, rect backend.Rect, format uint8, data []byte) error {
	return b.withWindow(w, func(win *window) {
		i := 0
		for y := rect.Y; y < rect.Y+int16(rect.H) && i+bytesPerPixel <= len(data); y++ {
			for x := rect.X; x < rect.X+int16(rect.W) && i+bytesPerPixel <= len(data); x++ {
				win.pixels[[2]int16{x, y}] = backend.Color{R: data[i+2], G: data[i+1], B: data[i], A: 0xff}
				i += bytesPerPixel
			}
		}
	})
}

func (b *Backend) GetImage(w backend.WindowHandle, rect backend.Rect, format uint8) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	win, ok := b.windows[w]
	if !ok {
		return nil, backend.ErrNotInitialized
	}
	out := make([]byte, 0, int(rect.W)*int(rect.H)*bytesPerPixel)
	for y := rect.Y; y < rect.Y+int16(rect.H); y++ {
		for x := rect.X; x < rect.X+int16(rect.W); x++ {
			c := win.pixels[[2]int16{x, y}]
			out = append(out, c.B, c.G, c.R, 0)
		}
	}
	return out, nil
}

func (b *Backend) CopyArea(src, dst backend.WindowHandle, srcRect backend.Rect, dstX, dstY int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sw, ok := b.windows[src]
	if !ok {
		return backend.ErrNotInitialized
	}
	dw, ok := b.windows[dst]
	if !ok {
		return backend.ErrNotInitialized
	}
	for y := int16(0); y < int16(srcRect.H); y++ {
		for x := int16(0); x < int16(srcRect.W); x++ {
			c, ok := sw.pixels[[2]int16{srcRect.X + x, srcRect.Y + y}]
			if !ok {
				continue
			}
			dw.pixels[[2]int16{dstX + x, dstY + y}] = c
		}
	}
	return nil
}

func (b *Backend) CopyPlane(src, dst backend.WindowHandle, srcRect backend.Rect, dstX, dstY int16, plane uint32) error {
	return b.CopyArea(src, dst, srcRect, dstX, dstY)
}

func (b *Backend) DrawText(w backend.WindowHandle, x, y int16, text string, color backend.Color) error {
	return b.withWindow(w, func(win *window) {
		for i := range text {
			win.pixels[[2]int16{x + int16(i*7), y}] = color
		}
	})
}

func (b *Backend) QueryFontMetrics() (ascent, descent int16, charWidth int16) {
	return 10, 3, 7
}

func (b *Backend) PollEvent() (backend.InputEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return backend.InputEvent{}, false
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}

// InjectEvent lets tests feed a synthetic input notification into the
// backend's PollEvent queue.
func (b *Backend) InjectEvent(ev backend.InputEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}
