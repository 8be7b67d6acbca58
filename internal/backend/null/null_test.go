package null

import (
	"bytes"
	"testing"

	"github.com/KarpelesLab/x11anywhere/internal/backend"
)

// TestPutImageGetImageRoundTrip exercises the round-trip law every
// ZPixmap-format image transfer must satisfy: GetImage over a rect a
// client just PutImage'd into must return exactly the bytes supplied,
// at the server's advertised bits-per-pixel=32 stride.
func TestPutImageGetImageRoundTrip(t *testing.T) {
	b := New()
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	w := backend.WindowHandle(1)
	rect := backend.Rect{X: 0, Y: 0, W: 4, H: 3}
	if err := b.CreateWindow(w, rect); err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	want := make([]byte, int(rect.W)*int(rect.H)*bytesPerPixel)
	for i := range want {
		want[i] = byte(i * 7)
	}
	// Pad bytes are never read back meaningfully, so zero them in the
	// input to make the comparison exact.
	for i := 3; i < len(want); i += bytesPerPixel {
		want[i] = 0
	}

	if err := b.PutImage(w, rect, 2, want); err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	got, err := b.GetImage(w, rect, 2)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round-trip mismatch:\n put  %v\n got  %v", want, got)
	}
}

func TestPutImageUsesFourBytesPerPixel(t *testing.T) {
	b := New()
	_ = b.Init()
	w := backend.WindowHandle(1)
	rect := backend.Rect{X: 0, Y: 0, W: 1, H: 1}
	_ = b.CreateWindow(w, rect)

	// B, G, R, pad — matches the advertised red/green/blue masks.
	_ = b.PutImage(w, rect, 2, []byte{0x30, 0x20, 0x10, 0xff})
	got, err := b.GetImage(w, rect, 2)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if len(got) != bytesPerPixel {
		t.Fatalf("expected %d bytes for a single pixel, got %d", bytesPerPixel, len(got))
	}
	if got[0] != 0x30 || got[1] != 0x20 || got[2] != 0x10 {
		t.Fatalf("expected B=0x30 G=0x20 R=0x10, got %v", got[:3])
	}
}
