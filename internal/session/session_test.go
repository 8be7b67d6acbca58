package session

import (
	"net"
	"testing"
	"time"

	"github.com/KarpelesLab/x11anywhere/internal/atomtable"
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/backend/null"
	"github.com/KarpelesLab/x11anywhere/internal/dispatch"
	"github.com/KarpelesLab/x11anywhere/internal/handshake"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
)

func newTestServer() *dispatch.Server {
	res := resource.NewTable()
	tree := wintree.NewTree(res, 1, 1024, 768)
	atoms := atomtable.New()
	be := null.New()
	_ = be.Init()
	_ = be.CreateWindow(backend.WindowHandle(1), backend.Rect{X: 0, Y: 0, W: 1024, H: 768})
	return dispatch.NewServer(nil, res, tree, atoms, be, 0x21, 24)
}

func readFull(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	total := 0
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for total < n {
		k, err := conn.Read(buf[total:])
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		total += k
	}
	return buf
}

func TestServeHandshakeAndRequest(t *testing.T) {
	srv := newTestServer()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go Serve(serverConn, srv, Params{
		Vendor:           "x11anywhere-test",
		ReleaseNumber:    1,
		MaxRequestLength: 65535,
		Screen: handshake.ScreenParams{
			Width: 1024, Height: 768, RootVisualID: 0x21, RootDepth: 24,
		},
	}, nil)

	e := wire.NewEncoder(proto.LSBFirst)
	e.PutUint8(byte(proto.LSBFirst))
	e.PutUint8(0)
	e.PutUint16(11)
	e.PutUint16(0)
	e.PutUint16(0) // auth name len
	e.PutUint16(0) // auth data len
	e.PutUint16(0)
	if _, err := clientConn.Write(e.Bytes()); err != nil {
		t.Fatalf("write prologue: %v", err)
	}

	head := readFull(t, clientConn, 8)
	if head[0] != 1 {
		t.Fatalf("expected setup success, got status %d", head[0])
	}
	d := wire.NewDecoder(proto.LSBFirst, head[6:8])
	extra, _ := d.Uint16()
	body := readFull(t, clientConn, int(extra)*4)

	// Validate the declared length matches the fields actually laid out,
	// field by field, rather than treating body as an opaque blob: a
	// miscounted fixed-header field (e.g. a missing byte) would otherwise
	// only surface as a desync several fields later, or not at all if the
	// reply-validating assertions below happen to land on plausible data.
	bd := wire.NewDecoder(proto.LSBFirst, body)
	_, _ = bd.Uint32() // release-number
	_, _ = bd.Uint32() // resource-id-base
	_, _ = bd.Uint32() // resource-id-mask
	_, _ = bd.Uint32() // motion-buffer-size
	vendorLen, _ := bd.Uint16()
	_, _ = bd.Uint16() // max-request-length
	roots, _ := bd.Uint8()
	formats, _ := bd.Uint8()
	_, _ = bd.Uint8() // image-byte-order
	_, _ = bd.Uint8() // bitmap-format-bit-order
	_, _ = bd.Uint8() // bitmap-format-scanline-unit
	_, _ = bd.Uint8() // bitmap-format-scanline-pad
	minKeycode, _ := bd.Uint8()
	maxKeycode, _ := bd.Uint8()
	_, _ = bd.Uint32() // unused

	const wantVendor = "x11anywhere-test"
	if int(vendorLen) != len(wantVendor) {
		t.Fatalf("expected vendor length %d, got %d", len(wantVendor), vendorLen)
	}
	vendor, err := bd.String(int(vendorLen))
	if err != nil {
		t.Fatalf("reading vendor string: %v", err)
	}
	if vendor != wantVendor {
		t.Fatalf("expected vendor %q at its declared offset, got %q", wantVendor, vendor)
	}
	if err := bd.SkipPad(int(vendorLen)); err != nil {
		t.Fatalf("skipping vendor pad: %v", err)
	}

	depth, _ := bd.Uint8() // PIXMAP-FORMAT.depth
	bpp, _ := bd.Uint8()   // PIXMAP-FORMAT.bits-per-pixel
	_, _ = bd.Uint8()      // PIXMAP-FORMAT.scanline-pad
	if err := bd.Skip(5); err != nil {
		t.Fatalf("skipping pixmap-format pad: %v", err)
	}

	if roots != 1 || formats != 1 || minKeycode != 1 || maxKeycode != 255 {
		t.Fatalf("unexpected fixed header: roots=%d formats=%d minKeycode=%d maxKeycode=%d", roots, formats, minKeycode, maxKeycode)
	}
	if depth != 24 || bpp != 32 {
		t.Fatalf("expected pixmap format depth=24 bpp=32, got depth=%d bpp=%d", depth, bpp)
	}

	// SCREEN fixed part (40 bytes): root, colormap, white, black, masks,
	// width/height(+mm), min/max installed maps, root-visual,
	// backing-stores, save-unders, root-depth, allowed-depths count.
	_, _ = bd.Uint32() // root window id
	_, _ = bd.Uint32() // default colormap
	_, _ = bd.Uint32() // white pixel
	_, _ = bd.Uint32() // black pixel
	_, _ = bd.Uint32() // current input masks
	width, _ := bd.Uint16()
	height, _ := bd.Uint16()
	_, _ = bd.Uint16() // width mm
	_, _ = bd.Uint16() // height mm
	_, _ = bd.Uint16() // min installed maps
	_, _ = bd.Uint16() // max installed maps
	rootVisual, _ := bd.Uint32()
	_, _ = bd.Uint8() // backing-stores
	_, _ = bd.Uint8() // save-unders
	screenRootDepth, _ := bd.Uint8()
	allowedDepths, _ := bd.Uint8()

	if width != 1024 || height != 768 || rootVisual != 0x21 || screenRootDepth != 24 || allowedDepths != 1 {
		t.Fatalf("unexpected screen fixed part: width=%d height=%d rootVisual=%#x rootDepth=%d allowedDepths=%d",
			width, height, rootVisual, screenRootDepth, allowedDepths)
	}

	// DEPTH block (8-byte header + one 24-byte VISUALTYPE) must be the
	// last thing in the body; if declared length and actual encoded
	// bytes disagree, this read runs past the buffer and bd.Uint32
	// below returns an error.
	depthVal, _ := bd.Uint8()
	_, _ = bd.Uint8()          // unused
	visualsCount, _ := bd.Uint16()
	_, _ = bd.Uint32()         // unused
	visualID, _ := bd.Uint32()
	if depthVal != 24 || visualsCount != 1 || visualID != 0x21 {
		t.Fatalf("unexpected depth block: depth=%d visualsCount=%d visualID=%#x", depthVal, visualsCount, visualID)
	}
	if bd.Remaining() != 24-4 {
		t.Fatalf("expected exactly one VISUALTYPE (20 bytes) left after its id, got %d bytes remaining", bd.Remaining())
	}

	req := wire.NewEncoder(proto.LSBFirst)
	req.PutUint8(proto.OpGetInputFocus)
	req.PutUint8(0)
	req.PutUint16(1)
	if _, err := clientConn.Write(req.Bytes()); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reply := readFull(t, clientConn, 32)
	if reply[0] != 1 {
		t.Fatalf("expected reply marker, got %d", reply[0])
	}
	sd := wire.NewDecoder(proto.LSBFirst, reply[2:4])
	seq, _ := sd.Uint16()
	if seq != 1 {
		t.Fatalf("expected sequence 1, got %d", seq)
	}
}
