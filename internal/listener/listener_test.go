package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/KarpelesLab/x11anywhere/internal/atomtable"
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/backend/null"
	"github.com/KarpelesLab/x11anywhere/internal/dispatch"
	"github.com/KarpelesLab/x11anywhere/internal/handshake"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/session"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
)

func newTestDispatchServer() *dispatch.Server {
	res := resource.NewTable()
	tree := wintree.NewTree(res, 1, 1024, 768)
	atoms := atomtable.New()
	be := null.New()
	_ = be.Init()
	_ = be.CreateWindow(backend.WindowHandle(1), backend.Rect{X: 0, Y: 0, W: 1024, H: 768})
	return dispatch.NewServer(nil, res, tree, atoms, be, 0x21, 24)
}

func TestListenTCPAcceptsConnection(t *testing.T) {
	g, err := Listen(95, true, false, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	srv := newTestDispatchServer()
	params := session.Params{
		Vendor:           "x11anywhere-test",
		MaxRequestLength: 0xffff,
		Screen:           handshake.ScreenParams{Width: 1024, Height: 768, RootVisualID: 0x21, RootDepth: 24},
	}

	done := make(chan struct{})
	go func() {
		g.Serve(ctx, srv, params)
		close(done)
	}()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:6095", time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	cancel()
	g.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestAddrsReflectsBoundListener(t *testing.T) {
	g, err := Listen(96, true, false, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer g.Close()

	addrs := g.Addrs()
	if len(addrs) != 1 {
		t.Fatalf("expected exactly one bound address, got %d", len(addrs))
	}
}

func TestCloseStopsAcceptingBeforeServeReturns(t *testing.T) {
	g, err := Listen(97, true, false, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	srv := newTestDispatchServer()
	params := session.Params{Vendor: "x11anywhere-test", MaxRequestLength: 0xffff}

	done := make(chan struct{})
	go func() {
		g.Serve(context.Background(), srv, params)
		close(done)
	}()

	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	if _, err := net.DialTimeout("tcp", "127.0.0.1:6097", 200*time.Millisecond); err == nil {
		t.Fatal("expected dial to fail after listener closed")
	}
}
