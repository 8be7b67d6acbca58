package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/backend/null"
	"github.com/KarpelesLab/x11anywhere/internal/config"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
)

func newTestConfig(display int) config.Config {
	return config.Config{
		Display:       display,
		Backend:       "null",
		TCP:           true,
		Unix:          false,
		Security:      config.SecurityPermissive,
		Vendor:        "x11anywhere-test",
		ReleaseNumber: 1,
	}
}

func TestNewBuildsRootWindow(t *testing.T) {
	s, err := New(newTestConfig(90), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	counts := s.debugSnapshot()
	if counts[resource.KindWindow] != 1 {
		t.Fatalf("expected exactly the root window registered, got %d", counts[resource.KindWindow])
	}
}

func TestRunAcceptsConnectionsAndQuit(t *testing.T) {
	s, err := New(newTestConfig(91), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", "127.0.0.1:6091")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial listening server: %v", err)
	}
	conn.Close()

	s.Quit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}

func TestIngestBackendEventsDrainsWithoutWedging(t *testing.T) {
	s, err := New(newTestConfig(92), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	nb := s.backend.(*null.Backend)
	nb.InjectEvent(backend.InputEvent{Kind: backend.InputClose, Window: backend.WindowHandle(rootWindowID)})

	ctx, cancel := context.WithCancel(context.Background())
	go s.ingestBackendEvents(ctx)

	// No clients are connected, so Emit has nothing to deliver to; this
	// only proves the poll loop consumes the injected event and returns
	// promptly once cancelled, without panicking or blocking forever.
	time.Sleep(5 * pollInterval)
	cancel()
}

func TestTranslateInputEventMotion(t *testing.T) {
	s, err := New(newTestConfig(93), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ev := s.translateInputEvent(backend.InputEvent{
		Kind:   backend.InputMotion,
		Window: backend.WindowHandle(rootWindowID),
		X:      5, Y: 6,
	})
	motion, ok := ev.(*evpipe.MotionNotifyEvent)
	if !ok {
		t.Fatalf("expected MotionNotifyEvent, got %T", ev)
	}
	if motion.RootX != 5 || motion.RootY != 6 {
		t.Fatalf("expected coordinates (5,6), got (%d,%d)", motion.RootX, motion.RootY)
	}
}

func TestDeleteWindowMessageCarriesAtom(t *testing.T) {
	s, err := New(newTestConfig(94), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	msg := s.deleteWindowMessage(rootWindowID)
	cm, ok := msg.(*evpipe.ClientMessageEvent)
	if !ok {
		t.Fatalf("expected ClientMessageEvent, got %T", msg)
	}
	if cm.Window != rootWindowID {
		t.Fatalf("expected window %d, got %d", rootWindowID, cm.Window)
	}
	deleteWindow, _ := s.dispatch.Atoms.Intern("WM_DELETE_WINDOW", false)
	got := proto.Atom(cm.Data[0]) | proto.Atom(cm.Data[1])<<8 | proto.Atom(cm.Data[2])<<16 | proto.Atom(cm.Data[3])<<24
	if got != deleteWindow {
		t.Fatalf("expected atom %d packed into data, got %d", deleteWindow, got)
	}
}
