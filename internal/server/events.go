package server

import (
	"context"
	"time"

	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// pollInterval is the sleep between empty PollEvent calls, matching
// backend.Backend.PollEvent's documented non-blocking contract.
const pollInterval = 4 * time.Millisecond

// ingestBackendEvents repeatedly polls the backend for input
// notifications and routes their wire-event translation through the
// dispatcher's event router (spec.md §4.9), until ctx is cancelled.
func (s *Server) ingestBackendEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, ok := s.backend.PollEvent()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		if translated := s.translateInputEvent(ev); translated != nil {
			s.dispatch.Emit(translated)
		}
	}
}

// translateInputEvent converts a backend-native InputEvent into the
// matching core-protocol wire event, or nil if the kind has no direct
// translation. The backend's WindowHandle is the target window's
// resource id cast directly (SPEC_FULL.md §B.2: handles are the
// resource id itself, there is no reverse-index table).
func (s *Server) translateInputEvent(ev backend.InputEvent) evpipe.Event {
	window := proto.ResourceID(ev.Window)
	ts := s.clock.now()

	switch ev.Kind {
	case backend.InputKeyPress, backend.InputKeyRelease:
		return &evpipe.KeyEvent{
			Release:    ev.Kind == backend.InputKeyRelease,
			Keycode:    ev.KeyCode,
			Time:       ts,
			Root:       rootWindowID,
			Event:      window,
			Child:      proto.None,
			RootX:      ev.X,
			RootY:      ev.Y,
			EventX:     ev.X,
			EventY:     ev.Y,
			State:      ev.State,
			SameScreen: true,
		}
	case backend.InputButtonPress, backend.InputButtonRelease:
		return &evpipe.ButtonEvent{
			Release:    ev.Kind == backend.InputButtonRelease,
			Button:     ev.Button,
			Time:       ts,
			Root:       rootWindowID,
			Event:      window,
			Child:      proto.None,
			RootX:      ev.X,
			RootY:      ev.Y,
			EventX:     ev.X,
			EventY:     ev.Y,
			State:      ev.State,
			SameScreen: true,
		}
	case backend.InputMotion:
		return &evpipe.MotionNotifyEvent{
			Time:       ts,
			Root:       rootWindowID,
			Event:      window,
			Child:      proto.None,
			RootX:      ev.X,
			RootY:      ev.Y,
			EventX:     ev.X,
			EventY:     ev.Y,
			State:      ev.State,
			SameScreen: true,
		}
	case backend.InputClose:
		return s.deleteWindowMessage(window)
	default:
		return nil
	}
}

// deleteWindowMessage builds the ICCCM WM_DELETE_WINDOW ClientMessage a
// well-behaved window manager sends in place of forcibly destroying a
// window whose backend surface was asked to close.
func (s *Server) deleteWindowMessage(window proto.ResourceID) evpipe.Event {
	protocols, _ := s.dispatch.Atoms.Intern("WM_PROTOCOLS", false)
	deleteWindow, _ := s.dispatch.Atoms.Intern("WM_DELETE_WINDOW", false)

	var data [20]byte
	// format-32 ClientMessage data is five 32-bit values; only the first
	// carries the deleted-atom payload WM_DELETE_WINDOW expects.
	data[0] = byte(deleteWindow)
	data[1] = byte(deleteWindow >> 8)
	data[2] = byte(deleteWindow >> 16)
	data[3] = byte(deleteWindow >> 24)

	return &evpipe.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   protocols,
		Data:   data,
	}
}
