// Package server assembles one running X11Anywhere display: the
// resource graph, window tree, selected backend, dispatcher, and the
// listeners that accept client connections (spec.md §5). It is
// grounded on the teacher's top-level app.go App type — config held at
// construction, a blocking Run, an idempotent Quit — generalized from a
// single-window client application to a multi-client server process.
package server

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/KarpelesLab/x11anywhere/internal/atomtable"
	"github.com/KarpelesLab/x11anywhere/internal/backend"
	"github.com/KarpelesLab/x11anywhere/internal/config"
	"github.com/KarpelesLab/x11anywhere/internal/dispatch"
	"github.com/KarpelesLab/x11anywhere/internal/handshake"
	"github.com/KarpelesLab/x11anywhere/internal/listener"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/session"
	"github.com/KarpelesLab/x11anywhere/internal/wintree"
)

// rootWindowID is the resource id of the single screen's root window;
// fixed since this server always advertises exactly one screen.
const rootWindowID = proto.ResourceID(1)

// Single-screen geometry and visual this server advertises (spec.md
// §4.2). A fixed 96-DPI assumption derives the millimeter dimensions
// SetupReply reports.
const (
	rootWidth      = 1024
	rootHeight     = 768
	rootVisualID   = 0x00000021
	rootDepth      = 24
	millimetersPer = 25.4 / 96.0
)

// Server is a fully constructed display, not yet accepting connections
// until Run is called.
type Server struct {
	cfg   config.Config
	log   *zap.Logger
	clock *timekeeper

	dispatch *dispatch.Server
	backend  backend.Backend

	mu     sync.Mutex
	group  *listener.Group
	cancel context.CancelFunc
}

// New selects and initializes cfg.Backend, builds the resource graph
// and single-screen window tree around it, and wires the dispatcher.
// It does not bind any network listener; call Run for that.
func New(cfg config.Config, log *zap.Logger) (*Server, error) {
	if cfg.Security == config.SecurityStrict && log != nil {
		log.Warn("server: strict security only checks that an auth name is present")
	}
	be, err := backend.Create(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("server: selecting backend %q: %w", cfg.Backend, err)
	}
	if err := be.Init(); err != nil {
		return nil, fmt.Errorf("server: initializing backend %q: %w", cfg.Backend, err)
	}

	rootRect := backend.Rect{X: 0, Y: 0, W: rootWidth, H: rootHeight}
	if err := be.CreateWindow(backend.WindowHandle(rootWindowID), rootRect); err != nil {
		_ = be.Destroy()
		return nil, fmt.Errorf("server: creating root window: %w", err)
	}
	if err := be.MapWindow(backend.WindowHandle(rootWindowID)); err != nil {
		_ = be.Destroy()
		return nil, fmt.Errorf("server: mapping root window: %w", err)
	}

	clock, err := newTimekeeper()
	if err != nil {
		_ = be.Destroy()
		return nil, fmt.Errorf("server: reading monotonic clock: %w", err)
	}

	res := resource.NewTable()
	tree := wintree.NewTree(res, rootWindowID, rootWidth, rootHeight)
	atoms := atomtable.New()
	disp := dispatch.NewServer(log, res, tree, atoms, be, rootVisualID, rootDepth)

	return &Server{
		cfg:      cfg,
		log:      log,
		clock:    clock,
		dispatch: disp,
		backend:  be,
	}, nil
}

// Run binds the configured TCP/unix listeners and serves connections,
// plus the backend input-event ingestion loop, until ctx is cancelled
// or Quit is called. It blocks until every accept loop has returned.
func (s *Server) Run(ctx context.Context) error {
	group, err := listener.Listen(s.cfg.Display, s.cfg.TCP, s.cfg.Unix, s.log)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.group = group
	s.cancel = cancel
	s.mu.Unlock()

	if s.log != nil {
		addrs := make([]string, 0, len(group.Addrs()))
		for _, a := range group.Addrs() {
			addrs = append(addrs, a.String())
		}
		s.log.Info("server: listening", zap.Strings("addrs", addrs), zap.Int("display", s.cfg.Display))
	}

	go s.ingestBackendEvents(runCtx)

	params := session.Params{
		Security:         s.cfg.Security,
		Vendor:           s.cfg.Vendor,
		ReleaseNumber:    s.cfg.ReleaseNumber,
		MotionBufferSize: 0,
		MaxRequestLength: 0xffff,
		Screen: handshake.ScreenParams{
			Width:        rootWidth,
			Height:       rootHeight,
			WidthMM:      uint16(float64(rootWidth) * millimetersPer),
			HeightMM:     uint16(float64(rootHeight) * millimetersPer),
			RootVisualID: rootVisualID,
			RootDepth:    rootDepth,
			BlackPixel:   0x000000,
			WhitePixel:   0xffffff,
		},
	}

	group.Serve(runCtx, s.dispatch, params)
	return nil
}

// Quit stops accepting new connections and cancels the backend
// ingestion loop. Already-connected clients continue to be served until
// they disconnect; it is safe to call Quit before Run returns.
func (s *Server) Quit() {
	s.mu.Lock()
	group, cancel := s.group, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Close()
	}
}

// Close tears down the selected backend. Call after Run has returned.
func (s *Server) Close() error {
	return s.backend.Destroy()
}

// debugSnapshot reports live resource counts per kind, the diagnostic
// side channel spec.md §6 describes as explicitly not part of the wire
// protocol; used only by tests.
func (s *Server) debugSnapshot() map[resource.Kind]int {
	return s.dispatch.Res.Count()
}
