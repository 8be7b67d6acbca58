// Package listener binds the TCP and local-domain-socket endpoints an
// X11 display advertises and spawns an internal/session per accepted
// connection (spec.md §4.11, §6). It is grounded on the network-
// selection logic of the teacher's x11/connection.go (ConnectTo's
// unix-vs-tcp choice and its "/tmp/.X11-unix/X<n>" / "host:6000+n"
// addressing), inverted from dialing to listening.
package listener

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/KarpelesLab/x11anywhere/internal/dispatch"
	"github.com/KarpelesLab/x11anywhere/internal/session"
)

// UnixSocketDir is the conventional directory X11 local-domain sockets
// live in, matching the path x11/connection.go's ConnectTo dials.
const UnixSocketDir = "/tmp/.X11-unix"

// socketMode is world-readable/writable, the traditional X11 socket
// permission bits so any local user can connect.
const socketMode = 0o777

// Group binds zero or more endpoints for a single display number and
// accepts connections on all of them concurrently until Close is called.
type Group struct {
	display int
	log     *zap.Logger

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
	closed    bool
}

// Listen binds a TCP listener on 6000+display (if tcp) and/or a unix
// socket at UnixSocketDir/X<display> (if unixSocket), per spec.md §6.
// Listen returns an error if no endpoint is enabled or if any enabled
// endpoint fails to bind.
func Listen(display int, tcp, unixSocket bool, log *zap.Logger) (*Group, error) {
	g := &Group{display: display, log: log}

	if tcp {
		addr := fmt.Sprintf(":%d", 6000+display)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listener: tcp listen %s: %w", addr, err)
		}
		g.listeners = append(g.listeners, l)
	}

	if unixSocket {
		l, err := listenUnix(display)
		if err != nil {
			g.Close()
			return nil, err
		}
		g.listeners = append(g.listeners, l)
	}

	if len(g.listeners) == 0 {
		return nil, fmt.Errorf("listener: no endpoints enabled for display %d", display)
	}

	return g, nil
}

// listenUnix binds the local-domain socket for a display number,
// creating UnixSocketDir if needed and widening the socket's
// permissions with golang.org/x/sys/unix so clients running as other
// local users can still connect (matching the traditional X server's
// world-writable socket, since this server does not validate
// MIT-MAGIC-COOKIE credentials by default).
func listenUnix(display int) (net.Listener, error) {
	if err := os.MkdirAll(UnixSocketDir, 0o1777); err != nil {
		return nil, fmt.Errorf("listener: creating %s: %w", UnixSocketDir, err)
	}
	path := fmt.Sprintf("%s/X%d", UnixSocketDir, display)
	_ = os.Remove(path) // stale socket from a prior crashed run

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listener: unix listen %s: %w", path, err)
	}
	if err := unix.Chmod(path, socketMode); err != nil {
		l.Close()
		return nil, fmt.Errorf("listener: chmod %s: %w", path, err)
	}
	return l, nil
}

// Serve accepts connections on every bound endpoint, handing each off to
// internal/session.Serve against srv, until ctx is cancelled or Close is
// called. It blocks until all accept loops have returned.
func (g *Group) Serve(ctx context.Context, srv *dispatch.Server, params session.Params) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = g.Close()
		case <-stop:
		}
	}()
	for _, l := range g.listeners {
		l := l
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.acceptLoop(ctx, l, srv, params)
		}()
	}
	g.wg.Wait()
}

func (g *Group) acceptLoop(ctx context.Context, l net.Listener, srv *dispatch.Server, params session.Params) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()
			if closed {
				return
			}
			if g.log != nil {
				g.log.Warn("listener: accept failed", zap.String("addr", l.Addr().String()), zap.Error(err))
			}
			continue
		}
		go session.Serve(conn, srv, params, g.log)
	}
}

// Close stops accepting new connections on every bound endpoint.
// Already-accepted sessions run to completion independently.
func (g *Group) Close() error {
	g.mu.Lock()
	g.closed = true
	listeners := g.listeners
	g.mu.Unlock()

	var firstErr error
	for _, l := range listeners {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Addrs returns the bound addresses of every listener, for logging.
func (g *Group) Addrs() []net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]net.Addr, 0, len(g.listeners))
	for _, l := range g.listeners {
		out = append(out, l.Addr())
	}
	return out
}
