// Package session implements the per-client connection state machine:
// the handshake prologue, the decode/dispatch/encode request loop, and
// the event pump that flushes internal/evpipe queues to the socket
// (spec.md §4.10's state diagram, §5). It is grounded on the teacher's
// x11/connection.go (sendRequest/readResponse read/write loop, the
// closed/mu-guarded Connection shape), inverted to decode requests and
// encode replies instead of the reverse, and on x11/setup.go's
// performSetup for the prologue exchange, likewise inverted.
package session

import (
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/KarpelesLab/x11anywhere/internal/config"
	"github.com/KarpelesLab/x11anywhere/internal/dispatch"
	"github.com/KarpelesLab/x11anywhere/internal/evpipe"
	"github.com/KarpelesLab/x11anywhere/internal/handshake"
	"github.com/KarpelesLab/x11anywhere/internal/proto"
	"github.com/KarpelesLab/x11anywhere/internal/protoerr"
	"github.com/KarpelesLab/x11anywhere/internal/resource"
	"github.com/KarpelesLab/x11anywhere/internal/wire"
	"github.com/KarpelesLab/x11anywhere/internal/xauth"
)

// idBits is the width of the per-client partition of the 32-bit resource
// id space; idMask is the corresponding CreateWindow/CreatePixmap/...
// id-choice mask advertised in the SetupReply (spec.md §4.2).
const idBits = 21

const idMask = uint32(1<<idBits - 1)

// nextClientNum hands out the monotonically increasing client number
// folded into each connection's resource-id-base (num << idBits) and
// into its ClientID. It wraps past 2^(32-idBits) clients, which is far
// beyond what a single process is expected to serve concurrently.
var nextClientNum atomic.Uint32

func allocateClient() (resource.ClientID, uint32) {
	n := nextClientNum.Add(1)
	return resource.ClientID(n), n << idBits
}

// Params bundles the per-connection values a listener supplies that
// come from server-wide configuration rather than per-client state.
type Params struct {
	Security         config.SecurityPolicy
	Vendor           string
	ReleaseNumber    uint32
	MotionBufferSize uint32
	MaxRequestLength uint16
	Screen           handshake.ScreenParams
}

// readBufferSize is the chunk size used for each conn.Read call in both
// the prologue and request-framing loops.
const readBufferSize = 64 * 1024

// Serve runs one client connection to completion: prologue handshake,
// then the request loop, until the peer disconnects, a fatal framing
// error occurs, or the client is killed via KillClient. It always
// closes conn before returning, so callers (internal/listener) need no
// further cleanup.
func Serve(conn net.Conn, srv *dispatch.Server, params Params, log *zap.Logger) {
	defer conn.Close()

	order, authName, leftover, err := readPrologue(conn)
	if err != nil {
		if log != nil {
			log.Debug("session: prologue read failed", zap.Error(err))
		}
		return
	}

	decision := xauth.Evaluate(params.Security, authName, nil)
	if !decision.Accepted {
		_, _ = conn.Write(handshake.BuildRefused(order, decision.Reason))
		return
	}

	clientID, idBase := allocateClient()
	reply := handshake.ReplyParams{
		ResourceIDBase:   idBase,
		ResourceIDMask:   idMask,
		Vendor:           params.Vendor,
		ReleaseNumber:    params.ReleaseNumber,
		MotionBufferSize: params.MotionBufferSize,
		MaxRequestLength: params.MaxRequestLength,
		Screen:           params.Screen,
	}
	if _, err := conn.Write(handshake.BuildSuccess(order, reply)); err != nil {
		return
	}

	client := &dispatch.Client{
		ID:        clientID,
		IDBase:    idBase,
		IDMask:    idMask,
		ByteOrder: order,
		Queue:     evpipe.NewQueue(),
	}
	srv.RegisterClient(client)
	defer srv.UnregisterClient(client)

	if log != nil {
		log.Debug("session: client connected", zap.Uint32("client_id_base", idBase))
	}

	s := &session{conn: conn, srv: srv, client: client, order: order, log: log}
	s.run(leftover)

	if log != nil {
		log.Debug("session: client disconnected", zap.Uint32("client_id_base", idBase))
	}
}

// readPrologue reads and parses the connection-setup prologue
// (byte-order byte, protocol version, auth name/data), returning the
// negotiated byte order, the auth-name the client presented, and any
// bytes already read past the prologue (the start of the first request).
func readPrologue(conn net.Conn) (proto.ByteOrder, string, []byte, error) {
	buf := make([]byte, 0, 512)
	tmp := make([]byte, 512)
	for {
		p, consumed, err := handshake.ParsePrologue(buf)
		if err != nil {
			return 0, "", nil, err
		}
		if consumed > 0 {
			return p.ByteOrder, p.AuthName, append([]byte(nil), buf[consumed:]...), nil
		}
		n, err := conn.Read(tmp)
		if err != nil {
			return 0, "", nil, err
		}
		buf = append(buf, tmp[:n]...)
	}
}

// session is the live request loop plus event pump for one connected
// client, after the handshake has completed.
type session struct {
	conn   net.Conn
	srv    *dispatch.Server
	client *dispatch.Client
	order  proto.ByteOrder
	log    *zap.Logger

	writeMu sync.Mutex
	seq     atomic.Uint32 // low 16 bits are the client's current sequence number
	done    chan struct{}
}

// run decodes and dispatches requests until the connection ends,
// starting from any bytes already read past the prologue.
func (s *session) run(leftover []byte) {
	s.done = make(chan struct{})
	defer close(s.done)

	go s.pumpEvents()

	buf := leftover
	tmp := make([]byte, readBufferSize)
	for {
		req, status := wire.DecodeRequest(s.order, buf, s.client.BigRequests)
		switch status {
		case wire.StatusOK:
			s.handle(req)
			buf = buf[req.Consumed:]
			if s.client.Killed {
				return
			}
			continue
		case wire.StatusBadLength:
			s.writeError(protoerr.New(proto.ErrLength, 0))
			return
		}

		n, err := s.conn.Read(tmp)
		if err != nil {
			return
		}
		buf = append(buf, tmp[:n]...)
	}
}

// handle dispatches one framed request, stamping the real sequence
// number into whatever reply or error comes back (dispatch handlers
// always encode sequence 0, since only this layer tracks the counter).
//
// Some handlers (e.g. GetProperty with delete=true) synchronously emit
// an event into this same client's own queue before returning their
// reply. handle holds writeMu across the dispatch call, its own reply
// write, and a drain of anything that landed in the queue during that
// call, so pumpEvents cannot interleave a self-generated event ahead of
// the reply that produced it (spec.md's reply-before-self-generated-
// event ordering invariant).
func (s *session) handle(req wire.DecodedRequest) {
	seq := uint16(s.seq.Add(1))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	reply, perr := s.srv.Handle(s.client, req.Header, req.Body)
	if perr != nil {
		s.writeLocked(wire.EncodeError(s.order, perr.Kind, seq, perr.BadValue, perr.MinorOpcode, perr.MajorOpcode))
		return
	}
	if reply != nil {
		// A reply may be several concatenated frames (ListFontsWithInfo);
		// each frame's sequence field is patched.
		for off := 0; off+8 <= len(reply); {
			wire.PatchSequence(reply[off:], s.order, seq)
			n, _ := wire.NewDecoder(s.order, reply[off+4:off+8]).Uint32()
			off += 32 + 4*int(n)
		}
		s.writeLocked(reply)
	}
	for _, b := range s.client.Queue.Drain(s.order, seq) {
		s.writeLocked(b)
	}
}

// writeError sends a standalone error frame outside of normal request
// handling, used for the fatal bad-length framing case.
func (s *session) writeError(perr *protoerr.Error) {
	seq := uint16(s.seq.Load())
	s.write(wire.EncodeError(s.order, perr.Kind, seq, perr.BadValue, perr.MinorOpcode, perr.MajorOpcode))
}

// pumpEvents flushes the client's event queue to the socket whenever it
// is woken, so events generated by other clients' requests (or by this
// client's own requests affecting windows other clients watch) reach a
// client that is blocked reading, not just ones produced synchronously
// inside handle.
func (s *session) pumpEvents() {
	for {
		select {
		case <-s.client.Queue.Notify():
			seq := uint16(s.seq.Load())
			s.writeMu.Lock()
			for _, b := range s.client.Queue.Drain(s.order, seq) {
				s.writeLocked(b)
			}
			s.writeMu.Unlock()
		case <-s.done:
			return
		}
	}
}

// writeLocked writes b to the connection; callers must hold writeMu.
func (s *session) writeLocked(b []byte) {
	if _, err := s.conn.Write(b); err != nil && s.log != nil {
		s.log.Debug("session: write failed", zap.Error(err))
	}
}

func (s *session) write(b []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.writeLocked(b)
}
