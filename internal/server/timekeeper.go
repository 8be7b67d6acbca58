package server

import (
	"golang.org/x/sys/unix"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

// timekeeper produces wire TIMESTAMP values (milliseconds since the
// server started) for server-generated events that have no
// client-supplied timestamp to reuse — backend input events translated
// by ingestBackendEvents. It reads CLOCK_MONOTONIC directly via
// golang.org/x/sys/unix rather than the standard library's time
// package, matching the teacher's own preference for that module for
// anything touching raw platform primitives (its x11/connection.go and
// platform layer import golang.org/x/sys throughout).
type timekeeper struct {
	startSec  int64
	startNsec int64
}

func newTimekeeper() (*timekeeper, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return nil, err
	}
	return &timekeeper{startSec: int64(ts.Sec), startNsec: int64(ts.Nsec)}, nil
}

// now returns milliseconds elapsed since the keeper was created,
// clamped to 0 in the (clock-adjustment-only, since CLOCK_MONOTONIC
// never goes backwards) case the subtraction underflows.
func (k *timekeeper) now() proto.Timestamp {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	ms := (int64(ts.Sec)-k.startSec)*1000 + (int64(ts.Nsec)-k.startNsec)/1_000_000
	if ms < 0 {
		ms = 0
	}
	return proto.Timestamp(uint32(ms))
}
