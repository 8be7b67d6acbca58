package wire

import (
	"testing"

	"github.com/KarpelesLab/x11anywhere/internal/proto"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := NewEncoder(proto.LSBFirst)
	e.PutUint8(0x12)
	e.PutUint16(0x3456)
	e.PutUint32(0x789abcde)
	e.PutBool(true)

	d := NewDecoder(proto.LSBFirst, e.Bytes())
	u8, err := d.Uint8()
	if err != nil || u8 != 0x12 {
		t.Fatalf("Uint8: got %#x, %v", u8, err)
	}
	u16, err := d.Uint16()
	if err != nil || u16 != 0x3456 {
		t.Fatalf("Uint16: got %#x, %v", u16, err)
	}
	u32, err := d.Uint32()
	if err != nil || u32 != 0x789abcde {
		t.Fatalf("Uint32: got %#x, %v", u32, err)
	}
	b, err := d.Uint8()
	if err != nil || b != 1 {
		t.Fatalf("Bool byte: got %d, %v", b, err)
	}
}

func TestDecoderErrorsOnShortBuffer(t *testing.T) {
	d := NewDecoder(proto.LSBFirst, []byte{0x01})
	if _, err := d.Uint16(); err == nil {
		t.Fatal("expected error reading Uint16 past end of buffer")
	}
}

func TestPad(t *testing.T) {
	cases := map[int]int{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: 3}
	for n, want := range cases {
		if got := Pad(n); got != want {
			t.Fatalf("Pad(%d): got %d, want %d", n, got, want)
		}
	}
}

func TestDecodeRequestNeedsMoreBytes(t *testing.T) {
	_, status := DecodeRequest(proto.LSBFirst, []byte{1, 0, 2, 0}, false)
	if status != StatusNeedMore {
		t.Fatalf("expected StatusNeedMore for a truncated 8-byte request, got %v", status)
	}
}

func TestDecodeRequestFramesFixedLength(t *testing.T) {
	buf := []byte{43, 0, 1, 0} // GetInputFocus, length 1 (4 bytes total)
	req, status := DecodeRequest(proto.LSBFirst, buf, false)
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if req.Header.Opcode != 43 || req.Consumed != 4 || len(req.Body) != 0 {
		t.Fatalf("unexpected decode: %+v", req)
	}
}

func TestDecodeRequestZeroLengthWithoutBigRequestsIsBad(t *testing.T) {
	buf := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	_, status := DecodeRequest(proto.LSBFirst, buf, false)
	if status != StatusBadLength {
		t.Fatalf("expected StatusBadLength when BIG-REQUESTS is disabled, got %v", status)
	}
}

func TestDecodeRequestBigRequestsExtendedLength(t *testing.T) {
	// opcode=1, detail=0, length=0 (signals extended header), ext=2 (8 bytes total)
	buf := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	req, status := DecodeRequest(proto.LSBFirst, buf, true)
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if req.Consumed != 8 || len(req.Body) != 0 {
		t.Fatalf("unexpected decode: %+v", req)
	}
}

func TestPatchSequenceOverwritesReplyHeaderField(t *testing.T) {
	e := NewEncoder(proto.LSBFirst)
	EncodeReplyHeader(e, 0, 0, 0)
	PadReplyTo32(e)

	buf := e.Bytes()
	PatchSequence(buf, proto.LSBFirst, 0x1234)

	d := NewDecoder(proto.LSBFirst, buf[2:4])
	seq, _ := d.Uint16()
	if seq != 0x1234 {
		t.Fatalf("expected patched sequence 0x1234, got %#x", seq)
	}
}

func TestPatchSequenceIgnoresUndersizedBuffer(t *testing.T) {
	buf := []byte{1, 2}
	PatchSequence(buf, proto.LSBFirst, 0xffff) // must not panic
	if buf[0] != 1 || buf[1] != 2 {
		t.Fatalf("expected undersized buffer left untouched, got %v", buf)
	}
}
