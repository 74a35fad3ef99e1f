package rtpframe

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBuildParseRoundTrip(t *testing.T) {
	// spec.md §8 concrete scenario 4.
	var frames [FramesPerPacket][]byte
	for i := range frames {
		f := make([]byte, GSMFrameSize)
		for j := range f {
			f[j] = 0xAA
		}
		frames[i] = f
	}
	raw, err := Build(1234, 5_000_000, 777, true, frames)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(raw) != 4+DatagramSize {
		t.Fatalf("len(raw) = %d; want %d", len(raw), 4+DatagramSize)
	}
	gotLen := binary.BigEndian.Uint32(raw[:4])
	if int(gotLen) != DatagramSize {
		t.Fatalf("length prefix = %d; want %d", gotLen, DatagramSize)
	}

	pkt, err := Parse(raw[4:])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pkt.Sequence != 1234 || pkt.Timestamp != 5_000_000 || pkt.SSRC != 777 {
		t.Fatalf("fields mismatch: %+v", pkt)
	}
	if pkt.UIDTrailer != 777 {
		t.Fatalf("UIDTrailer = %d; want 777", pkt.UIDTrailer)
	}
	totalPayload := 0
	for _, f := range pkt.GSMFrames {
		totalPayload += len(f)
		if !bytes.Equal(f, frames[0]) {
			t.Fatalf("frame mismatch: % x", f)
		}
	}
	if totalPayload+UIDTrailerSize != PayloadSize {
		t.Fatalf("payload size = %d; want %d", totalPayload+UIDTrailerSize, PayloadSize)
	}
}

func TestReadOne(t *testing.T) {
	var frames [FramesPerPacket][]byte
	for i := range frames {
		frames[i] = make([]byte, GSMFrameSize)
	}
	raw, err := Build(1, 2, 3, false, frames)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pkt, err := ReadOne(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if pkt.Sequence != 1 {
		t.Fatalf("Sequence = %d; want 1", pkt.Sequence)
	}
}

func TestParseDropsWrongPayloadType(t *testing.T) {
	var frames [FramesPerPacket][]byte
	for i := range frames {
		frames[i] = make([]byte, GSMFrameSize)
	}
	raw, err := Build(1, 2, 3, false, frames)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Flip payload type bits (byte 1, low 7 bits) to something else.
	raw[4+1] = raw[4+1]&0x80 | 5
	if _, err := Parse(raw[4:]); err != ErrDropped {
		t.Fatalf("Parse with wrong payload type = %v; want ErrDropped", err)
	}
}
