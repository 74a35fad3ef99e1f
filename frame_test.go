package icewire

import (
	"bytes"
	"testing"
)

func TestParseFrameScenario(t *testing.T) {
	// spec.md §8 concrete scenario 2.
	in := []byte{0xFF, 0xEC, 0x00, 0x53, 0x00, 0x04, 0x00, 0x00, 0x00, 0x1E}
	fr, err := ParseFrame(in)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if fr.Opcode != OpIMOut {
		t.Fatalf("Opcode = %d; want %d (IM_OUT)", fr.Opcode, OpIMOut)
	}
	if len(fr.Body) != 4 {
		t.Fatalf("body length = %d; want 4", len(fr.Body))
	}
	want := []byte{0x00, 0x00, 0x00, 0x1E}
	if !bytes.Equal(fr.Body, want) {
		t.Fatalf("body = % x; want % x", fr.Body, want)
	}
}

func TestFrameSerializeRoundTrip(t *testing.T) {
	orig := Frame{Opcode: OpRoomJoin, Body: []byte("hello room")}
	wire := orig.Serialize()
	if len(wire) != frameHeaderLen+len(orig.Body) {
		t.Fatalf("serialized length = %d; want %d", len(wire), frameHeaderLen+len(orig.Body))
	}
	got, err := ParseFrame(wire)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got.Opcode != orig.Opcode || !bytes.Equal(got.Body, orig.Body) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, orig)
	}
}

func TestReadFrameStream(t *testing.T) {
	f1 := Frame{Opcode: OpHello, Body: nil}
	f2 := Frame{Opcode: OpIMIn, Body: []byte("hi")}
	buf := bytes.NewBuffer(nil)
	buf.Write(f1.Serialize())
	buf.Write(f2.Serialize())

	got1, err := readFrame(buf)
	if err != nil {
		t.Fatalf("readFrame 1: %v", err)
	}
	if got1.Opcode != OpHello || len(got1.Body) != 0 {
		t.Fatalf("frame 1 = %+v; want %+v", got1, f1)
	}
	got2, err := readFrame(buf)
	if err != nil {
		t.Fatalf("readFrame 2: %v", err)
	}
	if got2.Opcode != OpIMIn || string(got2.Body) != "hi" {
		t.Fatalf("frame 2 = %+v; want %+v", got2, f2)
	}
}
