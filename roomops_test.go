package icewire

import (
	"bytes"
	"net"
	"testing"

	"github.com/icewire-project/icewire/internal/config"
)

func newTestSessionWithPipe(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	s := NewSession(config.Config{}, nil)
	s.conn = client
	t.Cleanup(func() { client.Close(); server.Close() })
	return s, server
}

func readFrameFrom(t *testing.T, conn net.Conn) Frame {
	t.Helper()
	done := make(chan Frame, 1)
	errc := make(chan error, 1)
	go func() {
		fr, err := readFrame(conn)
		if err != nil {
			errc <- err
			return
		}
		done <- fr
	}()
	select {
	case fr := <-done:
		return fr
	case err := <-errc:
		t.Fatalf("readFrame: %v", err)
	}
	return Frame{}
}

func TestJoinRoomWireBody(t *testing.T) {
	// spec.md §8 concrete scenario 3, plain-room variant: body =
	// {id_be=42, 00 00 00 00 08 2A} — no join-kind flag byte on the wire.
	s, server := newTestSessionWithPipe(t)
	go func() {
		if err := s.JoinRoom(42); err != nil {
			t.Errorf("JoinRoom: %v", err)
		}
	}()

	fr := readFrameFrom(t, server)
	if fr.Opcode != OpRoomJoin {
		t.Fatalf("Opcode = %d; want OpRoomJoin", fr.Opcode)
	}
	want := []byte{0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x08, 0x2A}
	if !bytes.Equal(fr.Body, want) {
		t.Fatalf("body = % x; want % x", fr.Body, want)
	}
}

func TestJoinLockedRoomWireBody(t *testing.T) {
	// spec.md §8 concrete scenario 3: ROOM_JOIN body = {id_be=42,
	// 00 00 00 00 08 2A, "secret"} for a locked-room join.
	s, server := newTestSessionWithPipe(t)
	go func() {
		if err := s.JoinLockedRoom(42, "secret"); err != nil {
			t.Errorf("JoinLockedRoom: %v", err)
		}
	}()

	fr := readFrameFrom(t, server)
	if fr.Opcode != OpRoomJoin {
		t.Fatalf("Opcode = %d; want OpRoomJoin", fr.Opcode)
	}
	want := append([]byte{0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x08, 0x2A}, "secret"...)
	if !bytes.Equal(fr.Body, want) {
		t.Fatalf("body = % x; want % x", fr.Body, want)
	}
}

func TestJoinRoomAsAdminWireBody(t *testing.T) {
	// paltalk-core.c:453-459: owner uid, then admin_code (both 4-byte
	// big-endian), then the fixed 00 00 08 2A trailer.
	s, server := newTestSessionWithPipe(t)
	go func() {
		if err := s.JoinRoomAsAdmin(7, 99); err != nil {
			t.Errorf("JoinRoomAsAdmin: %v", err)
		}
	}()

	fr := readFrameFrom(t, server)
	if fr.Opcode != OpRoomJoinAsAdmin {
		t.Fatalf("Opcode = %d; want OpRoomJoinAsAdmin", fr.Opcode)
	}
	want := []byte{0x00, 0x00, 0x00, 0x07, 0x00, 0x00, 0x00, 0x63, 0x00, 0x00, 0x08, 0x2A}
	if !bytes.Equal(fr.Body, want) {
		t.Fatalf("body = % x; want % x", fr.Body, want)
	}
}
