package icewire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log"
)

// frameHeaderLen is the fixed 6-byte header: opcode(i16), version(u16),
// body_length(u16).
const frameHeaderLen = 6

// Frame is one control-socket message: a 6-byte header followed by exactly
// body_length bytes.
type Frame struct {
	Opcode Opcode
	Body   []byte
}

// Serialize renders f as the wire bytes a peer's decoder would parse back
// into an equal Frame.
func (f Frame) Serialize() []byte {
	out := make([]byte, frameHeaderLen+len(f.Body))
	binary.BigEndian.PutUint16(out[0:2], uint16(f.Opcode))
	binary.BigEndian.PutUint16(out[2:4], protocolVersion)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(f.Body)))
	copy(out[frameHeaderLen:], f.Body)
	return out
}

// ParseFrame decodes a single frame from exactly frameHeaderLen+body_length
// bytes. It does not read from a stream; see readFrame for the streaming
// counterpart used by the dispatcher.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < frameHeaderLen {
		return Frame{}, protocolErr("frame.parse", fmt.Errorf("short header: %d bytes", len(b)))
	}
	opcode := Opcode(int16(binary.BigEndian.Uint16(b[0:2])))
	bodyLen := binary.BigEndian.Uint16(b[4:6])
	if len(b) < frameHeaderLen+int(bodyLen) {
		return Frame{}, protocolErr("frame.parse", fmt.Errorf("short body: want %d, have %d", bodyLen, len(b)-frameHeaderLen))
	}
	body := make([]byte, bodyLen)
	copy(body, b[frameHeaderLen:frameHeaderLen+int(bodyLen)])
	return Frame{Opcode: opcode, Body: body}, nil
}

// readFrame reads exactly one frame from r, looping on short reads the way
// a TCP stream requires: the header first, then the declared body length.
func readFrame(r io.Reader) (Frame, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, transportErr("frame.read_header", err)
	}
	opcode := Opcode(int16(binary.BigEndian.Uint16(hdr[0:2])))
	bodyLen := binary.BigEndian.Uint16(hdr[4:6])
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, transportErr("frame.read_body", err)
		}
	}
	return Frame{Opcode: opcode, Body: body}, nil
}

// dispatchLoop owns the control socket's read side: it reads frames until
// the connection closes or a fatal transport error occurs, routing each to
// the session's dispatch table. It runs on the session's single dispatcher
// goroutine, matching spec.md §5: "Frames from the control socket are
// processed strictly in arrival order."
func (s *Session) dispatchLoop(r io.Reader) error {
	for {
		fr, err := readFrame(r)
		if err != nil {
			return err
		}
		s.dispatch(fr)
	}
}

func (s *Session) dispatch(fr Frame) {
	h, ok := s.handlers[fr.Opcode]
	if !ok {
		logUnhandled(fr)
		return
	}
	if err := h(s, fr.Body); err != nil {
		log.Printf("[dispatch] opcode %d: %v", fr.Opcode, err)
	}
}

// logUnhandled preserves the source's development affordance: unknown
// opcodes are hex-dumped rather than silently dropped.
func logUnhandled(fr Frame) {
	log.Printf("[dispatch] unhandled opcode %d (%d bytes): %s", fr.Opcode, len(fr.Body), hex.EncodeToString(fr.Body))
}
