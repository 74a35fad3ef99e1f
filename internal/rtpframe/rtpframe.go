// Package rtpframe builds and parses the RTP-like envelope the voice
// channel tunnels GSM frames inside. The media socket is TCP, so every
// datagram is additionally preceded by a 32-bit big-endian length prefix;
// this package owns both the length-prefix framing and the RTP payload
// layout built on top of github.com/pion/rtp.
package rtpframe

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pion/rtp"
)

const (
	// PayloadType is the fixed RTP payload type for GSM voice datagrams.
	PayloadType = 3
	// GSMFrameSize is the encoded size of one GSM 06.10 frame.
	GSMFrameSize = 33
	// FramesPerPacket is the number of GSM frames bundled per datagram.
	FramesPerPacket = 4
	// UIDTrailerSize is the trailing UID-repeated field appended after the
	// GSM frames.
	UIDTrailerSize = 4
	// PayloadSize is the total RTP payload: 4*33 GSM bytes + 4-byte UID trailer.
	PayloadSize = FramesPerPacket*GSMFrameSize + UIDTrailerSize
	// DatagramSize is PayloadSize plus the fixed 12-byte RTP header (no
	// CSRC entries on outbound packets).
	DatagramSize = 12 + PayloadSize
)

// Packet is a decoded voice datagram.
type Packet struct {
	Marker     bool
	Sequence   uint16
	Timestamp  uint32
	SSRC       uint32 // the speaker's UID
	CSRC       []uint32
	GSMFrames  [FramesPerPacket][]byte
	UIDTrailer uint32
}

// Build constructs the wire bytes for an outbound voice datagram: a 32-bit
// length prefix, then the RTP header, then exactly FramesPerPacket GSM
// frames followed by the 4-byte UID trailer. Every frame in gsmFrames must
// be exactly GSMFrameSize bytes.
func Build(seq uint16, timestamp, ssrc uint32, marker bool, gsmFrames [FramesPerPacket][]byte) ([]byte, error) {
	payload := make([]byte, 0, PayloadSize)
	for i, f := range gsmFrames {
		if len(f) != GSMFrameSize {
			return nil, fmt.Errorf("rtpframe: frame %d is %d bytes, want %d", i, len(f), GSMFrameSize)
		}
		payload = append(payload, f...)
	}
	var trailer [UIDTrailerSize]byte
	binary.BigEndian.PutUint32(trailer[:], ssrc)
	payload = append(payload, trailer[:]...)

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Padding:        false,
			Extension:      false,
			Marker:         marker,
			PayloadType:    PayloadType,
			SequenceNumber: seq,
			Timestamp:      timestamp,
			SSRC:           ssrc,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("rtpframe: marshal: %w", err)
	}

	out := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(out[:4], uint32(len(raw)))
	copy(out[4:], raw)
	return out, nil
}

// ErrDropped is returned by Parse (and ReadOne) for a syntactically valid
// datagram that nonetheless fails the payload_type/length validation §4.C5
// requires; callers should drop the packet and continue, not tear down the
// connection.
var ErrDropped = fmt.Errorf("rtpframe: dropped (bad payload type or short payload)")

// Parse decodes the RTP header and payload from raw bytes (without the
// length prefix, which ReadOne strips before calling this).
func Parse(raw []byte) (Packet, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return Packet{}, fmt.Errorf("rtpframe: unmarshal: %w", err)
	}
	if pkt.PayloadType != PayloadType || len(pkt.Payload) < PayloadSize {
		return Packet{}, ErrDropped
	}
	out := Packet{
		Marker:    pkt.Marker,
		Sequence:  pkt.SequenceNumber,
		Timestamp: pkt.Timestamp,
		SSRC:      pkt.SSRC,
		CSRC:      pkt.CSRC,
	}
	for i := 0; i < FramesPerPacket; i++ {
		start := i * GSMFrameSize
		out.GSMFrames[i] = pkt.Payload[start : start+GSMFrameSize]
	}
	out.UIDTrailer = binary.BigEndian.Uint32(pkt.Payload[FramesPerPacket*GSMFrameSize:])
	return out, nil
}

// ReadOne reads one length-prefixed datagram from r and parses it.
func ReadOne(r io.Reader) (Packet, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Packet{}, fmt.Errorf("rtpframe: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Packet{}, fmt.Errorf("rtpframe: read datagram: %w", err)
	}
	return Parse(raw)
}
