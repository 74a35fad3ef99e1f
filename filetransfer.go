package icewire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/icewire-project/icewire/internal/wire"
)

// TransferDirection is the direction of a FileTransfer.
type TransferDirection int

const (
	TransferSend TransferDirection = iota
	TransferReceive
)

// TransferPhase is a FileTransfer's state machine position (spec.md §3).
type TransferPhase int

const (
	PhaseConnecting TransferPhase = iota
	PhaseIntro
	PhaseAuth
	PhaseStreaming
	PhaseComplete
	PhaseFailed
)

// FileTransfer is one out-of-band file send or receive (spec.md §3, §4.C10).
type FileTransfer struct {
	ID        uint32
	Direction TransferDirection
	PeerUID   uint32
	PeerNick  string
	Filename  string
	Size      uint64
	Phase     TransferPhase

	// Dest receives streamed bytes for a receive transfer; Src supplies
	// them for a send transfer. SendFile sets Src. No exported call sets
	// Dest, and a receive transfer with a nil Dest reads the streamed bytes
	// and discards them.
	Dest io.Writer
	Src  io.Reader

	transferred uint64
}

func (s *Session) transfer(id uint32) *FileTransfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		t = &FileTransfer{ID: id}
		s.transfers[id] = t
	}
	return t
}

// handleFileXferRequest decodes FILE_XFER_REQUEST(id, uid, name) — step
// zero of spec.md's concrete scenario 6. The caller decides accept/refuse
// via AcceptFileTransfer/RefuseFileTransfer.
func (s *Session) handleFileXferRequest(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("xfer.request", err)
	}
	uid, err := r.U32()
	if err != nil {
		return protocolErr("xfer.request", err)
	}
	name, _ := r.PString()

	t := s.transfer(id)
	t.Direction = TransferReceive
	t.PeerUID = uid
	t.Filename = string(name)
	t.Phase = PhaseConnecting

	s.cb.systemMessage(0, fmt.Sprintf("incoming file %q from %d", t.Filename, uid))
	return nil
}

// AcceptFileTransfer sends FILE_XFER_RECV_INIT, accepting transfer id.
func (s *Session) AcceptFileTransfer(id uint32) error {
	w := wire.NewWriter(4)
	w.U32(id)
	return s.send(OpFileXferRecvInit, w.Bytes())
}

// RefuseFileTransfer sends FILE_XFER_REFUSED for id.
func (s *Session) RefuseFileTransfer(id uint32) error {
	t := s.transfer(id)
	t.Phase = PhaseFailed
	w := wire.NewWriter(4)
	w.U32(id)
	return s.send(OpFileXferRefused, w.Bytes())
}

// SendFile initiates an outbound transfer: FILE_XFER_SEND_INIT carries the
// peer uid and a "C:\<filename>" path (paltalk-core.c:269-276). The server
// replies with FILE_XFER_ACCEPTED, completed by handleFileXferAccepted,
// which dials the out-of-band endpoint and runs the sender's side of the
// handshake, streaming from src.
func (s *Session) SendFile(peerUID uint32, filename string, size uint64, src io.Reader) error {
	t := &FileTransfer{
		Direction: TransferSend,
		PeerUID:   peerUID,
		Filename:  filename,
		Size:      size,
		Src:       src,
		Phase:     PhaseConnecting,
	}
	s.mu.Lock()
	s.pendingSends[peerUID] = t
	s.mu.Unlock()

	path := "C:\\" + filename
	w := wire.NewWriter(4 + len(path))
	w.U32(peerUID)
	w.Raw([]byte(path))
	return s.send(OpFileXferSendInit, w.Bytes())
}

// handleFileXferAccepted decodes FILE_XFER_ACCEPTED(id, ip, port) and runs
// the out-of-band handshake described in spec.md §4.C10: a receive transfer
// (already registered by handleFileXferRequest) reads the stream into
// FileTransfer.Dest; a send transfer (registered by SendFile, re-keyed here
// from pendingSends to id) streams FileTransfer.Src to the peer.
func (s *Session) handleFileXferAccepted(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("xfer.accepted", err)
	}
	ip, err := r.PString()
	if err != nil {
		return protocolErr("xfer.accepted", err)
	}
	port, err := r.U16()
	if err != nil {
		return protocolErr("xfer.accepted", err)
	}
	addr := fmt.Sprintf("%s:%d", ip, port)

	s.mu.Lock()
	_, isReceive := s.transfers[id]
	var send *FileTransfer
	if !isReceive {
		for peer, t := range s.pendingSends {
			send = t
			delete(s.pendingSends, peer)
			break
		}
		if send != nil {
			s.transfers[id] = send
			send.ID = id
		}
	}
	s.mu.Unlock()

	go func() {
		var err error
		if isReceive {
			err = s.runFileTransfer(id, addr)
		} else if send != nil {
			err = s.runFileTransferSend(send, addr)
		} else {
			err = transferErr("xfer.accepted", fmt.Errorf("transfer %d: no matching request or pending send", id))
		}
		if err != nil {
			s.cb.reportError(err)
		}
	}()
	return nil
}

func (s *Session) handleFileXferRefused(body []byte) error {
	r := wire.NewReader(body)
	id, _ := r.U32()
	t := s.transfer(id)
	t.Phase = PhaseFailed
	s.cb.systemMessage(0, fmt.Sprintf("transfer %d refused", id))
	return nil
}

func (s *Session) handleFileXferError(body []byte) error {
	r := wire.NewReader(body)
	id, _ := r.U32()
	t := s.transfer(id)
	t.Phase = PhaseFailed
	return transferErr("xfer.error", fmt.Errorf("transfer %d", id))
}

// runFileTransfer drives the literal textual handshake of spec.md §4.C10:
// CONNECT/OK, INTRO, AUTH/OK, SEND, then raw byte streaming until
// bytes_transferred == size, writing received bytes to t.Dest. See
// runFileTransferSend for the reverse-roles outbound path.
func (s *Session) runFileTransfer(id uint32, addr string) error {
	t := s.transfer(id)
	t.Phase = PhaseConnecting

	conn, err := s.dialer.DialContext(context.Background(), addr)
	if err != nil {
		return transferErr("xfer.connect", err)
	}
	defer conn.Close()

	return driveFileTransfer(conn, t, s.uid)
}

// runFileTransferSend dials the out-of-band endpoint and drives the
// sender's side of the handshake for an outbound transfer.
func (s *Session) runFileTransferSend(t *FileTransfer, addr string) error {
	t.Phase = PhaseConnecting

	conn, err := s.dialer.DialContext(context.Background(), addr)
	if err != nil {
		return transferErr("xfer.connect", err)
	}
	defer conn.Close()

	return driveFileTransferSend(conn, t, s.uid, s.nick)
}

// driveFileTransfer runs the literal textual handshake and byte stream
// against an already-connected conn, independent of dialing, so it can be
// exercised with a net.Pipe-backed fake peer in tests.
func driveFileTransfer(conn io.ReadWriter, t *FileTransfer, localUID uint32) error {
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil || line != "CONNECT\tOK\n" {
		return transferErr("xfer.handshake", fmt.Errorf("unexpected banner %q", line))
	}

	t.Phase = PhaseIntro
	if _, err := fmt.Fprintf(conn, "INTRO\t%d\t%d\n", localUID, t.ID); err != nil {
		return transferErr("xfer.handshake", err)
	}

	line, err = r.ReadString('\n')
	if err != nil || line != "AUTH\tOK\n" {
		return transferErr("xfer.handshake", fmt.Errorf("unexpected auth reply %q", line))
	}

	t.Phase = PhaseAuth
	line, err = r.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "SEND\t") {
		return transferErr("xfer.handshake", fmt.Errorf("unexpected send line %q", line))
	}
	fields := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	if len(fields) != 6 {
		return transferErr("xfer.handshake", fmt.Errorf("malformed SEND line %q", line))
	}
	size, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return transferErr("xfer.handshake", fmt.Errorf("bad size in SEND line %q", line))
	}
	t.PeerNick = fields[3]
	t.Filename = fields[5]
	t.Size = size

	t.Phase = PhaseStreaming
	buf := make([]byte, 32*1024)
	var n uint64
	for n < size {
		want := size - n
		if uint64(len(buf)) < want {
			want = uint64(len(buf))
		}
		read, err := io.ReadFull(r, buf[:want])
		n += uint64(read)
		t.transferred = n
		if err != nil {
			t.Phase = PhaseFailed
			return transferErr("xfer.stream", err)
		}
		if t.Dest != nil {
			if _, err := t.Dest.Write(buf[:read]); err != nil {
				t.Phase = PhaseFailed
				return transferErr("xfer.stream", err)
			}
		}
	}
	t.Phase = PhaseComplete
	return nil
}

// driveFileTransferSend runs the sender's side of spec.md §4.C10's
// handshake against an already-connected conn: await CONNECT/OK, send
// INTRO, await AUTH/OK, send the SEND line, then stream t.Src until t.Size
// bytes have gone out. Independent of dialing, so it can be exercised with
// a net.Pipe-backed fake peer in tests, mirroring driveFileTransfer.
func driveFileTransferSend(conn io.ReadWriter, t *FileTransfer, localUID uint32, localNick string) error {
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil || line != "CONNECT\tOK\n" {
		return transferErr("xfer.handshake", fmt.Errorf("unexpected banner %q", line))
	}

	t.Phase = PhaseIntro
	if _, err := fmt.Fprintf(conn, "INTRO\t%d\t%d\n", localUID, t.ID); err != nil {
		return transferErr("xfer.handshake", err)
	}

	line, err = r.ReadString('\n')
	if err != nil || line != "AUTH\tOK\n" {
		return transferErr("xfer.handshake", fmt.Errorf("unexpected auth reply %q", line))
	}

	t.Phase = PhaseAuth
	sendLine := fmt.Sprintf("SEND\t%d\t%d\t%s\t%d\t%s\n", localUID, t.PeerUID, localNick, t.Size, t.Filename)
	if _, err := fmt.Fprint(conn, sendLine); err != nil {
		return transferErr("xfer.handshake", err)
	}

	t.Phase = PhaseStreaming
	if t.Src == nil {
		t.Phase = PhaseFailed
		return transferErr("xfer.stream", fmt.Errorf("transfer %d: no source reader", t.ID))
	}
	buf := make([]byte, 32*1024)
	var n uint64
	for n < t.Size {
		want := t.Size - n
		if uint64(len(buf)) < want {
			want = uint64(len(buf))
		}
		read, err := t.Src.Read(buf[:want])
		if read > 0 {
			if _, werr := conn.Write(buf[:read]); werr != nil {
				t.Phase = PhaseFailed
				return transferErr("xfer.stream", werr)
			}
			n += uint64(read)
			t.transferred = n
		}
		if err != nil {
			if err == io.EOF && n == t.Size {
				break
			}
			t.Phase = PhaseFailed
			return transferErr("xfer.stream", err)
		}
	}
	t.Phase = PhaseComplete
	return nil
}
