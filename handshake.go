package icewire

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/icewire-project/icewire/internal/wire"
	"golang.org/x/sync/errgroup"
)

// fakeHardwareSerial stands in for the product's device-fingerprint field;
// the service never validates it, only that it is present.
const fakeHardwareSerial = "00000000"

// connectAndHandshake implements the five-step handshake of spec.md §4.C7:
// dial, await HELLO, resolve the UID (skipping the round trip if the
// cached config already has one), reconnect, send LYMERICK, then LOGIN
// once SERVER_KEY arrives. The two dials honor ctx; the frame reads that
// await HELLO, UIN_RESPONSE and SERVER_KEY block on the socket and do not
// observe ctx. golang.org/x/sync/errgroup wraps only the LOGIN send.
func (s *Session) connectAndHandshake(ctx context.Context, addr, username, password string) error {
	s.setState(StateConnecting)
	conn, err := s.dialer.DialContext(ctx, addr)
	if err != nil {
		return transportErr("handshake.dial", err)
	}
	s.conn = conn
	s.t = initPseudoTime(time.Now().Unix())

	if err := s.awaitHello(); err != nil {
		return err
	}

	if !s.cfg.HasCachedIdentity() {
		if err := s.resolveUID(ctx, addr, username); err != nil {
			return err
		}
	}

	// Reconnect with the known UID, per step 3.
	_ = s.conn.Close()
	conn, err = s.dialer.DialContext(ctx, addr)
	if err != nil {
		return transportErr("handshake.reconnect", err)
	}
	s.conn = conn
	s.t = initPseudoTime(time.Now().Unix())

	if err := s.awaitHello(); err != nil {
		return err
	}
	s.setState(StateHello)

	identity, t := encodeVariant0(fakeHardwareSerial, s.t)
	s.t = t
	if err := s.send(OpLymerick, []byte(identity)); err != nil {
		return err
	}

	s.setState(StateAwaitingKey)
	if err := s.awaitServerKey(); err != nil {
		return err
	}

	s.setState(StateAuthenticating)
	var g errgroup.Group
	g.Go(func() error { return s.sendLogin(username, password, addr) })
	if err := g.Wait(); err != nil {
		return authErr("handshake.login", err)
	}

	return nil
}

// awaitHello reads frames until HELLO arrives, dropping anything else (the
// connection is fresh, nothing else is expected on it yet).
func (s *Session) awaitHello() error {
	r := bufio.NewReader(s.conn)
	for {
		fr, err := readFrame(r)
		if err != nil {
			return err
		}
		if fr.Opcode == OpHello {
			return nil
		}
	}
}

// resolveUID sends GET_UIN and waits for UIN_RESPONSE, per step 2.
func (s *Session) resolveUID(ctx context.Context, addr, username string) error {
	if err := s.send(OpGetUIN, []byte(username)); err != nil {
		return err
	}
	r := bufio.NewReader(s.conn)
	for {
		fr, err := readFrame(r)
		if err != nil {
			return err
		}
		if fr.Opcode != OpUINResponse {
			continue
		}
		if len(fr.Body) < 4 {
			return protocolErr("handshake.uin_response", fmt.Errorf("short body"))
		}
		rd := wire.NewReader(fr.Body)
		uid, err := rd.U32()
		if err != nil {
			return protocolErr("handshake.uin_response", err)
		}
		nick, _ := rd.PString()
		s.uid = uid
		s.nick = string(nick)
		return nil
	}
}

// awaitServerKey reads frames until SERVER_KEY arrives, capturing its body
// as the session's obfuscation key.
func (s *Session) awaitServerKey() error {
	r := bufio.NewReader(s.conn)
	for {
		fr, err := readFrame(r)
		if err != nil {
			return err
		}
		if fr.Opcode == OpServerKey {
			s.serverKey = string(fr.Body)
			t, wierd := deriveWierd(s.t)
			s.t = t
			s.wierd = wierd
			return nil
		}
	}
}

// sendLogin implements step 4: LOGIN carries the obfuscated password
// (variant 1) and obfuscated client IP (variant 2), newline-separated,
// prefixed by the local UID.
func (s *Session) sendLogin(username, password, addr string) error {
	encPass, t, err := encodeVariant1(password, s.serverKey, s.t)
	if err != nil {
		return err
	}
	s.t = t

	host, _, _ := net.SplitHostPort(s.conn.LocalAddr().String())
	encIP, t, err := encodeVariant2(host, s.serverKey, s.t)
	if err != nil {
		return err
	}
	s.t = t

	w := wire.NewWriter(4 + len(encPass) + 1 + len(encIP))
	w.U32(s.uid)
	w.Raw([]byte(encPass))
	w.Raw([]byte("\n"))
	w.Raw([]byte(encIP))
	return s.send(OpLogin, w.Bytes())
}

// sendPostLoginSequence implements step 5: on the first BUDDY_STATUSCHANGE
// after LOGIN, send CHECKSUMS, VERSIONS, UIN_FONTDEPTH_ETC, VERSION_INFO in
// order. The session is set Online as soon as all four have been sent; no
// acknowledgement from the server is awaited.
func (s *Session) sendPostLoginSequence() error {
	var t pseudoTime
	var parts [6]string
	all := append(append([]string{}, checksums[:]...), "0")
	for i, c := range all {
		enc, nt, err := encodeVariant1(c, s.serverKey, s.t)
		if err != nil {
			return err
		}
		s.t = nt
		parts[i] = enc
		t = nt
	}
	_ = t
	w := wire.NewWriter(0)
	for i, p := range parts {
		if i > 0 {
			w.Raw([]byte("\n"))
		}
		w.Raw([]byte(p))
	}
	if err := s.send(OpChecksums, w.Bytes()); err != nil {
		return err
	}

	versionsEnc, nt := encodeVariant3("1.0", s.wierd, s.t)
	s.t = nt
	if err := s.send(OpVersions, []byte(versionsEnc)); err != nil {
		return err
	}

	fontDepth := make([]byte, 22)
	for i := range fontDepth {
		fontDepth[i] = byte('0' + (i % 7))
	}
	if err := s.send(OpUINFontDepthEtc, fontDepth); err != nil {
		return err
	}

	if err := s.send(OpVersionInfo, []byte(versionInfoGUID)); err != nil {
		return err
	}

	s.setState(StateOnline)
	return nil
}
