package icewire

import (
	"strconv"
	"strings"

	"github.com/icewire-project/icewire/internal/wire"
)

// buildDispatchTable wires every inbound opcode this client understands to
// its handler, per spec.md §9 "Opcode dispatch": a dense table keyed by
// signed opcode, each entry taking (session, body). Opcodes with no
// registered entry fall through to the diagnostic hex-dump handler in
// dispatch() (frame.go).
func (s *Session) buildDispatchTable() dispatchTable {
	t := make(dispatchTable)

	t[OpBuddyStatusChg] = (*Session).handleBuddyStatusChange
	t[OpIMIn] = func(s *Session, body []byte) error { return s.handleIMIn(body) }
	t[OpRoomJoined] = (*Session).handleRoomJoined
	t[OpRoomUserJoined] = (*Session).handleRoomUserJoined
	t[OpRoomUserLeft] = (*Session).handleRoomUserLeft
	t[OpRoomUserlist] = (*Session).handleRoomUserlist
	t[OpRoomMediaServer] = (*Session).handleRoomMediaServer
	t[OpRoomClosed] = (*Session).handleRoomClosed
	t[OpRoomMessageIn] = (*Session).handleRoomMessageIn
	t[OpRoomTopic] = (*Session).handleRoomTopic
	t[OpRoomRedDotOn] = func(s *Session, b []byte) error { return s.handleRoomRedDot(b, true) }
	t[OpRoomRedDotOff] = func(s *Session, b []byte) error { return s.handleRoomRedDot(b, false) }
	t[OpRoomMicReqOn] = func(s *Session, b []byte) error { return s.handleRoomMicReq(b, true) }
	t[OpRoomMicReqOff] = func(s *Session, b []byte) error { return s.handleRoomMicReq(b, false) }
	t[OpRoomMicGivenRem] = (*Session).handleRoomMicGivenRemoved
	t[OpRoomAdminInfo] = (*Session).handleRoomAdminInfo
	t[OpSearchResponse] = (*Session).handleSearchResponse
	t[OpSearchError] = (*Session).handleSearchError
	t[OpFileXferRequest] = (*Session).handleFileXferRequest
	t[OpFileXferAccepted] = (*Session).handleFileXferAccepted
	t[OpFileXferRefused] = (*Session).handleFileXferRefused
	t[OpFileXferError] = (*Session).handleFileXferError
	t[OpServerError] = (*Session).handleServerError
	t[OpMaintenanceKick] = (*Session).handleMaintenanceKick

	return t
}

// handleBuddyStatusChange updates the roster and, on the first occurrence
// after LOGIN, fires the post-login CHECKSUMS/VERSIONS/... sequence
// (spec.md §4.C7 step 5).
func (s *Session) handleBuddyStatusChange(body []byte) error {
	r := wire.NewReader(body)
	uid, err := r.U32()
	if err != nil {
		return protocolErr("buddy.status", err)
	}
	presence := PresenceOffline
	if b, err := r.Bytes(1); err == nil {
		presence = Presence(b[0])
	}
	nick, _ := r.PString()

	s.mu.Lock()
	b, ok := s.buddies[uid]
	if !ok {
		b = &Buddy{UID: uid}
		s.buddies[uid] = b
	}
	b.Nickname = string(nick)
	b.Presence = presence
	firstSince := s.State() == StateAuthenticating
	s.mu.Unlock()

	if s.cb != nil && s.cb.OnBuddyPresence != nil {
		s.cb.OnBuddyPresence(*b)
	}

	if firstSince {
		return s.sendPostLoginSequence()
	}
	return nil
}

func (s *Session) handleRoomJoined(body []byte) error {
	id, topic, err := parseRoomIDAndString(body)
	if err != nil {
		return err
	}
	s.room(id).markJoined(topic)
	return nil
}

func (s *Session) handleRoomUserJoined(body []byte) error {
	id, p, err := parseParticipantFrame(body)
	if err != nil {
		return err
	}
	s.room(id).upsertParticipant(p)
	return nil
}

func (s *Session) handleRoomUserLeft(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.user_left", err)
	}
	uid, err := r.U32()
	if err != nil {
		return protocolErr("room.user_left", err)
	}
	s.room(id).removeParticipant(uid)
	return nil
}

// handleRoomUserlist decodes the "uid=...\nnickname=...\nadmin=...\n
// req=...\npub=..." records, separated by the 0xC8 record separator
// (spec.md §4.C7, §6).
func (s *Session) handleRoomUserlist(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.userlist", err)
	}
	rest := body[r.Offset():]
	room := s.room(id)
	for _, rec := range splitBytes(rest, 0xC8) {
		p := parseParticipantRecord(string(rec))
		room.upsertParticipant(p)
	}
	return nil
}

func parseParticipantRecord(rec string) Participant {
	var p Participant
	for _, f := range strings.Split(rec, "\n") {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "uid":
			n, _ := strconv.ParseUint(kv[1], 10, 32)
			p.UID = uint32(n)
		case "nickname":
			p.Nickname = kv[1]
		case "admin":
			p.Admin = kv[1] == "1"
		case "req":
			p.RequestsMic = kv[1] == "1"
		case "pub":
			p.VideoOn = kv[1] == "1"
		}
	}
	return p
}

func parseParticipantFrame(body []byte) (roomID uint32, p Participant, err error) {
	r := wire.NewReader(body)
	roomID, err = r.U32()
	if err != nil {
		return 0, Participant{}, protocolErr("room.user_joined", err)
	}
	rest, err := r.PString()
	if err != nil {
		return 0, Participant{}, protocolErr("room.user_joined", err)
	}
	return roomID, parseParticipantRecord(string(rest)), nil
}

func parseRoomIDAndString(body []byte) (uint32, string, error) {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return 0, "", protocolErr("room.parse", err)
	}
	return id, string(body[r.Offset():]), nil
}

func (s *Session) handleRoomMediaServer(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.media_server", err)
	}
	ipBytes, err := r.PString()
	if err != nil {
		return protocolErr("room.media_server", err)
	}
	port, err := r.U16()
	if err != nil {
		return protocolErr("room.media_server", err)
	}
	return s.connectVoice(id, string(ipBytes), port)
}

func (s *Session) handleRoomClosed(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.closed", err)
	}
	s.mu.Lock()
	room, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if ok {
		room.close()
	}
	return nil
}

func (s *Session) handleRoomMessageIn(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.message", err)
	}
	nick, err := r.PString()
	if err != nil {
		return protocolErr("room.message", err)
	}
	text := FromPseudoHTML(SalvageUTF8(body[r.Offset():]))
	if s.cb != nil && s.cb.OnRoomMessage != nil {
		s.cb.OnRoomMessage(id, string(nick), text)
	}
	return nil
}

func (s *Session) handleRoomTopic(body []byte) error {
	id, topic, err := parseRoomIDAndString(body)
	if err != nil {
		return err
	}
	r := s.room(id)
	r.mu.Lock()
	r.Topic = topic
	r.mu.Unlock()
	return nil
}

func (s *Session) handleRoomRedDot(body []byte, on bool) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.reddot", err)
	}
	uid, err := r.U32()
	if err != nil {
		return protocolErr("room.reddot", err)
	}
	room := s.room(id)
	room.mu.Lock()
	if p, ok := room.Participants[uid]; ok {
		p.RedDot = on
	}
	room.mu.Unlock()
	return nil
}

func (s *Session) handleRoomMicReq(body []byte, on bool) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.mic_request", err)
	}
	uid, err := r.U32()
	if err != nil {
		return protocolErr("room.mic_request", err)
	}
	room := s.room(id)
	room.mu.Lock()
	if p, ok := room.Participants[uid]; ok {
		p.RequestsMic = on
	}
	room.mu.Unlock()
	return nil
}

func (s *Session) handleRoomMicGivenRemoved(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.mic_given_removed", err)
	}
	room := s.room(id)
	room.mu.Lock()
	room.MikeRestricted = !room.MikeRestricted
	room.mu.Unlock()
	return nil
}

func (s *Session) handleRoomAdminInfo(body []byte) error {
	r := wire.NewReader(body)
	id, err := r.U32()
	if err != nil {
		return protocolErr("room.admin_info", err)
	}
	rest := body[r.Offset():]
	room := s.room(id)
	room.mu.Lock()
	defer room.mu.Unlock()
	for _, rec := range splitBytes(rest, 0xC8) {
		fields := strings.SplitN(string(rec), "=", 2)
		if len(fields) != 2 {
			continue
		}
		n, _ := strconv.ParseUint(fields[1], 10, 32)
		switch fields[0] {
		case "ban":
			room.Banned[uint32(n)] = true
		case "bounce":
			room.Bounced[uint32(n)] = true
		case "reddot_text":
			room.RedDotAffectsText = fields[1] == "1"
		case "reddot_video":
			room.RedDotAffectsVideo = fields[1] == "1"
		}
	}
	return nil
}

func (s *Session) handleSearchResponse(body []byte) error {
	results := parseSearchResponse(body)
	if s.cb != nil && s.cb.OnSearchResult != nil {
		s.cb.OnSearchResult(results)
	}
	return nil
}

// handleSearchError decodes SEARCH_ERROR, which shares DO_SEARCH's wire
// value -69 (spec.md §9 Open Question; see OpSearchQuery/OpSearchError in
// opcodes.go) but only ever arrives server->client, so registering it here
// cannot collide with the outbound query.
func (s *Session) handleSearchError(body []byte) error {
	err := protocolErr("search.error", errStr(string(body)))
	if s.cb != nil && s.cb.OnSearchError != nil {
		s.cb.OnSearchError(err)
	}
	return nil
}

func (s *Session) handleServerError(body []byte) error {
	return protocolErr("server.error", errStr(string(body)))
}

func (s *Session) handleMaintenanceKick(body []byte) error {
	s.cb.systemMessage(0, "disconnected for maintenance")
	return s.Close()
}
