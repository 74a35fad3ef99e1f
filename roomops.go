package icewire

import (
	"fmt"

	"github.com/icewire-project/icewire/internal/wire"
)

// allTarget is the sentinel UID meaning "all" for ban/bounce/reddot
// commands, per spec.md §4.C7.
const allTarget uint32 = 0xFFFFFFFF

// room returns the Room for id, creating it in the Requested state if this
// is the first reference (e.g. a join in flight).
func (s *Session) room(id uint32) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		r = newRoom(s, id)
		s.rooms[id] = r
	}
	return r
}

// roomJoinMagic is the fixed 6-byte trailer PACKET_ROOM_JOIN always carries
// after the room id, plain or locked alike (paltalk-core.c:461-476); only
// the frame's length field (plain 0x000A vs htons(strlen(password)+10))
// distinguishes the two cases, never a flag byte.
var roomJoinMagic = [6]byte{0x00, 0x00, 0x00, 0x00, 0x08, 0x2A}

// roomJoinAsAdminMagic is PACKET_ROOM_JOIN_AS_ADMIN's fixed 4-byte trailer
// after the admin_code integer (paltalk-core.c:453-459).
var roomJoinAsAdminMagic = [4]byte{0x00, 0x00, 0x08, 0x2A}

// JoinRoom sends a plain-room join request (spec.md §4.C7).
func (s *Session) JoinRoom(id uint32) error {
	s.room(id)
	w := wire.NewWriter(4 + len(roomJoinMagic))
	w.U32(id)
	w.Raw(roomJoinMagic[:])
	return s.send(OpRoomJoin, w.Bytes())
}

// JoinLockedRoom sends a password-carrying join request for a room flagged
// "l" in ROOM_LIST.
func (s *Session) JoinLockedRoom(id uint32, password string) error {
	s.room(id)
	w := wire.NewWriter(4 + len(roomJoinMagic) + len(password))
	w.U32(id)
	w.Raw(roomJoinMagic[:])
	w.Raw([]byte(password))
	return s.send(OpRoomJoin, w.Bytes())
}

// JoinRoomAsAdmin sends an admin-code join request: owner uid, then the
// 4-byte numeric admin_code, then the fixed magic trailer
// (paltalk-core.c:453-459).
func (s *Session) JoinRoomAsAdmin(ownerUID uint32, adminCode uint32) error {
	w := wire.NewWriter(4 + 4 + len(roomJoinAsAdminMagic))
	w.U32(ownerUID)
	w.U32(adminCode)
	w.Raw(roomJoinAsAdminMagic[:])
	return s.send(OpRoomJoinAsAdmin, w.Bytes())
}

// LeaveRoom sends ROOM_LEAVE and marks the local room Left.
func (s *Session) LeaveRoom(id uint32) error {
	s.mu.Lock()
	r, ok := s.rooms[id]
	s.mu.Unlock()
	if ok {
		r.mu.Lock()
		r.State = RoomLeft
		r.mu.Unlock()
	}
	w := wire.NewWriter(4)
	w.U32(id)
	return s.send(OpRoomLeave, w.Bytes())
}

func (s *Session) sendRoomGetAdminInfo(roomID uint32) error {
	w := wire.NewWriter(4)
	w.U32(roomID)
	return s.send(OpRoomGetAdminInfo, w.Bytes())
}

// banUnban sends OpRoomBanUser/OpRoomUnbanUser for target (or allTarget).
func (s *Session) banUnban(roomID uint32, target uint32, ban bool) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.ban"); err != nil {
		return err
	}
	if !ban {
		if err := r.requireNonEmptyBanlist("room.unban"); err != nil {
			return err
		}
	}
	op := OpRoomBanUser
	if !ban {
		op = OpRoomUnbanUser
	}
	w := wire.NewWriter(8)
	w.U32(roomID)
	w.U32(target)
	return s.send(op, w.Bytes())
}

// Ban sends ROOM_BAN_USER for target (or allTarget via BanAll).
func (s *Session) Ban(roomID, target uint32) error { return s.banUnban(roomID, target, true) }

// Unban sends ROOM_UNBAN_USER for target.
func (s *Session) Unban(roomID, target uint32) error { return s.banUnban(roomID, target, false) }

// BanAll bans every current participant.
func (s *Session) BanAll(roomID uint32) error { return s.banUnban(roomID, allTarget, true) }

// bounceUnbounce sends OpRoomBounceUser/OpRoomUnbounceUser, and for a
// bounce additionally sends a follow-up ROOM_BOUNCE_REASON frame prefixed
// "BR: " per spec.md §4.C7.
func (s *Session) bounceUnbounce(roomID, target uint32, bounce bool, reason string) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.bounce"); err != nil {
		return err
	}
	if !bounce {
		r.mu.Lock()
		empty := len(r.Bounced) == 0
		r.mu.Unlock()
		if empty {
			return roomErr("room.unbounce", fmt.Errorf("room %d: bouncelist is empty", roomID))
		}
	}
	op := OpRoomBounceUser
	if !bounce {
		op = OpRoomUnbounceUser
	}
	w := wire.NewWriter(8)
	w.U32(roomID)
	w.U32(target)
	if err := s.send(op, w.Bytes()); err != nil {
		return err
	}
	if bounce {
		return s.send(OpRoomBounceReason, []byte("BR: "+reason))
	}
	return nil
}

// Bounce sends ROOM_BOUNCE_USER plus its reason follow-up.
func (s *Session) Bounce(roomID, target uint32, reason string) error {
	return s.bounceUnbounce(roomID, target, true, reason)
}

// Unbounce sends ROOM_UNBOUNCE_USER.
func (s *Session) Unbounce(roomID, target uint32) error {
	return s.bounceUnbounce(roomID, target, false, "")
}

// redDot sends ROOM_USER_RED_DOT_ON/OFF.
func (s *Session) redDot(roomID, target uint32, on bool) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.reddot"); err != nil {
		return err
	}
	op := OpRoomRedDotOn
	if !on {
		op = OpRoomRedDotOff
	}
	w := wire.NewWriter(8)
	w.U32(roomID)
	w.U32(target)
	return s.send(op, w.Bytes())
}

// RedDot applies a reddot to target (or allTarget).
func (s *Session) RedDot(roomID, target uint32) error { return s.redDot(roomID, target, true) }

// UnRedDot removes a reddot from target.
func (s *Session) UnRedDot(roomID, target uint32) error { return s.redDot(roomID, target, false) }

// RemoveAllHands sends ROOM_REMOVE_ALL_HANDS (/clearhands).
func (s *Session) RemoveAllHands(roomID uint32) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.clearhands"); err != nil {
		return err
	}
	w := wire.NewWriter(4)
	w.U32(roomID)
	return s.send(OpRoomRemoveAllHand, w.Bytes())
}

// SetTopic sends ROOM_SET_TOPIC (admin only, mirrors the other moderation
// commands' local precondition).
func (s *Session) SetTopic(roomID uint32, topic string) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.set_topic"); err != nil {
		return err
	}
	w := wire.NewWriter(4 + len(topic))
	w.U32(roomID)
	w.Raw([]byte(topic))
	return s.send(OpRoomSetTopic, w.Bytes())
}

// SendRoomMessage sends a room-scoped chat message, translated to
// pseudo-HTML.
func (s *Session) SendRoomMessage(roomID uint32, body string) error {
	encoded := ToPseudoHTML(body)
	w := wire.NewWriter(4 + len(encoded))
	w.U32(roomID)
	w.Raw([]byte(encoded))
	return s.send(OpRoomMessageOut, w.Bytes())
}

// RequestMic sends ROOM_REQUEST_MIC when requesting is true and
// ROOM_UNREQUEST_MIC otherwise. The /reqmic toggle of mic_requested lives
// in ExecuteSlashCommand.
func (s *Session) RequestMic(roomID uint32, requesting bool) error {
	w := wire.NewWriter(4)
	w.U32(roomID)
	op := OpRoomRequestMic
	if !requesting {
		op = OpRoomUnrequestMic
	}
	return s.send(op, w.Bytes())
}

// InviteToRoom sends ROOM_INVITE_OUT (/invite <nick>), a command beyond
// spec.md's explicit list, supplemented from paltalk-commands.c.
func (s *Session) InviteToRoom(roomID, targetUID uint32) error {
	w := wire.NewWriter(8)
	w.U32(roomID)
	w.U32(targetUID)
	return s.send(OpRoomInviteOut, w.Bytes())
}

// PrivateInvite sends ROOM_PRIVATE_INVITE (/priv <nick>).
func (s *Session) PrivateInvite(roomID, targetUID uint32) error {
	w := wire.NewWriter(8)
	w.U32(roomID)
	w.U32(targetUID)
	return s.send(OpRoomPrivateInvite, w.Bytes())
}
