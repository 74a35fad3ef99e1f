package icewire

import (
	"fmt"
	"strconv"
	"strings"
)

// ExecuteSlashCommand parses one line of chat input typed into roomID and
// dispatches the corresponding Session operation, per spec.md §6's slash
// command surface plus the /invite and /priv commands supplemented from
// paltalk-commands.c (SPEC_FULL.md). lookupUID resolves a nickname to a
// UID for commands that target a participant by name; it may be nil for
// commands that don't need it.
func (s *Session) ExecuteSlashCommand(roomID uint32, line string, lookupUID func(nick string) (uint32, bool)) error {
	if !strings.HasPrefix(line, "/") {
		return s.SendRoomMessage(roomID, line)
	}
	fields := strings.SplitN(line[1:], " ", 2)
	cmd := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	resolve := func(nick string) (uint32, error) {
		if lookupUID == nil {
			return 0, fmt.Errorf("slashcommand: no nickname resolver configured")
		}
		uid, ok := lookupUID(strings.TrimSpace(nick))
		if !ok {
			return 0, roomErr("slashcommand", fmt.Errorf("unknown nickname %q", nick))
		}
		return uid, nil
	}

	switch cmd {
	case "w", "msg":
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("slashcommand: usage /%s <nick>: <msg>", cmd)
		}
		uid, err := resolve(parts[0])
		if err != nil {
			return err
		}
		return s.SendIM(uid, strings.TrimSpace(parts[1]))

	case "ban", "unban", "bounce", "unbounce", "reddot", "unreddot":
		return s.executeTargetedModeration(roomID, cmd, arg, resolve)

	case "removemic":
		return s.RequestMic(roomID, false)
	case "restoremic":
		return s.RequestMic(roomID, true)
	case "clearhands":
		return s.RemoveAllHands(roomID)
	case "re":
		return s.executeReddotScope(roomID, arg)
	case "sre":
		return s.reportReddotScope(roomID)
	case "listbans":
		return s.reportList(roomID, "bans")
	case "listbounces":
		return s.reportList(roomID, "bounces")
	case "close":
		return s.LeaveRoom(roomID)
	case "micon":
		return s.roomVoice(roomID, func(v *VoiceStream) error { return v.MicOn() })
	case "micoff":
		return s.roomVoice(roomID, func(v *VoiceStream) error { v.MicOff(); return nil })
	case "mute":
		return s.roomVoice(roomID, func(v *VoiceStream) error { v.Mute(); return nil })
	case "reqmic":
		return s.roomVoice(roomID, func(v *VoiceStream) error {
			requesting := !v.micRequested.Load()
			if err := s.RequestMic(roomID, requesting); err != nil {
				return err
			}
			v.micRequested.Store(requesting)
			return nil
		})
	case "invite":
		uid, err := resolve(arg)
		if err != nil {
			return err
		}
		return s.InviteToRoom(roomID, uid)
	case "priv":
		uid, err := resolve(arg)
		if err != nil {
			return err
		}
		return s.PrivateInvite(roomID, uid)
	default:
		return fmt.Errorf("slashcommand: unknown command /%s", cmd)
	}
}

func (s *Session) executeTargetedModeration(roomID uint32, cmd, arg string, resolve func(string) (uint32, error)) error {
	target := allTarget
	if strings.TrimSpace(arg) != "" && strings.TrimSpace(arg) != "all" {
		uid, err := resolve(arg)
		if err != nil {
			return err
		}
		target = uid
	}
	switch cmd {
	case "ban":
		return s.Ban(roomID, target)
	case "unban":
		return s.Unban(roomID, target)
	case "bounce":
		return s.Bounce(roomID, target, "")
	case "unbounce":
		return s.Unbounce(roomID, target)
	case "reddot":
		return s.RedDot(roomID, target)
	case "unreddot":
		return s.UnRedDot(roomID, target)
	}
	return fmt.Errorf("slashcommand: unhandled moderation command /%s", cmd)
}

// executeReddotScope implements /re text|video, toggling the room's
// reddot scope flags. Per spec.md §9's Open Question, the toggle is
// treated as authoritative and the scope is re-queried via
// ROOM_GET_ADMIN_INFO rather than trusting a locally-computed prior value.
func (s *Session) executeReddotScope(roomID uint32, arg string) error {
	r := s.room(roomID)
	if err := r.requireAdmin("room.re"); err != nil {
		return err
	}
	switch strings.TrimSpace(strings.ToLower(arg)) {
	case "text":
		r.mu.Lock()
		r.RedDotAffectsText = !r.RedDotAffectsText
		r.mu.Unlock()
	case "video":
		r.mu.Lock()
		r.RedDotAffectsVideo = !r.RedDotAffectsVideo
		r.mu.Unlock()
	default:
		return fmt.Errorf("slashcommand: usage /re text|video")
	}
	return s.sendRoomGetAdminInfo(roomID)
}

func (s *Session) reportReddotScope(roomID uint32) error {
	r := s.room(roomID)
	r.mu.Lock()
	text, video := r.RedDotAffectsText, r.RedDotAffectsVideo
	r.mu.Unlock()
	s.cb.systemMessage(roomID, fmt.Sprintf("reddot scope: text=%v video=%v", text, video))
	return nil
}

func (s *Session) reportList(roomID uint32, which string) error {
	r := s.room(roomID)
	r.mu.Lock()
	var ids []uint32
	if which == "bans" {
		for uid := range r.Banned {
			ids = append(ids, uid)
		}
	} else {
		for uid := range r.Bounced {
			ids = append(ids, uid)
		}
	}
	r.mu.Unlock()

	strs := make([]string, len(ids))
	for i, uid := range ids {
		strs[i] = strconv.FormatUint(uint64(uid), 10)
	}
	s.cb.systemMessage(roomID, which+": "+strings.Join(strs, ", "))
	return nil
}

func (s *Session) roomVoice(roomID uint32, fn func(*VoiceStream) error) error {
	r := s.room(roomID)
	r.mu.Lock()
	v := r.voice
	r.mu.Unlock()
	if v == nil {
		return mediaErr("slashcommand", fmt.Errorf("room %d has no active voice stream", roomID))
	}
	return fn(v)
}
