package icewire

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// RoomState is a room's lifecycle from the local user's perspective
// (spec.md §4.C8): Requested -> Joined -> (Left | Closed | Kicked).
type RoomState int

const (
	RoomRequested RoomState = iota
	RoomJoined
	RoomLeft
	RoomClosed
	RoomKicked
)

// Participant is one member of a room's participant map.
type Participant struct {
	UID         uint32
	Nickname    string
	Admin       bool
	RequestsMic bool
	VideoOn     bool
	RedDot      bool
}

const speakerTick = 500 * time.Millisecond
const speakerIdleTimeout = 450 * time.Millisecond

// Room owns everything spec.md §3 lists for the Room entity: membership,
// the speaker flag and its 500ms timer, ban/bounce lists, and an optional
// bound VoiceStream.
type Room struct {
	mu sync.Mutex

	session *Session // non-owning back-reference; the room is owned by the session
	ID      uint32
	State   RoomState
	Admin   bool // local user holds admin privileges in this room
	OwnerUID uint32
	Topic   string

	MikeRestricted     bool
	RedDotAffectsText  bool
	RedDotAffectsVideo bool

	speakerNick string
	speakerSSRC uint32
	lastActive  time.Time

	Banned  map[uint32]bool
	Bounced map[uint32]bool

	Participants map[uint32]*Participant

	voice *VoiceStream // owned by the room; may be nil

	timer *time.Timer
	done  chan struct{}
}

// newRoom constructs a Room in the Requested state, owned by s.
func newRoom(s *Session, id uint32) *Room {
	r := &Room{
		session:      s,
		ID:           id,
		State:        RoomRequested,
		Banned:       make(map[uint32]bool),
		Bounced:      make(map[uint32]bool),
		Participants: make(map[uint32]*Participant),
		done:         make(chan struct{}),
	}
	return r
}

// markJoined transitions Requested -> Joined and records the topic from
// ROOM_JOINED.
func (r *Room) markJoined(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = RoomJoined
	r.Topic = topic
}

// upsertParticipant handles both ROOM_USERLIST records and
// ROOM_USER_JOINED: if the participant is the local user and carries
// admin=true, the room's Admin flag is set and ROOM_GET_ADMIN_INFO is
// triggered to populate the ban/bounce lists and reddot scope (§4.C8).
func (r *Room) upsertParticipant(p Participant) {
	r.mu.Lock()
	isLocal := r.session != nil && p.UID == r.session.uid
	becameAdmin := isLocal && p.Admin && !r.Admin
	if becameAdmin {
		r.Admin = true
	}
	r.Participants[p.UID] = &p
	r.mu.Unlock()

	if becameAdmin && r.session != nil {
		if err := r.session.sendRoomGetAdminInfo(r.ID); err != nil {
			log.Printf("[room] %d: get admin info: %v", r.ID, err)
		}
	}
}

// removeParticipant handles ROOM_USER_LEFT: if the departing participant
// currently holds the speaker flag, it clears immediately rather than
// waiting for the idle timer.
func (r *Room) removeParticipant(uid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Participants, uid)
	if r.speakerSSRC == uid {
		r.clearSpeakerLocked()
	}
}

// requireAdmin enforces spec.md §4.C7's ban/bounce/reddot precondition:
// these commands are rejected locally unless the room's admin flag is set.
func (r *Room) requireAdmin(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Admin {
		return roomErr(op, fmt.Errorf("room %d: local user is not admin", r.ID))
	}
	return nil
}

// requireNonEmptyBanlist enforces the extra precondition on unban: the
// banlist must be non-empty. Unbounce checks the bouncelist itself in
// bounceUnbounce.
func (r *Room) requireNonEmptyBanlist(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Banned) == 0 {
		return roomErr(op, fmt.Errorf("room %d: banlist is empty", r.ID))
	}
	return nil
}

// noteInboundAudio records an inbound RTP packet's SSRC/arrival time and
// returns the speaker-transition notices to emit, per spec.md §4.C8's
// speaker-detection rules. It does not itself start or stop the timer;
// callers (the voice receive path) call this on every packet.
func (r *Room) noteInboundAudio(ssrc uint32, now time.Time) (startedNick string, stoppedNick string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.Participants[ssrc]
	nick := ""
	if p != nil {
		nick = p.Nickname
	} else if r.session != nil && ssrc == r.session.uid {
		nick = r.session.nick
	}

	if r.speakerSSRC == ssrc {
		r.lastActive = now
		return "", ""
	}
	prevNick := r.speakerNick
	if r.speakerSSRC != 0 {
		stoppedNick = prevNick
	}
	r.speakerSSRC = ssrc
	r.speakerNick = nick
	r.lastActive = now
	startedNick = nick
	return startedNick, stoppedNick
}

// clearSpeakerLocked clears the speaker flag; caller holds r.mu.
func (r *Room) clearSpeakerLocked() (clearedNick string) {
	clearedNick = r.speakerNick
	r.speakerSSRC = 0
	r.speakerNick = ""
	return clearedNick
}

// startSpeakerTimer launches the 500ms periodic idle check described in
// spec.md §4.C8/§5. It runs until the room is closed.
func (r *Room) startSpeakerTimer() {
	go func() {
		ticker := time.NewTicker(speakerTick)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case now := <-ticker.C:
				r.checkIdle(now)
			}
		}
	}()
}

func (r *Room) checkIdle(now time.Time) {
	r.mu.Lock()
	if r.speakerSSRC == 0 || now.Sub(r.lastActive) < speakerIdleTimeout {
		r.mu.Unlock()
		return
	}
	nick := r.clearSpeakerLocked()
	id := r.ID
	v := r.voice
	r.mu.Unlock()

	if v != nil {
		v.updateLocalSpeaking("", nick)
	}
	if r.session != nil && r.session.cb != nil && r.session.cb.OnSpeakerChanged != nil {
		r.session.cb.OnSpeakerChanged(id, nick, false)
	}
}

// close transitions the room to Closed, tears down its voice stream if
// any, and stops the speaker timer. It is idempotent: a room already
// Closed is left alone, so a ROOM_CLOSED frame followed by session
// teardown (or any other double-close sequence) never re-closes r.done.
func (r *Room) close() {
	r.mu.Lock()
	if r.State == RoomClosed {
		r.mu.Unlock()
		return
	}
	r.State = RoomClosed
	v := r.voice
	r.voice = nil
	r.mu.Unlock()
	close(r.done)
	if v != nil {
		v.stop()
	}
}
