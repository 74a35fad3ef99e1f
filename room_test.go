package icewire

import (
	"testing"
	"time"
)

func TestSpeakerTransitions(t *testing.T) {
	// spec.md §8 concrete scenario 5, driven directly against the pure
	// noteInboundAudio/checkIdle logic rather than real-time RTP delivery.
	r := newRoom(nil, 1)
	r.Participants[111] = &Participant{UID: 111, Nickname: "alice"}
	r.Participants[222] = &Participant{UID: 222, Nickname: "bob"}

	base := time.Unix(0, 0)

	started, stopped := r.noteInboundAudio(111, base)
	if started != "alice" || stopped != "" {
		t.Fatalf("t=0: started=%q stopped=%q; want alice/\"\"", started, stopped)
	}

	r.noteInboundAudio(111, base.Add(100*time.Millisecond))
	r.noteInboundAudio(111, base.Add(200*time.Millisecond))

	started, stopped = r.noteInboundAudio(222, base.Add(400*time.Millisecond))
	if stopped != "alice" || started != "bob" {
		t.Fatalf("t=400ms: started=%q stopped=%q; want bob/alice", started, stopped)
	}

	// Silence from t=400ms to t=1000ms: the idle timer should clear bob
	// somewhere between 850ms and 900ms (450ms after the last packet).
	r.checkIdle(base.Add(800 * time.Millisecond))
	r.mu.Lock()
	stillSpeaking := r.speakerNick
	r.mu.Unlock()
	if stillSpeaking != "bob" {
		t.Fatalf("at t=800ms bob should still be speaking, got %q", stillSpeaking)
	}

	r.checkIdle(base.Add(900 * time.Millisecond))
	r.mu.Lock()
	cleared := r.speakerNick
	r.mu.Unlock()
	if cleared != "" {
		t.Fatalf("at t=900ms speaker should be cleared, got %q", cleared)
	}
}

func TestRemoveParticipantClearsSpeaker(t *testing.T) {
	r := newRoom(nil, 1)
	r.Participants[111] = &Participant{UID: 111, Nickname: "alice"}
	r.noteInboundAudio(111, time.Now())
	r.removeParticipant(111)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.speakerSSRC != 0 || r.speakerNick != "" {
		t.Fatalf("speaker not cleared after participant left: ssrc=%d nick=%q", r.speakerSSRC, r.speakerNick)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := newRoom(nil, 1)
	r.startSpeakerTimer()

	defer func() {
		if p := recover(); p != nil {
			t.Fatalf("double close panicked: %v", p)
		}
	}()
	r.close()
	r.close() // must not re-close r.done (e.g. ROOM_CLOSED followed by session teardown)

	if r.State != RoomClosed {
		t.Fatalf("State = %v; want RoomClosed", r.State)
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newRoom(nil, 1)
	if err := r.requireAdmin("test"); err == nil {
		t.Fatal("requireAdmin should fail when Admin is false")
	}
	r.Admin = true
	if err := r.requireAdmin("test"); err != nil {
		t.Fatalf("requireAdmin should pass when Admin is true: %v", err)
	}
}
