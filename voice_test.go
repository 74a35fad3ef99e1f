package icewire

import (
	"testing"

	"github.com/icewire-project/icewire/internal/config"
)

func newTestVoiceStream(nick string) *VoiceStream {
	s := NewSession(config.Config{}, nil)
	s.nick = nick
	r := newRoom(s, 1)
	return &VoiceStream{room: r}
}

func TestUpdateLocalSpeakingSetsFlagOnOwnNick(t *testing.T) {
	vs := newTestVoiceStream("alice")

	vs.updateLocalSpeaking("alice", "")
	if !vs.localSpeaking.Load() {
		t.Fatal("localSpeaking should be true once the room recognizes our own nick as speaker")
	}

	vs.updateLocalSpeaking("bob", "alice")
	if vs.localSpeaking.Load() {
		t.Fatal("localSpeaking should clear once another nick is recognized as speaker")
	}
}

func TestUpdateLocalSpeakingIgnoresOtherNicks(t *testing.T) {
	vs := newTestVoiceStream("alice")

	vs.updateLocalSpeaking("bob", "")
	if vs.localSpeaking.Load() {
		t.Fatal("localSpeaking should stay false when a different nick starts speaking")
	}
}

