package icewire

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/icewire-project/icewire/internal/audiodev"
	"github.com/icewire-project/icewire/internal/gsm610"
	"github.com/icewire-project/icewire/internal/rtpframe"
	"github.com/icewire-project/icewire/internal/wire"
)

// framesPerSend is the default number of raw PCM frames read from the
// capture device per outbound RTP datagram (spec.md §4.C9).
const framesPerSend = rtpframe.FramesPerPacket

// VoiceStream is the full-duplex voice pipeline bound to one Room
// (spec.md §3 "VoiceStream", §4.C9). It owns the media TCP connection, the
// capture/encode/send goroutine, the receive/decode/playback goroutine,
// and its own reference-counted audio device handles. Unlike the
// teacher's Opus/QUIC-datagram pipeline this is TCP-ordered with a single
// logical speaker per room, so playback is a plain FIFO rather than a
// jitter-mixing buffer (see DESIGN.md).
type VoiceStream struct {
	room *Room // non-owning: the room owns the stream, not vice versa
	conn net.Conn

	captureEnabled atomic.Bool
	micRequested   atomic.Bool
	localSpeaking  atomic.Bool
	muted          atomic.Bool

	refc int32

	enc *gsm610.Encoder
	dec *gsm610.Decoder

	playback *audiodev.Device
	capture  *audiodev.Device

	seq atomic.Uint32

	mu       sync.Mutex
	stopSend chan struct{}
	wg       sync.WaitGroup
}

// connectVoice implements spec.md §4.C9's connection step: on
// ROOM_MEDIA_SERVER, dial the media endpoint, write the 4-byte room id
// then 4-byte local UID, then acknowledge over the control socket with
// ROOM_MEDIA_SERVER_ACK(room_id, 1).
func (s *Session) connectVoice(roomID uint32, ip string, port uint16) error {
	conn, err := s.dialer.DialContext(context.Background(), fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return mediaErr("voice.connect", err)
	}

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], roomID)
	binary.BigEndian.PutUint32(hdr[4:8], s.uid)
	if _, err := conn.Write(hdr[:]); err != nil {
		return mediaErr("voice.connect", err)
	}

	enc, err := gsm610.NewEncoder()
	if err != nil {
		return mediaErr("voice.connect", err)
	}
	dec, err := gsm610.NewDecoder()
	if err != nil {
		return mediaErr("voice.connect", err)
	}

	playback, err := audiodev.Open(audiodev.Playback)
	if err != nil {
		return mediaErr("voice.connect", err)
	}

	room := s.room(roomID)
	vs := &VoiceStream{room: room, conn: conn, enc: enc, dec: dec, refc: 1, playback: playback}
	room.mu.Lock()
	room.voice = vs
	room.mu.Unlock()
	room.startSpeakerTimer()

	vs.wg.Add(1)
	go vs.receiveLoop()

	w := wire.NewWriter(5)
	w.U32(roomID)
	w.Raw([]byte{1})
	return s.send(OpRoomMediaSrvAck, w.Bytes())
}

// receiveLoop is the single input watcher on the media socket (§4.C9): it
// reads one length-prefixed RTP datagram at a time, validates it, updates
// the room's speaker state, decodes the four GSM frames, and enqueues the
// PCM to the playback device — unless the local stream is currently
// suppressing playback of its own outbound audio (see sendLoop).
func (vs *VoiceStream) receiveLoop() {
	defer vs.wg.Done()
	for {
		pkt, err := rtpframe.ReadOne(vs.conn)
		if err == rtpframe.ErrDropped {
			continue
		}
		if err != nil {
			log.Printf("[voice] room %d: receive: %v", vs.room.ID, err)
			return
		}

		started, stopped := vs.room.noteInboundAudio(pkt.SSRC, time.Now())
		vs.emitSpeakerNotices(started, stopped)
		vs.updateLocalSpeaking(started, stopped)

		if vs.localSpeaking.Load() && pkt.SSRC == vs.room.session.uid {
			continue // local echo suppression: the server relays our own send back
		}

		if vs.playback == nil {
			continue
		}
		for _, frame := range pkt.GSMFrames {
			pcm, err := vs.dec.Decode(frame)
			if err != nil {
				log.Printf("[voice] room %d: decode: %v", vs.room.ID, err)
				continue
			}
			vs.playback.Enqueue(pcm)
		}
	}
}

// updateLocalSpeaking sets the local-echo-suppression flag from the
// speaker-transition notices noteInboundAudio just returned: the local
// stream is "speaking" (per the room's view) exactly while the room's
// recognized speaker nickname matches our own (spec.md §4.C9 "Local
// suppression").
func (vs *VoiceStream) updateLocalSpeaking(startedNick, stoppedNick string) {
	nick := vs.room.session.nick
	if startedNick != "" && startedNick == nick {
		vs.localSpeaking.Store(true)
	}
	if stoppedNick != "" && stoppedNick == nick {
		vs.localSpeaking.Store(false)
	}
}

func (vs *VoiceStream) emitSpeakerNotices(started, stopped string) {
	cb := vs.room.session.cb
	if cb == nil || cb.OnSpeakerChanged == nil {
		return
	}
	if stopped != "" {
		cb.OnSpeakerChanged(vs.room.ID, stopped, false)
	}
	if started != "" {
		cb.OnSpeakerChanged(vs.room.ID, started, true)
	}
}

// MicOn starts the capture-encode-send thread (/micon).
func (vs *VoiceStream) MicOn() error {
	if vs.captureEnabled.Swap(true) {
		return nil // already on
	}
	dev, err := audiodev.Open(audiodev.Capture)
	if err != nil {
		vs.captureEnabled.Store(false)
		return mediaErr("voice.micon", err)
	}
	vs.capture = dev
	vs.mu.Lock()
	vs.stopSend = make(chan struct{})
	stopCh := vs.stopSend
	vs.mu.Unlock()

	vs.wg.Add(1)
	go vs.sendLoop(stopCh)
	return nil
}

// MicOff stops the capture-encode-send thread (/micoff).
func (vs *VoiceStream) MicOff() {
	if !vs.captureEnabled.Swap(false) {
		return
	}
	vs.mu.Lock()
	if vs.stopSend != nil {
		close(vs.stopSend)
		vs.stopSend = nil
	}
	vs.mu.Unlock()
	if vs.capture != nil {
		vs.capture.Unref()
		vs.capture = nil
	}
}

// sendLoop reads framesPerSend raw PCM frames, encodes each, concatenates
// into one 132-byte GSM block, and hands it to the RTP writer, yielding
// briefly between iterations (§4.C9). It is suppressed while the local
// speaker flag is held on this room, so the client never echoes itself.
func (vs *VoiceStream) sendLoop(stop chan struct{}) {
	defer vs.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		var frames [framesPerSend][]byte
		for i := 0; i < framesPerSend; i++ {
			pcm := make([]byte, gsm610.FrameBytes)
			if err := vs.capture.Read(pcm); err != nil {
				log.Printf("[voice] room %d: capture: %v", vs.room.ID, err)
				return
			}
			enc, err := vs.enc.Encode(pcm)
			if err != nil {
				log.Printf("[voice] room %d: encode: %v", vs.room.ID, err)
				return
			}
			frames[i] = enc
		}

		if vs.muted.Load() {
			continue
		}
		if vs.localSpeaking.Load() {
			// The room already recognizes us as the active speaker and the
			// server relays our own send back on the receive path (spec.md
			// §4.C9 "Local suppression"); stop re-sending to avoid the
			// server echoing a doubled stream back to us.
			continue
		}

		seq := uint16(vs.seq.Add(1))
		datagram, err := rtpframe.Build(seq, uint32(time.Now().Unix()), vs.room.session.uid, false, frames)
		if err != nil {
			log.Printf("[voice] room %d: build rtp: %v", vs.room.ID, err)
			continue
		}
		if _, err := vs.conn.Write(datagram); err != nil {
			log.Printf("[voice] room %d: send: %v", vs.room.ID, err)
			return
		}
		time.Sleep(time.Millisecond) // yield briefly between iterations
	}
}

// Mute toggles the playback device's pause flag without tearing the
// socket down (/mute).
func (vs *VoiceStream) Mute() bool {
	if vs.playback != nil {
		return vs.playback.PauseToggle()
	}
	return vs.muted.Load()
}

// stop tears down the voice stream's goroutines and devices; called when
// the owning room closes.
func (vs *VoiceStream) stop() {
	vs.MicOff()
	if vs.conn != nil {
		vs.conn.Close()
	}
	vs.wg.Wait()
	if vs.playback != nil {
		vs.playback.Unref()
	}
	_ = vs.enc.Close()
	_ = vs.dec.Close()
}
