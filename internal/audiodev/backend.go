package audiodev

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// paSamplesPerFrame matches the GSM 06.10 frame size so a single Read/Write
// always lines up with one encode/decode call.
const paSamplesPerFrame = 160

// portaudioStream adapts *portaudio.Stream to the paStream seam, owning the
// int16 buffer portaudio reads into (capture) or writes from (playback).
type portaudioStream struct {
	stream *portaudio.Stream
	buf    []int16
}

func openPortaudioStream(dir Direction, f Format) (paStream, error) {
	buf := make([]int16, paSamplesPerFrame*f.Channels)
	var stream *portaudio.Stream
	var err error
	switch dir {
	case Capture:
		stream, err = portaudio.OpenDefaultStream(f.Channels, 0, float64(f.SampleRate), len(buf), buf)
	case Playback:
		stream, err = portaudio.OpenDefaultStream(0, f.Channels, float64(f.SampleRate), len(buf), buf)
	default:
		return nil, fmt.Errorf("audiodev: unknown direction %v", dir)
	}
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("audiodev: start: %w", err)
	}
	return &portaudioStream{stream: stream, buf: buf}, nil
}

func (p *portaudioStream) Start() error { return p.stream.Start() }
func (p *portaudioStream) Stop() error  { return p.stream.Stop() }
func (p *portaudioStream) Close() error { return p.stream.Close() }
func (p *portaudioStream) Read() error  { return p.stream.Read() }
func (p *portaudioStream) Write() error { return p.stream.Write() }

// samples returns the int16 sample buffer backing this stream, so the
// Device wrapper can copy capture output into a caller's buffer or fill
// playback input from a decoded frame.
func (p *portaudioStream) samples() []int16 { return p.buf }

// copySamplesToBytes packs host-endian int16 samples into a byte buffer
// sized 2*len(samples), matching the wire's "host endianness" rule (§4.C3).
func copySamplesToBytes(samples []int16, out []byte) {
	n := len(samples)
	if len(out) < n*2 {
		n = len(out) / 2
	}
	for i := 0; i < n; i++ {
		putInt16(out[i*2:], samples[i])
	}
}

// copyBytesToSamples unpacks a host-endian PCM byte buffer into int16
// samples.
func copyBytesToSamples(in []byte, samples []int16) {
	n := len(in) / 2
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		samples[i] = getInt16(in[i*2:])
	}
}
