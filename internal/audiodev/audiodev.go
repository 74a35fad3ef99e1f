// Package audiodev is the audio device abstraction C3 specifies: blocking
// capture, asynchronous playback through an unbounded FIFO drained by a
// single worker goroutine, and reference-counted lifetime shared between a
// voice stream and its UI. The primary backend is portaudio, the same
// library the teacher's AudioEngine uses and the only backend Open uses; a
// fixed OSS device-path order is kept as a list (OSSFallbackPaths), but no
// OSS device is ever probed or opened.
package audiodev

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Direction selects which half of the device Open configures.
type Direction int

const (
	// Capture opens the device for blocking reads (read intent). Fixes the
	// source's O_WRONLY-for-both-directions bug (spec.md §9).
	Capture Direction = iota
	// Playback opens the device for asynchronous writes (write intent).
	Playback
)

// Format is the fixed media format this device type supports: signed PCM,
// 8000 Hz, mono, host-endian 16-bit samples.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is the format §4.C2/§6 specify for the voice channel.
var DefaultFormat = Format{SampleRate: 8000, Channels: 1}

// ossDevicePaths is the candidate OSS device node list from device.c, in
// probe order. Open does not probe it: when portaudio has no usable
// default device, Open fails.
var ossDevicePaths = []string{"/dev/sound/dsp", "/dev/dsp", "/dev/dsp0", "/dev/dsp1"}

// paStream abstracts the portaudio stream so tests can substitute a fake.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Write() error
	Read() error
}

// Device is one open audio device, capture or playback, reference-counted
// by its owning voice stream and any UI observer.
type Device struct {
	dir    Direction
	format Format

	refc int32

	mu      sync.Mutex
	stream  paStream
	queue   [][]byte // playback FIFO; unused for capture devices
	closeCh chan struct{}
	wg      sync.WaitGroup
	paused  atomic.Bool
	ownsPA  bool // true when Open initialized portaudio and close must terminate it
}

// Open opens a device in the given direction with DefaultFormat, starting
// at a reference count of 1.
func Open(dir Direction) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audiodev: portaudio init: %w", err)
	}
	d := &Device{dir: dir, format: DefaultFormat, refc: 1, closeCh: make(chan struct{}), ownsPA: true}
	stream, err := openPortaudioStream(dir, d.format)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audiodev: open %v: %w", dir, err)
	}
	d.stream = stream
	if dir == Playback {
		d.wg.Add(1)
		go d.drainLoop()
	}
	return d, nil
}

// Ref increments the reference count; the caller must later call Unref an
// equal number of times.
func (d *Device) Ref() { atomic.AddInt32(&d.refc, 1) }

// Unref decrements the reference count, closing the device when it reaches
// zero. Safe to call from any goroutine.
func (d *Device) Unref() error {
	if atomic.AddInt32(&d.refc, -1) > 0 {
		return nil
	}
	return d.close()
}

// SetFormat records f as the device's format. The underlying stream is not
// reopened, so an already-open stream keeps the format it was opened with.
func (d *Device) SetFormat(f Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.format = f
	return nil
}

// PauseToggle suspends or resumes the playback drain loop without tearing
// down the socket/stream (used by /mute). It returns the new paused state.
func (d *Device) PauseToggle() bool {
	for {
		old := d.paused.Load()
		if d.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Read performs one blocking capture read of exactly len(buf) bytes of
// host-endian signed 16-bit PCM.
func (d *Device) Read(buf []byte) error {
	if d.dir != Capture {
		return fmt.Errorf("audiodev: Read called on a %v device", d.dir)
	}
	if err := d.stream.Read(); err != nil {
		return fmt.Errorf("audiodev: read: %w", err)
	}
	if pa, ok := d.stream.(*portaudioStream); ok {
		copySamplesToBytes(pa.samples(), buf)
	}
	return nil
}

// Enqueue appends one PCM frame to the playback FIFO; the drain goroutine
// releases it after writing to the underlying driver.
func (d *Device) Enqueue(frame []byte) {
	if d.dir != Playback {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, frame)
	d.mu.Unlock()
}

func (d *Device) drainLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.closeCh:
			return
		default:
		}
		d.mu.Lock()
		if len(d.queue) == 0 || d.paused.Load() {
			d.mu.Unlock()
			continue
		}
		frame := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		if pa, ok := d.stream.(*portaudioStream); ok {
			copyBytesToSamples(frame, pa.samples())
		}
		if err := d.stream.Write(); err != nil {
			return
		}
	}
}

// close stops the stream before closing it, exactly in that order: the
// native stream object must not be touched by the drain goroutine after
// Pa_CloseStream frees it (the teacher's audio.go documents the same
// SIGSEGV hazard).
func (d *Device) close() error {
	close(d.closeCh)
	d.wg.Wait()
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			return fmt.Errorf("audiodev: stop: %w", err)
		}
		if err := d.stream.Close(); err != nil {
			return fmt.Errorf("audiodev: close: %w", err)
		}
	}
	if d.ownsPA {
		portaudio.Terminate()
	}
	return nil
}

// OSSFallbackPaths returns a copy of the documented OSS device-path probe
// order. Nothing in this module opens these paths.
func OSSFallbackPaths() []string {
	out := make([]string, len(ossDevicePaths))
	copy(out, ossDevicePaths)
	return out
}
