// Package gsm610 wraps the system libgsm implementation of GSM 06.10
// full-rate behind a small Go interface, in the same shape as the
// teacher's gopkg.in/hraban/opus.v2 cgo codec wrapper: an Encoder and a
// Decoder, each owning one opaque native state context, reset by explicit
// reinitialization rather than by tearing the object down.
package gsm610

/*
#cgo LDFLAGS: -lgsm
#include <gsm.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// FrameSamples is the fixed input size to Encode: 160 signed 16-bit PCM
// samples (320 bytes) at 8000 Hz mono.
const FrameSamples = 160

// FrameBytes is the PCM byte size corresponding to FrameSamples.
const FrameBytes = FrameSamples * 2

// EncodedBytes is the fixed output size of one encoded GSM 06.10 frame.
const EncodedBytes = 33

// Encoder holds one libgsm encode context. It is not safe for concurrent
// use; callers serialize access the same way the capture thread owns its
// codec handle exclusively (spec.md §5).
type Encoder struct {
	handle C.gsm
}

// NewEncoder allocates a fresh libgsm context for encoding.
func NewEncoder() (*Encoder, error) {
	h := C.gsm_create()
	if h == nil {
		return nil, fmt.Errorf("gsm610: gsm_create failed")
	}
	return &Encoder{handle: h}, nil
}

// Encode converts exactly FrameSamples PCM samples (FrameBytes bytes, host
// endian) into exactly EncodedBytes of GSM 06.10 data.
func (e *Encoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != FrameBytes {
		return nil, fmt.Errorf("gsm610: encode input is %d bytes, want %d", len(pcm), FrameBytes)
	}
	samples := (*C.gsm_signal)(unsafe.Pointer(&pcm[0]))
	out := make([]byte, EncodedBytes)
	frame := (*C.gsm_byte)(unsafe.Pointer(&out[0]))
	C.gsm_encode(e.handle, samples, frame)
	return out, nil
}

// Reset reinitializes the encoder's internal state by destroying the native
// context and creating a fresh one, matching the source's explicit-reinit
// codec lifecycle (§4.C2).
func (e *Encoder) Reset() error {
	C.gsm_destroy(e.handle)
	h := C.gsm_create()
	if h == nil {
		return fmt.Errorf("gsm610: gsm_create failed on reset")
	}
	e.handle = h
	return nil
}

// Close releases the native encode context.
func (e *Encoder) Close() error {
	if e.handle != nil {
		C.gsm_destroy(e.handle)
		e.handle = nil
	}
	return nil
}

// Decoder holds one libgsm decode context.
type Decoder struct {
	handle C.gsm
}

// NewDecoder allocates a fresh libgsm context for decoding.
func NewDecoder() (*Decoder, error) {
	h := C.gsm_create()
	if h == nil {
		return nil, fmt.Errorf("gsm610: gsm_create failed")
	}
	return &Decoder{handle: h}, nil
}

// Decode converts exactly EncodedBytes of GSM 06.10 data into exactly
// FrameBytes of PCM.
func (d *Decoder) Decode(frame []byte) ([]byte, error) {
	if len(frame) != EncodedBytes {
		return nil, fmt.Errorf("gsm610: decode input is %d bytes, want %d", len(frame), EncodedBytes)
	}
	in := (*C.gsm_byte)(unsafe.Pointer(&frame[0]))
	out := make([]byte, FrameBytes)
	samples := (*C.gsm_signal)(unsafe.Pointer(&out[0]))
	if C.gsm_decode(d.handle, in, samples) < 0 {
		return nil, fmt.Errorf("gsm610: gsm_decode rejected frame (bad magic bits)")
	}
	return out, nil
}

// Reset reinitializes the decoder's internal state by destroying the native
// context and creating a fresh one.
func (d *Decoder) Reset() error {
	C.gsm_destroy(d.handle)
	h := C.gsm_create()
	if h == nil {
		return fmt.Errorf("gsm610: gsm_create failed on reset")
	}
	d.handle = h
	return nil
}

// Close releases the native decode context.
func (d *Decoder) Close() error {
	if d.handle != nil {
		C.gsm_destroy(d.handle)
		d.handle = nil
	}
	return nil
}

// Format describes the fixed media format the codec advertises: signed
// PCM, 8000 Hz, mono, 16 bits per sample.
type Format struct {
	SampleRate int
	Channels   int
	BitsPerSample int
}

// AdvertisedFormat is the constant format value §4.C2 specifies.
var AdvertisedFormat = Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}
