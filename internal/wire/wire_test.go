package wire

import "testing"

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.I16(-20)
	w.U16(0x0053)
	w.U32(0xDEADBEEF)
	w.I32(-1234)
	if _, err := w.PString([]byte("hello")); err != nil {
		t.Fatalf("PString: %v", err)
	}

	r := NewReader(w.Bytes())
	if v, err := r.I16(); err != nil || v != -20 {
		t.Fatalf("I16 = %d, %v; want -20, nil", v, err)
	}
	if v, err := r.U16(); err != nil || v != 0x0053 {
		t.Fatalf("U16 = %#x, %v; want 0x53, nil", v, err)
	}
	if v, err := r.U32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("U32 = %#x, %v; want 0xdeadbeef, nil", v, err)
	}
	if v, err := r.I32(); err != nil || v != -1234 {
		t.Fatalf("I32 = %d, %v; want -1234, nil", v, err)
	}
	s, err := r.PString()
	if err != nil || string(s) != "hello" {
		t.Fatalf("PString = %q, %v; want %q, nil", s, err, "hello")
	}
	if r.Remaining() != 0 {
		t.Fatalf("Remaining = %d; want 0", r.Remaining())
	}
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x00})
	if _, err := r.U16(); err != ErrShortBuffer {
		t.Fatalf("U16 on 1-byte buffer = %v; want ErrShortBuffer", err)
	}
}

func TestWriterPStringTooLong(t *testing.T) {
	w := NewWriter(0)
	if _, err := w.PString(make([]byte, 1<<16)); err == nil {
		t.Fatal("PString with 65536-byte string: want error, got nil")
	}
}
