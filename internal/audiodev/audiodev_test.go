package audiodev

import (
	"sync/atomic"
	"testing"
)

type fakeStream struct {
	writes int32
	reads  int32
}

func (f *fakeStream) Start() error { return nil }
func (f *fakeStream) Stop() error  { return nil }
func (f *fakeStream) Close() error { return nil }
func (f *fakeStream) Read() error  { atomic.AddInt32(&f.reads, 1); return nil }
func (f *fakeStream) Write() error { atomic.AddInt32(&f.writes, 1); return nil }

func TestDeviceRefCounting(t *testing.T) {
	d := &Device{dir: Playback, stream: &fakeStream{}, closeCh: make(chan struct{}), refc: 1}
	d.Ref()
	if err := d.Unref(); err != nil {
		t.Fatalf("Unref (still referenced): %v", err)
	}
	if atomic.LoadInt32(&d.refc) != 1 {
		t.Fatalf("refc = %d; want 1", d.refc)
	}
	if err := d.Unref(); err != nil {
		t.Fatalf("final Unref: %v", err)
	}
}

func TestPauseToggle(t *testing.T) {
	d := &Device{dir: Playback}
	if d.PauseToggle() != true {
		t.Fatal("first toggle should pause")
	}
	if d.PauseToggle() != false {
		t.Fatal("second toggle should unpause")
	}
}

func TestOSSFallbackPaths(t *testing.T) {
	paths := OSSFallbackPaths()
	want := []string{"/dev/sound/dsp", "/dev/dsp", "/dev/dsp0", "/dev/dsp1"}
	if len(paths) != len(want) {
		t.Fatalf("len(paths) = %d; want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths[%d] = %q; want %q", i, paths[i], want[i])
		}
	}
}
