package dataplane

import (
	"bytes"
	"image"
	"testing"
)

func TestSendContextSlicesPackets(t *testing.T) {
	data := []byte("0123456789abcdefghijABCDEFGHIJxyz")
	pc := NewSendContext(data, 10)
	if pc.NumPackets != 4 {
		t.Fatalf("NumPackets = %d, want 4", pc.NumPackets)
	}
	sizes := []int{10, 10, 10, 3}
	for i, want := range sizes {
		if got := len(pc.GetPayloadByPacketIndex(i)); got != want {
			t.Errorf("packet %d has %d bytes, want %d", i, got, want)
		}
	}
	data[0] = 'X'
	if pc.GetPayloadByPacketIndex(0)[0] != '0' {
		t.Error("send context aliases the caller's slice")
	}
}

func TestSendContextExactMultiple(t *testing.T) {
	pc := NewSendContext(make([]byte, 20), 10)
	if pc.NumPackets != 2 {
		t.Fatalf("NumPackets = %d, want 2", pc.NumPackets)
	}
	if got := len(pc.GetPayloadByPacketIndex(1)); got != 10 {
		t.Errorf("last packet has %d bytes, want 10", got)
	}
}

func TestReceiveContextWatermark(t *testing.T) {
	src := NewSendContext([]byte("0123456789abcdefghijABCDEFGHIJxyz"), 10)
	dst := NewReceiveContext(10, 4)
	for _, i := range []int{3, 1, 0, 2} {
		dst.SetPayloadByPacketIndex(i, src.GetPayloadByPacketIndex(i))
	}
	if dst.HighWatermark != 33 {
		t.Errorf("HighWatermark = %d, want 33", dst.HighWatermark)
	}
	if !bytes.Equal(dst.Payload(), src.Data) {
		t.Errorf("Payload() = %q, want %q", dst.Payload(), src.Data)
	}
}

func TestLossyChannelIsDeterministic(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	run := func() []bool {
		lc := NewLossyChannel(0.3, 42)
		kept := make([]bool, 200)
		for i := range kept {
			kept[i] = lc.Carry(img) == image.Image(img)
		}
		return kept
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs with the same seed differ at frame %d", i)
		}
	}
}

func TestLossyChannelRate(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	lc := NewLossyChannel(0.25, 7)
	for i := 0; i < 4000; i++ {
		out := lc.Carry(img)
		if out.Bounds() != img.Bounds() {
			t.Fatalf("carried image has bounds %v, want %v", out.Bounds(), img.Bounds())
		}
	}
	if lc.Dropped+lc.Carried != 4000 {
		t.Fatalf("counted %d frames, want 4000", lc.Dropped+lc.Carried)
	}
	if lc.Dropped < 800 || lc.Dropped > 1200 {
		t.Errorf("dropped %d of 4000 frames at rate 0.25", lc.Dropped)
	}
}

func TestZeroLossCarriesEverything(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	lc := NewLossyChannel(0, 1)
	for i := 0; i < 100; i++ {
		if lc.Carry(img) != image.Image(img) {
			t.Fatal("frame lost at loss rate 0")
		}
	}
}

func TestLossyChannelLiteral(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	lc := &LossyChannel{LossRate: 0.5}
	for i := 0; i < 100; i++ {
		lc.Carry(img)
	}
	want := NewLossyChannel(0.5, 1)
	for i := 0; i < 100; i++ {
		want.Carry(img)
	}
	if lc.Dropped != want.Dropped {
		t.Errorf("literal channel dropped %d frames, seed 1 drops %d", lc.Dropped, want.Dropped)
	}
}
