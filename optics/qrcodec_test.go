package optics

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestQRCodecRoundTrip(t *testing.T) {
	codec, err := NewQRCodec(nil)
	if err != nil {
		t.Fatalf("NewQRCodec: %v", err)
	}
	// Frames always carry a header, so no payload is empty.
	payloads := [][]byte{
		{0x00},
		[]byte("optics"),
		bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 100),
	}
	for _, want := range payloads {
		img, err := codec.Encode(want)
		if err != nil {
			t.Fatalf("Encode(%d bytes): %v", len(want), err)
		}
		got, err := codec.Decode(img)
		if err != nil {
			t.Fatalf("Decode of %d byte payload: %v", len(want), err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Decode(Encode(%x)) = %x", want, got)
		}
	}
}

func TestQRCodecImageGeometry(t *testing.T) {
	codec, err := NewQRCodec(&QRCodecOptions{ErrorCorrection: "M", ModuleSize: 3, QuietZone: 2})
	if err != nil {
		t.Fatalf("NewQRCodec: %v", err)
	}
	img, err := codec.Encode([]byte("abc"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Version 1 is 21 modules wide.
	want := (21 + 2*2) * 3
	if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
		t.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), want, want)
	}
	if g, ok := img.(*image.Gray); !ok || g.GrayAt(0, 0).Y != 0xff {
		t.Error("quiet zone is not white")
	}
}

func TestQRCodecBlankImage(t *testing.T) {
	codec, err := NewQRCodec(nil)
	if err != nil {
		t.Fatalf("NewQRCodec: %v", err)
	}
	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if _, err := codec.Decode(blank); !errors.Is(err, ErrNotDecodable) {
		t.Errorf("Decode(blank) error = %v, want ErrNotDecodable", err)
	}
}

func TestQRCodecOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opts QRCodecOptions
	}{
		{"unknown level", QRCodecOptions{ErrorCorrection: "X", ModuleSize: 4}},
		{"zero module", QRCodecOptions{ErrorCorrection: "L", ModuleSize: 0}},
		{"negative quiet zone", QRCodecOptions{ErrorCorrection: "L", ModuleSize: 4, QuietZone: -1}},
	}
	for _, tt := range tests {
		opts := tt.opts
		if _, err := NewQRCodec(&opts); err == nil {
			t.Errorf("%s: NewQRCodec succeeded", tt.name)
		}
	}
	if !ValidErrorCorrection("H") || ValidErrorCorrection("l") {
		t.Error("ValidErrorCorrection accepts the wrong levels")
	}
}
