package api

import (
	"image"
	"image/color"
	"testing"

	"github.com/netsys-lab/optics/optics"
	"github.com/netsys-lab/optics/packet"
)

// memImage carries frame bytes directly, standing in for a rendered code.
type memImage struct {
	data []byte
}

func (m *memImage) ColorModel() color.Model { return color.GrayModel }
func (m *memImage) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (m *memImage) At(x, y int) color.Color { return color.Gray{} }

// memCodec reads memImages only. Anything else, like the blank capture of a
// lossy channel, is not decodable.
type memCodec struct{}

var _ optics.Codec = memCodec{}

func (memCodec) Encode(data []byte) (image.Image, error) {
	return &memImage{data: append([]byte(nil), data...)}, nil
}

func (memCodec) Decode(img image.Image) ([]byte, error) {
	m, ok := img.(*memImage)
	if !ok {
		return nil, optics.ErrNotDecodable
	}
	return append([]byte(nil), m.data...), nil
}

func frameImage(t *testing.T, f packet.Frame) image.Image {
	t.Helper()
	buf, err := packet.NewBinaryFramePacker().Pack(f)
	if err != nil {
		t.Fatalf("Pack(%s): %v", f, err)
	}
	return &memImage{data: buf}
}

func frameOf(t *testing.T, img image.Image) packet.Frame {
	t.Helper()
	if img == nil {
		t.Fatal("expected an image, got none")
	}
	m, ok := img.(*memImage)
	if !ok {
		t.Fatalf("image of type %T was not produced by memCodec", img)
	}
	f, err := packet.NewBinaryFramePacker().Unpack(m.data)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	return f
}

func testPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}
