package dataplane

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
)

// Ensuring interface compatability at compile time.
var _ Channel = PerfectChannel{}
var _ Channel = &LossyChannel{}

// PerfectChannel hands every image over unchanged.
type PerfectChannel struct{}

func (PerfectChannel) Carry(img image.Image) image.Image {
	return img
}

// LossyChannel loses a fixed fraction of frames, chosen by a seeded source so
// runs are reproducible. A lost frame arrives as a blank white capture of
// the same size, as a camera pointed at a display in between frames would
// see it. A LossyChannel built without NewLossyChannel uses seed 1.
type LossyChannel struct {
	LossRate float64
	rnd      *rand.Rand
	Dropped  int
	Carried  int
}

func NewLossyChannel(lossRate float64, seed int64) *LossyChannel {
	return &LossyChannel{
		LossRate: lossRate,
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

func (lc *LossyChannel) Carry(img image.Image) image.Image {
	if lc.rnd == nil {
		lc.rnd = rand.New(rand.NewSource(1))
	}
	if lc.rnd.Float64() >= lc.LossRate {
		lc.Carried++
		return img
	}
	lc.Dropped++
	blank := image.NewGray(img.Bounds())
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return blank
}
