package dataplane

import (
	"image"
)

// Channel carries one displayed image to the camera of the other side.
// Whatever comes out is what the other side scans; a lossy channel returns an
// image the codec cannot read instead of dropping the frame.
type Channel interface {
	Carry(img image.Image) image.Image
}

// Callback for every image shown by either side of a loopback transfer.
// Round counts encoder calls, fromSender tells which side showed img.
type OnFrameShown func(round int, fromSender bool, img image.Image)
