// Package optics converts between the byte strings of the transfer protocol
// and scannable images.
package optics

import (
	"errors"
	"image"
)

// ErrNotDecodable is returned by Codec.Decode when a captured image holds no
// readable frame. It is an expected outcome of a lossy channel, not a
// failure of the transfer.
var ErrNotDecodable = errors.New("optics: image not decodable")

type Codec interface {
	// Encode renders data into an image that can be displayed.
	Encode(data []byte) (image.Image, error)
	// Decode reads the data back from a captured image. Failures to find or
	// read a code are reported as ErrNotDecodable, possibly wrapped.
	Decode(img image.Image) ([]byte, error)
}
