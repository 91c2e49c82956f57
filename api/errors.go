package api

import (
	"errors"
)

var (
	// ErrProtocolViolation is returned when the other side sends a frame no
	// correct peer would send, like a data index past the announced count.
	ErrProtocolViolation = errors.New("optics: protocol violation")
	ErrInvalidPacketSize = errors.New("optics: packet size must be positive")
	ErrPayloadTooLarge   = errors.New("optics: payload needs more packets than an index can address")
	// ErrRoundLimit is returned by Loopback when the encoder did not complete
	// within the allowed number of rounds.
	ErrRoundLimit = errors.New("optics: round limit reached before transfer completed")
)
