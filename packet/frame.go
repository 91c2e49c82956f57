package packet

import (
	"fmt"

	"github.com/netsys-lab/optics/shared"
)

// Frame is one protocol message shown on the optical channel. The concrete
// types are StartFrame, DataFrame, EndFrame and RequestFrame.
type Frame interface {
	Kind() uint8
	String() string
}

// StartFrame opens a transfer. The sender shows it with Ack unset, the
// receiver echoes it with Ack set once it has allocated its buffer.
type StartFrame struct {
	Ack         bool
	PacketSize  uint32
	PacketCount uint32
}

func (f *StartFrame) Kind() uint8 { return shared.OPTICS_MSG_START }

func (f *StartFrame) String() string {
	return fmt.Sprintf("start{ack=%t size=%d count=%d}", f.Ack, f.PacketSize, f.PacketCount)
}

// DataFrame carries packet Index of the payload.
type DataFrame struct {
	Index   uint32
	Content []byte
}

func (f *DataFrame) Kind() uint8 { return shared.OPTICS_MSG_DATA }

func (f *DataFrame) String() string {
	return fmt.Sprintf("data{index=%d len=%d}", f.Index, len(f.Content))
}

// EndFrame closes a transfer, with the same ack echo as StartFrame.
type EndFrame struct {
	Ack bool
}

func (f *EndFrame) Kind() uint8 { return shared.OPTICS_MSG_END }

func (f *EndFrame) String() string {
	return fmt.Sprintf("end{ack=%t}", f.Ack)
}

// RequestFrame is the negative acknowledgement of the receiver. Missing is
// strictly ascending.
type RequestFrame struct {
	Missing []uint32
}

func (f *RequestFrame) Kind() uint8 { return shared.OPTICS_MSG_REQUEST }

func (f *RequestFrame) String() string {
	return fmt.Sprintf("request{missing=%d}", len(f.Missing))
}
