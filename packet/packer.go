package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/netsys-lab/optics/shared"
)

var (
	ErrShortFrame       = errors.New("optics: frame shorter than its declared layout")
	ErrUnknownFrameKind = errors.New("optics: unknown frame kind")
	ErrVersionMismatch  = errors.New("optics: unsupported protocol version")
	ErrMalformedFrame   = errors.New("optics: malformed frame")
)

// Ensuring interface compatability at compile time.
var _ FramePacker = &BinaryFramePacker{}

// BinaryFramePacker implements the big-endian wire layout:
//
//	[1 byte]  version
//	[1 byte]  kind
//	[1 byte]  flags (bit 0: ack)
//	[1 byte]  reserved
//	start:    [4] packet size, [4] packet count
//	data:     [4] index, [4] content length, content
//	end:      nothing
//	request:  [4] run count, then per run [4] first index, [4] run length
type BinaryFramePacker struct {
}

func NewBinaryFramePacker() *BinaryFramePacker {
	return &BinaryFramePacker{}
}

func (bp *BinaryFramePacker) GetHeaderLen() int {
	return shared.HEADER_LEN
}

func (bp *BinaryFramePacker) Pack(f Frame) ([]byte, error) {
	var flags uint8
	var body []byte

	switch f := f.(type) {
	case *StartFrame:
		flags = shared.AddAckFlag(flags, f.Ack)
		body = make([]byte, 8)
		binary.BigEndian.PutUint32(body[0:4], f.PacketSize)
		binary.BigEndian.PutUint32(body[4:8], f.PacketCount)
	case *DataFrame:
		body = make([]byte, 8+len(f.Content))
		binary.BigEndian.PutUint32(body[0:4], f.Index)
		binary.BigEndian.PutUint32(body[4:8], uint32(len(f.Content)))
		copy(body[8:], f.Content)
	case *EndFrame:
		flags = shared.AddAckFlag(flags, f.Ack)
	case *RequestFrame:
		runs, err := toRuns(f.Missing)
		if err != nil {
			return nil, err
		}
		body = make([]byte, 4+8*len(runs))
		binary.BigEndian.PutUint32(body[0:4], uint32(len(runs)))
		for i, r := range runs {
			off := 4 + 8*i
			binary.BigEndian.PutUint32(body[off:off+4], r.first)
			binary.BigEndian.PutUint32(body[off+4:off+8], r.length)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownFrameKind, f)
	}

	buf := make([]byte, bp.GetHeaderLen()+len(body))
	buf[0] = shared.OPTICS_VERSION
	buf[1] = f.Kind()
	buf[2] = flags
	copy(buf[bp.GetHeaderLen():], body)
	return buf, nil
}

func (bp *BinaryFramePacker) Unpack(buf []byte) (Frame, error) {
	if len(buf) < bp.GetHeaderLen() {
		return nil, ErrShortFrame
	}
	if buf[0] != shared.OPTICS_VERSION {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, buf[0], shared.OPTICS_VERSION)
	}
	kind, flags := buf[1], buf[2]
	body := buf[bp.GetHeaderLen():]

	switch kind {
	case shared.OPTICS_MSG_START:
		if len(body) < 8 {
			return nil, ErrShortFrame
		}
		if len(body) > 8 {
			return nil, fmt.Errorf("%w: %d trailing bytes after %s", ErrMalformedFrame, len(body)-8, shared.KindName(kind))
		}
		return &StartFrame{
			Ack:         shared.HasAckFlag(flags),
			PacketSize:  binary.BigEndian.Uint32(body[0:4]),
			PacketCount: binary.BigEndian.Uint32(body[4:8]),
		}, nil
	case shared.OPTICS_MSG_DATA:
		if len(body) < 8 {
			return nil, ErrShortFrame
		}
		length := binary.BigEndian.Uint32(body[4:8])
		if uint64(length) != uint64(len(body)-8) {
			return nil, fmt.Errorf("%w: content length %d, %d bytes present", ErrMalformedFrame, length, len(body)-8)
		}
		content := make([]byte, length)
		copy(content, body[8:])
		return &DataFrame{
			Index:   binary.BigEndian.Uint32(body[0:4]),
			Content: content,
		}, nil
	case shared.OPTICS_MSG_END:
		if len(body) != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after %s", ErrMalformedFrame, len(body), shared.KindName(kind))
		}
		return &EndFrame{Ack: shared.HasAckFlag(flags)}, nil
	case shared.OPTICS_MSG_REQUEST:
		if len(body) < 4 {
			return nil, ErrShortFrame
		}
		count := binary.BigEndian.Uint32(body[0:4])
		if uint64(count)*8 != uint64(len(body)-4) {
			return nil, fmt.Errorf("%w: %d runs declared, %d bytes present", ErrMalformedFrame, count, len(body)-4)
		}
		missing, err := fromRuns(body[4:], int(count))
		if err != nil {
			return nil, err
		}
		return &RequestFrame{Missing: missing}, nil
	}
	return nil, fmt.Errorf("%w: %s kind %d", ErrUnknownFrameKind, shared.KindName(kind), kind)
}

// Caps the indices a single request may expand to, so a crafted run cannot
// exhaust memory.
const maxMissingIndices = 1 << 24

type run struct {
	first  uint32
	length uint32
}

func toRuns(indices []uint32) ([]run, error) {
	runs := make([]run, 0)
	for i, v := range indices {
		if i > 0 && v <= indices[i-1] {
			return nil, fmt.Errorf("%w: missing indices not strictly ascending at position %d", ErrMalformedFrame, i)
		}
		if n := len(runs); n > 0 && runs[n-1].first+runs[n-1].length == v {
			runs[n-1].length++
			continue
		}
		runs = append(runs, run{first: v, length: 1})
	}
	return runs, nil
}

func fromRuns(buf []byte, count int) ([]uint32, error) {
	missing := make([]uint32, 0)
	var next uint64
	for i := 0; i < count; i++ {
		first := binary.BigEndian.Uint32(buf[8*i : 8*i+4])
		length := binary.BigEndian.Uint32(buf[8*i+4 : 8*i+8])
		if length == 0 {
			return nil, fmt.Errorf("%w: empty run %d", ErrMalformedFrame, i)
		}
		if i > 0 && uint64(first) < next {
			return nil, fmt.Errorf("%w: run %d overlaps or is out of order", ErrMalformedFrame, i)
		}
		end := uint64(first) + uint64(length)
		if end > 1<<32 {
			return nil, fmt.Errorf("%w: run %d exceeds index space", ErrMalformedFrame, i)
		}
		if uint64(len(missing))+uint64(length) > maxMissingIndices {
			return nil, fmt.Errorf("%w: request lists more than %d indices", ErrMalformedFrame, maxMissingIndices)
		}
		for v := uint64(first); v < end; v++ {
			missing = append(missing, uint32(v))
		}
		next = end
	}
	return missing, nil
}
