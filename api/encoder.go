package api

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/netsys-lab/optics/dataplane"
	"github.com/netsys-lab/optics/optics"
	"github.com/netsys-lab/optics/packet"
	"github.com/netsys-lab/optics/tracker"
	log "github.com/sirupsen/logrus"
)

const (
	DEFAULT_PACKET_SIZE = 2048
)

type EncoderState int

const (
	DispStart EncoderState = iota
	DispData
	DispEnd
	Terminated
)

func (s EncoderState) String() string {
	switch s {
	case DispStart:
		return "DispStart"
	case DispData:
		return "DispData"
	case DispEnd:
		return "DispEnd"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("EncoderState(%d)", int(s))
}

type EncoderOptions struct {
	PacketSize uint32
	Packer     packet.FramePacker
}

func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{
		PacketSize: DEFAULT_PACKET_SIZE,
		Packer:     packet.NewBinaryFramePacker(),
	}
}

// Encoder is the sending side of a transfer. It decides which image to
// show next from the replies scanned since the previous call.
type Encoder struct {
	codec       optics.Codec
	packer      packet.FramePacker
	part        *dataplane.PartContext
	packetSize  uint32
	packetCount uint32
	state       EncoderState
	// Packets presumed delivered: set when shown, cleared when requested.
	presumed *tracker.Tracker
	// Packets shown at least once, to tell retransfers from first sends.
	transmitted *tracker.Tracker
	startImage  image.Image
	endImage    image.Image
	lastData    image.Image
	err         error
	metrics     *dataplane.Metrics
}

// FromBytes prepares the transfer of a copy of payload.
func FromBytes(payload []byte, codec optics.Codec, options *EncoderOptions) (*Encoder, error) {
	opts := DefaultEncoderOptions()
	if options != nil {
		opts.PacketSize = options.PacketSize
		if options.Packer != nil {
			opts.Packer = options.Packer
		}
	}
	if opts.PacketSize == 0 {
		return nil, ErrInvalidPacketSize
	}
	count := (uint64(len(payload)) + uint64(opts.PacketSize) - 1) / uint64(opts.PacketSize)
	if count > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d packets", ErrPayloadTooLarge, count)
	}

	e := &Encoder{
		codec:       codec,
		packer:      opts.Packer,
		part:        dataplane.NewSendContext(payload, int(opts.PacketSize)),
		packetSize:  opts.PacketSize,
		packetCount: uint32(count),
		state:       DispStart,
		presumed:    tracker.New(uint32(count)),
		transmitted: tracker.New(uint32(count)),
		metrics:     dataplane.NewMetrics(),
	}
	log.Debugf("Encoder prepared %d bytes in %d packets of %d", len(payload), e.packetCount, e.packetSize)
	return e, nil
}

func (e *Encoder) State() EncoderState {
	return e.state
}

// Completed is true once the receiver acknowledged the end of the transfer.
func (e *Encoder) Completed() bool {
	return e.state == Terminated
}

func (e *Encoder) PacketSize() uint32 {
	return e.packetSize
}

func (e *Encoder) PacketCount() uint32 {
	return e.packetCount
}

func (e *Encoder) Metrics() *dataplane.Metrics {
	return e.metrics
}

// NextImage folds every image scanned since the last call, in order, and
// returns the image to show now. After the first fatal error every call
// returns it.
func (e *Encoder) NextImage(feedback []image.Image) (image.Image, error) {
	if e.err != nil {
		return nil, e.err
	}

	for _, img := range feedback {
		raw, err := e.codec.Decode(img)
		if err != nil {
			if errors.Is(err, optics.ErrNotDecodable) {
				e.metrics.RxUndecodable.Add(1)
				continue
			}
			return nil, e.fail(fmt.Errorf("encoder: scan image: %w", err))
		}
		f, err := e.packer.Unpack(raw)
		if err != nil {
			return nil, e.fail(fmt.Errorf("encoder: unpack frame: %w", err))
		}
		e.metrics.RxFrames.Add(1)
		e.fold(f)
	}

	if e.state == DispData && e.presumed.Full() {
		e.setState(DispEnd)
	}

	img, err := e.output()
	if err != nil {
		return nil, e.fail(err)
	}
	e.metrics.TxFrames.Add(1)
	return img, nil
}

func (e *Encoder) fail(err error) error {
	log.Warnf("Encoder stopped in state %s: %v", e.state, err)
	e.err = err
	return err
}

func (e *Encoder) setState(s EncoderState) {
	log.Debugf("Encoder %s -> %s", e.state, s)
	e.state = s
}

func (e *Encoder) fold(f packet.Frame) {
	switch e.state {
	case DispStart:
		if s, ok := f.(*packet.StartFrame); ok && s.Ack {
			if s.PacketSize == e.packetSize && s.PacketCount == e.packetCount {
				e.setState(DispData)
				return
			}
			log.Warnf("Encoder ignores %s, announced size %d count %d", s, e.packetSize, e.packetCount)
		}
	case DispData:
		if r, ok := f.(*packet.RequestFrame); ok {
			e.applyRequest(r)
		}
	case DispEnd:
		switch f := f.(type) {
		case *packet.EndFrame:
			if f.Ack {
				e.setState(Terminated)
			}
		case *packet.RequestFrame:
			e.applyRequest(f)
			if !e.presumed.Full() {
				e.setState(DispData)
			}
		}
	case Terminated:
	}
}

// applyRequest clears the listed indices only. Unlisted ones keep their
// state, so a truncated request stays correct.
func (e *Encoder) applyRequest(r *packet.RequestFrame) {
	e.metrics.RxRequests.Add(1)
	for _, i := range r.Missing {
		if i >= e.packetCount {
			log.Warnf("Encoder skips requested index %d, only %d packets", i, e.packetCount)
			continue
		}
		e.presumed.Clear(i)
	}
}

func (e *Encoder) output() (image.Image, error) {
	switch e.state {
	case DispStart:
		if e.startImage == nil {
			img, err := e.encode(&packet.StartFrame{PacketSize: e.packetSize, PacketCount: e.packetCount})
			if err != nil {
				return nil, err
			}
			e.startImage = img
		}
		return e.startImage, nil
	case DispData:
		if idx, ok := e.presumed.FirstMissing(); ok {
			return e.showData(idx)
		}
		if e.lastData != nil {
			return e.lastData, nil
		}
	}
	if e.endImage == nil {
		img, err := e.encode(&packet.EndFrame{})
		if err != nil {
			return nil, err
		}
		e.endImage = img
	}
	return e.endImage, nil
}

func (e *Encoder) showData(idx uint32) (image.Image, error) {
	content := e.part.GetPayloadByPacketIndex(int(idx))
	img, err := e.encode(&packet.DataFrame{Index: idx, Content: content})
	if err != nil {
		return nil, err
	}
	e.presumed.Mark(idx)
	if e.transmitted.IsSet(idx) {
		e.metrics.Retransfers.Add(1)
		log.Debugf("Encoder retransfers packet %d", idx)
	} else {
		e.transmitted.Mark(idx)
	}
	e.metrics.TxDataFrames.Add(1)
	e.metrics.TxPayloadBytes.Add(uint64(len(content)))
	e.lastData = img
	return img, nil
}

func (e *Encoder) encode(f packet.Frame) (image.Image, error) {
	buf, err := e.packer.Pack(f)
	if err != nil {
		return nil, fmt.Errorf("encoder: pack %s: %w", f, err)
	}
	img, err := e.codec.Encode(buf)
	if err != nil {
		return nil, fmt.Errorf("encoder: encode %s: %w", f, err)
	}
	return img, nil
}
