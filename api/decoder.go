package api

import (
	"errors"
	"fmt"
	"image"

	"github.com/netsys-lab/optics/dataplane"
	"github.com/netsys-lab/optics/optics"
	"github.com/netsys-lab/optics/packet"
	"github.com/netsys-lab/optics/tracker"
	"github.com/netsys-lab/optics/utils"
	log "github.com/sirupsen/logrus"
)

const (
	DEFAULT_MAX_PAYLOAD_SIZE = 256 * 1024 * 1024
)

type DecoderState int

const (
	WaitingForStart DecoderState = iota
	Receiving
	Complete
)

func (s DecoderState) String() string {
	switch s {
	case WaitingForStart:
		return "WaitingForStart"
	case Receiving:
		return "Receiving"
	case Complete:
		return "Complete"
	}
	return fmt.Sprintf("DecoderState(%d)", int(s))
}

type DecoderOptions struct {
	// Caps the indices listed in one request so it fits a single frame.
	// Zero lists all of them.
	MaxRequestIndices int
	// Largest buffer a start frame may ask for, in bytes
	MaxPayloadSize uint64
	Packer         packet.FramePacker
}

func DefaultDecoderOptions() *DecoderOptions {
	return &DecoderOptions{
		MaxPayloadSize: DEFAULT_MAX_PAYLOAD_SIZE,
		Packer:         packet.NewBinaryFramePacker(),
	}
}

// Decoder is the receiving side of a transfer. Every scanned image goes into
// ConsumeImage, which answers with at most one image to show back to the
// sender.
type Decoder struct {
	codec       optics.Codec
	packer      packet.FramePacker
	options     DecoderOptions
	state       DecoderState
	packetSize  uint32
	packetCount uint32
	received    *tracker.Tracker
	part        *dataplane.PartContext
	result      []byte
	err         error
	metrics     *dataplane.Metrics
}

func NewDecoder(codec optics.Codec, options *DecoderOptions) *Decoder {
	opts := DefaultDecoderOptions()
	if options != nil {
		opts.MaxRequestIndices = options.MaxRequestIndices
		if options.MaxPayloadSize > 0 {
			opts.MaxPayloadSize = options.MaxPayloadSize
		}
		if options.Packer != nil {
			opts.Packer = options.Packer
		}
	}
	return &Decoder{
		codec:   codec,
		packer:  opts.Packer,
		options: *opts,
		state:   WaitingForStart,
		metrics: dataplane.NewMetrics(),
	}
}

func (d *Decoder) State() DecoderState {
	return d.state
}

// PacketSize is zero until a start frame was accepted.
func (d *Decoder) PacketSize() uint32 {
	return d.packetSize
}

func (d *Decoder) PacketCount() uint32 {
	return d.packetCount
}

func (d *Decoder) Metrics() *dataplane.Metrics {
	return d.metrics
}

// Result returns the payload once every packet arrived. The slice does not
// change afterwards.
func (d *Decoder) Result() ([]byte, bool) {
	return d.result, d.result != nil
}

// ConsumeImage processes one scanned image. A nil image means there is
// nothing to show back. After the first fatal error every call returns it.
func (d *Decoder) ConsumeImage(img image.Image) (image.Image, error) {
	if d.err != nil {
		return nil, d.err
	}

	raw, err := d.codec.Decode(img)
	if err != nil {
		if errors.Is(err, optics.ErrNotDecodable) {
			d.metrics.RxUndecodable.Add(1)
			return nil, nil
		}
		return nil, d.fail(fmt.Errorf("decoder: scan image: %w", err))
	}
	f, err := d.packer.Unpack(raw)
	if err != nil {
		return nil, d.fail(fmt.Errorf("decoder: unpack frame: %w", err))
	}
	d.metrics.RxFrames.Add(1)

	reply, err := d.handleFrame(f)
	if err != nil {
		return nil, d.fail(err)
	}
	if reply == nil {
		return nil, nil
	}

	if r, ok := reply.(*packet.RequestFrame); ok {
		return d.encodeRequest(r), nil
	}
	out, err := d.encode(reply)
	if err != nil {
		return nil, d.fail(err)
	}
	d.metrics.TxFrames.Add(1)
	return out, nil
}

func (d *Decoder) encode(f packet.Frame) (image.Image, error) {
	buf, err := d.packer.Pack(f)
	if err != nil {
		return nil, fmt.Errorf("decoder: pack %s: %w", f, err)
	}
	out, err := d.codec.Encode(buf)
	if err != nil {
		return nil, fmt.Errorf("decoder: encode %s: %w", f, err)
	}
	return out, nil
}

// encodeRequest halves the missing list until the request fits one frame.
// The sender only clears listed indices, so a shorter list stays correct.
// A request that does not fit at all is skipped, the next one may.
func (d *Decoder) encodeRequest(r *packet.RequestFrame) image.Image {
	for {
		out, err := d.encode(r)
		if err == nil {
			d.metrics.TxFrames.Add(1)
			d.metrics.TxRequests.Add(1)
			return out
		}
		if len(r.Missing) <= 1 {
			log.Warnf("Decoder skips request reply: %v", err)
			return nil
		}
		log.Debugf("Request for %d packets does not fit a frame, halving: %v", len(r.Missing), err)
		r = &packet.RequestFrame{Missing: r.Missing[:len(r.Missing)/2]}
	}
}

func (d *Decoder) fail(err error) error {
	log.Warnf("Decoder stopped in state %s: %v", d.state, err)
	d.err = err
	return err
}

func (d *Decoder) handleFrame(f packet.Frame) (packet.Frame, error) {
	switch f := f.(type) {
	case *packet.StartFrame:
		return d.handleStart(f)
	case *packet.DataFrame:
		return d.handleData(f)
	case *packet.EndFrame:
		return d.handleEnd(f), nil
	case *packet.RequestFrame:
		log.Debugf("Decoder ignores %s", f)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %T", packet.ErrUnknownFrameKind, f)
}

func (d *Decoder) handleStart(f *packet.StartFrame) (packet.Frame, error) {
	if f.Ack {
		log.Debugf("Decoder ignores %s", f)
		return nil, nil
	}
	if d.state != WaitingForStart {
		if f.PacketSize == d.packetSize && f.PacketCount == d.packetCount {
			// The sender missed our ack, echo it again.
			return &packet.StartFrame{Ack: true, PacketSize: d.packetSize, PacketCount: d.packetCount}, nil
		}
		log.Warnf("Decoder ignores %s, transfer already started with size %d count %d", f, d.packetSize, d.packetCount)
		return nil, nil
	}

	if f.PacketSize == 0 && f.PacketCount > 0 {
		return nil, fmt.Errorf("%w: %s announces packets of size 0", ErrProtocolViolation, f)
	}
	if total := uint64(f.PacketSize) * uint64(f.PacketCount); total > d.options.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %s needs %s, limit is %s", ErrProtocolViolation, f,
			utils.ByteCountSI(int64(total)), utils.ByteCountSI(int64(d.options.MaxPayloadSize)))
	}

	d.packetSize = f.PacketSize
	d.packetCount = f.PacketCount
	d.received = tracker.New(f.PacketCount)
	d.part = dataplane.NewReceiveContext(int(f.PacketSize), int(f.PacketCount))
	d.state = Receiving
	d.checkComplete()
	log.Debugf("Decoder accepted %s, now %s", f, d.state)
	return &packet.StartFrame{Ack: true, PacketSize: d.packetSize, PacketCount: d.packetCount}, nil
}

func (d *Decoder) handleData(f *packet.DataFrame) (packet.Frame, error) {
	if d.state == WaitingForStart {
		log.Debugf("Decoder ignores %s before start", f)
		return nil, nil
	}
	if f.Index >= d.packetCount {
		return nil, fmt.Errorf("%w: %s beyond packet count %d", ErrProtocolViolation, f, d.packetCount)
	}
	if uint64(len(f.Content)) > uint64(d.packetSize) {
		return nil, fmt.Errorf("%w: %s exceeds packet size %d", ErrProtocolViolation, f, d.packetSize)
	}

	d.metrics.RxDataFrames.Add(1)
	if d.received.IsSet(f.Index) {
		d.metrics.DuplicateData.Add(1)
	} else {
		d.part.SetPayloadByPacketIndex(int(f.Index), f.Content)
		d.received.Mark(f.Index)
		d.metrics.RxPayloadBytes.Add(uint64(len(f.Content)))
	}

	if d.checkComplete() {
		return nil, nil
	}
	return d.request(), nil
}

func (d *Decoder) handleEnd(f *packet.EndFrame) packet.Frame {
	if f.Ack || d.state == WaitingForStart {
		log.Debugf("Decoder ignores %s in state %s", f, d.state)
		return nil
	}
	if !d.checkComplete() {
		return d.request()
	}
	if d.state != Complete {
		log.Debugf("Decoder completed with %d bytes", len(d.result))
		d.state = Complete
	}
	return &packet.EndFrame{Ack: true}
}

// checkComplete fixes the result the first time every packet is present.
func (d *Decoder) checkComplete() bool {
	if !d.received.Full() {
		return false
	}
	if d.result == nil {
		d.result = d.part.Payload()
	}
	return true
}

func (d *Decoder) request() *packet.RequestFrame {
	missing := d.received.Missing()
	if d.options.MaxRequestIndices > 0 && len(missing) > d.options.MaxRequestIndices {
		missing = missing[:d.options.MaxRequestIndices]
	}
	return &packet.RequestFrame{Missing: missing}
}
