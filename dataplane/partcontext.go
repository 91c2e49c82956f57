package dataplane

import (
	"github.com/netsys-lab/optics/utils"
	log "github.com/sirupsen/logrus"
)

// PartContext holds the payload of one transfer cut into packets of
// PacketSize bytes. The sender fills Data up front, the receiver fills it
// packet by packet.
type PartContext struct {
	PacketSize int
	NumPackets int
	Data       []byte
	// The highest offset written by SetPayloadByPacketIndex. The last packet
	// may be short, so the received payload ends here rather than at
	// NumPackets * PacketSize.
	HighWatermark int
}

// NewSendContext copies data so later changes by the caller do not leak
// into the transfer.
func NewSendContext(data []byte, packetSize int) *PartContext {
	b := &PartContext{
		PacketSize: packetSize,
		Data:       append([]byte(nil), data...),
	}
	b.Prepare()
	return b
}

func NewReceiveContext(packetSize, numPackets int) *PartContext {
	b := &PartContext{
		PacketSize: packetSize,
		NumPackets: numPackets,
		Data:       make([]byte, packetSize*numPackets),
	}
	log.Debugf("Allocated receive buffer of %s for %d packets", utils.ByteCountSI(int64(len(b.Data))), numPackets)
	return b
}

func (b *PartContext) Prepare() {
	b.NumPackets = utils.CeilForceInt(len(b.Data), b.PacketSize)
	b.HighWatermark = len(b.Data)
	log.Debugf("Having NumPackets %d = len(b.Data) %d / b.PacketSize %d", b.NumPackets, len(b.Data), b.PacketSize)
}

func (b *PartContext) GetPayloadByPacketIndex(i int) []byte {
	partStart := i * b.PacketSize
	end := utils.Min(partStart+b.PacketSize, len(b.Data))
	return b.Data[partStart:end]
}

// SetPayloadByPacketIndex copies payload to the offset of packet i. The
// caller validates i and len(payload) against NumPackets and PacketSize.
func (b *PartContext) SetPayloadByPacketIndex(i int, payload []byte) {
	partStart := i * b.PacketSize
	copy(b.Data[partStart:partStart+len(payload)], payload)
	b.HighWatermark = utils.Max(b.HighWatermark, partStart+len(payload))
}

// Payload returns the bytes up to the high watermark.
func (b *PartContext) Payload() []byte {
	return b.Data[:b.HighWatermark]
}
