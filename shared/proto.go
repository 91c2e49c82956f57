package shared

const (
	OPTICS_MSG_START   = 1 // Handshake, announces packet size and count
	OPTICS_MSG_DATA    = 2 // One packet of the payload
	OPTICS_MSG_END     = 3 // Sender believes everything was delivered
	OPTICS_MSG_REQUEST = 4 // Receiver lists the packets it is missing
)

const (
	MASK_FLAGS_ACK = 0b00000001
)

const (
	OPTICS_VERSION = 1
	HEADER_LEN     = 4
)

func AddAckFlag(flags uint8, ack bool) uint8 {
	if ack {
		return flags | MASK_FLAGS_ACK
	}
	return flags &^ MASK_FLAGS_ACK
}

func HasAckFlag(flags uint8) bool {
	return flags&MASK_FLAGS_ACK != 0
}

// KindName is used for log output only.
func KindName(kind uint8) string {
	switch kind {
	case OPTICS_MSG_START:
		return "start"
	case OPTICS_MSG_DATA:
		return "data"
	case OPTICS_MSG_END:
		return "end"
	case OPTICS_MSG_REQUEST:
		return "request"
	}
	return "unknown"
}
