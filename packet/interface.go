package packet

// FramePacker turns frames into the bytes handed to the optical codec and
// back. Both ends of a transfer must use the same packer.
type FramePacker interface {
	GetHeaderLen() int
	Pack(f Frame) ([]byte, error)
	Unpack(buf []byte) (Frame, error)
}
