package commands

// DMA stream engine opcodes. A DSE header is two words: op|size and an
// address, optionally followed by size bytes of payload.
const (
	DSEOpNop              uint32 = 0x0000_0000
	DSEOpCommitToStream   uint32 = 0x6000_0000
	DSEOpStreamFromMemory uint32 = 0x7000_0000
	DSEOpStream           uint32 = 0x9000_0000
	DSEOpLoad             uint32 = 0xB000_0000
	DSEOpStore            uint32 = 0xD000_0000
	DSEOpCommitToMemory   uint32 = 0xE000_0000
)

// DeviceMinTransferSize is the smallest store the DSE accepts. Shorter
// payloads are zero padded, longer ones are padded to a word.
const DeviceMinTransferSize = 512

// DSEHeaderSize is the size of a DSE header in bytes.
const DSEHeaderSize = 8

// Transfer is a DSE transfer descriptor.
type Transfer struct {
	Op      uint32
	Len     uint32
	Addr    uint32
	Payload []byte
}

// Size returns the encoded size of the transfer in bytes.
func (t Transfer) Size() int {
	if t.Op == DSEOpStore {
		return DSEHeaderSize + int(t.Len)
	}
	return DSEHeaderSize
}

// DSECommand is a command executed by the DMA stream engine rather than
// the rasterizer.
type DSECommand interface {
	Transfer() Transfer
}

// WriteMemory stores data into device memory at addr.
type WriteMemory struct {
	Addr uint32
	Data []byte
}

func (c WriteMemory) Transfer() Transfer {
	return Transfer{
		Op:      DSEOpStore,
		Len:     uint32((max(len(c.Data), DeviceMinTransferSize) + 3) &^ 3),
		Addr:    c.Addr,
		Payload: c.Data,
	}
}

// StreamFromMemoryToDisplay scans a framebuffer in device memory out to the
// display without re-rendering it.
type StreamFromMemoryToDisplay struct {
	Addr uint32
	Size uint32
}

func (c StreamFromMemoryToDisplay) Transfer() Transfer {
	return Transfer{Op: DSEOpStreamFromMemory, Len: c.Size, Addr: c.Addr}
}

// CommitToMemory copies the internal framebuffer to device memory.
type CommitToMemory struct {
	Addr uint32
	Size uint32
}

func (c CommitToMemory) Transfer() Transfer {
	return Transfer{Op: DSEOpCommitToMemory, Len: c.Size, Addr: c.Addr}
}

// CommitToStream streams the internal framebuffer to the display.
type CommitToStream struct {
	Size uint32
}

func (c CommitToStream) Transfer() Transfer {
	return Transfer{Op: DSEOpCommitToStream, Len: c.Size}
}

// Stream forwards the next Len bytes of the list to the rasterizer.
type Stream struct {
	Len uint32
}

func (c Stream) Transfer() Transfer {
	return Transfer{Op: DSEOpStream, Len: c.Len}
}
