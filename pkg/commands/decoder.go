package commands

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is returned for streams that cannot be decoded.
var ErrMalformed = errors.New("malformed command stream")

// Decoded is one RRX command read back from a stream.
type Decoded struct {
	Header  uint32
	Payload []uint32
}

// Op returns the opcode of the command.
func (d Decoded) Op() uint32 { return d.Header & OpMask }

// Entry is one DSE transfer read back from a display list. Stream entries
// carry their decoded RRX commands.
type Entry struct {
	Transfer Transfer
	Commands []Decoded
}

// Decoder parses display lists. TMUs must match the encoder's TMU count.
type Decoder struct {
	TMUs int
}

// Decode parses a display list into DSE entries. Zero words between
// entries are removed sections and are skipped.
func (d Decoder) Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	for pos := 0; pos < len(data); {
		if len(data)-pos < 4 {
			return entries, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-pos)
		}
		w := binary.LittleEndian.Uint32(data[pos:])
		if w == DSEOpNop {
			pos += 4
			continue
		}
		if len(data)-pos < DSEHeaderSize {
			return entries, fmt.Errorf("%w: truncated dse header at %d", ErrMalformed, pos)
		}
		t := Transfer{
			Op:   w & OpMask,
			Len:  w & ImmMask,
			Addr: binary.LittleEndian.Uint32(data[pos+4:]),
		}
		pos += DSEHeaderSize
		e := Entry{Transfer: t}
		switch t.Op {
		case DSEOpStream:
			end := pos + int(t.Len)
			if end > len(data) {
				return entries, fmt.Errorf("%w: stream of %d bytes exceeds list", ErrMalformed, t.Len)
			}
			cmds, err := d.DecodeStream(data[pos:end])
			if err != nil {
				return entries, err
			}
			e.Commands = cmds
			pos = end
		case DSEOpStore:
			end := pos + int(t.Len)
			if end > len(data) {
				return entries, fmt.Errorf("%w: store of %d bytes exceeds list", ErrMalformed, t.Len)
			}
			e.Transfer.Payload = data[pos:end]
			pos = end
		case DSEOpLoad, DSEOpCommitToStream, DSEOpCommitToMemory, DSEOpStreamFromMemory:
		default:
			return entries, fmt.Errorf("%w: unknown dse op %#x", ErrMalformed, t.Op)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeStream parses RRX commands.
func (d Decoder) DecodeStream(data []byte) ([]Decoded, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: stream length %d not word aligned", ErrMalformed, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	var cmds []Decoded
	for pos := 0; pos < len(words); {
		h := words[pos]
		pos++
		n, err := d.payloadWords(h)
		if err != nil {
			return cmds, err
		}
		if pos+n > len(words) {
			return cmds, fmt.Errorf("%w: command %#x needs %d words, %d left", ErrMalformed, h, n, len(words)-pos)
		}
		cmds = append(cmds, Decoded{Header: h, Payload: words[pos : pos+n]})
		pos += n
	}
	return cmds, nil
}

func (d Decoder) payloadWords(h uint32) (int, error) {
	switch h & OpMask {
	case OpNop, OpFramebuffer:
		return 0, nil
	case OpWriteRegister:
		return 1, nil
	case OpTriangleStream, OpPushVertex:
		return int(h&ImmMask) / 4, nil
	case OpFogLut:
		return FogLutSize, nil
	case OpTextureStream:
		return int(h & TextureStreamSizeMask), nil
	}
	return 0, fmt.Errorf("%w: unknown opcode %#x", ErrMalformed, h&OpMask)
}

// AppendCommand appends the little-endian encoding of cmd to buf.
func AppendCommand(buf []byte, cmd Command) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, cmd.Header())
	for _, w := range cmd.Payload() {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}
