package displaylist

import (
	"encoding/binary"

	"github.com/taigrr/rasterix/pkg/commands"
)

// Assembler writes RRX commands into DSE stream sections and DSE commands
// between them. RRX commands open a section on demand; a DSE command or End
// closes it and patches its length.
type Assembler struct {
	list List

	open        bool
	streamHdr   int
	streamStart int

	optimize bool
	texFlag  []bool
	texPos   []int
	texSize  []int
}

// NewAssembler returns an assembler for tmus TMUs. With optimize set, a
// texture stream that replaces an earlier one for the same TMU, with no
// triangle in between, blanks the earlier one.
func NewAssembler(tmus int, optimize bool) *Assembler {
	return &Assembler{
		optimize: optimize,
		texFlag:  make([]bool, tmus),
		texPos:   make([]int, tmus),
		texSize:  make([]int, tmus),
	}
}

// SetBuffer attaches the bus buffer and clears the assembler.
func (a *Assembler) SetBuffer(buf []byte) {
	a.list.SetBuffer(buf)
	a.Clear()
}

// Clear drops all content and resets the optimizer.
func (a *Assembler) Clear() {
	a.list.Clear()
	a.open = false
	clear(a.texFlag)
}

// List returns the underlying list.
func (a *Assembler) List() *List { return &a.list }

// Bytes returns the assembled display list.
func (a *Assembler) Bytes() []byte { return a.list.Bytes() }

// Size returns the assembled size in bytes.
func (a *Assembler) Size() int { return a.list.Size() }

// SaveSectionStart marks the start of a removable section.
func (a *Assembler) SaveSectionStart() { a.list.SaveSectionStart() }

// RemoveSection blanks everything written since SaveSectionStart.
func (a *Assembler) RemoveSection() { a.list.RemoveSection() }

// Begin opens a stream section. It reports false if the list is full.
func (a *Assembler) Begin() bool {
	if a.open {
		return true
	}
	hdr := a.list.Alloc(commands.DSEHeaderSize)
	if hdr == nil {
		return false
	}
	clear(hdr)
	a.open = true
	a.streamHdr = a.list.WritePos() - commands.DSEHeaderSize
	a.streamStart = a.list.WritePos()
	return true
}

// End closes the open stream section, if any.
func (a *Assembler) End() {
	if !a.open {
		return
	}
	n := uint32(a.list.WritePos() - a.streamStart)
	binary.LittleEndian.PutUint32(a.list.mem[a.streamHdr:], commands.DSEOpStream|n)
	binary.LittleEndian.PutUint32(a.list.mem[a.streamHdr+4:], 0)
	a.open = false
}

// AddCommand appends an RRX command. It reports false without writing
// anything when the command does not fit.
func (a *Assembler) AddCommand(cmd commands.Command) bool {
	need := commands.Size(cmd)
	if !a.open {
		need += commands.DSEHeaderSize
	}
	if need >= a.list.FreeSpace() {
		return false
	}
	if !a.Begin() {
		return false
	}
	if a.optimize {
		a.optimizeTextureLoad(cmd)
	}
	buf := a.list.Alloc(commands.Size(cmd))
	binary.LittleEndian.PutUint32(buf, cmd.Header())
	for i, w := range cmd.Payload() {
		binary.LittleEndian.PutUint32(buf[4+4*i:], w)
	}
	return true
}

func (a *Assembler) optimizeTextureLoad(cmd commands.Command) {
	switch c := cmd.(type) {
	case commands.TriangleStream, commands.PushVertex:
		clear(a.texFlag)
	case commands.TextureStream:
		if c.TMU < 0 || c.TMU >= len(a.texFlag) {
			return
		}
		if a.texFlag[c.TMU] {
			a.list.InitArea(a.texPos[c.TMU], a.texSize[c.TMU])
		}
		a.texFlag[c.TMU] = true
		a.texPos[c.TMU] = a.list.WritePos()
		a.texSize[c.TMU] = commands.Size(c)
	}
}

// AddDSECommand closes the open stream section and appends a DSE transfer.
// Store payloads are zero padded to the transfer length.
func (a *Assembler) AddDSECommand(cmd commands.DSECommand) bool {
	t := cmd.Transfer()
	if t.Op == commands.DSEOpNop {
		return true
	}
	if align(t.Size()) >= a.list.FreeSpace() {
		return false
	}
	a.End()
	hdr := a.list.Alloc(commands.DSEHeaderSize)
	binary.LittleEndian.PutUint32(hdr, t.Op|t.Len)
	binary.LittleEndian.PutUint32(hdr[4:], t.Addr)
	if t.Op == commands.DSEOpStore {
		dst := a.list.Alloc(int(t.Len))
		n := copy(dst, t.Payload)
		clear(dst[n:])
	}
	return true
}
