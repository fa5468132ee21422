package displaylist

import (
	"errors"
	"fmt"

	"github.com/taigrr/rasterix/pkg/commands"
)

// ErrResolution is returned when a resolution needs more display lines
// than the device provides.
var ErrResolution = errors.New("resolution exceeds display lines")

// Line describes one display line: a horizontal band of the screen that
// the device renders in a single pass.
type Line struct {
	Index int
	Lines int
	ResX  int
	ResY  int
}

// Start is the first screen row of the line.
func (l Line) Start() int { return l.Index * l.ResY }

// End is one past the last screen row of the line.
func (l Line) End() int { return (l.Index + 1) * l.ResY }

// Dispatcher routes commands to the per-line assemblers of the back list.
// Lines are visited from the last to the first.
type Dispatcher struct {
	buffers        *DoubleBuffer[[]*Assembler]
	framebufferPix int
	maxLines       int

	lines    int
	xRes     int
	yLineRes int
}

// NewDispatcher returns a dispatcher over buffers, each holding maxLines
// assemblers. framebufferPixels is the device's single pass capacity.
func NewDispatcher(buffers *DoubleBuffer[[]*Assembler], maxLines, framebufferPixels int) *Dispatcher {
	return &Dispatcher{
		buffers:        buffers,
		framebufferPix: framebufferPixels,
		maxLines:       maxLines,
		lines:          maxLines,
		xRes:           640,
		yLineRes:       128,
	}
}

// SetResolution splits an x by y frame into display lines.
func (d *Dispatcher) SetResolution(x, y int) error {
	if x <= 0 || y <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrResolution, x, y)
	}
	size := x * y
	lines := size / d.framebufferPix
	if size%d.framebufferPix != 0 {
		lines++
	}
	if lines > d.maxLines {
		return fmt.Errorf("%w: %dx%d needs %d lines, have %d", ErrResolution, x, y, lines, d.maxLines)
	}
	d.yLineRes = y / lines
	d.xRes = x
	d.lines = lines
	return nil
}

// Lines returns the number of active display lines.
func (d *Dispatcher) Lines() int { return d.lines }

// XResolution returns the frame width.
func (d *Dispatcher) XResolution() int { return d.xRes }

// YLineResolution returns the height of one display line.
func (d *Dispatcher) YLineResolution() int { return d.yLineRes }

// SingleList reports whether the device renders a frame in one pass.
func (d *Dispatcher) SingleList() bool { return d.maxLines == 1 }

func (d *Dispatcher) line(i int) Line {
	return Line{Index: i, Lines: d.lines, ResX: d.xRes, ResY: d.yLineRes}
}

// Back returns the back assembler of line i.
func (d *Dispatcher) Back(i int) *Assembler { return d.buffers.Back()[i] }

// AddCommand appends cmd to line i.
func (d *Dispatcher) AddCommand(i int, cmd commands.Command) bool {
	return d.Back(i).AddCommand(cmd)
}

// AddCommandAll appends cmd to every line.
func (d *Dispatcher) AddCommandAll(cmd commands.Command) bool {
	for i := d.lines - 1; i >= 0; i-- {
		if !d.AddCommand(i, cmd) {
			return false
		}
	}
	return true
}

// AddLastCommand appends cmd to the line visited last.
func (d *Dispatcher) AddLastCommand(cmd commands.Command) bool {
	return d.AddCommand(0, cmd)
}

// AddCommandWithFactory asks f for a command per line. Lines for which f
// returns false are skipped.
func (d *Dispatcher) AddCommandWithFactory(f func(Line) (commands.Command, bool)) bool {
	for i := d.lines - 1; i >= 0; i-- {
		cmd, ok := f(d.line(i))
		if !ok {
			continue
		}
		if !d.AddCommand(i, cmd) {
			return false
		}
	}
	return true
}

// AddDSECommandWithFactory is AddCommandWithFactory for DSE commands.
func (d *Dispatcher) AddDSECommandWithFactory(f func(Line) (commands.DSECommand, bool)) bool {
	for i := d.lines - 1; i >= 0; i-- {
		cmd, ok := f(d.line(i))
		if !ok {
			continue
		}
		if !d.Back(i).AddDSECommand(cmd) {
			return false
		}
	}
	return true
}

// BeginFrame opens a stream section on every line.
func (d *Dispatcher) BeginFrame() {
	for i := range d.lines {
		d.Back(i).Begin()
	}
}

// EndFrame closes the stream section on every line.
func (d *Dispatcher) EndFrame() {
	for i := range d.lines {
		d.Back(i).End()
	}
}

// SaveSectionStart marks a removable section on every line.
func (d *Dispatcher) SaveSectionStart() {
	for i := range d.lines {
		d.Back(i).SaveSectionStart()
	}
}

// RemoveSection blanks the marked section on every line.
func (d *Dispatcher) RemoveSection() {
	for i := range d.lines {
		d.Back(i).RemoveSection()
	}
}

// Clear empties every back assembler, including inactive lines.
func (d *Dispatcher) Clear() {
	for _, a := range d.buffers.Back() {
		a.Clear()
	}
}
