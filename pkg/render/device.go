package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// Stats counts the work the device executed.
type Stats struct {
	Lists     int // display lists executed
	Commands  int // RRX commands executed
	Triangles int // triangle descriptors walked
	Fragments int // fragments written
	Memsets   int
	Swaps     int
	Stores    int // memory store transfers
}

type tmuState struct {
	conf  registers.TmuTexture
	env   registers.TexEnv
	color registers.Color
	pages []uint32
	tex   *Texture // decoded on first use
}

// Device executes display lists on a software model of the rasterizer.
// Its buffers have the maximum display size; the color buffer in use is
// selected by address. It implements bus.Sink and is safe for concurrent
// use.
type Device struct {
	mu  sync.Mutex
	cfg config.RenderConfig
	dec commands.Decoder

	gram map[uint32][]byte // page aligned blocks

	feature    registers.FeatureEnable
	frag       registers.FragmentPipeline
	stencil    registers.Stencil
	clearColor registers.Color
	clearDepth uint16
	fogColor   registers.Color
	fog        fogLut
	scissorMin image.Point
	scissorMax image.Point
	resX       int
	lineHeight int
	yOffset    int
	maxYOffset int // start of the highest display line this frame
	tmus       []tmuState

	setup  *renderer.Rasterizer // triangle setup for pushed vertices
	queue  renderer.TransformedTriangle
	queued int

	colorAddr   uint32
	colors      map[uint32]*Framebuffer
	depth       []uint16
	stencilBuf  []uint8
	front       *Framebuffer
	frontHeight int

	stats Stats
}

// NewDevice returns a device with the register reset values.
func NewDevice(cfg config.RenderConfig) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, h := cfg.MaxDisplayWidth, cfg.MaxDisplayHeight
	d := &Device{
		cfg:        cfg,
		dec:        commands.Decoder{TMUs: cfg.TMUCount},
		gram:       make(map[uint32][]byte),
		frag:       registers.DefaultFragmentPipeline(),
		stencil:    registers.DefaultStencil(),
		scissorMax: image.Pt(w, h),
		resX:       w,
		lineHeight: h,
		tmus:       make([]tmuState, cfg.TMUCount),
		colors:     make(map[uint32]*Framebuffer),
		depth:      make([]uint16, w*h),
		stencilBuf: make([]uint8, w*h),
		setup:      renderer.NewRasterizer(cfg.TMUCount, !cfg.UseFloatInterpolation),
	}
	for i := range d.tmus {
		d.tmus[i].conf = registers.DefaultTmuTexture(i)
		d.tmus[i].env = registers.DefaultTexEnv(i)
	}
	d.fog = decodeFogLut(commands.NewFogLut([33]float64{}, 0, 0).Payload())
	return d, nil
}

// Execute runs one uploaded display list.
func (d *Device) Execute(data []byte) error {
	entries, err := d.dec.Decode(data)
	if err != nil {
		return fmt.Errorf("decode display list: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Lists++
	d.queued = 0
	for _, e := range entries {
		t := e.Transfer
		switch t.Op {
		case commands.DSEOpStream:
			for _, c := range e.Commands {
				if err := d.exec(c); err != nil {
					return err
				}
			}
		case commands.DSEOpStore:
			d.store(t.Addr, t.Payload)
		default:
			logging.Logger().Debug("dse transfer", "op", fmt.Sprintf("%#x", t.Op), "addr", t.Addr, "bytes", t.Len)
		}
	}
	return nil
}

func (d *Device) exec(c commands.Decoded) error {
	d.stats.Commands++
	switch c.Op() {
	case commands.OpNop:
	case commands.OpWriteRegister:
		d.writeRegister(c.Header&commands.ImmMask, c.Payload[0])
	case commands.OpFramebuffer:
		d.framebuffer(c.Header & commands.ImmMask)
	case commands.OpTriangleStream:
		desc, err := commands.DecodeTriangle(c.Payload, d.cfg.TMUCount, d.cfg.UseFloatInterpolation)
		if err != nil {
			return err
		}
		d.drawTriangle(desc)
	case commands.OpPushVertex:
		return d.pushVertex(c.Payload)
	case commands.OpFogLut:
		d.fog = decodeFogLut(c.Payload)
	case commands.OpTextureStream:
		tmu := int(c.Header >> commands.TextureStreamTMUPos & 0x1)
		if tmu < len(d.tmus) {
			d.tmus[tmu].pages = append(d.tmus[tmu].pages[:0], c.Payload...)
			d.tmus[tmu].tex = nil
		}
	default:
		return fmt.Errorf("%w: opcode %#x", commands.ErrMalformed, c.Op())
	}
	return nil
}

func (d *Device) writeRegister(addr, v uint32) {
	switch {
	case addr == registers.AddrFeatureEnable:
		d.feature = registers.DeserializeFeatureEnable(v)
	case addr == registers.AddrColorBufferClearColor:
		d.clearColor = registers.DeserializeColor(v)
	case addr == registers.AddrDepthBufferClearDepth:
		d.clearDepth = uint16(v)
	case addr == registers.AddrFragmentPipeline:
		d.frag = registers.DeserializeFragmentPipeline(v)
	case addr == registers.AddrStencil:
		d.stencil = registers.DeserializeStencil(v)
	case addr == registers.AddrScissorStart:
		x, y := registers.DeserializeXY(v)
		d.scissorMin = image.Pt(int(x), int(y))
	case addr == registers.AddrScissorEnd:
		x, y := registers.DeserializeXY(v)
		d.scissorMax = image.Pt(int(x), int(y))
	case addr == registers.AddrYOffset:
		_, y := registers.DeserializeXY(v)
		d.yOffset = int(y)
		d.maxYOffset = max(d.maxYOffset, d.yOffset)
	case addr == registers.AddrRenderResolution:
		x, y := registers.DeserializeXY(v)
		d.resX = min(int(x), d.cfg.MaxDisplayWidth)
		d.lineHeight = min(int(y), d.cfg.MaxDisplayHeight)
	case addr == registers.AddrFogColor:
		d.fogColor = registers.DeserializeColor(v)
	case addr == registers.AddrColorBufferAddr:
		d.colorAddr = v
	case addr == registers.AddrDepthBufferAddr, addr == registers.AddrStencilBufferAddr:
		// One depth and one stencil buffer are modeled.
	case addr >= registers.AddrTexEnv:
		d.writeTMURegister(addr, v)
	default:
		logging.Logger().Debug("unknown register", "addr", addr, "value", v)
	}
}

func (d *Device) writeTMURegister(addr, v uint32) {
	tmu := int((addr - registers.AddrTexEnv) / registers.TMUOffset)
	if tmu >= len(d.tmus) {
		return
	}
	t := &d.tmus[tmu]
	switch addr - uint32(tmu)*registers.TMUOffset {
	case registers.AddrTexEnv:
		t.env = registers.DeserializeTexEnv(tmu, v)
	case registers.AddrTexEnvColor:
		t.color = registers.DeserializeColor(v)
	case registers.AddrTmuTexture:
		t.conf = registers.DeserializeTmuTexture(tmu, v)
		t.tex = nil
	}
}

// store writes a memory transfer into texture memory.
func (d *Device) store(addr uint32, data []byte) {
	d.stats.Stores++
	size := uint32(d.cfg.TexturePageSize)
	for len(data) > 0 {
		base := addr - addr%size
		page, ok := d.gram[base]
		if !ok {
			page = make([]byte, size)
			d.gram[base] = page
		}
		n := copy(page[addr-base:], data)
		data = data[n:]
		addr += uint32(n)
	}
	for i := range d.tmus {
		d.tmus[i].tex = nil
	}
}

// texture returns the decoded texture of tmu.
func (d *Device) texture(tmu int) *Texture {
	t := &d.tmus[tmu]
	if t.tex != nil {
		return t.tex
	}
	var data []byte
	for _, addr := range t.pages {
		page, ok := d.gram[addr]
		if !ok {
			page = make([]byte, d.cfg.TexturePageSize)
		}
		data = append(data, page...)
	}
	t.tex = newTexture(t.conf, data)
	return t.tex
}

func (d *Device) colorBuffer() *Framebuffer {
	fb, ok := d.colors[d.colorAddr]
	if !ok {
		fb = NewFramebuffer(d.cfg.MaxDisplayWidth, d.cfg.MaxDisplayHeight)
		d.colors[d.colorAddr] = fb
	}
	return fb
}

// framebuffer executes a framebuffer command on the current display line.
func (d *Device) framebuffer(op uint32) {
	if op&commands.FramebufferMemset != 0 {
		d.memset(op)
	}
	if op&commands.FramebufferSwap != 0 && op&commands.FramebufferSelectColor != 0 {
		d.stats.Swaps++
		d.front = d.colorBuffer().Clone()
		d.frontHeight = d.maxYOffset + d.lineHeight
		d.maxYOffset = 0
	}
}

// memset clears the selected buffers within the current display line and,
// with scissor enabled, the scissor box.
func (d *Device) memset(op uint32) {
	d.stats.Memsets++
	area := image.Rect(0, d.yOffset, d.resX, d.yOffset+d.lineHeight)
	if d.feature.Scissor {
		area = area.Intersect(image.Rectangle{Min: d.scissorMin, Max: d.scissorMax})
	}
	fb := d.colorBuffer()
	area = area.Intersect(image.Rect(0, 0, fb.Width, fb.Height))
	if op&commands.FramebufferSelectColor != 0 {
		c := d.clearColor
		fb.ClearRect(area, color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			i := y*fb.Width + x
			if op&commands.FramebufferSelectDepth != 0 {
				d.depth[i] = d.clearDepth
			}
			if op&commands.FramebufferSelectStencil != 0 {
				d.stencilBuf[i] = d.stencil.ClearStencil
			}
		}
	}
}

// Frame returns the last presented frame with row 0 at the top, or nil
// before the first swap.
func (d *Device) Frame() *Framebuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.front == nil {
		return nil
	}
	w, h := d.resX, min(d.frontHeight, d.front.Height)
	if h <= 0 {
		h = d.front.Height
	}
	out := NewFramebuffer(w, h)
	for y := range h {
		copy(out.Pixels[y*w:(y+1)*w], d.front.Pixels[(h-1-y)*d.front.Width:])
	}
	return out
}

// Depth returns the depth buffer value at x, y counted from the bottom.
func (d *Device) Depth(x, y int) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth[y*d.cfg.MaxDisplayWidth+x]
}

// Stencil returns the stencil buffer value at x, y counted from the bottom.
func (d *Device) Stencil(x, y int) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stencilBuf[y*d.cfg.MaxDisplayWidth+x]
}

// Stats returns the work counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func toVec(c registers.Color) math3d.Vec4 {
	return math3d.V4(float64(c.R), float64(c.G), float64(c.B), float64(c.A)).Scale(1.0 / 255)
}

func toRGBA(v math3d.Vec4) color.RGBA {
	c := v.Clamp(0, 1).Scale(255)
	return color.RGBA{R: uint8(c.X + 0.5), G: uint8(c.Y + 0.5), B: uint8(c.Z + 0.5), A: uint8(c.W + 0.5)}
}
