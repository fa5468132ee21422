package renderer

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/displaylist"
	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/threadrunner"
)

var (
	// ErrDisplayListFull is returned when a command does not fit into the
	// display list and the list cannot be flushed early.
	ErrDisplayListFull = errors.New("display list full")
	// ErrBus is returned when the connector offers too few buffers.
	ErrBus = errors.New("bus connector unusable")
)

// Stats counts work handed to the device.
type Stats struct {
	Triangles      int // Triangles that produced a descriptor
	TexturePages   int // Texture pages written to device memory
	DisplayLists   int // Display lists uploaded
	IntermediateUp int // Early flushes of a full single list
}

// Renderer owns the double-buffered display lists and the texture memory.
// It is not safe for concurrent use; only the upload runs on the runner.
type Renderer struct {
	cfg    config.RenderConfig
	bus    bus.Connector
	runner threadrunner.Runner

	textures   *TextureManager
	rasterizer *Rasterizer
	lists      *displaylist.DoubleBuffer[[]*displaylist.Assembler]
	dispatch   *displaylist.Dispatcher
	uploader   *displaylist.Assembler
	maxLines   int

	boundTextures     []uint16
	colorBufferAddr   uint32
	switchColorBuffer bool
	scissorEnabled    bool
	scissorYStart     int
	scissorYEnd       int

	stats Stats
}

// New returns a renderer writing into conn. A nil runner uploads inline.
func New(cfg config.RenderConfig, conn bus.Connector, runner threadrunner.Runner) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		runner = threadrunner.Single{}
	}
	lines := cfg.DisplayLines()
	if conn.BufferCount() < cfg.BusBufferCount() {
		return nil, fmt.Errorf("%w: %d buffers, need %d", ErrBus, conn.BufferCount(), cfg.BusBufferCount())
	}

	var sets [2][]*displaylist.Assembler
	for l := range sets {
		for i := range lines {
			a := displaylist.NewAssembler(cfg.TMUCount, true)
			a.SetBuffer(conn.RequestBuffer(i + lines*l))
			sets[l] = append(sets[l], a)
		}
	}
	r := &Renderer{
		cfg:               cfg,
		bus:               conn,
		runner:            runner,
		textures:          NewTextureManager(cfg.NumberOfTextures, cfg.NumberOfTexturePages, cfg.TexturePageSize, cfg.MaxPagesPerTexture()),
		rasterizer:        NewRasterizer(cfg.TMUCount, !cfg.UseFloatInterpolation),
		lists:             displaylist.NewDoubleBuffer(sets[0], sets[1]),
		uploader:          displaylist.NewAssembler(cfg.TMUCount, false),
		maxLines:          lines,
		boundTextures:     make([]uint16, cfg.TMUCount),
		switchColorBuffer: true,
	}
	r.uploader.SetBuffer(conn.RequestBuffer(conn.BufferCount() - 1))
	r.dispatch = displaylist.NewDispatcher(r.lists, lines, cfg.FramebufferSizeInPixel())
	if err := r.dispatch.SetResolution(cfg.MaxDisplayWidth, cfg.MaxDisplayHeight); err != nil {
		return nil, err
	}

	var errs []error
	errs = append(errs, r.beginFrame())
	switch cfg.FramebufferType {
	case config.InternalToMemory:
		errs = append(errs, r.setColorBufferAddress(cfg.ColorBufferLoc2))
	case config.ExternalMemoryDoubleBuffer, config.ExternalMemoryToStream:
		errs = append(errs,
			r.setColorBufferAddress(cfg.ColorBufferLoc1),
			r.writeReg(registers.DepthBufferAddr(cfg.DepthBufferLoc, cfg.GRAMMemoryLoc)),
			r.writeReg(registers.StencilBufferAddr(cfg.StencilBufferLoc, cfg.GRAMMemoryLoc)))
	}
	errs = append(errs, r.SetRenderResolution(cfg.MaxDisplayWidth, cfg.MaxDisplayHeight))
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Config returns the device configuration.
func (r *Renderer) Config() config.RenderConfig { return r.cfg }

// Stats returns the work counters.
func (r *Renderer) Stats() Stats { return r.stats }

// Finish waits for the display list upload in flight.
func (r *Renderer) Finish() error { return r.runner.Wait() }

// Close flushes the current frame, restores the primary color buffer and
// waits for the last upload.
func (r *Renderer) Close() error {
	errs := []error{r.setColorBufferAddress(r.cfg.ColorBufferLoc1)}
	errs = append(errs, r.SwapDisplayList(), r.UploadDisplayList(), r.runner.Wait())
	return errors.Join(errs...)
}

func (r *Renderer) writeReg(reg registers.Register) error {
	return r.addCommand(commands.WriteRegister{Reg: reg})
}

// addCommand appends cmd to every display line. A full single list is
// flushed to the device and the command retried.
func (r *Renderer) addCommand(cmd commands.Command) error {
	if r.dispatch.AddCommandAll(cmd) {
		return nil
	}
	if !r.dispatch.SingleList() {
		return ErrDisplayListFull
	}
	if err := r.intermediateUpload(); err != nil {
		return err
	}
	if !r.dispatch.AddCommandAll(cmd) {
		return ErrDisplayListFull
	}
	return nil
}

// DrawTriangle sets up tri and appends it to every display line it
// touches. Invisible triangles are dropped silently.
func (r *Renderer) DrawTriangle(tri *TransformedTriangle) error {
	desc, ok := r.rasterizer.Rasterize(tri)
	if !ok {
		return nil
	}
	r.stats.Triangles++
	if r.cfg.PushVertices {
		return r.pushTriangle(tri, &desc)
	}
	float := r.cfg.UseFloatInterpolation
	if r.dispatch.SingleList() {
		return r.addCommand(commands.TriangleStream{Desc: desc, Float: float})
	}
	ok = r.dispatch.AddCommandWithFactory(func(l displaylist.Line) (commands.Command, bool) {
		if !desc.InBounds(l.Start(), l.End()) {
			return nil, false
		}
		if float {
			return commands.TriangleStream{Desc: desc, Float: true}, true
		}
		inc := desc.Clone()
		inc.Increment(l.Start(), l.End())
		return commands.TriangleStream{Desc: inc}, true
	})
	if !ok {
		return ErrDisplayListFull
	}
	return nil
}

// waitClearToSend blocks until the bus accepts another transfer, yielding
// to the scheduler while it waits.
func (r *Renderer) waitClearToSend() {
	for !r.bus.ClearToSend() {
		runtime.Gosched()
	}
}

// pushTriangle sends the vertices of tri to the lines its bounding box
// touches. The three vertices always end up in the same display list.
func (r *Renderer) pushTriangle(tri *TransformedTriangle, bounds *commands.TriangleDesc) error {
	if r.addVertices(tri, bounds) {
		return nil
	}
	if !r.dispatch.SingleList() {
		return ErrDisplayListFull
	}
	if err := r.intermediateUpload(); err != nil {
		return err
	}
	if !r.addVertices(tri, bounds) {
		return ErrDisplayListFull
	}
	return nil
}

func (r *Renderer) addVertices(tri *TransformedTriangle, bounds *commands.TriangleDesc) bool {
	r.dispatch.SaveSectionStart()
	for i := range tri.Vertex {
		v := commands.PushVertex{
			Position: tri.Vertex[i],
			Color:    tri.Color[i],
			Tex:      make([]math3d.Vec4, r.cfg.TMUCount),
		}
		copy(v.Tex, tri.Texture[i])
		ok := r.dispatch.AddCommandWithFactory(func(l displaylist.Line) (commands.Command, bool) {
			return v, bounds.InBounds(l.Start(), l.End())
		})
		if !ok {
			r.dispatch.RemoveSection()
			return false
		}
	}
	return true
}

func (r *Renderer) beginFrame() error {
	r.dispatch.BeginFrame()
	ok := r.dispatch.AddCommandWithFactory(func(l displaylist.Line) (commands.Command, bool) {
		return commands.WriteRegister{Reg: registers.YOffset{Y: uint16(l.Start())}}, true
	})
	if !ok {
		return ErrDisplayListFull
	}
	return nil
}

// SwapDisplayList finishes the frame in the back list and makes it the
// front list. The new back list is only touched after the previous upload
// finished.
func (r *Renderer) SwapDisplayList() error {
	r.dispatch.SaveSectionStart()
	ok := r.addCommitFramebuffer()
	r.dispatch.EndFrame()
	ok = ok && r.addFramebufferTransfer()
	if !ok {
		logging.Logger().Warn("framebuffer commit dropped, display list full")
		r.dispatch.RemoveSection()
	}
	r.addSwapFramebuffer()

	errs := []error{r.runner.Wait()}
	r.lists.Swap()
	errs = append(errs, r.uploadTextures())
	r.dispatch.Clear()
	errs = append(errs, r.beginFrame(), r.swapFramebuffer())
	logging.Logger().Debug("display list swapped", "back", r.lists.BackIndex())
	return errors.Join(errs...)
}

func (r *Renderer) addCommitFramebuffer() bool {
	switch r.cfg.FramebufferType {
	case config.InternalToMemory, config.InternalToStream:
		return r.dispatch.AddCommandAll(commands.NewFramebuffer(true, true, true).Commit())
	}
	return true
}

func (r *Renderer) addFramebufferTransfer() bool {
	screenSize := func(l displaylist.Line) uint32 { return uint32(l.ResX * l.ResY * 2) }
	switch r.cfg.FramebufferType {
	case config.InternalToMemory:
		return r.dispatch.AddDSECommandWithFactory(func(l displaylist.Line) (commands.DSECommand, bool) {
			size := screenSize(l)
			return commands.CommitToMemory{Addr: r.colorBufferAddr + size*uint32(l.Lines-l.Index-1), Size: size}, true
		})
	case config.InternalToStream:
		return r.dispatch.AddDSECommandWithFactory(func(l displaylist.Line) (commands.DSECommand, bool) {
			return commands.CommitToStream{Size: screenSize(l)}, true
		})
	case config.ExternalMemoryToStream:
		return r.dispatch.AddDSECommandWithFactory(func(l displaylist.Line) (commands.DSECommand, bool) {
			size := screenSize(l)
			return commands.StreamFromMemoryToDisplay{Addr: r.colorBufferAddr + size*uint32(l.Lines-l.Index-1), Size: size}, true
		})
	}
	return true
}

// addSwapFramebuffer appends the display swap in a section of its own on
// the line uploaded last.
func (r *Renderer) addSwapFramebuffer() {
	a := r.dispatch.Back(0)
	a.SaveSectionStart()
	ok := a.AddCommand(commands.NewFramebuffer(true, false, false).Swap())
	a.End()
	if !ok {
		a.RemoveSection()
	}
}

func (r *Renderer) swapFramebuffer() error {
	if r.cfg.FramebufferType != config.ExternalMemoryDoubleBuffer {
		return nil
	}
	addr := r.cfg.ColorBufferLoc1
	if r.switchColorBuffer {
		addr = r.cfg.ColorBufferLoc2
	}
	r.switchColorBuffer = !r.switchColorBuffer
	return r.setColorBufferAddress(addr)
}

func (r *Renderer) setColorBufferAddress(addr uint32) error {
	r.colorBufferAddr = addr
	return r.writeReg(registers.ColorBufferAddr(addr, r.cfg.GRAMMemoryLoc))
}

// UploadDisplayList hands the front list to the bus, last line first.
// With a background runner the error of the previous upload is returned.
func (r *Renderer) UploadDisplayList() error {
	type chunk struct{ index, size int }
	front := r.lists.Front()
	chunks := make([]chunk, 0, r.dispatch.Lines())
	for i := r.dispatch.Lines() - 1; i >= 0; i-- {
		chunks = append(chunks, chunk{i + r.maxLines*r.lists.FrontIndex(), front[i].Size()})
	}
	r.stats.DisplayLists++
	return r.runner.Run(func() error {
		for _, c := range chunks {
			r.waitClearToSend()
			if err := r.bus.WriteData(c.index, c.size); err != nil {
				return fmt.Errorf("upload display list %d: %w", c.index, err)
			}
		}
		return nil
	})
}

func (r *Renderer) uploadTextures() error {
	return r.textures.UploadTextures(func(page int, data []byte) error {
		r.uploader.Clear()
		addr := r.cfg.GRAMMemoryLoc + uint32(page*r.cfg.TexturePageSize)
		if !r.uploader.AddDSECommand(commands.WriteMemory{Addr: addr, Data: data}) {
			return ErrDisplayListFull
		}
		r.waitClearToSend()
		if err := r.bus.WriteData(r.bus.BufferCount()-1, r.uploader.Size()); err != nil {
			return err
		}
		r.stats.TexturePages++
		return nil
	})
}

// intermediateUpload sends a full single list before the frame is done.
// The list becomes the front list; drawing continues in the other one.
func (r *Renderer) intermediateUpload() error {
	logging.Logger().Debug("display list full, flushing early")
	r.stats.IntermediateUp++
	r.dispatch.EndFrame()
	errs := []error{r.runner.Wait()}
	r.lists.Swap()
	errs = append(errs, r.uploadTextures(), r.UploadDisplayList())
	r.dispatch.Clear()
	errs = append(errs, r.beginFrame())
	return errors.Join(errs...)
}

// Clear fills the selected buffers with their clear values. With scissor
// enabled only lines overlapping the scissor box are cleared.
func (r *Renderer) Clear(color, depth, stencil bool) error {
	cmd := commands.NewFramebuffer(color, depth, stencil).Memset()
	ok := r.dispatch.AddCommandWithFactory(func(l displaylist.Line) (commands.Command, bool) {
		if r.scissorEnabled && (l.End() < r.scissorYStart || l.Start() >= r.scissorYEnd) {
			return nil, false
		}
		return cmd, true
	})
	if !ok {
		return ErrDisplayListFull
	}
	return nil
}

// SetRenderResolution splits an x by y frame into display lines.
func (r *Renderer) SetRenderResolution(x, y int) error {
	if err := r.dispatch.SetResolution(x, y); err != nil {
		return err
	}
	return r.writeReg(registers.RenderResolution{X: uint16(x), Y: uint16(r.dispatch.YLineResolution())})
}

// SetScissorBox sets the scissor rectangle in pixels.
func (r *Renderer) SetScissorBox(x, y, width, height int) error {
	r.scissorYStart = y
	r.scissorYEnd = y + height
	r.rasterizer.SetScissorBox(x, y, width, height)
	return errors.Join(
		r.writeReg(registers.ScissorStart{X: uint16(x), Y: uint16(y)}),
		r.writeReg(registers.ScissorEnd{X: uint16(x + width), Y: uint16(y + height)}))
}

// SetFeatureEnableConfig writes the feature register and mirrors the
// scissor and TMU enables into triangle setup.
func (r *Renderer) SetFeatureEnableConfig(reg registers.FeatureEnable) error {
	r.scissorEnabled = reg.Scissor
	r.rasterizer.EnableScissor(reg.Scissor)
	for i := range r.cfg.TMUCount {
		r.rasterizer.EnableTMU(i, reg.TMU[i])
	}
	return r.writeReg(reg)
}

// SetFogLut uploads the fog lookup table.
func (r *Renderer) SetFogLut(lut [33]float64, start, end float64) error {
	return r.addCommand(commands.NewFogLut(lut, start, end))
}

func (r *Renderer) SetStencilBufferConfig(reg registers.Stencil) error { return r.writeReg(reg) }

func (r *Renderer) SetFragmentPipelineConfig(reg registers.FragmentPipeline) error {
	return r.writeReg(reg)
}

func (r *Renderer) SetTexEnv(reg registers.TexEnv) error { return r.writeReg(reg) }

func (r *Renderer) SetClearColor(c registers.Color) error {
	return r.writeReg(registers.ColorBufferClearColor{Color: c})
}

func (r *Renderer) SetClearDepth(depth uint16) error {
	return r.writeReg(registers.DepthBufferClearDepth{Depth: depth})
}

func (r *Renderer) SetTexEnvColor(tmu int, c registers.Color) error {
	return r.writeReg(registers.TexEnvColor{Color: c, TMU: tmu})
}

func (r *Renderer) SetFogColor(c registers.Color) error {
	return r.writeReg(registers.FogColor{Color: c})
}

// CreateTexture allocates a texture id.
func (r *Renderer) CreateTexture() (uint16, error) { return r.textures.CreateTexture() }

// CreateTextureWithName allocates the texture id chosen by the caller.
func (r *Renderer) CreateTextureWithName(id uint16) error {
	return r.textures.CreateTextureWithName(id)
}

// UpdateTexture replaces the texels of id. They reach the device on the
// next swap.
func (r *Renderer) UpdateTexture(id uint16, mip Mipmap) error {
	return r.textures.UpdateTexture(id, mip)
}

// Texture returns the texels of id.
func (r *Renderer) Texture(id uint16) (Mipmap, error) { return r.textures.Texture(id) }

// TextureValid reports whether id is a live texture.
func (r *Renderer) TextureValid(id uint16) bool { return r.textures.TextureValid(id) }

// DeleteTexture releases id.
func (r *Renderer) DeleteTexture(id uint16) error {
	for i, b := range r.boundTextures {
		if b == id {
			r.boundTextures[i] = 0
		}
	}
	return r.textures.DeleteTexture(id)
}

// UseTexture binds id to tmu: the TMU is pointed at the texture's pages
// and its sampling register is written.
func (r *Renderer) UseTexture(tmu int, id uint16) error {
	if tmu < 0 || tmu >= len(r.boundTextures) {
		return fmt.Errorf("%w: tmu %d", ErrInvalidTexture, tmu)
	}
	r.boundTextures[tmu] = id
	if !r.textures.TextureValid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidTexture, id)
	}
	reg, err := r.textures.TmuConfig(id)
	if err != nil {
		return err
	}
	reg.TMU = tmu
	pages := r.textures.Pages(id)
	return errors.Join(
		r.addCommand(commands.NewTextureStream(tmu, pages, r.cfg.TexturePageSize, r.cfg.GRAMMemoryLoc)),
		r.writeReg(reg))
}

// BoundTexture returns the texture bound to tmu.
func (r *Renderer) BoundTexture(tmu int) uint16 {
	if tmu < 0 || tmu >= len(r.boundTextures) {
		return 0
	}
	return r.boundTextures[tmu]
}

func (r *Renderer) SetTextureWrapModeS(id uint16, mode registers.WrapMode) error {
	if err := r.textures.SetWrapModeS(id, mode); err != nil {
		return err
	}
	return r.writeTextureConfig(id)
}

func (r *Renderer) SetTextureWrapModeT(id uint16, mode registers.WrapMode) error {
	if err := r.textures.SetWrapModeT(id, mode); err != nil {
		return err
	}
	return r.writeTextureConfig(id)
}

func (r *Renderer) EnableTextureMagFiltering(id uint16, enable bool) error {
	if err := r.textures.EnableMagFilter(id, enable); err != nil {
		return err
	}
	return r.writeTextureConfig(id)
}

func (r *Renderer) EnableTextureMinFiltering(id uint16, enable bool) error {
	if err := r.textures.EnableMinFilter(id, enable); err != nil {
		return err
	}
	return r.writeTextureConfig(id)
}

// writeTextureConfig rewrites the sampling register of every TMU id is
// bound to.
func (r *Renderer) writeTextureConfig(id uint16) error {
	reg, err := r.textures.TmuConfig(id)
	if err != nil {
		return err
	}
	var errs []error
	for tmu, b := range r.boundTextures {
		if b == id {
			reg.TMU = tmu
			errs = append(errs, r.writeReg(reg))
		}
	}
	return errors.Join(errs...)
}
