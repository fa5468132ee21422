// Package rrx is the application-facing API of the front-end. A Context
// exposes the fixed-function operation set as typed methods and compiles
// every call into the command stream of one device.
//
// Every method that can fail returns its error. The first error that was
// not yet read is also kept and returned by Error, the way the immediate
// mode APIs report them.
package rrx

import (
	"errors"
	"fmt"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/pixelpipeline"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
	"github.com/taigrr/rasterix/pkg/threadrunner"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

var (
	// ErrInvalidEnum is returned for an argument outside its enumeration.
	ErrInvalidEnum = errors.New("invalid enum")
	// ErrInvalidValue is returned for a numeric argument out of range.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidOperation is returned for a call not allowed in the
	// current state.
	ErrInvalidOperation = errors.New("invalid operation")

	ErrStackOverflow  = vertexpipeline.ErrStackOverflow
	ErrStackUnderflow = vertexpipeline.ErrStackUnderflow
	ErrOutOfMemory    = renderer.ErrOutOfMemory
)

// Context is one device session. It is not safe for concurrent use.
type Context struct {
	cfg      config.RenderConfig
	renderer *renderer.Renderer
	pixels   *pixelpipeline.PixelPipeline
	vertex   *vertexpipeline.VertexPipeline

	err error

	imm       immediate
	arrays    vertexpipeline.RenderObj
	clientTMU int

	// current attributes used where no array supplies them
	normal   math3d.Vec3
	color    math3d.Vec4
	texCoord [vertexpipeline.MaxTMUCount]math3d.Vec4
}

// New opens a context on conn. A nil runner uploads display lists on the
// calling goroutine.
func New(cfg config.RenderConfig, conn bus.Connector, runner threadrunner.Runner) (*Context, error) {
	r, err := renderer.New(cfg, conn, runner)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	pixels, err := pixelpipeline.New(r)
	if err != nil {
		return nil, fmt.Errorf("create pixel pipeline: %w", err)
	}
	c := &Context{
		cfg:      cfg,
		renderer: r,
		pixels:   pixels,
		vertex:   vertexpipeline.New(pixels),
		arrays:   *vertexpipeline.NewRenderObj(),
	}
	c.normal = c.arrays.CurrentNormal
	c.color = c.arrays.CurrentColor
	c.texCoord = c.arrays.CurrentTexCoord
	logging.Logger().Debug("context created",
		"tmus", cfg.TMUCount,
		"width", cfg.MaxDisplayWidth,
		"height", cfg.MaxDisplayHeight)
	return c, nil
}

// Close finishes the current frame and waits for the last upload.
func (c *Context) Close() error {
	return c.record(c.renderer.Close())
}

// Error returns the first error since the last call and clears it.
func (c *Context) Error() error {
	err := c.err
	c.err = nil
	return err
}

// record keeps err as the last error unless an unread one exists.
func (c *Context) record(err error) error {
	if err != nil && c.err == nil {
		c.err = err
	}
	return err
}

func (c *Context) invalid(sentinel error, format string, args ...any) error {
	return c.record(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// unsupported logs an entry point the device cannot serve.
func (c *Context) unsupported(name string) {
	logging.Logger().Warn("not implemented", "call", name)
}

// Config returns the device configuration.
func (c *Context) Config() config.RenderConfig { return c.cfg }

// VertexPipeline exposes the geometry stage, mainly for inspection.
func (c *Context) VertexPipeline() *vertexpipeline.VertexPipeline { return c.vertex }

// PixelPipeline exposes the fragment state holders.
func (c *Context) PixelPipeline() *pixelpipeline.PixelPipeline { return c.pixels }

// Stats combines the counters of both pipeline stages.
type Stats struct {
	Vertex   vertexpipeline.Stats
	Renderer renderer.Stats
}

func (c *Context) Stats() Stats {
	return Stats{Vertex: c.vertex.Stats(), Renderer: c.renderer.Stats()}
}

// SwapBuffers closes the frame and uploads it to the device.
func (c *Context) SwapBuffers() error {
	if c.imm.active {
		return c.invalid(ErrInvalidOperation, "swap inside begin/end")
	}
	if err := c.pixels.SwapDisplayList(); err != nil {
		return c.record(fmt.Errorf("swap display list: %w", err))
	}
	if err := c.pixels.UploadDisplayList(); err != nil {
		return c.record(fmt.Errorf("upload display list: %w", err))
	}
	return nil
}

// Finish blocks until the last swapped frame reached the device.
func (c *Context) Finish() error {
	return c.record(c.renderer.Finish())
}

// Viewport maps normalized device coordinates to the window rectangle.
func (c *Context) Viewport(x, y, width, height int) error {
	if width < 0 || height < 0 {
		return c.invalid(ErrInvalidValue, "viewport %dx%d", width, height)
	}
	c.vertex.ViewPort().SetViewport(float64(x), float64(y), float64(width), float64(height))
	return nil
}

// DepthRange maps normalized depth to [near, far], both clamped to [0, 1].
func (c *Context) DepthRange(near, far float64) {
	c.vertex.ViewPort().SetDepthRange(min(max(near, 0), 1), min(max(far, 0), 1))
}

// RenderResolution changes the size of the rendered image. It must not
// exceed the display configured for the device.
func (c *Context) RenderResolution(width, height int) error {
	if width <= 0 || height <= 0 || width > c.cfg.MaxDisplayWidth || height > c.cfg.MaxDisplayHeight {
		return c.invalid(ErrInvalidValue, "resolution %dx%d", width, height)
	}
	return c.record(c.pixels.SetRenderResolution(width, height))
}

// Scissor sets the scissor rectangle in window pixels.
func (c *Context) Scissor(x, y, width, height int) error {
	if width < 0 || height < 0 {
		return c.invalid(ErrInvalidValue, "scissor %dx%d", width, height)
	}
	return c.record(c.pixels.SetScissorBox(x, y, width, height))
}

// Buffer selects the buffers a Clear acts on.
type Buffer uint8

const (
	ColorBuffer Buffer = 1 << iota
	DepthBuffer
	StencilBuffer
)

// Clear fills the selected buffers with their clear values.
func (c *Context) Clear(mask Buffer) error {
	if mask&^(ColorBuffer|DepthBuffer|StencilBuffer) != 0 {
		return c.invalid(ErrInvalidValue, "clear mask %#x", mask)
	}
	if c.imm.active {
		return c.invalid(ErrInvalidOperation, "clear inside begin/end")
	}
	return c.record(c.pixels.Clear(mask&ColorBuffer != 0, mask&DepthBuffer != 0, mask&StencilBuffer != 0))
}

// ClearColor sets the color written by Clear.
func (c *Context) ClearColor(r, g, b, a float64) error {
	return c.record(c.pixels.SetClearColor(math3d.V4(r, g, b, a)))
}

// ClearDepth sets the depth written by Clear, in [0, 1].
func (c *Context) ClearDepth(depth float64) error {
	depth = min(max(depth, 0), 1)
	return c.record(c.pixels.SetClearDepth(depth*2 - 1))
}

// ClearStencil sets the stencil value written by Clear.
func (c *Context) ClearStencil(s int) {
	c.pixels.Stencil().SetClearStencil(uint8(min(max(s, 0), registers.MaxStencilValue)))
}
