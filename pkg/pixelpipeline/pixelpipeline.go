// Package pixelpipeline tracks the per-fragment device state. Every holder
// keeps the live register next to the last uploaded copy and only writes to
// the device when the two serialize differently.
package pixelpipeline

import (
	"errors"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// Device is the part of the renderer the state holders upload through.
type Device interface {
	SetFeatureEnableConfig(reg registers.FeatureEnable) error
	SetFragmentPipelineConfig(reg registers.FragmentPipeline) error
	SetStencilBufferConfig(reg registers.Stencil) error
	SetTexEnv(reg registers.TexEnv) error
	SetTexEnvColor(tmu int, c registers.Color) error
	SetFogLut(lut [33]float64, start, end float64) error
	SetFogColor(c registers.Color) error

	CreateTexture() (uint16, error)
	CreateTextureWithName(id uint16) error
	UpdateTexture(id uint16, mip renderer.Mipmap) error
	Texture(id uint16) (renderer.Mipmap, error)
	TextureValid(id uint16) bool
	DeleteTexture(id uint16) error
	UseTexture(tmu int, id uint16) error
	SetTextureWrapModeS(id uint16, mode registers.WrapMode) error
	SetTextureWrapModeT(id uint16, mode registers.WrapMode) error
	EnableTextureMagFiltering(id uint16, enable bool) error
	EnableTextureMinFiltering(id uint16, enable bool) error
}

// PixelPipeline groups the fragment state holders in front of a renderer
// and forwards triangles and frame control to it.
type PixelPipeline struct {
	renderer *renderer.Renderer

	featureEnable    *FeatureEnable
	fragmentPipeline *FragmentPipeline
	stencil          *Stencil
	fog              *Fogging
	texture          *Texture
}

// New creates the state holders and writes their reset values.
func New(r *renderer.Renderer) (*PixelPipeline, error) {
	tmus := r.Config().TMUCount
	p := &PixelPipeline{
		renderer:         r,
		featureEnable:    NewFeatureEnable(r),
		fragmentPipeline: NewFragmentPipeline(r),
		stencil:          NewStencil(r),
		fog:              NewFogging(r),
		texture:          NewTexture(r, tmus),
	}
	err := errors.Join(
		p.featureEnable.reset(),
		p.fragmentPipeline.reset(),
		p.stencil.reset(),
		p.texture.reset())
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FeatureEnable returns the feature enable register.
func (p *PixelPipeline) FeatureEnable() *FeatureEnable { return p.featureEnable }

// FragmentPipeline returns the depth and alpha test state.
func (p *PixelPipeline) FragmentPipeline() *FragmentPipeline { return p.fragmentPipeline }

// Stencil returns the stencil state.
func (p *PixelPipeline) Stencil() *Stencil { return p.stencil }

// Fog returns the fog state.
func (p *PixelPipeline) Fog() *Fogging { return p.fog }

// Texture returns the texture units.
func (p *PixelPipeline) Texture() *Texture { return p.texture }

// Renderer returns the renderer the pipeline draws into.
func (p *PixelPipeline) Renderer() *renderer.Renderer { return p.renderer }

// Update uploads every register that changed since the last call. All
// holders are flushed even if one of them fails.
func (p *PixelPipeline) Update() error {
	return errors.Join(
		p.featureEnable.Update(),
		p.fragmentPipeline.Update(),
		p.stencil.Update(),
		p.fog.Update(),
		p.texture.Update())
}

// DrawTriangle hands a screen-space triangle to the renderer.
func (p *PixelPipeline) DrawTriangle(tri *renderer.TransformedTriangle) error {
	return p.renderer.DrawTriangle(tri)
}

// Clear flushes pending state, then clears the selected buffers.
func (p *PixelPipeline) Clear(color, depth, stencil bool) error {
	if err := p.Update(); err != nil {
		return err
	}
	return p.renderer.Clear(color, depth, stencil)
}

// SetClearColor sets the color buffer clear value from a 0..1 color.
func (p *PixelPipeline) SetClearColor(c math3d.Vec4) error {
	return p.renderer.SetClearColor(registers.ColorFromVec(c.Clamp(0, 1).Scale(255)))
}

// SetClearDepth sets the depth buffer clear value from a -1..1 depth.
func (p *PixelPipeline) SetClearDepth(depth float64) error {
	depth = min(max(depth, -1), 1)
	return p.renderer.SetClearDepth(uint16((depth + 1) * 32767))
}

func (p *PixelPipeline) SetRenderResolution(x, y int) error {
	return p.renderer.SetRenderResolution(x, y)
}

func (p *PixelPipeline) SetScissorBox(x, y, width, height int) error {
	return p.renderer.SetScissorBox(x, y, width, height)
}

// SwapDisplayList finishes the frame.
func (p *PixelPipeline) SwapDisplayList() error { return p.renderer.SwapDisplayList() }

// UploadDisplayList sends the finished frame to the device.
func (p *PixelPipeline) UploadDisplayList() error { return p.renderer.UploadDisplayList() }
