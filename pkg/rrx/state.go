package rrx

import (
	"fmt"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/pixelpipeline"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

// Capability is a switchable pipeline feature.
type Capability int

const (
	DepthTest Capability = iota
	AlphaTest
	Blend
	StencilTest
	StencilTestTwoSide
	ScissorTest
	Fog
	CullFace
	Lighting
	ColorMaterial
	Normalize
	Texture2D // active TMU
	TextureGenS
	TextureGenT
	TextureGenR
	Dither
	LineSmooth
	PolygonOffsetFill
	Light0 // Light0+i enables light i
)

func (cp Capability) String() string {
	switch cp {
	case DepthTest:
		return "depth_test"
	case AlphaTest:
		return "alpha_test"
	case Blend:
		return "blend"
	case StencilTest:
		return "stencil_test"
	case StencilTestTwoSide:
		return "stencil_test_two_side"
	case ScissorTest:
		return "scissor_test"
	case Fog:
		return "fog"
	case CullFace:
		return "cull_face"
	case Lighting:
		return "lighting"
	case ColorMaterial:
		return "color_material"
	case Normalize:
		return "normalize"
	case Texture2D:
		return "texture_2d"
	case TextureGenS:
		return "texture_gen_s"
	case TextureGenT:
		return "texture_gen_t"
	case TextureGenR:
		return "texture_gen_r"
	case Dither:
		return "dither"
	case LineSmooth:
		return "line_smooth"
	case PolygonOffsetFill:
		return "polygon_offset_fill"
	}
	if cp >= Light0 && cp < Light0+vertexpipeline.MaxLights {
		return fmt.Sprintf("light%d", cp-Light0)
	}
	return "unknown"
}

// Enable switches cp on.
func (c *Context) Enable(cp Capability) error { return c.setCapability(cp, true) }

// Disable switches cp off.
func (c *Context) Disable(cp Capability) error { return c.setCapability(cp, false) }

func (c *Context) setCapability(cp Capability, on bool) error {
	fe := c.pixels.FeatureEnable()
	switch cp {
	case DepthTest:
		fe.SetDepthTest(on)
	case AlphaTest:
		fe.SetAlphaTest(on)
	case Blend:
		fe.SetBlending(on)
	case StencilTest:
		fe.SetStencilTest(on)
	case StencilTestTwoSide:
		c.pixels.Stencil().EnableTwoSided(on)
	case ScissorTest:
		fe.SetScissor(on)
	case Fog:
		fe.SetFog(on)
	case CullFace:
		c.vertex.Culling().Enable(on)
	case Lighting:
		c.vertex.Lighting().EnableLighting(on)
	case ColorMaterial:
		c.vertex.Lighting().EnableColorMaterial(on)
	case Normalize:
		c.vertex.EnableNormalizing(on)
	case Texture2D:
		fe.SetTMU(c.pixels.Texture().ActiveTMU(), on)
	case TextureGenS, TextureGenT, TextureGenR:
		g, err := c.vertex.TexGen(c.pixels.Texture().ActiveTMU())
		if err != nil {
			return c.record(err)
		}
		g.Enable(vertexpipeline.TexCoord(cp-TextureGenS), on)
	case Dither, LineSmooth, PolygonOffsetFill:
		c.unsupported(cp.String())
	default:
		if cp >= Light0 && cp < Light0+vertexpipeline.MaxLights {
			return c.record(c.vertex.Lighting().EnableLight(int(cp-Light0), on))
		}
		return c.invalid(ErrInvalidEnum, "capability %d", cp)
	}
	return nil
}

// IsEnabled reports whether cp is switched on.
func (c *Context) IsEnabled(cp Capability) (bool, error) {
	fe := c.pixels.FeatureEnable().Config()
	switch cp {
	case DepthTest:
		return fe.DepthTest, nil
	case AlphaTest:
		return fe.AlphaTest, nil
	case Blend:
		return fe.Blending, nil
	case StencilTest:
		return fe.StencilTest, nil
	case StencilTestTwoSide:
		return c.pixels.Stencil().TwoSided(), nil
	case ScissorTest:
		return fe.Scissor, nil
	case Fog:
		return fe.Fog, nil
	case CullFace:
		return c.vertex.Culling().Enabled(), nil
	case Lighting:
		return c.vertex.Lighting().Enabled(), nil
	case Texture2D:
		return c.pixels.FeatureEnable().TMU(c.pixels.Texture().ActiveTMU()), nil
	case Dither, LineSmooth, PolygonOffsetFill:
		return false, nil
	}
	if cp >= Light0 && cp < Light0+vertexpipeline.MaxLights {
		l, err := c.vertex.Lighting().Light(int(cp - Light0))
		return l.Enable, err
	}
	return false, c.invalid(ErrInvalidEnum, "capability %d", cp)
}

func validTestFunc(fn registers.TestFunc) bool { return fn <= registers.GEqual }

// DepthFunc sets the depth comparison.
func (c *Context) DepthFunc(fn registers.TestFunc) error {
	if !validTestFunc(fn) {
		return c.invalid(ErrInvalidEnum, "depth func %d", fn)
	}
	c.pixels.FragmentPipeline().SetDepthFunc(fn)
	return nil
}

// DepthMask toggles depth buffer writes.
func (c *Context) DepthMask(enable bool) { c.pixels.FragmentPipeline().SetDepthMask(enable) }

// ColorMask selects the color channels written.
func (c *Context) ColorMask(r, g, b, a bool) { c.pixels.FragmentPipeline().SetColorMask(r, g, b, a) }

// AlphaFunc sets the alpha comparison against ref in [0, 1].
func (c *Context) AlphaFunc(fn registers.TestFunc, ref float64) error {
	if !validTestFunc(fn) {
		return c.invalid(ErrInvalidEnum, "alpha func %d", fn)
	}
	ref = min(max(ref, 0), 1)
	c.pixels.FragmentPipeline().SetAlphaFunc(fn)
	c.pixels.FragmentPipeline().SetRefAlpha(uint8(min(ref*256, 255)))
	return nil
}

// BlendFunc sets the blend factors. SRC_ALPHA_SATURATE is only a source
// factor.
func (c *Context) BlendFunc(src, dst registers.BlendFunc) error {
	if src > registers.BlendSrcAlphaSaturate || dst >= registers.BlendSrcAlphaSaturate {
		return c.invalid(ErrInvalidEnum, "blend func %d, %d", src, dst)
	}
	c.pixels.FragmentPipeline().SetBlendFunc(src, dst)
	return nil
}

// StencilFunc sets the stencil comparison, reference and compare mask.
func (c *Context) StencilFunc(fn registers.TestFunc, ref int, mask uint8) error {
	if !validTestFunc(fn) {
		return c.invalid(ErrInvalidEnum, "stencil func %d", fn)
	}
	s := c.pixels.Stencil()
	s.SetTestFunc(fn)
	s.SetRef(uint8(min(max(ref, 0), registers.MaxStencilValue)))
	s.SetMask(mask)
	return nil
}

// StencilOp sets the operations for a failed stencil test, a failed depth
// test and a passed depth test.
func (c *Context) StencilOp(fail, zfail, zpass registers.StencilOp) error {
	for _, op := range []registers.StencilOp{fail, zfail, zpass} {
		if op > registers.StencilInvert {
			return c.invalid(ErrInvalidEnum, "stencil op %d", op)
		}
	}
	s := c.pixels.Stencil()
	s.SetOpFail(fail)
	s.SetOpZFail(zfail)
	s.SetOpZPass(zpass)
	return nil
}

// StencilMask sets the bits of the stencil buffer that are written.
func (c *Context) StencilMask(mask uint8) { c.pixels.Stencil().SetStencilMask(mask) }

// ActiveStencilFace selects the side the stencil setters edit when two
// sided stencil is enabled.
func (c *Context) ActiveStencilFace(face renderer.Face) error {
	if face != renderer.FaceFront && face != renderer.FaceBack {
		return c.invalid(ErrInvalidEnum, "stencil face %s", face)
	}
	c.pixels.Stencil().SetFace(face)
	return nil
}

// CullFace selects the side dropped when culling is enabled.
func (c *Context) CullFace(face renderer.Face) error {
	if face < renderer.FaceBack || face > renderer.FaceFrontAndBack {
		return c.invalid(ErrInvalidEnum, "cull face %d", face)
	}
	c.vertex.Culling().SetCullMode(face)
	return nil
}

// LineWidth sets the width of lines in pixels.
func (c *Context) LineWidth(width float64) error {
	if width <= 0 {
		return c.invalid(ErrInvalidValue, "line width %g", width)
	}
	c.vertex.Assembler().SetLineWidth(width)
	return nil
}

// FogMode selects the fog function.
func (c *Context) FogMode(mode pixelpipeline.FogMode) error {
	if mode < pixelpipeline.FogOne || mode > pixelpipeline.FogExp2 {
		return c.invalid(ErrInvalidEnum, "fog mode %d", mode)
	}
	c.pixels.Fog().SetMode(mode)
	return nil
}

// FogDensity sets the density of the exponential fog functions.
func (c *Context) FogDensity(density float64) error {
	if density < 0 {
		return c.invalid(ErrInvalidValue, "fog density %g", density)
	}
	c.pixels.Fog().SetDensity(density)
	return nil
}

// FogRange sets the eye distances where linear fog starts and ends.
func (c *Context) FogRange(start, end float64) {
	c.pixels.Fog().SetStart(start)
	c.pixels.Fog().SetEnd(end)
}

// FogColor sets the color fragments are fogged towards.
func (c *Context) FogColor(r, g, b, a float64) error {
	return c.record(c.pixels.Fog().SetColor(math3d.V4(r, g, b, a)))
}
