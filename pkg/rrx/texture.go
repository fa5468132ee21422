package rrx

import (
	"fmt"
	"image"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/pixelpipeline"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

// ActiveTexture selects the TMU the texture calls and the texture matrix
// act on.
func (c *Context) ActiveTexture(tmu int) error {
	if err := c.pixels.Texture().ActivateTMU(tmu); err != nil {
		return c.invalid(ErrInvalidEnum, "tmu %d", tmu)
	}
	c.vertex.Matrices().SetTMU(tmu)
	return nil
}

// GenTexture allocates a texture name.
func (c *Context) GenTexture() (uint16, error) {
	id, err := c.pixels.Texture().CreateTexture()
	if err != nil {
		return 0, c.record(fmt.Errorf("gen texture: %w", err))
	}
	return id, nil
}

// BindTexture binds id to the active TMU. Binding a name that was never
// generated creates it; 0 unbinds.
func (c *Context) BindTexture(id uint16) error {
	tex := c.pixels.Texture()
	if id == 0 {
		tex.SetBoundTexture(0)
		return nil
	}
	if !tex.TextureValid(id) {
		if err := tex.CreateTextureWithName(id); err != nil {
			return c.record(fmt.Errorf("bind texture %d: %w", id, err))
		}
	}
	tex.SetBoundTexture(id)
	return c.record(tex.UseTexture())
}

// DeleteTexture releases id. Deleting 0 or an unknown name is ignored.
func (c *Context) DeleteTexture(id uint16) error {
	tex := c.pixels.Texture()
	if id == 0 || !tex.TextureValid(id) {
		return nil
	}
	return c.record(tex.DeleteTexture(id))
}

// IsTexture reports whether id names a texture.
func (c *Context) IsTexture(id uint16) bool { return id != 0 && c.pixels.Texture().TextureValid(id) }

func powerOfTwo(v int) bool { return v > 0 && v&(v-1) == 0 }

// TexImage2D replaces the texels of the texture bound to the active TMU.
// The image is converted to format and, when the device supports it, a mip
// chain is generated. Sides must be powers of two up to the maximum texture
// size.
func (c *Context) TexImage2D(img image.Image, format renderer.InternalFormat) error {
	if format < renderer.FormatAlpha || format > renderer.FormatRGBA1 {
		return c.invalid(ErrInvalidEnum, "internal format %d", format)
	}
	b := img.Bounds()
	if !powerOfTwo(b.Dx()) || !powerOfTwo(b.Dy()) || b.Dx() > c.cfg.MaxTextureSize || b.Dy() > c.cfg.MaxTextureSize {
		return c.invalid(ErrInvalidValue, "texture size %dx%d", b.Dx(), b.Dy())
	}
	tex := c.pixels.Texture()
	if tex.BoundTexture() == 0 {
		return c.invalid(ErrInvalidOperation, "no texture bound to tmu %d", tex.ActiveTMU())
	}
	mip := renderer.BuildMipmap(img, format, c.cfg.EnableMipmapping)
	logging.Logger().Debug("tex image",
		"texture", tex.BoundTexture(),
		"width", b.Dx(),
		"height", b.Dy(),
		"bytes", mip.Size())
	return c.record(tex.UpdateTexture(mip))
}

func (c *Context) boundTexture() error {
	if c.pixels.Texture().BoundTexture() == 0 {
		return c.invalid(ErrInvalidOperation, "no texture bound to tmu %d", c.pixels.Texture().ActiveTMU())
	}
	return nil
}

func validWrap(m registers.WrapMode) bool {
	return m == registers.WrapRepeat || m == registers.WrapClampToEdge
}

// TexWrap sets the wrap modes of the bound texture.
func (c *Context) TexWrap(s, t registers.WrapMode) error {
	if !validWrap(s) || !validWrap(t) {
		return c.invalid(ErrInvalidEnum, "wrap mode %d, %d", s, t)
	}
	if err := c.boundTexture(); err != nil {
		return err
	}
	tex := c.pixels.Texture()
	if err := tex.SetWrapModeS(s); err != nil {
		return c.record(err)
	}
	return c.record(tex.SetWrapModeT(t))
}

// TexFilter selects bilinear magnification and mipmapped minification for
// the bound texture.
func (c *Context) TexFilter(linearMag, mipmapMin bool) error {
	if err := c.boundTexture(); err != nil {
		return err
	}
	tex := c.pixels.Texture()
	if err := tex.EnableMagFilter(linearMag); err != nil {
		return c.record(err)
	}
	return c.record(tex.EnableMinFilter(mipmapMin && c.cfg.EnableMipmapping))
}

// TexEnvMode is a texture environment function.
type TexEnvMode = pixelpipeline.TexEnvMode

const (
	Replace  = pixelpipeline.TexEnvReplace
	Modulate = pixelpipeline.TexEnvModulate
	Decal    = pixelpipeline.TexEnvDecal
	BlendEnv = pixelpipeline.TexEnvBlend
	Add      = pixelpipeline.TexEnvAdd
	Combine  = pixelpipeline.TexEnvCombine
)

// TexEnv sets the environment function of the active TMU.
func (c *Context) TexEnv(mode TexEnvMode) error {
	if mode < Replace || mode > Combine {
		return c.invalid(ErrInvalidEnum, "tex env mode %d", mode)
	}
	c.pixels.Texture().SetTexEnvMode(mode)
	return nil
}

// TexEnvColor sets the constant color of the active TMU.
func (c *Context) TexEnvColor(color math3d.Vec4) error {
	return c.record(c.pixels.Texture().SetTexEnvColor(color))
}

// CombineFunc sets the color and alpha combiner functions used in Combine
// mode. Dot3 functions are only valid for the color channels.
func (c *Context) CombineFunc(rgb, alpha registers.Combine) error {
	if rgb > registers.CombineDot3RGBA || alpha > registers.CombineSubtract {
		return c.invalid(ErrInvalidEnum, "combine %d, %d", rgb, alpha)
	}
	tex := c.pixels.Texture()
	tex.SetCombineRGB(rgb)
	tex.SetCombineAlpha(alpha)
	return nil
}

// CombineSource sets argument i (0..2) of the color and alpha combiners.
func (c *Context) CombineSource(i int, rgb, alpha registers.SrcReg) error {
	if i < 0 || i > 2 {
		return c.invalid(ErrInvalidValue, "combine argument %d", i)
	}
	if rgb > registers.SrcPrevious || alpha > registers.SrcPrevious {
		return c.invalid(ErrInvalidEnum, "combine source %d, %d", rgb, alpha)
	}
	tex := c.pixels.Texture()
	tex.SetSrcRGB(i, rgb)
	tex.SetSrcAlpha(i, alpha)
	return nil
}

// CombineOperand sets operand i (0..2) of the color and alpha combiners.
// The alpha combiner only reads alpha operands.
func (c *Context) CombineOperand(i int, rgb, alpha registers.Operand) error {
	if i < 0 || i > 2 {
		return c.invalid(ErrInvalidValue, "combine argument %d", i)
	}
	if rgb > registers.OperandOneMinusSrcColor || alpha > registers.OperandOneMinusSrcAlpha {
		return c.invalid(ErrInvalidEnum, "combine operand %d, %d", rgb, alpha)
	}
	tex := c.pixels.Texture()
	tex.SetOperandRGB(i, rgb)
	tex.SetOperandAlpha(i, alpha)
	return nil
}

func scaleShift(scale float64) (uint8, bool) {
	switch scale {
	case 1:
		return 0, true
	case 2:
		return 1, true
	case 4:
		return 2, true
	}
	return 0, false
}

// CombineScale sets the factors, 1, 2 or 4, the combiner results are
// multiplied with.
func (c *Context) CombineScale(rgb, alpha float64) error {
	rs, ok1 := scaleShift(rgb)
	as, ok2 := scaleShift(alpha)
	if !ok1 || !ok2 {
		return c.invalid(ErrInvalidValue, "combine scale %g, %g", rgb, alpha)
	}
	tex := c.pixels.Texture()
	tex.SetShiftRGB(rs)
	tex.SetShiftAlpha(as)
	return nil
}

// TexGenMode is the function generating a texture coordinate.
type TexGenMode = vertexpipeline.TexGenMode

const (
	ObjectLinear  = vertexpipeline.ObjectLinear
	EyeLinear     = vertexpipeline.EyeLinear
	SphereMap     = vertexpipeline.SphereMap
	ReflectionMap = vertexpipeline.ReflectionMap
)

// TexGenCoord names a generated coordinate.
type TexGenCoord = vertexpipeline.TexCoord

const (
	S = vertexpipeline.CoordS
	T = vertexpipeline.CoordT
	R = vertexpipeline.CoordR
)

func (c *Context) texGen(coord TexGenCoord) (*vertexpipeline.TexGen, error) {
	if coord < S || coord > R {
		return nil, c.invalid(ErrInvalidEnum, "tex gen coord %d", coord)
	}
	g, err := c.vertex.TexGen(c.pixels.Texture().ActiveTMU())
	if err != nil {
		return nil, c.record(err)
	}
	return g, nil
}

// TexGen selects the generating function of coord on the active TMU.
// Sphere mapping only generates S and T.
func (c *Context) TexGen(coord TexGenCoord, mode TexGenMode) error {
	if mode < ObjectLinear || mode > ReflectionMap || (mode == SphereMap && coord == R) {
		return c.invalid(ErrInvalidEnum, "tex gen mode %d for %d", mode, coord)
	}
	g, err := c.texGen(coord)
	if err != nil {
		return err
	}
	g.SetMode(coord, mode)
	return nil
}

// TexGenObjectPlane sets the OBJECT_LINEAR plane of coord.
func (c *Context) TexGenObjectPlane(coord TexGenCoord, plane math3d.Vec4) error {
	g, err := c.texGen(coord)
	if err != nil {
		return err
	}
	g.SetObjectPlane(coord, plane)
	return nil
}

// TexGenEyePlane sets the EYE_LINEAR plane of coord. The plane is taken to
// eye space with the modelview in effect now.
func (c *Context) TexGenEyePlane(coord TexGenCoord, plane math3d.Vec4) error {
	g, err := c.texGen(coord)
	if err != nil {
		return err
	}
	g.SetEyePlane(coord, plane, c.vertex.Matrices().ModelView())
	return nil
}
