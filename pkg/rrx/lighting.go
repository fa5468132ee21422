package rrx

import (
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

// ColorMaterialTracking selects the material color following the vertex
// color.
type ColorMaterialTracking = vertexpipeline.ColorMaterialTracking

const (
	TrackAmbient           = vertexpipeline.TrackAmbient
	TrackDiffuse           = vertexpipeline.TrackDiffuse
	TrackAmbientAndDiffuse = vertexpipeline.TrackAmbientAndDiffuse
	TrackSpecular          = vertexpipeline.TrackSpecular
	TrackEmission          = vertexpipeline.TrackEmission
)

// MaxShininess is the largest specular exponent.
const MaxShininess = 128

func (c *Context) editLight(light int, fn func(*vertexpipeline.Light)) error {
	if err := c.vertex.Lighting().EditLight(light, fn); err != nil {
		return c.invalid(ErrInvalidEnum, "light %d", light)
	}
	return nil
}

func (c *Context) LightAmbient(light int, color math3d.Vec4) error {
	return c.editLight(light, func(l *vertexpipeline.Light) { l.Ambient = color })
}

func (c *Context) LightDiffuse(light int, color math3d.Vec4) error {
	return c.editLight(light, func(l *vertexpipeline.Light) { l.Diffuse = color })
}

func (c *Context) LightSpecular(light int, color math3d.Vec4) error {
	return c.editLight(light, func(l *vertexpipeline.Light) { l.Specular = color })
}

// LightPosition places light in object space. The position is moved into
// eye space by the modelview in effect now; later modelview changes do not
// move the light. A w of 0 makes a directional light.
func (c *Context) LightPosition(light int, pos math3d.Vec4) error {
	eye := c.vertex.Matrices().ModelView().MulVec4(pos)
	return c.editLight(light, func(l *vertexpipeline.Light) { l.Position = eye })
}

// LightAttenuation sets the constant, linear and quadratic distance
// attenuation of a positional light.
func (c *Context) LightAttenuation(light int, constant, linear, quadratic float64) error {
	if constant < 0 || linear < 0 || quadratic < 0 {
		return c.invalid(ErrInvalidValue, "attenuation %g %g %g", constant, linear, quadratic)
	}
	return c.editLight(light, func(l *vertexpipeline.Light) {
		l.ConstantAttenuation = constant
		l.LinearAttenuation = linear
		l.QuadraticAttenuation = quadratic
	})
}

// SpotDirection is not supported by the lighting model.
func (c *Context) SpotDirection(light int, dir math3d.Vec3) { c.unsupported("spot_direction") }

// LightModelAmbient sets the ambient light of the scene.
func (c *Context) LightModelAmbient(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.SceneAmbient = color })
}

func (c *Context) MaterialAmbient(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.Ambient = color })
}

func (c *Context) MaterialDiffuse(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.Diffuse = color })
}

func (c *Context) MaterialAmbientAndDiffuse(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) {
		m.Ambient = color
		m.Diffuse = color
	})
}

func (c *Context) MaterialSpecular(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.Specular = color })
}

func (c *Context) MaterialEmission(color math3d.Vec4) {
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.Emissive = color })
}

// MaterialShininess sets the specular exponent, in [0, MaxShininess].
func (c *Context) MaterialShininess(v float64) error {
	if v < 0 || v > MaxShininess {
		return c.invalid(ErrInvalidValue, "shininess %g", v)
	}
	c.vertex.Lighting().EditMaterial(func(m *vertexpipeline.Material) { m.Shininess = v })
	return nil
}

// ColorMaterial selects the material color replaced by the vertex color
// while ColorMaterial is enabled.
func (c *Context) ColorMaterial(t ColorMaterialTracking) error {
	if t < TrackAmbient || t > TrackEmission {
		return c.invalid(ErrInvalidEnum, "color material %d", t)
	}
	c.vertex.Lighting().SetColorMaterialTracking(t)
	return nil
}
