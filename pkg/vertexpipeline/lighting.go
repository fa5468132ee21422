package vertexpipeline

import (
	"fmt"
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
)

// MaxLights is the number of light sources.
const MaxLights = 8

// ColorMaterialTracking selects the material color replaced by the vertex
// color while color material is enabled.
type ColorMaterialTracking int

const (
	TrackAmbient ColorMaterialTracking = iota
	TrackDiffuse
	TrackAmbientAndDiffuse
	TrackSpecular
	TrackEmission
)

// Light is one light source. Position is in eye space.
type Light struct {
	Enable               bool
	Ambient              math3d.Vec4
	Diffuse              math3d.Vec4
	Specular             math3d.Vec4
	Position             math3d.Vec4
	ConstantAttenuation  float64
	LinearAttenuation    float64
	QuadraticAttenuation float64

	dir  math3d.Vec3 // unit direction of a directional light
	half math3d.Vec3 // half vector of a directional light
}

func (l *Light) precompute() {
	l.dir = l.Position.Vec3().Normalize()
	l.half = l.dir.Add(math3d.V3(0, 0, 1)).Normalize()
}

// Material is the surface the lights act on.
type Material struct {
	Emissive     math3d.Vec4
	Ambient      math3d.Vec4
	Diffuse      math3d.Vec4
	Specular     math3d.Vec4
	Shininess    float64
	SceneAmbient math3d.Vec4
}

// Lighting evaluates per-vertex lighting with an infinite viewer.
type Lighting struct {
	enable        bool
	lights        [MaxLights]Light
	material      Material
	colorMaterial bool
	tracking      ColorMaterialTracking
}

// NewLighting returns disabled lighting with the API default lights and
// material. Light 0 is white, the others are black.
func NewLighting() *Lighting {
	l := &Lighting{
		tracking: TrackAmbientAndDiffuse,
		material: Material{
			Emissive:     math3d.V4(0, 0, 0, 1),
			Ambient:      math3d.V4(0.2, 0.2, 0.2, 1),
			Diffuse:      math3d.V4(0.8, 0.8, 0.8, 1),
			Specular:     math3d.V4(0, 0, 0, 1),
			SceneAmbient: math3d.V4(0.2, 0.2, 0.2, 1),
		},
	}
	for i := range l.lights {
		l.lights[i] = Light{
			Ambient:             math3d.V4(0, 0, 0, 1),
			Diffuse:             math3d.V4(0, 0, 0, 1),
			Specular:            math3d.V4(0, 0, 0, 1),
			Position:            math3d.V4(0, 0, 1, 0),
			ConstantAttenuation: 1,
		}
		l.lights[i].precompute()
	}
	l.lights[0].Diffuse = math3d.V4(1, 1, 1, 1)
	l.lights[0].Specular = math3d.V4(1, 1, 1, 1)
	return l
}

// EnableLighting turns per-vertex lighting on or off.
func (l *Lighting) EnableLighting(enable bool) { l.enable = enable }

// Enabled reports whether lighting is on.
func (l *Lighting) Enabled() bool { return l.enable }

func (l *Lighting) light(i int) (*Light, error) {
	if i < 0 || i >= MaxLights {
		return nil, fmt.Errorf("light %d: %w", i, ErrInvalidLight)
	}
	return &l.lights[i], nil
}

// Light returns a copy of light i.
func (l *Lighting) Light(i int) (Light, error) {
	lt, err := l.light(i)
	if err != nil {
		return Light{}, err
	}
	return *lt, nil
}

// EditLight applies fn to light i and refreshes its derived vectors.
func (l *Lighting) EditLight(i int, fn func(*Light)) error {
	lt, err := l.light(i)
	if err != nil {
		return err
	}
	fn(lt)
	lt.precompute()
	return nil
}

func (l *Lighting) EnableLight(i int, enable bool) error {
	return l.EditLight(i, func(lt *Light) { lt.Enable = enable })
}

// SetLightPosition sets the eye-space position of light i. A w of 0 makes a
// directional light.
func (l *Lighting) SetLightPosition(i int, pos math3d.Vec4) error {
	return l.EditLight(i, func(lt *Light) { lt.Position = pos })
}

// Material returns the material.
func (l *Lighting) Material() Material { return l.material }

// EditMaterial applies fn to the material.
func (l *Lighting) EditMaterial(fn func(*Material)) { fn(&l.material) }

// EnableColorMaterial toggles replacing the tracked material color with
// the vertex color.
func (l *Lighting) EnableColorMaterial(enable bool) { l.colorMaterial = enable }

// SetColorMaterialTracking selects the material color the vertex color
// replaces.
func (l *Lighting) SetColorMaterialTracking(t ColorMaterialTracking) { l.tracking = t }

func (l *Lighting) tracks(t ColorMaterialTracking) bool {
	if !l.colorMaterial {
		return false
	}
	if l.tracking == TrackAmbientAndDiffuse {
		return t == TrackAmbient || t == TrackDiffuse
	}
	return l.tracking == t
}

// Calculate returns the lit color of an eye-space vertex with eye-space
// unit normal n. The alpha of color is kept. Disabled lighting returns
// color unchanged.
func (l *Lighting) Calculate(v math3d.Vec4, n math3d.Vec3, color math3d.Vec4) math3d.Vec4 {
	if !l.enable {
		return color
	}
	m := l.material
	if l.tracks(TrackEmission) {
		m.Emissive = color
	}
	if l.tracks(TrackAmbient) {
		m.Ambient = color
	}
	if l.tracks(TrackDiffuse) {
		m.Diffuse = color
	}
	if l.tracks(TrackSpecular) {
		m.Specular = color
	}

	out := m.Ambient.Mul(m.SceneAmbient).Add(m.Emissive)
	for i := range l.lights {
		if l.lights[i].Enable {
			out = out.Add(l.contribution(&l.lights[i], &m, v, n))
		}
	}
	out.W = color.W
	return out
}

func (l *Lighting) contribution(lt *Light, m *Material, v math3d.Vec4, n math3d.Vec3) math3d.Vec4 {
	dir, half := lt.dir, lt.half
	att := 1.0
	if lt.Position.W != 0 {
		d := lt.Position.Vec3().Sub(v.Vec3())
		dist := d.Len()
		dir = d.Normalize()
		half = dir.Add(math3d.V3(0, 0, 1)).Normalize()
		att = 1 / (lt.ConstantAttenuation + lt.LinearAttenuation*dist + lt.QuadraticAttenuation*dist*dist)
	}

	nDotL := n.Dot(dir)
	if nDotL < 0.01 {
		nDotL = 0
	}
	f := 0.0
	if nDotL != 0 {
		f = 1
	}

	spec := max(n.Dot(half), 0)
	switch m.Shininess {
	case 0:
		spec = 1
	case 1:
	default:
		spec = math.Pow(spec, m.Shininess)
	}

	diffuse := lt.Diffuse.Mul(m.Diffuse).Scale(nDotL)
	ambient := lt.Ambient.Mul(m.Ambient)
	specular := lt.Specular.Mul(m.Specular).Scale(f * spec)
	return diffuse.Add(ambient).Add(specular).Scale(att)
}
