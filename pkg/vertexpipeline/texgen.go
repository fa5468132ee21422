package vertexpipeline

import "github.com/taigrr/rasterix/pkg/math3d"

// TexGenMode is the function generating one texture coordinate.
type TexGenMode int

const (
	ObjectLinear TexGenMode = iota
	EyeLinear
	SphereMap
	ReflectionMap
)

// TexCoord names a generated coordinate.
type TexCoord int

const (
	CoordS TexCoord = iota
	CoordT
	CoordR
)

type texGenCoord struct {
	enable   bool
	mode     TexGenMode
	objPlane math3d.Vec4
	eyePlane math3d.Vec4 // eye space
}

// TexGen generates the S, T and R coordinates of one TMU.
type TexGen struct {
	coords [3]texGenCoord
}

// NewTexGen returns disabled generation in EYE_LINEAR mode with the
// default planes.
func NewTexGen() TexGen {
	var g TexGen
	planes := [3]math3d.Vec4{math3d.V4(1, 0, 0, 0), math3d.V4(0, 1, 0, 0), math3d.V4(0, 0, 1, 0)}
	for i := range g.coords {
		g.coords[i] = texGenCoord{mode: EyeLinear, objPlane: planes[i], eyePlane: planes[i]}
	}
	return g
}

func (g *TexGen) coord(c TexCoord) *texGenCoord {
	if c < CoordS || c > CoordR {
		return nil
	}
	return &g.coords[c]
}

// Enable toggles generation of c.
func (g *TexGen) Enable(c TexCoord, enable bool) {
	if p := g.coord(c); p != nil {
		p.enable = enable
	}
}

// SetMode selects the generating function of c.
func (g *TexGen) SetMode(c TexCoord, mode TexGenMode) {
	if p := g.coord(c); p != nil {
		p.mode = mode
	}
}

// SetObjectPlane sets the OBJECT_LINEAR plane of c.
func (g *TexGen) SetObjectPlane(c TexCoord, plane math3d.Vec4) {
	if p := g.coord(c); p != nil {
		p.objPlane = plane
	}
}

// SetEyePlane sets the EYE_LINEAR plane of c. The plane is given in object
// space and stored in eye space using the modelview in effect.
func (g *TexGen) SetEyePlane(c TexCoord, plane math3d.Vec4, modelView math3d.Mat4) {
	if p := g.coord(c); p != nil {
		p.eyePlane = modelView.Inverse().Transpose().MulVec4(plane)
	}
}

// Enabled reports whether any coordinate is generated.
func (g *TexGen) Enabled() bool {
	return g.coords[0].enable || g.coords[1].enable || g.coords[2].enable
}

func (g *TexGen) uses(mode TexGenMode) bool {
	for _, c := range g.coords {
		if c.enable && c.mode == mode {
			return true
		}
	}
	return false
}

// Calculate replaces the enabled coordinates of st. v is the object-space
// vertex, eye and normal the eye-space vertex and unit normal.
func (g *TexGen) Calculate(st, v, eye math3d.Vec4, normal math3d.Vec3) math3d.Vec4 {
	if !g.Enabled() {
		return st
	}
	var sphere, reflection math3d.Vec3
	if g.uses(SphereMap) {
		sphere = sphereVector(eye, normal)
	}
	if g.uses(ReflectionMap) {
		reflection = reflectionVector(eye, normal)
	}
	out := [3]float64{st.X, st.Y, st.Z}
	for i, c := range g.coords {
		if !c.enable {
			continue
		}
		switch c.mode {
		case ObjectLinear:
			out[i] = c.objPlane.Dot(v)
		case EyeLinear:
			out[i] = c.eyePlane.Dot(eye)
		case SphereMap:
			out[i] = component3(sphere, i)
		case ReflectionMap:
			out[i] = component3(reflection, i)
		}
	}
	st.X, st.Y, st.Z = out[0], out[1], out[2]
	return st
}

func component3(v math3d.Vec3, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func reflectionVector(eye math3d.Vec4, n math3d.Vec3) math3d.Vec3 {
	return eye.Vec3().Normalize().Reflect(n)
}

func sphereVector(eye math3d.Vec4, n math3d.Vec3) math3d.Vec3 {
	r := reflectionVector(eye, n)
	r.Z++
	m := 1 / (2 * r.Len())
	return r.Scale(m).Add(math3d.V3(0.5, 0.5, 0.5))
}
