// Package renderer turns screen-space triangles and state changes into
// display lists and hands them to the bus.
package renderer

import (
	"math"

	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/math3d"
)

// Sub-pixel precision of the edge functions.
const (
	edgeFuncSize    = 5
	edgeFuncOne     = 1 << edgeFuncSize
	edgeFuncHalf    = edgeFuncOne / 2
	texScaleLimit   = 4.0
	maxScissorCoord = 0x7ff
)

// TransformedTriangle is a triangle in screen space. Vertex holds x, y in
// pixels, z in depth range and w as 1/w. Texture holds one coordinate per
// TMU for each vertex and is borrowed from the vertex pipeline.
type TransformedTriangle struct {
	Vertex  [3]math3d.Vec4
	Color   [3]math3d.Vec4
	Texture [3][]math3d.Vec4
}

// Rasterizer computes the triangle setup the device walks: bounding box,
// edge functions and attribute gradients at the box origin.
type Rasterizer struct {
	scaling       bool // Normalize w and wrap large texture coordinates
	enableScissor bool
	scissorStartX int32
	scissorStartY int32
	scissorEndX   int32
	scissorEndY   int32
	tmuEnable     []bool
}

// NewRasterizer returns a rasterizer for tmus TMUs. scaling should be set
// for fixed point descriptors, whose texture range is limited.
func NewRasterizer(tmus int, scaling bool) *Rasterizer {
	return &Rasterizer{
		scaling:     scaling,
		scissorEndX: maxScissorCoord << edgeFuncSize,
		scissorEndY: maxScissorCoord << edgeFuncSize,
		tmuEnable:   make([]bool, tmus),
	}
}

// EnableScissor toggles the scissor rejection test.
func (r *Rasterizer) EnableScissor(enable bool) { r.enableScissor = enable }

// SetScissorBox sets the scissor rectangle in pixels.
func (r *Rasterizer) SetScissorBox(x, y, width, height int) {
	r.scissorStartX = int32(x) << edgeFuncSize
	r.scissorStartY = int32(y) << edgeFuncSize
	r.scissorEndX = r.scissorStartX + int32(width)<<edgeFuncSize
	r.scissorEndY = r.scissorStartY + int32(height)<<edgeFuncSize
}

// EnableTMU selects whether texture parameters of tmu are computed.
func (r *Rasterizer) EnableTMU(tmu int, enable bool) {
	if tmu >= 0 && tmu < len(r.tmuEnable) {
		r.tmuEnable[tmu] = enable
	}
}

// Face is a side of a triangle.
type Face int

const (
	FaceBack Face = iota
	FaceFront
	FaceFrontAndBack
)

func (f Face) String() string {
	switch f {
	case FaceBack:
		return "back"
	case FaceFront:
		return "front"
	case FaceFrontAndBack:
		return "front_and_back"
	}
	return "unknown"
}

// EdgeFunction is the signed parallelogram area of the screen-space
// triangle (a, b, c).
func EdgeFunction(a, b, c math3d.Vec4) float64 {
	return (c.X-a.X)*(b.Y-a.Y) - (c.Y-a.Y)*(b.X-a.X)
}

// Facing returns the side of a screen-space triangle the viewer sees. The
// device walks triangles clockwise while the API winds front faces
// counter-clockwise, so a non-positive area is a front face. Culling and
// two-sided stencil both classify triangles through this function.
func Facing(v0, v1, v2 math3d.Vec4) Face {
	if EdgeFunction(v0, v1, v2) <= 0 {
		return FaceFront
	}
	return FaceBack
}

// edgeFunction is the signed parallelogram area of (a, b, c) in sub-pixels.
func edgeFunction(a, b, c math3d.Vec2i) int64 {
	return int64(c[0]-a[0])*int64(b[1]-a[1]) - int64(c[1]-a[1])*int64(b[0]-a[0])
}

func edges(v0, v1, v2, p math3d.Vec2i, sign int64) math3d.Vec3i {
	return math3d.Vec3i{
		int32(edgeFunction(v1, v2, p) * sign),
		int32(edgeFunction(v2, v0, p) * sign),
		int32(edgeFunction(v0, v1, p) * sign),
	}
}

func subVec3i(a, b math3d.Vec3i) math3d.Vec3i {
	return math3d.Vec3i{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func normVec3i(v math3d.Vec3i, inv float64) math3d.Vec3 {
	return math3d.V3(float64(v[0])*inv, float64(v[1])*inv, float64(v[2])*inv)
}

// Rasterize computes the setup of tri. It reports false for degenerate
// triangles and triangles outside the scissor box.
func (r *Rasterizer) Rasterize(tri *TransformedTriangle) (commands.TriangleDesc, bool) {
	var desc commands.TriangleDesc
	var v [3]math3d.Vec2i
	for i := range v {
		v[i] = math3d.FixedVec2(tri.Vertex[i].Vec2(), edgeFuncSize)
	}

	area := edgeFunction(v[0], v[1], v[2])
	sign := int64(1)
	if area <= 0 {
		sign = -1
	}
	area *= sign
	if area <= 0 {
		return desc, false
	}

	bbStartX := min(v[0][0], v[1][0], v[2][0]) + edgeFuncHalf
	bbStartY := min(v[0][1], v[1][1], v[2][1]) + edgeFuncHalf
	bbEndX := max(v[0][0], v[1][0], v[2][0]) + edgeFuncOne + edgeFuncHalf
	bbEndY := max(v[0][1], v[1][1], v[2][1]) + edgeFuncOne + edgeFuncHalf
	if bbStartX < 0 || bbStartY < 0 {
		// Only reachable with geometry that bypassed the clipper.
		bbStartX, bbStartY = max(bbStartX, 0), max(bbStartY, 0)
	}
	desc.BBStartX = uint16(bbStartX >> edgeFuncSize)
	desc.BBStartY = uint16(bbStartY >> edgeFuncSize)
	desc.BBEndX = uint16(bbEndX >> edgeFuncSize)
	desc.BBEndY = uint16(bbEndY >> edgeFuncSize)

	if r.enableScissor {
		if max(bbStartX, r.scissorStartX) >= min(bbEndX, r.scissorEndX) {
			return desc, false
		}
		if max(bbStartY, r.scissorStartY) >= min(bbEndY, r.scissorEndY) {
			return desc, false
		}
	}

	p := math3d.Vec2i{int32(desc.BBStartX) << edgeFuncSize, int32(desc.BBStartY) << edgeFuncSize}
	desc.WInit = edges(v[0], v[1], v[2], p, sign)
	desc.WXInc = subVec3i(edges(v[0], v[1], v[2], math3d.Vec2i{p[0] + edgeFuncOne, p[1]}, sign), desc.WInit)
	desc.WYInc = subVec3i(edges(v[0], v[1], v[2], math3d.Vec2i{p[0], p[1] + edgeFuncOne}, sign), desc.WInit)

	areaInv := 1 / float64(area)
	wNorm := normVec3i(desc.WInit, areaInv)
	wXNorm := normVec3i(desc.WXInc, areaInv)
	wYNorm := normVec3i(desc.WYInc, areaInv)

	vw := math3d.V3(tri.Vertex[0].W, tri.Vertex[1].W, tri.Vertex[2].W)
	w := vw
	if r.scaling {
		w = w.Normalize()
	}

	desc.Texture = make([]commands.TextureParams, len(r.tmuEnable))
	for i, enabled := range r.tmuEnable {
		if !enabled || len(tri.Texture[0]) <= i || len(tri.Texture[1]) <= i || len(tri.Texture[2]) <= i {
			continue
		}
		t0, t1, t2 := tri.Texture[0][i], tri.Texture[1][i], tri.Texture[2][i]
		s := math3d.V3(t0.X, t1.X, t2.X)
		t := math3d.V3(t0.Y, t1.Y, t2.Y)
		q := math3d.V3(t0.W, t1.W, t2.W)
		if r.scaling {
			s = wrapTexRange(s)
			t = wrapTexRange(t)
		}
		s, t, q = s.Mul(w), t.Mul(w), q.Mul(w)
		desc.Texture[i] = commands.TextureParams{
			Stq:     math3d.V3(s.Dot(wNorm), t.Dot(wNorm), q.Dot(wNorm)),
			StqXInc: math3d.V3(s.Dot(wXNorm), t.Dot(wXNorm), q.Dot(wXNorm)),
			StqYInc: math3d.V3(s.Dot(wYNorm), t.Dot(wYNorm), q.Dot(wYNorm)),
		}
	}

	desc.DepthW, desc.DepthWXInc, desc.DepthWYInc = vw.Dot(wNorm), vw.Dot(wXNorm), vw.Dot(wYNorm)
	vz := math3d.V3(tri.Vertex[0].Z, tri.Vertex[1].Z, tri.Vertex[2].Z)
	desc.DepthZ, desc.DepthZXInc, desc.DepthZYInc = vz.Dot(wNorm), vz.Dot(wXNorm), vz.Dot(wYNorm)

	c0, c1, c2 := tri.Color[0], tri.Color[1], tri.Color[2]
	cr := math3d.V3(c0.X, c1.X, c2.X)
	cg := math3d.V3(c0.Y, c1.Y, c2.Y)
	cb := math3d.V3(c0.Z, c1.Z, c2.Z)
	ca := math3d.V3(c0.W, c1.W, c2.W)
	desc.Color = math3d.V4(cr.Dot(wNorm), cg.Dot(wNorm), cb.Dot(wNorm), ca.Dot(wNorm))
	desc.ColorXInc = math3d.V4(cr.Dot(wXNorm), cg.Dot(wXNorm), cb.Dot(wXNorm), ca.Dot(wXNorm))
	desc.ColorYInc = math3d.V4(cr.Dot(wYNorm), cg.Dot(wYNorm), cb.Dot(wYNorm), ca.Dot(wYNorm))
	return desc, true
}

// wrapTexRange shifts coordinates that leave [-4, 4] by whole repeats so
// that the fixed point encoding keeps its precision.
func wrapTexRange(v math3d.Vec3) math3d.Vec3 {
	lo := min(v.X, v.Y, v.Z)
	hi := max(v.X, v.Y, v.Z)
	if lo < -texScaleLimit {
		shift := math.Trunc(lo)
		v = v.Sub(math3d.V3(shift, shift, shift))
	}
	if hi > texScaleLimit {
		shift := math.Trunc(hi)
		v = v.Sub(math3d.V3(shift, shift, shift))
	}
	return v
}
