package vertexpipeline

import "github.com/taigrr/rasterix/pkg/math3d"

// Depth values are scaled just below the top of the 16 bit range so the
// far plane never wraps to zero.
const depthRangeScale = 65534.0 / 65536.0

// VertexParameter is a vertex travelling through the pipeline. Vertex is in
// clip space until PerspectiveDivide and in screen space after Transform.
type VertexParameter struct {
	Vertex math3d.Vec4
	Color  math3d.Vec4
	Tex    [MaxTMUCount]math3d.Vec4
}

// Lerp interpolates every attribute from p toward q.
func (p *VertexParameter) Lerp(q *VertexParameter, t float64) VertexParameter {
	out := VertexParameter{
		Vertex: p.Vertex.Lerp(q.Vertex, t),
		Color:  p.Color.Lerp(q.Color, t),
	}
	for i := range out.Tex {
		out.Tex[i] = p.Tex[i].Lerp(q.Tex[i], t)
	}
	return out
}

// ViewPort maps normalized device coordinates to window coordinates.
type ViewPort struct {
	x, y          float64
	width, height float64
	depthScale    float64
	depthOffset   float64
}

// NewViewPort returns a viewport with the default depth range [-1, 1].
func NewViewPort() *ViewPort {
	return &ViewPort{depthScale: 1}
}

// SetViewport sets the window rectangle in pixels.
func (v *ViewPort) SetViewport(x, y, width, height float64) {
	v.x, v.y, v.width, v.height = x, y, width, height
}

// SetDepthRange maps NDC depth -1 and 1 to near and far.
func (v *ViewPort) SetDepthRange(near, far float64) {
	v.depthScale = (far - near) / 2
	v.depthOffset = (near + far) / 2
}

// Width returns the viewport width in pixels.
func (v *ViewPort) Width() float64 { return v.width }

// Height returns the viewport height in pixels.
func (v *ViewPort) Height() float64 { return v.height }

// Transform converts a vertex after the perspective divide to window
// coordinates. W is left untouched.
func (v *ViewPort) Transform(p math3d.Vec4) math3d.Vec4 {
	p.X = (p.X+1)*v.width/2 + v.x
	p.Y = (p.Y+1)*v.height/2 + v.y
	p.Z = (v.depthScale*p.Z + v.depthOffset) * depthRangeScale
	return p
}

// PerspectiveDivide divides x, y and z by w and replaces w with 1/w.
func PerspectiveDivide(p math3d.Vec4) math3d.Vec4 {
	inv := 1 / p.W
	return math3d.Vec4{X: p.X * inv, Y: p.Y * inv, Z: p.Z * inv, W: inv}
}
