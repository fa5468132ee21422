package rrx

import (
	"encoding/binary"
	"math"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

// DrawMode is the primitive type of a draw call.
type DrawMode = vertexpipeline.DrawMode

const (
	Triangles     = vertexpipeline.Triangles
	TriangleFan   = vertexpipeline.TriangleFan
	TriangleStrip = vertexpipeline.TriangleStrip
	Quads         = vertexpipeline.Quads
	QuadStrip     = vertexpipeline.QuadStrip
	Polygon       = vertexpipeline.Polygon
	Lines         = vertexpipeline.Lines
	LineStrip     = vertexpipeline.LineStrip
	LineLoop      = vertexpipeline.LineLoop
)

func validDrawMode(m DrawMode) bool { return m >= Triangles && m <= LineLoop }

// immediate collects the vertices between Begin and End. Each vertex
// latches the current attributes.
type immediate struct {
	active   bool
	mode     DrawMode
	pos      []float32
	normal   []float32
	color    []float32
	texCoord [vertexpipeline.MaxTMUCount][]float32
}

func (q *immediate) reset(mode DrawMode) {
	q.active = true
	q.mode = mode
	q.pos = q.pos[:0]
	q.normal = q.normal[:0]
	q.color = q.color[:0]
	for i := range q.texCoord {
		q.texCoord[i] = q.texCoord[i][:0]
	}
}

func appendVec4(dst []float32, v math3d.Vec4) []float32 {
	return append(dst, float32(v.X), float32(v.Y), float32(v.Z), float32(v.W))
}

// floatBytes packs vs as little-endian float32 values.
func floatBytes(vs []float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

// Begin starts collecting vertices of mode.
func (c *Context) Begin(mode DrawMode) error {
	if c.imm.active {
		return c.invalid(ErrInvalidOperation, "begin inside begin/end")
	}
	if !validDrawMode(mode) {
		return c.invalid(ErrInvalidEnum, "draw mode %d", mode)
	}
	c.imm.reset(mode)
	return nil
}

// End draws the vertices collected since Begin.
func (c *Context) End() error {
	if !c.imm.active {
		return c.invalid(ErrInvalidOperation, "end without begin")
	}
	q := &c.imm
	q.active = false
	n := len(q.pos) / 4
	if n == 0 {
		return nil
	}
	obj := vertexpipeline.NewRenderObj()
	obj.Mode = q.mode
	obj.Count = n
	obj.Vertex = vertexpipeline.Array{Enabled: true, Size: 4, Type: vertexpipeline.Float, Data: floatBytes(q.pos)}
	obj.Normal = vertexpipeline.Array{Enabled: true, Size: 3, Type: vertexpipeline.Float, Data: floatBytes(q.normal)}
	obj.Color = vertexpipeline.Array{Enabled: true, Size: 4, Type: vertexpipeline.Float, Data: floatBytes(q.color)}
	for i := range obj.TexCoord {
		obj.TexCoord[i] = vertexpipeline.Array{Enabled: true, Size: 4, Type: vertexpipeline.Float, Data: floatBytes(q.texCoord[i])}
	}
	logging.Logger().Debug("immediate draw", "mode", q.mode, "vertices", n)
	return c.record(c.vertex.DrawObj(obj))
}

// Vertex emits a vertex with the current attributes.
func (c *Context) Vertex(x, y, z, w float64) error {
	if !c.imm.active {
		return c.invalid(ErrInvalidOperation, "vertex outside begin/end")
	}
	q := &c.imm
	q.pos = appendVec4(q.pos, math3d.V4(x, y, z, w))
	q.normal = append(q.normal, float32(c.normal.X), float32(c.normal.Y), float32(c.normal.Z))
	q.color = appendVec4(q.color, c.color)
	for i := range q.texCoord {
		q.texCoord[i] = appendVec4(q.texCoord[i], c.texCoord[i])
	}
	return nil
}

func (c *Context) Vertex2(x, y float64) error    { return c.Vertex(x, y, 0, 1) }
func (c *Context) Vertex3(x, y, z float64) error { return c.Vertex(x, y, z, 1) }

// Color sets the current color. Channels are in [0, 1].
func (c *Context) Color(r, g, b, a float64) { c.color = math3d.V4(r, g, b, a) }

// Color3 sets the current color with full alpha.
func (c *Context) Color3(r, g, b float64) { c.Color(r, g, b, 1) }

// Normal sets the current normal.
func (c *Context) Normal(x, y, z float64) { c.normal = math3d.V3(x, y, z) }

// TexCoord sets the current coordinate of TMU 0.
func (c *Context) TexCoord(s, t float64) { c.texCoord[0] = math3d.V4(s, t, 0, 1) }

// MultiTexCoord sets the current coordinate of tmu.
func (c *Context) MultiTexCoord(tmu int, s, t, r, q float64) error {
	if tmu < 0 || tmu >= c.tmus() {
		return c.invalid(ErrInvalidEnum, "tmu %d", tmu)
	}
	c.texCoord[tmu] = math3d.V4(s, t, r, q)
	return nil
}

func (c *Context) tmus() int { return min(c.cfg.TMUCount, vertexpipeline.MaxTMUCount) }
