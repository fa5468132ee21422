package vertexpipeline

import "math"

// DrawMode is the primitive type a vertex stream is assembled into.
type DrawMode int

const (
	Triangles DrawMode = iota
	TriangleFan
	TriangleStrip
	Quads
	QuadStrip
	Polygon
	Lines
	LineStrip
	LineLoop
)

func (m DrawMode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case TriangleFan:
		return "triangle_fan"
	case TriangleStrip:
		return "triangle_strip"
	case Quads:
		return "quads"
	case QuadStrip:
		return "quad_strip"
	case Polygon:
		return "polygon"
	case Lines:
		return "lines"
	case LineStrip:
		return "line_strip"
	case LineLoop:
		return "line_loop"
	}
	return "unknown"
}

// IsLine reports whether m assembles line segments.
func (m DrawMode) IsLine() bool { return m == Lines || m == LineStrip || m == LineLoop }

// Triangle references three vertices owned by the assembler or the clipper.
type Triangle [3]*VertexParameter

const queueSize = 3

// vertexQueue is a ring of the last vertices not yet consumed by a
// primitive.
type vertexQueue struct {
	slots [queueSize]VertexParameter
	head  int
	size  int
}

func (q *vertexQueue) at(i int) *VertexParameter { return &q.slots[(q.head+i)%queueSize] }

func (q *vertexQueue) push(v VertexParameter) {
	if q.size == queueSize {
		q.remove(1)
	}
	q.slots[(q.head+q.size)%queueSize] = v
	q.size++
}

func (q *vertexQueue) remove(n int) {
	n = min(n, q.size)
	q.head = (q.head + n) % queueSize
	q.size -= n
}

func (q *vertexQueue) clear() { q.head, q.size = 0, 0 }

// PrimitiveAssembler turns a stream of clip-space vertices into triangles.
// Line segments are extruded into two triangles each, perpendicular to the
// segment on screen.
type PrimitiveAssembler struct {
	viewport  *ViewPort
	mode      DrawMode
	lineWidth float64

	queue     vertexQueue
	count     int // primitives emitted since Reset
	expected  int // vertices in the stream
	pivot     VertexParameter
	lineVerts [8]VertexParameter
	tris      [4]Triangle
}

// NewPrimitiveAssembler returns an assembler for TRIANGLES with line width
// 1. Lines are extruded using the size of vp.
func NewPrimitiveAssembler(vp *ViewPort) *PrimitiveAssembler {
	return &PrimitiveAssembler{viewport: vp, lineWidth: 1}
}

// Reset starts a new stream of expected vertices drawn as mode.
func (a *PrimitiveAssembler) Reset(mode DrawMode, expected int) {
	a.mode = mode
	a.expected = expected
	a.count = 0
	a.queue.clear()
}

// SetLineWidth sets the width of the quads lines are expanded to.
func (a *PrimitiveAssembler) SetLineWidth(width float64) { a.lineWidth = width }

// LineWidth returns the line width.
func (a *PrimitiveAssembler) LineWidth() float64 { return a.lineWidth }

// DrawMode returns the primitive type being assembled.
func (a *PrimitiveAssembler) DrawMode() DrawMode { return a.mode }

// Push adds a vertex and returns the triangles it completes. The returned
// slice and the vertices it points to are valid until the next call.
func (a *PrimitiveAssembler) Push(v VertexParameter) []Triangle {
	a.queue.push(v)
	if a.mode.IsLine() {
		return a.line()
	}
	return a.triangle()
}

func (a *PrimitiveAssembler) triangle() []Triangle {
	if a.queue.size < 3 {
		return nil
	}
	q0, q1, q2 := a.queue.at(0), a.queue.at(1), a.queue.at(2)
	var decrement int
	switch a.mode {
	case Triangles:
		a.tris[0] = Triangle{q0, q1, q2}
		decrement = 3
	case TriangleFan, Polygon:
		if a.count == 0 {
			a.pivot = *q0
		}
		a.tris[0] = Triangle{&a.pivot, q1, q2}
		decrement = 1
	case TriangleStrip:
		if a.count&1 == 1 {
			a.tris[0] = Triangle{q1, q0, q2}
		} else {
			a.tris[0] = Triangle{q0, q1, q2}
		}
		decrement = 1
	case Quads:
		if a.count&1 == 1 {
			a.tris[0] = Triangle{&a.pivot, q1, q2}
			decrement = 3
		} else {
			a.pivot = *q0
			a.tris[0] = Triangle{&a.pivot, q1, q2}
			decrement = 1
		}
	case QuadStrip:
		if a.count&1 == 1 {
			a.tris[0] = Triangle{q0, q2, q1}
		} else {
			a.tris[0] = Triangle{q0, q1, q2}
		}
		decrement = 1
	default:
		return nil
	}
	a.count++
	a.queue.remove(decrement)
	return a.tris[:1]
}

func (a *PrimitiveAssembler) line() []Triangle {
	if a.queue.size < 2 {
		return nil
	}
	p0, p1 := a.queue.at(0), a.queue.at(1)
	var decrement int
	closing := false
	switch a.mode {
	case Lines:
		decrement = 2
	case LineStrip:
		decrement = 1
	case LineLoop:
		if a.count == 0 {
			a.pivot = *p0
		}
		closing = a.count == a.expected-2
		decrement = 1
	default:
		return nil
	}
	a.count++
	tris := a.tris[:0]
	tris = a.extrude(tris, a.lineVerts[0:4], p0, p1)
	if closing {
		tris = a.extrude(tris, a.lineVerts[4:8], p1, &a.pivot)
	}
	a.queue.remove(decrement)
	return tris
}

// extrude appends the two triangles covering the segment p0 p1. verts
// receives the four corner vertices.
func (a *PrimitiveAssembler) extrude(tris []Triangle, verts []VertexParameter, p0, p1 *VertexParameter) []Triangle {
	v0, v1 := p0.Vertex, p1.Vertex
	nx := -(v1.Y/v1.W - v0.Y/v0.W)
	ny := v1.X/v1.W - v0.X/v0.W
	l := math.Sqrt(nx*nx + ny*ny)
	if l == 0 {
		return tris
	}
	half := a.lineWidth / 2
	nx, ny = nx/l*half, ny/l*half
	sx, sy := 2/a.viewport.Width(), 2/a.viewport.Height()

	for i := range verts[:2] {
		verts[i] = VertexParameter{Vertex: v0, Color: p0.Color, Tex: p0.Tex}
		verts[i+2] = VertexParameter{Vertex: v1, Color: p1.Color, Tex: p1.Tex}
	}
	verts[0].Vertex.X += nx * v0.W * sx
	verts[0].Vertex.Y += ny * v0.W * sy
	verts[1].Vertex.X -= nx * v0.W * sx
	verts[1].Vertex.Y -= ny * v0.W * sy
	verts[2].Vertex.X += nx * v1.W * sx
	verts[2].Vertex.Y += ny * v1.W * sy
	verts[3].Vertex.X -= nx * v1.W * sx
	verts[3].Vertex.Y -= ny * v1.W * sy

	return append(tris,
		Triangle{&verts[0], &verts[1], &verts[2]},
		Triangle{&verts[2], &verts[1], &verts[3]})
}
