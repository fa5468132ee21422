package vertexpipeline

import "github.com/taigrr/rasterix/pkg/math3d"

// Outcode bits of a clip-space vertex, one per frustum plane it lies
// outside of.
type Outcode uint8

const (
	OutLeft Outcode = 1 << iota
	OutRight
	OutBottom
	OutTop
	OutNear
	OutFar

	OutNone Outcode = 0
)

// ClipArenaSize is the largest polygon clipping a triangle against the six
// frustum planes can produce.
const ClipArenaSize = 9

// clipPlanes is the order the polygon is clipped in.
var clipPlanes = [...]Outcode{OutNear, OutFar, OutLeft, OutRight, OutTop, OutBottom}

// OutcodeOf classifies v against the clip volume -w <= x, y, z <= w.
func OutcodeOf(v math3d.Vec4) Outcode {
	var c Outcode
	if v.X < -v.W {
		c |= OutLeft
	}
	if v.X > v.W {
		c |= OutRight
	}
	if v.Y < -v.W {
		c |= OutBottom
	}
	if v.Y > v.W {
		c |= OutTop
	}
	if v.Z < -v.W {
		c |= OutNear
	}
	if v.Z > v.W {
		c |= OutFar
	}
	return c
}

// planeDistance is the signed distance of v to the plane. It changes sign
// where v crosses the plane.
func planeDistance(plane Outcode, v math3d.Vec4) float64 {
	switch plane {
	case OutLeft:
		return v.X + v.W
	case OutRight:
		return v.X - v.W
	case OutBottom:
		return v.Y + v.W
	case OutTop:
		return v.Y - v.W
	case OutNear:
		return v.Z + v.W
	default:
		return v.Z - v.W
	}
}

// Clipper cuts clip-space triangles against the view frustum. The
// returned polygons live in the clipper and are overwritten by the next
// call.
type Clipper struct {
	buf [2][ClipArenaSize]VertexParameter
}

// Clip returns the part of the triangle inside the frustum as a convex
// polygon with the winding of the input. A triangle fully inside comes back
// unchanged, one fully outside as an empty polygon.
func (c *Clipper) Clip(tri [3]*VertexParameter) []VertexParameter {
	c0, c1, c2 := OutcodeOf(tri[0].Vertex), OutcodeOf(tri[1].Vertex), OutcodeOf(tri[2].Vertex)
	if c0&c1&c2 != OutNone {
		return nil
	}
	in := c.buf[0][:3]
	in[0], in[1], in[2] = *tri[0], *tri[1], *tri[2]
	if c0|c1|c2 == OutNone {
		return in
	}

	out := c.buf[1][:0]
	for _, plane := range clipPlanes {
		out = clipAgainst(plane, in, out)
		if len(out) == 0 {
			return nil
		}
		in, out = out, in[:0]
	}

	if OutcodeOf(in[0].Vertex)&OutcodeOf(in[1].Vertex)&OutcodeOf(in[2].Vertex) != OutNone {
		return nil
	}
	return in
}

// clipAgainst appends the part of the polygon in on the inner side of
// plane to out.
func clipAgainst(plane Outcode, in, out []VertexParameter) []VertexParameter {
	n := len(in)
	for i := range in {
		cur := &in[i]
		if OutcodeOf(cur.Vertex)&plane == OutNone {
			out = appendClipped(out, *cur)
			continue
		}
		prev := &in[(i+n-1)%n]
		next := &in[(i+1)%n]
		d := planeDistance(plane, cur.Vertex)
		if OutcodeOf(prev.Vertex)&plane == OutNone {
			t := d / (d - planeDistance(plane, prev.Vertex))
			out = appendClipped(out, cur.Lerp(prev, t))
		}
		if OutcodeOf(next.Vertex)&plane == OutNone {
			t := d / (d - planeDistance(plane, next.Vertex))
			out = appendClipped(out, cur.Lerp(next, t))
		}
	}
	return out
}

// appendClipped appends v unless out is full. Each plane adds at most one
// vertex to a convex polygon, so a triangle clipped by the six frustum
// planes never has more than ClipArenaSize vertices and the guard only
// stops float noise from overrunning the buffer.
func appendClipped(out []VertexParameter, v VertexParameter) []VertexParameter {
	if len(out) == cap(out) {
		return out
	}
	return append(out, v)
}
