package vertexpipeline

import (
	"math"
	"slices"
	"testing"

	"github.com/taigrr/rasterix/pkg/math3d"
)

// ids runs n vertices numbered by their x coordinate through the assembler
// and returns the numbers of every emitted triangle.
func ids(a *PrimitiveAssembler, mode DrawMode, n int) [][3]int {
	a.Reset(mode, n)
	var out [][3]int
	for i := range n {
		for _, t := range a.Push(VertexParameter{Vertex: math3d.V4(float64(i), 0, 0, 1)}) {
			out = append(out, [3]int{int(t[0].Vertex.X), int(t[1].Vertex.X), int(t[2].Vertex.X)})
		}
	}
	return out
}

func TestAssembleTriangles(t *testing.T) {
	tests := []struct {
		mode DrawMode
		n    int
		want [][3]int
	}{
		{Triangles, 7, [][3]int{{0, 1, 2}, {3, 4, 5}}},
		{TriangleFan, 5, [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}}},
		{Polygon, 5, [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}}},
		{TriangleStrip, 5, [][3]int{{0, 1, 2}, {2, 1, 3}, {2, 3, 4}}},
		{Quads, 8, [][3]int{{0, 1, 2}, {0, 2, 3}, {4, 5, 6}, {4, 6, 7}}},
		{QuadStrip, 6, [][3]int{{0, 1, 2}, {1, 3, 2}, {2, 3, 4}, {3, 5, 4}}},
		{Triangles, 2, nil},
	}
	a := NewPrimitiveAssembler(NewViewPort())
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := ids(a, tt.mode, tt.n); !slices.Equal(got, tt.want) {
				t.Errorf("triangles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssemblerIsPure(t *testing.T) {
	a := NewPrimitiveAssembler(NewViewPort())
	for _, mode := range []DrawMode{TriangleFan, TriangleStrip, Quads, QuadStrip} {
		first := ids(a, mode, 9)
		ids(a, Triangles, 2) // leave a partial primitive behind
		if again := ids(a, mode, 9); !slices.Equal(first, again) {
			t.Errorf("%v: second run = %v, want %v", mode, again, first)
		}
	}
}

func TestAssembleLines(t *testing.T) {
	vp := NewViewPort()
	vp.SetViewport(0, 0, 100, 100)
	a := NewPrimitiveAssembler(vp)
	tests := []struct {
		mode DrawMode
		n    int
		want int
	}{
		{Lines, 4, 4},
		{Lines, 5, 4},
		{LineStrip, 4, 6},
		{LineLoop, 4, 8},
		{LineLoop, 3, 6},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			a.Reset(tt.mode, tt.n)
			got := 0
			for i := range tt.n {
				angle := float64(i) * 2 * math.Pi / float64(tt.n)
				got += len(a.Push(VertexParameter{Vertex: math3d.V4(math.Cos(angle)/2, math.Sin(angle)/2, 0, 1)}))
			}
			if got != tt.want {
				t.Errorf("%d vertices gave %d triangles, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestLineLoopCloses(t *testing.T) {
	vp := NewViewPort()
	vp.SetViewport(0, 0, 100, 100)
	a := NewPrimitiveAssembler(vp)
	pts := []math3d.Vec4{math3d.V4(-0.5, 0, 0, 1), math3d.V4(0.5, 0, 0, 1), math3d.V4(0, 0.5, 0, 1)}
	a.Reset(LineLoop, len(pts))
	var last []Triangle
	for _, p := range pts {
		last = a.Push(VertexParameter{Vertex: p})
	}
	if len(last) != 4 {
		t.Fatalf("last vertex gave %d triangles, want 4", len(last))
	}
	// The closing segment runs from the last vertex back to the first.
	if got := last[2][0].Vertex; math.Abs(got.X-pts[2].X) > 0.1 || math.Abs(got.Y-pts[2].Y) > 0.1 {
		t.Errorf("closing segment starts at %v, want near %v", got, pts[2])
	}
	if got := last[3][2].Vertex; math.Abs(got.X-pts[0].X) > 0.1 || math.Abs(got.Y-pts[0].Y) > 0.1 {
		t.Errorf("closing segment ends at %v, want near %v", got, pts[0])
	}
}

func TestLineExtrusion(t *testing.T) {
	vp := NewViewPort()
	vp.SetViewport(0, 0, 100, 100)
	a := NewPrimitiveAssembler(vp)
	a.SetLineWidth(2)
	a.Reset(Lines, 2)
	red, blue := math3d.V4(1, 0, 0, 1), math3d.V4(0, 0, 1, 1)
	a.Push(VertexParameter{Vertex: math3d.V4(-0.5, 0, 0, 1), Color: red})
	got := a.Push(VertexParameter{Vertex: math3d.V4(0.5, 0, 0, 1), Color: blue})
	if len(got) != 2 {
		t.Fatalf("got %d triangles, want 2", len(got))
	}

	// One pixel to each side of a horizontal line is 0.02 in NDC.
	want := [2][3]math3d.Vec4{
		{math3d.V4(-0.5, 0.02, 0, 1), math3d.V4(-0.5, -0.02, 0, 1), math3d.V4(0.5, 0.02, 0, 1)},
		{math3d.V4(0.5, 0.02, 0, 1), math3d.V4(-0.5, -0.02, 0, 1), math3d.V4(0.5, -0.02, 0, 1)},
	}
	for i, tr := range got {
		for k := range tr {
			if !approxVec4(tr[k].Vertex, want[i][k]) {
				t.Errorf("triangle %d vertex %d = %v, want %v", i, k, tr[k].Vertex, want[i][k])
			}
		}
	}
	if got[0][0].Color != red || got[0][2].Color != blue {
		t.Error("line corners do not carry their endpoint colors")
	}
}

func TestDegenerateLineIsDropped(t *testing.T) {
	vp := NewViewPort()
	vp.SetViewport(0, 0, 100, 100)
	a := NewPrimitiveAssembler(vp)
	a.Reset(Lines, 2)
	a.Push(VertexParameter{Vertex: math3d.V4(0, 0, 0, 1)})
	if got := a.Push(VertexParameter{Vertex: math3d.V4(0, 0, 0, 1)}); len(got) != 0 {
		t.Errorf("zero length line gave %d triangles", len(got))
	}
}
