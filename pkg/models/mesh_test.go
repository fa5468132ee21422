package models

import (
	"math"
	"testing"

	"github.com/taigrr/rasterix/pkg/math3d"
)

const eps = 1e-9

func vecNear(a, b math3d.Vec3) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

// quadMesh is a unit quad in the z = 0 plane facing +z.
func quadMesh() *Mesh {
	m := NewMesh("quad")
	m.Materials = []Material{{Name: "red", BaseColor: math3d.V4(1, 0, 0, 1), Roughness: 1}}
	for _, p := range [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		m.Vertices = append(m.Vertices, MeshVertex{
			Position: math3d.V3(p[0], p[1], 0),
			UV:       math3d.V2((p[0]+1)/2, (p[1]+1)/2),
			Color:    math3d.V4(1, 0, 0, 1),
		})
	}
	m.Faces = []Face{
		{V: [3]int{0, 1, 2}, Material: 0},
		{V: [3]int{0, 2, 3}, Material: 0},
	}
	m.CalculateBounds()
	return m
}

func TestCalculateBounds(t *testing.T) {
	m := quadMesh()
	if !vecNear(m.BoundsMin, math3d.V3(-1, -1, 0)) || !vecNear(m.BoundsMax, math3d.V3(1, 1, 0)) {
		t.Errorf("bounds = %v..%v", m.BoundsMin, m.BoundsMax)
	}
	if !vecNear(m.Center(), math3d.Zero3()) {
		t.Errorf("Center() = %v", m.Center())
	}
	if !vecNear(m.Size(), math3d.V3(2, 2, 0)) {
		t.Errorf("Size() = %v", m.Size())
	}

	empty := NewMesh("empty")
	empty.CalculateBounds()
	if empty.Size() != (math3d.Vec3{}) {
		t.Errorf("empty Size() = %v", empty.Size())
	}
}

func TestNormalsFollowWinding(t *testing.T) {
	tests := []struct {
		name   string
		smooth bool
	}{
		{"flat", false},
		{"smooth", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quadMesh()
			if tt.smooth {
				m.CalculateSmoothNormals()
			} else {
				m.CalculateNormals()
			}
			for i, v := range m.Vertices {
				if !vecNear(v.Normal, math3d.V3(0, 0, 1)) {
					t.Errorf("vertex %d normal = %v, want +z", i, v.Normal)
				}
			}
		})
	}
}

func TestFitMatrix(t *testing.T) {
	m := quadMesh()
	m.CalculateNormals()
	m.Transform(math3d.Translate(math3d.V3(10, 0, 0)).Mul(math3d.ScaleUniform(4)))
	if !vecNear(m.Center(), math3d.V3(10, 0, 0)) {
		t.Fatalf("Center() = %v", m.Center())
	}
	m.Transform(m.FitMatrix(1))
	if !vecNear(m.BoundsMin, math3d.V3(-0.5, -0.5, 0)) || !vecNear(m.BoundsMax, math3d.V3(0.5, 0.5, 0)) {
		t.Errorf("fitted bounds = %v..%v", m.BoundsMin, m.BoundsMax)
	}
	if !vecNear(m.Vertices[0].Normal, math3d.V3(0, 0, 1)) {
		t.Errorf("normal = %v, want +z", m.Vertices[0].Normal)
	}
}

func TestMaterialLookup(t *testing.T) {
	m := quadMesh()
	m.Faces = append(m.Faces, Face{V: [3]int{1, 2, 3}, Material: -1})

	if m.FaceMaterial(0) != 0 {
		t.Errorf("FaceMaterial(0) = %d, want 0", m.FaceMaterial(0))
	}
	if m.FaceMaterial(2) != -1 {
		t.Errorf("FaceMaterial(2) = %d, want -1", m.FaceMaterial(2))
	}
	if mat := m.GetMaterial(0); mat == nil || mat.Name != "red" {
		t.Errorf("GetMaterial(0) = %v", mat)
	}
	for _, i := range []int{-1, 99} {
		if mat := m.GetMaterial(i); mat != nil {
			t.Errorf("GetMaterial(%d) = %v, want nil", i, mat)
		}
	}
}

func TestShininess(t *testing.T) {
	tests := []struct {
		roughness float64
		want      float64
	}{
		{1, 0},
		{0, 128},
		{0.5, 32},
	}
	for _, tt := range tests {
		got := Material{Roughness: tt.roughness}.Shininess()
		if math.Abs(got-tt.want) > eps {
			t.Errorf("Shininess(roughness %v) = %v, want %v", tt.roughness, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := quadMesh()
	clone := m.Clone()

	clone.Materials[0].Name = "modified"
	clone.Vertices[0].Position = math3d.V3(5, 5, 5)
	clone.Faces[0].Material = -1

	if m.Materials[0].Name != "red" {
		t.Error("Clone shares materials")
	}
	if m.Vertices[0].Position.X != -1 {
		t.Error("Clone shares vertices")
	}
	if m.Faces[0].Material != 0 {
		t.Error("Clone shares faces")
	}
	if clone.MaterialCount() != 1 || clone.TriangleCount() != 2 || clone.VertexCount() != 4 {
		t.Errorf("clone counts = %d materials, %d triangles, %d vertices",
			clone.MaterialCount(), clone.TriangleCount(), clone.VertexCount())
	}
}
