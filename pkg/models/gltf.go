package models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
)

// GLTFLoader loads glTF and GLB files into a Mesh.
type GLTFLoader struct {
	// CalculateNormals generates normals for meshes without them.
	CalculateNormals bool
	SmoothNormals    bool
}

// NewGLTFLoader creates a loader generating smooth normals.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// LoadGLB loads a glTF or GLB file with the default loader.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load reads every triangle primitive of path into one mesh, together with
// its materials and the first base color texture.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	mesh.Materials = loadMaterials(doc, filepath.Dir(path))
	for _, mat := range mesh.Materials {
		if mat.HasTexture {
			mesh.Texture = mat.BaseMap
			break
		}
	}

	hasNormals := true
	for _, m := range doc.Meshes {
		withNormals, err := l.processMesh(doc, m, mesh)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		hasNormals = hasNormals && withNormals
	}

	if l.CalculateNormals && !hasNormals {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}
	mesh.CalculateBounds()

	logging.Logger().Debug("gltf loaded",
		"path", path,
		"vertices", mesh.VertexCount(),
		"triangles", mesh.TriangleCount(),
		"materials", mesh.MaterialCount(),
		"textured", mesh.Texture != nil)
	return mesh, nil
}

// processMesh appends the triangle primitives of m and reports whether all
// of them carried normals.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) (bool, error) {
	hasNormals := true
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logging.Logger().Debug("skipping primitive", "mesh", m.Name, "mode", prim.Mode)
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return false, fmt.Errorf("read positions: %w", err)
		}
		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return false, fmt.Errorf("read normals: %w", err)
			}
		} else {
			hasNormals = false
		}
		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return false, fmt.Errorf("read uvs: %w", err)
			}
		}

		material := -1
		color := math3d.V4(1, 1, 1, 1)
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
			color = mesh.Materials[material].BaseColor
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{
				Position: math3d.V3(float64(p[0]), float64(p[1]), float64(p[2])),
				Color:    color,
			}
			if i < len(normals) {
				n := normals[i]
				v.Normal = math3d.V3(float64(n[0]), float64(n[1]), float64(n[2]))
			}
			// glTF puts v = 0 on the first image row, which is where
			// texture row t = 0 is stored.
			if i < len(uvs) {
				v.UV = math3d.V2(float64(uvs[i][0]), float64(uvs[i][1]))
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
				return false, fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{Material: material}
			for k := range f.V {
				f.V[k] = base + int(indices[i+k])
				if f.V[k] >= len(mesh.Vertices) {
					return false, fmt.Errorf("index %d out of range", indices[i+k])
				}
			}
			mesh.Faces = append(mesh.Faces, f)
		}
	}
	return hasNormals, nil
}

// loadMaterials reads the PBR base color, metallic and roughness factors
// and decodes base color textures.
func loadMaterials(doc *gltf.Document, dir string) []Material {
	out := make([]Material, len(doc.Materials))
	for i, m := range doc.Materials {
		mat := Material{
			Name:      m.Name,
			BaseColor: math3d.V4(1, 1, 1, 1),
			Metallic:  1,
			Roughness: 1,
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if c := pbr.BaseColorFactor; c != nil {
				mat.BaseColor = math3d.V4(c[0], c[1], c[2], c[3])
			}
			if pbr.MetallicFactor != nil {
				mat.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				mat.Roughness = *pbr.RoughnessFactor
			}
			if ti := pbr.BaseColorTexture; ti != nil {
				img, err := textureImage(doc, ti.Index, dir)
				if err != nil {
					logging.Logger().Warn("base color texture", "material", m.Name, "error", err)
				} else {
					mat.BaseMap = img
					mat.HasTexture = true
				}
			}
		}
		out[i] = mat
	}
	return out
}

// textureImage decodes the source image of texture index, embedded in a
// buffer view or referenced by a URI relative to dir.
func textureImage(doc *gltf.Document, index int, dir string) (image.Image, error) {
	if index < 0 || index >= len(doc.Textures) || doc.Textures[index].Source == nil {
		return nil, fmt.Errorf("texture %d has no source", index)
	}
	src := *doc.Textures[index].Source
	if src < 0 || src >= len(doc.Images) {
		return nil, fmt.Errorf("texture %d: image %d out of range", index, src)
	}
	img := doc.Images[src]

	var data []byte
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf.Data) {
			return nil, fmt.Errorf("image %d: buffer view out of range", src)
		}
		data = buf.Data[bv.ByteOffset:end]
	case img.IsEmbeddedResource():
		b, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", src, err)
		}
		data = b
	case img.URI != "":
		b, err := os.ReadFile(filepath.Join(dir, img.URI))
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", src, err)
		}
		data = b
	default:
		return nil, fmt.Errorf("image %d has no data", src)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", src, err)
	}
	return decoded, nil
}
