package vertexpipeline

import (
	"fmt"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/pixelpipeline"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// Stats counts the work done since the pipeline was created.
type Stats struct {
	Vertices  int // vertices transformed
	Triangles int // triangles assembled
	Clipped   int // triangles cut by the clipper
	Culled    int // triangles dropped by clipping or culling
	Drawn     int // triangles handed to the pixel pipeline
}

// VertexPipeline transforms draw calls into screen-space triangles and
// feeds them to a pixel pipeline.
type VertexPipeline struct {
	pixels *pixelpipeline.PixelPipeline
	tmus   int

	matrices  *MatrixStore
	lighting  *Lighting
	texGen    [MaxTMUCount]TexGen
	viewport  *ViewPort
	culling   *Culling
	clipper   Clipper
	assembler *PrimitiveAssembler
	normalize bool

	tmuEnabled [MaxTMUCount]bool
	tri        renderer.TransformedTriangle
	texBuf     [3][MaxTMUCount]math3d.Vec4
	stats      Stats
}

// New returns a pipeline drawing into pixels. The viewport covers the
// render resolution of the device.
func New(pixels *pixelpipeline.PixelPipeline) *VertexPipeline {
	cfg := pixels.Renderer().Config()
	vp := &VertexPipeline{
		pixels:   pixels,
		tmus:     min(cfg.TMUCount, MaxTMUCount),
		matrices: NewMatrixStore(),
		lighting: NewLighting(),
		viewport: NewViewPort(),
		culling:  NewCulling(),
	}
	vp.viewport.SetViewport(0, 0, float64(cfg.MaxDisplayWidth), float64(cfg.MaxDisplayHeight))
	vp.assembler = NewPrimitiveAssembler(vp.viewport)
	for i := range vp.texGen {
		vp.texGen[i] = NewTexGen()
	}
	for i := range vp.tri.Texture {
		vp.tri.Texture[i] = vp.texBuf[i][:vp.tmus]
	}
	return vp
}

// Matrices returns the matrix stacks.
func (vp *VertexPipeline) Matrices() *MatrixStore { return vp.matrices }

// Lighting returns the lighting state.
func (vp *VertexPipeline) Lighting() *Lighting { return vp.lighting }

// ViewPort returns the viewport transform.
func (vp *VertexPipeline) ViewPort() *ViewPort { return vp.viewport }

// Culling returns the face culling state.
func (vp *VertexPipeline) Culling() *Culling { return vp.culling }

// Assembler returns the primitive assembler.
func (vp *VertexPipeline) Assembler() *PrimitiveAssembler { return vp.assembler }

// PixelPipeline returns the pixel state the pipeline draws through.
func (vp *VertexPipeline) PixelPipeline() *pixelpipeline.PixelPipeline { return vp.pixels }

// Stats returns the vertex counters.
func (vp *VertexPipeline) Stats() Stats { return vp.stats }

// TexGen returns the coordinate generation of tmu.
func (vp *VertexPipeline) TexGen(tmu int) (*TexGen, error) {
	if tmu < 0 || tmu >= vp.tmus {
		return nil, fmt.Errorf("texgen: %w: %d", pixelpipeline.ErrInvalidTMU, tmu)
	}
	return &vp.texGen[tmu], nil
}

// EnableNormalizing toggles rescaling normals to unit length after the
// modelview transform.
func (vp *VertexPipeline) EnableNormalizing(enable bool) { vp.normalize = enable }

// DrawObj draws every vertex of obj. Pending pixel state is uploaded first.
// A draw call without a vertex array draws nothing.
func (vp *VertexPipeline) DrawObj(obj *RenderObj) error {
	if !obj.Vertex.Enabled {
		logging.Logger().Info("vertex array disabled, nothing drawn")
		return nil
	}
	vp.matrices.RecalculateMatrices()
	if err := vp.pixels.Update(); err != nil {
		return fmt.Errorf("update pixel pipeline: %w", err)
	}

	vp.assembler.Reset(obj.Mode, obj.Count)
	for i := range vp.tmus {
		vp.tmuEnabled[i] = vp.pixels.FeatureEnable().TMU(i)
	}
	logging.Logger().Debug("draw", "mode", obj.Mode, "count", obj.Count, "indexed", obj.IndicesEnabled)

	for i := range obj.Count {
		p := vp.transform(obj, obj.Index(i))
		for _, tri := range vp.assembler.Push(p) {
			if err := vp.drawTriangle(tri); err != nil {
				return err
			}
		}
	}
	return nil
}

func (vp *VertexPipeline) transform(obj *RenderObj, idx int) VertexParameter {
	vp.stats.Vertices++
	v := obj.Position(idx)
	p := VertexParameter{
		Vertex: vp.matrices.ModelViewProjection().MulVec4(v),
		Color:  obj.ColorAt(idx),
	}

	needEye := vp.lighting.Enabled()
	for i := range vp.tmus {
		needEye = needEye || (vp.tmuEnabled[i] && vp.texGen[i].Enabled())
	}
	var eye math3d.Vec4
	var n math3d.Vec3
	if needEye {
		eye = vp.matrices.ModelView().MulVec4(v)
		n = vp.matrices.Normal().MulVec3Dir(obj.NormalAt(idx))
		if vp.normalize {
			n = n.Normalize()
		}
	}

	for i := range vp.tmus {
		if !vp.tmuEnabled[i] {
			continue
		}
		st := vp.texGen[i].Calculate(obj.TexCoordAt(i, idx), v, eye, n)
		p.Tex[i] = vp.matrices.Texture(i).MulVec4(st)
	}
	p.Color = vp.lighting.Calculate(eye, n, p.Color)
	return p
}

func (vp *VertexPipeline) drawTriangle(t Triangle) error {
	vp.stats.Triangles++
	poly := vp.clipper.Clip(t)
	if len(poly) < 3 {
		vp.stats.Culled++
		return nil
	}
	if len(poly) > 3 || poly[0].Vertex != t[0].Vertex || poly[1].Vertex != t[1].Vertex || poly[2].Vertex != t[2].Vertex {
		vp.stats.Clipped++
	}
	for i := range poly {
		poly[i].Vertex = vp.viewport.Transform(PerspectiveDivide(poly[i].Vertex))
	}

	v0, v1, v2 := poly[0].Vertex, poly[1].Vertex, poly[2].Vertex
	if vp.culling.Cull(v0, v1, v2) {
		vp.stats.Culled++
		return nil
	}
	if err := vp.pixels.Stencil().UpdateFace(v0, v1, v2); err != nil {
		return fmt.Errorf("update stencil face: %w", err)
	}

	for i := 2; i < len(poly); i++ {
		vp.setTriangle(0, &poly[0])
		vp.setTriangle(1, &poly[i-1])
		vp.setTriangle(2, &poly[i])
		if err := vp.pixels.DrawTriangle(&vp.tri); err != nil {
			return err
		}
		vp.stats.Drawn++
	}
	return nil
}

func (vp *VertexPipeline) setTriangle(k int, p *VertexParameter) {
	vp.tri.Vertex[k] = p.Vertex
	vp.tri.Color[k] = p.Color
	copy(vp.tri.Texture[k], p.Tex[:vp.tmus])
}
