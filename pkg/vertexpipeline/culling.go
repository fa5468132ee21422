package vertexpipeline

import (
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// Culling discards triangles by the side facing the viewer.
type Culling struct {
	enable bool
	mode   renderer.Face
}

// NewCulling returns disabled back face culling.
func NewCulling() *Culling {
	return &Culling{mode: renderer.FaceBack}
}

// Enable turns culling on or off.
func (c *Culling) Enable(enable bool) { c.enable = enable }

// Enabled reports whether culling is on.
func (c *Culling) Enabled() bool { return c.enable }

// SetCullMode selects the face that is dropped.
func (c *Culling) SetCullMode(mode renderer.Face) { c.mode = mode }

// CullMode returns the face that is dropped.
func (c *Culling) CullMode() renderer.Face { return c.mode }

// Cull reports whether the screen-space triangle (v0, v1, v2) is dropped.
func (c *Culling) Cull(v0, v1, v2 math3d.Vec4) bool {
	if !c.enable {
		return false
	}
	if c.mode == renderer.FaceFrontAndBack {
		return true
	}
	return renderer.Facing(v0, v1, v2) == c.mode
}
