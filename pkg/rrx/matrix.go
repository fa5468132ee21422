package rrx

import (
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/vertexpipeline"
)

// MatrixMode selects the matrix edited by the matrix operations.
type MatrixMode = vertexpipeline.MatrixMode

const (
	ModelViewMatrix  = vertexpipeline.ModelView
	ProjectionMatrix = vertexpipeline.Projection
	TextureMatrix    = vertexpipeline.TextureMatrix
	ColorMatrix      = vertexpipeline.ColorMatrix
)

func (c *Context) MatrixMode(mode MatrixMode) error {
	if err := c.vertex.Matrices().SetMatrixMode(mode); err != nil {
		return c.invalid(ErrInvalidEnum, "matrix mode %d", mode)
	}
	return nil
}

func (c *Context) LoadIdentity()            { c.vertex.Matrices().LoadIdentity() }
func (c *Context) LoadMatrix(m math3d.Mat4) { c.vertex.Matrices().LoadMatrix(m) }
func (c *Context) MultMatrix(m math3d.Mat4) { c.vertex.Matrices().MultMatrix(m) }

// LoadTransposeMatrix loads a row-major matrix.
func (c *Context) LoadTransposeMatrix(m math3d.Mat4) { c.LoadMatrix(m.Transpose()) }

// MultTransposeMatrix multiplies by a row-major matrix.
func (c *Context) MultTransposeMatrix(m math3d.Mat4) { c.MultMatrix(m.Transpose()) }

func (c *Context) Translate(x, y, z float64) { c.vertex.Matrices().Translate(x, y, z) }
func (c *Context) Scale(x, y, z float64)     { c.vertex.Matrices().Scale(x, y, z) }

// Rotate rotates by angle degrees around (x, y, z).
func (c *Context) Rotate(angle, x, y, z float64) { c.vertex.Matrices().Rotate(angle, x, y, z) }

// PushMatrix saves the current matrix on the stack of the matrix mode.
func (c *Context) PushMatrix() error { return c.record(c.vertex.Matrices().PushMatrix()) }

// PopMatrix restores the last saved matrix of the matrix mode.
func (c *Context) PopMatrix() error { return c.record(c.vertex.Matrices().PopMatrix()) }

// Frustum multiplies by a perspective projection of the near plane window.
func (c *Context) Frustum(left, right, bottom, top, near, far float64) error {
	if near <= 0 || far <= 0 || near == far || left == right || bottom == top {
		return c.invalid(ErrInvalidValue, "frustum %g %g %g %g %g %g", left, right, bottom, top, near, far)
	}
	c.MultMatrix(math3d.Frustum(left, right, bottom, top, near, far))
	return nil
}

// Ortho multiplies by a parallel projection.
func (c *Context) Ortho(left, right, bottom, top, near, far float64) error {
	if left == right || bottom == top || near == far {
		return c.invalid(ErrInvalidValue, "ortho %g %g %g %g %g %g", left, right, bottom, top, near, far)
	}
	c.MultMatrix(math3d.Orthographic(left, right, bottom, top, near, far))
	return nil
}

// Perspective multiplies by a symmetric perspective projection with a
// vertical field of view of fovy degrees.
func (c *Context) Perspective(fovy, aspect, near, far float64) error {
	if fovy <= 0 || fovy >= 180 || aspect <= 0 || near <= 0 || far <= 0 || near == far {
		return c.invalid(ErrInvalidValue, "perspective %g %g %g %g", fovy, aspect, near, far)
	}
	c.MultMatrix(math3d.Perspective(fovy*math.Pi/180, aspect, near, far))
	return nil
}

// LookAt multiplies by a viewing transform from eye towards center.
func (c *Context) LookAt(eye, center, up math3d.Vec3) error {
	f := center.Sub(eye)
	if f.LenSq() == 0 || f.Cross(up).LenSq() == 0 {
		return c.invalid(ErrInvalidValue, "degenerate look at")
	}
	c.MultMatrix(math3d.LookAt(eye, center, up))
	return nil
}

// CurrentMatrix returns the matrix of the selected mode.
func (c *Context) CurrentMatrix() math3d.Mat4 { return c.vertex.Matrices().Current() }
