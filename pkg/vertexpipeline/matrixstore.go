// Package vertexpipeline transforms, lights and clips vertices and
// assembles them into screen-space triangles for the pixel pipeline.
package vertexpipeline

import (
	"errors"
	"fmt"

	"github.com/taigrr/rasterix/pkg/math3d"
)

var (
	// ErrStackOverflow is returned when a push exceeds the stack depth.
	ErrStackOverflow = errors.New("matrix stack overflow")
	// ErrStackUnderflow is returned when popping an empty stack.
	ErrStackUnderflow = errors.New("matrix stack underflow")
	// ErrInvalidMatrixMode is returned for an unknown matrix mode.
	ErrInvalidMatrixMode = errors.New("invalid matrix mode")
	// ErrInvalidLight is returned for a light index out of range.
	ErrInvalidLight = errors.New("invalid light")
)

// MatrixMode selects the matrix the store edits.
type MatrixMode int

const (
	ModelView MatrixMode = iota
	Projection
	TextureMatrix
	ColorMatrix
)

func (m MatrixMode) String() string {
	switch m {
	case ModelView:
		return "modelview"
	case Projection:
		return "projection"
	case TextureMatrix:
		return "texture"
	case ColorMatrix:
		return "color"
	}
	return "unknown"
}

// Stack depths per matrix mode.
const (
	ModelViewStackDepth  = 16
	ProjectionStackDepth = 4
	TextureStackDepth    = 16
	ColorStackDepth      = 16
)

// MaxTMUCount is the number of TMUs the vertex pipeline carries
// coordinates for.
const MaxTMUCount = 2

type matrixStack struct {
	items []math3d.Mat4
	depth int
}

func newMatrixStack(depth int) matrixStack {
	return matrixStack{items: make([]math3d.Mat4, 0, depth), depth: depth}
}

func (s *matrixStack) push(m math3d.Mat4) error {
	if len(s.items) >= s.depth {
		return ErrStackOverflow
	}
	s.items = append(s.items, m)
	return nil
}

func (s *matrixStack) pop() (math3d.Mat4, error) {
	if len(s.items) == 0 {
		return math3d.Mat4{}, ErrStackUnderflow
	}
	m := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return m, nil
}

// MatrixStore owns the matrix stacks and the products derived from them.
// Derived matrices are only valid after RecalculateMatrices.
type MatrixStore struct {
	mode MatrixMode
	tmu  int

	modelView  math3d.Mat4
	projection math3d.Mat4
	texture    [MaxTMUCount]math3d.Mat4
	color      math3d.Mat4

	mvp    math3d.Mat4
	normal math3d.Mat4

	mvStack matrixStack
	pStack  matrixStack
	tmStack [MaxTMUCount]matrixStack
	cStack  matrixStack
	mvDirty bool
	pDirty  bool
}

// NewMatrixStore returns a store with identity matrices in PROJECTION mode.
func NewMatrixStore() *MatrixStore {
	s := &MatrixStore{
		mode:       Projection,
		modelView:  math3d.Identity(),
		projection: math3d.Identity(),
		color:      math3d.Identity(),
		mvp:        math3d.Identity(),
		normal:     math3d.Identity(),
		mvStack:    newMatrixStack(ModelViewStackDepth),
		pStack:     newMatrixStack(ProjectionStackDepth),
		cStack:     newMatrixStack(ColorStackDepth),
		mvDirty:    true,
		pDirty:     true,
	}
	for i := range s.texture {
		s.texture[i] = math3d.Identity()
		s.tmStack[i] = newMatrixStack(TextureStackDepth)
	}
	return s
}

// SetMatrixMode selects the matrix the following operations edit.
func (s *MatrixStore) SetMatrixMode(mode MatrixMode) error {
	if mode < ModelView || mode > ColorMatrix {
		return fmt.Errorf("%w: %d", ErrInvalidMatrixMode, mode)
	}
	s.mode = mode
	return nil
}

// MatrixMode returns the selected matrix mode.
func (s *MatrixStore) MatrixMode() MatrixMode { return s.mode }

// SetTMU selects the texture matrix edited in TextureMatrix mode.
func (s *MatrixStore) SetTMU(tmu int) {
	if tmu >= 0 && tmu < MaxTMUCount {
		s.tmu = tmu
	}
}

func (s *MatrixStore) current() *math3d.Mat4 {
	switch s.mode {
	case ModelView:
		s.mvDirty = true
		return &s.modelView
	case Projection:
		s.pDirty = true
		return &s.projection
	case TextureMatrix:
		return &s.texture[s.tmu]
	default:
		return &s.color
	}
}

func (s *MatrixStore) stack() *matrixStack {
	switch s.mode {
	case ModelView:
		return &s.mvStack
	case Projection:
		return &s.pStack
	case TextureMatrix:
		return &s.tmStack[s.tmu]
	default:
		return &s.cStack
	}
}

// LoadIdentity replaces the current matrix with the identity.
func (s *MatrixStore) LoadIdentity() { *s.current() = math3d.Identity() }

// LoadMatrix replaces the current matrix.
func (s *MatrixStore) LoadMatrix(m math3d.Mat4) { *s.current() = m }

// MultMatrix post-multiplies the current matrix by m.
func (s *MatrixStore) MultMatrix(m math3d.Mat4) {
	cur := s.current()
	*cur = cur.Mul(m)
}

// Translate multiplies the current matrix by a translation.
func (s *MatrixStore) Translate(x, y, z float64) { s.MultMatrix(math3d.Translate(math3d.V3(x, y, z))) }

// Scale multiplies the current matrix by a scale.
func (s *MatrixStore) Scale(x, y, z float64) { s.MultMatrix(math3d.Scale(math3d.V3(x, y, z))) }

// Rotate rotates by angle degrees around the axis (x, y, z).
func (s *MatrixStore) Rotate(angle, x, y, z float64) {
	s.MultMatrix(math3d.RotateDegrees(angle, x, y, z))
}

// PushMatrix saves the current matrix. A full stack is left unchanged.
func (s *MatrixStore) PushMatrix() error {
	if err := s.stack().push(s.Current()); err != nil {
		return fmt.Errorf("push %s: %w", s.mode, err)
	}
	return nil
}

// PopMatrix restores the last saved matrix. An empty stack leaves the
// current matrix unchanged.
func (s *MatrixStore) PopMatrix() error {
	m, err := s.stack().pop()
	if err != nil {
		return fmt.Errorf("pop %s: %w", s.mode, err)
	}
	*s.current() = m
	return nil
}

// StackSize returns the number of saved matrices of the current mode.
func (s *MatrixStore) StackSize() int { return len(s.stack().items) }

// Current returns the matrix of the selected mode.
func (s *MatrixStore) Current() math3d.Mat4 {
	switch s.mode {
	case ModelView:
		return s.modelView
	case Projection:
		return s.projection
	case TextureMatrix:
		return s.texture[s.tmu]
	default:
		return s.color
	}
}

// ModelView returns the top of the modelview stack.
func (s *MatrixStore) ModelView() math3d.Mat4 { return s.modelView }

// Projection returns the top of the projection stack.
func (s *MatrixStore) Projection() math3d.Mat4 { return s.projection }

// Color returns the top of the color stack.
func (s *MatrixStore) Color() math3d.Mat4 { return s.color }

// Texture returns the texture matrix of tmu.
func (s *MatrixStore) Texture(tmu int) math3d.Mat4 { return s.texture[tmu] }

// ModelViewProjection returns projection * modelview as of the last
// RecalculateMatrices.
func (s *MatrixStore) ModelViewProjection() math3d.Mat4 { return s.mvp }

// Normal returns the modelview without its translation as of the last
// RecalculateMatrices. Normals and other directions are transformed with it.
func (s *MatrixStore) Normal() math3d.Mat4 { return s.normal }

// RecalculateMatrices refreshes the derived matrices if the modelview or
// projection changed since the last call.
func (s *MatrixStore) RecalculateMatrices() {
	if s.mvDirty {
		s.normal = s.modelView
		s.normal.SetTranslation(math3d.Vec3{})
	}
	if s.mvDirty || s.pDirty {
		s.mvp = s.projection.Mul(s.modelView)
	}
	s.mvDirty, s.pDirty = false, false
}
