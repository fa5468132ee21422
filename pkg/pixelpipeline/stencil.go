package pixelpipeline

import (
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// Stencil holds the stencil configuration. With two-sided stencil the
// front and back configurations are tracked separately and the one facing
// the viewer is uploaded before each triangle.
type Stencil struct {
	dev Device

	twoSided bool
	face     renderer.Face // side edited by the setters in two-sided mode
	conf     registers.Stencil
	front    registers.Stencil
	back     registers.Stencil
	selected *registers.Stencil
	uploaded registers.Stencil
}

// NewStencil returns a single-sided holder with the device reset values.
func NewStencil(dev Device) *Stencil {
	s := &Stencil{
		dev:   dev,
		face:  renderer.FaceFront,
		conf:  registers.DefaultStencil(),
		front: registers.DefaultStencil(),
		back:  registers.DefaultStencil(),
	}
	s.selected = &s.front
	return s
}

func (s *Stencil) reset() error {
	s.uploaded = s.conf
	return s.dev.SetStencilBufferConfig(s.conf)
}

func (s *Stencil) config() *registers.Stencil {
	if !s.twoSided {
		return &s.conf
	}
	if s.face == renderer.FaceBack {
		return &s.back
	}
	return &s.front
}

func (s *Stencil) SetTestFunc(fn registers.TestFunc) { s.config().TestFunc = fn }
func (s *Stencil) SetOpZPass(op registers.StencilOp) { s.config().OpZPass = op }
func (s *Stencil) SetOpZFail(op registers.StencilOp) { s.config().OpZFail = op }
func (s *Stencil) SetOpFail(op registers.StencilOp)  { s.config().OpFail = op }
func (s *Stencil) SetMask(v uint8)                   { s.config().Mask = v }
func (s *Stencil) SetRef(v uint8)                    { s.config().Ref = v }
func (s *Stencil) SetClearStencil(v uint8)           { s.config().ClearStencil = v }
func (s *Stencil) SetStencilMask(v uint8)            { s.config().StencilMask = v }

// Config returns the configuration the setters currently edit.
func (s *Stencil) Config() registers.Stencil { return *s.config() }

// EnableTwoSided toggles separate front and back configurations.
func (s *Stencil) EnableTwoSided(enable bool) { s.twoSided = enable }

// TwoSided reports whether two-sided stencil is enabled.
func (s *Stencil) TwoSided() bool { return s.twoSided }

// SetFace selects the side the setters edit in two-sided mode.
func (s *Stencil) SetFace(face renderer.Face) { s.face = face }

// UpdateFace selects the configuration for the screen-space triangle
// (v0, v1, v2) and uploads it if needed. It does nothing unless two-sided
// stencil is enabled.
func (s *Stencil) UpdateFace(v0, v1, v2 math3d.Vec4) error {
	if !s.twoSided {
		return nil
	}
	if renderer.Facing(v0, v1, v2) == renderer.FaceFront {
		s.selected = &s.front
	} else {
		s.selected = &s.back
	}
	return s.Update()
}

// Update uploads the active configuration if it changed.
func (s *Stencil) Update() error {
	reg := s.conf
	if s.twoSided {
		reg = *s.selected
	}
	if reg.Serialize() == s.uploaded.Serialize() {
		return nil
	}
	if err := s.dev.SetStencilBufferConfig(reg); err != nil {
		return err
	}
	s.uploaded = reg
	return nil
}
