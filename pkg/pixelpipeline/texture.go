package pixelpipeline

import (
	"errors"
	"fmt"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/renderer"
)

// ErrInvalidTMU is returned when a TMU index is out of range.
var ErrInvalidTMU = errors.New("invalid tmu")

// TexEnvMode is the texture environment function of a TMU.
type TexEnvMode int

const (
	TexEnvDisable TexEnvMode = iota
	TexEnvReplace
	TexEnvModulate
	TexEnvDecal
	TexEnvBlend
	TexEnvAdd
	TexEnvCombine
)

func (m TexEnvMode) String() string {
	switch m {
	case TexEnvDisable:
		return "disable"
	case TexEnvReplace:
		return "replace"
	case TexEnvModulate:
		return "modulate"
	case TexEnvDecal:
		return "decal"
	case TexEnvBlend:
		return "blend"
	case TexEnvAdd:
		return "add"
	case TexEnvCombine:
		return "combine"
	}
	return "unknown"
}

// TexEnvPreset returns the combiner setup emulating mode on tmu. Later TMUs
// read the previous stage where TMU 0 reads the primary color. Combine
// returns the register reset value.
func TexEnvPreset(mode TexEnvMode, tmu int) registers.TexEnv {
	reg := registers.DefaultTexEnv(tmu)
	primary := registers.SrcPrimaryColor
	if tmu != 0 {
		primary = registers.SrcPrevious
	}
	switch mode {
	case TexEnvDisable:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineReplace, registers.CombineReplace
		reg.SrcRGB[0], reg.SrcAlpha[0] = primary, primary
	case TexEnvReplace:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineReplace, registers.CombineReplace
		reg.SrcRGB[0], reg.SrcAlpha[0] = registers.SrcTexture, registers.SrcTexture
	case TexEnvModulate:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineModulate, registers.CombineModulate
		reg.SrcRGB[0], reg.SrcRGB[1] = registers.SrcTexture, primary
		reg.SrcAlpha[0], reg.SrcAlpha[1] = registers.SrcTexture, primary
	case TexEnvDecal:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineInterpolate, registers.CombineReplace
		reg.SrcRGB = [3]registers.SrcReg{registers.SrcTexture, primary, registers.SrcTexture}
		reg.SrcAlpha[0] = primary
		reg.OperandRGB[2] = registers.OperandSrcAlpha
	case TexEnvBlend:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineInterpolate, registers.CombineModulate
		reg.SrcRGB = [3]registers.SrcReg{registers.SrcConstant, primary, registers.SrcTexture}
		reg.SrcAlpha[0], reg.SrcAlpha[1] = primary, registers.SrcTexture
	case TexEnvAdd:
		reg.CombineRGB, reg.CombineAlpha = registers.CombineAdd, registers.CombineAdd
		reg.SrcRGB[0], reg.SrcRGB[1] = registers.SrcTexture, primary
		reg.SrcAlpha[0], reg.SrcAlpha[1] = registers.SrcTexture, primary
	}
	return reg
}

type tmuState struct {
	bound    uint16
	mode     TexEnvMode
	combine  registers.TexEnv // user fields, effective in TexEnvCombine
	uploaded registers.TexEnv
}

func (t *tmuState) texEnv() registers.TexEnv {
	if t.mode == TexEnvCombine {
		return t.combine
	}
	return TexEnvPreset(t.mode, t.combine.TMU)
}

// Texture tracks the texture bindings and combiner state of every TMU.
// Setters act on the active TMU.
type Texture struct {
	dev    Device
	tmus   []tmuState
	active int
}

// NewTexture returns a holder for tmus TMUs in REPLACE mode.
func NewTexture(dev Device, tmus int) *Texture {
	t := &Texture{dev: dev, tmus: make([]tmuState, tmus)}
	for i := range t.tmus {
		t.tmus[i].mode = TexEnvReplace
		t.tmus[i].combine = registers.DefaultTexEnv(i)
	}
	return t
}

func (t *Texture) reset() error {
	var errs []error
	for i := range t.tmus {
		reg := registers.DefaultTexEnv(i)
		t.tmus[i].uploaded = reg
		errs = append(errs, t.dev.SetTexEnv(reg))
	}
	return errors.Join(errs...)
}

func (t *Texture) cur() *tmuState { return &t.tmus[t.active] }

// ActivateTMU selects the TMU the setters act on.
func (t *Texture) ActivateTMU(tmu int) error {
	if tmu < 0 || tmu >= len(t.tmus) {
		return fmt.Errorf("%w: %d", ErrInvalidTMU, tmu)
	}
	t.active = tmu
	return nil
}

// ActiveTMU returns the selected TMU.
func (t *Texture) ActiveTMU() int { return t.active }

// TMUs returns the number of TMUs.
func (t *Texture) TMUs() int { return len(t.tmus) }

func (t *Texture) CreateTexture() (uint16, error)        { return t.dev.CreateTexture() }
func (t *Texture) CreateTextureWithName(id uint16) error { return t.dev.CreateTextureWithName(id) }
func (t *Texture) TextureValid(id uint16) bool           { return t.dev.TextureValid(id) }

// DeleteTexture releases id and unbinds it from every TMU.
func (t *Texture) DeleteTexture(id uint16) error {
	for i := range t.tmus {
		if t.tmus[i].bound == id {
			t.tmus[i].bound = 0
		}
	}
	return t.dev.DeleteTexture(id)
}

// SetBoundTexture records id as the texture of the active TMU.
func (t *Texture) SetBoundTexture(id uint16) { t.cur().bound = id }

// BoundTexture returns the texture of the active TMU.
func (t *Texture) BoundTexture() uint16 { return t.cur().bound }

// BoundTextureOf returns the texture of tmu.
func (t *Texture) BoundTextureOf(tmu int) uint16 {
	if tmu < 0 || tmu >= len(t.tmus) {
		return 0
	}
	return t.tmus[tmu].bound
}

// UseTexture points the active TMU at its bound texture. Texture 0 means
// no texture and is skipped.
func (t *Texture) UseTexture() error {
	if t.cur().bound == 0 {
		return nil
	}
	return t.dev.UseTexture(t.active, t.cur().bound)
}

// Mipmap returns the texels of the bound texture.
func (t *Texture) Mipmap() (renderer.Mipmap, error) {
	return t.dev.Texture(t.cur().bound)
}

// UpdateTexture replaces the texels of the bound texture and rebinds it so
// the TMU picks up the new size and format.
func (t *Texture) UpdateTexture(mip renderer.Mipmap) error {
	if err := t.dev.UpdateTexture(t.cur().bound, mip); err != nil {
		return err
	}
	return t.UseTexture()
}

func (t *Texture) SetWrapModeS(mode registers.WrapMode) error {
	return t.dev.SetTextureWrapModeS(t.cur().bound, mode)
}

func (t *Texture) SetWrapModeT(mode registers.WrapMode) error {
	return t.dev.SetTextureWrapModeT(t.cur().bound, mode)
}

func (t *Texture) EnableMagFilter(enable bool) error {
	return t.dev.EnableTextureMagFiltering(t.cur().bound, enable)
}

func (t *Texture) EnableMinFilter(enable bool) error {
	return t.dev.EnableTextureMinFiltering(t.cur().bound, enable)
}

// SetTexEnvMode selects the environment function of the active TMU. The
// combiner fields set for TexEnvCombine are kept across mode changes.
func (t *Texture) SetTexEnvMode(mode TexEnvMode) { t.cur().mode = mode }

// TexEnvMode returns the environment function of the active TMU.
func (t *Texture) TexEnvMode() TexEnvMode { return t.cur().mode }

// TexEnv returns the combiner setup the active TMU uses.
func (t *Texture) TexEnv() registers.TexEnv { return t.cur().texEnv() }

func (t *Texture) SetCombineRGB(c registers.Combine)   { t.cur().combine.CombineRGB = c }
func (t *Texture) SetCombineAlpha(c registers.Combine) { t.cur().combine.CombineAlpha = c }
func (t *Texture) SetShiftRGB(v uint8)                 { t.cur().combine.ShiftRGB = v }
func (t *Texture) SetShiftAlpha(v uint8)               { t.cur().combine.ShiftAlpha = v }

// SetSrcRGB sets combiner source i (0..2) of the color channels.
func (t *Texture) SetSrcRGB(i int, src registers.SrcReg) {
	if i >= 0 && i < 3 {
		t.cur().combine.SrcRGB[i] = src
	}
}

// SetSrcAlpha sets combiner source i (0..2) of the alpha channel.
func (t *Texture) SetSrcAlpha(i int, src registers.SrcReg) {
	if i >= 0 && i < 3 {
		t.cur().combine.SrcAlpha[i] = src
	}
}

// SetOperandRGB sets combiner operand i (0..2) of the color channels.
func (t *Texture) SetOperandRGB(i int, op registers.Operand) {
	if i >= 0 && i < 3 {
		t.cur().combine.OperandRGB[i] = op
	}
}

// SetOperandAlpha sets combiner operand i (0..2) of the alpha channel.
func (t *Texture) SetOperandAlpha(i int, op registers.Operand) {
	if i >= 0 && i < 3 {
		t.cur().combine.OperandAlpha[i] = op
	}
}

// SetTexEnvColor writes the CONSTANT source of the active TMU from a 0..1
// color.
func (t *Texture) SetTexEnvColor(c math3d.Vec4) error {
	return t.dev.SetTexEnvColor(t.active, registers.ColorFromVec(c.Clamp(0, 1).Scale(255)))
}

// Update uploads the combiner setup of every TMU whose effective setup
// differs from the device.
func (t *Texture) Update() error {
	var errs []error
	for i := range t.tmus {
		s := &t.tmus[i]
		reg := s.texEnv()
		if reg.Serialize() == s.uploaded.Serialize() {
			continue
		}
		if err := t.dev.SetTexEnv(reg); err != nil {
			errs = append(errs, fmt.Errorf("tmu %d tex env: %w", i, err))
			continue
		}
		s.uploaded = reg
	}
	return errors.Join(errs...)
}
