package pixelpipeline

import "github.com/taigrr/rasterix/pkg/registers"

// FragmentPipeline holds the depth, alpha, mask and blend configuration.
type FragmentPipeline struct {
	dev      Device
	reg      registers.FragmentPipeline
	uploaded registers.FragmentPipeline
}

// NewFragmentPipeline returns a holder with the device reset values.
func NewFragmentPipeline(dev Device) *FragmentPipeline {
	return &FragmentPipeline{dev: dev, reg: registers.DefaultFragmentPipeline()}
}

func (f *FragmentPipeline) reset() error {
	f.uploaded = f.reg
	return f.dev.SetFragmentPipelineConfig(f.reg)
}

func (f *FragmentPipeline) SetRefAlpha(v uint8)                { f.reg.RefAlpha = v }
func (f *FragmentPipeline) SetDepthMask(enable bool)           { f.reg.DepthMask = enable }
func (f *FragmentPipeline) SetDepthFunc(fn registers.TestFunc) { f.reg.DepthFunc = fn }
func (f *FragmentPipeline) SetAlphaFunc(fn registers.TestFunc) { f.reg.AlphaFunc = fn }

// SetColorMask selects which channels are written.
func (f *FragmentPipeline) SetColorMask(r, g, b, a bool) {
	f.reg.ColorMaskR, f.reg.ColorMaskG, f.reg.ColorMaskB, f.reg.ColorMaskA = r, g, b, a
}

// SetBlendFunc sets the source and destination blend factors.
func (f *FragmentPipeline) SetBlendFunc(src, dst registers.BlendFunc) {
	f.reg.BlendSFactor, f.reg.BlendDFactor = src, dst
}

// Config returns the live register.
func (f *FragmentPipeline) Config() registers.FragmentPipeline { return f.reg }

// Update uploads the register if it changed.
func (f *FragmentPipeline) Update() error {
	if f.reg.Serialize() == f.uploaded.Serialize() {
		return nil
	}
	if err := f.dev.SetFragmentPipelineConfig(f.reg); err != nil {
		return err
	}
	f.uploaded = f.reg
	return nil
}
