package pixelpipeline

import "github.com/taigrr/rasterix/pkg/registers"

// FeatureEnable switches the fragment stages on and off.
type FeatureEnable struct {
	dev      Device
	reg      registers.FeatureEnable
	uploaded registers.FeatureEnable
}

// NewFeatureEnable returns a holder with every stage disabled.
func NewFeatureEnable(dev Device) *FeatureEnable {
	return &FeatureEnable{dev: dev}
}

func (f *FeatureEnable) reset() error {
	f.uploaded = f.reg
	return f.dev.SetFeatureEnableConfig(f.reg)
}

func (f *FeatureEnable) SetFog(enable bool)         { f.reg.Fog = enable }
func (f *FeatureEnable) SetBlending(enable bool)    { f.reg.Blending = enable }
func (f *FeatureEnable) SetDepthTest(enable bool)   { f.reg.DepthTest = enable }
func (f *FeatureEnable) SetAlphaTest(enable bool)   { f.reg.AlphaTest = enable }
func (f *FeatureEnable) SetStencilTest(enable bool) { f.reg.StencilTest = enable }
func (f *FeatureEnable) SetScissor(enable bool)     { f.reg.Scissor = enable }

// SetTMU enables texturing on tmu. Unknown TMUs are ignored.
func (f *FeatureEnable) SetTMU(tmu int, enable bool) {
	if tmu >= 0 && tmu < len(f.reg.TMU) {
		f.reg.TMU[tmu] = enable
	}
}

// TMU reports whether texturing is enabled on tmu.
func (f *FeatureEnable) TMU(tmu int) bool {
	return tmu >= 0 && tmu < len(f.reg.TMU) && f.reg.TMU[tmu]
}

// Config returns the live register.
func (f *FeatureEnable) Config() registers.FeatureEnable { return f.reg }

// Update uploads the register if it changed.
func (f *FeatureEnable) Update() error {
	if f.reg.Serialize() == f.uploaded.Serialize() {
		return nil
	}
	if err := f.dev.SetFeatureEnableConfig(f.reg); err != nil {
		return err
	}
	f.uploaded = f.reg
	return nil
}
