package pixelpipeline

import (
	"math"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

// FogMode is the fog attenuation function.
type FogMode int

const (
	FogOne FogMode = iota // no attenuation
	FogLinear
	FogExp
	FogExp2
)

// FogLutEntries is the number of fog samples, taken at distances 2^i.
const FogLutEntries = 33

// Fogging holds the fog parameters and recomputes the lookup table only
// after one of them changed.
type Fogging struct {
	dev     Device
	dirty   bool
	mode    FogMode
	start   float64
	end     float64
	density float64
}

// NewFogging returns the API defaults: exponential fog with density 1.
// The table is uploaded on the first Update.
func NewFogging(dev Device) *Fogging {
	return &Fogging{
		dev:     dev,
		dirty:   true,
		mode:    FogExp,
		end:     1,
		density: 1,
	}
}

func (f *Fogging) SetMode(mode FogMode) {
	if f.mode != mode {
		f.mode = mode
		f.dirty = true
	}
}

func (f *Fogging) SetStart(v float64) {
	if f.start != v {
		f.start = v
		f.dirty = true
	}
}

func (f *Fogging) SetEnd(v float64) {
	if f.end != v {
		f.end = v
		f.dirty = true
	}
}

func (f *Fogging) SetDensity(v float64) {
	if f.density != v {
		f.density = v
		f.dirty = true
	}
}

// Mode returns the fog function.
func (f *Fogging) Mode() FogMode { return f.mode }

// Start returns the linear fog start distance.
func (f *Fogging) Start() float64 { return f.start }

// End returns the linear fog end distance.
func (f *Fogging) End() float64 { return f.end }

// Density returns the exponential fog density.
func (f *Fogging) Density() float64 { return f.density }

// SetColor writes the fog color, given as 0..1 channels.
func (f *Fogging) SetColor(c math3d.Vec4) error {
	return f.dev.SetFogColor(registers.ColorFromVec(c.Scale(256)))
}

// Lut samples the fog function at 2^i for i in [0, 33), clamped to [0, 1].
func (f *Fogging) Lut() [FogLutEntries]float64 {
	var fn func(z float64) float64
	switch f.mode {
	case FogLinear:
		fn = func(z float64) float64 {
			if f.end == f.start {
				return 1
			}
			return (f.end - z) / (f.end - f.start)
		}
	case FogExp:
		fn = func(z float64) float64 { return math.Exp(-f.density * z) }
	case FogExp2:
		fn = func(z float64) float64 { return math.Exp(-math.Pow(f.density*z, 2)) }
	default:
		fn = func(float64) float64 { return 1 }
	}
	var lut [FogLutEntries]float64
	for i := range lut {
		lut[i] = min(max(fn(math.Exp2(float64(i))), 0), 1)
	}
	return lut
}

// Update uploads a new table if a fog parameter changed. A failed upload
// is retried on the next call.
func (f *Fogging) Update() error {
	if !f.dirty {
		return nil
	}
	if err := f.dev.SetFogLut(f.Lut(), f.start, f.end); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
