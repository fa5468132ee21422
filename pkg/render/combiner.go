package render

import (
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

// combine runs the texture combiner of one TMU. All colors are 0..1.
func combine(env registers.TexEnv, texel, constant, primary, previous math3d.Vec4) math3d.Vec4 {
	source := func(s registers.SrcReg) math3d.Vec4 {
		switch s {
		case registers.SrcTexture:
			return texel
		case registers.SrcConstant:
			return constant
		case registers.SrcPrimaryColor:
			return primary
		}
		return previous
	}

	var rgb [3]math3d.Vec3
	var alpha [3]float64
	for i := range rgb {
		c := source(env.SrcRGB[i])
		switch env.OperandRGB[i] {
		case registers.OperandSrcColor:
			rgb[i] = c.Vec3()
		case registers.OperandOneMinusSrcColor:
			rgb[i] = math3d.V3(1-c.X, 1-c.Y, 1-c.Z)
		case registers.OperandSrcAlpha:
			rgb[i] = math3d.V3(c.W, c.W, c.W)
		case registers.OperandOneMinusSrcAlpha:
			rgb[i] = math3d.V3(1-c.W, 1-c.W, 1-c.W)
		}
		a := source(env.SrcAlpha[i]).W
		if env.OperandAlpha[i] == registers.OperandOneMinusSrcAlpha {
			a = 1 - a
		}
		alpha[i] = a
	}

	outRGB := combineRGB(env.CombineRGB, rgb)
	outA := combineAlpha(env.CombineAlpha, alpha)
	if env.CombineRGB == registers.CombineDot3RGBA {
		outA = outRGB.X
	}
	out := math3d.V4FromV3(outRGB.Scale(float64(int(1)<<env.ShiftRGB)), outA*float64(int(1)<<env.ShiftAlpha))
	return out.Clamp(0, 1)
}

func combineRGB(fn registers.Combine, a [3]math3d.Vec3) math3d.Vec3 {
	half := math3d.V3(0.5, 0.5, 0.5)
	switch fn {
	case registers.CombineReplace:
		return a[0]
	case registers.CombineModulate:
		return a[0].Mul(a[1])
	case registers.CombineAdd:
		return a[0].Add(a[1])
	case registers.CombineAddSigned:
		return a[0].Add(a[1]).Sub(half)
	case registers.CombineInterpolate:
		one := math3d.V3(1, 1, 1)
		return a[0].Mul(a[2]).Add(a[1].Mul(one.Sub(a[2])))
	case registers.CombineSubtract:
		return a[0].Sub(a[1])
	case registers.CombineDot3RGB, registers.CombineDot3RGBA:
		d := 4 * a[0].Sub(half).Dot(a[1].Sub(half))
		return math3d.V3(d, d, d)
	}
	return a[0]
}

func combineAlpha(fn registers.Combine, a [3]float64) float64 {
	switch fn {
	case registers.CombineModulate:
		return a[0] * a[1]
	case registers.CombineAdd:
		return a[0] + a[1]
	case registers.CombineAddSigned:
		return a[0] + a[1] - 0.5
	case registers.CombineInterpolate:
		return a[0]*a[2] + a[1]*(1-a[2])
	case registers.CombineSubtract:
		return a[0] - a[1]
	}
	return a[0]
}
