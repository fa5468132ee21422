package math3d

import "math"

// ToFixed converts v to a signed fixed-point number with shift fractional bits.
// Values outside the int32 range saturate.
func ToFixed(v float64, shift uint) int32 {
	f := v * float64(int64(1)<<shift)
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// FromFixed converts a fixed-point number with shift fractional bits back to float.
func FromFixed(v int32, shift uint) float64 {
	return float64(v) / float64(int64(1)<<shift)
}

// Vec2i is an integer 2D vector used for fixed-point screen coordinates.
type Vec2i [2]int32

// Vec3i is an integer 3D vector; edge function values and increments.
type Vec3i [3]int32

// FixedVec2 converts v to fixed point.
func FixedVec2(v Vec2, shift uint) Vec2i {
	return Vec2i{ToFixed(v.X, shift), ToFixed(v.Y, shift)}
}
