package registers

// TestFunc is a depth, alpha or stencil comparison.
type TestFunc uint32

const (
	Always TestFunc = iota
	Never
	Less
	Equal
	LEqual
	Greater
	NotEqual
	GEqual
)

// BlendFunc is a blend factor.
type BlendFunc uint32

const (
	BlendZero BlendFunc = iota
	BlendOne
	BlendDstColor
	BlendSrcColor
	BlendOneMinusDstColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcAlphaSaturate
)

// StencilOp is applied to the stencil buffer after a test.
type StencilOp uint32

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncr
	StencilIncrWrap
	StencilDecr
	StencilDecrWrap
	StencilInvert
)

// Combine is a texture environment combiner function.
type Combine uint32

const (
	CombineReplace Combine = iota
	CombineModulate
	CombineAdd
	CombineAddSigned
	CombineInterpolate
	CombineSubtract
	CombineDot3RGB
	CombineDot3RGBA
)

// Operand selects which part of a combiner source is used.
type Operand uint32

const (
	OperandSrcAlpha Operand = iota
	OperandOneMinusSrcAlpha
	OperandSrcColor
	OperandOneMinusSrcColor
)

// SrcReg is a combiner source.
type SrcReg uint32

const (
	SrcTexture SrcReg = iota
	SrcConstant
	SrcPrimaryColor
	SrcPrevious
)

// WrapMode is a texture coordinate wrap mode.
type WrapMode uint32

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
)

// PixelFormat is the texel layout of a texture in device memory.
type PixelFormat uint32

const (
	RGBA4444 PixelFormat = iota
	RGBA5551
	RGB565
)
