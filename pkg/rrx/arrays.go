package rrx

import "github.com/taigrr/rasterix/pkg/vertexpipeline"

// DataType is the element type of a client array.
type DataType = vertexpipeline.DataType

const (
	Byte          = vertexpipeline.Byte
	UnsignedByte  = vertexpipeline.UnsignedByte
	Short         = vertexpipeline.Short
	UnsignedShort = vertexpipeline.UnsignedShort
	UnsignedInt   = vertexpipeline.UnsignedInt
	Float         = vertexpipeline.Float
)

// ClientArray names a client-side attribute array.
type ClientArray int

const (
	VertexArray ClientArray = iota
	NormalArray
	ColorArray
	TextureCoordArray // client active TMU
)

func validType(t DataType, allowed ...DataType) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}

func setPointer(dst *vertexpipeline.Array, size int, typ DataType, stride int, data []byte) {
	dst.Size = size
	dst.Type = typ
	dst.Stride = stride
	dst.Data = data
}

// VertexPointer sets the position array. data holds little-endian elements
// of size components; a stride of 0 means packed.
func (c *Context) VertexPointer(size int, typ DataType, stride int, data []byte) error {
	if size < 2 || size > 4 || stride < 0 {
		return c.invalid(ErrInvalidValue, "vertex pointer size %d stride %d", size, stride)
	}
	if !validType(typ, Short, UnsignedInt, Float) {
		return c.invalid(ErrInvalidEnum, "vertex pointer type %s", typ)
	}
	setPointer(&c.arrays.Vertex, size, typ, stride, data)
	return nil
}

// NormalPointer sets the normal array of three components per element.
func (c *Context) NormalPointer(typ DataType, stride int, data []byte) error {
	if stride < 0 {
		return c.invalid(ErrInvalidValue, "normal pointer stride %d", stride)
	}
	if !validType(typ, Byte, Short, UnsignedInt, Float) {
		return c.invalid(ErrInvalidEnum, "normal pointer type %s", typ)
	}
	setPointer(&c.arrays.Normal, 3, typ, stride, data)
	return nil
}

// ColorPointer sets the color array. Integer types are normalized to
// [0, 1].
func (c *Context) ColorPointer(size int, typ DataType, stride int, data []byte) error {
	if size < 3 || size > 4 || stride < 0 {
		return c.invalid(ErrInvalidValue, "color pointer size %d stride %d", size, stride)
	}
	setPointer(&c.arrays.Color, size, typ, stride, data)
	return nil
}

// TexCoordPointer sets the coordinate array of the client active TMU.
func (c *Context) TexCoordPointer(size int, typ DataType, stride int, data []byte) error {
	if size < 1 || size > 4 || stride < 0 {
		return c.invalid(ErrInvalidValue, "tex coord pointer size %d stride %d", size, stride)
	}
	if !validType(typ, Short, UnsignedInt, Float) {
		return c.invalid(ErrInvalidEnum, "tex coord pointer type %s", typ)
	}
	setPointer(&c.arrays.TexCoord[c.clientTMU], size, typ, stride, data)
	return nil
}

// ClientActiveTexture selects the TMU TexCoordPointer and the
// TextureCoordArray client state act on.
func (c *Context) ClientActiveTexture(tmu int) error {
	if tmu < 0 || tmu >= c.tmus() {
		return c.invalid(ErrInvalidEnum, "client tmu %d", tmu)
	}
	c.clientTMU = tmu
	return nil
}

func (c *Context) clientArray(a ClientArray) *vertexpipeline.Array {
	switch a {
	case VertexArray:
		return &c.arrays.Vertex
	case NormalArray:
		return &c.arrays.Normal
	case ColorArray:
		return &c.arrays.Color
	case TextureCoordArray:
		return &c.arrays.TexCoord[c.clientTMU]
	}
	return nil
}

// EnableClientState makes draw calls read a from its array.
func (c *Context) EnableClientState(a ClientArray) error { return c.clientState(a, true) }

// DisableClientState makes draw calls use the current value of a.
func (c *Context) DisableClientState(a ClientArray) error { return c.clientState(a, false) }

func (c *Context) clientState(a ClientArray, enable bool) error {
	arr := c.clientArray(a)
	if arr == nil {
		return c.invalid(ErrInvalidEnum, "client array %d", a)
	}
	arr.Enabled = enable
	return nil
}

func (c *Context) drawObj(mode DrawMode, count int) (*vertexpipeline.RenderObj, error) {
	if c.imm.active {
		return nil, c.invalid(ErrInvalidOperation, "draw inside begin/end")
	}
	if !validDrawMode(mode) {
		return nil, c.invalid(ErrInvalidEnum, "draw mode %d", mode)
	}
	if count < 0 {
		return nil, c.invalid(ErrInvalidValue, "count %d", count)
	}
	obj := c.arrays
	obj.Mode = mode
	obj.Count = count
	obj.CurrentNormal = c.normal
	obj.CurrentColor = c.color
	obj.CurrentTexCoord = c.texCoord
	return &obj, nil
}

// DrawArrays draws count elements of the enabled arrays starting at first.
func (c *Context) DrawArrays(mode DrawMode, first, count int) error {
	if first < 0 {
		return c.invalid(ErrInvalidValue, "first %d", first)
	}
	obj, err := c.drawObj(mode, count)
	if err != nil {
		return err
	}
	obj.First = first
	return c.record(c.vertex.DrawObj(obj))
}

// DrawElements draws count elements of the enabled arrays in the order of
// the little-endian index buffer indices.
func (c *Context) DrawElements(mode DrawMode, count int, typ DataType, indices []byte) error {
	if !validType(typ, UnsignedByte, UnsignedShort, UnsignedInt) {
		return c.invalid(ErrInvalidEnum, "index type %s", typ)
	}
	obj, err := c.drawObj(mode, count)
	if err != nil {
		return err
	}
	obj.IndicesEnabled = true
	obj.IndexType = typ
	obj.Indices = indices
	return c.record(c.vertex.DrawObj(obj))
}
