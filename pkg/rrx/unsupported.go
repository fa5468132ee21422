package rrx

// Entry points the device has no hardware for. They log a warning and do
// nothing.

func (c *Context) Accum()           { c.unsupported("accum") }
func (c *Context) NewList(id uint)  { c.unsupported("new_list") }
func (c *Context) EndList()         { c.unsupported("end_list") }
func (c *Context) CallList(id uint) { c.unsupported("call_list") }
func (c *Context) RenderMode()      { c.unsupported("render_mode") }
func (c *Context) SelectBuffer()    { c.unsupported("select_buffer") }
func (c *Context) FeedbackBuffer()  { c.unsupported("feedback_buffer") }
func (c *Context) TexImage1D()      { c.unsupported("tex_image_1d") }
func (c *Context) TexImage3D()      { c.unsupported("tex_image_3d") }
func (c *Context) PixelTransfer()   { c.unsupported("pixel_transfer") }
func (c *Context) DrawPixels()      { c.unsupported("draw_pixels") }
func (c *Context) ClipPlane()       { c.unsupported("clip_plane") }
func (c *Context) PolygonMode()     { c.unsupported("polygon_mode") }
func (c *Context) PolygonOffset()   { c.unsupported("polygon_offset") }
func (c *Context) LogicOp()         { c.unsupported("logic_op") }
func (c *Context) ShadeModel()      { c.unsupported("shade_model") }
