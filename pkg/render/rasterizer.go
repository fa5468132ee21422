package render

import (
	"fmt"
	"math"

	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/math3d"
)

// fragment is one covered pixel with its interpolated attributes.
type fragment struct {
	x, y   int
	color  math3d.Vec4
	depthZ float64
	depthW float64
	stq    []math3d.Vec3
}

// pushVertex queues one screen-space vertex. Every third vertex completes a
// triangle, which is set up against the current scissor and TMU registers.
// A display list always carries whole triangles.
func (d *Device) pushVertex(words []uint32) error {
	if len(words) < 8 || len(words)%4 != 0 {
		return fmt.Errorf("%w: push vertex with %d words", commands.ErrMalformed, len(words))
	}
	i := d.queued
	d.queue.Vertex[i] = wordsToVec4(words[0:4])
	d.queue.Color[i] = wordsToVec4(words[4:8])
	tex := d.queue.Texture[i][:0]
	for w := 8; w < len(words); w += 4 {
		tex = append(tex, wordsToVec4(words[w:w+4]))
	}
	d.queue.Texture[i] = tex
	d.queued++
	if d.queued < 3 {
		return nil
	}
	d.queued = 0

	d.setup.EnableScissor(d.feature.Scissor)
	d.setup.SetScissorBox(d.scissorMin.X, d.scissorMin.Y, d.scissorMax.X-d.scissorMin.X, d.scissorMax.Y-d.scissorMin.Y)
	for t := range d.tmus {
		d.setup.EnableTMU(t, t < len(d.feature.TMU) && d.feature.TMU[t])
	}
	desc, ok := d.setup.Rasterize(&d.queue)
	if !ok {
		return nil
	}
	if !d.cfg.UseFloatInterpolation && !desc.Increment(d.yOffset, d.yOffset+d.lineHeight) {
		return nil
	}
	d.drawTriangle(desc)
	return nil
}

func wordsToVec4(w []uint32) math3d.Vec4 {
	return math3d.V4(
		float64(math.Float32frombits(w[0])),
		float64(math.Float32frombits(w[1])),
		float64(math.Float32frombits(w[2])),
		float64(math.Float32frombits(w[3])))
}

// drawTriangle walks the bounding box of desc inside the current display
// line. Edge functions and attributes are stepped incrementally from the
// box origin; a pixel is covered when no edge function is negative.
func (d *Device) drawTriangle(desc commands.TriangleDesc) {
	lineStart := d.yOffset
	lineEnd := d.yOffset + d.lineHeight
	if d.cfg.UseFloatInterpolation {
		// Float descriptors are sent unmodified to every line.
		if !desc.Increment(lineStart, lineEnd) {
			return
		}
	} else if !desc.InBounds(lineStart, lineEnd) {
		return
	}
	d.stats.Triangles++

	fb := d.colorBuffer()
	startY := max(int(desc.BBStartY), lineStart)
	endY := min(int(desc.BBEndY), lineEnd, fb.Height)
	startX := int(desc.BBStartX)
	endX := min(int(desc.BBEndX), d.resX, fb.Width)

	f := fragment{stq: make([]math3d.Vec3, len(desc.Texture))}
	for y := startY; y < endY; y++ {
		dy := y - startY
		fdy := float64(dy)
		var w [3]int64
		for i := range w {
			w[i] = int64(desc.WInit[i]) + int64(desc.WYInc[i])*int64(dy)
		}
		color := desc.Color.Add(desc.ColorYInc.Scale(fdy))
		depthZ := desc.DepthZ + desc.DepthZYInc*fdy
		depthW := desc.DepthW + desc.DepthWYInc*fdy
		for i, t := range desc.Texture {
			f.stq[i] = t.Stq.Add(t.StqYInc.Scale(fdy))
		}

		for x := startX; x < endX; x++ {
			if w[0] >= 0 && w[1] >= 0 && w[2] >= 0 {
				f.x, f.y = x, y
				f.color, f.depthZ, f.depthW = color, depthZ, depthW
				d.shade(fb, &f)
			}
			for i := range w {
				w[i] += int64(desc.WXInc[i])
			}
			color = color.Add(desc.ColorXInc)
			depthZ += desc.DepthZXInc
			depthW += desc.DepthWXInc
			for i, t := range desc.Texture {
				f.stq[i] = f.stq[i].Add(t.StqXInc)
			}
		}
	}
}

// shade runs the fragment pipeline for f: scissor, texture combiners,
// fog, alpha, stencil and depth tests, blending and masked writes.
func (d *Device) shade(fb *Framebuffer, f *fragment) {
	if d.feature.Scissor && (f.x < d.scissorMin.X || f.x >= d.scissorMax.X ||
		f.y < d.scissorMin.Y || f.y >= d.scissorMax.Y) {
		return
	}

	primary := f.color.Clamp(0, 1)
	c := primary
	for i := range d.tmus {
		if !d.feature.TMU[i] || i >= len(f.stq) {
			continue
		}
		stq := f.stq[i]
		if stq.Z == 0 {
			continue
		}
		texel := d.texture(i).Sample(stq.X/stq.Z, stq.Y/stq.Z)
		c = combine(d.tmus[i].env, texel, toVec(d.tmus[i].color), primary, c)
	}

	if d.feature.Fog && f.depthW != 0 {
		k := d.fog.factor(1 / f.depthW)
		fog := toVec(d.fogColor)
		c = math3d.V4(
			c.X*k+fog.X*(1-k),
			c.Y*k+fog.Y*(1-k),
			c.Z*k+fog.Z*(1-k),
			c.W)
	}

	if d.feature.AlphaTest && !compare(d.frag.AlphaFunc, int(toRGBA(c).A), int(d.frag.RefAlpha)) {
		return
	}

	i := f.y*fb.Width + f.x
	depth := fragmentDepth(f.depthZ)
	st := &d.stencil
	if d.feature.StencilTest {
		ref := int(st.Ref & st.Mask)
		stored := d.stencilBuf[i]
		if !compare(st.TestFunc, ref, int(stored&st.Mask)) {
			d.writeStencil(i, stencilOp(st.OpFail, stored, st.Ref))
			return
		}
	}
	if d.feature.DepthTest {
		if !compare(d.frag.DepthFunc, int(depth), int(d.depth[i])) {
			if d.feature.StencilTest {
				d.writeStencil(i, stencilOp(st.OpZFail, d.stencilBuf[i], st.Ref))
			}
			return
		}
		if d.frag.DepthMask {
			d.depth[i] = depth
		}
	}
	if d.feature.StencilTest {
		d.writeStencil(i, stencilOp(st.OpZPass, d.stencilBuf[i], st.Ref))
	}

	dst := fb.Pixels[i]
	if d.feature.Blending {
		c = blend(d.frag, c, math3d.V4(float64(dst.R), float64(dst.G), float64(dst.B), float64(dst.A)).Scale(1.0/255))
	}
	out := toRGBA(c)
	if !d.frag.ColorMaskR {
		out.R = dst.R
	}
	if !d.frag.ColorMaskG {
		out.G = dst.G
	}
	if !d.frag.ColorMaskB {
		out.B = dst.B
	}
	if !d.frag.ColorMaskA {
		out.A = dst.A
	}
	fb.Pixels[i] = out
	d.stats.Fragments++
}

func (d *Device) writeStencil(i int, v uint8) {
	m := d.stencil.StencilMask
	d.stencilBuf[i] = d.stencilBuf[i]&^m | v&m
}

// fragmentDepth converts a window depth in [-1, 1] to the 16 bit depth
// buffer format the clear value uses.
func fragmentDepth(z float64) uint16 {
	v := (z + 1) * 32767
	return uint16(min(max(v, 0), 65535))
}
