package vertexpipeline

import (
	"testing"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/renderer"
)

func TestCulling(t *testing.T) {
	// Counter-clockwise in viewport space is a front face.
	ccw := [3]math3d.Vec4{math3d.V4(0, 0, 0, 1), math3d.V4(10, 0, 0, 1), math3d.V4(0, 10, 0, 1)}
	cw := [3]math3d.Vec4{ccw[0], ccw[2], ccw[1]}

	tests := []struct {
		name   string
		enable bool
		mode   renderer.Face
		tri    [3]math3d.Vec4
		want   bool
	}{
		{"disabled", false, renderer.FaceBack, cw, false},
		{"back keeps front", true, renderer.FaceBack, ccw, false},
		{"back drops back", true, renderer.FaceBack, cw, true},
		{"front drops front", true, renderer.FaceFront, ccw, true},
		{"front keeps back", true, renderer.FaceFront, cw, false},
		{"front and back", true, renderer.FaceFrontAndBack, ccw, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCulling()
			c.Enable(tt.enable)
			c.SetCullMode(tt.mode)
			if c.Enabled() != tt.enable || c.CullMode() != tt.mode {
				t.Fatalf("state = (%v, %v), want (%v, %v)", c.Enabled(), c.CullMode(), tt.enable, tt.mode)
			}
			if got := c.Cull(tt.tri[0], tt.tri[1], tt.tri[2]); got != tt.want {
				t.Errorf("Cull() = %v, want %v", got, tt.want)
			}
		})
	}
}
