package main

import (
	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/rasterix/pkg/math3d"
)

// spinAxis is one rotation angle whose angular velocity springs back to
// rest.
type spinAxis struct {
	angle    float64
	velocity float64
	accel    float64 // spring velocity of velocity
	spring   harmonica.Spring
}

func newSpinAxis(fps int) spinAxis {
	// Critically damped: the spin slows down without reversing.
	return spinAxis{spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

func (a *spinAxis) step() {
	a.angle += a.velocity
	a.velocity, a.accel = a.spring.Update(a.velocity, a.accel, 0)
}

// spin is the model orientation driven by impulses from the keyboard and
// mouse.
type spin struct {
	pitch, yaw, roll spinAxis
	fps              int
}

func newSpin(fps int) *spin {
	s := &spin{fps: fps}
	s.reset()
	return s
}

func (s *spin) reset() {
	s.pitch = newSpinAxis(s.fps)
	s.yaw = newSpinAxis(s.fps)
	s.roll = newSpinAxis(s.fps)
}

// impulse adds angular velocity in radians per frame.
func (s *spin) impulse(pitch, yaw, roll float64) {
	s.pitch.velocity += pitch
	s.yaw.velocity += yaw
	s.roll.velocity += roll
}

// step advances one frame.
func (s *spin) step() {
	s.pitch.step()
	s.yaw.step()
	s.roll.step()
}

// resting reports whether every axis has practically stopped.
func (s *spin) resting() bool {
	const eps = 1e-4
	for _, a := range []*spinAxis{&s.pitch, &s.yaw, &s.roll} {
		if a.velocity > eps || a.velocity < -eps {
			return false
		}
	}
	return true
}

// matrix is the model rotation.
func (s *spin) matrix() math3d.Mat4 {
	return math3d.RotateX(s.pitch.angle).
		Mul(math3d.RotateY(s.yaw.angle)).
		Mul(math3d.RotateZ(s.roll.angle))
}
