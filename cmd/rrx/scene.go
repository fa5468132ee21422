package main

import (
	"fmt"
	"math"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/models"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/render"
	"github.com/taigrr/rasterix/pkg/rrx"
	"github.com/taigrr/rasterix/pkg/threadrunner"
)

// sceneOptions are the settings shared by the commands that draw a model.
type sceneOptions struct {
	configPath string
	textured   bool
	lit        bool
	background [3]float64
	lightDir   math3d.Vec3
	distance   float64
}

func defaultSceneOptions() sceneOptions {
	return sceneOptions{
		textured:   true,
		lit:        true,
		background: [3]float64{30.0 / 255, 30.0 / 255, 40.0 / 255},
		lightDir:   math3d.V3(0.5, 1, 0.8).Normalize(),
		distance:   3,
	}
}

func (o sceneOptions) loadConfig() (config.RenderConfig, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// scene draws one mesh through an rrx.Context into a software device.
type scene struct {
	opts    sceneOptions
	cfg     config.RenderConfig
	ctx     *rrx.Context
	mesh    *models.Mesh
	arrays  models.Arrays
	texture uint16
	width   int
	height  int
}

// loadMesh reads path, or returns the built-in cube when path is empty.
func loadMesh(path string) (*models.Mesh, error) {
	if path == "" {
		return cubeMesh(), nil
	}
	m, err := models.LoadGLB(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return m, nil
}

// newScene opens a context on conn and uploads the mesh texture. The
// runner may be nil for synchronous uploads.
func newScene(opts sceneOptions, cfg config.RenderConfig, conn bus.Connector, runner threadrunner.Runner, mesh *models.Mesh, width, height int) (*scene, error) {
	ctx, err := rrx.New(cfg, conn, runner)
	if err != nil {
		return nil, fmt.Errorf("open context: %w", err)
	}
	mesh.Transform(mesh.FitMatrix(2))
	s := &scene{
		opts:   opts,
		cfg:    cfg,
		ctx:    ctx,
		mesh:   mesh,
		arrays: mesh.Pack(),
	}
	if opts.textured {
		if s.texture, err = mesh.UploadTexture(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.setup(); err != nil {
		return nil, err
	}
	if err := s.resize(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// newDeviceScene wires a scene to a software device through a memory bus.
func newDeviceScene(opts sceneOptions, mesh *models.Mesh, width, height int) (*scene, *render.Device, *bus.Memory, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	dev, err := render.NewDevice(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	mem := bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, dev)
	s, err := newScene(opts, cfg, mem, threadrunner.NewMulti(), mesh, width, height)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, dev, mem, nil
}

func (s *scene) setup() error {
	c := s.ctx
	bg := s.opts.background
	steps := []func() error{
		func() error { return c.ClearColor(bg[0], bg[1], bg[2], 1) },
		func() error { return c.ClearDepth(1) },
		func() error { return c.Enable(rrx.DepthTest) },
		func() error { return c.DepthFunc(registers.Less) },
	}
	c.DepthMask(true)
	if s.opts.lit {
		l := s.opts.lightDir
		steps = append(steps,
			func() error { return c.Enable(rrx.Lighting) },
			func() error { return c.Enable(rrx.Light0) },
			func() error { return c.Enable(rrx.ColorMaterial) },
			func() error { return c.ColorMaterial(rrx.TrackAmbientAndDiffuse) },
			func() error { return c.LightAmbient(0, math3d.V4(0.25, 0.25, 0.25, 1)) },
			func() error { return c.LightDiffuse(0, math3d.V4(1, 1, 1, 1)) },
			// Set with an identity modelview so the light stays fixed in eye space.
			func() error { return c.LightPosition(0, math3d.V4(l.X, l.Y, l.Z, 0)) },
		)
		if m := s.mesh.GetMaterial(0); m != nil && m.Roughness < 1 {
			// Highlight strength follows glossiness.
			k := 1 - m.Roughness
			c.MaterialSpecular(math3d.V4(k, k, k, 1))
			steps = append(steps,
				func() error { return c.LightSpecular(0, math3d.V4(1, 1, 1, 1)) },
				func() error { return c.MaterialShininess(m.Shininess()) },
			)
		}
	}
	if s.texture != 0 {
		steps = append(steps,
			func() error { return c.Enable(rrx.Texture2D) },
			func() error { return c.TexEnv(rrx.Modulate) },
			func() error { return c.TexFilter(true, false) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("scene setup: %w", err)
		}
	}
	return nil
}

// resize changes the rendered image and the projection.
func (s *scene) resize(width, height int) error {
	width = min(max(width, 1), s.cfg.MaxDisplayWidth)
	height = min(max(height, 1), s.cfg.MaxDisplayHeight)
	c := s.ctx
	if err := c.RenderResolution(width, height); err != nil {
		return err
	}
	if err := c.Viewport(0, 0, width, height); err != nil {
		return err
	}
	if err := c.MatrixMode(rrx.ProjectionMatrix); err != nil {
		return err
	}
	c.LoadIdentity()
	if err := c.Perspective(60, float64(width)/float64(height), 0.1, 100); err != nil {
		return err
	}
	if err := c.MatrixMode(rrx.ModelViewMatrix); err != nil {
		return err
	}
	s.width, s.height = width, height
	return nil
}

// drawFrame renders the mesh under rotation and swaps.
func (s *scene) drawFrame(rotation math3d.Mat4) error {
	c := s.ctx
	if err := c.Clear(rrx.ColorBuffer | rrx.DepthBuffer); err != nil {
		return err
	}
	c.LoadIdentity()
	c.Translate(0, 0, -s.opts.distance)
	c.MultMatrix(rotation)
	if err := s.arrays.Draw(c); err != nil {
		return fmt.Errorf("draw %s: %w", s.mesh.Name, err)
	}
	return c.SwapBuffers()
}

func (s *scene) Close() error { return s.ctx.Close() }

// turntable is the rotation of frame i of n around the y axis, tilted
// toward the viewer.
func turntable(i, n int) math3d.Mat4 {
	angle := 2 * math.Pi * float64(i) / float64(max(n, 1))
	return math3d.RotateX(0.4).Mul(math3d.RotateY(angle))
}

// cubeMesh is a unit cube with one color per face.
func cubeMesh() *models.Mesh {
	m := models.NewMesh("cube")
	faces := []struct {
		normal, u, v math3d.Vec3
		color        math3d.Vec4
	}{
		{math3d.V3(0, 0, 1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V4(0.9, 0.2, 0.2, 1)},
		{math3d.V3(0, 0, -1), math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0), math3d.V4(0.2, 0.9, 0.2, 1)},
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0), math3d.V4(0.2, 0.2, 0.9, 1)},
		{math3d.V3(-1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0), math3d.V4(0.9, 0.9, 0.2, 1)},
		{math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1), math3d.V4(0.2, 0.9, 0.9, 1)},
		{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1), math3d.V4(0.9, 0.2, 0.9, 1)},
	}
	corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := len(m.Vertices)
		for _, c := range corners {
			p := f.normal.Add(f.u.Scale(c[0])).Add(f.v.Scale(c[1])).Scale(0.5)
			m.Vertices = append(m.Vertices, models.MeshVertex{
				Position: p,
				Normal:   f.normal,
				UV:       math3d.V2((c[0]+1)/2, (c[1]+1)/2),
				Color:    f.color,
			})
		}
		m.Faces = append(m.Faces,
			models.Face{V: [3]int{base, base + 1, base + 2}, Material: -1},
			models.Face{V: [3]int{base, base + 2, base + 3}, Material: -1},
		)
	}
	m.CalculateBounds()
	return m
}
