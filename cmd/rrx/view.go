package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/render"
	"github.com/taigrr/rasterix/pkg/rrx"
)

type viewFlags struct {
	fps       int
	noTexture bool
}

func newViewCmd(root *rootFlags) *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view [model.glb]",
		Short: "Spin a model in the terminal",
		Long: `Render a model every frame and show the presented image in the terminal.

Controls:
  Mouse drag  Rotate
  W/S A/D Q/E Pitch, yaw and roll
  Space       Random spin
  +/-         Zoom
  T           Toggle texture
  R           Reset
  ?           Toggle status line
  Esc         Quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runView(root, f, path)
		},
	}
	cmd.Flags().IntVar(&f.fps, "fps", 30, "target frames per second")
	cmd.Flags().BoolVar(&f.noTexture, "no-texture", false, "start with texturing off")
	return cmd
}

// viewer is the state of the interactive loop. Only the loop goroutine
// touches it.
type viewer struct {
	scene   *scene
	dev     *render.Device
	mem     *bus.Memory
	spin    *spin
	name    string
	texture bool
	status  bool

	dragging bool
	lastX    int
	lastY    int

	frames  int
	fps     float64
	fpsTime time.Time
}

func runView(root *rootFlags, f *viewFlags, path string) error {
	if f.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", f.fps)
	}
	mesh, err := loadMesh(path)
	if err != nil {
		return err
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	opts := defaultSceneOptions()
	opts.configPath = root.configPath
	s, dev, mem, err := newDeviceScene(opts, mesh, width, height*2)
	if err != nil {
		return err
	}
	defer s.Close()

	v := &viewer{
		scene:   s,
		dev:     dev,
		mem:     mem,
		spin:    newSpin(f.fps),
		name:    filepath.Base(mesh.Name),
		texture: s.texture != 0,
		status:  true,
		fpsTime: time.Now(),
	}
	if f.noTexture && v.texture {
		if err := v.toggleTexture(); err != nil {
			return err
		}
	}
	v.spin.impulse(0, 0.05, 0)

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	fmt.Fprint(os.Stdout, "\x1b[?1003h\x1b[?1006h") // any-event SGR mouse tracking
	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		_ = term.Shutdown(context.Background())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second / time.Duration(f.fps))
	defer ticker.Stop()
	events := term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			quit, err := v.handle(term, ev)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		case <-ticker.C:
			if err := v.frame(term); err != nil {
				return err
			}
		}
	}
}

// handle applies one terminal event and reports whether to quit.
func (v *viewer) handle(term *uv.Terminal, ev uv.Event) (bool, error) {
	const torque = 0.02
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		term.Erase()
		term.Resize(ev.Width, ev.Height)
		return false, v.scene.resize(ev.Width, ev.Height*2)
	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c"):
			return true, nil
		case ev.MatchString("w", "up"):
			v.spin.impulse(-torque, 0, 0)
		case ev.MatchString("s", "down"):
			v.spin.impulse(torque, 0, 0)
		case ev.MatchString("a", "left"):
			v.spin.impulse(0, -torque, 0)
		case ev.MatchString("d", "right"):
			v.spin.impulse(0, torque, 0)
		case ev.MatchString("q"):
			v.spin.impulse(0, 0, -torque)
		case ev.MatchString("e"):
			v.spin.impulse(0, 0, torque)
		case ev.MatchString("space"):
			v.spin.impulse((rand.Float64()-0.5)*0.2, (rand.Float64()-0.5)*0.2, (rand.Float64()-0.5)*0.2)
		case ev.MatchString("r"):
			v.spin.reset()
			v.scene.opts.distance = defaultSceneOptions().distance
		case ev.MatchString("+", "="):
			v.scene.opts.distance = max(1.5, v.scene.opts.distance-0.25)
		case ev.MatchString("-", "_"):
			v.scene.opts.distance = min(20, v.scene.opts.distance+0.25)
		case ev.MatchString("t"):
			return false, v.toggleTexture()
		case ev.MatchString("?", "shift+/"):
			v.status = !v.status
		}
	case uv.MouseClickEvent:
		v.dragging = true
		v.lastX, v.lastY = ev.X, ev.Y
	case uv.MouseReleaseEvent:
		v.dragging = false
	case uv.MouseMotionEvent:
		if v.dragging {
			v.spin.impulse(float64(ev.Y-v.lastY)*0.01, float64(ev.X-v.lastX)*0.01, 0)
			v.lastX, v.lastY = ev.X, ev.Y
		}
	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.scene.opts.distance = max(1.5, v.scene.opts.distance-0.25)
		case uv.MouseWheelDown:
			v.scene.opts.distance = min(20, v.scene.opts.distance+0.25)
		}
	}
	return false, nil
}

func (v *viewer) toggleTexture() error {
	if v.scene.texture == 0 {
		return nil
	}
	v.texture = !v.texture
	if v.texture {
		return v.scene.ctx.Enable(rrx.Texture2D)
	}
	return v.scene.ctx.Disable(rrx.Texture2D)
}

// frame renders, waits for the device and paints the presented image.
func (v *viewer) frame(term *uv.Terminal) error {
	v.spin.step()
	if err := v.scene.drawFrame(v.spin.matrix()); err != nil {
		return err
	}
	if err := v.scene.ctx.Finish(); err != nil {
		return err
	}
	v.mem.Reset()

	area := term.Bounds()
	if fb := v.dev.Frame(); fb != nil {
		fb.Draw(term, area)
	}
	v.countFrame()
	if v.status {
		st := v.dev.Stats()
		line := fmt.Sprintf(" %s  %.0f fps  %d tris  %d fragments  texture:%v ",
			v.name, v.fps, v.scene.mesh.TriangleCount(), st.Fragments, v.texture)
		drawText(term, area.Min.X, area.Max.Y-1, line)
	}
	return term.Display()
}

func (v *viewer) countFrame() {
	v.frames++
	if elapsed := time.Since(v.fpsTime); elapsed >= time.Second {
		v.fps = float64(v.frames) / elapsed.Seconds()
		v.frames = 0
		v.fpsTime = time.Now()
	}
}

// drawText writes s on one row starting at column x.
func drawText(scr uv.Screen, x, y int, s string) {
	w := scr.Bounds().Max.X
	for _, r := range s {
		if x >= w {
			return
		}
		scr.SetCell(x, y, &uv.Cell{Content: string(r), Width: 1})
		x++
	}
}
