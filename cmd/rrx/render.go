package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/render"
)

type renderFlags struct {
	out       string
	width     int
	height    int
	frames    int
	noTexture bool
	noLight   bool
}

func newRenderCmd(root *rootFlags) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [model.glb]",
		Short: "Render a model to PNG",
		Long: "Render a glTF or GLB model, or the built-in cube, to a PNG file. " +
			"With --frames N the model turns once around and one file per frame is written.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runRender(cmd, root, f, path)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "frame.png", "output PNG path")
	cmd.Flags().IntVar(&f.width, "width", 320, "image width")
	cmd.Flags().IntVar(&f.height, "height", 240, "image height")
	cmd.Flags().IntVar(&f.frames, "frames", 1, "frames of a full turn to render")
	cmd.Flags().BoolVar(&f.noTexture, "no-texture", false, "ignore the model texture")
	cmd.Flags().BoolVar(&f.noLight, "no-light", false, "disable lighting")
	return cmd
}

// framePath numbers path for frame i when more than one frame is written.
func framePath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%04d%s", strings.TrimSuffix(path, ext), i, ext)
}

func runRender(cmd *cobra.Command, root *rootFlags, f *renderFlags, path string) error {
	if f.frames < 1 {
		return fmt.Errorf("frames must be positive, got %d", f.frames)
	}
	mesh, err := loadMesh(path)
	if err != nil {
		return err
	}
	opts := defaultSceneOptions()
	opts.configPath = root.configPath
	opts.textured = !f.noTexture
	opts.lit = !f.noLight

	s, dev, mem, err := newDeviceScene(opts, mesh, f.width, f.height)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if f.frames > 1 {
		bar = progressbar.Default(int64(f.frames), "rendering")
	}
	for i := range f.frames {
		if err := renderFrame(s, dev, turntable(i, f.frames), framePath(f.out, i, f.frames)); err != nil {
			return errors.Join(err, s.Close())
		}
		mem.Reset()
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if err := s.Close(); err != nil {
		return err
	}

	st := dev.Stats()
	logging.Logger().Info("render done",
		"frames", f.frames,
		"lists", st.Lists,
		"triangles", st.Triangles,
		"fragments", st.Fragments)
	if f.frames == 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, %d triangles)\n", f.out, s.width, s.height, mesh.TriangleCount())
	}
	return nil
}

// renderFrame draws one frame and saves what the device presented.
func renderFrame(s *scene, dev *render.Device, rotation math3d.Mat4, out string) error {
	if err := s.drawFrame(rotation); err != nil {
		return err
	}
	// The upload of the swapped list may still be in flight.
	if err := s.ctx.Finish(); err != nil {
		return err
	}
	frame := dev.Frame()
	if frame == nil {
		return errors.New("device presented no frame")
	}
	return frame.SavePNG(out)
}
