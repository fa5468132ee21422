package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/registers"
)

type dumpFlags struct {
	in      string
	out     string
	width   int
	height  int
	payload bool
}

func newDumpCmd(root *rootFlags) *cobra.Command {
	f := &dumpFlags{}
	cmd := &cobra.Command{
		Use:   "dump [model.glb]",
		Short: "Capture or decode the display list stream",
		Long: "Render one frame of a model and print the display lists sent to the device. " +
			"--out saves the raw stream instead; --in decodes a saved stream.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runDump(cmd, root, f, path)
		},
	}
	cmd.Flags().StringVarP(&f.in, "in", "i", "", "decode a saved stream")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "save the raw stream")
	cmd.Flags().IntVar(&f.width, "width", 64, "image width")
	cmd.Flags().IntVar(&f.height, "height", 48, "image height")
	cmd.Flags().BoolVar(&f.payload, "payload", false, "print command payload words")
	return cmd
}

func runDump(cmd *cobra.Command, root *rootFlags, f *dumpFlags, path string) error {
	opts := defaultSceneOptions()
	opts.configPath = root.configPath
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	dec := commands.Decoder{TMUs: cfg.TMUCount}

	if f.in != "" {
		file, err := os.Open(f.in)
		if err != nil {
			return err
		}
		defer file.Close()
		return traceStream(cmd.OutOrStdout(), dec, file, f.payload)
	}

	mesh, err := loadMesh(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	stream := bus.NewStream(&buf, cfg.BusBufferCount(), cfg.DisplayListSize)
	s, err := newScene(opts, cfg, stream, nil, mesh, f.width, f.height)
	if err != nil {
		return err
	}
	if err := s.drawFrame(turntable(1, 8)); err != nil {
		return errors.Join(err, s.Close())
	}
	if err := s.Close(); err != nil {
		return err
	}

	if f.out != "" {
		if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", f.out, buf.Len())
		return nil
	}
	return traceStream(cmd.OutOrStdout(), dec, &buf, f.payload)
}

// traceStream prints every display list framed in r.
func traceStream(w io.Writer, dec commands.Decoder, r io.Reader, payload bool) error {
	for list := 0; ; list++ {
		data, err := bus.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := traceList(w, dec, list, data, payload); err != nil {
			return err
		}
	}
}

// traceList prints the DSE transfers and RRX commands of one display list.
func traceList(w io.Writer, dec commands.Decoder, list int, data []byte, payload bool) error {
	entries, err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("list %d: %w", list, err)
	}
	fmt.Fprintf(w, "list %d: %d bytes\n", list, len(data))
	for _, e := range entries {
		t := e.Transfer
		fmt.Fprintf(w, "  %-18s addr %#08x len %d\n", dseName(t.Op), t.Addr, t.Len)
		for _, c := range e.Commands {
			fmt.Fprintf(w, "    %s\n", describe(c))
			if payload && len(c.Payload) > 0 {
				fmt.Fprintf(w, "      %08x\n", c.Payload)
			}
		}
	}
	return nil
}

func dseName(op uint32) string {
	switch op {
	case commands.DSEOpNop:
		return "nop"
	case commands.DSEOpStream:
		return "stream"
	case commands.DSEOpStore:
		return "store"
	case commands.DSEOpLoad:
		return "load"
	case commands.DSEOpCommitToStream:
		return "commit_to_stream"
	case commands.DSEOpStreamFromMemory:
		return "stream_from_memory"
	case commands.DSEOpCommitToMemory:
		return "commit_to_memory"
	}
	return fmt.Sprintf("dse(%#x)", op)
}

var registerNames = map[uint32]string{
	registers.AddrFeatureEnable:         "feature_enable",
	registers.AddrColorBufferClearColor: "clear_color",
	registers.AddrDepthBufferClearDepth: "clear_depth",
	registers.AddrFragmentPipeline:      "fragment_pipeline",
	registers.AddrStencil:               "stencil",
	registers.AddrScissorStart:          "scissor_start",
	registers.AddrScissorEnd:            "scissor_end",
	registers.AddrYOffset:               "y_offset",
	registers.AddrRenderResolution:      "render_resolution",
	registers.AddrFogColor:              "fog_color",
	registers.AddrColorBufferAddr:       "color_buffer_addr",
	registers.AddrDepthBufferAddr:       "depth_buffer_addr",
	registers.AddrStencilBufferAddr:     "stencil_buffer_addr",
}

func registerName(addr uint32) string {
	if n, ok := registerNames[addr]; ok {
		return n
	}
	if addr >= registers.AddrTexEnv && addr < registers.AddrColorBufferAddr {
		tmu := (addr - registers.AddrTexEnv) / registers.TMUOffset
		switch addr - tmu*registers.TMUOffset {
		case registers.AddrTexEnv:
			return fmt.Sprintf("tex_env[%d]", tmu)
		case registers.AddrTexEnvColor:
			return fmt.Sprintf("tex_env_color[%d]", tmu)
		case registers.AddrTmuTexture:
			return fmt.Sprintf("tmu_texture[%d]", tmu)
		}
	}
	return fmt.Sprintf("reg(%#x)", addr)
}

// describe renders one command as a single line.
func describe(c commands.Decoded) string {
	imm := c.Header & commands.ImmMask
	switch c.Op() {
	case commands.OpNop:
		return "nop"
	case commands.OpWriteRegister:
		var v uint32
		if len(c.Payload) > 0 {
			v = c.Payload[0]
		}
		return fmt.Sprintf("write %-19s %#08x", registerName(imm), v)
	case commands.OpFramebuffer:
		return "framebuffer " + framebufferFlags(imm)
	case commands.OpTriangleStream:
		return fmt.Sprintf("triangle %d words", len(c.Payload))
	case commands.OpFogLut:
		return fmt.Sprintf("fog_lut %d words", len(c.Payload))
	case commands.OpTextureStream:
		tmu := c.Header >> commands.TextureStreamTMUPos & 0x1
		return fmt.Sprintf("texture tmu %d pages %d", tmu, len(c.Payload))
	case commands.OpPushVertex:
		return fmt.Sprintf("push_vertex %d words", len(c.Payload))
	}
	return fmt.Sprintf("op(%#x)", c.Op())
}

func framebufferFlags(imm uint32) string {
	flags := []struct {
		bit  uint32
		name string
	}{
		{commands.FramebufferCommit, "commit"},
		{commands.FramebufferMemset, "memset"},
		{commands.FramebufferSwap, "swap"},
		{commands.FramebufferSelectColor, "color"},
		{commands.FramebufferSelectDepth, "depth"},
		{commands.FramebufferSelectStencil, "stencil"},
	}
	var out []byte
	for _, f := range flags {
		if imm&f.bit == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, '|')
		}
		out = append(out, f.name...)
	}
	if len(out) == 0 {
		return "none"
	}
	return string(out)
}
