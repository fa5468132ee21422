package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestDisplayLines(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		lg     uint
		expect int
	}{
		{"exact fit", 1024, 1024, 20, 1},
		{"smaller than framebuffer", 1024, 600, 20, 1},
		{"split", 1024, 600, 15, 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.MaxDisplayWidth, c.MaxDisplayHeight, c.FramebufferSizeInPixelLg = tt.w, tt.h, tt.lg
			if got := c.DisplayLines(); got != tt.expect {
				t.Errorf("DisplayLines() = %d, want %d", got, tt.expect)
			}
		})
	}
}

func TestLinesFor(t *testing.T) {
	c := Default()
	c.FramebufferSizeInPixelLg = 10
	if got := c.LinesFor(64, 32); got != 2 {
		t.Errorf("LinesFor(64, 32) = %d, want 2", got)
	}
	if got := c.LinesFor(33, 32); got != 2 {
		t.Errorf("LinesFor(33, 32) = %d, want 2", got)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RenderConfig)
	}{
		{"zero tmus", func(c *RenderConfig) { c.TMUCount = 0 }},
		{"npot texture", func(c *RenderConfig) { c.MaxTextureSize = 300 }},
		{"no pages", func(c *RenderConfig) { c.NumberOfTexturePages = 0 }},
		{"unaligned list", func(c *RenderConfig) { c.DisplayListSize = 2050 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	data := []byte("tmu_count: 1\nframebuffer_type: internal-to-stream\nmax_display_width: 320\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if c.TMUCount != 1 || c.MaxDisplayWidth != 320 || c.FramebufferType != InternalToStream {
		t.Errorf("Load() = %+v", c)
	}
	if c.MaxTextureSize != Default().MaxTextureSize {
		t.Errorf("MaxTextureSize = %d, want default", c.MaxTextureSize)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "device.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if c != Default() {
		t.Errorf("round trip = %+v, want %+v", c, Default())
	}
}

func TestMaxPagesPerTexture(t *testing.T) {
	c := Default()
	c.MaxTextureSize = 256
	c.TexturePageSize = 4096
	// 256*256*2*1.33/4096 = 42.56
	if got := c.MaxPagesPerTexture(); got != 43 {
		t.Errorf("MaxPagesPerTexture() = %d, want 43", got)
	}
}
