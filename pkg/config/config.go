// Package config describes the rasterizer device the command stream targets.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"os"

	"gopkg.in/yaml.v3"
)

// FramebufferType selects how the device produces and presents frames.
type FramebufferType int

const (
	// InternalToMemory renders into on-chip memory and commits to GRAM.
	InternalToMemory FramebufferType = iota
	// InternalToStream renders on-chip and streams straight to the display.
	InternalToStream
	// ExternalMemoryToStream renders into GRAM and streams it to the display.
	ExternalMemoryToStream
	// ExternalMemoryDoubleBuffer renders into one of two GRAM color buffers.
	ExternalMemoryDoubleBuffer
)

var framebufferTypeNames = map[FramebufferType]string{
	InternalToMemory:           "internal-to-memory",
	InternalToStream:           "internal-to-stream",
	ExternalMemoryToStream:     "external-memory-to-stream",
	ExternalMemoryDoubleBuffer: "external-memory-double-buffer",
}

func (t FramebufferType) String() string {
	if s, ok := framebufferTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("FramebufferType(%d)", int(t))
}

// MarshalYAML implements yaml.Marshaler.
func (t FramebufferType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *FramebufferType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for k, v := range framebufferTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown framebuffer type %q", s)
}

// RenderConfig holds the device constants. It parameterizes sizes and
// addresses; the pipeline logic does not change with it.
type RenderConfig struct {
	TMUCount         int  `yaml:"tmu_count"`
	MaxTextureSize   int  `yaml:"max_texture_size"`
	EnableMipmapping bool `yaml:"enable_mipmapping"`

	MaxDisplayWidth  int `yaml:"max_display_width"`
	MaxDisplayHeight int `yaml:"max_display_height"`
	// FramebufferSizeInPixelLg is log2 of the pixels the device renders in one pass.
	FramebufferSizeInPixelLg uint            `yaml:"framebuffer_size_in_pixel_lg"`
	FramebufferType          FramebufferType `yaml:"framebuffer_type"`

	UseFloatInterpolation bool `yaml:"use_float_interpolation"`
	// PushVertices sends screen-space vertices instead of triangle
	// descriptors, for devices that run triangle setup themselves.
	PushVertices bool `yaml:"push_vertices"`

	NumberOfTexturePages int `yaml:"number_of_texture_pages"`
	NumberOfTextures     int `yaml:"number_of_textures"`
	TexturePageSize      int `yaml:"texture_page_size"`

	GRAMMemoryLoc    uint32 `yaml:"gram_memory_loc"`
	ColorBufferLoc0  uint32 `yaml:"color_buffer_loc_0"`
	ColorBufferLoc1  uint32 `yaml:"color_buffer_loc_1"`
	ColorBufferLoc2  uint32 `yaml:"color_buffer_loc_2"`
	DepthBufferLoc   uint32 `yaml:"depth_buffer_loc"`
	StencilBufferLoc uint32 `yaml:"stencil_buffer_loc"`

	// DisplayListSize is the byte size of one display list buffer.
	DisplayListSize int `yaml:"display_list_size"`
}

// Default returns the reference device.
func Default() RenderConfig {
	return RenderConfig{
		TMUCount:                 2,
		MaxTextureSize:           256,
		EnableMipmapping:         true,
		MaxDisplayWidth:          1024,
		MaxDisplayHeight:         600,
		FramebufferSizeInPixelLg: 20,
		FramebufferType:          ExternalMemoryDoubleBuffer,
		UseFloatInterpolation:    false,
		NumberOfTexturePages:     6656,
		NumberOfTextures:         6656,
		TexturePageSize:          4096,
		GRAMMemoryLoc:            0,
		ColorBufferLoc0:          0,
		ColorBufferLoc1:          0x01E00000,
		ColorBufferLoc2:          0x01C00000,
		DepthBufferLoc:           0x01A00000,
		StencilBufferLoc:         0x01900000,
		DisplayListSize:          256 * 1024,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (RenderConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal returns the YAML form of the configuration.
func (c RenderConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// minTransferSize is the smallest memory store the device accepts; a page
// must hold at least one.
const minTransferSize = 512

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid render config")

// Validate checks the constraints the device imposes.
func (c RenderConfig) Validate() error {
	var errs []error
	if c.TMUCount < 1 || c.TMUCount > 2 {
		errs = append(errs, fmt.Errorf("%w: tmu_count %d not in [1, 2]", ErrInvalid, c.TMUCount))
	}
	if c.MaxTextureSize <= 0 || bits.OnesCount(uint(c.MaxTextureSize)) != 1 {
		errs = append(errs, fmt.Errorf("%w: max_texture_size %d is not a power of two", ErrInvalid, c.MaxTextureSize))
	}
	if c.MaxDisplayWidth <= 0 || c.MaxDisplayHeight <= 0 {
		errs = append(errs, fmt.Errorf("%w: display %dx%d", ErrInvalid, c.MaxDisplayWidth, c.MaxDisplayHeight))
	}
	if c.FramebufferSizeInPixelLg == 0 || c.FramebufferSizeInPixelLg > 24 {
		errs = append(errs, fmt.Errorf("%w: framebuffer_size_in_pixel_lg %d", ErrInvalid, c.FramebufferSizeInPixelLg))
	}
	if c.NumberOfTexturePages <= 0 || c.TexturePageSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: texture pages %d x %d bytes", ErrInvalid, c.NumberOfTexturePages, c.TexturePageSize))
	}
	if c.TexturePageSize < minTransferSize || c.TexturePageSize%4 != 0 {
		errs = append(errs, fmt.Errorf("%w: texture_page_size %d must be a multiple of 4 and at least %d",
			ErrInvalid, c.TexturePageSize, minTransferSize))
	}
	if c.NumberOfTextures < 2 {
		errs = append(errs, fmt.Errorf("%w: number_of_textures %d", ErrInvalid, c.NumberOfTextures))
	}
	if c.DisplayListSize < 1024 || c.DisplayListSize%4 != 0 {
		errs = append(errs, fmt.Errorf("%w: display_list_size %d", ErrInvalid, c.DisplayListSize))
	}
	return errors.Join(errs...)
}

// FramebufferSizeInPixel is the number of pixels rendered in one pass.
func (c RenderConfig) FramebufferSizeInPixel() int {
	return 1 << c.FramebufferSizeInPixelLg
}

// DisplayLines is the number of display lists the maximum resolution needs.
func (c RenderConfig) DisplayLines() int {
	size := c.MaxDisplayWidth * c.MaxDisplayHeight
	if size == c.FramebufferSizeInPixel() {
		return 1
	}
	return size/c.FramebufferSizeInPixel() + 1
}

// LinesFor returns how many display lines a w x h frame splits into.
func (c RenderConfig) LinesFor(w, h int) int {
	size := w * h
	fb := c.FramebufferSizeInPixel()
	lines := size / fb
	if size%fb != 0 {
		lines++
	}
	return lines
}

// MaxPagesPerTexture bounds the pages a texture with its mip chain occupies.
func (c RenderConfig) MaxPagesPerTexture() int {
	return int(float64(c.MaxTextureSize*c.MaxTextureSize)*2*1.33/float64(c.TexturePageSize)) + 1
}

// BusBufferCount is the number of bus buffers the renderer requests:
// two display lists per line plus one for texture uploads.
func (c RenderConfig) BusBufferCount() int {
	return 2*c.DisplayLines() + 1
}
