package renderer

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/taigrr/rasterix/pkg/logging"
	"github.com/taigrr/rasterix/pkg/registers"
)

var (
	// ErrInvalidTexture is returned for texture ids that do not exist.
	ErrInvalidTexture = errors.New("invalid texture id")
	// ErrOutOfMemory is returned when no texture slot or page is free.
	ErrOutOfMemory = errors.New("out of texture memory")
)

type textureEntry struct {
	inUse          bool
	requiresUpload bool
	requiresDelete bool
}

type textureSlot struct {
	pages []int
	mip   Mipmap
	tmu   registers.TmuTexture
}

// TextureManager maps texture ids onto slots and slots onto pages of device
// texture memory. Slot and id 0 are reserved. A texture that is updated
// while an upload is still pending moves to a fresh slot, so the device
// never samples a half written texture.
type TextureManager struct {
	pageSize    int
	maxPages    int
	slots       []textureSlot
	entries     []textureEntry
	lut         []int // texture id -> slot, 0 if unused
	pageInUse   []bool
	needsUpload bool
}

// NewTextureManager returns a manager for textures textures spread over
// pages pages of pageSize bytes. A texture holds at most maxPages pages.
func NewTextureManager(textures, pages, pageSize, maxPages int) *TextureManager {
	return &TextureManager{
		pageSize:  pageSize,
		maxPages:  maxPages,
		slots:     make([]textureSlot, textures),
		entries:   make([]textureEntry, textures),
		lut:       make([]int, textures),
		pageInUse: make([]bool, pages),
	}
}

func (m *TextureManager) slot(id uint16) (int, error) {
	if int(id) >= len(m.lut) || m.lut[id] == 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTexture, id)
	}
	return m.lut[id], nil
}

// CreateTexture allocates the lowest unused texture id.
func (m *TextureManager) CreateTexture() (uint16, error) {
	for i := 1; i < len(m.lut); i++ {
		if m.lut[i] == 0 {
			return uint16(i), m.CreateTextureWithName(uint16(i))
		}
	}
	return 0, ErrOutOfMemory
}

// CreateTextureWithName allocates a slot for id. Creating an existing id is
// a no-op.
func (m *TextureManager) CreateTextureWithName(id uint16) error {
	if id == 0 || int(id) >= len(m.lut) {
		return fmt.Errorf("%w: %d", ErrInvalidTexture, id)
	}
	if m.lut[id] != 0 {
		return nil
	}
	s, err := m.allocSlot()
	if err != nil {
		return err
	}
	m.lut[id] = s
	m.entries[s].requiresUpload = false
	m.entries[s].requiresDelete = false
	tmu := registers.DefaultTmuTexture(0)
	tmu.WrapS, tmu.WrapT = registers.WrapRepeat, registers.WrapRepeat
	tmu.MagFilter = true
	m.slots[s] = textureSlot{tmu: tmu}
	return nil
}

// UpdateTexture replaces the texels of id and allocates pages for them.
func (m *TextureManager) UpdateTexture(id uint16, mip Mipmap) error {
	old, err := m.slot(id)
	if err != nil {
		return err
	}
	s := old
	if m.entries[s].requiresUpload {
		m.entries[s].requiresDelete = true
		ns, err := m.allocSlot()
		if err != nil {
			return err
		}
		s = ns
		m.lut[id] = ns
		logging.Logger().Debug("texture moved to new slot", "id", id, "slot", ns)
	} else {
		m.freePages(&m.slots[s])
	}

	slot := &m.slots[s]
	slot.mip = mip
	m.entries[s].requiresUpload = true
	m.entries[s].requiresDelete = false
	prev := m.slots[old].tmu
	slot.tmu = registers.TmuTexture{
		WidthLg:     log2(mip[0].Width),
		HeightLg:    log2(mip[0].Height),
		WrapS:       prev.WrapS,
		WrapT:       prev.WrapT,
		MagFilter:   prev.MagFilter,
		MinFilter:   prev.MinFilter,
		PixelFormat: mip[0].Format.PixelFormat(),
	}
	m.needsUpload = true

	size := mip.Size()
	pages := size / m.pageSize
	if size%m.pageSize != 0 {
		pages++
	}
	if err := m.allocPages(slot, pages); err != nil {
		m.freePages(slot)
		return err
	}
	return nil
}

func log2(v int) uint8 {
	if v <= 1 {
		return 0
	}
	return uint8(bits.Len(uint(v)) - 1)
}

func (m *TextureManager) tmuConfig(id uint16) (*registers.TmuTexture, error) {
	s, err := m.slot(id)
	if err != nil {
		return nil, err
	}
	return &m.slots[s].tmu, nil
}

// SetWrapModeS sets the horizontal wrap mode of id.
func (m *TextureManager) SetWrapModeS(id uint16, mode registers.WrapMode) error {
	t, err := m.tmuConfig(id)
	if err != nil {
		return err
	}
	t.WrapS = mode
	return nil
}

// SetWrapModeT sets the vertical wrap mode of id.
func (m *TextureManager) SetWrapModeT(id uint16, mode registers.WrapMode) error {
	t, err := m.tmuConfig(id)
	if err != nil {
		return err
	}
	t.WrapT = mode
	return nil
}

// EnableMagFilter toggles bilinear magnification of id.
func (m *TextureManager) EnableMagFilter(id uint16, enable bool) error {
	t, err := m.tmuConfig(id)
	if err != nil {
		return err
	}
	t.MagFilter = enable
	return nil
}

// EnableMinFilter toggles mipmapped minification of id.
func (m *TextureManager) EnableMinFilter(id uint16, enable bool) error {
	t, err := m.tmuConfig(id)
	if err != nil {
		return err
	}
	t.MinFilter = enable
	return nil
}

// TextureValid reports whether id names a live texture.
func (m *TextureManager) TextureValid(id uint16) bool {
	s, err := m.slot(id)
	if err != nil {
		return false
	}
	return id != 0 && m.entries[s].inUse
}

// TmuConfig returns the TMU register of id. The TMU field is left zero.
func (m *TextureManager) TmuConfig(id uint16) (registers.TmuTexture, error) {
	t, err := m.tmuConfig(id)
	if err != nil {
		return registers.TmuTexture{}, err
	}
	return *t, nil
}

// Pages returns the page table of id.
func (m *TextureManager) Pages(id uint16) []int {
	if !m.TextureValid(id) {
		return nil
	}
	return m.slots[m.lut[id]].pages
}

// Texture returns the texels of id.
func (m *TextureManager) Texture(id uint16) (Mipmap, error) {
	s, err := m.slot(id)
	if err != nil {
		return Mipmap{}, err
	}
	if !m.entries[s].inUse {
		return Mipmap{}, nil
	}
	return m.slots[s].mip, nil
}

// DeleteTexture releases id. Its slot and pages are freed on the next
// upload, after the device stopped using them.
func (m *TextureManager) DeleteTexture(id uint16) error {
	s, err := m.slot(id)
	if err != nil {
		return err
	}
	m.lut[id] = 0
	m.entries[s].requiresDelete = true
	m.needsUpload = true
	return nil
}

// UploadTextures calls upload for every page of every texture changed
// since the last call, then frees deleted slots. A slot whose upload
// failed is retried on the next call.
func (m *TextureManager) UploadTextures(upload func(page int, data []byte) error) error {
	if !m.needsUpload {
		return nil
	}
	var errs []error
	for i := range m.slots {
		slot := &m.slots[i]
		entry := &m.entries[i]
		if entry.requiresUpload && !entry.requiresDelete {
			data := slot.mip.Bytes()
			var failed bool
			for j, page := range slot.pages {
				start := j * m.pageSize
				end := min(start+m.pageSize, len(data))
				if start >= end {
					break
				}
				if err := upload(page, data[start:end]); err != nil {
					errs = append(errs, fmt.Errorf("upload texture slot %d page %d: %w", i, page, err))
					failed = true
					break
				}
			}
			entry.requiresUpload = failed
		}
		if entry.requiresDelete {
			entry.requiresDelete = false
			entry.requiresUpload = false
			entry.inUse = false
			slot.mip = Mipmap{}
			m.freePages(slot)
		}
	}
	m.needsUpload = len(errs) > 0
	return errors.Join(errs...)
}

func (m *TextureManager) allocSlot() (int, error) {
	for i := 1; i < len(m.entries); i++ {
		if !m.entries[i].inUse {
			m.entries[i].inUse = true
			logging.Logger().Debug("allocating texture slot", "slot", i)
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no free texture slot", ErrOutOfMemory)
}

func (m *TextureManager) allocPages(slot *textureSlot, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty texture", ErrInvalidTexture)
	}
	if n > m.maxPages {
		return fmt.Errorf("%w: texture needs %d pages, limit %d", ErrOutOfMemory, n, m.maxPages)
	}
	for p := range m.pageInUse {
		if len(slot.pages) == n {
			break
		}
		if !m.pageInUse[p] {
			m.pageInUse[p] = true
			slot.pages = append(slot.pages, p)
		}
	}
	if len(slot.pages) != n {
		return fmt.Errorf("%w: %d pages requested", ErrOutOfMemory, n)
	}
	return nil
}

func (m *TextureManager) freePages(slot *textureSlot) {
	for _, p := range slot.pages {
		m.pageInUse[p] = false
	}
	slot.pages = nil
}
