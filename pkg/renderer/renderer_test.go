package renderer

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/taigrr/rasterix/pkg/bus"
	"github.com/taigrr/rasterix/pkg/commands"
	"github.com/taigrr/rasterix/pkg/config"
	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
	"github.com/taigrr/rasterix/pkg/threadrunner"
)

// testConfig returns a 64x32 device. With lg 11 a frame fits one display
// line; with lg 10 it splits into two lines of 16 rows.
func testConfig(lg uint) config.RenderConfig {
	cfg := config.Default()
	cfg.MaxDisplayWidth = 64
	cfg.MaxDisplayHeight = 32
	cfg.FramebufferSizeInPixelLg = lg
	cfg.NumberOfTexturePages = 64
	cfg.NumberOfTextures = 16
	cfg.TexturePageSize = 512
	cfg.MaxTextureSize = 16
	cfg.DisplayListSize = 16 * 1024
	return cfg
}

func newTestRenderer(t *testing.T, cfg config.RenderConfig) (*Renderer, *bus.Memory) {
	t.Helper()
	mem := bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, nil)
	r, err := New(cfg, mem, nil)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return r, mem
}

func finishFrame(t *testing.T, r *Renderer) {
	t.Helper()
	if err := r.SwapDisplayList(); err != nil {
		t.Fatalf("SwapDisplayList() = %v", err)
	}
	if err := r.UploadDisplayList(); err != nil {
		t.Fatalf("UploadDisplayList() = %v", err)
	}
}

func decodeUpload(t *testing.T, up bus.Upload) []commands.Entry {
	t.Helper()
	entries, err := commands.Decoder{TMUs: 2}.Decode(up.Data)
	if err != nil {
		t.Fatalf("decode upload %d: %v", up.Index, err)
	}
	return entries
}

func streamCommands(entries []commands.Entry) []commands.Decoded {
	var cmds []commands.Decoded
	for _, e := range entries {
		cmds = append(cmds, e.Commands...)
	}
	return cmds
}

func regWrites(cmds []commands.Decoded, addr uint32) []uint32 {
	var vals []uint32
	for _, c := range cmds {
		if c.Op() == commands.OpWriteRegister && c.Header&commands.ImmMask == addr {
			vals = append(vals, c.Payload[0])
		}
	}
	return vals
}

func countFramebufferOps(cmds []commands.Decoded, flag uint32) int {
	n := 0
	for _, c := range cmds {
		if c.Op() == commands.OpFramebuffer && c.Header&flag != 0 {
			n++
		}
	}
	return n
}

func triangles(t *testing.T, cmds []commands.Decoded) []commands.TriangleDesc {
	t.Helper()
	var out []commands.TriangleDesc
	for _, c := range cmds {
		if c.Op() != commands.OpTriangleStream {
			continue
		}
		d, err := commands.DecodeTriangle(c.Payload, 2, false)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, d)
	}
	return out
}

func uploadIndices(ups []bus.Upload) []int {
	idx := make([]int, len(ups))
	for i, u := range ups {
		idx[i] = u.Index
	}
	return idx
}

func TestNewRejectsSmallBus(t *testing.T) {
	cfg := testConfig(11)
	mem := bus.NewMemory(1, cfg.DisplayListSize, nil)
	if _, err := New(cfg, mem, nil); !errors.Is(err, ErrBus) {
		t.Errorf("New() = %v, want ErrBus", err)
	}
}

func TestRendererDoubleBufferedFrames(t *testing.T) {
	cfg := testConfig(11)
	r, mem := newTestRenderer(t, cfg)
	finishFrame(t, r)
	finishFrame(t, r)

	ups := mem.Uploads()
	if got := uploadIndices(ups); !slices.Equal(got, []int{0, 1}) {
		t.Fatalf("upload buffers = %v, want [0 1]", got)
	}
	first := streamCommands(decodeUpload(t, ups[0]))
	second := streamCommands(decodeUpload(t, ups[1]))

	if got := regWrites(first, registers.AddrColorBufferAddr); !slices.Equal(got, []uint32{cfg.ColorBufferLoc1}) {
		t.Errorf("frame 1 color buffer = %#x, want %#x", got, cfg.ColorBufferLoc1)
	}
	if got := regWrites(second, registers.AddrColorBufferAddr); !slices.Equal(got, []uint32{cfg.ColorBufferLoc2}) {
		t.Errorf("frame 2 color buffer = %#x, want %#x", got, cfg.ColorBufferLoc2)
	}
	if got := regWrites(first, registers.AddrYOffset); !slices.Equal(got, []uint32{0}) {
		t.Errorf("frame 1 y offset = %v, want [0]", got)
	}
	for i, cmds := range [][]commands.Decoded{first, second} {
		if n := countFramebufferOps(cmds, commands.FramebufferSwap); n != 1 {
			t.Errorf("frame %d has %d swap commands, want 1", i+1, n)
		}
	}
	if got := r.Stats().DisplayLists; got != 2 {
		t.Errorf("Stats().DisplayLists = %d, want 2", got)
	}
}

func TestRendererTextureUploadedOnce(t *testing.T) {
	cfg := testConfig(11)
	r, mem := newTestRenderer(t, cfg)

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	id, err := r.CreateTexture()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateTexture(id, BuildMipmap(img, FormatRGBA, false)); err != nil {
		t.Fatal(err)
	}
	if err := r.UseTexture(0, id); err != nil {
		t.Fatal(err)
	}
	if err := r.SetFeatureEnableConfig(registers.FeatureEnable{TMU: [2]bool{true, false}}); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		for _, tri := range []*TransformedTriangle{
			screenTriangle(0, 0, 20, 0, 0, 20),
			screenTriangle(20, 0, 20, 20, 0, 20),
		} {
			if err := r.DrawTriangle(tri); err != nil {
				t.Fatal(err)
			}
		}
		finishFrame(t, r)
	}

	stats := r.Stats()
	if stats.TexturePages != 1 || stats.Triangles != 4 {
		t.Errorf("Stats() = %+v, want 1 texture page and 4 triangles", stats)
	}
	var stores []commands.Transfer
	for _, up := range mem.Uploads() {
		if up.Index != cfg.BusBufferCount()-1 {
			continue
		}
		for _, e := range decodeUpload(t, up) {
			stores = append(stores, e.Transfer)
		}
	}
	if len(stores) != 1 {
		t.Fatalf("texture stores = %d, want 1", len(stores))
	}
	if s := stores[0]; s.Op != commands.DSEOpStore || s.Addr != 0 || s.Len != 512 {
		t.Errorf("store = op %#x addr %#x len %d, want store at 0 of 512 bytes", s.Op, s.Addr, s.Len)
	}
	if got := stores[0].Payload[:2]; got[0] != 0x0F || got[1] != 0xF0 {
		t.Errorf("texel bytes = %x, want 0ff0", got)
	}
}

func TestRendererSplitsLines(t *testing.T) {
	r, mem := newTestRenderer(t, testConfig(10))
	if r.dispatch.Lines() != 2 || r.dispatch.YLineResolution() != 16 {
		t.Fatalf("lines = %d of %d rows, want 2 of 16", r.dispatch.Lines(), r.dispatch.YLineResolution())
	}
	if err := r.DrawTriangle(screenTriangle(4, 4, 40, 4, 4, 28)); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawTriangle(screenTriangle(2, 2, 10, 2, 2, 6)); err != nil {
		t.Fatal(err)
	}
	finishFrame(t, r)

	ups := mem.Uploads()
	if got := uploadIndices(ups); !slices.Equal(got, []int{1, 0}) {
		t.Fatalf("upload buffers = %v, want [1 0]", got)
	}
	bottom := streamCommands(decodeUpload(t, ups[0]))
	top := streamCommands(decodeUpload(t, ups[1]))

	bottomTris, topTris := triangles(t, bottom), triangles(t, top)
	if len(bottomTris) != 1 || len(topTris) != 2 {
		t.Fatalf("triangles per line = %d/%d, want 2/1", len(topTris), len(bottomTris))
	}
	big, moved := topTris[0], bottomTris[0]
	for i := range big.WInit {
		want := big.WInit[i] + big.WYInc[i]*12
		if moved.WInit[i] != want {
			t.Errorf("line 1 WInit[%d] = %d, want %d", i, moved.WInit[i], want)
		}
	}
	if got := regWrites(bottom, registers.AddrYOffset); len(got) != 1 {
		t.Fatalf("line 1 y offsets = %v", got)
	} else if _, y := registers.DeserializeXY(got[0]); y != 16 {
		t.Errorf("line 1 y offset = %d, want 16", y)
	}
}

func TestRendererPushVertices(t *testing.T) {
	cfg := testConfig(10)
	cfg.PushVertices = true
	r, mem := newTestRenderer(t, cfg)
	for _, tri := range []*TransformedTriangle{
		screenTriangle(4, 4, 40, 4, 4, 28),
		screenTriangle(2, 2, 10, 2, 2, 6),
		screenTriangle(5, 5, 5, 5, 5, 5),
	} {
		if err := r.DrawTriangle(tri); err != nil {
			t.Fatal(err)
		}
	}
	finishFrame(t, r)

	ups := mem.Uploads()
	if got := uploadIndices(ups); !slices.Equal(got, []int{1, 0}) {
		t.Fatalf("upload buffers = %v, want [1 0]", got)
	}
	pushed := func(cmds []commands.Decoded) []commands.Decoded {
		var out []commands.Decoded
		for _, c := range cmds {
			if c.Op() == commands.OpPushVertex {
				out = append(out, c)
			}
		}
		return out
	}
	bottom := streamCommands(decodeUpload(t, ups[0]))
	top := streamCommands(decodeUpload(t, ups[1]))
	if len(triangles(t, top))+len(triangles(t, bottom)) != 0 {
		t.Error("triangle descriptors sent with vertex pushing enabled")
	}
	topVerts, bottomVerts := pushed(top), pushed(bottom)
	if len(topVerts) != 6 || len(bottomVerts) != 3 {
		t.Fatalf("vertices per line = %d/%d, want 6/3", len(topVerts), len(bottomVerts))
	}

	want := commands.PushVertex{
		Position: math3d.V4(4, 4, 0.5, 1),
		Color:    math3d.V4(1, 1, 1, 1),
		Tex:      []math3d.Vec4{math3d.V4(0, 0, 0, 1), math3d.V4(0, 0, 0, 1)},
	}
	for name, got := range map[string]commands.Decoded{"top": topVerts[0], "bottom": bottomVerts[0]} {
		if got.Header != want.Header() {
			t.Errorf("%s header = %#x, want %#x", name, got.Header, want.Header())
		}
		if !slices.Equal(got.Payload, want.Payload()) {
			t.Errorf("%s payload = %x, want %x", name, got.Payload, want.Payload())
		}
	}
	if got := r.Stats().Triangles; got != 2 {
		t.Errorf("Stats().Triangles = %d, want 2", got)
	}
}

func TestRendererScissorClear(t *testing.T) {
	r, mem := newTestRenderer(t, testConfig(10))
	if err := r.SetFeatureEnableConfig(registers.FeatureEnable{Scissor: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetScissorBox(0, 0, 64, 8); err != nil {
		t.Fatal(err)
	}
	if err := r.Clear(true, true, false); err != nil {
		t.Fatal(err)
	}
	finishFrame(t, r)

	for _, up := range mem.Uploads() {
		want := 0
		if up.Index == 0 {
			want = 1
		}
		if n := countFramebufferOps(streamCommands(decodeUpload(t, up)), commands.FramebufferMemset); n != want {
			t.Errorf("buffer %d has %d memsets, want %d", up.Index, n, want)
		}
	}
}

func TestRendererCommitToMemory(t *testing.T) {
	cfg := testConfig(11)
	cfg.FramebufferType = config.InternalToMemory
	r, mem := newTestRenderer(t, cfg)
	finishFrame(t, r)

	entries := decodeUpload(t, mem.Uploads()[0])
	var commit *commands.Transfer
	for i := range entries {
		if entries[i].Transfer.Op == commands.DSEOpCommitToMemory {
			commit = &entries[i].Transfer
		}
	}
	if commit == nil {
		t.Fatal("no commit to memory transfer")
	}
	if commit.Addr != cfg.ColorBufferLoc2 || commit.Len != 64*32*2 {
		t.Errorf("commit = addr %#x len %d, want %#x len %d", commit.Addr, commit.Len, cfg.ColorBufferLoc2, 64*32*2)
	}
	if n := countFramebufferOps(streamCommands(entries), commands.FramebufferCommit); n != 1 {
		t.Errorf("framebuffer commits = %d, want 1", n)
	}
}

func TestRendererIntermediateUpload(t *testing.T) {
	cfg := testConfig(11)
	cfg.DisplayListSize = 1024
	r, mem := newTestRenderer(t, cfg)
	for range 20 {
		if err := r.DrawTriangle(screenTriangle(0, 0, 20, 0, 0, 20)); err != nil {
			t.Fatalf("DrawTriangle() = %v", err)
		}
	}
	stats := r.Stats()
	if stats.IntermediateUp == 0 {
		t.Fatal("full display list was not flushed")
	}
	ups := mem.Uploads()
	if len(ups) != stats.IntermediateUp {
		t.Errorf("uploads = %d, want %d", len(ups), stats.IntermediateUp)
	}
	total := 0
	for _, up := range ups {
		total += len(triangles(t, streamCommands(decodeUpload(t, up))))
	}
	finishFrame(t, r)
	last := mem.Uploads()[len(mem.Uploads())-1]
	total += len(triangles(t, streamCommands(decodeUpload(t, last))))
	if total != 20 {
		t.Errorf("triangles uploaded = %d, want 20", total)
	}
}

func TestRendererUploadError(t *testing.T) {
	r, mem := newTestRenderer(t, testConfig(11))
	boom := errors.New("boom")
	mem.FailWith(boom)
	if err := r.SwapDisplayList(); err != nil {
		t.Fatal(err)
	}
	if err := r.UploadDisplayList(); !errors.Is(err, boom) {
		t.Errorf("UploadDisplayList() = %v, want boom", err)
	}
}

func TestRendererTextureConfigFollowsBinding(t *testing.T) {
	r, mem := newTestRenderer(t, testConfig(11))
	id, _ := r.CreateTexture()
	if err := r.UpdateTexture(id, solidMip(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := r.SetTextureWrapModeS(id, registers.WrapClampToEdge); err != nil {
		t.Fatal(err)
	}
	if err := r.UseTexture(1, id); err != nil {
		t.Fatal(err)
	}
	if err := r.SetTextureWrapModeT(id, registers.WrapClampToEdge); err != nil {
		t.Fatal(err)
	}
	finishFrame(t, r)

	var cmds []commands.Decoded
	for _, up := range mem.Uploads() {
		if up.Index != 0 {
			continue
		}
		cmds = streamCommands(decodeUpload(t, up))
	}
	if got := regWrites(cmds, registers.AddrTmuTexture); len(got) != 0 {
		t.Errorf("tmu 0 config writes = %d, want 0", len(got))
	}
	tmu1 := regWrites(cmds, registers.AddrTmuTexture+registers.TMUOffset)
	if len(tmu1) != 2 {
		t.Fatalf("tmu 1 config writes = %d, want 2", len(tmu1))
	}
	reg := registers.DeserializeTmuTexture(1, tmu1[1])
	if reg.WrapS != registers.WrapClampToEdge || reg.WrapT != registers.WrapClampToEdge || reg.WidthLg != 1 {
		t.Errorf("tmu 1 config = %+v", reg)
	}
}

func TestRendererTextureIDs(t *testing.T) {
	r, _ := newTestRenderer(t, testConfig(11))
	if err := r.UseTexture(0, 9); !errors.Is(err, ErrInvalidTexture) {
		t.Errorf("UseTexture(0, 9) = %v, want ErrInvalidTexture", err)
	}
	if err := r.UseTexture(5, 0); !errors.Is(err, ErrInvalidTexture) {
		t.Errorf("UseTexture(5, 0) = %v, want ErrInvalidTexture", err)
	}
	id, _ := r.CreateTexture()
	if err := r.UpdateTexture(id, solidMip(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := r.UseTexture(0, id); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteTexture(id); err != nil {
		t.Fatal(err)
	}
	if got := r.BoundTexture(0); got != 0 {
		t.Errorf("BoundTexture(0) after delete = %d, want 0", got)
	}
	if r.TextureValid(id) {
		t.Error("deleted texture still valid")
	}
}

// busyBus reports a busy transport for the first busy polls.
type busyBus struct {
	*bus.Memory
	busy  int
	polls int
}

func (b *busyBus) ClearToSend() bool {
	b.polls++
	if b.busy > 0 {
		b.busy--
		return false
	}
	return true
}

func TestRendererWaitsForClearToSend(t *testing.T) {
	cfg := testConfig(11)
	conn := &busyBus{Memory: bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, nil), busy: 5}
	r, err := New(cfg, conn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.DrawTriangle(screenTriangle(0, 0, 20, 0, 0, 20)); err != nil {
		t.Fatal(err)
	}
	finishFrame(t, r)

	if got := uploadIndices(conn.Uploads()); !slices.Equal(got, []int{0}) {
		t.Errorf("upload buffers = %v, want [0]", got)
	}
	if conn.busy != 0 || conn.polls < 6 {
		t.Errorf("polled %d times with %d busy left, want at least 6 and 0", conn.polls, conn.busy)
	}
}

func TestRendererBackgroundUpload(t *testing.T) {
	cfg := testConfig(11)
	mem := bus.NewMemory(cfg.BusBufferCount(), cfg.DisplayListSize, nil)
	r, err := New(cfg, mem, threadrunner.NewMulti())
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := r.DrawTriangle(screenTriangle(0, 0, 20, 0, 0, 20)); err != nil {
			t.Fatal(err)
		}
		finishFrame(t, r)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if got := uploadIndices(mem.Uploads()); !slices.Equal(got, []int{0, 1, 0}) {
		t.Errorf("upload buffers = %v, want [0 1 0]", got)
	}
}
