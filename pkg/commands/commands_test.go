package commands

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/taigrr/rasterix/pkg/math3d"
	"github.com/taigrr/rasterix/pkg/registers"
)

func sampleDesc(tmus int) TriangleDesc {
	d := TriangleDesc{
		BBStartX: 10, BBStartY: 20, BBEndX: 40, BBEndY: 60,
		WInit:      math3d.Vec3i{100, -200, 300},
		WXInc:      math3d.Vec3i{-5, 6, -1},
		WYInc:      math3d.Vec3i{7, -8, 1},
		Color:      math3d.V4(0.25, 0.5, 0.75, 1),
		ColorXInc:  math3d.V4(0.001, -0.002, 0.003, 0),
		ColorYInc:  math3d.V4(-0.004, 0.005, 0, 0.0001),
		DepthW:     0.5,
		DepthWXInc: 0.0001,
		DepthWYInc: -0.0002,
		DepthZ:     0.75,
		DepthZXInc: 0.00003,
		DepthZYInc: 0.00004,
	}
	for i := range tmus {
		d.Texture = append(d.Texture, TextureParams{
			Stq:     math3d.V3(0.5+float64(i), 1.5, 1),
			StqXInc: math3d.V3(0.01, 0, 0),
			StqYInc: math3d.V3(0, 0.02, 0),
		})
	}
	return d
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTriangleRoundTrip(t *testing.T) {
	for _, float := range []bool{false, true} {
		name := "fixed"
		if float {
			name = "float"
		}
		t.Run(name, func(t *testing.T) {
			d := sampleDesc(2)
			cmd := TriangleStream{Desc: d, Float: float}
			payload := cmd.Payload()
			if got, want := int(cmd.Header()&ImmMask), 4*len(payload); got != want {
				t.Fatalf("header size = %d, want %d", got, want)
			}
			back, err := DecodeTriangle(payload, 2, float)
			if err != nil {
				t.Fatal(err)
			}
			if back.BBStartX != d.BBStartX || back.BBEndY != d.BBEndY || back.WInit != d.WInit || back.WYInc != d.WYInc {
				t.Errorf("integer fields changed: %+v", back)
			}
			const tol = 1e-6
			if !near(back.Color.Y, d.Color.Y, tol) || !near(back.ColorXInc.Z, d.ColorXInc.Z, tol) {
				t.Errorf("color = %v, want %v", back.Color, d.Color)
			}
			if !near(back.DepthZ, d.DepthZ, tol) || !near(back.DepthWYInc, d.DepthWYInc, tol) {
				t.Errorf("depth = %v/%v", back.DepthZ, back.DepthWYInc)
			}
			if !near(back.Texture[1].Stq.X, 1.5, tol) || !near(back.Texture[0].StqYInc.Y, 0.02, tol) {
				t.Errorf("texture = %+v", back.Texture)
			}
		})
	}
}

func TestDecodeTriangleRejectsLength(t *testing.T) {
	_, err := DecodeTriangle(make([]uint32, 10), 1, false)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestTriangleIncrement(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		visible   bool
		wantDelta int
	}{
		{"first line keeps values", 0, 32, true, 0},
		{"line below start", 30, 62, true, 10},
		{"line starting inside box", 10, 42, true, 0},
		{"line after box", 64, 96, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDesc(1).Clone()
			orig := d.Clone()
			if got := d.Increment(tt.start, tt.end); got != tt.visible {
				t.Fatalf("Increment() = %v, want %v", got, tt.visible)
			}
			wantW := orig.WInit[0] + orig.WYInc[0]*int32(tt.wantDelta)
			if d.WInit[0] != wantW {
				t.Errorf("WInit[0] = %d, want %d", d.WInit[0], wantW)
			}
			wantT := orig.Texture[0].Stq.Y + orig.Texture[0].StqYInc.Y*float64(tt.wantDelta)
			if !near(d.Texture[0].Stq.Y, wantT, 1e-12) {
				t.Errorf("Stq.Y = %v, want %v", d.Texture[0].Stq.Y, wantT)
			}
			if orig.Texture[0].Stq.Y != sampleDesc(1).Texture[0].Stq.Y {
				t.Error("Clone shares texture storage")
			}
		})
	}
}

func TestFogLut(t *testing.T) {
	var table [33]float64
	for i := range table {
		table[i] = 1 - float64(i)/32
	}
	f := NewFogLut(table, 0, 100)
	p := f.Payload()
	if len(p) != FogLutSize {
		t.Fatalf("len = %d", len(p))
	}
	if got := math.Float32frombits(p[0]); got != 1 {
		t.Errorf("lower bound = %v, want 1", got)
	}
	if got := math.Float32frombits(p[1]); got != 100 {
		t.Errorf("upper bound = %v, want 100", got)
	}
	if got := int32(p[3]); got != 1<<30 {
		t.Errorf("b[0] = %d, want %d", got, 1<<30)
	}
	wantM := int32(-1.0 / 32 / 256 * (1 << 30))
	if got := int32(p[2]); got != wantM {
		t.Errorf("m[0] = %d, want %d", got, wantM)
	}
}

func TestHeaders(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want uint32
	}{
		{"nop", Nop{}, 0},
		{"write register", WriteRegister{registers.DefaultTmuTexture(1)}, 0x1000_000F},
		{"memset color+depth", NewFramebuffer(true, true, false).Memset(), 0x2000_0032},
		{"swap color", NewFramebuffer(true, false, false).Swap(), 0x2000_0014},
		{"commit all", NewFramebuffer(true, true, true).Commit(), 0x2000_0071},
		{"texture stream", NewTextureStream(1, []int{3, 4, 9}, 4096, 0x100), 0x5000_0000 | 3 | 1<<19},
		{"fog", FogLut{}, 0x4000_0000},
		{"triangle 2 tmus", TriangleStream{Desc: sampleDesc(2)}, 0x3000_0000 | 4*48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Header(); got != tt.want {
				t.Errorf("Header() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestTextureStreamAddresses(t *testing.T) {
	c := NewTextureStream(0, []int{0, 2}, 4096, 0x1000)
	if c.Pages[0] != 0x1000 || c.Pages[1] != 0x1000+2*4096 {
		t.Errorf("Pages = %#x", c.Pages)
	}
}

func TestWriteMemoryPads(t *testing.T) {
	tr := WriteMemory{Addr: 0x40, Data: make([]byte, 16)}.Transfer()
	if tr.Len != DeviceMinTransferSize || tr.Op != DSEOpStore {
		t.Errorf("transfer = %+v", tr)
	}
	if tr.Size() != DSEHeaderSize+DeviceMinTransferSize {
		t.Errorf("Size() = %d", tr.Size())
	}
}

func TestPushVertex(t *testing.T) {
	c := PushVertex{Position: math3d.V4(1, 2, 3, 1), Color: math3d.V4(1, 1, 1, 1), Tex: []math3d.Vec4{{}}}
	if got := len(c.Payload()); got != 12 {
		t.Errorf("payload = %d words, want 12", got)
	}
	if got := c.Header() & ImmMask; got != 48 {
		t.Errorf("size = %d, want 48", got)
	}
}

func appendDSE(buf []byte, op, length, addr uint32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, op|length)
	return binary.LittleEndian.AppendUint32(buf, addr)
}

func TestDecoder(t *testing.T) {
	var stream []byte
	stream = AppendCommand(stream, WriteRegister{registers.YOffset{Y: 32}})
	stream = AppendCommand(stream, Nop{})
	stream = AppendCommand(stream, TriangleStream{Desc: sampleDesc(1)})
	stream = AppendCommand(stream, NewTextureStream(0, []int{1}, 4096, 0))

	var list []byte
	list = appendDSE(list, DSEOpStream, uint32(len(stream)), 0)
	list = append(list, stream...)
	list = binary.LittleEndian.AppendUint32(list, 0)
	list = appendDSE(list, DSEOpStore, 4, 0x80)
	list = append(list, 1, 2, 3, 4)
	list = appendDSE(list, DSEOpStreamFromMemory, 1024, 0x200)

	entries, err := Decoder{TMUs: 1}.Decode(list)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	cmds := entries[0].Commands
	if len(cmds) != 4 {
		t.Fatalf("commands = %d, want 4", len(cmds))
	}
	wantOps := []uint32{OpWriteRegister, OpNop, OpTriangleStream, OpTextureStream}
	for i, c := range cmds {
		if c.Op() != wantOps[i] {
			t.Errorf("command %d op = %#x, want %#x", i, c.Op(), wantOps[i])
		}
	}
	if cmds[0].Payload[0] != 32<<16 {
		t.Errorf("register payload = %#x", cmds[0].Payload[0])
	}
	if len(cmds[2].Payload) != TriangleWords(1) {
		t.Errorf("triangle payload = %d words", len(cmds[2].Payload))
	}
	if e := entries[1].Transfer; e.Addr != 0x80 || len(e.Payload) != 4 {
		t.Errorf("store = %+v", e)
	}
	if e := entries[2].Transfer; e.Op != DSEOpStreamFromMemory || e.Len != 1024 {
		t.Errorf("stream from memory = %+v", e)
	}
}

func TestDecoderRejectsUnknownOpcode(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 0x8000_0000)
	if _, err := (Decoder{}).DecodeStream(data); !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}
