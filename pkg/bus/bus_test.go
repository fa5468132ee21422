package bus

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type recordingSink struct {
	got [][]byte
}

func (r *recordingSink) Execute(data []byte) error {
	r.got = append(r.got, data)
	return nil
}

func TestMemoryRecordsAndForwards(t *testing.T) {
	sink := &recordingSink{}
	m := NewMemory(3, 16, sink)
	copy(m.RequestBuffer(1), []byte{1, 2, 3, 4})
	if err := m.WriteData(1, 4); err != nil {
		t.Fatal(err)
	}
	ups := m.Uploads()
	if len(ups) != 1 || ups[0].Index != 1 || !bytes.Equal(ups[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("uploads = %+v", ups)
	}
	if len(sink.got) != 1 {
		t.Errorf("sink calls = %d", len(sink.got))
	}
	// later writes into the buffer do not alter the recording
	m.RequestBuffer(1)[0] = 9
	if m.Uploads()[0].Data[0] != 1 {
		t.Error("recorded upload aliases the bus buffer")
	}
}

func TestMemoryErrors(t *testing.T) {
	m := NewMemory(1, 8, nil)
	if err := m.WriteData(2, 1); !errors.Is(err, ErrBufferIndex) {
		t.Errorf("WriteData(2) = %v, want ErrBufferIndex", err)
	}
	boom := errors.New("link down")
	m.FailWith(boom)
	if err := m.WriteData(0, 1); !errors.Is(err, boom) {
		t.Errorf("WriteData = %v, want %v", err, boom)
	}
	if m.RequestBuffer(5) != nil {
		t.Error("RequestBuffer out of range should be nil")
	}
}

func TestStreamFraming(t *testing.T) {
	var out bytes.Buffer
	s := NewStream(&out, 2, 8)
	copy(s.RequestBuffer(0), []byte{7, 7, 7})
	copy(s.RequestBuffer(1), []byte{5})
	if err := s.WriteData(0, 3); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteData(1, 1); err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(out.Bytes())
	first, err := ReadFrame(r)
	if err != nil || !bytes.Equal(first, []byte{7, 7, 7}) {
		t.Fatalf("first frame = %v, %v", first, err)
	}
	second, err := ReadFrame(r)
	if err != nil || !bytes.Equal(second, []byte{5}) {
		t.Fatalf("second frame = %v, %v", second, err)
	}
	if _, err := ReadFrame(r); !errors.Is(err, io.EOF) {
		t.Errorf("third frame err = %v, want EOF", err)
	}
}
