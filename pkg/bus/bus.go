// Package bus defines the boundary between the renderer and the transport
// that moves display lists to the device.
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Connector moves display lists to the device. The renderer fills the
// buffer returned by RequestBuffer and hands it over with WriteData.
type Connector interface {
	// WriteData sends the first size bytes of buffer index.
	WriteData(index, size int) error
	// ClearToSend reports whether the transport can accept data.
	ClearToSend() bool
	// RequestBuffer returns the memory backing buffer index.
	RequestBuffer(index int) []byte
	// BufferCount returns the number of buffers.
	BufferCount() int
}

// Sink consumes uploaded display lists.
type Sink interface {
	Execute(data []byte) error
}

// ErrBufferIndex is returned for out of range buffer indices.
var ErrBufferIndex = errors.New("buffer index out of range")

// Upload is one recorded WriteData call.
type Upload struct {
	Index int
	Data  []byte
}

// Memory is an in-process connector. It records every upload and forwards
// it to an optional sink.
type Memory struct {
	mu      sync.Mutex
	buffers [][]byte
	uploads []Upload
	sink    Sink
	fail    error
}

// NewMemory allocates count buffers of size bytes.
func NewMemory(count, size int, sink Sink) *Memory {
	m := &Memory{sink: sink}
	for range count {
		m.buffers = append(m.buffers, make([]byte, size))
	}
	return m
}

// FailWith makes every following WriteData return err. nil clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) WriteData(index, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if index < 0 || index >= len(m.buffers) {
		return fmt.Errorf("%w: %d", ErrBufferIndex, index)
	}
	if size > len(m.buffers[index]) {
		return fmt.Errorf("write %d bytes from buffer %d of %d", size, index, len(m.buffers[index]))
	}
	data := append([]byte(nil), m.buffers[index][:size]...)
	m.uploads = append(m.uploads, Upload{Index: index, Data: data})
	if m.sink != nil {
		if err := m.sink.Execute(data); err != nil {
			return fmt.Errorf("execute buffer %d: %w", index, err)
		}
	}
	return nil
}

func (m *Memory) ClearToSend() bool { return true }

func (m *Memory) RequestBuffer(index int) []byte {
	if index < 0 || index >= len(m.buffers) {
		return nil
	}
	return m.buffers[index]
}

func (m *Memory) BufferCount() int { return len(m.buffers) }

// Uploads returns the recorded uploads.
func (m *Memory) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.uploads...)
}

// Reset drops the recorded uploads.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = nil
}

// Stream writes each upload to an io.Writer as a little-endian length
// followed by the list bytes.
type Stream struct {
	mu      sync.Mutex
	w       io.Writer
	buffers [][]byte
}

// NewStream allocates count buffers of size bytes writing to w.
func NewStream(w io.Writer, count, size int) *Stream {
	s := &Stream{w: w}
	for range count {
		s.buffers = append(s.buffers, make([]byte, size))
	}
	return s
}

func (s *Stream) WriteData(index, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.buffers) {
		return fmt.Errorf("%w: %d", ErrBufferIndex, index)
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(size))
	if _, err := s.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := s.w.Write(s.buffers[index][:size]); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *Stream) ClearToSend() bool { return true }

func (s *Stream) RequestBuffer(index int) []byte {
	if index < 0 || index >= len(s.buffers) {
		return nil
	}
	return s.buffers[index]
}

func (s *Stream) BufferCount() int { return len(s.buffers) }

// ReadFrame reads one upload written by Stream.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.LittleEndian.Uint32(hdr[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return data, nil
}
