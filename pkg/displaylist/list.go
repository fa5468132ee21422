// Package displaylist assembles commands into the byte buffers handed to the
// bus.
package displaylist

// Alignment of every allocation in a list, in bytes.
const Alignment = 4

func align(size int) int {
	return (size + Alignment - 1) &^ (Alignment - 1)
}

// List is a bump allocator over a buffer owned by the bus.
type List struct {
	mem          []byte
	writePos     int
	sectionStart int
}

// SetBuffer points the list at buf and empties it.
func (l *List) SetBuffer(buf []byte) {
	l.mem = buf
	l.Clear()
}

// Alloc reserves size bytes, rounded up to the alignment. It returns nil
// when the list is full.
func (l *List) Alloc(size int) []byte {
	size = align(size)
	if l.writePos+size > len(l.mem) {
		return nil
	}
	b := l.mem[l.writePos : l.writePos+size]
	l.writePos += size
	return b
}

// Clear drops all content.
func (l *List) Clear() {
	l.writePos = 0
	l.sectionStart = 0
}

// Bytes returns the written part of the buffer.
func (l *List) Bytes() []byte { return l.mem[:l.writePos] }

// Size returns the number of bytes written.
func (l *List) Size() int { return l.writePos }

// FreeSpace returns the number of bytes left.
func (l *List) FreeSpace() int { return len(l.mem) - l.writePos }

// WritePos returns the current write offset.
func (l *List) WritePos() int { return l.writePos }

// InitArea zero-fills size bytes at start. Zero words decode as NOPs.
func (l *List) InitArea(start, size int) {
	clear(l.mem[start : start+size])
}

// SaveSectionStart marks the current write position.
func (l *List) SaveSectionStart() { l.sectionStart = l.writePos }

// RemoveSection turns everything written since SaveSectionStart into NOPs.
func (l *List) RemoveSection() {
	l.InitArea(l.sectionStart, l.writePos-l.sectionStart)
}
