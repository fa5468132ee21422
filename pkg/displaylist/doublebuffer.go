package displaylist

// DoubleBuffer holds the list being filled (back) and the list being drained
// (front). Swap is the only hand-off between them.
type DoubleBuffer[T any] struct {
	lists    [2]T
	selected int
}

// NewDoubleBuffer returns a double buffer with a as the initial back list.
func NewDoubleBuffer[T any](a, b T) *DoubleBuffer[T] {
	return &DoubleBuffer[T]{lists: [2]T{a, b}}
}

// Swap exchanges front and back.
func (d *DoubleBuffer[T]) Swap() { d.selected = 1 - d.selected }

// Back returns the list being filled.
func (d *DoubleBuffer[T]) Back() T { return d.lists[d.selected] }

// Front returns the list being drained.
func (d *DoubleBuffer[T]) Front() T { return d.lists[1-d.selected] }

// BackIndex returns 0 or 1 for the back list.
func (d *DoubleBuffer[T]) BackIndex() int { return d.selected }

// FrontIndex returns 0 or 1 for the front list.
func (d *DoubleBuffer[T]) FrontIndex() int { return 1 - d.selected }
