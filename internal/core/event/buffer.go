package event

// Buffer is a double buffer of pending items. Items pushed during tick N are
// drained by Swap at the start of tick N+1; items pushed while the drained
// batch is being processed land in the next batch.
type Buffer[T any] struct {
	front []T
	back  []T
}

func NewBuffer[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{
		front: make([]T, 0, capacity),
		back:  make([]T, 0, capacity),
	}
}

// Push queues an item into the back buffer.
func (b *Buffer[T]) Push(v T) {
	b.back = append(b.back, v)
}

// Swap rotates back->front and returns the new front. The returned slice is
// valid until the next Swap.
func (b *Buffer[T]) Swap() []T {
	clear(b.front)
	b.front, b.back = b.back, b.front[:0]
	return b.front
}

// Len returns the number of items waiting in the back buffer.
func (b *Buffer[T]) Len() int { return len(b.back) }

// Reset drops everything pending.
func (b *Buffer[T]) Reset() {
	clear(b.back)
	b.back = b.back[:0]
}
