package queue

// Queue is a FIFO work list used for breadth-first exploration. It is not
// safe for concurrent use.
type Queue[T any] struct {
	items []T
	head  int
}

func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	// compact once the consumed prefix dominates
	if q.head > 32 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

func (q *Queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

func New[T any](maybeSize ...int) *Queue[T] {
	size := 0
	if len(maybeSize) > 0 {
		size = maybeSize[0]
	}
	return &Queue[T]{items: make([]T, 0, size)}
}
