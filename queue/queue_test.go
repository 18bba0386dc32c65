package queue_test

import (
	"testing"

	"github.com/stateforward/go-contract/queue"
)

func TestQueue(t *testing.T) {
	t.Run("FIFO", func(t *testing.T) {
		q := queue.New[string](4)
		q.Push("a", "b")
		q.Push("c")
		if q.Len() != 3 {
			t.Fatalf("Expected length 3, got %d", q.Len())
		}
		for _, want := range []string{"a", "b", "c"} {
			got, ok := q.Pop()
			if !ok || got != want {
				t.Fatalf("Expected %q, got %q (ok=%v)", want, got, ok)
			}
		}
		if _, ok := q.Pop(); ok {
			t.Error("Expected empty queue")
		}
	})

	t.Run("Compaction", func(t *testing.T) {
		q := queue.New[int]()
		for i := 0; i < 200; i++ {
			q.Push(i)
		}
		for i := 0; i < 150; i++ {
			if got, _ := q.Pop(); got != i {
				t.Fatalf("Expected %d, got %d", i, got)
			}
		}
		q.Push(200)
		if q.Len() != 51 {
			t.Fatalf("Expected length 51, got %d", q.Len())
		}
		for i := 150; i <= 200; i++ {
			if got, _ := q.Pop(); got != i {
				t.Fatalf("Expected %d, got %d", i, got)
			}
		}
	})
}
