package containers

import (
	"errors"
	"sync"
	"testing"
)

func TestRingQueueOrder(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if v, _ := q.Peek(); v != 1 {
		t.Fatalf("peek: expected 1, got %d", v)
	}
	if v, _ := q.Dequeue(); v != 1 {
		t.Fatalf("dequeue: expected 1, got %d", v)
	}
	// wrap around
	if err := q.Enqueue(4); err != nil {
		t.Fatal(err)
	}
	got := q.Drain()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("drain: expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain: expected %v, got %v", want, got)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueueConcurrentProducers(t *testing.T) {
	q := NewRingQueue[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				if err := q.Enqueue(p*100 + i); err != nil {
					t.Error(err)
				}
			}
		}(p)
	}
	wg.Wait()
	if q.Len() != 64 || !q.IsFull() {
		t.Fatalf("expected a full queue of 64, got %d", q.Len())
	}
}
