package queue

import (
	"sync"
	"testing"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID   int
	Name string
}

func ids(items []testItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(t *testing.T, got []testItem, want ...int) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, g)
		}
	}
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_PushPop(t *testing.T) {
	q := New[testItem]()

	if _, ok := q.Pop(); ok {
		t.Error("expected Pop on empty queue to report false")
	}

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	item, ok := q.Pop()
	if !ok || item.ID != 1 || item.Name != "first" {
		t.Errorf("expected first item, got %+v (ok=%v)", item, ok)
	}
	if q.Len() != 2 {
		t.Errorf("expected length 2, got %d", q.Len())
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2})

	equalIDs(t, q.GetAndEmpty(), 1, 2)
	if !q.Empty() {
		t.Error("expected queue to be empty after GetAndEmpty")
	}
	if got := q.GetAndEmpty(); len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
}

func TestQueue_Requeue(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2})
	batch := q.GetAndEmpty()

	q.Push(testItem{ID: 3})
	q.Requeue(batch...)

	equalIDs(t, q.GetAndEmpty(), 1, 2, 3)

	q.Requeue()
	if !q.Empty() {
		t.Error("expected empty requeue to be a no-op")
	}
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[testItem](3)
	for i := 1; i <= 5; i++ {
		q.Push(testItem{ID: i})
	}

	if q.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", q.Dropped())
	}
	equalIDs(t, q.GetAndEmpty(), 3, 4, 5)
}

func TestQueue_BoundedRequeueKeepsNewest(t *testing.T) {
	q := NewBounded[testItem](2)
	q.Push(testItem{ID: 1}, testItem{ID: 2})
	batch := q.GetAndEmpty()
	q.Push(testItem{ID: 3})

	q.Requeue(batch...)
	equalIDs(t, q.GetAndEmpty(), 2, 3)
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[testItem]()
	var wg sync.WaitGroup

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(testItem{ID: base*100 + i})
			}
		}(g)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("expected 1000 items, got %d", q.Len())
	}
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := New[testItem]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			q.Push(testItem{ID: i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			n := len(q.GetAndEmpty())
			mu.Lock()
			total += n
			mu.Unlock()
		}
	}()
	wg.Wait()

	total += len(q.GetAndEmpty())
	if total != 500 {
		t.Errorf("expected 500 items drained, got %d", total)
	}
}
