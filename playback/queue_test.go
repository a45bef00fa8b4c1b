package playback

import "testing"

func TestQueueOrdersByPlayAt(t *testing.T) {
	q := NewQueue()
	q.Insert(Event{PlayAt: 300, Kind: NoteOn})
	q.Insert(Event{PlayAt: 100, Kind: NoteOn})
	q.Insert(Event{PlayAt: 200, Kind: NoteOn})

	var got []int64
	for {
		e, ok := q.PopMin()
		if !ok {
			break
		}
		got = append(got, e.PlayAt)
	}

	want := []int64{100, 200, 300}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQueueTiebreaksOnInsertionOrder(t *testing.T) {
	q := NewQueue()
	q.Insert(Event{PlayAt: 100, Note: 1})
	q.Insert(Event{PlayAt: 100, Note: 2})
	q.Insert(Event{PlayAt: 100, Note: 3})

	first, _ := q.PopMin()
	second, _ := q.PopMin()
	third, _ := q.PopMin()

	if first.Note != 1 || second.Note != 2 || third.Note != 3 {
		t.Fatalf("expected FIFO order for equal PlayAt, got %d, %d, %d", first.Note, second.Note, third.Note)
	}
}

func TestQueuePeekMinDoesNotRemove(t *testing.T) {
	q := NewQueue()
	q.Insert(Event{PlayAt: 50})

	if _, ok := q.PeekMin(); !ok {
		t.Fatal("expected PeekMin to find the event")
	}
	if q.Len() != 1 {
		t.Fatalf("PeekMin should not remove, got len %d", q.Len())
	}
}

func TestQueueEmptyPeekAndPop(t *testing.T) {
	q := NewQueue()
	if _, ok := q.PeekMin(); ok {
		t.Fatal("expected PeekMin on empty queue to return false")
	}
	if _, ok := q.PopMin(); ok {
		t.Fatal("expected PopMin on empty queue to return false")
	}
}

func TestQueueDropsOldestPastCap(t *testing.T) {
	q := NewQueue()
	for i := 0; i < MaxQueueSize; i++ {
		q.Insert(Event{PlayAt: int64(i), Note: i})
	}
	// one more insert should push the queue past the cap and evict the
	// oldest-inserted event (PlayAt 0), not necessarily the heap root.
	q.Insert(Event{PlayAt: int64(MaxQueueSize), Note: MaxQueueSize})

	if q.Len() != MaxQueueSize {
		t.Fatalf("expected queue to stay capped at %d, got %d", MaxQueueSize, q.Len())
	}
}
