package pool

import (
	"testing"

	"pgregory.net/rapid"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int](2)
	for i := 1; i <= 3; i++ {
		q.Push(i)
	}

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	if head, ok := q.Peek(); !ok || head != 1 {
		t.Fatalf("Peek = (%d, %v), want (1, true)", head, ok)
	}
	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should report false")
	}
}

func TestQueue_ZeroValueUsable(t *testing.T) {
	var q Queue[string]
	if _, ok := q.Peek(); ok {
		t.Fatal("Peek on zero queue should report false")
	}
	q.Push("a")
	if v, ok := q.Pop(); !ok || v != "a" {
		t.Errorf("Pop = (%q, %v), want (\"a\", true)", v, ok)
	}
}

func TestQueue_GrowAcrossWrap(t *testing.T) {
	q := NewQueue[int](minQueueSize)
	// headを進めてからラップさせた状態で拡張する
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		q.Pop()
	}
	for i := 0; i < 20; i++ {
		q.Push(i)
	}

	var got []int
	q.Each(func(v int) { got = append(got, v) })
	if len(got) != 20 {
		t.Fatalf("Each visited %d elements, want 20", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("element %d = %d, want %d", i, v, i)
		}
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue[int](4)
	q.Push(1)
	q.Push(2)

	var cleared []int
	q.Clear(func(v int) { cleared = append(cleared, v) })

	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
	if len(cleared) != 2 || cleared[0] != 1 || cleared[1] != 2 {
		t.Errorf("cleared = %v, want [1 2]", cleared)
	}
	q.Clear(nil)
}

func TestQueue_MatchesSliceModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := NewQueue[int](rapid.IntRange(0, 16).Draw(t, "capacity"))
		var model []int
		ops := rapid.SliceOfN(rapid.IntRange(-1, 100), 1, 200).Draw(t, "ops")
		for _, op := range ops {
			if op < 0 {
				got, ok := q.Pop()
				if len(model) == 0 {
					if ok {
						t.Fatalf("Pop on empty queue returned %d", got)
					}
					continue
				}
				if !ok || got != model[0] {
					t.Fatalf("Pop = (%d, %v), want (%d, true)", got, ok, model[0])
				}
				model = model[1:]
				continue
			}
			q.Push(op)
			model = append(model, op)
		}
		if q.Len() != len(model) {
			t.Fatalf("Len = %d, want %d", q.Len(), len(model))
		}
	})
}

func TestQueue_SteadyStateDoesNotAllocate(t *testing.T) {
	if raceEnabled {
		t.Skip("allocation counts are not stable under -race")
	}
	q := NewQueue[*int](4)
	values := make([]*int, 32)
	for i := range values {
		values[i] = new(int)
	}
	for _, v := range values {
		q.Push(v)
	}
	q.Clear(nil)

	allocs := testing.AllocsPerRun(100, func() {
		for _, v := range values {
			q.Push(v)
		}
		for range values {
			q.Pop()
		}
	})
	if allocs != 0 {
		t.Errorf("Push/Pop allocated %v times per run, want 0", allocs)
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
}
