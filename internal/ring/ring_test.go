package ring

import "testing"

func TestRingFIFO(t *testing.T) {
	r := New[uint64](3)

	for i := uint64(1); i <= 3; i++ {
		if !r.Push(i) {
			t.Fatalf("Push(%d) failed before capacity", i)
		}
	}
	if r.Push(4) {
		t.Error("Push() on a full ring should fail")
	}
	if r.Len() != 3 || !r.Full() {
		t.Errorf("Len() = %d, Full() = %v", r.Len(), r.Full())
	}

	if v, _ := r.Front(); v != 1 {
		t.Errorf("Front() = %d, want 1", v)
	}
	if v, _ := r.Back(); v != 3 {
		t.Errorf("Back() = %d, want 3", v)
	}

	v, ok := r.Pop()
	if !ok || v != 1 {
		t.Errorf("Pop() = %d, %v, want 1, true", v, ok)
	}
	if !r.Push(4) {
		t.Fatal("Push() after Pop() should succeed")
	}

	var got []uint64
	for r.Len() > 0 {
		v, _ := r.Pop()
		got = append(got, v)
	}
	want := []uint64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain order = %v, want %v", got, want)
		}
	}
}

func TestRingWrapManyTimes(t *testing.T) {
	r := New[int](2)
	for i := 0; i < 100; i++ {
		r.Push(i)
		if r.Len() > 1 {
			if v, _ := r.Pop(); v != i-1 {
				t.Fatalf("Pop() = %d, want %d", v, i-1)
			}
		}
	}
	if r.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", r.Cap())
	}
}

func TestRingEmptyAndClear(t *testing.T) {
	r := New[string](2)
	if _, ok := r.Pop(); ok {
		t.Error("Pop() on empty ring should fail")
	}
	if _, ok := r.Front(); ok {
		t.Error("Front() on empty ring should fail")
	}
	r.Push("a")
	r.Push("b")
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len() after Clear() = %d", r.Len())
	}

	var zero Ring[int]
	if zero.Push(1) {
		t.Error("zero-capacity ring should reject Push()")
	}
}
