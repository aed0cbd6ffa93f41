package handshake

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCompleteWakesWaiter(t *testing.T) {
	var mu sync.Mutex
	s := New[int](&mu)

	mu.Lock()
	id, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	go func() {
		mu.Lock()
		defer mu.Unlock()
		if !s.Complete(id, 42, nil) {
			t.Error("Complete rejected current request")
		}
	}()
	v, err := s.Wait(id, nil)
	mu.Unlock()

	if err != nil || v != 42 {
		t.Errorf("Wait() = %d, %v, want 42, nil", v, err)
	}
}

func TestCompleteError(t *testing.T) {
	var mu sync.Mutex
	s := New[string](&mu)
	want := errors.New("boom")

	mu.Lock()
	defer mu.Unlock()
	id, _ := s.Begin()
	s.Complete(id, "", want)
	if _, err := s.Wait(id, nil); !errors.Is(err, want) {
		t.Errorf("Wait() err = %v, want %v", err, want)
	}
}

func TestBeginBusy(t *testing.T) {
	var mu sync.Mutex
	s := New[int](&mu)

	mu.Lock()
	defer mu.Unlock()
	id, _ := s.Begin()
	if _, err := s.Begin(); !errors.Is(err, ErrBusy) {
		t.Errorf("second Begin = %v, want ErrBusy", err)
	}
	s.Abandon(id)
	if s.Pending() {
		t.Error("Pending() after Abandon")
	}
	if _, err := s.Begin(); err != nil {
		t.Errorf("Begin after Abandon = %v", err)
	}
}

func TestAbortThenStaleCompletion(t *testing.T) {
	var mu sync.Mutex
	s := New[int](&mu)
	errAbort := errors.New("aborted")
	aborted := false

	mu.Lock()
	id, _ := s.Begin()
	go func() {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		aborted = true
		s.Wake()
		mu.Unlock()
	}()
	_, err := s.Wait(id, func() error {
		if aborted {
			return errAbort
		}
		return nil
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Wait() = %v, want abort error", err)
	}
	if s.Complete(id, 1, nil) {
		t.Error("completion after abort should be stale")
	}

	next, _ := s.Begin()
	if next == id {
		t.Error("request ids must not repeat")
	}
	if s.Complete(id, 1, nil) {
		t.Error("completion for a previous id should be stale")
	}
	s.Complete(next, 7, nil)
	v, err := s.Wait(next, nil)
	mu.Unlock()
	if err != nil || v != 7 {
		t.Errorf("Wait(next) = %d, %v, want 7, nil", v, err)
	}
}

func TestWaitStale(t *testing.T) {
	var mu sync.Mutex
	s := New[int](&mu)

	mu.Lock()
	defer mu.Unlock()
	if _, err := s.Wait(5, nil); !errors.Is(err, ErrStale) {
		t.Errorf("Wait(unknown) = %v, want ErrStale", err)
	}
}
