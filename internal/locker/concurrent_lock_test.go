package locker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

func TestRunSerializesSameResource(t *testing.T) {
	cl := NewConcurrentLockerWithSize(4, logger.NewNullLogger())

	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl.Run("planet-1", func() error {
				// Non atomic on purpose: the lock is the only protection.
				v := counter
				v++
				counter = v
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
}

func TestRunWithMoreResourcesThanLocks(t *testing.T) {
	cl := NewConcurrentLockerWithSize(2, logger.NewNullLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]int)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := fmt.Sprintf("fleet-%d", i%5)
			cl.Run(res, func() error {
				mu.Lock()
				seen[res]++
				mu.Unlock()
				return nil
			})
		}(i)
	}
	wg.Wait()

	if len(seen) != 5 {
		t.Fatalf("expected 5 resources, got %d", len(seen))
	}
	if len(cl.availableLocks) != 2 {
		t.Fatalf("expected every lock back in the pool, got %d", len(cl.availableLocks))
	}
	if len(cl.registered) != 0 {
		t.Fatalf("expected no registered resource, got %v", cl.registered)
	}
}

func TestRunPropagatesError(t *testing.T) {
	cl := NewConcurrentLockerWithSize(1, logger.NewNullLogger())
	want := errors.New("failure")

	if err := cl.Run("user-1", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected error to be propagated, got %v", err)
	}
}

func TestReleaseUnheldLock(t *testing.T) {
	cl := NewConcurrentLockerWithSize(1, logger.NewNullLogger())

	l := cl.Acquire("res")
	if err := l.Release(); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}
	cl.Release(l)
}
