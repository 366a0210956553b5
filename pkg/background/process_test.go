package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

func TestProcessRequiresOperation(t *testing.T) {
	p := NewProcess(10*time.Millisecond, logger.NewNullLogger())

	if err := p.Start(); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestProcessRunsUntilStopped(t *testing.T) {
	var calls int32

	p := NewProcess(5*time.Millisecond, logger.NewNullLogger()).
		WithModule("test").
		WithOperation(func(ctx context.Context) (bool, error) {
			atomic.AddInt32(&calls, 1)
			return true, nil
		})

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	p.Stop()

	if atomic.LoadInt32(&calls) < 3 {
		t.Fatalf("expected at least 3 executions, got %d", calls)
	}
	if p.Running() {
		t.Fatalf("expected process to be stopped")
	}

	after := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&calls) != after {
		t.Fatalf("operation executed after stop")
	}
}

func TestProcessSurvivesPanics(t *testing.T) {
	var calls int32

	p := NewProcess(5*time.Millisecond, logger.NewNullLogger()).
		WithOperation(func(ctx context.Context) (bool, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				panic("boom")
			}
			return true, nil
		})

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected the loop to continue after a panic, got %d calls", calls)
	}
}

func TestProcessRetries(t *testing.T) {
	var calls int32

	p := NewProcess(time.Hour, logger.NewNullLogger()).
		WithRetry().
		WithRetryInterval(time.Millisecond).
		WithOperation(func(ctx context.Context) (bool, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 3 {
				return false, errors.New("not yet")
			}
			return true, nil
		})

	err := p.execute(context.Background())
	if err != nil {
		t.Fatalf("expected final success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
