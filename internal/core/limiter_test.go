package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestImportLimiter_AcquireRelease(t *testing.T) {
	l := NewImportLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := l.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	l.Release()
	if got := l.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after release = %d, want 1", got)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
	l.Release()
	l.Release()
}

func TestImportLimiter_TimeoutWhenFull(t *testing.T) {
	l := NewImportLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	start := time.Now()
	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("err = %v, want ErrTooManyImports", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("rejected after %v, expected to wait near the timeout", elapsed)
	}
}

func TestImportLimiter_CallerCancellation(t *testing.T) {
	l := NewImportLimiter(1, time.Minute)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestImportLimiter_DefaultsOnInvalidArgs(t *testing.T) {
	l := NewImportLimiter(0, 0)
	if got := l.Available(); got != DefaultMaxConcurrentImports {
		t.Errorf("Available = %d, want %d", got, DefaultMaxConcurrentImports)
	}
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	l := NewImportLimiter(3, time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(30 * time.Millisecond)
			l.Release()
		}()
	}

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.WaitForDrain(drainCtx); err != nil {
		t.Fatalf("WaitForDrain: %v", err)
	}
	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after drain = %d, want 0", got)
	}
	wg.Wait()
}

func TestImportLimiter_DrainTimeout(t *testing.T) {
	l := NewImportLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := l.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
