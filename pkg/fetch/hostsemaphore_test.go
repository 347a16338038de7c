package fetch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestHostSemaphorePool_LimitsConcurrency(t *testing.T) {
	pool := NewHostSemaphorePool(2, testLogger())
	ctx := context.Background()

	var active, peak atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if err := pool.Acquire(ctx, "example.com"); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			pool.Release("example.com")
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	if got := peak.Load(); got > 2 {
		t.Errorf("per-host limit exceeded: peak %d", got)
	}
}

func TestHostSemaphorePool_AcquireCancelled(t *testing.T) {
	pool := NewHostSemaphorePool(1, testLogger())

	if err := pool.Acquire(context.Background(), "example.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := pool.Acquire(ctx, "example.com"); err == nil {
		t.Error("expected acquire to fail once the context expires")
		pool.Release("example.com")
	}
	pool.Release("example.com")
}

func TestHostSemaphorePool_Eviction(t *testing.T) {
	pool := NewHostSemaphorePool(2, testLogger())
	ctx := context.Background()

	if err := pool.Acquire(ctx, "a.example.com"); err != nil {
		t.Fatal(err)
	}
	pool.Release("a.example.com")
	if pool.Len() != 1 {
		t.Fatalf("expected 1 tracked host, got %d", pool.Len())
	}

	time.Sleep(20 * time.Millisecond)
	pool.evictIdle(10 * time.Millisecond)

	if pool.Len() != 0 {
		t.Errorf("idle host should be evicted, still tracking %d", pool.Len())
	}
}
