package bots

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistryCoalescesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	reg := NewRegistry[string](func(ctx context.Context, id string) (string, error) {
		calls.Add(1)
		<-release
		return "v-" + id, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := reg.Get(context.Background(), "b1")
			if err != nil || v != "v-b1" {
				t.Errorf("unexpected %q %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 load, got %d", got)
	}
	if _, _ = reg.Get(context.Background(), "b1"); calls.Load() != 1 {
		t.Fatalf("expected cached value")
	}
}

func TestRegistryInvalidateReloads(t *testing.T) {
	n := 0
	reg := NewRegistry[int](func(ctx context.Context, id string) (int, error) {
		n++
		return n, nil
	})
	ctx := context.Background()
	a, _ := reg.Get(ctx, "x")
	reg.Invalidate("x")
	b, _ := reg.Get(ctx, "x")
	if a == b {
		t.Fatalf("expected reload after invalidate")
	}

	reg.Put("x", 99)
	c, _ := reg.Get(ctx, "x")
	if c != 99 {
		t.Fatalf("expected put value, got %d", c)
	}
}

func TestRegistryDoesNotCacheErrors(t *testing.T) {
	fail := true
	reg := NewRegistry[string](func(ctx context.Context, id string) (string, error) {
		if fail {
			return "", ErrNotFound
		}
		return "ok", nil
	})
	if _, err := reg.Get(context.Background(), "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	fail = false
	if v, err := reg.Get(context.Background(), "b"); err != nil || v != "ok" {
		t.Fatalf("expected ok, got %q %v", v, err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 cached item")
	}
}

func TestRegistryStaleLoadNotCached(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	reg := NewRegistry[string](func(ctx context.Context, id string) (string, error) {
		close(started)
		<-release
		return "stale", nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = reg.Get(context.Background(), "b")
	}()
	<-started
	reg.Put("b", "fresh")
	close(release)
	<-done

	v, _ := reg.Get(context.Background(), "b")
	if v != "fresh" {
		t.Fatalf("stale load overwrote put: %q", v)
	}
}
