package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestManager_TryAcquire(t *testing.T) {
	m := NewManager()
	key := "jankie_test"

	if !m.TryAcquire(key) {
		t.Fatal("first TryAcquire should succeed")
	}
	if m.TryAcquire(key) {
		t.Error("second TryAcquire should fail while lock is held")
	}

	m.Release(key)
	if !m.TryAcquire(key) {
		t.Error("TryAcquire should succeed after Release")
	}
	m.Release(key)
}

func TestManager_ReleaseIdempotent(t *testing.T) {
	m := NewManager()
	key := "golang"

	m.Release(key)
	m.TryAcquire(key)
	m.Release(key)
	m.Release(key)

	if !m.TryAcquire(key) {
		t.Error("TryAcquire should succeed after repeated releases")
	}
	m.Release(key)
}

func TestManager_SingleHolder(t *testing.T) {
	m := NewManager()
	key := "jankie_test"

	if !m.TryAcquire(key) {
		t.Fatal("setup acquire failed")
	}

	const goroutines = 10
	var acquired atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if m.TryAcquire(key) {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := acquired.Load(); n != 0 {
		t.Errorf("%d goroutines acquired a held lock", n)
	}
	m.Release(key)
}

func TestManager_DifferentKeys(t *testing.T) {
	m := NewManager()

	if !m.TryAcquire("jankie_test") || !m.TryAcquire("golang") {
		t.Fatal("independent keys should both be acquirable")
	}
	if m.TryAcquire("jankie_test") || m.TryAcquire("golang") {
		t.Error("keys should stay locked independently")
	}

	m.Release("jankie_test")
	m.Release("golang")
}
