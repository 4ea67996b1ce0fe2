package detections

import (
	"sync"
	"testing"
)

func newTestPool(size int) *SessionPool {
	pool := &SessionPool{
		sessions: make(chan *ModelSession, size),
		size:     size,
	}
	for i := 0; i < size; i++ {
		pool.sessions <- &ModelSession{}
	}
	return pool
}

func TestPoolAcquireReleaseCycle(t *testing.T) {
	pool := newTestPool(1)

	session, ok := pool.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire on an idle pool failed")
	}
	if _, ok := pool.TryAcquire(); ok {
		t.Fatal("TryAcquire succeeded while the only session was out")
	}

	pool.Release(session)
	if _, ok := pool.TryAcquire(); !ok {
		t.Fatal("TryAcquire failed after the session was returned")
	}

	stats := pool.Stats()
	if stats.TotalAcquired != 2 {
		t.Errorf("TotalAcquired = %d, want 2", stats.TotalAcquired)
	}
	if stats.TotalReleased != 1 {
		t.Errorf("TotalReleased = %d, want 1", stats.TotalReleased)
	}
	if stats.BusyMisses != 1 {
		t.Errorf("BusyMisses = %d, want 1", stats.BusyMisses)
	}
}

func TestPoolReleaseAfterDestroy(t *testing.T) {
	pool := newTestPool(1)

	session, ok := pool.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire on an idle pool failed")
	}

	pool.Destroy()
	pool.Release(session)

	if _, ok := pool.TryAcquire(); ok {
		t.Error("TryAcquire succeeded on a destroyed pool")
	}
}

func TestPoolConcurrentReleaseDestroy(t *testing.T) {
	for i := 0; i < 100; i++ {
		pool := newTestPool(1)
		session, ok := pool.TryAcquire()
		if !ok {
			t.Fatal("TryAcquire on an idle pool failed")
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			pool.Release(session)
		}()
		go func() {
			defer wg.Done()
			pool.Destroy()
		}()
		wg.Wait()
	}
}
