package detections

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// SessionPool owns the process's model sessions. With the default depth of 1
// it doubles as the scheduler's in-flight token: a tick that cannot acquire a
// session immediately is skipped, so inference calls never overlap on a
// session.
type SessionPool struct {
	sessions chan *ModelSession
	size     int

	mu     sync.Mutex
	closed bool

	inUse         atomic.Int64
	totalAcquired atomic.Int64
	totalReleased atomic.Int64
	busyMisses    atomic.Int64
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Size          int   `json:"size"`
	InUse         int64 `json:"in_use"`
	TotalAcquired int64 `json:"total_acquired"`
	TotalReleased int64 `json:"total_released"`
	BusyMisses    int64 `json:"busy_misses"`
}

// NewSessionPool initializes size sessions from cfg. A failure during
// initialization destroys the sessions created so far.
func NewSessionPool(cfg SessionConfig, size int) (*SessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &SessionPool{
		sessions: make(chan *ModelSession, size),
		size:     size,
	}
	for i := 0; i < size; i++ {
		session, err := InitSession(cfg)
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("initialize session %d: %w", i, err)
		}
		pool.sessions <- session
	}
	return pool, nil
}

// TryAcquire returns a session without blocking. A false return means every
// session is busy; the caller is expected to skip its tick.
func (p *SessionPool) TryAcquire() (*ModelSession, bool) {
	select {
	case session, ok := <-p.sessions:
		if !ok {
			// Pool already destroyed.
			return nil, false
		}
		p.inUse.Add(1)
		p.totalAcquired.Add(1)
		return session, true
	default:
		p.busyMisses.Add(1)
		return nil, false
	}
}

// Release returns a session to the pool. Releasing into a destroyed pool
// destroys the session instead. The mutex stays held across the send so a
// concurrent Destroy cannot close the channel mid-release; the send never
// blocks because the channel holds every session the pool owns.
func (p *SessionPool) Release(session *ModelSession) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		session.Destroy()
		return
	}
	p.inUse.Add(-1)
	p.totalReleased.Add(1)
	p.sessions <- session
}

// Destroy closes the pool and destroys all idle sessions. Sessions still
// acquired are destroyed on release.
func (p *SessionPool) Destroy() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.sessions)
	p.mu.Unlock()

	for session := range p.sessions {
		session.Destroy()
	}
}

// Stats returns a counter snapshot, safe for concurrent use.
func (p *SessionPool) Stats() PoolStats {
	return PoolStats{
		Size:          p.size,
		InUse:         p.inUse.Load(),
		TotalAcquired: p.totalAcquired.Load(),
		TotalReleased: p.totalReleased.Load(),
		BusyMisses:    p.busyMisses.Load(),
	}
}
