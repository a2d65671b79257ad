package sim

import (
	"sync"
	"time"
)

// Clock is the emulation's elapsed-time source.
// Elapsed reports emulated time since Start; Sleep suspends the caller for an
// emulated duration and returns false if cancel fired first.
type Clock interface {
	Start()
	Elapsed() time.Duration
	Sleep(d time.Duration, cancel <-chan struct{}) bool
}

// WallClock tracks elapsed wall time since Start, optionally scaled.
// A scale of 10 makes one real millisecond count as ten emulated
// milliseconds, so every sleep is ten times shorter.
type WallClock struct {
	mu        sync.RWMutex
	startTime time.Time
	running   bool
	scale     float64
}

// NewWallClock creates a clock. Non-positive scales are treated as 1.
func NewWallClock(scale float64) *WallClock {
	if scale <= 0 {
		scale = 1
	}
	return &WallClock{scale: scale}
}

// Start anchors the clock origin. Subsequent calls are no-ops.
func (c *WallClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		c.startTime = time.Now()
		c.running = true
	}
}

// Elapsed returns emulated time since Start, or 0 before Start.
func (c *WallClock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running {
		return 0
	}
	return time.Duration(float64(time.Since(c.startTime)) * c.scale)
}

// Sleep blocks for d emulated time. A nil cancel channel never fires.
func (c *WallClock) Sleep(d time.Duration, cancel <-chan struct{}) bool {
	wait := time.Duration(float64(d) / c.scale)
	if wait <= 0 {
		select {
		case <-cancel:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-cancel:
		return false
	}
}
