package sim

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/token-shaper/sim/trace"
)

// sliceFeed replays a fixed list of specs.
type sliceFeed struct {
	specs []PacketSpec
	next  int
}

func (f *sliceFeed) Next() (PacketSpec, error) {
	if f.next >= len(f.specs) {
		return PacketSpec{}, io.EOF
	}
	s := f.specs[f.next]
	f.next++
	return s, nil
}

func (f *sliceFeed) Len() int { return len(f.specs) }

// constantFeed mirrors deterministic mode: n packets every 1/lambda, P tokens, 1/mu service.
func constantFeed(n int, lambda, mu float64, p int) *sliceFeed {
	specs := make([]PacketSpec, n)
	for i := range specs {
		specs[i] = PacketSpec{InterArrival: RateInterval(lambda), TokensNeeded: p, ServiceTime: RateInterval(mu)}
	}
	return &sliceFeed{specs: specs}
}

// spec builds a PacketSpec from millisecond values, the way trace lines read.
func spec(interMs, tokens, serviceMs int) PacketSpec {
	return PacketSpec{
		InterArrival: time.Duration(interMs) * time.Millisecond,
		TokensNeeded: tokens,
		ServiceTime:  time.Duration(serviceMs) * time.Millisecond,
	}
}

// errFeed yields one packet and then fails.
type errFeed struct {
	calls int
	err   error
}

func (f *errFeed) Next() (PacketSpec, error) {
	f.calls++
	if f.calls == 1 {
		return spec(0, 0, 1), nil
	}
	return PacketSpec{}, f.err
}

func (f *errFeed) Len() int { return 1 }

type runResult struct {
	report *Report
	trace  *trace.SimulationTrace
	output string
	err    error
}

// runEmulation builds an emulator over feed with event tracing and runs it to completion.
func runEmulation(t *testing.T, cfg Config, feed ArrivalFeed) runResult {
	t.Helper()
	return runEmulationCtx(t, context.Background(), cfg, feed)
}

func runEmulationCtx(t *testing.T, ctx context.Context, cfg Config, feed ArrivalFeed) runResult {
	t.Helper()
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})
	var out bytes.Buffer
	e, err := NewEmulator(cfg, feed, WithOutput(&out), WithTrace(st))
	require.NoError(t, err)
	report, err := e.Run(ctx)
	require.NotNil(t, report)
	return runResult{report: report, trace: st, output: out.String(), err: err}
}

// testConfig returns a valid configuration for the given token rate and capacity.
func testConfig(tokenRate float64, capacity int) Config {
	cfg := DefaultConfig()
	cfg.TokenRate = tokenRate
	cfg.BucketCapacity = capacity
	return cfg
}

// manualClock is a virtual clock advanced by hand. Each Sleep parks until
// the test wakes it; waking a sleeper moves the clock to its wake time.
type manualClock struct {
	mu       sync.Mutex
	now      time.Duration
	sleepers []*sleeper
}

type sleeper struct {
	wake time.Duration
	done chan struct{}
}

func (c *manualClock) Start() {}

func (c *manualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Sleep(d time.Duration, cancel <-chan struct{}) bool {
	c.mu.Lock()
	select {
	case <-cancel:
		c.mu.Unlock()
		return false
	default:
	}
	if d <= 0 {
		c.mu.Unlock()
		return true
	}
	s := &sleeper{wake: c.now + d, done: make(chan struct{})}
	c.sleepers = append(c.sleepers, s)
	c.mu.Unlock()

	select {
	case <-s.done:
		return true
	case <-cancel:
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, other := range c.sleepers {
			if other == s {
				c.sleepers = append(c.sleepers[:i], c.sleepers[i+1:]...)
				break
			}
		}
		return false
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleepers)
}

// advance waits until wantSleepers goroutines are parked and log holds
// wantEvents lines, then wakes the earliest sleeper.
func (c *manualClock) advance(t *testing.T, log *EventLog, wantSleepers, wantEvents int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.pending() == wantSleepers && log.Count() == wantEvents
	}, 5*time.Second, time.Millisecond, "waiting for %d sleepers and %d events", wantSleepers, wantEvents)

	c.mu.Lock()
	defer c.mu.Unlock()
	next := 0
	for i, s := range c.sleepers {
		if s.wake < c.sleepers[next].wake {
			next = i
		}
	}
	s := c.sleepers[next]
	c.sleepers = append(c.sleepers[:next], c.sleepers[next+1:]...)
	c.now = s.wake
	close(s.done)
}

// releaseAll wakes every parked sleeper without moving the clock.
func (c *manualClock) releaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sleepers {
		close(s.done)
	}
	c.sleepers = nil
}

// uncancellable hides the cancel channel from the wrapped clock, so a
// sleeper only returns when woken. It models a timer that fires at the same
// moment as the interrupt.
type uncancellable struct {
	*manualClock
}

func (c uncancellable) Sleep(d time.Duration, _ <-chan struct{}) bool {
	return c.manualClock.Sleep(d, nil)
}

// startEmulation runs e in the background and returns a channel yielding its result.
func startEmulation(ctx context.Context, e *Emulator, st *trace.SimulationTrace) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		report, err := e.Run(ctx)
		done <- runResult{report: report, trace: st, err: err}
	}()
	return done
}
