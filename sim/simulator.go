// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/token-shaper/sim/trace"
)

// NumServers is the number of parallel servers draining Q2.
const NumServers = 2

// Emulator is the shared emulation context: clock, Q1, Q2, token bucket,
// finished flag and statistics. It is built once and run once.
type Emulator struct {
	cfg    Config
	feed   ArrivalFeed
	clock  Clock
	log    *EventLog
	bucket *TokenBucket
	stats  *Statistics

	out   io.Writer
	trace *trace.SimulationTrace

	// mu guards Q1, Q2 and every field below it.
	mu          sync.Mutex
	work        *sync.Cond // signalled when Q2 gains a packet or the run winds down
	q1          *PacketQueue
	q2          *PacketQueue
	finished    bool
	interrupted bool
	nextID      int
	lastArrival time.Duration

	stop       chan struct{} // closed on interrupt; cancels inter-arrival waits
	stopOnce   sync.Once
	tokensDone chan struct{} // closed once finished and Q1 is empty
	tokensOnce sync.Once
}

// Option customizes an Emulator.
type Option func(*Emulator)

// WithClock replaces the default wall clock.
func WithClock(c Clock) Option {
	return func(e *Emulator) { e.clock = c }
}

// WithOutput sets where event lines are written. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(e *Emulator) { e.out = w }
}

// WithTrace records every event into st.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(e *Emulator) { e.trace = st }
}

// NewEmulator validates cfg and builds an emulator fed by feed.
func NewEmulator(cfg Config, feed ArrivalFeed, opts ...Option) (*Emulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if feed == nil {
		return nil, errors.New("arrival feed must not be nil")
	}
	e := &Emulator{
		cfg:        cfg,
		feed:       feed,
		bucket:     NewTokenBucket(cfg.BucketCapacity),
		stats:      NewStatistics(),
		q1:         NewPacketQueue(),
		q2:         NewPacketQueue(),
		stop:       make(chan struct{}),
		tokensDone: make(chan struct{}),
	}
	e.work = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewWallClock(cfg.TimeScale)
	}
	e.log = NewEventLog(e.clock, e.out, e.trace)
	return e, nil
}

// Bucket exposes the token bucket for inspection.
func (e *Emulator) Bucket() *TokenBucket {
	return e.bucket
}

// Run starts the clock and every stage, and blocks until all stages stop.
// Cancelling ctx is the interrupt: arrivals and tokens stop, Q1 and Q2 are
// drained, and packets already in service finish. The report reflects
// whatever was processed. A non-nil error means the arrival feed failed.
func (e *Emulator) Run(ctx context.Context) (*Report, error) {
	e.clock.Start()
	e.log.Emit(func(time.Duration) Event {
		return Event{Kind: trace.KindBegin, Message: "emulation begins"}
	})

	var stages errgroup.Group
	stages.Go(e.arrive)
	stages.Go(e.generateTokens)
	for id := 1; id <= NumServers; id++ {
		stages.Go(func() error { return e.serve(id) })
	}

	done := make(chan error, 1)
	go func() { done <- stages.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		e.interrupt()
		err = <-done
	case err = <-done:
	}

	end := e.log.Emit(func(time.Duration) Event {
		return Event{Kind: trace.KindEnd, Message: "emulation ends"}
	})
	report := e.stats.Finalize(end)
	logrus.Debugf("emulation logged %d events over %v", e.log.Count(), end)
	if !report.Conserved() {
		logrus.Errorf("packet accounting mismatch: arrived=%d served=%d dropped=%d removed=%d",
			report.Arrived, report.Served, report.Dropped, report.Drained)
	}
	return report, err
}

// arrive is the arrival source. It emits every packet the feed yields, then
// marks the emulation finished.
func (e *Emulator) arrive() error {
	defer e.finish()
	for {
		spec, err := e.feed.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("arrival feed: %w", err)
		}
		if !e.clock.Sleep(spec.InterArrival, e.stop) {
			return nil
		}
		if !e.emit(spec) {
			return nil
		}
	}
}

// emit creates the next packet and applies admission control.
// Returns false if the emulation was interrupted.
func (e *Emulator) emit(spec PacketSpec) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interrupted {
		return false
	}

	e.nextID++
	p := &Packet{ID: e.nextID, TokensNeeded: spec.TokensNeeded, ServiceTime: spec.ServiceTime}
	dropped := !e.bucket.CanEverAdmit(p.TokensNeeded)

	var interArrival time.Duration
	e.log.Emit(func(now time.Duration) Event {
		p.Arrival = now
		interArrival = now - e.lastArrival
		e.lastArrival = now
		msg := fmt.Sprintf("p%d arrives, needs %d tokens, inter-arrival time = %.3fms", p.ID, p.TokensNeeded, ms(interArrival))
		if dropped {
			msg += ", dropped"
		}
		return Event{Kind: trace.KindArrival, PacketID: p.ID, Dropped: dropped, Message: msg}
	})
	e.stats.RecordArrival(interArrival, dropped)
	if dropped {
		return true
	}

	e.log.Emit(func(now time.Duration) Event {
		p.EnterQ1 = now
		return Event{Kind: trace.KindEnterQ1, PacketID: p.ID, Message: fmt.Sprintf("p%d enters Q1", p.ID)}
	})
	e.q1.Append(p)
	return true
}

// finish marks that no further arrivals will occur.
func (e *Emulator) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished = true
	e.windDown()
}

// windDown wakes every waiter once the run can end. Requires e.mu.
func (e *Emulator) windDown() {
	if e.finished && e.q1.Empty() {
		e.tokensOnce.Do(func() { close(e.tokensDone) })
		e.work.Broadcast()
	}
}

// exhausted reports whether no packet is queued and none will arrive. Requires e.mu.
func (e *Emulator) exhausted() bool {
	return e.finished && e.q1.Empty() && e.q2.Empty()
}

// generateTokens deposits a token every 1/r and runs the transfer step after
// each deposit, until arrivals are finished and Q1 is empty. The deposit and
// the transfer happen under the queue lock, so no token is logged after the
// interrupt.
func (e *Emulator) generateTokens() error {
	interval := e.cfg.TokenInterval()
	for seq := 1; ; seq++ {
		if !e.clock.Sleep(interval, e.tokensDone) {
			logrus.Debugf("token generator stopping after %d tokens", seq-1)
			return nil
		}
		if !e.tick(seq) {
			logrus.Debugf("token generator stopping after %d tokens", seq-1)
			return nil
		}
	}
}

// tick deposits token seq and runs the transfer step. Returns false without
// depositing once the run is interrupted or nothing is left to admit.
func (e *Emulator) tick(seq int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interrupted {
		return false
	}
	select {
	case <-e.tokensDone:
		return false
	default:
	}

	level, dropped := e.bucket.Deposit()
	e.log.Emit(func(time.Duration) Event {
		msg := fmt.Sprintf("token t%d arrives, token bucket now has %d tokens", seq, level)
		if dropped {
			msg = fmt.Sprintf("token t%d arrives, dropped", seq)
		}
		return Event{Kind: trace.KindToken, Tokens: level, Dropped: dropped, Message: msg}
	})
	e.stats.RecordToken(dropped)
	e.transfer()
	return true
}

// transfer moves packets from the head of Q1 to the tail of Q2 while the
// head's requirement can be debited. It never skips an unsatisfiable head.
// Requires e.mu.
func (e *Emulator) transfer() {
	for !e.q1.Empty() {
		p := e.q1.Peek()
		level, ok := e.bucket.TryDebit(p.TokensNeeded)
		if !ok {
			break
		}
		e.q1.Dequeue()
		e.log.Emit(func(now time.Duration) Event {
			p.LeaveQ1 = now
			return Event{Kind: trace.KindLeaveQ1, PacketID: p.ID, Tokens: level,
				Message: fmt.Sprintf("p%d leaves Q1, time in Q1 = %.3fms, token bucket now has %d tokens", p.ID, ms(now-p.EnterQ1), level)}
		})
		e.stats.RecordQ1(p.LeaveQ1 - p.EnterQ1)

		e.log.Emit(func(now time.Duration) Event {
			p.EnterQ2 = now
			return Event{Kind: trace.KindEnterQ2, PacketID: p.ID, Message: fmt.Sprintf("p%d enters Q2", p.ID)}
		})
		e.q2.Append(p)
		e.work.Signal()
	}
	e.windDown()
}

// serve is server id's loop: take the head of Q2, hold it for its service
// time, depart it. Exits once nothing is queued and nothing will arrive.
func (e *Emulator) serve(id int) error {
	for {
		e.mu.Lock()
		for e.q2.Empty() && !e.exhausted() {
			e.work.Wait()
		}
		if e.q2.Empty() {
			e.mu.Unlock()
			logrus.Debugf("server S%d idle with nothing left to serve; exiting", id)
			return nil
		}
		p := e.q2.Dequeue()
		e.log.Emit(func(now time.Duration) Event {
			p.LeaveQ2 = now
			return Event{Kind: trace.KindLeaveQ2, PacketID: p.ID,
				Message: fmt.Sprintf("p%d leaves Q2, time in Q2 = %.3fms", p.ID, ms(now-p.EnterQ2))}
		})
		e.stats.RecordQ2(p.LeaveQ2 - p.EnterQ2)
		e.log.Emit(func(now time.Duration) Event {
			p.BeginService = now
			return Event{Kind: trace.KindBeginService, PacketID: p.ID, Server: id,
				Message: fmt.Sprintf("p%d begins service at S%d, requesting %.3fms of service", p.ID, id, ms(p.ServiceTime))}
		})
		e.windDown()
		e.mu.Unlock()

		// A packet in service always completes, even after an interrupt.
		e.clock.Sleep(p.ServiceTime, nil)

		e.log.Emit(func(now time.Duration) Event {
			p.Depart = now
			return Event{Kind: trace.KindDepart, PacketID: p.ID, Server: id,
				Message: fmt.Sprintf("p%d departs from S%d, service time = %.3fms, time in system = %.3fms",
					p.ID, id, ms(now-p.BeginService), ms(p.TimeInSystem()))}
		})
		e.stats.RecordDeparture(id, p.Depart-p.BeginService, p.TimeInSystem())
	}
}

// interrupt is the shutdown coordinator: it stops admissions and tokens,
// then drains Q1 and Q2 while holding the queue mutex.
func (e *Emulator) interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Emit(func(time.Duration) Event {
		return Event{Kind: trace.KindInterrupt, Message: "SIGINT caught, no new packets or tokens will be allowed"}
	})
	e.interrupted = true
	e.finished = true
	e.stopOnce.Do(func() { close(e.stop) })

	drained := e.drain(e.q1, "Q1") + e.drain(e.q2, "Q2")
	e.stats.RecordDrained(drained)
	e.windDown()
}

// drain removes every packet from q, head first. Requires e.mu.
func (e *Emulator) drain(q *PacketQueue, name string) int {
	removed := q.UnlinkAll()
	for _, p := range removed {
		e.log.Emit(func(time.Duration) Event {
			return Event{Kind: trace.KindRemoved, PacketID: p.ID, Queue: name,
				Message: fmt.Sprintf("p%d removed from %s", p.ID, name)}
		})
	}
	return len(removed)
}
