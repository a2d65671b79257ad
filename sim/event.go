package sim

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/inference-sim/token-shaper/sim/trace"
)

// Event is one line of the emulation log.
type Event struct {
	Kind     trace.EventKind
	PacketID int
	Server   int
	Queue    string
	Tokens   int
	Dropped  bool
	Message  string
}

// EventLog writes timestamped event lines and optionally records them.
// Emit holds the log mutex while it reads the clock, builds the event and
// writes the line, so lines never interleave and timestamps never go backwards.
type EventLog struct {
	mu    sync.Mutex
	clock Clock
	out   io.Writer
	trace *trace.SimulationTrace
	seq   int
}

// NewEventLog creates a log. A nil writer discards lines; a nil trace records nothing.
func NewEventLog(clock Clock, out io.Writer, st *trace.SimulationTrace) *EventLog {
	if out == nil {
		out = io.Discard
	}
	return &EventLog{clock: clock, out: out, trace: st}
}

// Emit reads the clock, calls build with the current time and writes the
// resulting event. build runs under the log mutex and must not acquire other
// emulator locks. Returns the timestamp passed to build.
func (l *EventLog) Emit(build func(now time.Duration) Event) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Elapsed()
	ev := build(now)
	fmt.Fprintf(l.out, "%012.3fms: %s\n", ms(now), ev.Message)
	l.trace.Record(trace.EventRecord{
		Seq:      l.seq,
		Elapsed:  now,
		Kind:     ev.Kind,
		PacketID: ev.PacketID,
		Server:   ev.Server,
		Queue:    ev.Queue,
		Tokens:   ev.Tokens,
		Dropped:  ev.Dropped,
	})
	l.seq++
	return now
}

// Count returns the number of lines emitted so far.
func (l *EventLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
