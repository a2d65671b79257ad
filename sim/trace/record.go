package trace

import "time"

// EventKind names one line of the emulation event log.
type EventKind string

const (
	KindBegin        EventKind = "begin"
	KindArrival      EventKind = "arrival"
	KindEnterQ1      EventKind = "enter_q1"
	KindLeaveQ1      EventKind = "leave_q1"
	KindEnterQ2      EventKind = "enter_q2"
	KindLeaveQ2      EventKind = "leave_q2"
	KindBeginService EventKind = "begin_service"
	KindDepart       EventKind = "depart"
	KindToken        EventKind = "token"
	KindInterrupt    EventKind = "interrupt"
	KindRemoved      EventKind = "removed"
	KindEnd          EventKind = "end"
)

// EventRecord captures a single logged emulation event.
type EventRecord struct {
	Seq      int           // position in the log, starting at 0
	Elapsed  time.Duration // emulated time since the clock origin
	Kind     EventKind
	PacketID int    // 0 for events not tied to a packet
	Server   int    // 1 or 2 for service events, 0 otherwise
	Queue    string // "Q1" or "Q2" for removal events
	Tokens   int    // bucket level after the event (token and leave_q1 events)
	Dropped  bool   // arrival dropped at admission, or token dropped on a full bucket
}
