// Defines the Packet struct that models one unit of work traversing the shaper.
// Tracks token requirement, service demand and the timestamps for each stage.

package sim

import (
	"fmt"
	"time"
)

// Packet models a single packet's lifecycle in the emulation.
// A packet has exactly one owner at a time: the arrival source, Q1, the
// transfer step, Q2 or a server. All timestamps are elapsed emulated time
// since the clock origin.
type Packet struct {
	ID           int           // Sequence number, assigned at arrival starting from 1
	TokensNeeded int           // Tokens debited from the bucket on admission to Q2
	ServiceTime  time.Duration // Requested service duration

	Arrival      time.Duration
	EnterQ1      time.Duration
	LeaveQ1      time.Duration
	EnterQ2      time.Duration
	LeaveQ2      time.Duration
	BeginService time.Duration
	Depart       time.Duration
}

// PacketSpec is what an ArrivalFeed yields: the wait before the packet
// arrives and the packet's demands.
type PacketSpec struct {
	InterArrival time.Duration
	TokensNeeded int
	ServiceTime  time.Duration
}

// ArrivalFeed produces packet specs for the arrival source.
// Next returns io.EOF once no further packets will arrive.
type ArrivalFeed interface {
	Next() (PacketSpec, error)
	// Len returns the total number of packets the feed will produce.
	Len() int
}

// TimeInSystem returns the departure-to-arrival span.
func (p *Packet) TimeInSystem() time.Duration {
	return p.Depart - p.Arrival
}

// This method returns a human-readable string representation of a Packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet: (ID: p%d, TokensNeeded: %d, ServiceTime: %v, Arrival: %v)", p.ID, p.TokensNeeded, p.ServiceTime, p.Arrival)
}

// ms converts a duration to fractional milliseconds.
func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
