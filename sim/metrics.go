// Tracks emulation-wide running sums and produces the final statistics report.

package sim

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// Statistics aggregates running sums about the emulation for final reporting.
// All durations are accumulated in milliseconds. Every stage that completes
// an event records it here; the mutex makes each update atomic.
type Statistics struct {
	mu sync.Mutex

	TotalInterArrival  float64 // Sum of inter-arrival times over all arrivals
	TotalService       float64 // Sum of measured service times over served packets
	TimeInQ1           float64 // Cumulative Q1 residence
	TimeInQ2           float64 // Cumulative Q2 residence
	TimeAtS1           float64 // Cumulative residence at server 1
	TimeAtS2           float64 // Cumulative residence at server 2
	TotalSystem        float64 // Sum of time in system over served packets
	TotalSystemSquared float64 // Sum of squared time in system

	Arrived         int
	Served          int
	Dropped         int // dropped at admission (tokens needed > B)
	Drained         int // removed from Q1/Q2 on interrupt
	TokensGenerated int
	TokensDropped   int
}

// NewStatistics returns a zeroed aggregator.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// RecordArrival accounts for one emitted packet.
func (s *Statistics) RecordArrival(interArrival time.Duration, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Arrived++
	s.TotalInterArrival += ms(interArrival)
	if dropped {
		s.Dropped++
	}
}

// RecordToken accounts for one generated token.
func (s *Statistics) RecordToken(dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TokensGenerated++
	if dropped {
		s.TokensDropped++
	}
}

// RecordQ1 adds one packet's Q1 residence.
func (s *Statistics) RecordQ1(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TimeInQ1 += ms(d)
}

// RecordQ2 adds one packet's Q2 residence.
func (s *Statistics) RecordQ2(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TimeInQ2 += ms(d)
}

// RecordDeparture accounts for a packet served by server 1 or 2.
func (s *Statistics) RecordDeparture(server int, service, system time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc := ms(service)
	sys := ms(system)
	s.Served++
	s.TotalService += svc
	switch server {
	case 1:
		s.TimeAtS1 += svc
	case 2:
		s.TimeAtS2 += svc
	default:
		panic(fmt.Sprintf("RecordDeparture: unknown server %d", server))
	}
	s.TotalSystem += sys
	s.TotalSystemSquared += sys * sys
}

// RecordDrained accounts for n packets removed on interrupt.
func (s *Statistics) RecordDrained(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Drained += n
}

// Value is a finalized statistic. OK is false when the statistic is not
// applicable because its denominator is zero; Reason says why.
type Value struct {
	V      float64
	OK     bool
	Reason string
}

func notApplicable(reason string) Value {
	return Value{Reason: reason}
}

func ratio(num, den float64, reason string) Value {
	if den == 0 {
		return notApplicable(reason)
	}
	return Value{V: num / den, OK: true}
}

// Report is the finalized statistics block.
type Report struct {
	Elapsed time.Duration

	Arrived         int
	Served          int
	Dropped         int
	Drained         int
	TokensGenerated int
	TokensDropped   int

	AvgInterArrival Value // ms
	AvgService      Value // ms
	AvgInQ1         Value
	AvgInQ2         Value
	AvgAtS1         Value
	AvgAtS2         Value
	AvgSystem       Value // ms
	StdDevSystem    Value // ms
	TokenDropProb   Value
	PacketDropProb  Value
}

// Finalize computes the report over an emulation that lasted elapsed.
// Call once, after every stage has stopped.
func (s *Statistics) Finalize(elapsed time.Duration) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Report{
		Elapsed:         elapsed,
		Arrived:         s.Arrived,
		Served:          s.Served,
		Dropped:         s.Dropped,
		Drained:         s.Drained,
		TokensGenerated: s.TokensGenerated,
		TokensDropped:   s.TokensDropped,
	}

	r.AvgInterArrival = ratio(s.TotalInterArrival, float64(s.Arrived), "no packet arrived")
	r.AvgService = ratio(s.TotalService, float64(s.Served), "no packet served")

	total := ms(elapsed)
	if s.Arrived == 0 {
		total = 0
	}
	r.AvgInQ1 = ratio(s.TimeInQ1, total, "no packet arrived")
	r.AvgInQ2 = ratio(s.TimeInQ2, total, "no packet arrived")
	r.AvgAtS1 = ratio(s.TimeAtS1, total, "no packet arrived")
	r.AvgAtS2 = ratio(s.TimeAtS2, total, "no packet arrived")

	r.AvgSystem = ratio(s.TotalSystem, float64(s.Served), "no packet served")
	if r.AvgSystem.OK {
		mean := r.AvgSystem.V
		variance := s.TotalSystemSquared/float64(s.Served) - mean*mean
		// rounding can push a zero variance slightly negative
		r.StdDevSystem = Value{V: math.Sqrt(math.Max(0, variance)), OK: true}
	} else {
		r.StdDevSystem = notApplicable("no packet served")
	}

	r.TokenDropProb = ratio(float64(s.TokensDropped), float64(s.TokensGenerated), "no token generated")
	r.PacketDropProb = ratio(float64(s.Dropped), float64(s.Arrived), "no packet arrived")
	return r
}

// Conserved reports whether every arrived packet reached exactly one terminal outcome.
func (r *Report) Conserved() bool {
	return r.Arrived == r.Served+r.Dropped+r.Drained
}

// Print writes the statistics block.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintln(w)
	printValue(w, "average packet inter-arrival time", r.AvgInterArrival, "ms")
	printValue(w, "average packet service time", r.AvgService, "ms")
	fmt.Fprintln(w)
	printValue(w, "average number of packets in Q1", r.AvgInQ1, "")
	printValue(w, "average number of packets in Q2", r.AvgInQ2, "")
	printValue(w, "average number of packets at S1", r.AvgAtS1, "")
	printValue(w, "average number of packets at S2", r.AvgAtS2, "")
	fmt.Fprintln(w)
	printValue(w, "average time a packet spent in system", r.AvgSystem, "ms")
	printValue(w, "standard deviation for time spent in system", r.StdDevSystem, "ms")
	fmt.Fprintln(w)
	printValue(w, "token drop probability", r.TokenDropProb, "")
	printValue(w, "packet drop probability", r.PacketDropProb, "")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "\tpackets arrived = %d, served = %d, dropped = %d, removed = %d\n", r.Arrived, r.Served, r.Dropped, r.Drained)
	fmt.Fprintf(w, "\ttokens generated = %d, dropped = %d\n", r.TokensGenerated, r.TokensDropped)
}

func printValue(w io.Writer, label string, v Value, unit string) {
	if !v.OK {
		fmt.Fprintf(w, "\t%s = N/A (%s)\n", label, v.Reason)
		return
	}
	fmt.Fprintf(w, "\t%s = %.6g%s\n", label, v.V, unit)
}
