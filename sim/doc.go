// Package sim provides the concurrent emulation engine for the token-bucket shaper.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - packet.go: Packet lifecycle (arrival → Q1 → Q2 → server → departure)
//   - bucket.go: the capacity-bounded token bucket
//   - simulator.go: the Emulator, its stage goroutines and the shutdown coordinator
//   - metrics.go: running statistics and the final report
//
// # Architecture
//
// An Emulator owns every piece of shared state: the clock, Q1 and Q2, the
// token bucket, the finished flag and the statistics. Four goroutines share it:
// one arrival source, one token generator (which also runs the transfer step)
// and two servers. The goroutine calling Run is the shutdown coordinator; it
// drains both queues when its context is cancelled.
//
// Arrival feeds live in sim/workload/ (deterministic and trace-driven) and the
// in-memory event trace lives in sim/trace/.
//
// # Lock Order
//
// Q1 and Q2 share one mutex. The bucket has its own. Whenever both are held the
// queue mutex is taken first. Statistics and the event log each guard
// themselves and are never held while acquiring another lock.
package sim
