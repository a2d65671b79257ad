package workload

import (
	"io"
	"math/rand"
	"time"

	"github.com/inference-sim/token-shaper/sim"
)

// IntervalSampler produces successive durations for a nominal rate.
type IntervalSampler interface {
	Sample(rng *rand.Rand) time.Duration
}

// ConstantSampler always returns the nominal period 1/rate.
type ConstantSampler struct {
	period time.Duration
}

func (s *ConstantSampler) Sample(*rand.Rand) time.Duration {
	return s.period
}

// ExponentialSampler returns exponentially-distributed durations with mean 1/rate.
type ExponentialSampler struct {
	mean time.Duration
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) time.Duration {
	return time.Duration(rng.ExpFloat64() * float64(s.mean))
}

// NewIntervalSampler creates a sampler for the named process at rate events/sec.
func NewIntervalSampler(process string, rate float64) IntervalSampler {
	period := sim.RateInterval(rate)
	if process == sim.ProcessPoisson {
		return &ExponentialSampler{mean: period}
	}
	return &ConstantSampler{period: period}
}

// SyntheticFeed emits exactly n packets, each needing P tokens. Inter-arrival
// and service times come from samplers at rates lambda and mu.
type SyntheticFeed struct {
	total        int
	emitted      int
	tokensNeeded int
	arrivals     IntervalSampler
	services     IntervalSampler
	arrivalRNG   *rand.Rand
	serviceRNG   *rand.Rand
}

// NewSyntheticFeed builds the deterministic-mode feed from cfg.
// Inter-arrival and service draws use separate streams of cfg.Seed.
func NewSyntheticFeed(cfg sim.Config) *SyntheticFeed {
	streams := sim.NewRandomStreams(cfg.Seed)
	return &SyntheticFeed{
		total:        cfg.NumPackets,
		tokensNeeded: cfg.TokensPerPacket,
		arrivals:     NewIntervalSampler(cfg.ArrivalProcess, cfg.Lambda),
		services:     NewIntervalSampler(cfg.ArrivalProcess, cfg.Mu),
		arrivalRNG:   streams.Stream(sim.StreamArrivals),
		serviceRNG:   streams.Stream(sim.StreamService),
	}
}

// Next returns the next packet spec, or io.EOF after n packets.
func (f *SyntheticFeed) Next() (sim.PacketSpec, error) {
	if f.emitted >= f.total {
		return sim.PacketSpec{}, io.EOF
	}
	f.emitted++
	return sim.PacketSpec{
		InterArrival: f.arrivals.Sample(f.arrivalRNG),
		TokensNeeded: f.tokensNeeded,
		ServiceTime:  f.services.Sample(f.serviceRNG),
	}, nil
}

// Len returns n.
func (f *SyntheticFeed) Len() int {
	return f.total
}
