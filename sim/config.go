package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config groups the emulation parameters.
// In trace-driven mode (TraceFile set) Lambda, Mu, TokensPerPacket and
// NumPackets are ignored; the trace supplies every packet.
type Config struct {
	Lambda          float64 `yaml:"lambda"`            // packets/sec, deterministic mode
	Mu              float64 `yaml:"mu"`                // services/sec, deterministic mode
	TokenRate       float64 `yaml:"token_rate"`        // tokens/sec
	BucketCapacity  int     `yaml:"bucket"`            // B
	TokensPerPacket int     `yaml:"tokens_per_packet"` // P, deterministic mode
	NumPackets      int     `yaml:"num"`               // n, deterministic mode
	TraceFile       string  `yaml:"tsfile"`            // switches to trace-driven mode
	TimeScale       float64 `yaml:"time_scale"`        // emulated ms per real ms
	ArrivalProcess  string  `yaml:"arrival_process"`   // "constant" (default) or "poisson", deterministic mode
	Seed            int64   `yaml:"seed"`              // RNG seed for the poisson process
}

// Arrival processes for deterministic mode.
const (
	ProcessConstant = "constant"
	ProcessPoisson  = "poisson"
)

var validArrivalProcesses = map[string]bool{
	"": true, ProcessConstant: true, ProcessPoisson: true,
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Lambda:          1.0,
		Mu:              0.35,
		TokenRate:       1.5,
		BucketCapacity:  10,
		TokensPerPacket: 3,
		NumPackets:      20,
		TimeScale:       1.0,
		ArrivalProcess:  ProcessConstant,
		Seed:            42,
	}
}

// TraceDriven reports whether packets come from a trace file.
func (c Config) TraceDriven() bool {
	return c.TraceFile != ""
}

// TokenInterval is the period between token deposits, 1/r.
func (c Config) TokenInterval() time.Duration {
	return RateInterval(c.TokenRate)
}

// RateInterval converts an events/sec rate into the nominal period between events.
func RateInterval(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if err := validateRate("token rate r", c.TokenRate); err != nil {
		result = multierror.Append(result, err)
	}
	if c.BucketCapacity < 0 {
		result = multierror.Append(result, fmt.Errorf("bucket capacity B must be non-negative, got %d", c.BucketCapacity))
	}
	if err := validateFinitePositive("time scale", c.TimeScale); err != nil {
		result = multierror.Append(result, err)
	}
	if !c.TraceDriven() {
		if err := validateRate("arrival rate lambda", c.Lambda); err != nil {
			result = multierror.Append(result, err)
		}
		if err := validateRate("service rate mu", c.Mu); err != nil {
			result = multierror.Append(result, err)
		}
		if c.TokensPerPacket < 0 {
			result = multierror.Append(result, fmt.Errorf("tokens per packet P must be non-negative, got %d", c.TokensPerPacket))
		}
		if !validArrivalProcesses[c.ArrivalProcess] {
			result = multierror.Append(result, fmt.Errorf("unknown arrival process %q; valid: constant, poisson", c.ArrivalProcess))
		}
		if c.NumPackets < 0 {
			result = multierror.Append(result, fmt.Errorf("packet count n must be non-negative, got %d", c.NumPackets))
		}
	}
	return result.ErrorOrNil()
}

// validateRate checks that rate is positive and that its period 1/rate fits
// in a time.Duration.
func validateRate(name string, rate float64) error {
	if err := validateFinitePositive(name, rate); err != nil {
		return err
	}
	if float64(time.Second)/rate >= math.MaxInt64 {
		return fmt.Errorf("%s is too small, got %g; its period exceeds %v", name, rate, time.Duration(math.MaxInt64))
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
