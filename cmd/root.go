package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/token-shaper/sim"
	"github.com/inference-sim/token-shaper/sim/trace"
	"github.com/inference-sim/token-shaper/sim/workload"
)

var (
	// CLI flags for the emulation parameters
	lambda          float64 // Packet arrival rate (deterministic mode)
	mu              float64 // Service rate (deterministic mode)
	tokenRate       float64 // Token arrival rate
	bucketCapacity  int     // Token bucket depth B
	tokensPerPacket int     // Tokens required per packet P (deterministic mode)
	numPackets      int     // Packets to arrive n (deterministic mode)
	traceFile       string  // Trace file; switches to trace-driven mode
	arrivalProcess  string  // constant or poisson (deterministic mode)
	seed            int64   // Seed for the poisson process

	// CLI flags for the runner
	presetPath string  // YAML preset with emulation parameters
	logLevel   string  // Log verbosity level
	traceLevel string  // Event trace level; "events" prints a trace summary
	timeScale  float64 // Emulated ms per real ms
)

// Flags that only apply in deterministic mode.
var syntheticOnlyFlags = []string{"lambda", "mu", "tokens-per-packet", "num", "arrival-process", "seed"}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "token-shaper",
	Short: "Token-bucket traffic shaper emulator with two servers",
}

// runCmd executes the emulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the token-bucket emulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		// SIGINT is the emulation's interrupt, not a hard kill
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runEmulation(ctx, cfg, trace.TraceLevel(traceLevel), os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// resolveConfig layers the YAML preset (if any) and explicitly set flags over the defaults.
func resolveConfig(flags *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if presetPath != "" {
		var err error
		if cfg, err = LoadPreset(presetPath, cfg); err != nil {
			return cfg, err
		}
	}
	applyFlagOverrides(flags, &cfg)

	if cfg.TraceDriven() {
		for _, name := range syntheticOnlyFlags {
			if flags.Changed(name) {
				logrus.Warnf("--%s is ignored in trace-driven mode", name)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid parameters: %w", err)
	}
	return cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *sim.Config) {
	if flags.Changed("lambda") {
		cfg.Lambda = lambda
	}
	if flags.Changed("mu") {
		cfg.Mu = mu
	}
	if flags.Changed("token-rate") {
		cfg.TokenRate = tokenRate
	}
	if flags.Changed("bucket") {
		cfg.BucketCapacity = bucketCapacity
	}
	if flags.Changed("tokens-per-packet") {
		cfg.TokensPerPacket = tokensPerPacket
	}
	if flags.Changed("num") {
		cfg.NumPackets = numPackets
	}
	if flags.Changed("tsfile") {
		cfg.TraceFile = traceFile
	}
	if flags.Changed("arrival-process") {
		cfg.ArrivalProcess = arrivalProcess
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("time-scale") {
		cfg.TimeScale = timeScale
	}
}

// runEmulation loads the arrival feed, runs the emulator until it finishes or
// ctx is cancelled, and prints the parameters, event log and statistics to out.
// At trace level "events" a trace summary follows the statistics.
func runEmulation(ctx context.Context, cfg sim.Config, level trace.TraceLevel, out io.Writer) error {
	if !trace.IsValidTraceLevel(string(level)) {
		return fmt.Errorf("unknown trace level %q; valid: none, events", level)
	}
	feed, err := workload.NewFeed(cfg)
	if err != nil {
		return err
	}

	log := logrus.WithField("run_id", uuid.NewString())
	log.Infof("Starting emulation: r=%v B=%d trace=%q scale=%v", cfg.TokenRate, cfg.BucketCapacity, cfg.TraceFile, cfg.TimeScale)

	st := trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	emulator, err := sim.NewEmulator(cfg, feed, sim.WithOutput(out), sim.WithTrace(st))
	if err != nil {
		return err
	}

	printParameters(out, cfg, feed.Len())
	started := time.Now()
	report, err := emulator.Run(ctx)
	if err != nil {
		return fmt.Errorf("emulation aborted: %w", err)
	}
	report.Print(out)
	if st.Enabled() {
		printTraceSummary(out, trace.Summarize(st))
	}

	log.WithFields(logrus.Fields{
		"arrived":      report.Arrived,
		"served":       report.Served,
		"dropped":      report.Dropped,
		"removed":      report.Drained,
		"bucket_level": emulator.Bucket().Level(),
		"wall":         time.Since(started).Round(time.Millisecond),
	}).Info("Emulation complete.")
	return nil
}

// printTraceSummary writes the trace summary block.
func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trace Summary:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "\tevents = %d\n", s.TotalEvents)
	fmt.Fprintf(w, "\tpackets arrived = %d, dropped = %d, served = %d, removed = %d\n", s.Arrived, s.DroppedPackets, s.Served, s.Removed)
	fmt.Fprintf(w, "\ttokens generated = %d, dropped = %d\n", s.TokensGenerated, s.TokensDropped)
	fmt.Fprintf(w, "\tbucket level min = %d, max = %d\n", s.MinTokens, s.MaxTokens)
	for _, kind := range slices.Sorted(maps.Keys(s.KindCounts)) {
		fmt.Fprintf(w, "\t%s = %d\n", kind, s.KindCounts[kind])
	}
}

// printParameters writes the parameter block shown before the event log.
func printParameters(w io.Writer, cfg sim.Config, count int) {
	fmt.Fprintln(w, "Emulation Parameters:")
	fmt.Fprintf(w, "\tnumber to arrive = %d\n", count)
	if !cfg.TraceDriven() {
		fmt.Fprintf(w, "\tlambda = %.6g\n", cfg.Lambda)
		fmt.Fprintf(w, "\tmu = %.6g\n", cfg.Mu)
	}
	fmt.Fprintf(w, "\tr = %.6g\n", cfg.TokenRate)
	fmt.Fprintf(w, "\tB = %d\n", cfg.BucketCapacity)
	if !cfg.TraceDriven() {
		fmt.Fprintf(w, "\tP = %d\n", cfg.TokensPerPacket)
	} else {
		fmt.Fprintf(w, "\ttsfile = %s\n", cfg.TraceFile)
	}
	fmt.Fprintln(w)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the `run` flags to their package variables on fs,
// resetting each variable to its default.
func registerRunFlags(fs *pflag.FlagSet) {
	defaults := sim.DefaultConfig()

	// Emulation parameters
	fs.Float64VarP(&lambda, "lambda", "l", defaults.Lambda, "Packet arrival rate in packets/sec (deterministic mode)")
	fs.Float64VarP(&mu, "mu", "m", defaults.Mu, "Service rate in packets/sec (deterministic mode)")
	fs.Float64VarP(&tokenRate, "token-rate", "r", defaults.TokenRate, "Token arrival rate in tokens/sec")
	fs.IntVarP(&bucketCapacity, "bucket", "B", defaults.BucketCapacity, "Token bucket capacity")
	fs.IntVarP(&tokensPerPacket, "tokens-per-packet", "P", defaults.TokensPerPacket, "Tokens required per packet (deterministic mode)")
	fs.IntVarP(&numPackets, "num", "n", defaults.NumPackets, "Number of packets to arrive (deterministic mode)")
	fs.StringVarP(&traceFile, "tsfile", "t", "", "Trace file; switches to trace-driven mode")
	fs.StringVar(&arrivalProcess, "arrival-process", defaults.ArrivalProcess, "Inter-arrival and service process (constant, poisson)")
	fs.Int64Var(&seed, "seed", defaults.Seed, "Seed for the poisson process")

	// Runner configs
	fs.StringVar(&presetPath, "config", "", "YAML file with emulation parameters; explicit flags override it")
	fs.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Event trace level (none, events); events prints a trace summary")
	fs.Float64Var(&timeScale, "time-scale", defaults.TimeScale, "Emulated milliseconds per real millisecond")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd.Flags())

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
