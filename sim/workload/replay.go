package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/token-shaper/sim"
)

// TraceRecord is one packet of a trace file.
type TraceRecord struct {
	InterArrivalMs int
	TokensNeeded   int
	ServiceMs      int
}

// Spec converts the record into the packet spec the emulator consumes.
func (r TraceRecord) Spec() sim.PacketSpec {
	return sim.PacketSpec{
		InterArrival: time.Duration(r.InterArrivalMs) * time.Millisecond,
		TokensNeeded: r.TokensNeeded,
		ServiceTime:  time.Duration(r.ServiceMs) * time.Millisecond,
	}
}

// ParseTrace reads a trace: the packet count k, then k records of
// "inter_arrival_ms tokens_needed service_ms". Values are whitespace
// separated in any layout; a record may share a line with others or span
// several. Values after the k-th record are ignored.
func ParseTrace(r io.Reader) ([]TraceRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading trace: %w", err)
		}
		return nil, fmt.Errorf("trace is empty; expected a packet count first")
	}
	count, err := parseNonNegative(scanner.Text())
	if err != nil {
		return nil, fmt.Errorf("packet count: %w", err)
	}

	records := make([]TraceRecord, 0, count)
	var vals [3]int
	field := 0
	for len(records) < count && scanner.Scan() {
		v, err := parseNonNegative(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("record %d field %d: %w", len(records)+1, field+1, err)
		}
		vals[field] = v
		if field++; field == len(vals) {
			records = append(records, TraceRecord{InterArrivalMs: vals[0], TokensNeeded: vals[1], ServiceMs: vals[2]})
			field = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	if len(records) < count {
		if field > 0 {
			return nil, fmt.Errorf("trace declares %d packets but holds only %d records; record %d has %d of 3 fields",
				count, len(records), len(records)+1, field)
		}
		return nil, fmt.Errorf("trace declares %d packets but holds only %d records", count, len(records))
	}
	if scanner.Scan() {
		logrus.Warnf("trace holds data after the %d declared records (starting at %q); ignoring it", count, scanner.Text())
	}
	return records, nil
}

func parseNonNegative(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%d must be non-negative", v)
	}
	return v, nil
}

// LoadTraceFile opens and parses the trace at path.
func LoadTraceFile(path string) (records []TraceRecord, re error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()
	records, err = ParseTrace(f)
	if err != nil {
		return nil, fmt.Errorf("parsing trace file %s: %w", path, err)
	}
	return records, nil
}

// TraceFeed replays trace records in order.
type TraceFeed struct {
	records []TraceRecord
	next    int
}

// NewTraceFeed creates a feed over records.
func NewTraceFeed(records []TraceRecord) *TraceFeed {
	return &TraceFeed{records: records}
}

// Next returns the next record's spec, or io.EOF once all are consumed.
func (f *TraceFeed) Next() (sim.PacketSpec, error) {
	if f.next >= len(f.records) {
		return sim.PacketSpec{}, io.EOF
	}
	rec := f.records[f.next]
	f.next++
	return rec.Spec(), nil
}

// Len returns the number of records.
func (f *TraceFeed) Len() int {
	return len(f.records)
}

// NewFeed picks the feed for cfg: the trace file when one is configured,
// otherwise the synthetic generator.
func NewFeed(cfg sim.Config) (sim.ArrivalFeed, error) {
	if !cfg.TraceDriven() {
		return NewSyntheticFeed(cfg), nil
	}
	records, err := LoadTraceFile(cfg.TraceFile)
	if err != nil {
		return nil, err
	}
	return NewTraceFeed(records), nil
}
