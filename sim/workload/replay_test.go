package workload

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/token-shaper/sim"
)

func TestParseTrace_WellFormed(t *testing.T) {
	// GIVEN a three-packet trace
	input := "3\n0 2 100\n0 2 100\n0 2 100\n"

	// WHEN parsed
	records, err := ParseTrace(strings.NewReader(input))

	// THEN three identical records come back in order
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, TraceRecord{InterArrivalMs: 0, TokensNeeded: 2, ServiceMs: 100}, r)
	}
}

func TestParseTrace_AnyWhitespaceLayout(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TraceRecord
	}{
		{"blank lines and tabs", "\n  2 \n\n 10\t3   250\n\n20 1 5\n", []TraceRecord{{10, 3, 250}, {20, 1, 5}}},
		{"everything on one line", "3 0 2 100 0 2 100 0 2 100\n", []TraceRecord{{0, 2, 100}, {0, 2, 100}, {0, 2, 100}}},
		{"record split across lines", "2\n0 2\n100 0 2 100\n", []TraceRecord{{0, 2, 100}, {0, 2, 100}}},
		{"one value per line", "1\n7\n1\n9", []TraceRecord{{7, 1, 9}}},
		{"count shares a line with records", "2 4 1 8\n5 2 6\n", []TraceRecord{{4, 1, 8}, {5, 2, 6}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records, err := ParseTrace(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, records)
		})
	}
}

func TestParseTrace_TrailingDataIgnored(t *testing.T) {
	records, err := ParseTrace(strings.NewReader("1\n5 1 5\n9 9 9\n"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseTrace_ZeroCount(t *testing.T) {
	records, err := ParseTrace(strings.NewReader("0\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseTrace_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"count not numeric", "three\n", "not an integer"},
		{"blank only", "\n \n\t\n", "empty"},
		{"negative count", "-1\n", "non-negative"},
		{"too few records", "3\n0 2 100\n", "declares 3 packets but holds only 1"},
		{"partial record", "1\n0 2\n", "record 1 has 2 of 3 fields"},
		{"partial last record", "2 0 2 100 0\n", "holds only 1 records; record 2 has 1 of 3 fields"},
		{"non numeric field", "1\n0 x 100\n", "record 1 field 2"},
		{"negative field", "2\n0 2 1\n0 2 -5\n", "record 2 field 3"},
		{"non numeric count", "3x\n", "packet count"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTrace(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadTraceFile_MissingFile(t *testing.T) {
	_, err := LoadTraceFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening trace file")
}

func TestNewFeed_TraceMode_ReplaysRecords(t *testing.T) {
	// GIVEN a trace file on disk and a config pointing at it
	path := filepath.Join(t.TempDir(), "t.txt")
	require.NoError(t, os.WriteFile(path, []byte("2\n100 3 700\n50 1 20\n"), 0o644))
	cfg := sim.DefaultConfig()
	cfg.TraceFile = path

	// WHEN a feed is built
	feed, err := NewFeed(cfg)
	require.NoError(t, err)

	// THEN it replays both records and then reports EOF
	assert.Equal(t, 2, feed.Len())
	first, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, sim.PacketSpec{InterArrival: 100 * time.Millisecond, TokensNeeded: 3, ServiceTime: 700 * time.Millisecond}, first)
	second, err := feed.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, second.TokensNeeded)
	_, err = feed.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewFeed_DeterministicMode(t *testing.T) {
	cfg := sim.DefaultConfig()
	feed, err := NewFeed(cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, feed.Len())
	_, ok := feed.(*SyntheticFeed)
	assert.True(t, ok)
}
