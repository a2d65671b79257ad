package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationTrace_Record_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN an arrival record is recorded
	st.Record(EventRecord{Seq: 0, Elapsed: 5 * time.Millisecond, Kind: KindArrival, PacketID: 1})

	// THEN the trace contains one record with correct data
	require.Len(t, st.Events, 1)
	assert.Equal(t, KindArrival, st.Events[0].Kind)
	assert.Equal(t, 1, st.Events[0].PacketID)
}

func TestSimulationTrace_LevelNone_DropsRecords(t *testing.T) {
	// GIVEN a trace with recording disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN a record is added
	st.Record(EventRecord{Kind: KindBegin})

	// THEN nothing is retained
	assert.Empty(t, st.Events)
	assert.False(t, st.Enabled())
}

func TestSimulationTrace_Nil_IsSafe(t *testing.T) {
	var st *SimulationTrace
	assert.NotPanics(t, func() { st.Record(EventRecord{Kind: KindBegin}) })
	assert.Nil(t, st.Kinds())
	assert.Nil(t, st.PacketOrder(KindArrival))
}

func TestSimulationTrace_PacketOrder_FiltersByKind(t *testing.T) {
	// GIVEN interleaved Q1 and Q2 events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})
	st.Record(EventRecord{Kind: KindEnterQ1, PacketID: 1})
	st.Record(EventRecord{Kind: KindEnterQ1, PacketID: 2})
	st.Record(EventRecord{Kind: KindLeaveQ1, PacketID: 1})
	st.Record(EventRecord{Kind: KindToken, Tokens: 3})
	st.Record(EventRecord{Kind: KindLeaveQ1, PacketID: 2})

	// WHEN PacketOrder is queried per kind
	// THEN only matching packet events appear, in log order
	assert.Equal(t, []int{1, 2}, st.PacketOrder(KindEnterQ1))
	assert.Equal(t, []int{1, 2}, st.PacketOrder(KindLeaveQ1))
	assert.Nil(t, st.PacketOrder(KindToken))
	assert.Equal(t, []EventKind{KindEnterQ1, KindEnterQ1, KindLeaveQ1, KindToken, KindLeaveQ1}, st.Kinds())
}

func TestIsValidTraceLevel(t *testing.T) {
	assert.True(t, IsValidTraceLevel("events"))
	assert.True(t, IsValidTraceLevel("none"))
	assert.True(t, IsValidTraceLevel(""))
	assert.False(t, IsValidTraceLevel("decisions"))
}
