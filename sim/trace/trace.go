// Package trace provides in-memory recording of emulation events for analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TraceLevel controls whether events are retained.
type TraceLevel string

const (
	// TraceLevelNone disables recording.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents retains every logged event.
	TraceLevelEvents TraceLevel = "events"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects event records during an emulation run.
// It is not safe for concurrent use; the event log serializes Record calls.
type SimulationTrace struct {
	Config TraceConfig
	Events []EventRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Events: make([]EventRecord, 0),
	}
}

// Enabled reports whether records should be retained.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelEvents
}

// Record appends an event record. No-op when tracing is disabled.
func (st *SimulationTrace) Record(record EventRecord) {
	if !st.Enabled() {
		return
	}
	st.Events = append(st.Events, record)
}

// Kinds returns the kind of every recorded event, in log order.
func (st *SimulationTrace) Kinds() []EventKind {
	if st == nil {
		return nil
	}
	kinds := make([]EventKind, len(st.Events))
	for i, ev := range st.Events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// PacketOrder returns the packet IDs of all events of the given kind, in log order.
func (st *SimulationTrace) PacketOrder(kind EventKind) []int {
	if st == nil {
		return nil
	}
	var ids []int
	for _, ev := range st.Events {
		if ev.Kind == kind && ev.PacketID != 0 {
			ids = append(ids, ev.PacketID)
		}
	}
	return ids
}
