package trace

// TraceSummary aggregates counts from a SimulationTrace.
type TraceSummary struct {
	TotalEvents     int
	Arrived         int
	DroppedPackets  int
	Served          int
	Removed         int
	TokensGenerated int
	TokensDropped   int
	MaxTokens       int
	MinTokens       int
	KindCounts      map[EventKind]int
}

// Summarize computes aggregate counts from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindCounts: make(map[EventKind]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	first := true
	for _, ev := range st.Events {
		summary.KindCounts[ev.Kind]++
		switch ev.Kind {
		case KindArrival:
			summary.Arrived++
			if ev.Dropped {
				summary.DroppedPackets++
			}
		case KindDepart:
			summary.Served++
		case KindRemoved:
			summary.Removed++
		case KindToken:
			summary.TokensGenerated++
			if ev.Dropped {
				summary.TokensDropped++
			}
		}
		if ev.Kind == KindToken || ev.Kind == KindLeaveQ1 {
			if first || ev.Tokens > summary.MaxTokens {
				summary.MaxTokens = ev.Tokens
			}
			if first || ev.Tokens < summary.MinTokens {
				summary.MinTokens = ev.Tokens
			}
			first = false
		}
	}
	return summary
}
