package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures policy phases, offset candidates and fatality regime switches.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	RunID string
}

// SimulationTrace collects decision records during one pipeline run.
// A trace belongs to a single run and is not safe for concurrent use.
type SimulationTrace struct {
	Config  TraceConfig
	Phases  []PhaseRecord
	Offsets []OffsetRecord
	Regimes []RegimeRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Phases:  make([]PhaseRecord, 0),
		Offsets: make([]OffsetRecord, 0),
		Regimes: make([]RegimeRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordPhase appends a transmission policy change point.
func (st *SimulationTrace) RecordPhase(record PhaseRecord) {
	st.Phases = append(st.Phases, record)
}

// RecordOffset appends an offset search candidate.
func (st *SimulationTrace) RecordOffset(record OffsetRecord) {
	st.Offsets = append(st.Offsets, record)
}

// RecordRegime appends a fatality regime switch.
func (st *SimulationTrace) RecordRegime(record RegimeRecord) {
	st.Regimes = append(st.Regimes, record)
}
