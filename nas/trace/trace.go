package trace

// TraceLevel controls the verbosity of evaluation tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvaluations captures every build and proxy evaluation.
	TraceLevelEvaluations TraceLevel = "evaluations"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelEvaluations: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// EvaluationTrace collects build and evaluation records during a search.
// Not safe for concurrent use; the search appends in cohort order after its
// evaluation barrier.
type EvaluationTrace struct {
	Level       TraceLevel
	Builds      []BuildRecord
	Evaluations []EvaluationRecord
}

// NewEvaluationTrace creates an EvaluationTrace ready for recording.
func NewEvaluationTrace(level TraceLevel) *EvaluationTrace {
	return &EvaluationTrace{
		Level:       level,
		Builds:      make([]BuildRecord, 0),
		Evaluations: make([]EvaluationRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on a nil trace.
func (t *EvaluationTrace) Enabled() bool {
	return t != nil && t.Level == TraceLevelEvaluations
}

// RecordBuild appends a build record.
func (t *EvaluationTrace) RecordBuild(record BuildRecord) {
	t.Builds = append(t.Builds, record)
}

// RecordEvaluation appends an evaluation record.
func (t *EvaluationTrace) RecordEvaluation(record EvaluationRecord) {
	t.Evaluations = append(t.Evaluations, record)
}
