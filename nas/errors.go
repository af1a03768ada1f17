package nas

import (
	"errors"
	"fmt"
)

// InvalidConfigError reports an architecture parameter outside its allowed domain.
type InvalidConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid architecture config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// EvaluationError reports a non-finite value produced while computing a metric.
// The search driver converts it into the worst score for that metric.
type EvaluationError struct {
	Metric MetricName
	Stage  string // e.g. "forward", "backward", "score"
	Err    error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation of %q failed during %s: %v", e.Metric, e.Stage, e.Err)
	}
	return fmt.Sprintf("evaluation of %q failed during %s: non-finite value", e.Metric, e.Stage)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ConfigurationError reports an unrecoverable search-level misconfiguration
// (empty search space, invalid weights, mismatched data). Returned before any
// architecture is built.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("search configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// errNonFinite is the cause attached to EvaluationErrors raised by the network itself.
var errNonFinite = errors.New("non-finite value")
