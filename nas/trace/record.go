// Package trace provides per-evaluation recording for search analysis.
// This package has no dependencies on nas/; it stores pure data types.
package trace

import "time"

// EvaluationRecord captures one proxy evaluation of one configuration.
type EvaluationRecord struct {
	ConfigKey string
	Position  int // cohort position of the configuration
	Metric    string
	Raw       float64 // NaN when Err is set
	Err       string
	Duration  time.Duration
}

// BuildRecord captures the construction of one configuration's network.
type BuildRecord struct {
	ConfigKey string
	Position  int
	Params    int
}
