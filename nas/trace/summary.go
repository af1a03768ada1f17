package trace

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Distribution captures the statistical summary of one metric's raw scores.
type Distribution struct {
	Mean  float64
	P50   float64
	Min   float64
	Max   float64
	Count int
}

// NewDistribution computes a Distribution from raw values, ignoring NaN and Inf.
// Returns zero-value Distribution when no finite value remains.
func NewDistribution(values []float64) Distribution {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return Distribution{}
	}
	sort.Float64s(sorted)
	return Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   percentile(sorted, 50),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// percentile computes the p-th percentile using linear interpolation.
// Input must be sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// TraceSummary aggregates statistics from an EvaluationTrace.
type TraceSummary struct {
	TotalEvaluations  int
	FailedEvaluations int
	MetricFailures    map[string]int          // metric → failed evaluations
	ConfigFailures    map[string]int          // config key → failed evaluations
	RawDistributions  map[string]Distribution // metric → finite raw score summary
	MetricTime        map[string]time.Duration
	SlowestConfig     string
	SlowestConfigTime time.Duration
}

// Summarize computes aggregate statistics from an EvaluationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *EvaluationTrace) *TraceSummary {
	summary := &TraceSummary{
		MetricFailures:   make(map[string]int),
		ConfigFailures:   make(map[string]int),
		RawDistributions: make(map[string]Distribution),
		MetricTime:       make(map[string]time.Duration),
	}
	if t == nil {
		return summary
	}

	raws := make(map[string][]float64)
	configTime := make(map[string]time.Duration)
	var configOrder []string
	for _, e := range t.Evaluations {
		summary.TotalEvaluations++
		summary.MetricTime[e.Metric] += e.Duration
		if _, seen := configTime[e.ConfigKey]; !seen {
			configOrder = append(configOrder, e.ConfigKey)
		}
		configTime[e.ConfigKey] += e.Duration
		if e.Err != "" {
			summary.FailedEvaluations++
			summary.MetricFailures[e.Metric]++
			summary.ConfigFailures[e.ConfigKey]++
			continue
		}
		raws[e.Metric] = append(raws[e.Metric], e.Raw)
	}
	for metric, values := range raws {
		summary.RawDistributions[metric] = NewDistribution(values)
	}
	for _, key := range configOrder {
		if configTime[key] > summary.SlowestConfigTime {
			summary.SlowestConfig = key
			summary.SlowestConfigTime = configTime[key]
		}
	}
	return summary
}
