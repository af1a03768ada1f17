package nas

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MetricWeights maps proxy names to ensemble weights. Weights need not sum to 1.
type MetricWeights map[MetricName]float64

// DefaultWeight is the equal share a metric gets when its weight is absent.
func DefaultWeight() float64 {
	return 1.0 / float64(len(standardMetrics))
}

// Validate rejects unknown metric names and negative or non-finite weights.
func (w MetricWeights) Validate() error {
	for name, weight := range w {
		if !validMetricNames[name] {
			return &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("unknown metric %q", name)}
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("weight for %q must be finite, got %v", name, weight)}
		}
		if weight < 0 {
			return &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("weight for %q must be non-negative, got %v", name, weight)}
		}
	}
	return nil
}

// For returns the weight of name, falling back to DefaultWeight.
func (w MetricWeights) For(name MetricName) float64 {
	if weight, ok := w[name]; ok {
		return weight
	}
	return DefaultWeight()
}

// Resolve returns an explicit weight for every metric in names.
func (w MetricWeights) Resolve(names []MetricName) MetricWeights {
	out := make(MetricWeights, len(names))
	for _, name := range names {
		out[name] = w.For(name)
	}
	return out
}

// String renders weights as sorted "name:weight" pairs.
func (w MetricWeights) String() string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, string(name))
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%g", name, w[MetricName(name)])
	}
	return strings.Join(parts, ",")
}

// ParseMetricWeights parses a comma-separated string of "name:weight" pairs.
// Returns nil for empty input. Returns error for unknown names, duplicates,
// negative weights, NaN, Inf, or malformed input.
func ParseMetricWeights(s string) (MetricWeights, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	weights := make(MetricWeights, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid metric weight %q (expected name:weight)", strings.TrimSpace(part))
		}
		name := MetricName(strings.TrimSpace(kv[0]))
		if !validMetricNames[name] {
			return nil, fmt.Errorf("unknown metric %q; valid: %s", name, strings.Join(ValidMetricNames(), ", "))
		}
		if _, dup := weights[name]; dup {
			return nil, fmt.Errorf("duplicate metric %q; each metric may appear at most once", name)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for metric %q: %w", name, err)
		}
		weights[name] = weight
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return weights, nil
}

// Score computes Σ wᵢ·nᵢ over the metrics present in normalized.
// Absent weights default to DefaultWeight. Returns a *ConfigurationError for
// negative or non-finite weights.
func Score(normalized map[MetricName]float64, weights MetricWeights) (float64, error) {
	if err := weights.Validate(); err != nil {
		return 0, err
	}
	// Summed in name order so the float result does not depend on map iteration.
	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, string(name))
	}
	sort.Strings(names)
	total := 0.0
	for _, name := range names {
		total += weights.For(MetricName(name)) * normalized[MetricName(name)]
	}
	return total, nil
}
