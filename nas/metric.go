package nas

import (
	"fmt"
	"sort"
	"strings"
)

// MetricName identifies a zero-cost proxy.
type MetricName string

const (
	MetricActivationCorrelation MetricName = "activation_correlation"
	MetricGradientConflict      MetricName = "gradient_conflict"
	MetricZiCo                  MetricName = "zico"
	MetricSynflow               MetricName = "synflow"
	MetricGraSP                 MetricName = "grasp"
)

// standardMetrics is the default evaluation order. Unexported to prevent mutation.
var standardMetrics = []MetricName{
	MetricActivationCorrelation,
	MetricGradientConflict,
	MetricZiCo,
	MetricSynflow,
	MetricGraSP,
}

var validMetricNames = map[MetricName]bool{
	MetricActivationCorrelation: true,
	MetricGradientConflict:      true,
	MetricZiCo:                  true,
	MetricSynflow:               true,
	MetricGraSP:                 true,
}

// StandardMetrics returns the five standard proxies in evaluation order.
func StandardMetrics() []MetricName {
	out := make([]MetricName, len(standardMetrics))
	copy(out, standardMetrics)
	return out
}

// IsValidMetric returns true if name is a recognized proxy.
func IsValidMetric(name string) bool { return validMetricNames[MetricName(name)] }

// ValidMetricNames returns sorted valid proxy names.
func ValidMetricNames() []string {
	names := make([]string, 0, len(validMetricNames))
	for m := range validMetricNames {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}

// ParseMetricNames parses a comma-separated metric list. Returns nil for empty input.
func ParseMetricNames(s string) ([]MetricName, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]MetricName, 0, len(parts))
	seen := make(map[MetricName]bool, len(parts))
	for _, part := range parts {
		name := MetricName(strings.TrimSpace(part))
		if !validMetricNames[name] {
			return nil, fmt.Errorf("unknown metric %q; valid: %s", name, strings.Join(ValidMetricNames(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate metric %q", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
