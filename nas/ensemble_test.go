package nas

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxynas/proxynas/nas/internal/testutil"
)

func TestScore_WeightedSum(t *testing.T) {
	normalized := map[MetricName]float64{MetricZiCo: 1, MetricSynflow: 0.5}
	got, err := Score(normalized, MetricWeights{MetricZiCo: 2, MetricSynflow: 1})
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)
}

func TestScore_UnnormalizedWeights_NotAveraged(t *testing.T) {
	// weights summing to 5 scale the result past 1 rather than being divided out
	got, err := Score(
		map[MetricName]float64{MetricZiCo: 1, MetricSynflow: 1},
		MetricWeights{MetricZiCo: 2, MetricSynflow: 3},
	)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestScore_AbsentWeightDefaultsToEqualShare(t *testing.T) {
	normalized := map[MetricName]float64{MetricZiCo: 1, MetricGraSP: 1}
	got, err := Score(normalized, MetricWeights{MetricZiCo: 1})
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "score", 1.2, got, 1e-12)
	assert.Equal(t, 0.2, DefaultWeight())
}

func TestScore_NilWeights_EqualShares(t *testing.T) {
	normalized := make(map[MetricName]float64)
	for _, m := range StandardMetrics() {
		normalized[m] = 1
	}
	got, err := Score(normalized, nil)
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "score", 1, got, 1e-12)
}

func TestScore_InvalidWeights_ConfigurationError(t *testing.T) {
	tests := []struct {
		name    string
		weights MetricWeights
	}{
		{"negative", MetricWeights{MetricZiCo: -1}},
		{"NaN", MetricWeights{MetricZiCo: math.NaN()}},
		{"Inf", MetricWeights{MetricZiCo: math.Inf(1)}},
		{"unknown metric", MetricWeights{"jacov": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(map[MetricName]float64{MetricZiCo: 1}, tt.weights)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestParseMetricWeights(t *testing.T) {
	w, err := ParseMetricWeights("zico:2, synflow:1")
	require.NoError(t, err)
	assert.Equal(t, MetricWeights{MetricZiCo: 2, MetricSynflow: 1}, w)
	assert.Equal(t, "synflow:1,zico:2", w.String())

	w, err = ParseMetricWeights("  ")
	require.NoError(t, err)
	assert.Nil(t, w)

	for _, bad := range []string{"zico", "zico:x", "zico:1,zico:2", "nope:1", "zico:-1", "zico:NaN"} {
		_, err := ParseMetricWeights(bad)
		assert.Error(t, err, bad)
	}
}

func TestMetricWeights_Resolve(t *testing.T) {
	w := MetricWeights{MetricZiCo: 3}
	got := w.Resolve([]MetricName{MetricZiCo, MetricSynflow})
	assert.Equal(t, MetricWeights{MetricZiCo: 3, MetricSynflow: 0.2}, got)
}
