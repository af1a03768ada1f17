package nas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredict_DegenerateInputs_ReturnDefault(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []int
	}{
		{"single class", [][]float64{{1, 2}, {3, 4}, {5, 6}}, []int{1, 1, 1}},
		{"no rows", nil, nil},
		{"no features", [][]float64{{}, {}}, []int{0, 1}},
		{"ragged", [][]float64{{1, 2}, {3}}, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, DefaultConfig(), Predict(tt.x, tt.y))
			})
		})
	}
}

func TestPredictFromStats(t *testing.T) {
	tests := []struct {
		name  string
		stats DatasetStats
		want  ArchitectureConfig
	}{
		{
			name:  "small wide data gets dropout",
			stats: DatasetStats{Samples: 100, Features: 20, Classes: 3, FeatureScale: 1},
			want:  ArchitectureConfig{Depth: 2, Width: 64, Activation: ActivationReLU, DropoutRate: 0.1},
		},
		{
			name:  "large data gets batch norm",
			stats: DatasetStats{Samples: 5000, Features: 4, Classes: 2, FeatureScale: 1},
			want:  ArchitectureConfig{Depth: 4, Width: 16, Activation: ActivationReLU, UseBatchNorm: true},
		},
		{
			name:  "unscaled features get batch norm",
			stats: DatasetStats{Samples: 500, Features: 10, Classes: 2, FeatureScale: 40},
			want:  ArchitectureConfig{Depth: 3, Width: 32, Activation: ActivationReLU, UseBatchNorm: true},
		},
		{
			name:  "bounds clamp",
			stats: DatasetStats{Samples: 1e9, Features: 1000, Classes: 10, FeatureScale: 1},
			want:  ArchitectureConfig{Depth: 6, Width: 512, Activation: ActivationReLU, UseBatchNorm: true},
		},
		{
			name:  "tiny data floors depth and width",
			stats: DatasetStats{Samples: 2, Features: 1, Classes: 2},
			want:  ArchitectureConfig{Depth: 1, Width: 16, Activation: ActivationReLU, DropoutRate: 0.1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PredictFromStats(tt.stats))
		})
	}
}

func TestComputeDatasetStats(t *testing.T) {
	x := [][]float64{{0, 10}, {2, 10}}
	s := ComputeDatasetStats(x, []int{0, 1})
	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, 2, s.Features)
	assert.Equal(t, 2, s.Classes)
	// column stddevs are sqrt(2) and 0 (sample stddev)
	assert.InDelta(t, 0.7071067811865476, s.FeatureScale, 1e-12)
}
